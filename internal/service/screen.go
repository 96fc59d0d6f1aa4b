package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/apiclient"
	"github.com/noah-isme/backoffice-console/internal/listmanager"
	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/export"
)

// Screen is a list screen as seen by the workspace, handlers and the CLI.
type Screen interface {
	Key() string
	Title() string
	ManagePermission() string

	Mount(ctx context.Context) error
	Unmount()
	Mounted() bool
	State() ScreenState

	SetSearch(term string) error
	CommitSearch() error
	SetFilters(filters map[string]string) error
	SetPage(n int) error
	Refresh() error

	Create(ctx context.Context, body []byte) (interface{}, error)
	Update(ctx context.Context, id string, body []byte) (interface{}, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, body []byte) (interface{}, error)

	Dataset() export.Dataset
}

// ScreenState is what a screen renders.
type ScreenState struct {
	listmanager.View[any]
	Title     string   `json:"title"`
	ReadOnly  bool     `json:"read_only"`
	Filters   []string `json:"filters"`
	Statuses  []string `json:"statuses,omitempty"`
	CanCreate bool     `json:"can_create"`
	CanDelete bool     `json:"can_delete"`
	Columns   []string `json:"columns"`
}

// Definition describes one backend collection and how its screen edits it.
type Definition[T models.Record] struct {
	Key              string
	Title            string
	ManagePermission string
	Resource         *apiclient.Resource[T]
	// NewCreateDraft and NewUpdateDraft return pointers to empty form drafts.
	// A nil constructor disables the operation.
	NewCreateDraft func() interface{}
	NewUpdateDraft func() interface{}
	CanDelete      bool
	Statuses       []string
	// StatusGuard rejects a status change the current record may not make.
	StatusGuard func(current T, next string) error
	Filters     []string
	Defaults    map[string]string
	Columns     []export.Column
	// Decorate adjusts rows before they are shown or exported.
	Decorate func(T) T
}

// ScreenOptions carries the shared wiring for every screen.
type ScreenOptions struct {
	PageSize  int
	Debounce  time.Duration
	Validator *validator.Validate
	Metrics   listmanager.StaleObserver
	Logger    *zap.Logger
}

// ScreenController binds a Definition to a list manager.
type ScreenController[T models.Record] struct {
	def      Definition[T]
	list     *listmanager.Manager[T]
	validate *validator.Validate
	logger   *zap.Logger
}

// NewScreenController builds the controller for def.
func NewScreenController[T models.Record](def Definition[T], opts ScreenOptions) *ScreenController[T] {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Validator == nil {
		opts.Validator = listmanager.NewValidator()
	}
	list := listmanager.New[T](def.Key, def.Resource.List, listmanager.Options{
		PageSize: opts.PageSize,
		Debounce: opts.Debounce,
		Filters:  def.Defaults,
		Logger:   opts.Logger,
		Observer: opts.Metrics,
	})
	return &ScreenController[T]{
		def:      def,
		list:     list,
		validate: opts.Validator,
		logger:   opts.Logger.With(zap.String("screen", def.Key)),
	}
}

func (s *ScreenController[T]) Key() string              { return s.def.Key }
func (s *ScreenController[T]) Title() string            { return s.def.Title }
func (s *ScreenController[T]) ManagePermission() string { return s.def.ManagePermission }

func (s *ScreenController[T]) Mount(ctx context.Context) error { return s.list.Mount(ctx) }
func (s *ScreenController[T]) Unmount()                        { s.list.Unmount() }
func (s *ScreenController[T]) Mounted() bool                   { return s.list.Mounted() }

func (s *ScreenController[T]) SetSearch(term string) error { return s.list.SetSearch(term) }
func (s *ScreenController[T]) CommitSearch() error         { return s.list.CommitSearch() }
func (s *ScreenController[T]) SetPage(n int) error         { return s.list.SetPage(n) }
func (s *ScreenController[T]) Refresh() error              { return s.list.Refresh() }

// SetFilters rejects keys the screen does not filter on.
func (s *ScreenController[T]) SetFilters(filters map[string]string) error {
	bad := map[string]string{}
	for k := range filters {
		if !contains(s.def.Filters, k) {
			bad[k] = "is not a filter of this screen"
		}
	}
	if len(bad) > 0 {
		return appErrors.Validation("unknown filter", bad)
	}
	return s.list.SetFilters(filters)
}

// State returns the rendered screen.
func (s *ScreenController[T]) State() ScreenState {
	v := s.list.View()
	items := make([]any, len(v.Items))
	for i, it := range v.Items {
		items[i] = s.decorate(it)
	}
	cols := make([]string, len(s.def.Columns))
	for i, c := range s.def.Columns {
		cols[i] = c.Key
	}
	return ScreenState{
		View: listmanager.View[any]{
			Screen:      v.Screen,
			Status:      v.Status,
			Items:       items,
			Pagination:  v.Pagination,
			Query:       v.Query,
			DraftSearch: v.DraftSearch,
			Stale:       v.Stale,
			Error:       v.Error,
			Retryable:   v.Retryable,
		},
		Title:     s.def.Title,
		ReadOnly:  s.readOnly(),
		Filters:   s.def.Filters,
		Statuses:  s.def.Statuses,
		CanCreate: s.def.NewCreateDraft != nil,
		CanDelete: s.def.CanDelete,
		Columns:   cols,
	}
}

// Create validates the draft locally, then creates the record.
func (s *ScreenController[T]) Create(ctx context.Context, body []byte) (interface{}, error) {
	if s.def.NewCreateDraft == nil {
		return nil, s.readOnlyError("create")
	}
	draft, err := s.decodeDraft(s.def.NewCreateDraft, body)
	if err != nil {
		return nil, s.list.Reject(err)
	}
	rec, err := s.list.Create(ctx, func(ctx context.Context) (T, error) {
		return s.def.Resource.Create(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("record created", zap.String("id", rec.RecordID()))
	return s.decorate(rec), nil
}

// Update validates the draft locally, then updates the record in place.
func (s *ScreenController[T]) Update(ctx context.Context, id string, body []byte) (interface{}, error) {
	if s.def.NewUpdateDraft == nil {
		return nil, s.readOnlyError("update")
	}
	draft, err := s.decodeDraft(s.def.NewUpdateDraft, body)
	if err != nil {
		return nil, s.list.Reject(err)
	}
	rec, err := s.list.Update(ctx, id, func(ctx context.Context) (T, error) {
		return s.def.Resource.Update(ctx, id, draft)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("record updated", zap.String("id", id))
	return s.decorate(rec), nil
}

// Delete removes the record.
func (s *ScreenController[T]) Delete(ctx context.Context, id string) error {
	if !s.def.CanDelete {
		return s.readOnlyError("delete")
	}
	err := s.list.Delete(ctx, id, func(ctx context.Context) error {
		return s.def.Resource.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("record deleted", zap.String("id", id))
	return nil
}

// SetStatus changes the record's status and patches it in place.
func (s *ScreenController[T]) SetStatus(ctx context.Context, id string, body []byte) (interface{}, error) {
	if len(s.def.Statuses) == 0 {
		return nil, s.readOnlyError("status change")
	}
	var change models.StatusChange
	if _, err := s.decodeInto(&change, body); err != nil {
		return nil, s.list.Reject(err)
	}
	if !contains(s.def.Statuses, change.Status) {
		return nil, s.list.Reject(appErrors.Validation("invalid status", map[string]string{"status": "must be one of the screen's statuses"}))
	}
	if s.def.StatusGuard != nil {
		current, ok := s.find(id)
		if !ok {
			return nil, s.list.Reject(appErrors.Clone(appErrors.ErrNotFound, "record is not on the current page"))
		}
		if err := s.def.StatusGuard(current, change.Status); err != nil {
			return nil, s.list.Reject(err)
		}
	}
	rec, err := s.list.Update(ctx, id, func(ctx context.Context) (T, error) {
		return s.def.Resource.SetStatus(ctx, id, change)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("record status changed", zap.String("id", id), zap.String("status", change.Status))
	return s.decorate(rec), nil
}

// Dataset returns the visible rows in export form.
func (s *ScreenController[T]) Dataset() export.Dataset {
	items := s.list.Items()
	rows := make([]map[string]string, len(items))
	for i, it := range items {
		rows[i] = s.decorate(it).Row()
	}
	return export.Dataset{Title: s.def.Title, Columns: s.def.Columns, Rows: rows}
}

// Items returns the visible records after decoration.
func (s *ScreenController[T]) Items() []T {
	items := s.list.Items()
	for i := range items {
		items[i] = s.decorate(items[i])
	}
	return items
}

func (s *ScreenController[T]) find(id string) (T, bool) {
	for _, it := range s.list.Items() {
		if it.RecordID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (s *ScreenController[T]) decorate(rec T) T {
	if s.def.Decorate == nil {
		return rec
	}
	return s.def.Decorate(rec)
}

func (s *ScreenController[T]) readOnly() bool {
	return s.def.NewCreateDraft == nil && s.def.NewUpdateDraft == nil && !s.def.CanDelete && len(s.def.Statuses) == 0
}

func (s *ScreenController[T]) readOnlyError(op string) error {
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s does not support %s", s.def.Title, op))
}

func (s *ScreenController[T]) decodeDraft(newDraft func() interface{}, body []byte) (interface{}, error) {
	return s.decodeInto(newDraft(), body)
}

func (s *ScreenController[T]) decodeInto(draft interface{}, body []byte) (interface{}, error) {
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "request body is not valid JSON for this form")
	}
	if err := listmanager.ValidateDraft(s.validate, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
