package listmanager

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

// Status is the state a list screen is in.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusLoaded      Status = "loaded"
	StatusLoadError   Status = "load_error"
	StatusSubmitting  Status = "submitting"
	StatusSubmitError Status = "submit_error"
)

// Defaults used when Options leave a value unset.
const (
	DefaultPageSize = 10
	DefaultDebounce = 500 * time.Millisecond
)

var errSuperseded = appErrors.Clone(appErrors.ErrCancelled, "superseded by a newer request")

// Fetcher loads one page for a query.
type Fetcher[T any] func(ctx context.Context, q models.ListQuery) (models.Page[T], error)

// StaleObserver counts list responses dropped because a newer fetch was issued.
type StaleObserver interface {
	RecordStaleDiscard(screen string)
}

// Options configures a Manager.
type Options struct {
	PageSize int
	Debounce time.Duration
	Filters  map[string]string
	Logger   *zap.Logger
	Observer StaleObserver
}

// View is a point-in-time copy of a screen's list state.
type View[T any] struct {
	Screen      string            `json:"screen"`
	Status      Status            `json:"status"`
	Items       []T               `json:"items"`
	Pagination  models.Pagination `json:"pagination"`
	Query       models.ListQuery  `json:"query"`
	DraftSearch string            `json:"draft_search"`
	Stale       bool              `json:"stale"`
	Error       *appErrors.Error  `json:"error,omitempty"`
	Retryable   bool              `json:"retryable"`
}

// Manager drives one list screen: it loads pages, debounces search, applies
// mutation results locally and discards responses that are no longer current.
type Manager[T models.Record] struct {
	name     string
	fetch    Fetcher[T]
	pageSize int
	debounce time.Duration
	filters  map[string]string
	logger   *zap.Logger
	observer StaleObserver

	mu           sync.Mutex
	mounted      bool
	mountSeq     uint64
	lifetime     context.Context
	stop         context.CancelFunc
	gen          uint64
	cancelFetch  context.CancelFunc
	query        models.ListQuery
	draft        string
	timer        *time.Timer
	debounceSeq  uint64
	page         models.Page[T]
	loadedOnce   bool
	fetchStatus  Status
	loadErr      *appErrors.Error
	submitting   bool
	submitStatus Status
	submitErr    *appErrors.Error
}

// New builds a manager for the screen called name.
func New[T models.Record](name string, fetch Fetcher[T], opts Options) *Manager[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Manager[T]{
		name:     name,
		fetch:    fetch,
		pageSize: opts.PageSize,
		debounce: opts.Debounce,
		filters:  opts.Filters,
		logger:   opts.Logger.With(zap.String("screen", name)),
		observer: opts.Observer,
	}
	m.reset()
	return m
}

func (m *Manager[T]) reset() {
	m.query = models.ListQuery{Page: 1, PageSize: m.pageSize, Filters: map[string]string{}}
	for k, v := range m.filters {
		m.query.Filters[k] = v
	}
	m.draft = ""
	m.page = models.Page[T]{Items: []T{}, Page: 1, PageSize: m.pageSize, TotalPages: 1}
	m.loadedOnce = false
	m.fetchStatus = StatusIdle
	m.loadErr = nil
	m.submitting = false
	m.submitStatus = ""
	m.submitErr = nil
}

// Name returns the screen name.
func (m *Manager[T]) Name() string { return m.name }

// Mounted reports whether the screen is open.
func (m *Manager[T]) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Mount opens the screen with a fresh state and loads the first page. The
// screen lives until Unmount or until parent is done.
func (m *Manager[T]) Mount(parent context.Context) error {
	m.mu.Lock()
	if m.mounted {
		m.mu.Unlock()
		return nil
	}
	m.lifetime, m.stop = context.WithCancel(parent)
	m.mounted = true
	m.mountSeq++
	m.reset()
	m.mu.Unlock()

	return m.reload(nil)
}

// Unmount closes the screen. In-flight requests and a pending search are
// cancelled and any late response is dropped.
func (m *Manager[T]) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return
	}
	m.mounted = false
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	m.stop()
	m.submitting = false
}

// View returns the current state.
func (m *Manager[T]) View() View[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]T, len(m.page.Items))
	copy(items, m.page.Items)
	v := View[T]{
		Screen: m.name,
		Status: m.fetchStatus,
		Items:  items,
		Pagination: models.Pagination{
			Page:       m.page.Page,
			PageSize:   m.page.PageSize,
			TotalCount: m.page.TotalCount,
			TotalPages: m.page.TotalPages,
		},
		Query:       m.query.Clone(),
		DraftSearch: m.draft,
		Error:       m.loadErr,
	}
	if m.fetchStatus == StatusLoadError {
		v.Stale = m.loadedOnce
	}
	if m.submitStatus != "" {
		v.Status = m.submitStatus
		v.Error = m.submitErr
	}
	v.Retryable = v.Error != nil && appErrors.Retryable(v.Error)
	return v
}

// Items returns the rows currently displayed.
func (m *Manager[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.page.Items))
	copy(out, m.page.Items)
	return out
}

// SetSearch records the search draft immediately and commits it once the
// operator has stopped typing for the debounce period.
func (m *Manager[T]) SetSearch(term string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return appErrors.ErrNotMounted
	}
	m.draft = term
	if m.timer != nil {
		m.timer.Stop()
	}
	m.debounceSeq++
	seq := m.debounceSeq
	m.timer = time.AfterFunc(m.debounce, func() { m.commitSearch(seq, term) })
	return nil
}

// CommitSearch applies the draft search right away.
func (m *Manager[T]) CommitSearch() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.debounceSeq++
	term := m.draft
	m.mu.Unlock()
	return m.reload(func(q *models.ListQuery) bool {
		q.Search = term
		q.Page = 1
		return true
	})
}

func (m *Manager[T]) commitSearch(seq uint64, term string) {
	m.mu.Lock()
	if seq != m.debounceSeq || !m.mounted {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	err := m.reload(func(q *models.ListQuery) bool {
		if q.Search == term {
			return false
		}
		q.Search = term
		q.Page = 1
		return true
	})
	if err != nil && !appErrors.IsCancelled(err) {
		m.logger.Debug("debounced search failed", zap.Error(err))
	}
}

// SetFilter changes one filter and reloads from page 1. An empty value clears it.
func (m *Manager[T]) SetFilter(key, value string) error {
	return m.SetFilters(map[string]string{key: value})
}

// SetFilters changes several filters at once and reloads from page 1.
func (m *Manager[T]) SetFilters(filters map[string]string) error {
	return m.reload(func(q *models.ListQuery) bool {
		for k, v := range filters {
			if v == "" {
				delete(q.Filters, k)
				continue
			}
			q.Filters[k] = v
		}
		q.Page = 1
		return true
	})
}

// SetPage loads page n.
func (m *Manager[T]) SetPage(n int) error {
	if n < 1 {
		return appErrors.Validation("invalid page", map[string]string{"page": "must be at least 1"})
	}
	return m.reload(func(q *models.ListQuery) bool {
		q.Page = n
		return true
	})
}

// Refresh reloads the current query. It is also the retry action after a
// failed load.
func (m *Manager[T]) Refresh() error {
	return m.reload(nil)
}

// reload applies mutate to the query and fetches it. mutate may return false
// to leave the query and the current page as they are.
func (m *Manager[T]) reload(mutate func(*models.ListQuery) bool) error {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return appErrors.ErrNotMounted
	}
	if mutate != nil && !mutate(&m.query) {
		m.mu.Unlock()
		return nil
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(m.lifetime)
	m.cancelFetch = cancel
	m.fetchStatus = StatusLoading
	m.submitStatus = ""
	m.submitErr = nil
	q := m.query.Clone()
	m.mu.Unlock()
	defer cancel()

	page, err := m.fetch(ctx, q)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || !m.mounted {
		m.logger.Debug("discarding stale list response", zap.Uint64("generation", gen), zap.Uint64("current", m.gen))
		if m.observer != nil {
			m.observer.RecordStaleDiscard(m.name)
		}
		return errSuperseded
	}
	m.cancelFetch = nil

	if err != nil {
		appErr := appErrors.FromError(err)
		m.fetchStatus = StatusLoadError
		m.loadErr = appErr
		m.logFailure("list load failed", appErr)
		return appErr
	}

	if page.Items == nil {
		page.Items = []T{}
	}
	m.page = page
	m.query.Page = page.Page
	m.loadedOnce = true
	m.fetchStatus = StatusLoaded
	m.loadErr = nil
	return nil
}

// Create submits a new record. On page 1 the result is prepended locally;
// otherwise the screen moves to page 1.
func (m *Manager[T]) Create(ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	var zero T
	ticket, callCtx, release, err := m.beginSubmit(ctx)
	if err != nil {
		return zero, err
	}
	defer release()

	created, err := call(callCtx)
	needsPageOne, err := m.endSubmit(ticket, err, func() bool {
		if m.query.Page != 1 {
			return true
		}
		m.page.Items = append([]T{created}, m.page.Items...)
		m.page.TotalCount++
		m.page.TotalPages = totalPages(m.page.TotalCount, m.page.PageSize)
		return false
	})
	if err != nil {
		return zero, err
	}
	if needsPageOne {
		if lerr := m.SetPage(1); lerr != nil && !appErrors.IsCancelled(lerr) {
			m.logger.Warn("reload after create failed", zap.Error(lerr))
		}
	}
	return created, nil
}

// Update submits a change to one record and swaps the returned record into
// the page in place.
func (m *Manager[T]) Update(ctx context.Context, id string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	ticket, callCtx, release, err := m.beginSubmit(ctx)
	if err != nil {
		return zero, err
	}
	defer release()

	updated, err := call(callCtx)
	if _, err = m.endSubmit(ticket, err, func() bool {
		for i := range m.page.Items {
			if m.page.Items[i].RecordID() == id {
				m.page.Items[i] = updated
				break
			}
		}
		return false
	}); err != nil {
		return zero, err
	}
	return updated, nil
}

// Delete removes one record and drops it from the page without reloading.
func (m *Manager[T]) Delete(ctx context.Context, id string, call func(context.Context) error) error {
	ticket, callCtx, release, err := m.beginSubmit(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = call(callCtx)
	_, err = m.endSubmit(ticket, err, func() bool {
		for i := range m.page.Items {
			if m.page.Items[i].RecordID() == id {
				m.page.Items = append(m.page.Items[:i:i], m.page.Items[i+1:]...)
				if m.page.TotalCount > 0 {
					m.page.TotalCount--
				}
				m.page.TotalPages = totalPages(m.page.TotalCount, m.page.PageSize)
				break
			}
		}
		return false
	})
	return err
}

// Reject records a submit failure that never reached the backend, such as a
// draft failing local validation.
func (m *Manager[T]) Reject(err error) error {
	appErr := appErrors.FromError(err)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting {
		return appErrors.ErrBusy
	}
	m.submitStatus = StatusSubmitError
	m.submitErr = appErr
	return appErr
}

// submitTicket identifies the mount and query generation a mutation started under.
type submitTicket struct {
	mount uint64
	gen   uint64
}

func (m *Manager[T]) beginSubmit(ctx context.Context) (submitTicket, context.Context, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return submitTicket{}, nil, nil, appErrors.ErrNotMounted
	}
	if m.submitting {
		return submitTicket{}, nil, nil, appErrors.ErrBusy
	}
	m.submitting = true
	m.submitStatus = StatusSubmitting
	m.submitErr = nil

	callCtx, cancel := context.WithCancel(m.lifetime)
	stop := context.AfterFunc(ctx, cancel)
	return submitTicket{mount: m.mountSeq, gen: m.gen}, callCtx, func() {
		stop()
		cancel()
	}, nil
}

// endSubmit records the outcome of a mutation. apply runs under the lock only
// when the call succeeded and the page still shows the query it was issued
// against. A mutation that outlived its mount leaves the current state alone.
func (m *Manager[T]) endSubmit(t submitTicket, err error, apply func() bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted || t.mount != m.mountSeq {
		if err != nil {
			return false, appErrors.FromError(err)
		}
		return false, nil
	}
	m.submitting = false

	if err != nil {
		appErr := appErrors.FromError(err)
		m.submitStatus = StatusSubmitError
		m.submitErr = appErr
		m.logFailure("submit failed", appErr)
		return false, appErr
	}

	if m.submitStatus == StatusSubmitting {
		m.submitStatus = ""
	}
	if t.gen != m.gen {
		m.logger.Debug("query changed during submit, skipping local patch", zap.Uint64("generation", t.gen), zap.Uint64("current", m.gen))
		return false, nil
	}
	return apply(), nil
}

func (m *Manager[T]) logFailure(msg string, err *appErrors.Error) {
	fields := []zap.Field{zap.String("code", err.Code), zap.Error(err)}
	switch {
	case err.Code == appErrors.ErrCancelled.Code, err.Code == appErrors.ErrValidation.Code:
		m.logger.Debug(msg, fields...)
	case err.Code == appErrors.ErrInternal.Code:
		m.logger.Error(msg, fields...)
	default:
		m.logger.Warn(msg, fields...)
	}
}

func totalPages(count, size int) int {
	if size <= 0 || count <= size {
		return 1
	}
	return (count + size - 1) / size
}
