package service

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/apiclient"
	"github.com/noah-isme/backoffice-console/internal/models"
	"github.com/noah-isme/backoffice-console/internal/navigation"
	"github.com/noah-isme/backoffice-console/internal/permission"
	"github.com/noah-isme/backoffice-console/pkg/export"
)

type presenceOverlay interface {
	Mount(ctx context.Context, room string)
	Unmount()
	Online(id string) bool
}

type messageSender interface {
	SendMessage(ctx context.Context, msg models.Message) (*models.MessageReceipt, error)
}

// UsersScreen is the users list with the online indicator, credit
// adjustments and direct messages.
type UsersScreen struct {
	*ScreenController[models.User]
	resource *apiclient.Resource[models.User]
	overlay  presenceOverlay
	room     func() string
	messages messageSender
	logger   *zap.Logger
}

// NewUsersScreen builds the users screen. overlay may be nil when presence is
// disabled; room yields the channel for the current operator.
func NewUsersScreen(c *apiclient.Client, overlay presenceOverlay, room func() string, opts ScreenOptions) *UsersScreen {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	resource := apiclient.NewResource[models.User](c, "/users")
	screen := &UsersScreen{
		resource: resource,
		overlay:  overlay,
		room:     room,
		messages: c,
		logger:   opts.Logger.With(zap.String("screen", navigation.Users)),
	}
	screen.ScreenController = NewScreenController(Definition[models.User]{
		Key:              navigation.Users,
		Title:            "Users",
		ManagePermission: permission.UsersManage,
		Resource:         resource,
		NewCreateDraft:   func() interface{} { return &models.UserDraft{} },
		NewUpdateDraft:   func() interface{} { return &models.UserDraft{} },
		CanDelete:        true,
		Statuses:         []string{models.UserStatusActive, models.UserStatusSuspended, models.UserStatusBanned},
		Filters:          []string{"status", "role"},
		Defaults:         map[string]string{"role": string(models.RoleClient)},
		Columns: []export.Column{
			{Key: "name", Label: "Name"},
			{Key: "phone", Label: "Phone"},
			{Key: "email", Label: "Email"},
			{Key: "status", Label: "Status"},
			{Key: "credits", Label: "Credits"},
			{Key: "online", Label: "Online"},
			{Key: "created_at", Label: "Joined"},
		},
		Decorate: func(u models.User) models.User {
			u.Online = screen.Online(u.ID)
			return u
		},
	}, opts)
	return screen
}

// Mount joins the presence room before loading the first page.
func (s *UsersScreen) Mount(ctx context.Context) error {
	if s.overlay != nil && !s.Mounted() {
		room := ""
		if s.room != nil {
			room = s.room()
		}
		if room != "" {
			s.overlay.Mount(ctx, room)
		}
	}
	return s.ScreenController.Mount(ctx)
}

// Unmount leaves the presence room and closes the list.
func (s *UsersScreen) Unmount() {
	s.ScreenController.Unmount()
	if s.overlay != nil {
		s.overlay.Unmount()
	}
}

// Online reports the presence indicator for one user.
func (s *UsersScreen) Online(id string) bool {
	return s.overlay != nil && s.overlay.Online(id)
}

// AdjustCredits adds or subtracts credits and patches the user in place.
func (s *UsersScreen) AdjustCredits(ctx context.Context, id string, body []byte) (interface{}, error) {
	var adj models.CreditAdjustment
	if _, err := s.decodeInto(&adj, body); err != nil {
		return nil, s.list.Reject(err)
	}
	rec, err := s.list.Update(ctx, id, func(ctx context.Context) (models.User, error) {
		return s.resource.Action(ctx, http.MethodPost, id, "credits", adj)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("credits adjusted", zap.String("id", id), zap.String("operation", adj.Operation), zap.Float64("amount", adj.Amount))
	return s.decorate(rec), nil
}

// SendMessage delivers a message in real time when the user is online and as
// a notification otherwise.
func (s *UsersScreen) SendMessage(ctx context.Context, id string, body []byte) (*models.MessageReceipt, error) {
	var msg models.Message
	if _, err := s.decodeInto(&msg, body); err != nil {
		return nil, s.list.Reject(err)
	}
	msg.UserID = id
	msg.Delivery = models.DeliveryNotification
	if s.Online(id) {
		msg.Delivery = models.DeliveryRealtime
	}
	receipt, err := s.messages.SendMessage(ctx, msg)
	if err != nil {
		s.logger.Warn("message send failed", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("message sent", zap.String("user_id", id), zap.String("delivery", receipt.Delivery))
	return receipt, nil
}
