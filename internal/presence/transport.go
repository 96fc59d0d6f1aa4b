package presence

import (
	"context"
	"errors"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// ErrClosed is returned by Receive once the transport has been closed.
var ErrClosed = errors.New("presence transport closed")

// Transport is one live connection to the presence push channel.
type Transport interface {
	Join(ctx context.Context, room string) error
	RequestSnapshot(ctx context.Context) error
	Receive(ctx context.Context) (models.PresenceEvent, error)
	Close() error
}

// Dialer opens a new Transport.
type Dialer func(ctx context.Context) (Transport, error)

// RoomFor returns the role-scoped room an operator joins.
func RoomFor(role models.UserRole) string {
	return "admins:" + string(role)
}
