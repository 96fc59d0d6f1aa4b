package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// TokenSource yields the bearer token sent when dialing.
type TokenSource interface {
	Token() string
}

type wsFrame struct {
	Type    string   `json:"type"`
	Room    string   `json:"room,omitempty"`
	UserID  string   `json:"user_id,omitempty"`
	UserIDs []string `json:"user_ids,omitempty"`
}

// Outgoing frame types.
const (
	frameJoin            = "join"
	frameSnapshotRequest = "snapshot_request"
)

type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
}

// WebSocketDialer dials the presence endpoint at url with the operator's token.
func WebSocketDialer(url string, tokens TokenSource) Dialer {
	return func(ctx context.Context) (Transport, error) {
		header := http.Header{}
		if tokens != nil {
			if tok := tokens.Token(); tok != "" {
				header.Set("Authorization", "Bearer "+tok)
			}
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		if err != nil {
			return nil, fmt.Errorf("dial presence websocket: %w", err)
		}
		return &wsTransport{conn: conn}, nil
	}
}

func (t *wsTransport) write(frame wsFrame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(frame)
}

func (t *wsTransport) Join(_ context.Context, room string) error {
	return t.write(wsFrame{Type: frameJoin, Room: room})
}

func (t *wsTransport) RequestSnapshot(_ context.Context) error {
	return t.write(wsFrame{Type: frameSnapshotRequest})
}

func (t *wsTransport) Receive(_ context.Context) (models.PresenceEvent, error) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return models.PresenceEvent{}, ErrClosed
			}
			return models.PresenceEvent{}, err
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch models.PresenceKind(frame.Type) {
		case models.PresenceSnapshot, models.PresenceConnected, models.PresenceDisconnected:
			return models.PresenceEvent{Kind: models.PresenceKind(frame.Type), UserID: frame.UserID, UserIDs: frame.UserIDs}, nil
		}
	}
}

func (t *wsTransport) Close() error {
	var err error
	t.once.Do(func() {
		t.writeMu.Lock()
		_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}
