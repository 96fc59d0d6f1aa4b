package apiclient

import (
	"context"
	"net/http"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// SendMessage delivers a message or notification to one user.
func (c *Client) SendMessage(ctx context.Context, msg models.Message) (*models.MessageReceipt, error) {
	var out models.MessageReceipt
	if _, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/messages", Body: msg}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
