package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-console/internal/models"
	"github.com/noah-isme/backoffice-console/internal/navigation"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/logger"
	"github.com/noah-isme/backoffice-console/pkg/response"
)

// ContextSessionKey is the gin context key storing the operator session.
const ContextSessionKey = "currentSession"

// SessionSource yields the operator session, nil when logged out.
type SessionSource interface {
	Current() *models.Session
}

// RedirectMeta tells the client where to send a logged-out operator.
func RedirectMeta() map[string]interface{} {
	return map[string]interface{}{"redirect": navigation.LoginPath}
}

// Session protects routes by requiring an authenticated operator.
func Session(src SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := src.Current()
		if sess == nil {
			response.Abort(c, appErrors.ErrNoSession, RedirectMeta())
			return
		}
		c.Set(ContextSessionKey, sess)
		c.Set(logger.OperatorKey, sess.UserID)
		c.Next()
	}
}

// SessionFromContext returns the session stored by Session.
func SessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	sess, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return sess
}
