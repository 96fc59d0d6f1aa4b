package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-console/internal/navigation"
	"github.com/noah-isme/backoffice-console/internal/permission"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/response"
)

// ScreenParam is the route parameter naming the screen.
const ScreenParam = "screen"

// RequireScreen hides screens the operator's menu does not show. The backend
// still enforces every permission on its side.
func RequireScreen() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param(ScreenParam)
		if _, ok := navigation.Lookup(key); !ok {
			response.Abort(c, appErrors.ErrUnknownScreen)
			return
		}
		if !navigation.Allowed(SessionFromContext(c), key) {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "screen not available for your role"))
			return
		}
		c.Next()
	}
}

// RequirePermission blocks the route unless the operator holds p.
func RequirePermission(p string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !permission.HasPermission(SessionFromContext(c), p) {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+p))
			return
		}
		c.Next()
	}
}
