package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-console/internal/middleware"
	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/response"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.SessionFromContext(c)
}

// fail writes err, pointing the client at the login screen when the backend
// ended the session.
func fail(c *gin.Context, err error) {
	if appErrors.IsUnauthorized(err) {
		response.Error(c, err, middleware.RedirectMeta())
		return
	}
	response.Error(c, err)
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable request body")
	}
	return body, nil
}
