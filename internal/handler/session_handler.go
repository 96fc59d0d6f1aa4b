package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-console/internal/middleware"
	"github.com/noah-isme/backoffice-console/internal/models"
	"github.com/noah-isme/backoffice-console/internal/navigation"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/response"
)

type sessionStore interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.Session, error)
	Logout(ctx context.Context)
	State() models.SessionState
}

// SessionHandler wires HTTP endpoints to the operator session.
type SessionHandler struct {
	store sessionStore
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(store sessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// Login godoc
// @Summary Log in as an administrator
// @Description Authenticate the operator by phone and password. Client accounts are rejected.
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	sess, err := h.store.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sess, nil, map[string]interface{}{"redirect": landingPath(sess)})
}

// Logout godoc
// @Summary Log out
// @Description End the session and forget the persisted token
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	h.store.Logout(c.Request.Context())
	response.JSON(c, http.StatusOK, h.store.State(), nil, middleware.RedirectMeta())
}

// State godoc
// @Summary Session state
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) State(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.store.State(), nil)
}

// Menu godoc
// @Summary Visible menu
// @Description Menu entries the operator's role and permissions allow
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /menu [get]
func (h *SessionHandler) Menu(c *gin.Context) {
	response.JSON(c, http.StatusOK, navigation.Visible(sessionFromContext(c)), nil)
}

func landingPath(sess *models.Session) string {
	if items := navigation.Visible(sess); len(items) > 0 {
		return items[0].Path
	}
	return "/"
}
