package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-console/internal/middleware"
	"github.com/noah-isme/backoffice-console/internal/models"
	"github.com/noah-isme/backoffice-console/internal/navigation"
	"github.com/noah-isme/backoffice-console/internal/permission"
	"github.com/noah-isme/backoffice-console/internal/service"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/response"
)

type workspace interface {
	Open(key string) (service.Screen, error)
	Active(key string) (service.Screen, error)
}

type userActions interface {
	AdjustCredits(ctx context.Context, id string, body []byte) (interface{}, error)
	SendMessage(ctx context.Context, id string, body []byte) (*models.MessageReceipt, error)
}

// ScreenHandler exposes the list screens over HTTP.
type ScreenHandler struct {
	workspace workspace
	sessions  middleware.SessionSource
}

// NewScreenHandler creates a new handler. sessions detects a session that
// ended while the request was in flight.
func NewScreenHandler(ws workspace, sessions middleware.SessionSource) *ScreenHandler {
	return &ScreenHandler{workspace: ws, sessions: sessions}
}

// queryRequest changes what the open screen shows. Absent fields are left as they are.
type queryRequest struct {
	Search  *string           `json:"search"`
	Commit  bool              `json:"commit"`
	Page    *int              `json:"page"`
	Filters map[string]string `json:"filters"`
}

// Open godoc
// @Summary Open a screen
// @Description Close the current screen and load the first page of this one
// @Tags Screens
// @Produce json
// @Param screen path string true "Screen key"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /screens/{screen}/open [post]
func (h *ScreenHandler) Open(c *gin.Context) {
	screen, err := h.workspace.Open(c.Param(middleware.ScreenParam))
	if screen == nil {
		fail(c, err)
		return
	}
	h.state(c, screen, err)
}

// Get godoc
// @Summary Screen state
// @Tags Screens
// @Produce json
// @Param screen path string true "Screen key"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /screens/{screen} [get]
func (h *ScreenHandler) Get(c *gin.Context) {
	screen, ok := h.active(c)
	if !ok {
		return
	}
	h.state(c, screen, nil)
}

// Query godoc
// @Summary Change search, filters or page
// @Description Filters apply first and reset to page 1. A search without commit is debounced.
// @Tags Screens
// @Accept json
// @Produce json
// @Param screen path string true "Screen key"
// @Param payload body queryRequest true "Query change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /screens/{screen}/query [put]
func (h *ScreenHandler) Query(c *gin.Context) {
	screen, ok := h.active(c)
	if !ok {
		return
	}
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query payload"))
		return
	}
	if req.Page != nil && *req.Page < 1 {
		response.Error(c, appErrors.Validation("invalid page", map[string]string{"page": "must be at least 1"}))
		return
	}

	var err error
	if len(req.Filters) > 0 {
		err = screen.SetFilters(req.Filters)
	}
	if err == nil && req.Search != nil {
		err = screen.SetSearch(*req.Search)
		if err == nil && req.Commit {
			err = screen.CommitSearch()
		}
	}
	if err == nil && req.Page != nil {
		err = screen.SetPage(*req.Page)
	}
	h.state(c, screen, err)
}

// Refresh godoc
// @Summary Reload the current page
// @Description Also serves as the retry action after a failed load
// @Tags Screens
// @Produce json
// @Param screen path string true "Screen key"
// @Success 200 {object} response.Envelope
// @Router /screens/{screen}/refresh [post]
func (h *ScreenHandler) Refresh(c *gin.Context) {
	screen, ok := h.active(c)
	if !ok {
		return
	}
	h.state(c, screen, screen.Refresh())
}

// Create godoc
// @Summary Create a record
// @Tags Records
// @Accept json
// @Produce json
// @Param screen path string true "Screen key"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /screens/{screen}/records [post]
func (h *ScreenHandler) Create(c *gin.Context) {
	screen, ok := h.managed(c)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rec, err := screen.Create(c.Request.Context(), body)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, rec)
}

// Update godoc
// @Summary Update a record
// @Tags Records
// @Accept json
// @Produce json
// @Param screen path string true "Screen key"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /screens/{screen}/records/{id} [put]
func (h *ScreenHandler) Update(c *gin.Context) {
	screen, ok := h.managed(c)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rec, err := screen.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// Delete godoc
// @Summary Delete a record
// @Tags Records
// @Param screen path string true "Screen key"
// @Param id path string true "Record ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /screens/{screen}/records/{id} [delete]
func (h *ScreenHandler) Delete(c *gin.Context) {
	screen, ok := h.managed(c)
	if !ok {
		return
	}
	if err := screen.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}

// SetStatus godoc
// @Summary Change a record's status
// @Tags Records
// @Accept json
// @Produce json
// @Param screen path string true "Screen key"
// @Param id path string true "Record ID"
// @Param payload body models.StatusChange true "Status change"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /screens/{screen}/records/{id}/status [patch]
func (h *ScreenHandler) SetStatus(c *gin.Context) {
	screen, ok := h.managed(c)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rec, err := screen.SetStatus(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// AdjustCredits godoc
// @Summary Adjust a user's credits
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.CreditAdjustment true "Adjustment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /screens/users/records/{id}/credits [post]
func (h *ScreenHandler) AdjustCredits(c *gin.Context) {
	users, ok := h.users(c)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rec, err := users.AdjustCredits(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec, nil)
}

// SendMessage godoc
// @Summary Message a user
// @Description Delivered in real time when the user is online, as a notification otherwise
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.Message true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /screens/users/records/{id}/messages [post]
func (h *ScreenHandler) SendMessage(c *gin.Context) {
	users, ok := h.users(c)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := users.SendMessage(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, receipt)
}

func (h *ScreenHandler) active(c *gin.Context) (service.Screen, bool) {
	screen, err := h.workspace.Active(c.Param(middleware.ScreenParam))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return screen, true
}

func (h *ScreenHandler) managed(c *gin.Context) (service.Screen, bool) {
	screen, ok := h.active(c)
	if !ok {
		return nil, false
	}
	if p := screen.ManagePermission(); p != "" && !permission.HasPermission(sessionFromContext(c), p) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+p))
		return nil, false
	}
	return screen, true
}

func (h *ScreenHandler) users(c *gin.Context) (userActions, bool) {
	if c.Param(middleware.ScreenParam) != navigation.Users {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "action only exists on the users screen"))
		return nil, false
	}
	screen, ok := h.active(c)
	if !ok {
		return nil, false
	}
	users, ok := screen.(userActions)
	if !ok {
		response.Error(c, appErrors.ErrInternal)
		return nil, false
	}
	return users, true
}

// state renders the screen. Load failures live inside the state, so only
// errors that never reached the list become HTTP errors.
func (h *ScreenHandler) state(c *gin.Context, screen service.Screen, err error) {
	if err != nil && !loadOutcome(err) {
		fail(c, err)
		return
	}
	if h.sessions != nil && h.sessions.Current() == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session expired, please log in again"), middleware.RedirectMeta())
		return
	}
	st := screen.State()
	pagination := st.Pagination
	response.JSON(c, http.StatusOK, st, &pagination)
}

func loadOutcome(err error) bool {
	switch appErrors.FromError(err).Code {
	case appErrors.ErrValidation.Code, appErrors.ErrNotMounted.Code, appErrors.ErrUnknownScreen.Code, appErrors.ErrUnauthorized.Code:
		return false
	}
	return true
}
