package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/middleware"
	"github.com/noah-isme/backoffice-console/internal/permission"
)

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Session *SessionHandler
	Screens *ScreenHandler
	Exports *ExportHandler
	Metrics *MetricsHandler
	Gate    middleware.SessionSource
	Audit   *zap.Logger
}

// Register mounts the console API on api.
func (r Routes) Register(api gin.IRouter) {
	api.POST("/session/login", r.Session.Login)
	api.POST("/session/logout", r.Session.Logout)
	api.GET("/session", r.Session.State)
	api.GET("/downloads/:token", r.Exports.Download)

	secured := api.Group("", middleware.Session(r.Gate), middleware.Audit(r.Audit))
	secured.GET("/menu", r.Session.Menu)
	secured.GET("/status", r.Metrics.Status)
	secured.GET("/exports/:id", r.Exports.Job)

	screens := secured.Group("/screens/:"+middleware.ScreenParam, middleware.RequireScreen())
	screens.POST("/open", r.Screens.Open)
	screens.GET("", r.Screens.Get)
	screens.PUT("/query", r.Screens.Query)
	screens.POST("/refresh", r.Screens.Refresh)
	screens.POST("/export", r.Exports.Submit)
	screens.POST("/records", r.Screens.Create)
	screens.PUT("/records/:id", r.Screens.Update)
	screens.DELETE("/records/:id", r.Screens.Delete)
	screens.PATCH("/records/:id/status", r.Screens.SetStatus)
	screens.POST("/records/:id/credits", middleware.RequirePermission(permission.UsersCredits), r.Screens.AdjustCredits)
	screens.POST("/records/:id/messages", middleware.RequirePermission(permission.UsersMessage), r.Screens.SendMessage)
}
