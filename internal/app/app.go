// Package app assembles the console from configuration. The HTTP server and
// every CLI command share one App per process.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/backoffice-console/api/swagger"
	"github.com/noah-isme/backoffice-console/internal/apiclient"
	"github.com/noah-isme/backoffice-console/internal/handler"
	"github.com/noah-isme/backoffice-console/internal/listmanager"
	"github.com/noah-isme/backoffice-console/internal/middleware"
	"github.com/noah-isme/backoffice-console/internal/navigation"
	"github.com/noah-isme/backoffice-console/internal/presence"
	"github.com/noah-isme/backoffice-console/internal/service"
	"github.com/noah-isme/backoffice-console/internal/session"
	"github.com/noah-isme/backoffice-console/pkg/cache"
	"github.com/noah-isme/backoffice-console/pkg/config"
	"github.com/noah-isme/backoffice-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/backoffice-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/backoffice-console/pkg/middleware/requestid"
	"github.com/noah-isme/backoffice-console/pkg/storage"
)

// App holds the wired console.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Client    *apiclient.Client
	Session   *session.Store
	Location  *navigation.Location
	Presence  *presence.Overlay
	Workspace *service.Workspace
	Exports   *service.ExportService

	redis  *redis.Client
	cancel context.CancelFunc
}

// New wires every component. ctx bounds the lifetime of open screens and the
// presence channel.
func New(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	if logr == nil {
		logr = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	a := &App{Config: cfg, Logger: logr, cancel: cancel}

	if cfg.Session.TokenStore == config.TokenStoreRedis || cfg.Presence.Transport == config.PresenceRedis {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
	}

	a.Metrics = service.NewMetricsService()
	a.Location = navigation.NewLocation()

	a.Client = apiclient.New(apiclient.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: cfg.Backend.UserAgent,
	}, apiclient.WithObserver(a.Metrics), apiclient.WithLogger(logr))

	var tokens session.TokenStore = session.NewFileTokenStore(cfg.Session.TokenFile)
	if cfg.Session.TokenStore == config.TokenStoreRedis {
		tokens = session.NewRedisTokenStore(a.redis, cfg.Session.TokenKey)
	}
	validate := listmanager.NewValidator()
	a.Session = session.NewStore(apiclient.NewAuth(a.Client), tokens, a.Location, validate, logr.Named("session"))
	a.Client.SetTokenSource(a.Session)
	a.Client.OnUnauthorized(a.Session.HandleUnauthorized)

	if dial := a.presenceDialer(); dial != nil {
		channel := presence.NewChannel(dial,
			presence.WithReconnectDelay(cfg.Presence.ReconnectDelay),
			presence.WithLogger(logr.Named("presence")),
		)
		a.Presence = presence.NewOverlay(channel, a.Metrics, logr.Named("presence"))
	}

	opts := service.ScreenOptions{
		PageSize:  cfg.Screens.PageSize,
		Debounce:  cfg.Screens.SearchDebounce,
		Validator: validate,
		Metrics:   a.Metrics,
		Logger:    logr,
	}
	// A nil *Overlay must not reach the users screen as a non-nil interface.
	var users *service.UsersScreen
	if a.Presence != nil {
		users = service.NewUsersScreen(a.Client, a.Presence, a.room, opts)
	} else {
		users = service.NewUsersScreen(a.Client, nil, a.room, opts)
	}
	a.Workspace = service.NewWorkspace(ctx, logr.Named("workspace"),
		service.NewScreenController(service.ProductsDefinition(a.Client), opts),
		users,
		service.NewScreenController(service.ReferralCodesDefinition(a.Client), opts),
		service.NewScreenController(service.WithdrawalsDefinition(a.Client), opts),
		service.NewScreenController(service.AuditLogsDefinition(a.Client), opts),
		service.NewScreenController(service.AdminsDefinition(a.Client), opts),
	)
	a.Session.OnEnd(a.Workspace.CloseAll)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	a.Exports = service.NewExportService(store, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr.Named("exports"))

	return a, nil
}

func (a *App) presenceDialer() presence.Dialer {
	switch a.Config.Presence.Transport {
	case config.PresenceWebSocket:
		if a.Config.Presence.URL == "" {
			return nil
		}
		return presence.WebSocketDialer(a.Config.Presence.URL, a.Session)
	case config.PresenceRedis:
		return presence.RedisDialer(a.redis)
	default:
		return nil
	}
}

// room is the presence channel for the operator's role.
func (a *App) room() string {
	sess := a.Session.Current()
	if sess == nil {
		return ""
	}
	return presence.RoomFor(sess.Role)
}

// Router builds the gin engine serving the console API.
func (a *App) Router() *gin.Engine {
	if a.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(a.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics))

	checks := map[string]handler.ReadinessCheck{}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	metrics := handler.NewMetricsHandler(a.Metrics, checks)
	r.GET("/health", metrics.Health)
	r.GET("/ready", metrics.Ready)
	r.GET("/metrics", metrics.Prometheus)

	if a.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Session: handler.NewSessionHandler(a.Session),
		Screens: handler.NewScreenHandler(a.Workspace, a.Session),
		Exports: handler.NewExportHandler(a.Workspace, a.Exports),
		Metrics: metrics,
		Gate:    a.Session,
		Audit:   a.Logger.Named("audit"),
	}.Register(r.Group(a.Config.APIPrefix))
	return r
}

// StartBackground runs the export workers and the periodic export cleanup.
func (a *App) StartBackground(ctx context.Context) {
	a.Exports.Start(ctx)
	go a.Exports.RunCleanup(ctx, time.Minute)
}

// Close unmounts every screen and releases connections.
func (a *App) Close() {
	if a.Workspace != nil {
		a.Workspace.CloseAll()
	}
	if a.Exports != nil {
		a.Exports.Stop()
	}
	a.cancel()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
