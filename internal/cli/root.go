package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/app"
	"github.com/noah-isme/backoffice-console/pkg/config"
	"github.com/noah-isme/backoffice-console/pkg/logger"
)

// Loader builds the console for one command invocation.
type Loader func(ctx context.Context) (*app.App, error)

// DefaultLoader reads configuration from the environment and .env.
func DefaultLoader(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		_ = logr.Sync()
		return nil, err
	}
	return a, nil
}

// NewRootCmd builds the console command tree.
func NewRootCmd(version, buildDate string, load Loader) *cobra.Command {
	if load == nil {
		load = DefaultLoader
	}
	root := &cobra.Command{
		Use:           "console",
		Short:         "Marketplace back-office console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newServeCmd(load))
	root.AddCommand(newAuthCmds(load)...)
	root.AddCommand(newListCmd(load))
	root.AddCommand(newExportCmd(load))
	return root
}

// withApp loads the console, restores the persisted session and closes
// everything once fn returns.
func withApp(cmd *cobra.Command, load Loader, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := load(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.Logger.Sync() //nolint:errcheck

	if err := a.Session.Init(ctx); err != nil {
		a.Logger.Debug("session restore failed", zap.Error(err))
	}
	return fn(ctx, a)
}
