package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/app"
)

func newServeCmd(load Loader) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				if port == 0 {
					port = a.Config.Port
				}
				a.StartBackground(ctx)

				srv := &http.Server{
					Addr:              fmt.Sprintf(":%d", port),
					Handler:           a.Router(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				errCh := make(chan error, 1)
				go func() {
					a.Logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.Config.Env)
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.Logger.Warn("server shutdown failed", zap.Error(err))
					return err
				}
				a.Logger.Info("server stopped")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (defaults to PORT)")
	return cmd
}
