package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/api"
	"github.com/balkashynov/smgantt/internal/schedule"
)

var noRollover bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily rollover",
	Long: `Serve the schedule API on server.addr. Unless rollover is disabled, the daily
rollover also runs at rollover.time in rollover.timezone.`,
	Args: cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		serving = true
	},
	Run: withEngine(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           api.NewRouter(a.engine, a.cfg.Server, a.log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		var wg conc.WaitGroup
		if a.cfg.Rollover.Enabled && !noRollover {
			scheduler := schedule.NewRolloverScheduler(schedule.NewRolloverProcessor(a.engine, a.cfg.Rollover), a.log)
			wg.Go(func() {
				if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.Error("Rollover scheduler stopped", zap.Error(err))
				}
			})
		}

		serveErr := make(chan error, 1)
		wg.Go(func() {
			a.log.Info("API listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		})

		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				stop()
				wg.Wait()
				return fmt.Errorf("server failed: %w", err)
			}
		}

		a.log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("Server shutdown", zap.Error(err))
		}
		stop()
		wg.Wait()
		fmt.Println("✅ Stopped")
		return nil
	}),
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&noRollover, "no-rollover", false, "do not run the daily rollover")
	bindFlag("server.addr", serveCmd, "addr")
}
