package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/site-planner/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the planning HTTP API",
	Long: `Start the JSON HTTP API serving planning snapshots, timelines, task
mutations, alerts and the site diary.

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}

		log := Logger
		if log == nil {
			log = logrus.New()
		}
		addr := serveAddr
		rateLimit, shutdownTimeout := 0, 10
		if Config != nil {
			if addr == "" {
				addr = Config.Server.Addr
			}
			rateLimit = Config.Server.RateLimitPerMinute
			shutdownTimeout = Config.Server.ShutdownTimeoutSeconds
		}
		if addr == "" {
			addr = ":8080"
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e := httpapi.NewEcho(httpapi.NewHandler(Planner, Timeline, log), log, rateLimit)

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("HTTP server listening")
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("starting HTTP server: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}

		log.Info("HTTP server shut down gracefully")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to server.addr from .splanconfig)")
	rootCmd.AddCommand(serveCmd)
}
