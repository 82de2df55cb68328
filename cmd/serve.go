package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/app"
	"github.com/hmjahid/build-studio/internal/discovery"
	"github.com/hmjahid/build-studio/internal/logging"
	"github.com/hmjahid/build-studio/internal/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose metrics and node state over HTTP and reconcile periodically",
	Long: `Serve runs until interrupted. It reconciles the node registry against
the host on the configured discovery interval and exposes:

  /metrics      Prometheus metrics
  /api/nodes    the node registry as JSON
  /api/system   host information as JSON`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: metrics.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func newServeMux(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HTTPHandler(a.Registry))
	mux.HandleFunc("GET /api/nodes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := writeJSON(w, a.Nodes.List()); err != nil {
			logging.Warn("failed to write node list", "error", err)
		}
	})
	mux.HandleFunc("GET /api/system", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := writeJSON(w, a.SystemInfo(r.Context())); err != nil {
			logging.Warn("failed to write system info", "error", err)
		}
	})
	return mux
}

func runServe(cmd *cobra.Command, args []string) error {
	a := current()
	addr := serveAddr
	if addr == "" {
		addr = a.Config.Metrics.Addr
	}

	ctx, stop := signalContext()
	defer stop()

	sched, err := discovery.NewScheduler(a.Scanner, a.Nodes)
	if err != nil {
		return err
	}
	if _, err := sched.ScheduleReconcile(a.Config.DiscoveryInterval()); err != nil {
		return err
	}
	sched.Start(ctx)
	defer func() {
		if err := sched.Stop(); err != nil {
			logging.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServeMux(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logInfo("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logInfo("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
