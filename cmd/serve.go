package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-insights/internal/export"
	"github.com/naka-gawa/github-insights/internal/logger"
	"github.com/naka-gawa/github-insights/internal/transport/rest"
	"github.com/naka-gawa/github-insights/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the insights over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd)
		exitOnError(err)

		// The server always logs; --verbose only matters for one-shot commands.
		log, err := logger.NewServer(a.cfg.Logging.Level)
		exitOnError(err)
		defer func() { _ = log.Sync() }()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = a.cfg.ServerAddr()
		}

		insights := usecase.NewInsights(usecase.NewAggregator(a.fetcher, log), usecase.NewIssueMetricsService(a.fetcher, log, a.cfg.Insights.StaleAfter, a.bots), a.bots, a.cfg.Insights.Lookback, log)
		limiter := export.NewLimiter(a.cfg.Export.Limit, a.cfg.Export.Window, nil)
		h := rest.NewHandler(log.Named("http"), insights, limiter, rest.Options{MaxVisible: a.cfg.Insights.MaxVisible})

		srv := &http.Server{
			Addr:    addr,
			Handler: rest.NewRouter(h, log.Named("http"), a.cfg.Server.RequestTimeout),
		}

		go func() {
			log.Infow("server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalw("server failed to start", "error", err)
			}
		}()

		// Graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Infow("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Errorw("server forced to shutdown", "error", err)
			return
		}
		log.Infow("server exited")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address host:port (default from config)")
}
