package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	api "github.com/mind-engage/rapidrate/internal/api/http"
	auth "github.com/mind-engage/rapidrate/internal/auth/middleware"
	"github.com/mind-engage/rapidrate/internal/config"
	"github.com/mind-engage/rapidrate/internal/db"
	"github.com/mind-engage/rapidrate/internal/logging"
	"github.com/mind-engage/rapidrate/internal/metrics"
	"github.com/mind-engage/rapidrate/internal/results"
	"github.com/mind-engage/rapidrate/internal/session"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rating HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	log := logging.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()
	store := results.NewSQLStore(dbh)

	presets, err := config.LoadPresets(cfg.PresetsFile)
	if err != nil {
		return err
	}

	var mt *metrics.Metrics
	if cfg.EnableMetrics {
		mt = metrics.New()
	}

	mgr := session.NewManager(store,
		session.WithLogger(log),
		session.WithMetrics(mt),
		session.WithPresets(presets),
	)
	go mgr.Run(ctx, cfg.SweepInterval, cfg.RetainFinalized, cfg.RetainIdle)

	throttle := api.NewThrottle(cfg.EventRate, cfg.EventBurst, mt)
	go func() {
		tk := time.NewTicker(time.Minute)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				throttle.Prune()
			}
		}
	}()

	router := api.NewRouter(api.Deps{
		Manager:     mgr,
		Results:     store,
		Auth:        auth.NewAuthService(cfg.AuthHMACSecret, cfg.AdminUser, cfg.AdminPassHash),
		Throttle:    throttle,
		Metrics:     mt,
		DB:          dbh,
		CORSOrigins: cfg.CORSOrigins(),
		AccessLog:   true,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "presets", len(presets))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
