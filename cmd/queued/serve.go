package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rit1708/waitingroom/internal/admission"
	"github.com/rit1708/waitingroom/internal/backoffconn"
	"github.com/rit1708/waitingroom/internal/config"
	"github.com/rit1708/waitingroom/internal/engine"
	"github.com/rit1708/waitingroom/internal/httpapi"
	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/metadata/sqlite"
	"github.com/rit1708/waitingroom/internal/metrics"
	"github.com/rit1708/waitingroom/internal/queuestore"
	"github.com/rit1708/waitingroom/internal/scheduler"
	"github.com/rit1708/waitingroom/internal/tokenauth"
)

func newServeCmd(configFile *string) *cobra.Command {
	var adminToken string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the queue daemon: scheduler + HTTP front door",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configFile, adminToken)
		},
	}
	cmd.Flags().StringVar(&adminToken, "admin-token", os.Getenv("WAITINGROOM_ADMIN_TOKEN"), "bearer token required on /admin routes")
	return cmd
}

func runServe(ctx context.Context, configFile, adminToken string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogDir)
	slog.SetDefault(logger)

	var eqs queuestore.Store
	if err := backoffconn.Dial(ctx, "ephemeral store", logger, func() error {
		s, dialErr := queuestore.NewRedisStore(cfg.EphemeralStoreURL)
		if dialErr != nil {
			return dialErr
		}
		eqs = s
		return nil
	}); err != nil {
		return err
	}
	defer eqs.Close()

	var mds metadata.Store
	if err := backoffconn.Dial(ctx, "metadata store", logger, func() error {
		s, dialErr := sqlite.New(cfg.MetadataStorePath)
		if dialErr != nil {
			return dialErr
		}
		mds = s
		return nil
	}); err != nil {
		return err
	}
	defer mds.Close()

	cachedMDS := metadata.NewCachedEventReader(mds)

	m := metrics.New()
	eng := engine.New(eqs, cachedMDS, logger)
	tokens := tokenauth.New(cachedMDS)
	ctrl := admission.New(eng, cachedMDS, tokens, logger)

	sched := scheduler.New(eng, cachedMDS, eqs, logger)
	sched.Start(ctx)
	defer sched.Stop()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.New(ctrl, m, adminToken, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-sigCh:
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
