package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/IntelliTect/Coalesce-sub010/internal/auth"
	"github.com/IntelliTect/Coalesce-sub010/internal/bulksave"
	"github.com/IntelliTect/Coalesce-sub010/internal/config"
	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/db"
	"github.com/IntelliTect/Coalesce-sub010/internal/handler"
	"github.com/IntelliTect/Coalesce-sub010/internal/logger"
	"github.com/IntelliTect/Coalesce-sub010/internal/model"
	"github.com/IntelliTect/Coalesce-sub010/internal/router"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	catalog, err := model.LoadCatalog(cfg.ModelsDir)
	if err != nil {
		logger.Error("catalog_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	logger.Info("catalog_loaded", map[string]any{"types": len(catalog.Types()), "dir": cfg.ModelsDir})

	h, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("database_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	defer h.Close()
	logger.Info("database_connected", map[string]any{"driver": string(h.Dialect)})

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		if validator, err = auth.NewJWTValidator(cfg.Auth.JWT); err != nil {
			return fmt.Errorf("auth init: %w", err)
		}
	} else {
		logger.Warn("auth_disabled", map[string]any{"principal": "system"})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := crud.NewFactory(h.Dialect)
	api := &handler.API{
		Catalog:        catalog,
		Factory:        factory,
		DB:             h.DB,
		BulkSave:       bulksave.NewService(catalog, factory, store.NewManager(h.DB), bulksave.NewMetrics(reg)),
		MaxItems:       cfg.BulkSave.MaxItems,
		DetailedErrors: cfg.DetailedErrors,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(router.Options{Config: cfg, API: api, Validator: validator, Gatherer: reg}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server_start", map[string]any{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("server_shutdown", nil)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}
