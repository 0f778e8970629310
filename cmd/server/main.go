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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/adboard/internal/config"
	"github.com/AngelCh415/adboard/internal/httpx"
	"github.com/AngelCh415/adboard/internal/ingest"
	"github.com/AngelCh415/adboard/internal/metrics"
	"github.com/AngelCh415/adboard/internal/store"
	"github.com/AngelCh415/adboard/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	st, ready, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("store error", slog.String("backend", cfg.StoreBackend), slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	profiles, err := ingest.NewRegistry(ingest.DefaultProfiles(cfg.CurrencyRate)...)
	if err != nil {
		logger.Error("profile error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(reg)

	pipe := ingest.NewPipeline(profiles, st, store.NewJSONFileWriter(cfg.PublicDir), rec, logger)
	mSvc := metrics.NewService(st)

	r := httpx.NewRouter(logger, pipe, mSvc, httpx.Options{
		PublicDir:      cfg.PublicDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Gatherer:       reg,
		Ready:          ready,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTPTimeout(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", slog.String("port", cfg.Port), slog.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout())
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("err", err.Error()))
		closeStore()
		os.Exit(1)
	}
}

func openStore(cfg config.Config, logger *slog.Logger) (store.SnapshotStore, func(context.Context) error, func(), error) {
	if cfg.StoreBackend != config.BackendRedis {
		return store.NewMemoryStore(), nil, func() {}, nil
	}

	rs, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = utils.NewBackoff(250*time.Millisecond, 5).Do(ctx, func(i int) error {
		err := rs.Ping(ctx)
		if err != nil {
			logger.Warn("redis not reachable", slog.Int("attempt", i+1), slog.String("err", err.Error()))
		}
		return err
	})
	if err != nil {
		rs.Close()
		return nil, nil, nil, err
	}
	return rs, rs.Ping, func() { rs.Close() }, nil
}
