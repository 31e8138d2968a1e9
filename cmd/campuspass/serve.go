package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/campuspass/server/internal/campus/service"
	"github.com/campuspass/server/internal/health"
	"github.com/campuspass/server/internal/httpapi"
	"github.com/campuspass/server/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC health endpoint and the retention pruner",
	RunE:  withRuntime(runServe),
}

func runServe(cmd *cobra.Command, _ []string, rt *runtime) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := rt.logger
	cfg := rt.cfg

	ingest := service.NewIngestService(rt.store, service.IngestConfig{
		Rate:  cfg.IngestRate,
		Burst: cfg.IngestBurst,
	}, logger)

	pruner := service.NewRetentionPruner(rt.store, service.PrunerConfig{
		RetentionDays: cfg.PassageRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	hs := health.NewServer(rt.mgr.Ping, 10*time.Second, logger)
	go hs.Run(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("grpc health listening", "addr", cfg.GRPCAddr)
		if err := hs.Serve(lis); err != nil {
			logger.Error("grpc server error", logging.Err(err))
			stop()
		}
	}()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:  logger,
		Addr:    cfg.HTTPAddr,
		Engine:  rt.engine,
		Ingest:  ingest,
		Manager: rt.mgr,
		Health:  rt.mgr.Ping,
	})

	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "db", rt.mgr.Path())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", logging.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	hs.Stop()
	return nil
}
