package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/app"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/async"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ingest"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
)

var errUsage = errors.New("WATCH_DIRS is required")

func main() {
	_ = godotenv.Load()
	if err := run(); err != nil {
		slog.Error("dococrd exited", "error", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := common.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if len(cfg.Server.WatchDirs) == 0 {
		return errUsage
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	if !a.Orchestrator.ValidateEngine(ctx, cfg.OCR.DefaultEngine) {
		return fmt.Errorf("default engine %q unavailable", cfg.OCR.DefaultEngine)
	}

	results, store, err := a.OpenResults(ctx)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close result store", "error", cerr)
		}
	}()
	if err := store.HealthCheck(ctx, 3*time.Second); err != nil {
		return fmt.Errorf("DB health: %w", err)
	}
	logger.Info("DB health OK")

	queue := async.NewProcessorQueue(a.Orchestrator, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.ProcessTimeout),
		async.WithResults(results),
		async.WithJobTracking(store),
		async.WithResultHandler(func(job async.Job, _ *pipeline.DocumentResult, _ string, err error) {
			if err == nil {
				return
			}
			st, _ := status.FromError(common.ToStatus(err))
			logger.Warn("document rejected", "path", job.Path, "code", st.Code().String(), "kind", common.KindOf(err))
		}),
	)
	drainQueue := func() error {
		drain, cancel := context.WithTimeout(context.Background(), cfg.Server.ProcessTimeout)
		defer cancel()
		return queue.Shutdown(drain)
	}

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cfg.Server.WatchDirs,
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    cfg.Server.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("start watcher: %w", err), drainQueue())
	}
	go func() {
		for err := range watchErrs {
			logger.Warn("watch error", "error", err)
		}
	}()
	fed := make(chan int, 1)
	go func() {
		fed <- ingest.Feed(ctx, events, queue, pipeline.DocumentOptions{}, logger)
	}()

	// gRPC server
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		stop()
		<-fed
		return errors.Join(fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err), drainQueue())
	}
	logger.Info("gRPC health serving", "addr", cfg.Server.GRPCAddr, "watch_dirs", cfg.Server.WatchDirs)

	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	n := <-fed

	err = drainQueue()
	grpcServer.GracefulStop()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped", "documents_queued", n)
	return nil
}
