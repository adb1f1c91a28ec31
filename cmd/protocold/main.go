package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/protocol-extractor/internal/async"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/export"
	"github.com/joseph-ayodele/protocol-extractor/internal/ingest"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/protocol-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/protocol-extractor/internal/repository"
	svc "github.com/joseph-ayodele/protocol-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $PROTOCOL_CONFIG)")
	watch := flag.String("watch", "", "comma-separated directories to watch for new protocol documents")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, repo.ConfigFrom(cfg.Database), logger)
	if err != nil {
		os.Exit(1)
	}
	defer svc.CloseDB(db, logger)
	if err := svc.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
	popts := []pipeline.Option{pipeline.WithModelName(client.Model())}
	var runs repo.ProtocolRunRepository
	if db != nil {
		runs = repo.NewProtocolRunRepository(db, logger)
		popts = append(popts, pipeline.WithRunJournal(runs))
	}
	processor := pipeline.NewFromConfig(cfg, client, logger, popts...)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.ProcessTimeout),
		async.WithOnDone(func(job async.Job, res pipeline.Result, writeErr error) {
			logger.Info("daemon.job.done",
				"source", job.Source,
				"output", job.Output,
				"trace_id", job.TraceID,
				"ok", res.Err == nil && writeErr == nil,
				"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
			)
		}),
	)

	sopts := []svc.ServiceOption{svc.WithQueue(queue)}
	if runs != nil {
		sopts = append(sopts, svc.WithRuns(runs), svc.WithExporter(export.NewService(runs, logger)))
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	svc.RegisterProtocolExtractorServer(grpcServer, svc.NewProtocolService(processor, logger, sopts...))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	if *watch != "" {
		if err := startWatch(ctx, strings.Split(*watch, ","), queue, runs, logger); err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("protocold listening", "addr", addr, "journal", db != nil, "watch", *watch)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	drain := cfg.Server.ShutdownTimeout
	if drain <= 0 {
		drain = common.DefaultConfig().Server.ShutdownTimeout
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	queue.Shutdown(drainCtx)
}

// startWatch feeds documents appearing under roots into the queue. Content
// already extracted according to the journal is skipped.
func startWatch(ctx context.Context, roots []string, queue async.Queue, runs repo.ProtocolRunRepository, logger *slog.Logger) error {
	for i := range roots {
		roots[i] = strings.TrimSpace(roots[i])
	}
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: true,
		Debounce:    2 * time.Second,
	}, logger)
	if err != nil {
		return err
	}

	go func() {
		for err := range errs {
			logger.Warn("watch.error", "error", err)
		}
	}()
	go func() {
		for path := range paths {
			if runs != nil {
				if hash, err := ingest.HashFile(path); err == nil {
					if _, err := runs.FindByHash(ctx, hash); err == nil {
						logger.Debug("watch.skip.known", "path", path)
						continue
					}
				}
			}
			job := async.Job{
				Source:      path,
				Output:      pipeline.DefaultOutputPath(path),
				SubmittedAt: time.Now(),
				TraceID:     uuid.NewString(),
			}
			if err := queue.Enqueue(ctx, job); err != nil {
				logger.Warn("watch.enqueue.failed", "path", path, "error", err)
			}
		}
	}()
	return nil
}
