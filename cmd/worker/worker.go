package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"CekNomor/config"
	"CekNomor/internal/queue"
	"CekNomor/internal/service"
	"CekNomor/pkg/logger"
	"CekNomor/pkg/metrics"
	"CekNomor/pkg/otel"
	"CekNomor/pkg/provider"
	"CekNomor/pkg/snowflake"
	"CekNomor/storage"
)

// worker 进程：消费任务派发消息，跑校验工作池

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownOtel, err := otel.InitOpenTelemetry(ctx, otel.Config{
		ServiceName:  config.Cfg.ServiceName + "-worker",
		Environment:  config.Cfg.Environment,
		OTLPEndpoint: config.Cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Logger.Warn("Failed to initialize OpenTelemetry, telemetry disabled", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOtel(shutdownCtx); err != nil {
				logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()
		if err := metrics.InitMetrics(); err != nil {
			logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
		}
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := provider.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize providers", zap.Error(err))
	}

	// 消费者通过接口回调 service，避免包环
	queue.SetJobExecutor(service.Job())

	logger.Logger.Info("Worker starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("worker_count", config.Cfg.BulkWorkerCount),
	)

	// 阻塞直到消费循环退出
	queue.StartAllConsumers(ctx)

	logger.Logger.Info("Worker shutting down gracefully")
}
