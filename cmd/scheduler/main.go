package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"CekNomor/config"
	"CekNomor/internal/schedule"
	"CekNomor/pkg/logger"
	"CekNomor/pkg/snowflake"
	"CekNomor/storage"
)

// scheduler 进程：UTC 零点日切账号配额，定期巡检滞留任务

const staleScanInterval = 5 * time.Minute

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

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	logger.Logger.Info("Scheduler starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		schedule.GetUsageScheduler().Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		schedule.GetJobScheduler().Run(ctx, staleScanInterval)
	}()

	wg.Wait()

	logger.Logger.Info("Scheduler shutting down gracefully")
}
