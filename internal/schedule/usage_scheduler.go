package schedule

// 配额调度器：每天 UTC 00:00 清零账号日用量，被限频的账号恢复可用

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"CekNomor/internal/cache"
	"CekNomor/internal/service"
	"CekNomor/pkg/logger"
	"CekNomor/utils"
)

var (
	usageSchedulerOnce sync.Once
	usageSchedulerInst *UsageScheduler
)

type UsageScheduler struct {
	logger        *zap.Logger
	resetRunning  bool
	resetMu       sync.Mutex
	lastResetTime time.Time
}

func GetUsageScheduler() *UsageScheduler {
	usageSchedulerOnce.Do(func() {
		usageSchedulerInst = &UsageScheduler{
			logger: logger.Logger,
		}
	})
	return usageSchedulerInst
}

// ResetDailyUsage 日切重置。多实例部署时用分布式锁保证只跑一次。
func (s *UsageScheduler) ResetDailyUsage(ctx context.Context) error {
	s.resetMu.Lock()
	if s.resetRunning {
		s.resetMu.Unlock()
		s.logger.Info("Usage reset already running, skipping")
		return nil
	}
	s.resetRunning = true
	s.resetMu.Unlock()

	defer func() {
		s.resetMu.Lock()
		s.resetRunning = false
		s.resetMu.Unlock()
	}()

	lockKey := "usage_reset:" + utils.TodayUTC()
	acquired, err := cache.TryLock(ctx, lockKey, time.Hour)
	if err != nil {
		s.logger.Warn("Failed to acquire usage reset lock, proceeding anyway", zap.Error(err))
	} else if !acquired {
		s.logger.Info("Usage reset already done by another instance")
		return nil
	}

	startTime := time.Now()
	s.lastResetTime = startTime

	s.logger.Info("Starting daily usage reset",
		zap.Time("start_time", startTime),
	)

	if err := service.Account().ResetDailyUsage(ctx); err != nil {
		s.logger.Error("Daily usage reset failed", zap.Error(err))
		return err
	}

	s.logger.Info("Daily usage reset finished",
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return nil
}

// Run 常驻循环：阻塞到下一个 UTC 零点执行日切，直到 ctx 结束
func (s *UsageScheduler) Run(ctx context.Context) {
	for {
		next := utils.NextUTCMidnight(time.Now())
		wait := time.Until(next)

		s.logger.Info("Usage scheduler sleeping until next UTC midnight",
			zap.Time("next_run", next),
			zap.Duration("wait", wait),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			if err := s.ResetDailyUsage(ctx); err != nil {
				s.logger.Error("Scheduled usage reset failed", zap.Error(err))
			}
		}
	}
}
