package schedule

// 任务调度器：定期巡检滞留任务。
// 卡在 PROCESSING 且长时间无进度的打标供运维跟进；
// 派发出去但一直没被 worker 接起的 PENDING 任务清掉派发标记后延迟重派。

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CekNomor/config"
	"CekNomor/internal/cache"
	"CekNomor/internal/model"
	"CekNomor/internal/queue"
	"CekNomor/internal/service"
	"CekNomor/pkg/logger"
	"CekNomor/storage/database"
)

const redispatchDelay = 30 * time.Second

var (
	jobSchedulerOnce sync.Once
	jobSchedulerInst *JobScheduler
)

type JobScheduler struct {
	logger        *zap.Logger
	scanRunning   bool
	scanMu        sync.Mutex
	lastScanTime  time.Time
}

func GetJobScheduler() *JobScheduler {
	jobSchedulerOnce.Do(func() {
		jobSchedulerInst = &JobScheduler{
			logger: logger.Logger,
		}
	})
	return jobSchedulerInst
}

// ScanStaleJobs 巡检一轮：打标无进度任务，重派滞留的 PENDING 任务
func (s *JobScheduler) ScanStaleJobs(ctx context.Context) error {
	s.scanMu.Lock()
	if s.scanRunning {
		s.scanMu.Unlock()
		s.logger.Info("Stale job scan already running, skipping")
		return nil
	}
	s.scanRunning = true
	s.scanMu.Unlock()

	defer func() {
		s.scanMu.Lock()
		s.scanRunning = false
		s.scanMu.Unlock()
	}()

	startTime := time.Now()
	s.lastScanTime = startTime

	flagged, err := service.Job().FlagStaleJobs(ctx)
	if err != nil {
		s.logger.Error("Failed to flag stale jobs", zap.Error(err))
		return err
	}

	redispatched, err := s.redispatchStuckPending(ctx)
	if err != nil {
		s.logger.Error("Failed to redispatch stuck jobs", zap.Error(err))
		return err
	}

	if flagged > 0 || redispatched > 0 {
		s.logger.Info("Stale job scan finished",
			zap.Int("flagged", flagged),
			zap.Int("redispatched", redispatched),
			zap.Duration("elapsed", time.Since(startTime)),
		)
	}

	return nil
}

// redispatchStuckPending 重派创建后迟迟没进入 PROCESSING 的任务。
// 快速校验在请求里同步执行，不走派发，这里排除。
func (s *JobScheduler) redispatchStuckPending(ctx context.Context) (int, error) {
	threshold := time.Duration(config.Cfg.StaleJobThresholdMin) * time.Minute
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}
	cutoff := time.Now().Add(-threshold)

	var stuck []model.Job
	err := database.DB().WithContext(ctx).
		Where("status = ? AND quick_check = false AND created_at < ?", model.JobStatusPending, cutoff).
		Limit(100).
		Find(&stuck).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query stuck pending jobs: %w", err)
	}

	count := 0
	for i := range stuck {
		job := &stuck[i]

		if err := cache.UnmarkJobDispatched(ctx, job.PublicID); err != nil {
			s.logger.Warn("Failed to clear dispatch mark",
				zap.Int64("job_id", job.PublicID),
				zap.Error(err),
			)
			continue
		}

		if err := queue.PublishJobRedispatch(ctx, job.PublicID, job.OwnerID, redispatchDelay); err != nil {
			continue
		}
		count++
	}

	return count, nil
}

// Run 常驻循环：按固定间隔巡检，直到 ctx 结束
func (s *JobScheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ScanStaleJobs(ctx); err != nil {
				s.logger.Error("Stale job scan failed", zap.Error(err))
			}
		}
	}
}
