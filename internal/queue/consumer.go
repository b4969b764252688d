package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CekNomor/internal/cache"
	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/logger"
	"CekNomor/storage/mq"
)

// JobExecutor 任务执行入口，由 worker 启动时注入，避免 queue 与 service 相互依赖
type JobExecutor interface {
	Execute(ctx context.Context, jobPublicID int64) error
}

var jobExecutor JobExecutor

// SetJobExecutor 设置任务执行器（在 worker 启动时调用）
func SetJobExecutor(e JobExecutor) {
	jobExecutor = e
}

// StartJobDispatchConsumer 启动任务派发消费者
func StartJobDispatchConsumer(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg model.JobDispatchMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal job dispatch message: %w", err)
		}

		// 【幂等性检查】使用 SETNX 原子性地检查并标记消息正在处理
		processing, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			// 检查失败继续处理，Execute 对终态任务幂等
		} else if !processing {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
				zap.Int64("job_id", msg.JobID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
		}

		// 同一任务只允许一个 worker 执行，重复派发在这里拦截
		first, err := cache.TryMarkJobDispatched(ctx, msg.JobID)
		if err != nil {
			logger.Logger.Warn("Failed to check job dispatch mark",
				zap.Int64("job_id", msg.JobID),
				zap.Error(err),
			)
		} else if !first {
			logger.Logger.Info("Job already claimed by another worker, skipping",
				zap.Int64("job_id", msg.JobID),
			)
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Job %d already dispatched", msg.JobID)}
		}

		logger.Logger.Info("Processing job dispatch",
			zap.String("message_id", msg.MessageID),
			zap.Int64("job_id", msg.JobID),
			zap.String("owner_id", msg.OwnerID),
		)

		if jobExecutor == nil {
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			return fmt.Errorf("job executor not initialized")
		}

		if err := jobExecutor.Execute(ctx, msg.JobID); err != nil {
			// 任务已被删除，消息按已处理丢弃
			if stderrors.Is(err, errors.JobNotFound) {
				if markErr := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); markErr != nil {
					logger.Logger.Warn("Failed to mark message as processed",
						zap.String("message_id", msg.MessageID),
						zap.Error(markErr),
					)
				}
				return &errors.SkipMessageError{Reason: fmt.Sprintf("Job %d no longer exists", msg.JobID)}
			}

			// 执行失败取消两个标记，消息重投后还能被认领执行
			cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			if unmarkErr := cache.UnmarkJobDispatched(ctx, msg.JobID); unmarkErr != nil {
				logger.Logger.Warn("Failed to clear job dispatch mark",
					zap.Int64("job_id", msg.JobID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to execute job %d: %w", msg.JobID, err)
		}

		// 【幂等性标记】处理完成后标记消息已处理（延长 TTL）
		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(mq.ConsumeOptions{
		Queue:         mq.QueueJobDispatch,
		ConsumerTag:   "job_dispatch_consumer",
		PrefetchCount: mq.PrefetchJobDispatch,
		Handler:       handler,
	})
}

// StartAllConsumers 启动所有消费者（在 worker 启动时调用）
func StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"job_dispatch", StartJobDispatchConsumer},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("consumer_name", name),
			)

			if err := consumer(ctx); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.consumer)
	}

	wg.Wait()
}
