package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CekNomor/internal/model"
	"CekNomor/pkg/logger"
	"CekNomor/storage/mq"
)

// PublishJobDispatch 发布任务派发消息，worker 消费后执行校验
func PublishJobDispatch(ctx context.Context, msg model.JobDispatchMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("job_dispatch_%s", uuid.NewString())
	}
	if msg.ScheduledAt == "" {
		msg.ScheduledAt = time.Now().UTC().Format(time.RFC3339)
	}

	err := mq.PublishMessage(
		mq.ExchangeValidation,
		mq.RoutingKeyDispatch,
		msg,
	)
	if err != nil {
		logger.Logger.Error("Failed to publish job dispatch message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("job_id", msg.JobID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published job dispatch message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("job_id", msg.JobID),
	)

	return nil
}

// PublishJobRedispatch 延迟重派。调度器发现派发后长时间无进度的任务时使用，
// 延迟给 worker 留出重启窗口
func PublishJobRedispatch(ctx context.Context, jobID int64, ownerID string, delay time.Duration) error {
	msg := model.JobDispatchMessage{
		MessageID:   fmt.Sprintf("job_redispatch_%s", uuid.NewString()),
		JobID:       jobID,
		OwnerID:     ownerID,
		ScheduledAt: time.Now().UTC().Format(time.RFC3339),
	}

	err := mq.PublishDelayedMessage(
		mq.ExchangeDelayed,
		mq.RoutingKeyDispatch,
		delay,
		msg,
	)
	if err != nil {
		logger.Logger.Error("Failed to publish job redispatch message",
			zap.String("message_id", msg.MessageID),
			zap.Int64("job_id", jobID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published job redispatch message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("job_id", jobID),
		zap.Duration("delay", delay),
	)

	return nil
}
