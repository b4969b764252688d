package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"CekNomor/internal/model"
	"CekNomor/pkg/logger"
	"CekNomor/storage/redis"
)

// 基于 redis pub/sub 的任务进度房间：订阅者按 job id 加入/退出，
// 投递尽力而为，掉线重连的客户端回退到轮询 Job 记录。

const progressPrefix = "progress:job"

func channelName(jobID int64) string {
	return redis.Key(progressPrefix, fmt.Sprintf("%d", jobID))
}

// Publish 推送一条进度事件，发布失败只记日志不影响任务流程
func Publish(ctx context.Context, event model.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("Failed to marshal progress event",
			zap.Int64("job_id", event.JobID),
			zap.Error(err),
		)
		return
	}

	if err := redis.Client().Publish(ctx, channelName(event.JobID), payload).Err(); err != nil {
		logger.Logger.Warn("Failed to publish progress event",
			zap.Int64("job_id", event.JobID),
			zap.Error(err),
		)
	}
}

// Subscription 一个订阅者在某个任务房间里的会话
type Subscription struct {
	C      <-chan model.ProgressEvent
	cancel context.CancelFunc
}

// Close 退出房间并释放底层订阅
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe 加入任务房间。事件通道在 ctx 取消或 Close 后关闭。
func Subscribe(ctx context.Context, jobID int64) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := redis.Client().Subscribe(subCtx, channelName(jobID))

	events := make(chan model.ProgressEvent, 16)

	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event model.ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Logger.Warn("Dropped malformed progress event",
						zap.Int64("job_id", jobID),
						zap.Error(err),
					)
					continue
				}

				select {
				case events <- event:
				default:
					// 慢订阅者丢弃事件，Job 记录才是事实来源
				}
			}
		}
	}()

	return &Subscription{C: events, cancel: cancel}
}

// Percentage 进度百分比，total 为 0 时返回 0
func Percentage(processed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(processed) * 100 / float64(total)
}
