package cache

import (
	"context"
	"fmt"
	"time"

	"CekNomor/storage/redis"
)

// SetNX 实现的分布式锁，保证一个 Job 只会被派发一次，
// 以及消息队列消费侧的幂等检查
const (
	lockPrefix             = "lock"
	dispatchPrefix         = "job:dispatched"
	cancelledPrefix        = "job:cancelled"
	messageProcessedPrefix = "message:processed"

	dispatchTTL  = 24 * time.Hour
	cancelledTTL = 24 * time.Hour
	processedTTL = 48 * time.Hour
)

func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {

	fullkey := redis.Key(lockPrefix, key)

	result, err := redis.Client().SetNX(ctx, fullkey, 1, ttl).Result()

	if err != nil {
		return false, err
	}

	return result, err
}

func Unlock(ctx context.Context, key string) error {
	fullkey := redis.Key(lockPrefix, key)

	return redis.Client().Del(ctx, fullkey).Err()
}

// TryMarkJobDispatched 原子标记 Job 已派发，返回 false 表示已被派发过（幂等守卫）
func TryMarkJobDispatched(ctx context.Context, jobID int64) (bool, error) {
	key := redis.Key(dispatchPrefix, fmt.Sprintf("%d", jobID))
	ok, err := redis.Client().SetNX(ctx, key, "1", dispatchTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark job dispatched: %w", err)
	}
	return ok, nil
}

// UnmarkJobDispatched 清掉派发标记，调度器重派滞留任务前调用
func UnmarkJobDispatched(ctx context.Context, jobID int64) error {
	key := redis.Key(dispatchPrefix, fmt.Sprintf("%d", jobID))
	return redis.Client().Del(ctx, key).Err()
}

// MarkJobCancelled 打协作取消标记，执行端看到后停止派发剩余条目
func MarkJobCancelled(ctx context.Context, jobID int64) error {
	key := redis.Key(cancelledPrefix, fmt.Sprintf("%d", jobID))
	return redis.Client().Set(ctx, key, "1", cancelledTTL).Err()
}

// IsJobCancelled 查询任务是否已被取消
func IsJobCancelled(ctx context.Context, jobID int64) (bool, error) {
	key := redis.Key(cancelledPrefix, fmt.Sprintf("%d", jobID))
	n, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check job cancel mark: %w", err)
	}
	return n > 0, nil
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}
