package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"CekNomor/storage/redis"
)

// 登录会话状态存 redis：QR 码带 TTL，刷新即覆盖旧码；手机验证挂起态等待网关回调
const (
	loginQRPrefix      = "account:login:qr"
	loginPendingPrefix = "account:login:pending"
)

// SetQRCode 写入账号的 QR 登录码，覆盖写使旧码失效
func SetQRCode(ctx context.Context, accountID int64, code string, ttl time.Duration) error {
	key := redis.Key(loginQRPrefix, fmt.Sprintf("%d", accountID))
	return redis.Client().Set(ctx, key, code, ttl).Err()
}

// GetQRCode 读取账号当前有效的 QR 登录码，过期或不存在返回空串
func GetQRCode(ctx context.Context, accountID int64) (string, error) {
	key := redis.Key(loginQRPrefix, fmt.Sprintf("%d", accountID))
	code, err := redis.Client().Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read qr code: %w", err)
	}
	return code, nil
}

// ClearQRCode 登录成功或登出后清除 QR 码
func ClearQRCode(ctx context.Context, accountID int64) error {
	key := redis.Key(loginQRPrefix, fmt.Sprintf("%d", accountID))
	return redis.Client().Del(ctx, key).Err()
}

// MarkVerificationPending 标记账号处于手机验证挂起态，由轮询或网关回调确认
func MarkVerificationPending(ctx context.Context, accountID int64, ttl time.Duration) error {
	key := redis.Key(loginPendingPrefix, fmt.Sprintf("%d", accountID))
	return redis.Client().Set(ctx, key, "1", ttl).Err()
}

// IsVerificationPending 查询账号是否处于手机验证挂起态
func IsVerificationPending(ctx context.Context, accountID int64) (bool, error) {
	key := redis.Key(loginPendingPrefix, fmt.Sprintf("%d", accountID))
	n, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check verification pending: %w", err)
	}
	return n > 0, nil
}

// ClearVerificationPending 验证完成后清除挂起标记
func ClearVerificationPending(ctx context.Context, accountID int64) error {
	key := redis.Key(loginPendingPrefix, fmt.Sprintf("%d", accountID))
	return redis.Client().Del(ctx, key).Err()
}
