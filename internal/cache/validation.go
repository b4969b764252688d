package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"CekNomor/config"
	"CekNomor/internal/model"
	"CekNomor/storage/redis"
	"CekNomor/utils"
)

const validationPrefix = "validation:result"

// validationKey 缓存键 = (号码, 平台, 方式)，号码哈希化后入键，避免明文手机号进 redis
func validationKey(number string, platform model.Platform, method model.Method) string {
	return redis.Key(validationPrefix, string(platform), string(method), utils.HashPhone(number))
}

func validationTTL() time.Duration {
	days := config.Cfg.CacheTTLDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// GetValidation 读取缓存结果，命中时标注 cached=true；过期键由 redis TTL 兜底
func GetValidation(ctx context.Context, number string, platform model.Platform, method model.Method) (*model.Result, error) {
	key := validationKey(number, platform, method)

	raw, err := redis.Client().Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read validation cache: %w", err)
	}

	var result model.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	result.Cached = true
	return &result, nil
}

// PutValidation 写入缓存。只缓存确定性结论，失败结果下次请求自然重试。
func PutValidation(ctx context.Context, number string, platform model.Platform, method model.Method, result model.Result) error {
	if !result.Definitive() {
		return nil
	}

	result.Cached = false
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result for cache: %w", err)
	}

	key := validationKey(number, platform, method)
	return redis.Client().Set(ctx, key, raw, validationTTL()).Err()
}
