package provider

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"CekNomor/config"
	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/logger"
)

// ExecuteWithRetry 带重试与超时降级的校验执行。
// 瞬时错误重试至多 ProviderMaxRetries 次（退避递增），仍失败降级为 unknown；
// 超时降级为 unknown 不计费；封号信号原样上抛，由账号池做状态迁移。
func ExecuteWithRetry(ctx context.Context, v Validator, target Target, binding *Binding) (model.Result, error) {
	maxRetries := config.Cfg.ProviderMaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return model.Result{Status: model.ResultUnknown}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := v.Validate(ctx, target, binding)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// 封号不可重试
		if stderrors.Is(err, errors.ProviderBanned) {
			return model.Result{Status: model.ResultError}, err
		}

		// 超时不重试，直接降级为 unknown
		if stderrors.Is(err, errors.ProviderTimeout) || stderrors.Is(err, context.DeadlineExceeded) {
			logger.Logger.Warn("Provider call timed out",
				zap.String("platform", string(v.Platform())),
				zap.String("method", string(v.Method())),
			)
			return model.Result{Status: model.ResultUnknown}, errors.ProviderTimeout
		}

		logger.Logger.Warn("Provider call failed, will retry",
			zap.String("platform", string(v.Platform())),
			zap.String("method", string(v.Method())),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return model.Result{Status: model.ResultUnknown}, lastErr
}
