package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/logger"
)

// 测试环境需要设置 JWT_SECRET 与 ENCRYPTION_KEY（config 启动校验）
func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestExecuteWithRetrySuccess(t *testing.T) {
	mock := NewMockValidator(model.PlatformWhatsApp, model.MethodStandard, 1)
	mock.Results["+6281234567890"] = model.Result{Status: model.ResultInactive}

	result, err := ExecuteWithRetry(context.Background(), mock, Target{Phone: "+6281234567890"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ResultInactive, result.Status)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteWithRetryTransientThenSuccess(t *testing.T) {
	mock := NewMockValidator(model.PlatformTelegram, model.MethodStandard, 1)
	mock.FailNext = stderrors.New("connection reset")

	result, err := ExecuteWithRetry(context.Background(), mock, Target{Phone: "+6281234567890"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ResultActive, result.Status)
	assert.Equal(t, 2, mock.CallCount())
}

func TestExecuteWithRetryBannedNotRetried(t *testing.T) {
	mock := NewMockValidator(model.PlatformWhatsApp, model.MethodDeepLinkProfile, 3)
	mock.FailAlways = fmt.Errorf("gateway rejected session: %w", errors.ProviderBanned)

	result, err := ExecuteWithRetry(context.Background(), mock, Target{Phone: "+6281234567890"}, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ProviderBanned))
	assert.Equal(t, model.ResultError, result.Status)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteWithRetryTimeoutDegradesToUnknown(t *testing.T) {
	mock := NewMockValidator(model.PlatformTelegram, model.MethodMTP, 2)
	mock.FailAlways = fmt.Errorf("gateway call: %w", errors.ProviderTimeout)

	result, err := ExecuteWithRetry(context.Background(), mock, Target{Phone: "+6281234567890"}, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ProviderTimeout))
	assert.Equal(t, model.ResultUnknown, result.Status)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteWithRetryExhaustsRetries(t *testing.T) {
	mock := NewMockValidator(model.PlatformWhatsApp, model.MethodStandard, 1)
	mock.FailAlways = stderrors.New("upstream 500")

	result, err := ExecuteWithRetry(context.Background(), mock, Target{Phone: "+6281234567890"}, nil)
	require.Error(t, err)
	assert.Equal(t, model.ResultUnknown, result.Status)
	// 首次 + ProviderMaxRetries 次重试
	assert.GreaterOrEqual(t, mock.CallCount(), 2)
}

func TestSetValidatorOverridesRegistry(t *testing.T) {
	mock := NewMockValidator(model.PlatformTelegram, model.MethodMTPProfile, 3)
	SetValidator(mock)

	v, err := Get(model.PlatformTelegram, model.MethodMTPProfile)
	require.NoError(t, err)
	assert.Same(t, mock, v)

	_, err = Get(model.Platform("sms"), model.MethodStandard)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.InputError))
}
