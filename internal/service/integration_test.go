package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CekNomor/config"
	"CekNomor/internal/cache"
	"CekNomor/internal/model"
	"CekNomor/internal/model/dto"
	"CekNomor/internal/normalizer"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/provider"
	"CekNomor/pkg/snowflake"
	"CekNomor/storage"
	"CekNomor/storage/database"
	"CekNomor/storage/redis"
	"CekNomor/utils"
)

// 需要活的 postgres/redis/rabbitmq，INTEGRATION_TESTS=1 时启用
var (
	infraOnce sync.Once
	infraErr  error
)

func requireInfra(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("INTEGRATION_TESTS not set, skipping")
	}
	infraOnce.Do(func() {
		infraErr = storage.Init()
		if infraErr == nil {
			infraErr = snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter)
		}
	})
	require.NoError(t, infraErr)
}

var numberSeq int64

// freshNumber 每次返回未用过的号码，避免跨测试、跨轮次的缓存命中
func freshNumber() string {
	n := atomic.AddInt64(&numberSeq, 1)
	return fmt.Sprintf("+6285%04d%06d", n%10000, time.Now().UnixNano()%1000000)
}

func TestJobChargesPerDefinitiveResult(t *testing.T) {
	requireInfra(t)
	ctx := context.Background()

	provider.SetValidator(provider.NewMockValidator(model.PlatformWhatsApp, model.MethodStandard, 1))
	provider.SetValidator(provider.NewMockValidator(model.PlatformTelegram, model.MethodStandard, 1))

	owner := uuid.NewString()
	require.NoError(t, Credit().Grant(ctx, owner, 10))

	// 同一号码的两种写法合并成一条，另一条独立
	n1 := freshNumber()
	n2 := freshNumber()
	inputs := []normalizer.RawInput{
		{Phone: n1},
		{Phone: "0" + strings.TrimPrefix(n2, "+62")},
	}
	vr := model.ValidationRequest{WhatsApp: true, Telegram: true}

	job, err := Job().prepare(ctx, owner, inputs, vr, false, config.Cfg.BulkMaxNumbers)
	require.NoError(t, err)
	assert.Equal(t, 2, job.TotalNumbers)
	assert.Equal(t, 4, job.CreditsReserved)

	require.NoError(t, Job().Execute(ctx, job.PublicID))

	fresh, err := Job().Get(ctx, owner, job.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, fresh.Status)
	assert.Equal(t, 4, fresh.CreditsUsed)
	assert.Equal(t, 2, fresh.Summary.WhatsAppActive)
	assert.Equal(t, 2, fresh.Summary.TelegramActive)

	balance, err := Credit().Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 6, balance)
}

func TestJobKeepsIdentifiersAndIsolatesMalformedRow(t *testing.T) {
	requireInfra(t)
	ctx := context.Background()

	provider.SetValidator(provider.NewMockValidator(model.PlatformWhatsApp, model.MethodStandard, 1))

	owner := uuid.NewString()
	require.NoError(t, Credit().Grant(ctx, owner, 10))

	data := fmt.Sprintf("name,phone_number\nalice,%s\nbob,%s\ncarol,12ab\n", freshNumber(), freshNumber())
	inputs, err := normalizer.ReadUpload("batch.csv", []byte(data), config.Cfg.BulkMaxNumbers)
	require.NoError(t, err)

	vr := model.ValidationRequest{WhatsApp: true}
	job, err := Job().prepare(ctx, owner, inputs, vr, false, config.Cfg.BulkMaxNumbers)
	require.NoError(t, err)
	assert.Equal(t, 3, job.TotalNumbers)
	assert.Equal(t, 2, job.CreditsReserved) // 坏行不预扣

	require.NoError(t, Job().Execute(ctx, job.PublicID))

	fresh, err := Job().Get(ctx, owner, job.PublicID)
	require.NoError(t, err)
	items, err := Job().Items(ctx, fresh)
	require.NoError(t, err)
	require.Len(t, items, 3)

	byIdent := make(map[string]model.JobItem, len(items))
	for _, it := range items {
		byIdent[it.Identifier] = it
	}
	assert.Equal(t, model.ItemStatusDone, byIdent["alice"].Status)
	assert.Equal(t, model.ItemStatusDone, byIdent["bob"].Status)
	assert.Equal(t, model.ItemStatusError, byIdent["carol"].Status)
	assert.Equal(t, errors.InvalidNumber.Code, byIdent["carol"].ErrorCode)

	assert.Equal(t, 1, fresh.Summary.Errors)
	assert.Equal(t, 2, fresh.CreditsUsed)

	balance, err := Credit().Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 8, balance)
}

func TestConcurrentDispatchHonorsDailyQuota(t *testing.T) {
	requireInfra(t)
	ctx := context.Background()

	// 清场：池子里残留的可用账号会破坏只有一个名额的断言
	require.NoError(t, database.DB().
		Model(&model.Account{}).
		Where("platform = ? AND status <> ?", model.PlatformWhatsApp, model.AccountStatusLoggedOut).
		Update("status", model.AccountStatusLoggedOut).Error)

	acct, err := Account().Create(ctx, dto.CreateAccountRequest{
		Platform:         "whatsapp",
		PhoneNumber:      freshNumber(),
		Label:            "quota-test",
		MaxDailyRequests: 1,
	})
	require.NoError(t, err)
	require.NoError(t, Account().ConfirmLogin(ctx, acct.PublicID, "session-ref-test"))

	var acquired, exhausted int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := Account().Acquire(ctx, model.PlatformWhatsApp)
			switch {
			case err == nil:
				atomic.AddInt32(&acquired, 1)
			case stderrors.Is(err, errors.NoAvailableAccount):
				atomic.AddInt32(&exhausted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), acquired)
	assert.Equal(t, int32(1), exhausted)
}

func TestValidationCacheWindow(t *testing.T) {
	requireInfra(t)
	ctx := context.Background()

	number := freshNumber()
	put := model.Result{Status: model.ResultActive, Details: map[string]string{"is_business": "false"}}
	require.NoError(t, cache.PutValidation(ctx, number, model.PlatformWhatsApp, model.MethodStandard, put))

	got, err := cache.GetValidation(ctx, number, model.PlatformWhatsApp, model.MethodStandard)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Cached)
	assert.Equal(t, model.ResultActive, got.Status)

	key := redis.Key("validation:result", string(model.PlatformWhatsApp), string(model.MethodStandard), utils.HashPhone(number))
	ttl, err := redis.Client().TTL(ctx, key).Result()
	require.NoError(t, err)
	window := time.Duration(config.Cfg.CacheTTLDays) * 24 * time.Hour
	assert.Greater(t, ttl, window-time.Minute)
	assert.LessOrEqual(t, ttl, window)

	// 非确定性结论不入缓存
	other := freshNumber()
	require.NoError(t, cache.PutValidation(ctx, other, model.PlatformWhatsApp, model.MethodStandard, model.Result{Status: model.ResultUnknown}))
	miss, err := cache.GetValidation(ctx, other, model.PlatformWhatsApp, model.MethodStandard)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestDeletePendingJobRefundsReservation(t *testing.T) {
	requireInfra(t)
	ctx := context.Background()

	owner := uuid.NewString()
	require.NoError(t, Credit().Grant(ctx, owner, 50))

	inputs := []normalizer.RawInput{{Phone: freshNumber()}, {Phone: freshNumber()}}
	vr := model.ValidationRequest{WhatsApp: true}
	job, err := Job().prepare(ctx, owner, inputs, vr, false, config.Cfg.BulkMaxNumbers)
	require.NoError(t, err)

	require.NoError(t, Job().Delete(ctx, owner, job.PublicID))

	// 消息晚到：任务行已删，按不存在处理
	err = Job().Execute(ctx, job.PublicID)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.JobNotFound))

	balance, err := Credit().Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)
}

func TestExecuteStopsDispatchWhenCancelled(t *testing.T) {
	requireInfra(t)
	ctx := context.Background()

	mock := provider.NewMockValidator(model.PlatformWhatsApp, model.MethodStandard, 1)
	provider.SetValidator(mock)

	owner := uuid.NewString()
	require.NoError(t, Credit().Grant(ctx, owner, 50))

	inputs := make([]normalizer.RawInput, 0, 5)
	for i := 0; i < 5; i++ {
		inputs = append(inputs, normalizer.RawInput{Phone: freshNumber()})
	}
	vr := model.ValidationRequest{WhatsApp: true}
	job, err := Job().prepare(ctx, owner, inputs, vr, false, config.Cfg.BulkMaxNumbers)
	require.NoError(t, err)

	require.NoError(t, cache.MarkJobCancelled(ctx, job.PublicID))
	require.NoError(t, Job().Execute(ctx, job.PublicID))

	// 取消后的条目不再派发也不降级，预扣全退
	assert.Zero(t, mock.CallCount())

	fresh, err := Job().Get(ctx, owner, job.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, fresh.Status)
	assert.Zero(t, fresh.CreditsUsed)

	var pending int64
	require.NoError(t, database.DB().Model(&model.JobItem{}).
		Where("job_id = ? AND status = ?", fresh.ID, model.ItemStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(5), pending)

	balance, err := Credit().Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)
}

// haltingValidator 第一次被调用就撤销执行上下文，模拟 worker 停机
type haltingValidator struct {
	*provider.MockValidator
	cancel context.CancelFunc
	once   sync.Once
}

func (h *haltingValidator) Validate(ctx context.Context, target provider.Target, binding *provider.Binding) (model.Result, error) {
	h.once.Do(h.cancel)
	<-ctx.Done()
	return model.Result{Status: model.ResultUnknown}, ctx.Err()
}

func TestBulkInterruptionLeavesItemsPending(t *testing.T) {
	requireInfra(t)
	ctx := context.Background()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	provider.SetValidator(&haltingValidator{
		MockValidator: provider.NewMockValidator(model.PlatformWhatsApp, model.MethodStandard, 1),
		cancel:        cancel,
	})

	owner := uuid.NewString()
	require.NoError(t, Credit().Grant(ctx, owner, 50))

	inputs := make([]normalizer.RawInput, 0, 8)
	for i := 0; i < 8; i++ {
		inputs = append(inputs, normalizer.RawInput{Phone: freshNumber()})
	}
	vr := model.ValidationRequest{WhatsApp: true}
	job, err := Job().prepare(ctx, owner, inputs, vr, false, config.Cfg.BulkMaxNumbers)
	require.NoError(t, err)

	// 批量路径被外因中断：报错出去等消息重投，不把剩余条目降级
	err = Job().Execute(runCtx, job.PublicID)
	require.Error(t, err)

	fresh, err := Job().Get(ctx, owner, job.PublicID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, fresh.Status)
	assert.Zero(t, fresh.ProcessedNumbers)

	var pending int64
	require.NoError(t, database.DB().Model(&model.JobItem{}).
		Where("job_id = ? AND status = ?", fresh.ID, model.ItemStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(8), pending)
}
