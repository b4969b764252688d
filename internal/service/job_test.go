package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CekNomor/internal/model"
	"CekNomor/internal/normalizer"
	"CekNomor/pkg/errors"
)

func TestPrepareRejectsEmptyPlatformSelection(t *testing.T) {
	inputs := []normalizer.RawInput{{Phone: "081234567890"}}

	_, err := Job().prepare(context.Background(), "owner-1", inputs, model.ValidationRequest{}, false, 100)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.InputError))
}

func TestPrepareRejectsInvalidMethodCombination(t *testing.T) {
	inputs := []normalizer.RawInput{{Phone: "081234567890"}}
	vr := model.ValidationRequest{WhatsApp: true, WhatsAppMethod: model.MethodMTP}

	_, err := Job().prepare(context.Background(), "owner-1", inputs, vr, false, 100)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.InputError))
}

func TestPrepareRejectsAllInvalidNumbers(t *testing.T) {
	inputs := []normalizer.RawInput{{Phone: "abc"}, {Phone: "12"}}
	vr := model.ValidationRequest{WhatsApp: true}

	_, err := Job().prepare(context.Background(), "owner-1", inputs, vr, false, 100)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.InvalidNumber))
}

func TestPrepareCapsRawInputs(t *testing.T) {
	// 上限按去重前的原始输入数算，重复号码压缩到限内也不放行
	inputs := make([]normalizer.RawInput, 0, 21)
	for i := 0; i < 21; i++ {
		inputs = append(inputs, normalizer.RawInput{Phone: "081234567890"})
	}
	vr := model.ValidationRequest{WhatsApp: true}

	_, err := Job().prepare(context.Background(), "owner-1", inputs, vr, true, 20)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.TooManyNumbers))
}

func TestApplySummary(t *testing.T) {
	active := &model.Result{Status: model.ResultActive}
	business := &model.Result{Status: model.ResultActive, Details: map[string]string{"is_business": "true"}}
	inactive := &model.Result{Status: model.ResultInactive}
	unknown := &model.Result{Status: model.ResultUnknown}

	cases := []struct {
		name string
		item model.JobItem
		want model.JobSummary
	}{
		{
			"error item",
			model.JobItem{Status: model.ItemStatusError},
			model.JobSummary{Errors: 1},
		},
		{
			"whatsapp business active",
			model.JobItem{Status: model.ItemStatusDone, WhatsAppResult: business},
			model.JobSummary{WhatsAppActive: 1, WhatsAppBusiness: 1},
		},
		{
			"both platforms active",
			model.JobItem{Status: model.ItemStatusDone, WhatsAppResult: active, TelegramResult: active},
			model.JobSummary{WhatsAppActive: 1, TelegramActive: 1},
		},
		{
			"definitive inactive",
			model.JobItem{Status: model.ItemStatusDone, WhatsAppResult: inactive, TelegramResult: inactive},
			model.JobSummary{Inactive: 1},
		},
		{
			"inactive with unknown companion",
			model.JobItem{Status: model.ItemStatusDone, WhatsAppResult: inactive, TelegramResult: unknown},
			model.JobSummary{Inactive: 1},
		},
		{
			"active with unknown companion",
			model.JobItem{Status: model.ItemStatusDone, WhatsAppResult: unknown, TelegramResult: active},
			model.JobSummary{TelegramActive: 1},
		},
		{
			// 超时降级的条目一个结论都没有，算 errors 不算 inactive
			"all unknown counts as error",
			model.JobItem{Status: model.ItemStatusDone, WhatsAppResult: unknown, TelegramResult: unknown},
			model.JobSummary{Errors: 1},
		},
		{
			"single platform unknown",
			model.JobItem{Status: model.ItemStatusDone, WhatsAppResult: unknown},
			model.JobSummary{Errors: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var sum model.JobSummary
			applySummary(&sum, &tc.item)
			assert.Equal(t, tc.want, sum)
		})
	}
}
