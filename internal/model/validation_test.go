package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodCost(t *testing.T) {
	cases := []struct {
		platform Platform
		method   Method
		cost     int
		ok       bool
	}{
		{PlatformWhatsApp, MethodStandard, 1, true},
		{PlatformWhatsApp, MethodDeepLinkProfile, 3, true},
		{PlatformTelegram, MethodStandard, 1, true},
		{PlatformTelegram, MethodMTP, 2, true},
		{PlatformTelegram, MethodMTPProfile, 3, true},
		// 非法组合
		{PlatformWhatsApp, MethodMTP, 0, false},
		{PlatformWhatsApp, MethodMTPProfile, 0, false},
		{PlatformTelegram, MethodDeepLinkProfile, 0, false},
		{Platform("sms"), MethodStandard, 0, false},
	}

	for _, tc := range cases {
		cost, ok := MethodCost(tc.platform, tc.method)
		assert.Equal(t, tc.ok, ok, "%s/%s", tc.platform, tc.method)
		assert.Equal(t, tc.cost, cost, "%s/%s", tc.platform, tc.method)
	}
}

func TestCostPerNumber(t *testing.T) {
	both := ValidationRequest{
		WhatsApp:       true,
		Telegram:       true,
		WhatsAppMethod: MethodDeepLinkProfile,
		TelegramMethod: MethodMTP,
	}
	cost, ok := both.CostPerNumber()
	require.True(t, ok)
	assert.Equal(t, 5, cost)

	// 未指定方式默认 standard
	defaulted := ValidationRequest{WhatsApp: true, Telegram: true}
	cost, ok = defaulted.CostPerNumber()
	require.True(t, ok)
	assert.Equal(t, 2, cost)

	invalid := ValidationRequest{WhatsApp: true, WhatsAppMethod: MethodMTP}
	_, ok = invalid.CostPerNumber()
	assert.False(t, ok)

	none := ValidationRequest{}
	cost, ok = none.CostPerNumber()
	require.True(t, ok)
	assert.Zero(t, cost)
}

func TestSelections(t *testing.T) {
	vr := ValidationRequest{WhatsApp: true, TelegramMethod: MethodMTP}
	sels := vr.Selections()

	require.Len(t, sels, 1)
	assert.Equal(t, PlatformWhatsApp, sels[0].Platform)
	assert.Equal(t, MethodStandard, sels[0].Method)

	vr.Telegram = true
	sels = vr.Selections()
	require.Len(t, sels, 2)
	assert.Equal(t, Selection{Platform: PlatformTelegram, Method: MethodMTP}, sels[1])
}

func TestResultDefinitive(t *testing.T) {
	assert.True(t, Result{Status: ResultActive}.Definitive())
	assert.True(t, Result{Status: ResultInactive}.Definitive())
	assert.False(t, Result{Status: ResultUnknown}.Definitive())
	assert.False(t, Result{Status: ResultError}.Definitive())
}
