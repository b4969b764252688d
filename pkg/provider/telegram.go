package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
)

// TelegramStandard 无状态的 Bot API 用户名查询。Bot API 无法按手机号查询，
// 没有用户名标识时结论为 unknown。
type TelegramStandard struct {
	apiURL   string
	botToken string
}

func (t *TelegramStandard) Platform() model.Platform { return model.PlatformTelegram }
func (t *TelegramStandard) Method() model.Method     { return model.MethodStandard }
func (t *TelegramStandard) Cost() int                { return 1 }
func (t *TelegramStandard) NeedsAccount() bool       { return false }

type tgGetChatResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		ID       int64  `json:"id"`
		Type     string `json:"type"`
		Username string `json:"username"`
	} `json:"result"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (t *TelegramStandard) Validate(ctx context.Context, target Target, _ *Binding) (model.Result, error) {
	if t.botToken == "" {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("telegram bot token not configured: %w", errors.ProviderError)
	}

	username := strings.TrimPrefix(strings.TrimSpace(target.Identifier), "@")
	if username == "" {
		return model.Result{
			Status:  model.ResultUnknown,
			Details: map[string]string{"reason": "no username, bot api cannot resolve phone numbers"},
		}, nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/getChat?chat_id=%s",
		t.apiURL, t.botToken, url.QueryEscape("@"+username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, err
	}

	resp, err := httpClient(nil).Do(req)
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	var parsed tgGetChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("failed to decode getChat response: %w", errors.ProviderError)
	}

	if parsed.OK {
		return model.Result{
			Status:  model.ResultActive,
			Details: map[string]string{"username": parsed.Result.Username},
		}, nil
	}

	// chat not found 是确定性的"不存在"
	if parsed.ErrorCode == 400 && strings.Contains(strings.ToLower(parsed.Description), "not found") {
		return model.Result{Status: model.ResultInactive}, nil
	}

	return model.Result{Status: model.ResultUnknown}, fmt.Errorf("telegram api error %d: %s: %w",
		parsed.ErrorCode, parsed.Description, errors.ProviderError)
}
