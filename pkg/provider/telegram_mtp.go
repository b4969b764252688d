package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
)

// TelegramMTP 账号绑定的原生客户端校验，经由持有 MTProto 会话的网关，
// 支持手机号+用户名的存在性判定；profile 档位额外取回头像/签名/最后在线/隐私标记
type TelegramMTP struct {
	gatewayURL string
	profile    bool
}

func (t *TelegramMTP) Platform() model.Platform { return model.PlatformTelegram }

func (t *TelegramMTP) Method() model.Method {
	if t.profile {
		return model.MethodMTPProfile
	}
	return model.MethodMTP
}

func (t *TelegramMTP) Cost() int {
	if t.profile {
		return 3
	}
	return 2
}

func (t *TelegramMTP) NeedsAccount() bool { return true }

type mtpResolveRequest struct {
	Phone    string `json:"phone"`
	Username string `json:"username,omitempty"`
	Profile  bool   `json:"profile"`
}

type mtpResolveResponse struct {
	Found     bool   `json:"found"`
	Username  string `json:"username"`
	Photo     string `json:"photo"`
	Bio       string `json:"bio"`
	LastSeen  string `json:"last_seen"`
	Privacy   string `json:"privacy"`
	FloodWait bool   `json:"flood_wait"`
	Banned    bool   `json:"banned"`
}

func (t *TelegramMTP) Validate(ctx context.Context, target Target, binding *Binding) (model.Result, error) {
	if binding == nil {
		return model.Result{Status: model.ResultError}, fmt.Errorf("mtp check requires an account binding: %w", errors.NoAvailableAccount)
	}

	body, err := json.Marshal(mtpResolveRequest{
		Phone:    target.Phone,
		Username: target.Identifier,
		Profile:  t.profile,
	})
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, err
	}

	endpoint := fmt.Sprintf("%s/sessions/%s/resolve", t.gatewayURL, binding.SessionRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(binding.Proxy).Do(req)
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return model.Result{Status: model.ResultError}, fmt.Errorf("mtp session rejected: %w", errors.ProviderBanned)
	}
	if resp.StatusCode != http.StatusOK {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("mtp gateway status %d: %w", resp.StatusCode, errors.ProviderError)
	}

	var parsed mtpResolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("failed to decode resolve response: %w", errors.ProviderError)
	}

	if parsed.Banned {
		return model.Result{Status: model.ResultError}, fmt.Errorf("%w", errors.ProviderBanned)
	}
	if parsed.FloodWait {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("mtp flood wait: %w", errors.ProviderError)
	}

	if !parsed.Found {
		return model.Result{Status: model.ResultInactive}, nil
	}

	details := map[string]string{}
	if parsed.Username != "" {
		details["username"] = parsed.Username
	}
	if t.profile {
		if parsed.Photo != "" {
			details["photo"] = parsed.Photo
		}
		if parsed.Bio != "" {
			details["bio"] = parsed.Bio
		}
		if parsed.LastSeen != "" {
			details["last_seen"] = parsed.LastSeen
		}
		if parsed.Privacy != "" {
			details["privacy"] = parsed.Privacy
		}
	}

	return model.Result{Status: model.ResultActive, Details: details}, nil
}
