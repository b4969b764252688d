package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
)

// WhatsAppDeepLinkProfile 账号绑定的深链校验，经由持有登录会话的 WhatsApp 网关，
// 在存在性之外额外取回头像、最后在线与商业账号标记
type WhatsAppDeepLinkProfile struct {
	gatewayURL string
}

func (w *WhatsAppDeepLinkProfile) Platform() model.Platform { return model.PlatformWhatsApp }
func (w *WhatsAppDeepLinkProfile) Method() model.Method     { return model.MethodDeepLinkProfile }
func (w *WhatsAppDeepLinkProfile) Cost() int                { return 3 }
func (w *WhatsAppDeepLinkProfile) NeedsAccount() bool       { return true }

type waGatewayCheckResponse struct {
	Exists     bool   `json:"exists"`
	ProfilePic string `json:"profile_pic"`
	LastSeen   string `json:"last_seen"`
	IsBusiness bool   `json:"is_business"`
	Banned     bool   `json:"banned"` // 网关检测到会话被封
}

func (w *WhatsAppDeepLinkProfile) Validate(ctx context.Context, target Target, binding *Binding) (model.Result, error) {
	if binding == nil {
		return model.Result{Status: model.ResultError}, fmt.Errorf("deeplink check requires an account binding: %w", errors.NoAvailableAccount)
	}

	body, err := json.Marshal(map[string]string{"phone": target.Phone})
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, err
	}

	endpoint := fmt.Sprintf("%s/sessions/%s/check", w.gatewayURL, binding.SessionRef)
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
		return model.Result{Status: model.ResultError}, fmt.Errorf("gateway session rejected: %w", errors.ProviderBanned)
	}
	if resp.StatusCode != http.StatusOK {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("whatsapp gateway status %d: %w", resp.StatusCode, errors.ProviderError)
	}

	var parsed waGatewayCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("failed to decode gateway response: %w", errors.ProviderError)
	}

	if parsed.Banned {
		return model.Result{Status: model.ResultError}, fmt.Errorf("%w", errors.ProviderBanned)
	}

	if !parsed.Exists {
		return model.Result{Status: model.ResultInactive}, nil
	}

	details := map[string]string{
		"is_business": strconv.FormatBool(parsed.IsBusiness),
	}
	if parsed.ProfilePic != "" {
		details["profile_pic"] = parsed.ProfilePic
	}
	if parsed.LastSeen != "" {
		details["last_seen"] = parsed.LastSeen
	}

	return model.Result{Status: model.ResultActive, Details: details}, nil
}
