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

// WhatsAppStandard 无状态的 WhatsApp Business API 校验，不占用账号池
type WhatsAppStandard struct {
	apiURL  string
	token   string
	phoneID string
}

func (w *WhatsAppStandard) Platform() model.Platform { return model.PlatformWhatsApp }
func (w *WhatsAppStandard) Method() model.Method     { return model.MethodStandard }
func (w *WhatsAppStandard) Cost() int                { return 1 }
func (w *WhatsAppStandard) NeedsAccount() bool       { return false }

type waContactsRequest struct {
	Blocking string   `json:"blocking"`
	Contacts []string `json:"contacts"`
}

type waContactsResponse struct {
	Contacts []struct {
		Input  string `json:"input"`
		Status string `json:"status"` // valid | invalid
		WaID   string `json:"wa_id"`
	} `json:"contacts"`
}

func (w *WhatsAppStandard) Validate(ctx context.Context, target Target, _ *Binding) (model.Result, error) {
	if w.token == "" {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("whatsapp api token not configured: %w", errors.ProviderError)
	}

	body, err := json.Marshal(waContactsRequest{
		Blocking: "wait",
		Contacts: []string{target.Phone},
	})
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("failed to marshal contacts request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/contacts", w.apiURL, w.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.token)

	resp, err := httpClient(nil).Do(req)
	if err != nil {
		return model.Result{Status: model.ResultUnknown}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("whatsapp api rate limited: %w", errors.ProviderError)
	}
	if resp.StatusCode != http.StatusOK {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("whatsapp api status %d: %w", resp.StatusCode, errors.ProviderError)
	}

	var parsed waContactsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.Result{Status: model.ResultUnknown}, fmt.Errorf("failed to decode contacts response: %w", errors.ProviderError)
	}

	if len(parsed.Contacts) == 0 {
		return model.Result{Status: model.ResultUnknown}, nil
	}

	contact := parsed.Contacts[0]
	switch contact.Status {
	case "valid":
		details := map[string]string{}
		if contact.WaID != "" {
			details["wa_id"] = contact.WaID
		}
		return model.Result{Status: model.ResultActive, Details: details}, nil
	case "invalid":
		return model.Result{Status: model.ResultInactive}, nil
	default:
		return model.Result{Status: model.ResultUnknown}, nil
	}
}
