package dto

import (
	"time"

	"CekNomor/internal/model"
)

// CreateAccountRequest 运维创建平台账号
type CreateAccountRequest struct {
	Platform         string              `json:"platform"` // whatsapp | telegram
	PhoneNumber      string              `json:"phone_number"`
	Label            string              `json:"label"`
	MaxDailyRequests int                 `json:"max_daily_requests"`
	Proxy            *ProxyConfigRequest `json:"proxy,omitempty"`
}

// UpdateAccountRequest 可更新字段，nil 表示不修改
type UpdateAccountRequest struct {
	Label            *string             `json:"label,omitempty"`
	MaxDailyRequests *int                `json:"max_daily_requests,omitempty"`
	Proxy            *ProxyConfigRequest `json:"proxy,omitempty"`
}

// ProxyConfigRequest 代理配置入参，密码只写不读
type ProxyConfigRequest struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProxySummary 列表接口中的代理摘要，凭据脱敏
type ProxySummary struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// AccountResponse 账号列表/详情响应，不含任何密钥材料
type AccountResponse struct {
	AccountID        int64               `json:"account_id"`
	Platform         model.Platform      `json:"platform"`
	PhoneNumber      string              `json:"phone_number"`
	Label            string              `json:"label"`
	Status           model.AccountStatus `json:"status"`
	DailyUsage       int                 `json:"daily_usage"`
	MaxDailyRequests int                 `json:"max_daily_requests"`
	Proxy            *ProxySummary       `json:"proxy,omitempty"`
	LastUsedAt       *time.Time          `json:"last_used_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// NewAccountResponse 由模型构造脱敏响应
func NewAccountResponse(acct *model.Account) AccountResponse {
	resp := AccountResponse{
		AccountID:        acct.PublicID,
		Platform:         acct.Platform,
		PhoneNumber:      acct.PhoneNumber,
		Label:            acct.Label,
		Status:           acct.Status,
		DailyUsage:       acct.DailyUsage,
		MaxDailyRequests: acct.MaxDailyRequests,
		LastUsedAt:       acct.LastUsedAt,
		CreatedAt:        acct.CreatedAt,
	}
	if acct.Proxy != nil {
		resp.Proxy = &ProxySummary{
			Enabled: acct.Proxy.Enabled,
			Host:    acct.Proxy.Host,
			Port:    acct.Proxy.Port,
		}
	}
	return resp
}

// LoginResponse 登录发起结果：已登录 / QR 码待扫 / 手机验证待确认
type LoginResponse struct {
	Success                  bool   `json:"success"`
	AlreadyLoggedIn          bool   `json:"already_logged_in,omitempty"`
	QRCode                   string `json:"qr_code,omitempty"`
	ExpiresIn                int    `json:"expires_in,omitempty"`
	PhoneVerificationPending bool   `json:"phone_verification_pending,omitempty"`
}

// CreditBalanceResponse 额度余额
type CreditBalanceResponse struct {
	OwnerID string `json:"owner_id"`
	Balance int    `json:"balance"`
}
