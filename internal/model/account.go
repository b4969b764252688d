package model

import (
	"time"
)

// AccountStatus 账号状态枚举，显式状态机，见 CanTransition
type AccountStatus string

const (
	AccountStatusLoggedOut   AccountStatus = "logged_out"
	AccountStatusActive      AccountStatus = "active"
	AccountStatusRateLimited AccountStatus = "rate_limited"
	AccountStatusBanned      AccountStatus = "banned"
	AccountStatusError       AccountStatus = "error"
)

// TransitionCause 状态迁移原因，写入审计流水
type TransitionCause string

const (
	CauseLoginSuccess   TransitionCause = "login_success"
	CauseBanSignal      TransitionCause = "ban_signal"
	CauseQuotaExhausted TransitionCause = "quota_exhausted"
	CauseQuotaRollover  TransitionCause = "quota_rollover"
	CauseLogout         TransitionCause = "logout"
	CauseProviderError  TransitionCause = "provider_error"
)

// accountTransitions 账号状态机的合法边。显式登出从任意状态可达。
var accountTransitions = map[AccountStatus]map[AccountStatus]bool{
	AccountStatusLoggedOut: {
		AccountStatusActive: true, // login success
	},
	AccountStatusActive: {
		AccountStatusBanned:      true, // provider ban signal
		AccountStatusRateLimited: true, // daily_usage == max_daily_requests
		AccountStatusError:       true, // provider session error
	},
	AccountStatusRateLimited: {
		AccountStatusActive: true, // UTC 零点日切重置
	},
	AccountStatusError: {
		AccountStatusActive: true, // re-login
	},
}

// CanTransition 账号状态机守卫
func (s AccountStatus) CanTransition(next AccountStatus) bool {
	if next == AccountStatusLoggedOut {
		return true // 显式登出任何状态都允许
	}
	return accountTransitions[s][next]
}

// ProxyConfig 账号出口代理配置，凭据密文存储，列表接口脱敏
type ProxyConfig struct {
	Enabled        bool   `json:"enabled"`
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	Username       string `json:"username,omitempty"`
	PasswordCipher string `json:"password_cipher,omitempty"` // base64(AES-GCM)，绝不明文落库
}

// Account 平台账号，用于账号绑定类校验
type Account struct {
	BaseModel
	PublicID         int64         `gorm:"uniqueIndex;not null" json:"account_id"`
	Platform         Platform      `gorm:"type:varchar(16);not null;index:idx_accounts_platform" json:"platform"`
	PhoneNumber      string        `gorm:"type:varchar(20);not null" json:"phone_number"`
	Label            string        `gorm:"type:varchar(64);not null;default:''" json:"label"`
	Status           AccountStatus `gorm:"type:varchar(16);not null;default:'logged_out';index:idx_accounts_status" json:"status"`
	DailyUsage       int           `gorm:"not null;default:0" json:"daily_usage"`
	MaxDailyRequests int           `gorm:"not null" json:"max_daily_requests"`
	Proxy            *ProxyConfig  `gorm:"type:jsonb;serializer:json" json:"proxy,omitempty"`
	SessionRef       string        `gorm:"type:varchar(128);not null;default:''" json:"-"` // 网关侧会话引用
	LastUsedAt       *time.Time    `gorm:"index" json:"last_used_at,omitempty"`
	UsageDate        string        `gorm:"type:varchar(10);not null;default:''" json:"usage_date"` // UTC 日期，日切判定用
}

// TableName 指定表名
func (Account) TableName() string {
	return "platform_accounts"
}

// AccountTransition 账号状态迁移审计流水，只追加
type AccountTransition struct {
	BaseModel
	AccountID  int64           `gorm:"not null;index:idx_account_transitions_account" json:"account_id"`
	FromStatus AccountStatus   `gorm:"type:varchar(16);not null" json:"from_status"`
	ToStatus   AccountStatus   `gorm:"type:varchar(16);not null" json:"to_status"`
	Cause      TransitionCause `gorm:"type:varchar(24);not null" json:"cause"`
}

// TableName 指定表名
func (AccountTransition) TableName() string {
	return "account_transitions"
}
