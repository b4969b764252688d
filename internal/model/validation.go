package model

// Platform 校验平台枚举
type Platform string

const (
	PlatformWhatsApp Platform = "whatsapp"
	PlatformTelegram Platform = "telegram"
)

// Method 校验方式枚举，按平台分层计费
type Method string

const (
	MethodStandard        Method = "standard"
	MethodDeepLinkProfile Method = "deeplink_profile" // 仅 WhatsApp
	MethodMTP             Method = "mtp"              // 仅 Telegram
	MethodMTPProfile      Method = "mtp_profile"      // 仅 Telegram
)

// ResultStatus 单平台校验结果状态
type ResultStatus string

const (
	ResultActive   ResultStatus = "active"
	ResultInactive ResultStatus = "inactive"
	ResultUnknown  ResultStatus = "unknown"
	ResultError    ResultStatus = "error"
)

// Result 单平台单号码的校验结果
type Result struct {
	Status  ResultStatus      `json:"status"`
	Details map[string]string `json:"details,omitempty"` // 头像/最后在线/商业账号等扩展字段
	Cached  bool              `json:"cached,omitempty"`
}

// Definitive 判断结果是否为确定性结论，只有确定性结论才会写缓存、计费
func (r Result) Definitive() bool {
	return r.Status == ResultActive || r.Status == ResultInactive
}

// ValidationRequest 一次提交所选的平台与各自的校验方式
type ValidationRequest struct {
	WhatsApp       bool   `json:"validate_whatsapp"`
	Telegram       bool   `json:"validate_telegram"`
	WhatsAppMethod Method `json:"validation_method"`
	TelegramMethod Method `json:"telegram_validation_method"`
}

// Selections 展开为 (platform, method) 组合，未选平台不出现
func (vr ValidationRequest) Selections() []Selection {
	var sels []Selection
	if vr.WhatsApp {
		m := vr.WhatsAppMethod
		if m == "" {
			m = MethodStandard
		}
		sels = append(sels, Selection{Platform: PlatformWhatsApp, Method: m})
	}
	if vr.Telegram {
		m := vr.TelegramMethod
		if m == "" {
			m = MethodStandard
		}
		sels = append(sels, Selection{Platform: PlatformTelegram, Method: m})
	}
	return sels
}

// Selection 一个平台与其校验方式
type Selection struct {
	Platform Platform `json:"platform"`
	Method   Method   `json:"method"`
}

// 计费表，按平台/方式组合对每个去重后的号码求和
var methodCosts = map[Platform]map[Method]int{
	PlatformWhatsApp: {
		MethodStandard:        1,
		MethodDeepLinkProfile: 3,
	},
	PlatformTelegram: {
		MethodStandard:   1,
		MethodMTP:        2,
		MethodMTPProfile: 3,
	},
}

// MethodCost 返回平台/方式组合的单号码费用，非法组合返回 0 和 false
func MethodCost(platform Platform, method Method) (int, bool) {
	costs, ok := methodCosts[platform]
	if !ok {
		return 0, false
	}
	cost, ok := costs[method]
	return cost, ok
}

// CostPerNumber 一次请求中单个号码的总费用
func (vr ValidationRequest) CostPerNumber() (int, bool) {
	total := 0
	for _, sel := range vr.Selections() {
		cost, ok := MethodCost(sel.Platform, sel.Method)
		if !ok {
			return 0, false
		}
		total += cost
	}
	return total, true
}
