package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"CekNomor/config"
	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/logger"
)

// Target 待校验对象：规范化号码 + 可选的自由文本标识（Telegram 用户名查询用）
type Target struct {
	Phone      string
	Identifier string
}

// ProxyDescriptor 派发时附带的代理描述，凭据已解密，只存在于内存
type ProxyDescriptor struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Binding 账号绑定类校验的派发上下文
type Binding struct {
	AccountID  int64
	Phone      string
	SessionRef string
	Proxy      *ProxyDescriptor
}

// Validator 校验能力接口，每个平台/方式组合一个变体
type Validator interface {
	Platform() model.Platform
	Method() model.Method
	// Cost 单号码费用
	Cost() int
	// NeedsAccount 是否需要绑定账号池中的账号
	NeedsAccount() bool
	Validate(ctx context.Context, target Target, binding *Binding) (model.Result, error)
}

var (
	registry     map[model.Platform]map[model.Method]Validator
	registryOnce sync.Once
)

// Init 按配置装配全部校验变体
func Init() error {
	registryOnce.Do(func() {
		cfg := config.Cfg

		registry = map[model.Platform]map[model.Method]Validator{
			model.PlatformWhatsApp: {
				model.MethodStandard: &WhatsAppStandard{
					apiURL:  cfg.WhatsAppAPIURL,
					token:   cfg.WhatsAppAPIToken,
					phoneID: cfg.WhatsAppPhoneID,
				},
				model.MethodDeepLinkProfile: &WhatsAppDeepLinkProfile{
					gatewayURL: cfg.WhatsAppGatewayURL,
				},
			},
			model.PlatformTelegram: {
				model.MethodStandard: &TelegramStandard{
					apiURL:   cfg.TelegramAPIURL,
					botToken: cfg.TelegramBotToken,
				},
				model.MethodMTP: &TelegramMTP{
					gatewayURL: cfg.TelegramMTPGateway,
				},
				model.MethodMTPProfile: &TelegramMTP{
					gatewayURL: cfg.TelegramMTPGateway,
					profile:    true,
				},
			},
		}

		logger.Logger.Info("Provider registry initialized",
			zap.Int("platforms", len(registry)),
		)
	})

	return nil
}

// Get 取出平台/方式对应的校验变体
func Get(platform model.Platform, method model.Method) (Validator, error) {
	methods, ok := registry[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform %q: %w", platform, errors.InputError)
	}
	v, ok := methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown method %q for platform %q: %w", method, platform, errors.InputError)
	}
	return v, nil
}

// SetValidator 覆盖注册表中的变体，测试注入 mock 用
func SetValidator(v Validator) {
	if registry == nil {
		registry = map[model.Platform]map[model.Method]Validator{}
	}
	if registry[v.Platform()] == nil {
		registry[v.Platform()] = map[model.Method]Validator{}
	}
	registry[v.Platform()][v.Method()] = v
}

// httpClient 构造单次派发用的 HTTP 客户端，代理按账号配置附加
func httpClient(proxy *ProxyDescriptor) *http.Client {
	timeout := time.Duration(config.Cfg.ProviderTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &http.Client{Timeout: timeout}

	if proxy != nil {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", proxy.Host, proxy.Port),
		}
		if proxy.Username != "" {
			proxyURL.User = url.UserPassword(proxy.Username, proxy.Password)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return client
}
