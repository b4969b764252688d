package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"CekNomor/config"
	"CekNomor/internal/cache"
	"CekNomor/internal/model"
	"CekNomor/internal/model/dto"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/logger"
	"CekNomor/pkg/provider"
	"CekNomor/pkg/snowflake"
	"CekNomor/storage/database"
	"CekNomor/utils"
)

// AccountService 账号池管理：状态机、日配额、轮转选号、登录流程
type AccountService struct{}

var (
	accountService *AccountService
	accountOnce    sync.Once
)

func Account() *AccountService {

	accountOnce.Do(func() {
		accountService = &AccountService{}
	})
	return accountService
}

// transition 执行受守卫的状态迁移并写审计流水。非法迁移直接报错。
func (s *AccountService) transition(tx *gorm.DB, acct *model.Account, to model.AccountStatus, cause model.TransitionCause) error {
	from := acct.Status
	if from == to {
		return nil
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal account transition %s -> %s (cause %s)", from, to, cause)
	}

	if err := tx.Model(acct).Update("status", to).Error; err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	acct.Status = to

	audit := &model.AccountTransition{
		AccountID:  acct.ID,
		FromStatus: from,
		ToStatus:   to,
		Cause:      cause,
	}
	if err := tx.Create(audit).Error; err != nil {
		return fmt.Errorf("failed to record account transition: %w", err)
	}

	logger.Logger.Info("Account transitioned",
		zap.Int64("account_id", acct.PublicID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("cause", string(cause)),
	)

	return nil
}

// Create 运维创建账号，代理密码加密后落库
func (s *AccountService) Create(ctx context.Context, req dto.CreateAccountRequest) (*model.Account, error) {
	platform := model.Platform(req.Platform)
	if platform != model.PlatformWhatsApp && platform != model.PlatformTelegram {
		return nil, fmt.Errorf("unknown platform %q: %w", req.Platform, errors.InputError)
	}
	if !utils.ValidatePhone(req.PhoneNumber) {
		return nil, fmt.Errorf("%w", errors.InvalidNumber)
	}

	maxDaily := req.MaxDailyRequests
	if maxDaily <= 0 {
		maxDaily = config.Cfg.AccountDefaultMaxDaily
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account id: %w", err)
	}

	acct := &model.Account{
		PublicID:         publicID,
		Platform:         platform,
		PhoneNumber:      req.PhoneNumber,
		Label:            req.Label,
		Status:           model.AccountStatusLoggedOut,
		MaxDailyRequests: maxDaily,
		UsageDate:        utils.TodayUTC(),
	}

	if req.Proxy != nil {
		proxy, err := encryptProxy(req.Proxy)
		if err != nil {
			return nil, err
		}
		acct.Proxy = proxy
	}

	if err := database.DB().WithContext(ctx).Create(acct).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	logger.Logger.Info("Account created",
		zap.Int64("account_id", acct.PublicID),
		zap.String("platform", string(platform)),
	)

	return acct, nil
}

func encryptProxy(req *dto.ProxyConfigRequest) (*model.ProxyConfig, error) {
	proxy := &model.ProxyConfig{
		Enabled:  req.Enabled,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
	}
	if req.Password != "" {
		cipher, err := utils.EncryptSecret(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt proxy password: %w", err)
		}
		proxy.PasswordCipher = cipher
	}
	return proxy, nil
}

// Update 更新可变字段
func (s *AccountService) Update(ctx context.Context, accountID int64, req dto.UpdateAccountRequest) (*model.Account, error) {
	acct, err := s.GetByPublicID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Label != nil {
		updates["label"] = *req.Label
	}
	if req.MaxDailyRequests != nil && *req.MaxDailyRequests > 0 {
		updates["max_daily_requests"] = *req.MaxDailyRequests
	}
	if req.Proxy != nil {
		proxy, err := encryptProxy(req.Proxy)
		if err != nil {
			return nil, err
		}
		updates["proxy"] = proxy
	}

	if len(updates) == 0 {
		return acct, nil
	}

	if err := database.DB().WithContext(ctx).Model(acct).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return acct, nil
}

// Delete 软删除，在途任务仍持有引用时记录不会被物理清除
func (s *AccountService) Delete(ctx context.Context, accountID int64) error {
	acct, err := s.GetByPublicID(ctx, accountID)
	if err != nil {
		return err
	}
	return database.DB().WithContext(ctx).Delete(acct).Error
}

// List 列出全部账号，凭据由 DTO 层脱敏
func (s *AccountService) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	err := database.DB().WithContext(ctx).
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) GetByPublicID(ctx context.Context, accountID int64) (*model.Account, error) {
	var acct model.Account
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", accountID).
		First(&acct).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w", errors.AccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &acct, nil
}

// Login 发起登录：已登录直接返回；WhatsApp 走 QR 扫码，Telegram 走手机验证挂起。
// QR 码可刷新，刷新会使旧码失效（redis 覆盖写）。
func (s *AccountService) Login(ctx context.Context, accountID int64) (*dto.LoginResponse, error) {
	acct, err := s.GetByPublicID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if acct.Status == model.AccountStatusActive {
		return &dto.LoginResponse{Success: true, AlreadyLoggedIn: true}, nil
	}

	ttl := time.Duration(config.Cfg.QRCodeExpireSeconds) * time.Second
	if ttl <= 0 {
		ttl = 300 * time.Second
	}

	switch acct.Platform {
	case model.PlatformWhatsApp:
		code := uuid.NewString()
		if err := cache.SetQRCode(ctx, acct.ID, code, ttl); err != nil {
			return nil, fmt.Errorf("failed to store qr code: %w", err)
		}
		return &dto.LoginResponse{
			Success:   true,
			QRCode:    code,
			ExpiresIn: int(ttl.Seconds()),
		}, nil

	case model.PlatformTelegram:
		if err := cache.MarkVerificationPending(ctx, acct.ID, ttl); err != nil {
			return nil, fmt.Errorf("failed to mark verification pending: %w", err)
		}
		return &dto.LoginResponse{
			Success:                  true,
			PhoneVerificationPending: true,
		}, nil

	default:
		return nil, fmt.Errorf("%w", errors.LoginFailed)
	}
}

// ConfirmLogin 网关回调或轮询确认登录完成，账号迁移为 active
func (s *AccountService) ConfirmLogin(ctx context.Context, accountID int64, sessionRef string) error {
	acct, err := s.GetByPublicID(ctx, accountID)
	if err != nil {
		return err
	}

	db := database.DB().WithContext(ctx)
	err = db.Transaction(func(tx *gorm.DB) error {
		if sessionRef != "" {
			if err := tx.Model(acct).Update("session_ref", sessionRef).Error; err != nil {
				return fmt.Errorf("failed to store session ref: %w", err)
			}
		}
		return s.transition(tx, acct, model.AccountStatusActive, model.CauseLoginSuccess)
	})
	if err != nil {
		return err
	}

	_ = cache.ClearQRCode(ctx, acct.ID)
	_ = cache.ClearVerificationPending(ctx, acct.ID)
	return nil
}

// Logout 显式登出，任意状态可达
func (s *AccountService) Logout(ctx context.Context, accountID int64) error {
	acct, err := s.GetByPublicID(ctx, accountID)
	if err != nil {
		return err
	}

	db := database.DB().WithContext(ctx)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(acct).Update("session_ref", "").Error; err != nil {
			return fmt.Errorf("failed to clear session ref: %w", err)
		}
		return s.transition(tx, acct, model.AccountStatusLoggedOut, model.CauseLogout)
	})
	if err != nil {
		return err
	}

	_ = cache.ClearQRCode(ctx, acct.ID)
	_ = cache.ClearVerificationPending(ctx, acct.ID)
	return nil
}

// Acquire 为一次派发选取账号并原子占用一次配额。
// 轮转近似：按 last_used_at 升序取最久未用的可用账号；
// daily_usage 自增用 CAS 条件更新防止并发超配。
func (s *AccountService) Acquire(ctx context.Context, platform model.Platform) (*model.Account, *provider.Binding, error) {
	db := database.DB().WithContext(ctx)
	today := utils.TodayUTC()

	// 惰性日切也要覆盖 rate_limited：调度器挂了的话，跨日后在这里把
	// 昨天打满配额的账号放回池子
	var limited []model.Account
	if err := db.
		Where("platform = ? AND status = ? AND usage_date <> ?", platform, model.AccountStatusRateLimited, today).
		Find(&limited).Error; err != nil {
		logger.Logger.Warn("Failed to list rate-limited accounts for rollover", zap.Error(err))
	}
	for i := range limited {
		acct := &limited[i]
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(acct).
				Updates(map[string]interface{}{"daily_usage": 0, "usage_date": today}).Error; err != nil {
				return fmt.Errorf("failed to roll over daily usage: %w", err)
			}
			return s.transition(tx, acct, model.AccountStatusActive, model.CauseQuotaRollover)
		})
		if err != nil {
			logger.Logger.Warn("Failed to restore rate-limited account",
				zap.Int64("account_id", acct.PublicID),
				zap.Error(err),
			)
		}
	}

	// 最多尝试几个候选账号，CAS 失败说明并发占用，换下一个
	for attempt := 0; attempt < 5; attempt++ {
		var acct model.Account
		err := db.
			Where("platform = ? AND status = ? AND daily_usage < max_daily_requests", platform, model.AccountStatusActive).
			Order("last_used_at ASC NULLS FIRST").
			First(&acct).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("%w", errors.NoAvailableAccount)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to select account: %w", err)
		}

		// 惰性日切：跨过 UTC 零点后首次选中时清零（调度器兜底）
		if acct.UsageDate != today {
			if err := db.Model(&acct).
				Updates(map[string]interface{}{"daily_usage": 0, "usage_date": today}).Error; err != nil {
				return nil, nil, fmt.Errorf("failed to roll over daily usage: %w", err)
			}
			acct.DailyUsage = 0
		}

		now := time.Now()
		res := db.Model(&model.Account{}).
			Where("id = ? AND status = ? AND daily_usage < max_daily_requests", acct.ID, model.AccountStatusActive).
			Updates(map[string]interface{}{
				"daily_usage":  gorm.Expr("daily_usage + 1"),
				"last_used_at": now,
			})
		if res.Error != nil {
			return nil, nil, fmt.Errorf("failed to bump daily usage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			continue // 并发占用或被迁移走，换下一个候选
		}

		acct.DailyUsage++
		acct.LastUsedAt = &now

		// 打满配额，迁移到 rate_limited，日切时恢复
		if acct.DailyUsage >= acct.MaxDailyRequests {
			if err := db.Transaction(func(tx *gorm.DB) error {
				return s.transition(tx, &acct, model.AccountStatusRateLimited, model.CauseQuotaExhausted)
			}); err != nil {
				logger.Logger.Warn("Failed to rate-limit exhausted account", zap.Error(err))
			}
		}

		binding, err := s.buildBinding(&acct)
		if err != nil {
			return nil, nil, err
		}
		return &acct, binding, nil
	}

	return nil, nil, fmt.Errorf("%w", errors.NoAvailableAccount)
}

// buildBinding 组装派发上下文，代理密码解密后只存在于内存
func (s *AccountService) buildBinding(acct *model.Account) (*provider.Binding, error) {
	binding := &provider.Binding{
		AccountID:  acct.PublicID,
		Phone:      acct.PhoneNumber,
		SessionRef: acct.SessionRef,
	}

	if acct.Proxy != nil && acct.Proxy.Enabled {
		descriptor := &provider.ProxyDescriptor{
			Host:     acct.Proxy.Host,
			Port:     acct.Proxy.Port,
			Username: acct.Proxy.Username,
		}
		if acct.Proxy.PasswordCipher != "" {
			password, err := utils.DecryptSecretBase64(acct.Proxy.PasswordCipher)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt proxy password: %w", err)
			}
			descriptor.Password = password
		}
		binding.Proxy = descriptor
	}

	return binding, nil
}

// ReportBan 供应商封号信号：active → banned
func (s *AccountService) ReportBan(ctx context.Context, accountPublicID int64) {
	s.reportTransition(ctx, accountPublicID, model.AccountStatusBanned, model.CauseBanSignal)
}

// ReportError 会话异常：active → error，重登后恢复
func (s *AccountService) ReportError(ctx context.Context, accountPublicID int64) {
	s.reportTransition(ctx, accountPublicID, model.AccountStatusError, model.CauseProviderError)
}

func (s *AccountService) reportTransition(ctx context.Context, accountPublicID int64, to model.AccountStatus, cause model.TransitionCause) {
	acct, err := s.GetByPublicID(ctx, accountPublicID)
	if err != nil {
		logger.Logger.Warn("Cannot transition unknown account",
			zap.Int64("account_id", accountPublicID),
			zap.Error(err),
		)
		return
	}

	err = database.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.transition(tx, acct, to, cause)
	})
	if err != nil {
		logger.Logger.Warn("Account transition failed",
			zap.Int64("account_id", accountPublicID),
			zap.String("to", string(to)),
			zap.Error(err),
		)
	}
}

// ResetDailyUsage 调度器在 UTC 零点调用：清零全部账号用量，
// 被限频的账号恢复为 active
func (s *AccountService) ResetDailyUsage(ctx context.Context) error {
	db := database.DB().WithContext(ctx)
	today := utils.TodayUTC()

	if err := db.Model(&model.Account{}).
		Where("usage_date <> ? OR daily_usage > 0", today).
		Updates(map[string]interface{}{"daily_usage": 0, "usage_date": today}).Error; err != nil {
		return fmt.Errorf("failed to reset daily usage: %w", err)
	}

	var limited []model.Account
	if err := db.Where("status = ?", model.AccountStatusRateLimited).Find(&limited).Error; err != nil {
		return fmt.Errorf("failed to list rate-limited accounts: %w", err)
	}

	for i := range limited {
		acct := &limited[i]
		err := db.Transaction(func(tx *gorm.DB) error {
			return s.transition(tx, acct, model.AccountStatusActive, model.CauseQuotaRollover)
		})
		if err != nil {
			logger.Logger.Warn("Failed to restore rate-limited account",
				zap.Int64("account_id", acct.PublicID),
				zap.Error(err),
			)
		}
	}

	logger.Logger.Info("Daily account usage reset",
		zap.Int("restored_accounts", len(limited)),
	)

	return nil
}
