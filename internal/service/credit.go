package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"CekNomor/internal/model"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/logger"
	"CekNomor/storage/database"
)

type CreditService struct{}

var (
	creditService *CreditService
	creditOnce    sync.Once
)

func Credit() *CreditService {

	creditOnce.Do(func() {
		creditService = &CreditService{}
	})
	return creditService
}

// latestBalance 读取 owner 当前余额（最新一条流水的 balance_after）
// 加悲观锁，同一 owner 的余额变更串行化
func latestBalance(tx *gorm.DB, ownerID string, forUpdate bool) (int, error) {
	q := tx.Model(&model.CreditTransaction{}).
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Limit(1)

	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var last model.CreditTransaction
	err := q.Find(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query credit balance: %w", err)
	}
	if last.ID == 0 {
		return 0, nil
	}
	return last.BalanceAfter, nil
}

// Balance 查询当前余额
func (s *CreditService) Balance(ctx context.Context, ownerID string) (int, error) {
	db := database.DB().WithContext(ctx)
	return latestBalance(db, ownerID, false)
}

// Reserve 预扣减额度（冻结）。余额不足时整体失败且无副作用。
func (s *CreditService) Reserve(ctx context.Context, ownerID string, jobID *int64, amount int) error {
	db := database.DB().WithContext(ctx)

	return db.Transaction(func(tx *gorm.DB) error {
		currentBalance, err := latestBalance(tx, ownerID, true)
		if err != nil {
			return err
		}

		if currentBalance < amount {
			return fmt.Errorf("%w", errors.InsufficientCredits)
		}

		newBalance := currentBalance - amount

		transaction := &model.CreditTransaction{
			OwnerID:         ownerID,
			JobID:           jobID,
			TransactionType: model.TransactionTypeDeduct,
			Reason:          model.CreditReasonReserve,
			Amount:          amount,
			BalanceAfter:    newBalance,
		}

		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create reserve transaction: %w", err)
		}

		logger.Logger.Info("Credits reserved",
			zap.String("owner_id", ownerID),
			zap.Int("amount", amount),
			zap.Int("balance_before", currentBalance),
			zap.Int("balance_after", newBalance),
		)

		return nil
	})
}

// Settle 任务终态结算：确认实际用量并把未用完的冻结额度一次性退回。
// 结算记录余额不变（预扣时已减），退款记录把 reserved-used 加回。
func (s *CreditService) Settle(ctx context.Context, ownerID string, jobID *int64, reserved, used int) error {
	if used > reserved {
		return fmt.Errorf("used %d exceeds reserved %d", used, reserved)
	}

	db := database.DB().WithContext(ctx)

	return db.Transaction(func(tx *gorm.DB) error {
		currentBalance, err := latestBalance(tx, ownerID, true)
		if err != nil {
			return err
		}

		settle := &model.CreditTransaction{
			OwnerID:         ownerID,
			JobID:           jobID,
			TransactionType: model.TransactionTypeDeduct,
			Reason:          model.CreditReasonSettle,
			Amount:          used,
			BalanceAfter:    currentBalance, // 余额不变（已预扣减）
		}
		if err := tx.Create(settle).Error; err != nil {
			return fmt.Errorf("failed to create settle transaction: %w", err)
		}

		refund := reserved - used
		if refund > 0 {
			newBalance := currentBalance + refund
			refundTx := &model.CreditTransaction{
				OwnerID:         ownerID,
				JobID:           jobID,
				TransactionType: model.TransactionTypeGrant,
				Reason:          model.CreditReasonRefund,
				Amount:          refund,
				BalanceAfter:    newBalance,
			}
			if err := tx.Create(refundTx).Error; err != nil {
				return fmt.Errorf("failed to create refund transaction: %w", err)
			}
		}

		logger.Logger.Info("Credits settled",
			zap.String("owner_id", ownerID),
			zap.Int("reserved", reserved),
			zap.Int("used", used),
			zap.Int("refund", refund),
		)

		return nil
	})
}

// Grant 运营充值
func (s *CreditService) Grant(ctx context.Context, ownerID string, amount int) error {
	db := database.DB().WithContext(ctx)

	return db.Transaction(func(tx *gorm.DB) error {
		currentBalance, err := latestBalance(tx, ownerID, true)
		if err != nil {
			return err
		}

		transaction := &model.CreditTransaction{
			OwnerID:         ownerID,
			TransactionType: model.TransactionTypeGrant,
			Reason:          model.CreditReasonGrant,
			Amount:          amount,
			BalanceAfter:    currentBalance + amount,
		}

		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create grant transaction: %w", err)
		}

		logger.Logger.Info("Credits granted",
			zap.String("owner_id", ownerID),
			zap.Int("amount", amount),
			zap.Int("balance_after", currentBalance+amount),
		)

		return nil
	})
}

// History 按时间倒序返回额度流水
func (s *CreditService) History(ctx context.Context, ownerID string, limit int) ([]model.CreditTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var transactions []model.CreditTransaction
	err := database.DB().WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query credit history: %w", err)
	}

	return transactions, nil
}
