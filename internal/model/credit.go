package model

// TransactionType 交易类型枚举
type TransactionType string

const (
	TransactionTypeGrant  TransactionType = "grant"  // 充值
	TransactionTypeDeduct TransactionType = "deduct" // 扣减
)

// 交易原因，预扣/确认/退款三段式与充值
const (
	CreditReasonReserve = "reserve" // 任务创建时冻结
	CreditReasonSettle  = "settle"  // 任务完结时确认实际用量
	CreditReasonRefund  = "refund"  // 未用完的冻结额度返还
	CreditReasonGrant   = "grant"   // 运营充值
)

// CreditTransaction 额度流水，只追加，最新一条的 BalanceAfter 即当前余额
type CreditTransaction struct {
	BaseModel
	OwnerID         string          `gorm:"type:varchar(64);not null;index:idx_credit_transactions_owner" json:"owner_id"`
	JobID           *int64          `gorm:"index" json:"job_id,omitempty"`
	TransactionType TransactionType `gorm:"type:varchar(16);not null" json:"transaction_type"`
	Reason          string          `gorm:"type:varchar(16);not null" json:"reason"`
	Amount          int             `gorm:"not null" json:"amount"`
	BalanceAfter    int             `gorm:"not null" json:"balance_after"`
}

// TableName 指定表名
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
