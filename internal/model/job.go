package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus 任务状态枚举，状态迁移单向：PENDING → PROCESSING → COMPLETED/FAILED
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal 判断任务是否已到达终态
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition 任务状态机守卫，终态之后不允许任何迁移
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// JobSummary 任务级聚合计数器
type JobSummary struct {
	WhatsAppActive   int `json:"whatsapp_active"`
	TelegramActive   int `json:"telegram_active"`
	WhatsAppBusiness int `json:"whatsapp_business"`
	Inactive         int `json:"inactive"`
	Errors           int `json:"errors"`
}

func (s JobSummary) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *JobSummary) Scan(value interface{}) error {
	bs, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bs = []byte(str)
		} else {
			return fmt.Errorf("unsupported JobSummary column type %T", value)
		}
	}
	return json.Unmarshal(bs, s)
}

// Job 批量校验任务
type Job struct {
	BaseModel
	PublicID          int64             `gorm:"uniqueIndex;not null" json:"job_id"`
	OwnerID           string            `gorm:"type:varchar(64);not null;index:idx_jobs_owner" json:"owner_id"`
	Status            JobStatus         `gorm:"type:varchar(16);not null;default:'PENDING';index:idx_jobs_status" json:"status"`
	TotalNumbers      int               `gorm:"not null" json:"total_numbers"`
	ProcessedNumbers  int               `gorm:"not null;default:0" json:"processed_numbers"`
	DuplicatesRemoved int               `gorm:"not null;default:0" json:"duplicates_removed"`
	CreditsReserved   int               `gorm:"not null" json:"credits_reserved"`
	CreditsUsed       int               `gorm:"not null;default:0" json:"credits_used"`
	QuickCheck        bool              `gorm:"not null;default:false" json:"quick_check"`
	Request           ValidationRequest `gorm:"type:jsonb;serializer:json" json:"request"`
	Summary           JobSummary        `gorm:"type:jsonb;default:'{}'" json:"summary"`
	StaleFlaggedAt    *time.Time        `json:"stale_flagged_at,omitempty"` // 调度器标记，仅供运维关注
	LastProgressAt    *time.Time        `json:"last_progress_at,omitempty"`
}

// TableName 指定表名
func (Job) TableName() string {
	return "validation_jobs"
}

// ItemStatus 单条号码的处理状态
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusDone    ItemStatus = "done"
	ItemStatusError   ItemStatus = "error"
)

// JobItem 任务内的单条号码，按提交顺序编号
type JobItem struct {
	BaseModel
	JobID          int64      `gorm:"not null;index:idx_job_items_job" json:"job_id"`
	Position       int        `gorm:"not null" json:"position"` // 原始提交顺序，导出时据此排序
	Identifier     string     `gorm:"type:varchar(128);not null;default:''" json:"identifier"`
	PhoneNumber    string     `gorm:"type:varchar(20);not null" json:"phone_number"`
	OriginalPhone  string     `gorm:"type:varchar(64);not null" json:"original_phone"`
	Status         ItemStatus `gorm:"type:varchar(8);not null;default:'pending'" json:"status"`
	WhatsAppResult *Result    `gorm:"column:whatsapp_result;type:jsonb;serializer:json" json:"whatsapp_result,omitempty"`
	TelegramResult *Result    `gorm:"column:telegram_result;type:jsonb;serializer:json" json:"telegram_result,omitempty"`
	ErrorCode      string     `gorm:"type:varchar(32);not null;default:''" json:"error_code,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}

// TableName 指定表名
func (JobItem) TableName() string {
	return "validation_job_items"
}
