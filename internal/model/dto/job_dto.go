package dto

import (
	"time"

	"CekNomor/internal/model"
)

// CreateJobRequest 任务创建请求。phone_inputs 与 csv 上传二选一。
type CreateJobRequest struct {
	PhoneInputs              []string `json:"phone_inputs"`
	ValidateWhatsApp         bool     `json:"validate_whatsapp"`
	ValidateTelegram         bool     `json:"validate_telegram"`
	ValidationMethod         string   `json:"validation_method"`          // standard | deeplink_profile
	TelegramValidationMethod string   `json:"telegram_validation_method"` // standard | mtp | mtp_profile
}

// ToValidationRequest 转换为引擎侧的平台/方式选择
func (r CreateJobRequest) ToValidationRequest() model.ValidationRequest {
	return model.ValidationRequest{
		WhatsApp:       r.ValidateWhatsApp,
		Telegram:       r.ValidateTelegram,
		WhatsAppMethod: model.Method(r.ValidationMethod),
		TelegramMethod: model.Method(r.TelegramValidationMethod),
	}
}

// JobResponse 任务详情响应
type JobResponse struct {
	JobID             int64                   `json:"job_id"`
	Status            model.JobStatus         `json:"status"`
	TotalNumbers      int                     `json:"total_numbers"`
	ProcessedNumbers  int                     `json:"processed_numbers"`
	DuplicatesRemoved int                     `json:"duplicates_removed"`
	CreditsReserved   int                     `json:"credits_reserved"`
	CreditsUsed       int                     `json:"credits_used"`
	QuickCheck        bool                    `json:"quick_check"`
	Request           model.ValidationRequest `json:"request"`
	Summary           model.JobSummary        `json:"summary"`
	CreatedAt         time.Time               `json:"created_at"`
}

// NewJobResponse 由模型构造响应
func NewJobResponse(job *model.Job) JobResponse {
	return JobResponse{
		JobID:             job.PublicID,
		Status:            job.Status,
		TotalNumbers:      job.TotalNumbers,
		ProcessedNumbers:  job.ProcessedNumbers,
		DuplicatesRemoved: job.DuplicatesRemoved,
		CreditsReserved:   job.CreditsReserved,
		CreditsUsed:       job.CreditsUsed,
		QuickCheck:        job.QuickCheck,
		Request:           job.Request,
		Summary:           job.Summary,
		CreatedAt:         job.CreatedAt,
	}
}

// JobItemResponse 单条号码的结果行，按提交顺序返回
type JobItemResponse struct {
	Position      int              `json:"position"`
	Identifier    string           `json:"identifier"`
	PhoneNumber   string           `json:"phone_number"`
	OriginalPhone string           `json:"original_phone"`
	Status        model.ItemStatus `json:"status"`
	WhatsApp      *model.Result    `json:"whatsapp,omitempty"`
	Telegram      *model.Result    `json:"telegram,omitempty"`
	ErrorCode     string           `json:"error_code,omitempty"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
}

// QuickCheckResponse 快速校验的同步响应，结果内联返回
type QuickCheckResponse struct {
	Job   JobResponse       `json:"job"`
	Items []JobItemResponse `json:"items"`
}
