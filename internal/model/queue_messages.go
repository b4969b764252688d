package model

// JobDispatchMessage 批量任务派发消息，worker 消费后启动工作池
type JobDispatchMessage struct {
	MessageID   string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	JobID       int64  `json:"job_id"`     // Job.PublicID
	OwnerID     string `json:"owner_id"`
	ScheduledAt string `json:"scheduled_at"`
}

// ProgressEvent 任务进度事件，逐条完成与终态时各推送一次
type ProgressEvent struct {
	JobID              int64              `json:"job_id"`
	Status             JobStatus          `json:"status"`
	ProcessedNumbers   int                `json:"processed_numbers"`
	TotalNumbers       int                `json:"total_numbers"`
	ProgressPercentage float64            `json:"progress_percentage"`
	CurrentPhone       string             `json:"current_phone,omitempty"`
	LastResult         *ItemResultSnippet `json:"last_result,omitempty"`
	Results            *JobSummary        `json:"results,omitempty"` // 仅终态事件携带
}

// ItemResultSnippet 进度事件里携带的单条结果摘要
type ItemResultSnippet struct {
	WhatsApp *Result `json:"whatsapp,omitempty"`
	Telegram *Result `json:"telegram,omitempty"`
}
