package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"CekNomor/internal/model"
)

// ExportService 结果导出：按提交顺序组装 CSV，处理中的任务导出已完成部分
type ExportService struct{}

var (
	exportService *ExportService
	exportOnce    sync.Once
)

func Export() *ExportService {

	exportOnce.Do(func() {
		exportService = &ExportService{}
	})
	return exportService
}

// 导出列顺序固定，下游同步脚本按列名消费
var exportHeader = []string{
	"identifier",
	"phone_number",
	"original_phone",
	"whatsapp_status",
	"telegram_status",
	"whatsapp_details",
	"telegram_details",
	"processed_at",
}

// WriteCSV 把任务条目按提交顺序写成 CSV。
// items 必须已按 position 排序（Items 查询保证），未处理完的条目照常输出空结果列。
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, job *model.Job, items []model.JobItem) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(exportRow(&items[i])); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename 导出文件名，带任务号方便排查
func (s *ExportService) Filename(job *model.Job) string {
	return fmt.Sprintf("validation_job_%d.csv", job.PublicID)
}

func exportRow(item *model.JobItem) []string {
	waStatus, waDetails := resultColumns(item.WhatsAppResult)
	tgStatus, tgDetails := resultColumns(item.TelegramResult)

	processedAt := ""
	if item.ProcessedAt != nil {
		processedAt = item.ProcessedAt.UTC().Format(time.RFC3339)
	}

	// 无效号码没有规范化结果，状态列落错误码
	if item.Status == model.ItemStatusError && item.WhatsAppResult == nil && item.TelegramResult == nil {
		waStatus = ""
		tgStatus = ""
		waDetails = item.ErrorCode
	}

	return []string{
		item.Identifier,
		item.PhoneNumber,
		item.OriginalPhone,
		waStatus,
		tgStatus,
		waDetails,
		tgDetails,
		processedAt,
	}
}

func resultColumns(r *model.Result) (status, details string) {
	if r == nil {
		return "", ""
	}
	status = string(r.Status)
	if len(r.Details) > 0 {
		raw, err := json.Marshal(r.Details)
		if err == nil {
			details = string(raw)
		}
	}
	return status, details
}
