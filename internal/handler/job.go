package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/sse"

	"CekNomor/config"
	"CekNomor/internal/middleware"
	"CekNomor/internal/model"
	"CekNomor/internal/model/dto"
	"CekNomor/internal/normalizer"
	"CekNomor/internal/progress"
	"CekNomor/internal/service"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/response"
)

// QuickCheck 小批量同步校验，结果直接在响应里返回
// POST /v1/validations/quick
func QuickCheck(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.CreateJobRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	inputs := normalizer.ReadLines(req.PhoneInputs)
	job, items, err := service.Job().QuickCheck(ctx, userID, inputs, req.ToValidationRequest())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.QuickCheckResponse{
		Job:   dto.NewJobResponse(job),
		Items: itemResponses(items),
	})
}

// CreateJob 创建批量校验任务（JSON 提交号码列表）
// POST /v1/jobs
func CreateJob(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.CreateJobRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	inputs := normalizer.ReadLines(req.PhoneInputs)
	job, err := service.Job().Create(ctx, userID, inputs, req.ToValidationRequest())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.NewJobResponse(job))
}

// UploadJob 上传 CSV/XLSX 创建批量任务，校验选项走表单字段
// POST /v1/jobs/upload
func UploadJob(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(ctx, c, fmt.Errorf("missing file field: %w", errors.InputError))
		return
	}
	if fh.Size > int64(config.Cfg.UploadMaxBytes) {
		response.Error(ctx, c, fmt.Errorf("%w", errors.FileTooLarge))
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Error(ctx, c, fmt.Errorf("failed to open upload: %w", errors.InputError))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(config.Cfg.UploadMaxBytes)+1))
	if err != nil {
		response.Error(ctx, c, fmt.Errorf("failed to read upload: %w", errors.InputError))
		return
	}
	if len(data) > config.Cfg.UploadMaxBytes {
		response.Error(ctx, c, fmt.Errorf("%w", errors.FileTooLarge))
		return
	}

	req := dto.CreateJobRequest{
		ValidateWhatsApp:         formBool(c, "validate_whatsapp"),
		ValidateTelegram:         formBool(c, "validate_telegram"),
		ValidationMethod:         string(c.FormValue("validation_method")),
		TelegramValidationMethod: string(c.FormValue("telegram_validation_method")),
	}

	inputs, err := normalizer.ReadUpload(string(fh.Filename), data, config.Cfg.BulkMaxNumbers)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	job, err := service.Job().Create(ctx, userID, inputs, req.ToValidationRequest())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.NewJobResponse(job))
}

// ListJobs 任务列表，按创建时间倒序
// GET /v1/jobs
func ListJobs(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	jobs, err := service.Job().List(ctx, userID, limit, offset)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	resp := make([]dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, dto.NewJobResponse(&jobs[i]))
	}
	response.Success(ctx, c, resp)
}

// GetJob 任务详情
// GET /v1/jobs/:job_id
func GetJob(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	jobID, err := pathInt64(c, "job_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	job, err := service.Job().Get(ctx, userID, jobID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.NewJobResponse(job))
}

// GetJobItems 任务条目，按提交顺序返回
// GET /v1/jobs/:job_id/items
func GetJobItems(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	jobID, err := pathInt64(c, "job_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	job, err := service.Job().Get(ctx, userID, jobID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items, err := service.Job().Items(ctx, job)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, itemResponses(items))
}

// DeleteJob 删除任务
// DELETE /v1/jobs/:job_id
func DeleteJob(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	jobID, err := pathInt64(c, "job_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if err := service.Job().Delete(ctx, userID, jobID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// DownloadJob 导出任务结果 CSV，处理中的任务导出已完成部分
// GET /v1/jobs/:job_id/download
func DownloadJob(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	jobID, err := pathInt64(c, "job_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	job, err := service.Job().Get(ctx, userID, jobID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items, err := service.Job().Items(ctx, job)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	c.Response.Header.Set("Content-Type", "text/csv; charset=utf-8")
	c.Response.Header.Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", service.Export().Filename(job)))

	if err := service.Export().WriteCSV(ctx, c.Response.BodyWriter(), job, items); err != nil {
		response.Error(ctx, c, err)
		return
	}
}

// StreamJobEvents 任务进度 SSE 流，任务到终态或客户端断开时结束
// GET /v1/jobs/:job_id/events
func StreamJobEvents(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	jobID, err := pathInt64(c, "job_id")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	job, err := service.Job().Get(ctx, userID, jobID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	stream := sse.NewStream(c)

	// 先推一帧当前快照，订阅在快照之后建立，事件可能有极小的空窗
	snapshot := model.ProgressEvent{
		JobID:              job.PublicID,
		Status:             job.Status,
		ProcessedNumbers:   job.ProcessedNumbers,
		TotalNumbers:       job.TotalNumbers,
		ProgressPercentage: progress.Percentage(job.ProcessedNumbers, job.TotalNumbers),
	}
	if job.Status.Terminal() {
		snapshot.Results = &job.Summary
	}
	if err := publishEvent(stream, snapshot); err != nil {
		return
	}
	if job.Status.Terminal() {
		return
	}

	sub := progress.Subscribe(ctx, job.PublicID)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-sub.C:
			if !open {
				return
			}
			if err := publishEvent(stream, event); err != nil {
				return
			}
			if event.Status.Terminal() {
				return
			}
		}
	}
}

func publishEvent(stream *sse.Stream, event model.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return stream.Publish(&sse.Event{
		Event: "progress",
		Data:  data,
	})
}

func itemResponses(items []model.JobItem) []dto.JobItemResponse {
	resp := make([]dto.JobItemResponse, 0, len(items))
	for i := range items {
		it := &items[i]
		resp = append(resp, dto.JobItemResponse{
			Position:      it.Position,
			Identifier:    it.Identifier,
			PhoneNumber:   it.PhoneNumber,
			OriginalPhone: it.OriginalPhone,
			Status:        it.Status,
			WhatsApp:      it.WhatsAppResult,
			Telegram:      it.TelegramResult,
			ErrorCode:     it.ErrorCode,
			ProcessedAt:   it.ProcessedAt,
		})
	}
	return resp
}

func pathInt64(c *app.RequestContext, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, errors.InputError)
	}
	return v, nil
}

func formBool(c *app.RequestContext, name string) bool {
	v, _ := strconv.ParseBool(string(c.FormValue(name)))
	return v
}
