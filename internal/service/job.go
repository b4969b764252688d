package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"CekNomor/config"
	"CekNomor/internal/cache"
	"CekNomor/internal/model"
	"CekNomor/internal/normalizer"
	"CekNomor/internal/progress"
	"CekNomor/internal/queue"
	"CekNomor/pkg/errors"
	"CekNomor/pkg/logger"
	"CekNomor/pkg/metrics"
	"CekNomor/pkg/provider"
	"CekNomor/pkg/snowflake"
	"CekNomor/storage/database"
)

// JobService 校验任务编排：创建、派发、执行、查询
type JobService struct{}

var (
	jobService *JobService
	jobOnce    sync.Once
)

func Job() *JobService {

	jobOnce.Do(func() {
		jobService = &JobService{}
	})
	return jobService
}

// Create 创建批量任务：规范化去重、计费预扣、落库后投递派发消息。
// 无效输入落为 error 条目且不计费，有效号码一个都没有时直接拒绝。
func (s *JobService) Create(ctx context.Context, ownerID string, inputs []normalizer.RawInput, vr model.ValidationRequest) (*model.Job, error) {
	job, err := s.prepare(ctx, ownerID, inputs, vr, false, config.Cfg.BulkMaxNumbers)
	if err != nil {
		return nil, err
	}

	msg := model.JobDispatchMessage{
		MessageID:   uuid.NewString(),
		JobID:       job.PublicID,
		OwnerID:     ownerID,
		ScheduledAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := queue.PublishJobDispatch(ctx, msg); err != nil {
		// 投递失败任务无法被消费，直接置为失败并退还预扣
		s.failJob(ctx, job, "dispatch publish failed")
		return nil, fmt.Errorf("failed to publish dispatch message: %w", err)
	}

	logger.Logger.Info("Validation job created",
		zap.Int64("job_id", job.PublicID),
		zap.String("owner_id", ownerID),
		zap.Int("total_numbers", job.TotalNumbers),
		zap.Int("credits_reserved", job.CreditsReserved),
	)

	return job, nil
}

// QuickCheck 小批量同步校验：请求内执行完毕，结果内联返回。
// 所有号码在总超时内并发执行，超时的剩余号码降级为 unknown。
func (s *JobService) QuickCheck(ctx context.Context, ownerID string, inputs []normalizer.RawInput, vr model.ValidationRequest) (*model.Job, []model.JobItem, error) {
	job, err := s.prepare(ctx, ownerID, inputs, vr, true, config.Cfg.QuickCheckMaxNumbers)
	if err != nil {
		return nil, nil, err
	}

	timeout := time.Duration(config.Cfg.QuickCheckTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Execute(execCtx, job.PublicID); err != nil {
		return nil, nil, err
	}

	fresh, err := s.getByPublicID(ctx, job.PublicID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.Items(ctx, fresh)
	if err != nil {
		return nil, nil, err
	}
	return fresh, items, nil
}

// prepare 规范化、校验规模、预扣额度并落库任务与条目
func (s *JobService) prepare(ctx context.Context, ownerID string, inputs []normalizer.RawInput, vr model.ValidationRequest, quick bool, maxNumbers int) (*model.Job, error) {
	if len(vr.Selections()) == 0 {
		return nil, fmt.Errorf("at least one platform must be selected: %w", errors.InputError)
	}
	costPer, ok := vr.CostPerNumber()
	if !ok {
		return nil, fmt.Errorf("invalid validation method for platform: %w", errors.InputError)
	}

	// 规模上限按原始输入算，去重前就拒绝
	if len(inputs) > maxNumbers {
		return nil, fmt.Errorf("%d inputs exceeds limit %d: %w", len(inputs), maxNumbers, errors.TooManyNumbers)
	}

	norm := normalizer.Normalize(inputs)
	if len(norm.Numbers) == 0 {
		return nil, fmt.Errorf("no valid phone numbers in input: %w", errors.InvalidNumber)
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}

	reserve := costPer * len(norm.Numbers)
	if err := Credit().Reserve(ctx, ownerID, &publicID, reserve); err != nil {
		if stderrors.Is(err, errors.InsufficientCredits) {
			metrics.RecordCreditInsufficient(ctx, ownerID)
		}
		return nil, err
	}

	now := time.Now()
	job := &model.Job{
		PublicID:          publicID,
		OwnerID:           ownerID,
		Status:            model.JobStatusPending,
		TotalNumbers:      len(norm.Numbers) + len(norm.Invalid),
		ProcessedNumbers:  len(norm.Invalid), // 无效条目视为已处理
		DuplicatesRemoved: norm.DuplicatesRemoved,
		CreditsReserved:   reserve,
		QuickCheck:        quick,
		Request:           vr,
		Summary:           model.JobSummary{Errors: len(norm.Invalid)},
		LastProgressAt:    &now,
	}

	err = database.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}

		items := make([]model.JobItem, 0, job.TotalNumbers)
		pos := 0
		for _, n := range norm.Numbers {
			pos++
			items = append(items, model.JobItem{
				JobID:         job.ID,
				Position:      pos,
				Identifier:    n.Identifier,
				PhoneNumber:   n.Phone,
				OriginalPhone: n.Original,
				Status:        model.ItemStatusPending,
			})
		}
		for _, in := range norm.Invalid {
			pos++
			items = append(items, model.JobItem{
				JobID:         job.ID,
				Position:      pos,
				Identifier:    in.Identifier,
				OriginalPhone: in.Phone,
				Status:        model.ItemStatusError,
				ErrorCode:     errors.InvalidNumber.Code,
				ProcessedAt:   &now,
			})
		}

		if err := tx.CreateInBatches(items, 200).Error; err != nil {
			return fmt.Errorf("failed to create job items: %w", err)
		}
		return nil
	})
	if err != nil {
		// 落库失败退还预扣，额度流水保持自洽
		if refundErr := Credit().Settle(ctx, ownerID, &publicID, reserve, 0); refundErr != nil {
			logger.Logger.Error("Failed to refund after job create failure",
				zap.Int64("job_id", publicID),
				zap.Error(refundErr),
			)
		}
		return nil, err
	}

	return job, nil
}

// Execute 执行任务：工作池并发逐条校验，逐条推进度，收尾结算额度。
// 可在 worker 与快速校验两条路径上复用，终态任务直接跳过保证幂等。
func (s *JobService) Execute(ctx context.Context, jobPublicID int64) error {
	job, err := s.getByPublicID(ctx, jobPublicID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		logger.Logger.Info("Job already terminal, skipping execution",
			zap.Int64("job_id", jobPublicID),
			zap.String("status", string(job.Status)),
		)
		return nil
	}

	db := database.DB()
	if job.Status == model.JobStatusPending {
		if err := s.transitionJob(ctx, job, model.JobStatusProcessing); err != nil {
			return err
		}
	}
	progress.Publish(ctx, model.ProgressEvent{
		JobID:              job.PublicID,
		Status:             job.Status,
		ProcessedNumbers:   job.ProcessedNumbers,
		TotalNumbers:       job.TotalNumbers,
		ProgressPercentage: progress.Percentage(job.ProcessedNumbers, job.TotalNumbers),
	})

	var items []model.JobItem
	err = db.WithContext(ctx).
		Where("job_id = ? AND status = ?", job.ID, model.ItemStatusPending).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return fmt.Errorf("failed to load job items: %w", err)
	}

	workers := config.Cfg.BulkWorkerCount
	if workers <= 0 {
		workers = 5
	}

	metrics.AddActiveJob(ctx)
	defer metrics.SubtractActiveJob(context.WithoutCancel(ctx))

	var mu sync.Mutex // 保护 job 聚合计数器与 summary 的读改写
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i := range items {
		item := &items[i]
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return nil // 中断后的剩余条目不再派发
			}
			if s.jobCancelled(egCtx, job.PublicID) {
				return nil
			}
			s.processItem(egCtx, job, item, &mu)
			return nil
		})
	}
	_ = eg.Wait()

	finishCtx := context.WithoutCancel(ctx)

	// 删除触发的协作取消：剩余条目不再处理，直接结算收尾
	if s.jobCancelled(finishCtx, job.PublicID) {
		return s.finish(finishCtx, job)
	}

	// worker 停机等外因中断批量任务：条目保持 pending，消息重投后接着跑
	if !job.QuickCheck && ctx.Err() != nil {
		return fmt.Errorf("job execution interrupted: %w", ctx.Err())
	}

	// 快速校验总超时没跑到的条目落 unknown，任务照常完结
	if job.QuickCheck {
		s.degradeUnprocessed(finishCtx, job, &mu)
	}

	return s.finish(finishCtx, job)
}

// jobCancelled 查协作取消标记，redis 故障按未取消处理
func (s *JobService) jobCancelled(ctx context.Context, jobID int64) bool {
	cancelled, err := cache.IsJobCancelled(ctx, jobID)
	if err != nil {
		logger.Logger.Warn("Failed to check job cancel mark",
			zap.Int64("job_id", jobID),
			zap.Error(err),
		)
		return false
	}
	return cancelled
}

// processItem 单条号码：逐平台查缓存、未命中走供应商，计费只认非缓存的确定性结论
func (s *JobService) processItem(ctx context.Context, job *model.Job, item *model.JobItem, mu *sync.Mutex) {
	usedCredits := 0
	itemErrCode := ""

	for _, sel := range job.Request.Selections() {
		result, errCode, cost := s.checkPlatform(ctx, sel, item)
		usedCredits += cost
		if errCode != "" && itemErrCode == "" {
			itemErrCode = errCode
		}

		switch sel.Platform {
		case model.PlatformWhatsApp:
			item.WhatsAppResult = result
		case model.PlatformTelegram:
			item.TelegramResult = result
		}
	}

	now := time.Now()
	item.ProcessedAt = &now
	item.Status = model.ItemStatusDone
	item.ErrorCode = itemErrCode
	if (item.WhatsAppResult != nil && item.WhatsAppResult.Status == model.ResultError) ||
		(item.TelegramResult != nil && item.TelegramResult.Status == model.ResultError) {
		item.Status = model.ItemStatusError
	}

	s.commitItem(ctx, job, item, usedCredits, mu)
}

// checkPlatform 单平台校验：缓存命中免费返回，未命中按需取账号调供应商。
// 返回结果、错误码（空串表示无错）、本次消耗额度。
func (s *JobService) checkPlatform(ctx context.Context, sel model.Selection, item *model.JobItem) (*model.Result, string, int) {
	cached, err := cache.GetValidation(ctx, item.PhoneNumber, sel.Platform, sel.Method)
	if err != nil {
		logger.Logger.Warn("Validation cache read failed",
			zap.String("platform", string(sel.Platform)),
			zap.Error(err),
		)
	}
	if cached != nil {
		metrics.RecordCacheHit(ctx, string(sel.Platform))
		return cached, "", 0
	}

	v, err := provider.Get(sel.Platform, sel.Method)
	if err != nil {
		return &model.Result{Status: model.ResultError}, errors.ProviderError.Code, 0
	}

	var acct *model.Account
	var binding *provider.Binding
	if v.NeedsAccount() {
		acct, binding, err = Account().Acquire(ctx, sel.Platform)
		if err != nil {
			if stderrors.Is(err, errors.NoAvailableAccount) {
				return &model.Result{Status: model.ResultError}, errors.NoAvailableAccount.Code, 0
			}
			logger.Logger.Error("Account acquisition failed",
				zap.String("platform", string(sel.Platform)),
				zap.Error(err),
			)
			return &model.Result{Status: model.ResultError}, errors.ProviderError.Code, 0
		}
	}

	target := provider.Target{Phone: item.PhoneNumber, Identifier: item.Identifier}
	started := time.Now()
	result, err := provider.ExecuteWithRetry(ctx, v, target, binding)
	metrics.RecordValidation(ctx, string(sel.Platform), string(sel.Method), string(result.Status))
	metrics.RecordValidationDuration(ctx, string(sel.Platform), string(sel.Method), time.Since(started).Seconds())

	if err != nil {
		switch {
		case stderrors.Is(err, errors.ProviderBanned):
			if acct != nil {
				Account().ReportBan(ctx, acct.PublicID)
			}
			return &result, errors.ProviderBanned.Code, 0
		case stderrors.Is(err, errors.ProviderTimeout):
			// 超时降级为 unknown，不收费不入缓存
			return &result, "", 0
		default:
			if acct != nil {
				Account().ReportError(ctx, acct.PublicID)
			}
			if result.Status == model.ResultError {
				return &result, errors.ProviderError.Code, 0
			}
			return &result, "", 0
		}
	}

	cost := 0
	if result.Definitive() {
		cost = v.Cost()
		if cacheErr := cache.PutValidation(ctx, item.PhoneNumber, sel.Platform, sel.Method, result); cacheErr != nil {
			logger.Logger.Warn("Validation cache write failed", zap.Error(cacheErr))
		}
	}
	return &result, "", cost
}

// commitItem 落单条结果并原子推进任务计数器，随后广播进度事件
func (s *JobService) commitItem(ctx context.Context, job *model.Job, item *model.JobItem, usedCredits int, mu *sync.Mutex) {
	db := database.DB().WithContext(ctx)

	if err := db.Model(&model.JobItem{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"status":           item.Status,
			"whatsapp_result": item.WhatsAppResult,
			"telegram_result": item.TelegramResult,
			"error_code":      item.ErrorCode,
			"processed_at":    item.ProcessedAt,
		}).Error; err != nil {
		logger.Logger.Error("Failed to persist job item",
			zap.Int64("job_id", job.PublicID),
			zap.Int("position", item.Position),
			zap.Error(err),
		)
		return
	}

	mu.Lock()
	job.ProcessedNumbers++
	job.CreditsUsed += usedCredits
	applySummary(&job.Summary, item)
	now := time.Now()
	job.LastProgressAt = &now

	err := db.Model(&model.Job{}).Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"processed_numbers": job.ProcessedNumbers,
			"credits_used":      job.CreditsUsed,
			"summary":           job.Summary,
			"last_progress_at":  now,
		}).Error
	event := model.ProgressEvent{
		JobID:              job.PublicID,
		Status:             job.Status,
		ProcessedNumbers:   job.ProcessedNumbers,
		TotalNumbers:       job.TotalNumbers,
		ProgressPercentage: progress.Percentage(job.ProcessedNumbers, job.TotalNumbers),
		CurrentPhone:       item.PhoneNumber,
		LastResult: &model.ItemResultSnippet{
			WhatsApp: item.WhatsAppResult,
			Telegram: item.TelegramResult,
		},
	}
	mu.Unlock()

	if err != nil {
		logger.Logger.Error("Failed to advance job counters",
			zap.Int64("job_id", job.PublicID),
			zap.Error(err),
		)
	}

	progress.Publish(ctx, event)
}

// applySummary 把单条结果并进任务级聚合，调用方需持有 job 锁
func applySummary(sum *model.JobSummary, item *model.JobItem) {
	if item.Status == model.ItemStatusError {
		sum.Errors++
		return
	}

	anyActive := false
	anyDefinitive := false
	if r := item.WhatsAppResult; r != nil {
		if r.Status == model.ResultActive {
			sum.WhatsAppActive++
			anyActive = true
			if r.Details["is_business"] == "true" {
				sum.WhatsAppBusiness++
			}
		}
		if r.Definitive() {
			anyDefinitive = true
		}
	}
	if r := item.TelegramResult; r != nil {
		if r.Status == model.ResultActive {
			sum.TelegramActive++
			anyActive = true
		}
		if r.Definitive() {
			anyDefinitive = true
		}
	}

	switch {
	case anyActive:
	case anyDefinitive:
		sum.Inactive++
	default:
		// 全部 unknown 的条目是没查成，不能当 inactive 报
		sum.Errors++
	}
}

// degradeUnprocessed 把超时没跑到的条目落为 unknown，done 状态不收费
func (s *JobService) degradeUnprocessed(ctx context.Context, job *model.Job, mu *sync.Mutex) {
	db := database.DB().WithContext(ctx)

	var leftovers []model.JobItem
	if err := db.Where("job_id = ? AND status = ?", job.ID, model.ItemStatusPending).
		Order("position ASC").
		Find(&leftovers).Error; err != nil {
		logger.Logger.Error("Failed to load unprocessed items", zap.Error(err))
		return
	}

	unknown := &model.Result{Status: model.ResultUnknown}
	for i := range leftovers {
		item := &leftovers[i]
		now := time.Now()
		item.Status = model.ItemStatusDone
		item.ProcessedAt = &now
		for _, sel := range job.Request.Selections() {
			switch sel.Platform {
			case model.PlatformWhatsApp:
				item.WhatsAppResult = unknown
			case model.PlatformTelegram:
				item.TelegramResult = unknown
			}
		}
		s.commitItem(ctx, job, item, 0, mu)
	}
}

// finish 结算额度并把任务推进到终态，广播带汇总的终态事件
func (s *JobService) finish(ctx context.Context, job *model.Job) error {
	if err := Credit().Settle(ctx, job.OwnerID, &job.PublicID, job.CreditsReserved, job.CreditsUsed); err != nil {
		logger.Logger.Error("Failed to settle job credits",
			zap.Int64("job_id", job.PublicID),
			zap.Error(err),
		)
	}

	if err := s.transitionJob(ctx, job, model.JobStatusCompleted); err != nil {
		return err
	}

	progress.Publish(ctx, model.ProgressEvent{
		JobID:              job.PublicID,
		Status:             job.Status,
		ProcessedNumbers:   job.ProcessedNumbers,
		TotalNumbers:       job.TotalNumbers,
		ProgressPercentage: progress.Percentage(job.ProcessedNumbers, job.TotalNumbers),
		Results:            &job.Summary,
	})

	logger.Logger.Info("Validation job completed",
		zap.Int64("job_id", job.PublicID),
		zap.Int("total_numbers", job.TotalNumbers),
		zap.Int("credits_used", job.CreditsUsed),
	)

	return nil
}

// failJob 任务作废：退还全部预扣并置为 FAILED
func (s *JobService) failJob(ctx context.Context, job *model.Job, reason string) {
	if err := Credit().Settle(ctx, job.OwnerID, &job.PublicID, job.CreditsReserved, 0); err != nil {
		logger.Logger.Error("Failed to refund failed job",
			zap.Int64("job_id", job.PublicID),
			zap.Error(err),
		)
	}
	if err := s.transitionJob(ctx, job, model.JobStatusFailed); err != nil {
		logger.Logger.Error("Failed to mark job failed",
			zap.Int64("job_id", job.PublicID),
			zap.Error(err),
		)
	}
	logger.Logger.Warn("Validation job failed",
		zap.Int64("job_id", job.PublicID),
		zap.String("reason", reason),
	)
}

// transitionJob 任务状态机守卫迁移
func (s *JobService) transitionJob(ctx context.Context, job *model.Job, next model.JobStatus) error {
	if !job.Status.CanTransition(next) {
		return fmt.Errorf("illegal job transition %s -> %s", job.Status, next)
	}
	if err := database.DB().WithContext(ctx).Model(job).Update("status", next).Error; err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	job.Status = next
	return nil
}

func (s *JobService) getByPublicID(ctx context.Context, jobPublicID int64) (*model.Job, error) {
	var job model.Job
	err := database.DB().WithContext(ctx).
		Where("public_id = ?", jobPublicID).
		First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w", errors.JobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	return &job, nil
}

// Get 按归属校验的任务详情
func (s *JobService) Get(ctx context.Context, ownerID string, jobPublicID int64) (*model.Job, error) {
	job, err := s.getByPublicID(ctx, jobPublicID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, fmt.Errorf("%w", errors.JobNotFound)
	}
	return job, nil
}

// List 按创建时间倒序分页
func (s *JobService) List(ctx context.Context, ownerID string, limit, offset int) ([]model.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var jobs []model.Job
	err := database.DB().WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Items 按提交顺序返回任务条目
func (s *JobService) Items(ctx context.Context, job *model.Job) ([]model.JobItem, error) {
	var items []model.JobItem
	err := database.DB().WithContext(ctx).
		Where("job_id = ?", job.ID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load job items: %w", err)
	}
	return items, nil
}

// Delete 删除任务与条目。非终态任务先协作取消：
// PROCESSING 任务打取消标记，执行端看到后停止派发剩余条目并自行结算，
// 在途的供应商调用跑完各自的超时；已按条目结算的额度不回滚。
// PENDING 任务的消息还没被执行，预扣在这里直接退还。
func (s *JobService) Delete(ctx context.Context, ownerID string, jobPublicID int64) error {
	job, err := s.Get(ctx, ownerID, jobPublicID)
	if err != nil {
		return err
	}

	if !job.Status.Terminal() {
		if err := cache.MarkJobCancelled(ctx, job.PublicID); err != nil {
			return fmt.Errorf("failed to mark job cancelled: %w", err)
		}
		if job.Status == model.JobStatusPending {
			if err := Credit().Settle(ctx, job.OwnerID, &job.PublicID, job.CreditsReserved, job.CreditsUsed); err != nil {
				logger.Logger.Error("Failed to refund cancelled job",
					zap.Int64("job_id", job.PublicID),
					zap.Error(err),
				)
			}
		}
	}

	return database.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", job.ID).Delete(&model.JobItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete job items: %w", err)
		}
		return tx.Delete(job).Error
	})
}

// FlagStaleJobs 调度器巡检：处理中但长时间无进度的任务打标，供运维跟进
func (s *JobService) FlagStaleJobs(ctx context.Context) (int, error) {
	threshold := time.Duration(config.Cfg.StaleJobThresholdMin) * time.Minute
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}
	cutoff := time.Now().Add(-threshold)

	res := database.DB().WithContext(ctx).
		Model(&model.Job{}).
		Where("status = ? AND stale_flagged_at IS NULL AND last_progress_at < ?", model.JobStatusProcessing, cutoff).
		Update("stale_flagged_at", time.Now())
	if res.Error != nil {
		return 0, fmt.Errorf("failed to flag stale jobs: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		logger.Logger.Warn("Flagged stale jobs",
			zap.Int64("count", res.RowsAffected),
		)
	}

	return int(res.RowsAffected), nil
}
