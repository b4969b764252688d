package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	ValidationTotal        metric.Int64Counter
	ValidationDuration     metric.Float64Histogram
	CacheHitTotal          metric.Int64Counter
	CreditInsufficientTotal metric.Int64Counter
	ActiveJobs             metric.Int64UpDownCounter
}

var (
	metricsInstance *OTelMetrics
	meter           = otel.Meter("ceknomor")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	m := &OTelMetrics{}

	m.ValidationTotal, err = meter.Int64Counter(
		"validation_checks_total",
		metric.WithDescription("Total number of provider validation checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return err
	}

	m.ValidationDuration, err = meter.Float64Histogram(
		"validation_check_duration_seconds",
		metric.WithDescription("Time spent on a single provider check in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.CacheHitTotal, err = meter.Int64Counter(
		"validation_cache_hits_total",
		metric.WithDescription("Total number of validation cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	m.CreditInsufficientTotal, err = meter.Int64Counter(
		"credit_insufficient_total",
		metric.WithDescription("Total number of rejected submissions due to insufficient credits"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	m.ActiveJobs, err = meter.Int64UpDownCounter(
		"validation_active_jobs",
		metric.WithDescription("Number of jobs currently being processed"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return err
	}

	metricsInstance = m
	return nil
}

// GetMetrics 获取全局指标实例
func GetMetrics() *OTelMetrics {
	return metricsInstance
}

// RecordValidation 记录一次供应商校验结果
func RecordValidation(ctx context.Context, platform, method, status string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.ValidationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("method", method),
		attribute.String("status", status),
	))
}

// RecordValidationDuration 记录单次校验耗时
func RecordValidationDuration(ctx context.Context, platform, method string, seconds float64) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.ValidationDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("method", method),
	))
}

// RecordCacheHit 记录缓存命中
func RecordCacheHit(ctx context.Context, platform string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.CacheHitTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platform),
	))
}

// RecordCreditInsufficient 记录额度不足拒绝
func RecordCreditInsufficient(ctx context.Context, ownerID string) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.CreditInsufficientTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("owner_id", ownerID),
	))
}

// AddActiveJob 任务开始处理
func AddActiveJob(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.ActiveJobs.Add(ctx, 1)
	}
}

// SubtractActiveJob 任务处理结束
func SubtractActiveJob(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.ActiveJobs.Add(ctx, -1)
	}
}
