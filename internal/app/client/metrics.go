package client

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "scorekeeper/client"

// Metrics счетчики синхронизации и загрузки фото. Нулевой указатель
// допустим: все методы тогда ничего не делают.
type Metrics struct {
	runs    metric.Int64Counter
	retries metric.Int64Counter
	pushed  metric.Int64Counter
	pulled  metric.Int64Counter
	uploads metric.Int64Counter
}

func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	runs, err := meter.Int64Counter("sync.runs", metric.WithDescription("Попытки синхронизации"))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика sync.runs: %w", err)
	}
	retries, err := meter.Int64Counter("sync.retries", metric.WithDescription("Повторы синхронизации"))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика sync.retries: %w", err)
	}
	pushed, err := meter.Int64Counter("sync.records.pushed", metric.WithDescription("Отправленные записи"))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика sync.records.pushed: %w", err)
	}
	pulled, err := meter.Int64Counter("sync.records.pulled", metric.WithDescription("Примененные удаленные записи"))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика sync.records.pulled: %w", err)
	}
	uploads, err := meter.Int64Counter("photo.uploads", metric.WithDescription("Попытки загрузки фото"))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счетчика photo.uploads: %w", err)
	}

	return &Metrics{
		runs:    runs,
		retries: retries,
		pushed:  pushed,
		pulled:  pulled,
		uploads: uploads,
	}, nil
}

// SetupMetrics создает провайдер. С stdout метрики раз в интервал печатаются
// в stdout, без него провайдер только накапливает значения.
func SetupMetrics(stdout bool, interval time.Duration) (*sdkmetric.MeterProvider, error) {
	var opts []sdkmetric.Option

	if stdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("ошибка создания экспортера метрик: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)),
		))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}

func (m *Metrics) syncRun(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) syncRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1)
}

func (m *Metrics) recordsPushed(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.pushed.Add(ctx, int64(n))
}

func (m *Metrics) recordsPulled(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.pulled.Add(ctx, int64(n))
}

func (m *Metrics) photoUpload(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
