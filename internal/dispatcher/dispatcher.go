package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefido-wearable/internal/metrics"
	"wisefido-wearable/internal/models"
	"wisefido-wearable/internal/notifier"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrAlertNotPersisted 报警记录重试后仍未写入历史库
var ErrAlertNotPersisted = errors.New("alert record not persisted")

// ErrDispatcherClosed Shutdown 之后不再接受新的派发
var ErrDispatcherClosed = errors.New("dispatcher closed")

// AlertStore 报警记录存储
type AlertStore interface {
	AppendAlert(ctx context.Context, message, timestamp string, status models.AlertStatus) (models.AlertRecord, error)
}

// AlertSink 已持久化报警的下游（Redis 缓存 / 流），尽力而为
type AlertSink interface {
	AlertPersisted(ctx context.Context, deviceID string, record models.AlertRecord)
}

// Config 派发配置
type Config struct {
	StoreRetries  int           // 写库失败后的重试次数
	RetryBackoff  time.Duration // 首次重试等待，之后翻倍
	NotifyTimeout time.Duration // 单次通知的超时
}

// Dispatcher 报警派发器
//
// 每次派发按顺序：调用通知通道，无论成功与否都构造 AlertRecord（Sent / Failed），
// 写入历史库（失败重试），成功后推送给下游，最后返回记录。
// 通知失败只影响 status，不会阻止落库。
type Dispatcher struct {
	notifier notifier.Notifier
	store    AlertStore
	sink     AlertSink
	clock    clockwork.Clock
	cfg      Config
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	closed  bool
	pending int
	drained chan struct{} // pending 从 0 变 1 时创建，回到 0 时关闭
}

// NewDispatcher 创建报警派发器；sink 和 m 可以为 nil
func NewDispatcher(
	n notifier.Notifier,
	store AlertStore,
	sink AlertSink,
	clock clockwork.Clock,
	cfg Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.StoreRetries < 0 {
		cfg.StoreRetries = 0
	}
	return &Dispatcher{
		notifier: n,
		store:    store,
		sink:     sink,
		clock:    clock,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Dispatch 同步派发一条报警
// 只有报警记录无法落库时返回错误（ErrAlertNotPersisted），此时返回的记录 ID 为 0
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID, message string) (models.AlertRecord, error) {
	start := d.clock.Now()

	// 关停时不打断进行中的派发
	ctx = context.WithoutCancel(ctx)

	status := models.AlertStatusSent
	if err := d.notify(ctx, message); err != nil {
		status = models.AlertStatusFailed
		d.logger.Warn("Alert notification failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	timestamp := d.clock.Now().Format(models.AlertTimestampLayout)
	record, err := d.persist(ctx, message, timestamp, status)
	if err != nil {
		d.metrics.Dispatch("NotPersisted", d.clock.Since(start))
		d.logger.Error("Alert record could not be persisted",
			zap.String("device_id", deviceID),
			zap.String("message", message),
			zap.String("status", string(status)),
			zap.Bool("operator_action_required", true),
			zap.Error(err),
		)
		return models.AlertRecord{Message: message, Timestamp: timestamp, Status: status}, err
	}

	d.metrics.Dispatch(string(status), d.clock.Since(start))
	d.logger.Info("Alert dispatched",
		zap.String("device_id", deviceID),
		zap.Int64("alert_id", record.ID),
		zap.String("status", string(status)),
	)

	if d.sink != nil {
		d.sink.AlertPersisted(ctx, deviceID, record)
	}

	return record, nil
}

// Submit 异步派发，不阻塞调用方（读数路径 / 佩戴扫描）
// Shutdown 之后提交的报警被拒绝并记录错误日志
func (d *Dispatcher) Submit(ctx context.Context, deviceID, message string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.metrics.Dispatch("Rejected", 0)
		d.logger.Error("Alert rejected after dispatcher shutdown",
			zap.String("device_id", deviceID),
			zap.String("message", message),
			zap.Bool("operator_action_required", true),
		)
		return ErrDispatcherClosed
	}
	if d.pending == 0 {
		d.drained = make(chan struct{})
	}
	d.pending++
	d.mu.Unlock()

	go func() {
		defer d.done()
		_, _ = d.Dispatch(ctx, deviceID, message)
	}()
	return nil
}

// Wait 等待进行中的派发完成，最多等待 timeout，返回是否全部完成
// 可与 Submit 并发调用
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	d.mu.Lock()
	if d.pending == 0 {
		d.mu.Unlock()
		return true
	}
	drained := d.drained
	d.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-drained:
		return true
	case <-timer.C:
		d.logger.Warn("Timed out waiting for in-flight alert dispatches", zap.Duration("timeout", timeout))
		return false
	}
}

// Shutdown 停止接受新的派发，再按 Wait 的方式等待进行中的派发
func (d *Dispatcher) Shutdown(timeout time.Duration) bool {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Wait(timeout)
}

func (d *Dispatcher) done() {
	d.mu.Lock()
	d.pending--
	if d.pending == 0 {
		close(d.drained)
	}
	d.mu.Unlock()
}

func (d *Dispatcher) notify(ctx context.Context, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()

	if d.cfg.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.NotifyTimeout)
		defer cancel()
	}
	return d.notifier.Send(ctx, message)
}

func (d *Dispatcher) persist(ctx context.Context, message, timestamp string, status models.AlertStatus) (models.AlertRecord, error) {
	backoff := d.cfg.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= d.cfg.StoreRetries; attempt++ {
		if attempt > 0 && backoff > 0 {
			d.clock.Sleep(backoff)
			backoff *= 2
		}

		record, err := d.store.AppendAlert(ctx, message, timestamp, status)
		if err == nil {
			return record, nil
		}
		lastErr = err
		d.metrics.StoreFailure("alerts")
		d.logger.Warn("Failed to persist alert record",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return models.AlertRecord{}, fmt.Errorf("%w: %v", ErrAlertNotPersisted, lastErr)
}
