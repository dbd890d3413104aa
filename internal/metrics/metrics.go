package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wearable"

// Metrics 服务指标
// 所有方法对 nil 接收者安全，测试中可以直接传 nil
type Metrics struct {
	registry *prometheus.Registry

	readingsTotal     *prometheus.CounterVec
	anomaliesTotal    *prometheus.CounterVec
	dispatchesTotal   *prometheus.CounterVec
	dispatchDuration  prometheus.Histogram
	storeFailures     *prometheus.CounterVec
	wearTransitions   *prometheus.CounterVec
	trackedDevices    prometheus.Gauge
	classificationsBy *prometheus.CounterVec
}

// New 创建指标并注册到独立的 Registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		readingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Readings processed by result (accepted, duplicate, rejected).",
		}, []string{"result"}),
		anomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Anomaly events detected by kind.",
		}, []string{"kind"}),
		dispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_dispatches_total",
			Help:      "Alert dispatches by delivery status.",
		}, []string{"status"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_dispatch_duration_seconds",
			Help:      "Time from dispatch start until the alert record is persisted.",
			Buckets:   prometheus.DefBuckets,
		}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "History store write failures by table.",
		}, []string{"table"}),
		wearTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wear_transitions_total",
			Help:      "Wear state transitions by target state.",
		}, []string{"state"}),
		trackedDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_devices",
			Help:      "Devices with in-memory state.",
		}),
		classificationsBy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Classifier results by emotion label.",
		}, []string{"emotion"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.readingsTotal,
		m.anomaliesTotal,
		m.dispatchesTotal,
		m.dispatchDuration,
		m.storeFailures,
		m.wearTransitions,
		m.trackedDevices,
		m.classificationsBy,
	)

	return m
}

// Registry 指标注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReadingAccepted() {
	if m == nil {
		return
	}
	m.readingsTotal.WithLabelValues("accepted").Inc()
}

func (m *Metrics) ReadingDuplicate() {
	if m == nil {
		return
	}
	m.readingsTotal.WithLabelValues("duplicate").Inc()
}

func (m *Metrics) ReadingRejected() {
	if m == nil {
		return
	}
	m.readingsTotal.WithLabelValues("rejected").Inc()
}

func (m *Metrics) Anomaly(kind string) {
	if m == nil {
		return
	}
	m.anomaliesTotal.WithLabelValues(kind).Inc()
}

// Dispatch 记录一次派发（status 为 Sent / Failed / NotPersisted）
func (m *Metrics) Dispatch(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(status).Inc()
	m.dispatchDuration.Observe(duration.Seconds())
}

func (m *Metrics) StoreFailure(table string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(table).Inc()
}

func (m *Metrics) WearTransition(state string) {
	if m == nil {
		return
	}
	m.wearTransitions.WithLabelValues(state).Inc()
}

func (m *Metrics) TrackedDevices(n int) {
	if m == nil {
		return
	}
	m.trackedDevices.Set(float64(n))
}

func (m *Metrics) Classification(emotion string) {
	if m == nil {
		return
	}
	m.classificationsBy.WithLabelValues(emotion).Inc()
}
