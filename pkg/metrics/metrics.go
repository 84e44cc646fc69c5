package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder 排班运行指标采集接口
type Recorder interface {
	RunFinished(kind, status string, elapsed time.Duration)
	Warning(kind string)
	SwapsApplied(n int)
}

// ── Nop 实现 ──

// Nop 不采集任何指标（metrics.enabled=false 或测试）
type Nop struct{}

func (Nop) RunFinished(string, string, time.Duration) {}
func (Nop) Warning(string)                            {}
func (Nop) SwapsApplied(int)                          {}

var _ Recorder = Nop{}

// ── Prometheus 实现 ──

// Prometheus 基于 client_golang 的指标采集器
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	warnings    *prometheus.CounterVec
	swaps       prometheus.Counter
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus 创建采集器
// reg 为 nil 时使用 prometheus.DefaultRegisterer；namespace 为空时默认 roster
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "roster"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total engine runs by kind (shifts/rooms) and status.",
		}, []string{"kind", "status"})

		p.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Wall time of engine runs including load and persist.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"kind"})

		p.warnings = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "warnings_total",
			Help:      "Non-fatal warnings reported by engine runs, by kind.",
		}, []string{"kind"})

		p.swaps = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "swap",
			Name:      "applied_total",
			Help:      "Total pairwise swaps applied by reconciliation.",
		})

		p.reg.MustRegister(p.runs, p.runDuration, p.warnings, p.swaps)
	})
}

// RunFinished 记录一次运行结束
func (p *Prometheus) RunFinished(kind, status string, elapsed time.Duration) {
	p.ensureRegistered()
	p.runs.WithLabelValues(kind, status).Inc()
	p.runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Warning 记录一条引擎警告
func (p *Prometheus) Warning(kind string) {
	p.ensureRegistered()
	p.warnings.WithLabelValues(kind).Inc()
}

// SwapsApplied 记录应用的换班数
func (p *Prometheus) SwapsApplied(n int) {
	if n <= 0 {
		return
	}
	p.ensureRegistered()
	p.swaps.Add(float64(n))
}

// Register 提前注册全部指标，便于 /metrics 在首次运行前即可暴露
func (p *Prometheus) Register() {
	p.ensureRegistered()
}
