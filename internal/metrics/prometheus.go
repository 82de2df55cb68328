package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "build_studio"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration    *prom.HistogramVec
	buildOutcome     *prom.CounterVec
	policyRejections prom.Counter
	cleanupFailures  prom.Counter
	nodeOperations   *prom.CounterVec
	nodes            *prom.GaugeVec
	scans            *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of build command runs",
			Buckets:   prom.ExponentialBuckets(0.5, 2, 14),
		}, []string{"platform"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		policyRejections: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "policy_rejections_total",
			Help:      "Build commands rejected by the security policy",
		}),
		cleanupFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "sandbox_cleanup_failures_total",
			Help:      "Sandbox directories that could not be removed",
		}),
		nodeOperations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "node_operations_total",
			Help:      "Node lifecycle operations by verb, technology and result",
		}, []string{"verb", "technology", "result"}),
		nodes: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes",
			Help:      "Registered nodes by lifecycle state",
		}, []string{"state"}),
		scans: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_scans_total",
			Help:      "Discovery scanner runs by technology and result",
		}, []string{"technology", "result"}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.policyRejections, pr.cleanupFailures, pr.nodeOperations, pr.nodes, pr.scans)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(platform string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(platform).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncPolicyRejection() {
	if p == nil || p.policyRejections == nil {
		return
	}
	p.policyRejections.Inc()
}

func (p *PrometheusRecorder) IncSandboxCleanupFailure() {
	if p == nil || p.cleanupFailures == nil {
		return
	}
	p.cleanupFailures.Inc()
}

func (p *PrometheusRecorder) IncNodeOperation(verb, technology, result string) {
	if p == nil || p.nodeOperations == nil {
		return
	}
	p.nodeOperations.WithLabelValues(verb, technology, result).Inc()
}

func (p *PrometheusRecorder) SetNodeCount(state string, n int) {
	if p == nil || p.nodes == nil {
		return
	}
	p.nodes.WithLabelValues(state).Set(float64(n))
}

func (p *PrometheusRecorder) IncScanResult(technology, result string) {
	if p == nil || p.scans == nil {
		return
	}
	p.scans.WithLabelValues(technology, result).Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var (
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = NoopRecorder{}
)
