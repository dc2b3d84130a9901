package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	generateDuration *prom.HistogramVec
	buildDuration    prom.Histogram
	runDuration      prom.Histogram
	topicOutcomes    *prom.CounterVec
	retries          *prom.CounterVec
	retriesExhausted prom.Counter
	workListSize     prom.Gauge
	sitePages        prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.generateDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "errorfix",
			Name:      "generate_duration_seconds",
			Help:      "Duration of individual article generations including retries",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "errorfix",
			Name:      "build_duration_seconds",
			Help:      "Duration of the site build stage",
			Buckets:   prom.DefBuckets,
		})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "errorfix",
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.topicOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "errorfix",
			Name:      "topic_outcomes_total",
			Help:      "Topic outcomes by final status",
		}, []string{"outcome"})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "errorfix",
			Name:      "generate_retries_total",
			Help:      "Generation retries by error class",
		}, []string{"class"})
		pr.retriesExhausted = prom.NewCounter(prom.CounterOpts{
			Namespace: "errorfix",
			Name:      "generate_retry_exhausted_total",
			Help:      "Count of topics where retries were exhausted",
		})
		pr.workListSize = prom.NewGauge(prom.GaugeOpts{
			Namespace: "errorfix",
			Name:      "work_list_size",
			Help:      "Topics requiring generation in the last reconciliation",
		})
		pr.sitePages = prom.NewGauge(prom.GaugeOpts{
			Namespace: "errorfix",
			Name:      "site_pages",
			Help:      "Article pages produced by the last site build",
		})
		reg.MustRegister(pr.generateDuration, pr.buildDuration, pr.runDuration,
			pr.topicOutcomes, pr.retries, pr.retriesExhausted, pr.workListSize, pr.sitePages)
	})
	return pr
}

func (pr *PrometheusRecorder) ObserveGenerateDuration(d time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	pr.generateDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	pr.buildDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	pr.runDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncTopicOutcome(outcome string) {
	pr.topicOutcomes.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) IncRetry(class string) {
	pr.retries.WithLabelValues(class).Inc()
}

func (pr *PrometheusRecorder) IncRetriesExhausted() {
	pr.retriesExhausted.Inc()
}

func (pr *PrometheusRecorder) SetWorkListSize(n int) {
	pr.workListSize.Set(float64(n))
}

func (pr *PrometheusRecorder) SetSitePages(n int) {
	pr.sitePages.Set(float64(n))
}
