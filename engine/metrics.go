package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 是推荐引擎的 Prometheus 指标。nil *Metrics 上的方法都是空操作。
type Metrics struct {
	recommendations *prometheus.CounterVec
	buildDuration   prometheus.Histogram
	scores          prometheus.Histogram
}

// NewMetrics 创建指标并注册到 reg；reg 为 nil 时只创建不注册。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinerec_recommendations_total",
				Help: "Total number of recommendation lists produced",
			},
			[]string{"kind"}, // "content", "pool"
		),
		buildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cinerec_user_similarity_build_seconds",
				Help:    "Duration of user similarity matrix builds in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		scores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cinerec_prediction_score",
				Help:    "Distribution of additive prediction scores",
				Buckets: prometheus.LinearBuckets(0, 5, 10),
			},
		),
	}
}

func (m *Metrics) incRecommendations(kind string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeBuild(start time.Time) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeScore(score float64) {
	if m == nil {
		return
	}
	m.scores.Observe(score)
}
