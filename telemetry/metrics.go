package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "frogpond"

// Metrics exposes run progress to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Generations  prometheus.Counter
	Deaths       *prometheus.CounterVec
	Respawns     prometheus.Counter
	PlayerDeaths prometheus.Counter
	Turn         prometheus.Gauge
	ActiveAgents *prometheus.GaugeVec
	FitnessMean  prometheus.Gauge
	FitnessBest  prometheus.Gauge
	TurnDuration prometheus.Histogram
}

// NewMetrics registers the run metrics on a fresh registry, so several runs
// in one process do not collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Generations: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "generations_total",
			Help:      "Generation steps completed.",
		}),
		Deaths: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "agent_deaths_total",
			Help:      "Agents killed by the player, by species.",
		}, []string{"species"}),
		Respawns: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "respawns_total",
			Help:      "Instant respawns performed by the population manager.",
		}),
		PlayerDeaths: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "player_deaths_total",
			Help:      "Times the player was killed.",
		}),
		Turn: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "turn",
			Help:      "Current world turn.",
		}),
		ActiveAgents: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_agents",
			Help:      "Agents on the map and acting, by species.",
		}, []string{"species"}),
		FitnessMean: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "fitness_mean",
			Help:      "Mean fitness at the latest generation step.",
		}),
		FitnessBest: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "fitness_best",
			Help:      "Best fitness at the latest generation step.",
		}),
		TurnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time spent on one world turn.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records a generation step.
func (m *Metrics) ObserveGeneration(stats GenerationStats) {
	if m == nil {
		return
	}
	m.Generations.Inc()
	m.FitnessMean.Set(stats.FitnessMean)
	m.FitnessBest.Set(stats.FitnessMax)
}

// ObserveDeath records an agent death.
func (m *Metrics) ObserveDeath(species string) {
	if m == nil {
		return
	}
	m.Deaths.WithLabelValues(species).Inc()
}

// ObserveRespawn records an instant respawn.
func (m *Metrics) ObserveRespawn() {
	if m == nil {
		return
	}
	m.Respawns.Inc()
}

// ObservePlayerDeath records the player being killed.
func (m *Metrics) ObservePlayerDeath() {
	if m == nil {
		return
	}
	m.PlayerDeaths.Inc()
}

// ObserveTurn records the end of a turn and how long it took.
func (m *Metrics) ObserveTurn(turn int, took time.Duration) {
	if m == nil {
		return
	}
	m.Turn.Set(float64(turn))
	m.TurnDuration.Observe(took.Seconds())
}

// SetActive records the active agent count for a species.
func (m *Metrics) SetActive(species string, n int) {
	if m == nil {
		return
	}
	m.ActiveAgents.WithLabelValues(species).Set(float64(n))
}
