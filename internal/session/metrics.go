package session

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricSessionsActive      = "habitat_sessions_active"
	MetricSessionsCreated     = "habitat_sessions_created_total"
	MetricSessionsExpired     = "habitat_sessions_expired_total"
	MetricEditorOperations    = "habitat_editor_operations_total"
	MetricWSClients           = "habitat_ws_clients"
	MetricLayoutEffectiveness = "habitat_layout_effectiveness_percent"
)

// Metrics are safe to use on a nil receiver, which records nothing.
type Metrics struct {
	sessionsActive      prometheus.Gauge
	sessionsCreated     prometheus.Counter
	sessionsExpired     prometheus.Counter
	editorOperations    *prometheus.CounterVec
	wsClients           prometheus.Gauge
	layoutEffectiveness prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSessionsActive,
			Help: "Editor sessions currently held in memory",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSessionsCreated,
			Help: "Editor sessions created",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSessionsExpired,
			Help: "Editor sessions evicted after being idle",
		}),
		editorOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEditorOperations,
			Help: "Editor operations applied, by operation",
		}, []string{"operation"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricWSClients,
			Help: "Websocket clients subscribed to session views",
		}),
		layoutEffectiveness: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricLayoutEffectiveness,
			Help:    "Effectiveness score of layouts when requested",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.sessionsActive,
		m.sessionsCreated,
		m.sessionsExpired,
		m.editorOperations,
		m.wsClients,
		m.layoutEffectiveness,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionRemoved(expired bool) {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
	if expired {
		m.sessionsExpired.Inc()
	}
}

func (m *Metrics) IncOperation(op string) {
	if m == nil {
		return
	}
	m.editorOperations.WithLabelValues(op).Inc()
}

func (m *Metrics) AddWSClients(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}

func (m *Metrics) ObserveEffectiveness(percent int) {
	if m == nil {
		return
	}
	m.layoutEffectiveness.Observe(float64(percent))
}
