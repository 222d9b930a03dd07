package broker

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the optional Prometheus instrumentation for one ClientEnv.
// Nil-safe: every broker call that touches it tolerates a nil *Metrics,
// since wiring metrics in is opt-in (Config.MetricsEnabled).
type Metrics struct {
	peerCount      prometheus.Gauge
	reconnects     prometheus.Counter
	malformed      prometheus.Counter
	routerMsgsIn   prometheus.Counter
	routerMsgsOut  prometheus.Counter
	subMsgsIn      prometheus.Counter
}

// NewMetrics builds the broker's collectors under namespace. If reg is
// non-nil, every collector is registered on it; a collector already
// registered by an earlier ClientEnv sharing the same registry and
// namespace is reused rather than treated as an error. Passing a nil reg
// builds the collectors without registering them anywhere, so a caller
// that leaves metrics disabled never triggers a global registration as a
// side effect.
func NewMetrics(namespace string, reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		peerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_count",
			Help:      "Current number of connected peers.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Total number of peer reconnects applied.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Total number of inbound frames dropped as malformed.",
		}),
		routerMsgsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_messages_in_total",
			Help:      "Total number of messages received on the ROUTER socket.",
		}),
		routerMsgsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_messages_out_total",
			Help:      "Total number of messages sent on the ROUTER socket.",
		}),
		subMsgsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sub_messages_in_total",
			Help:      "Total number of publications received and fanned out.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	collectors := []prometheus.Collector{
		m.peerCount, m.reconnects, m.malformed, m.routerMsgsIn, m.routerMsgsOut, m.subMsgsIn,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				collectors[i] = are.ExistingCollector
				continue
			}
			return nil, NewError(ErrCodeTransientIO, "failed to register metric", err)
		}
	}
	m.peerCount = collectors[0].(prometheus.Gauge)
	m.reconnects = collectors[1].(prometheus.Counter)
	m.malformed = collectors[2].(prometheus.Counter)
	m.routerMsgsIn = collectors[3].(prometheus.Counter)
	m.routerMsgsOut = collectors[4].(prometheus.Counter)
	m.subMsgsIn = collectors[5].(prometheus.Counter)
	return m, nil
}

func (m *Metrics) setPeerCount(n int) {
	if m == nil {
		return
	}
	m.peerCount.Set(float64(n))
}

func (m *Metrics) incReconnects(n int) {
	if m == nil {
		return
	}
	m.reconnects.Add(float64(n))
}

func (m *Metrics) incMalformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

func (m *Metrics) incRouterIn() {
	if m == nil {
		return
	}
	m.routerMsgsIn.Inc()
}

func (m *Metrics) incRouterOut() {
	if m == nil {
		return
	}
	m.routerMsgsOut.Inc()
}

func (m *Metrics) incSubIn() {
	if m == nil {
		return
	}
	m.subMsgsIn.Inc()
}
