package game

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes gameplay counters on /metrics.
type Metrics struct {
	sessionsCreated prometheus.Counter
	sessionsActive  prometheus.Gauge
	playersJoined   prometheus.Counter
	answers         *prometheus.CounterVec
	gamesCompleted  prometheus.Counter
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "partyquiz",
			Name:      "sessions_created_total",
			Help:      "Quiz sessions created.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "partyquiz",
			Name:      "sessions_active",
			Help:      "Quiz sessions currently held in memory.",
		}),
		playersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "partyquiz",
			Name:      "players_joined_total",
			Help:      "Players admitted to a lobby.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partyquiz",
			Name:      "answers_total",
			Help:      "Answer submissions by outcome.",
		}, []string{"outcome"}),
		gamesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "partyquiz",
			Name:      "games_completed_total",
			Help:      "Games that reached the END phase.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessionsCreated, m.sessionsActive, m.playersJoined, m.answers, m.gamesCompleted)
	}
	return m
}

func (m *Metrics) sessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) sessionDeleted() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) playerJoined() {
	if m == nil {
		return
	}
	m.playersJoined.Inc()
}

func (m *Metrics) answer(outcome string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) gameCompleted() {
	if m == nil {
		return
	}
	m.gamesCompleted.Inc()
}
