package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	donationsCreated  prometheus.Counter
	statusTransitions *prometheus.CounterVec
	feedEvents        *prometheus.CounterVec
	profileResolves   *prometheus.CounterVec
	authAttempts      *prometheus.CounterVec
	wsConnections     prometheus.Gauge
}

// New registers the application metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		donationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "donations_created_total",
			Help: "Donations posted by donors.",
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_status_transitions_total",
			Help: "Donation status changes by target status and result.",
		}, []string{"status", "result"}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_feed_events_total",
			Help: "Change feed events applied to the live donation list.",
		}, []string{"op"}),
		profileResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_resolutions_total",
			Help: "Profile resolutions by outcome.",
		}, []string{"outcome"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Sign-up and sign-in attempts by kind and result.",
		}, []string{"kind", "result"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Open live feed connections.",
		}),
	}
	reg.MustRegister(
		m.donationsCreated,
		m.statusTransitions,
		m.feedEvents,
		m.profileResolves,
		m.authAttempts,
		m.wsConnections,
	)
	return m
}

// DonationCreated counts a posted donation.
func (m *Metrics) DonationCreated() {
	if m == nil {
		return
	}
	m.donationsCreated.Inc()
}

// StatusTransition counts a status change attempt.
func (m *Metrics) StatusTransition(status, result string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status, result).Inc()
}

// FeedEvent counts an applied change feed event.
func (m *Metrics) FeedEvent(op string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(op).Inc()
}

// ProfileResolved counts a profile resolution outcome.
func (m *Metrics) ProfileResolved(outcome string) {
	if m == nil {
		return
	}
	m.profileResolves.WithLabelValues(outcome).Inc()
}

// AuthAttempt counts a sign-up or sign-in attempt.
func (m *Metrics) AuthAttempt(kind, result string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(kind, result).Inc()
}

// ConnectionOpened tracks a new live feed connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

// ConnectionClosed tracks a closed live feed connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}
