package monitoring

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const inventoryMirrorKey = "inventory"

var (
	bookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"event_id", "outcome"},
	)

	ticketsBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_booked_total",
			Help: "Tickets placed on hold",
		},
		[]string{"event_id"},
	)

	ticketsReclaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_reclaimed_total",
			Help: "Expired holds released by the sweeper",
		},
		[]string{"event_id"},
	)

	paymentsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_confirmed_total",
			Help: "Tickets transitioned reserved -> paid",
		},
		[]string{"event_id"},
	)

	inventoryRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_tickets_remaining",
			Help: "Unsold inventory per event, from the redis mirror",
		},
		[]string{"event_id"},
	)

	bookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_duration_seconds",
			Help:    "Duration of booking attempts",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"outcome"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of sweeper passes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}
	go monitor.collectMetrics()
	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectInventoryMetrics(context.Background())
	}
}

func (m *Monitor) collectInventoryMetrics(ctx context.Context) {
	if m.redis == nil {
		return
	}

	mirror, err := m.redis.HGetAll(ctx, inventoryMirrorKey).Result()
	if err != nil {
		log.Printf("Error reading inventory mirror: %v", err)
		return
	}

	for eventID, raw := range mirror {
		remaining, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		inventoryRemaining.WithLabelValues(eventID).Set(float64(remaining))
	}
}

func (m *Monitor) TrackBooking(eventID, outcome string, quantity int, duration time.Duration) {
	bookingsTotal.WithLabelValues(eventID, outcome).Inc()
	bookingDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome == "success" {
		ticketsBooked.WithLabelValues(eventID).Add(float64(quantity))
	}
}

func (m *Monitor) TrackReclaim(eventID string, count int) {
	ticketsReclaimed.WithLabelValues(eventID).Add(float64(count))
}

func (m *Monitor) TrackConfirmation(eventID string, count int) {
	paymentsConfirmed.WithLabelValues(eventID).Add(float64(count))
}

func (m *Monitor) TrackSweep(duration time.Duration) {
	sweepDuration.Observe(duration.Seconds())
}

// MirrorInventory updates the per-event remaining count used by dashboards
// and the metrics collector. Best effort; the database stays authoritative.
func (m *Monitor) MirrorInventory(ctx context.Context, eventID string, remaining int) {
	if m.redis == nil {
		return
	}
	if err := m.redis.HSet(ctx, inventoryMirrorKey, eventID, remaining).Err(); err != nil {
		log.Printf("Error mirroring inventory for event %s: %v", eventID, err)
	}
}
