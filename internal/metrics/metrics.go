package metrics

import (
	"time"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/core/port"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solareco"

// PollCollector exposes poll outcomes as prometheus metrics.
type PollCollector struct {
	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	feeds        *prometheus.GaugeVec
	valueErrors  *prometheus.CounterVec
	lastSuccess  *prometheus.GaugeVec
}

func NewPollCollector(reg prometheus.Registerer) *PollCollector {
	c := &PollCollector{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "total",
				Help:      "Feed list polls by device and result",
			},
			[]string{"device_id", "result"},
		),
		pollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "duration_seconds",
				Help:      "Feed list poll latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"device_id"},
		),
		feeds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "feeds_reported",
				Help:      "Known feeds in the last successful snapshot",
			},
			[]string{"device_id"},
		),
		valueErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "value_errors_total",
				Help:      "Feed values that could not be converted",
			},
			[]string{"device_id", "feed_id"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "poll",
				Name:      "last_success",
				Help:      "1 when the last poll succeeded",
			},
			[]string{"device_id"},
		),
	}
	reg.MustRegister(c.polls, c.pollDuration, c.feeds, c.valueErrors, c.lastSuccess)
	return c
}

func (c *PollCollector) ObservePoll(deviceId string, duration time.Duration, kind domain.ErrorKind) {
	if kind == domain.KindCanceled {
		return
	}
	result := "success"
	success := 1.0
	if kind != domain.KindNone {
		result = kind.String()
		success = 0
	}
	c.polls.WithLabelValues(deviceId, result).Inc()
	c.pollDuration.WithLabelValues(deviceId).Observe(duration.Seconds())
	c.lastSuccess.WithLabelValues(deviceId).Set(success)
}

func (c *PollCollector) SetFeedsReported(deviceId string, count int) {
	c.feeds.WithLabelValues(deviceId).Set(float64(count))
}

func (c *PollCollector) IncValueErrors(deviceId string, feedId domain.FeedID) {
	c.valueErrors.WithLabelValues(deviceId, string(feedId)).Inc()
}

// ensure interface compliance
var _ port.PollMetrics = (*PollCollector)(nil)
