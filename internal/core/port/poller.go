package port

import (
	"time"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
)

// SnapshotReader is the read-only view of a device poller used by the
// presentation adapters.
type SnapshotReader interface {
	DeviceId() string
	CurrentSnapshot() domain.Snapshot
	IsAvailable(id domain.FeedID) bool
	LastUpdateSucceeded() bool
	LastUpdate() time.Time
	Status() domain.DeviceStatus
}

// PollMetrics receives the outcome of every poll.
type PollMetrics interface {
	ObservePoll(deviceId string, duration time.Duration, kind domain.ErrorKind)
	SetFeedsReported(deviceId string, count int)
	IncValueErrors(deviceId string, feedId domain.FeedID)
}

type NopPollMetrics struct{}

func (NopPollMetrics) ObservePoll(string, time.Duration, domain.ErrorKind) {}

func (NopPollMetrics) SetFeedsReported(string, int) {}

func (NopPollMetrics) IncValueErrors(string, domain.FeedID) {}

var _ PollMetrics = NopPollMetrics{}
