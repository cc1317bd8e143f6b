package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/core/port"
	"github.com/berfenger/solareco2mqtt/pkg/emoncms"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var errNullValue = errors.New("value is null")

type PollerConfig struct {
	DeviceId            string
	ScanIntervalSeconds int
	Client              emoncms.FeedClient
	Schema              *domain.SensorSchema
	Metrics             port.PollMetrics
	Logger              *zap.Logger
}

// TelemetryPoller fetches the feed list of one device and keeps the last
// successful snapshot. Concurrent refreshes share a single fetch.
type TelemetryPoller struct {
	deviceId     string
	scanInterval atomic.Int64
	client       emoncms.FeedClient
	schema       *domain.SensorSchema
	metrics      port.PollMetrics
	logger       *zap.Logger

	fetches singleflight.Group
	state   atomic.Pointer[pollerState]

	// mu orders state stores against Close
	mu            sync.Mutex
	closed        bool
	primaryMissed bool
	lifetime      context.Context
	cancel        context.CancelFunc
}

type pollerState struct {
	snapshot   domain.Snapshot
	success    bool
	attempted  bool
	lastUpdate time.Time
	lastError  error
}

func NewTelemetryPoller(cfg PollerConfig) (*TelemetryPoller, error) {
	if cfg.DeviceId == "" {
		return nil, &domain.InvalidDeviceIdError{Reason: "device id is required"}
	}
	if cfg.Client == nil {
		return nil, errors.New("poller: feed client is required")
	}
	if cfg.Schema == nil {
		cfg.Schema = domain.DefaultSensorSchema()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = port.NopPollMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ScanIntervalSeconds == 0 {
		cfg.ScanIntervalSeconds = domain.DEFAULT_SCAN_INTERVAL_SECONDS
	}

	lifetime, cancel := context.WithCancel(context.Background())
	p := &TelemetryPoller{
		deviceId: cfg.DeviceId,
		client:   cfg.Client,
		schema:   cfg.Schema,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With(zap.String("device_id", cfg.DeviceId)),
		lifetime: lifetime,
		cancel:   cancel,
	}
	p.SetScanInterval(cfg.ScanIntervalSeconds)
	p.state.Store(&pollerState{snapshot: domain.Snapshot{}})
	return p, nil
}

func (p *TelemetryPoller) DeviceId() string {
	return p.deviceId
}

func (p *TelemetryPoller) Schema() *domain.SensorSchema {
	return p.schema
}

// SetScanInterval stores the clamped interval and returns it.
func (p *TelemetryPoller) SetScanInterval(seconds int) int {
	clamped, changed := domain.ClampScanInterval(seconds)
	if changed {
		p.logger.Warn("poller: scan interval out of range, clamped",
			zap.Int("requested", seconds), zap.Int("scan_interval", clamped))
	}
	p.scanInterval.Store(int64(clamped))
	return clamped
}

func (p *TelemetryPoller) ScanInterval() time.Duration {
	return time.Duration(p.scanInterval.Load()) * time.Second
}

// Refresh fetches the feed list and publishes a new snapshot. On failure the
// previous snapshot is kept, the update is marked failed and the error is
// returned together with the kept snapshot. A refresh requested while another
// one is running waits for it and shares its result. The shared fetch is bound
// to the poller lifetime only: a caller giving up on ctx stops waiting but
// does not abort the fetch for the callers that joined it.
func (p *TelemetryPoller) Refresh(ctx context.Context) (domain.Snapshot, error) {
	ch := p.fetches.DoChan(p.deviceId, func() (any, error) {
		return p.refresh()
	})
	select {
	case res := <-ch:
		if res.Shared {
			p.logger.Debug("poller@refresh: joined in-flight refresh")
		}
		if res.Err != nil {
			return p.CurrentSnapshot(), res.Err
		}
		return maps.Clone(res.Val.(domain.Snapshot)), nil
	case <-ctx.Done():
		return p.CurrentSnapshot(), fmt.Errorf("refresh %s: %w", p.deviceId, ctx.Err())
	}
}

func (p *TelemetryPoller) refresh() (domain.Snapshot, error) {
	if p.isClosed() {
		return nil, domain.ErrPollerClosed
	}

	start := time.Now()
	p.logger.Debug("poller@refresh: fetching", zap.String("url", p.client.FeedListURL(p.deviceId)))

	var snapshot domain.Snapshot
	feeds, err := p.client.FeedList(p.lifetime, p.deviceId)
	if err == nil {
		snapshot = p.buildSnapshot(feeds)
	}
	return p.apply(time.Since(start), snapshot, err)
}

func (p *TelemetryPoller) apply(duration time.Duration, snapshot domain.Snapshot, err error) (domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Debug("poller@refresh: poller closed, result discarded")
		return nil, domain.ErrPollerClosed
	}

	prev := p.state.Load()
	kind := domain.KindOf(err)
	p.metrics.ObservePoll(p.deviceId, duration, kind)

	if err != nil {
		p.state.Store(&pollerState{
			snapshot:   prev.snapshot,
			success:    false,
			attempted:  true,
			lastUpdate: prev.lastUpdate,
			lastError:  err,
		})
		p.logger.Warn("poller@refresh: update failed", zap.String("kind", kind.String()), zap.Error(err))
		return nil, err
	}

	p.state.Store(&pollerState{
		snapshot:   snapshot,
		success:    true,
		attempted:  true,
		lastUpdate: time.Now(),
	})
	p.metrics.SetFeedsReported(p.deviceId, len(snapshot))
	p.checkPrimaryFeeds(snapshot)
	p.logger.Debug("poller@refresh: updated", zap.Int("feeds", len(snapshot)), zap.Duration("duration", duration))
	return snapshot, nil
}

// checkPrimaryFeeds warns once when the primary feeds disappear and once when
// they are back. Availability is still decided per feed.
func (p *TelemetryPoller) checkPrimaryFeeds(snapshot domain.Snapshot) {
	missing := snapshot.Missing(domain.PrimaryFeeds...)
	switch {
	case len(missing) > 0 && !p.primaryMissed:
		p.primaryMissed = true
		p.logger.Warn("poller@refresh: expected feed ids not found", zap.Any("missing", missing))
	case len(missing) == 0 && p.primaryMissed:
		p.primaryMissed = false
		p.logger.Info("poller@refresh: expected feed ids reported again")
	}
}

func (p *TelemetryPoller) buildSnapshot(feeds []emoncms.Feed) domain.Snapshot {
	snapshot := make(domain.Snapshot, p.schema.Len())
	for i := range feeds {
		feed := feeds[i]
		def, ok := p.schema.Lookup(domain.FeedID(feed.Id))
		if !ok {
			continue
		}
		value, err := transformFeed(def, feed)
		if err != nil {
			p.logger.Warn("poller@refresh: failed to parse feed", zap.String("feed_id", feed.Id), zap.Error(err))
			p.metrics.IncValueErrors(p.deviceId, def.FeedID)
			snapshot[def.FeedID] = domain.FeedValue{}
			continue
		}
		snapshot[def.FeedID] = domain.FeedValue{
			Value: &value,
			Time:  feed.Time,
			Name:  feed.Name,
		}
	}
	return snapshot
}

func transformFeed(def domain.SensorDefinition, feed emoncms.Feed) (float64, error) {
	if feed.Value == nil {
		return 0, &domain.ValueTransformError{FeedID: def.FeedID, Raw: "null", Err: errNullValue}
	}
	return def.Transform(*feed.Value)
}

// Close cancels a running fetch. Results arriving after Close are discarded.
func (p *TelemetryPoller) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
}

func (p *TelemetryPoller) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// CurrentSnapshot returns a copy of the last successful snapshot.
func (p *TelemetryPoller) CurrentSnapshot() domain.Snapshot {
	return maps.Clone(p.state.Load().snapshot)
}

func (p *TelemetryPoller) LastUpdateSucceeded() bool {
	return p.state.Load().success
}

// LastUpdate is the time of the last successful refresh, zero before it.
func (p *TelemetryPoller) LastUpdate() time.Time {
	return p.state.Load().lastUpdate
}

// Initialized reports whether the first refresh has completed.
func (p *TelemetryPoller) Initialized() bool {
	return p.state.Load().attempted
}

func (p *TelemetryPoller) IsAvailable(id domain.FeedID) bool {
	state := p.state.Load()
	return state.success && state.snapshot.Has(id)
}

func (p *TelemetryPoller) Status() domain.DeviceStatus {
	state := p.state.Load()
	return domain.DeviceStatus{
		DeviceId:          p.deviceId,
		ScanInterval:      p.ScanInterval(),
		Snapshot:          maps.Clone(state.snapshot),
		LastUpdateSuccess: state.success,
		LastUpdate:        state.lastUpdate,
		LastError:         state.lastError,
	}
}

// ensure interface compliance
var _ port.SnapshotReader = (*TelemetryPoller)(nil)
