package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/core/events"
	"github.com/berfenger/solareco2mqtt/internal/core/service"
	. "github.com/berfenger/solareco2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DEFAULT_MIN_REFRESH_INTERVAL = 5 * time.Second
	DEFAULT_REFRESH_TIMEOUT      = 15 * time.Second
)

type PollerActorConfig struct {
	// MinRefreshInterval is the minimum spacing of manual refreshes.
	MinRefreshInterval time.Duration
	RefreshTimeout     time.Duration
}

// PollerActor drives the refresh cycle of one device: an initial refresh,
// periodic ticks and manual refreshes. At most one refresh runs at a time.
type PollerActor struct {
	ActorWithStates
	scheduler      *scheduler.TimerScheduler
	cancelTicks    scheduler.CancelFunc
	cancelRefresh  context.CancelFunc
	stash          *Stash
	poller         *service.TelemetryPoller
	eventStream    *eventstream.EventStream
	limiter        *rate.Limiter
	refreshTimeout time.Duration
	waiters        []*actor.PID

	logger *zap.Logger
}

type pollerTick struct {
}

type refreshResult struct {
	Err error
}

func NewPollerActor(poller *service.TelemetryPoller, eventStream *eventstream.EventStream, cfg PollerActorConfig, logger *zap.Logger) *PollerActor {
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = DEFAULT_MIN_REFRESH_INTERVAL
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DEFAULT_REFRESH_TIMEOUT
	}
	act := &PollerActor{
		ActorWithStates: NewActorWithStates(),
		stash:           &Stash{},
		poller:          poller,
		eventStream:     eventStream,
		limiter:         rate.NewLimiter(rate.Every(cfg.MinRefreshInterval), 1),
		refreshTimeout:  cfg.RefreshTimeout,
		logger: ActorLogger(domain.PollerActorId(poller.DeviceId()), logger).
			With(zap.String("device_id", poller.DeviceId())),
	}
	act.Become(PollerStartingState{
		actor: act,
	})
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type PollerStartingState struct {
	actor *PollerActor
}

func (state PollerStartingState) Name() string {
	return "starting"
}

func (state PollerStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("poller@starting started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.startRefresh(ctx)
		state.actor.Become(PollerInitializingState{
			actor: state.actor,
		})
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Initializing state: the first refresh is running

type PollerInitializingState struct {
	actor *PollerActor
}

func (state PollerInitializingState) Name() string {
	return "initializing"
}

func (state PollerInitializingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case refreshResult:
		state.actor.logger.Debug("poller@initializing refreshResult")
		state.actor.onRefreshed(ctx, msg)
		state.actor.scheduleTicks(ctx)
		state.actor.eventStream.Publish(events.ScanIntervalUpdateEvent(state.actor.poller.DeviceId(), state.actor.scanIntervalSeconds()))
		state.actor.Become(PollerIdleState{
			actor: state.actor,
		})
		state.actor.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx)
	case *actor.Restarting:
		state.actor.cancel()
	case *actor.Stopping:
		state.actor.stop(ctx)
	default:
		state.actor.logger.Debug("poller@initializing: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Idle state

type PollerIdleState struct {
	actor *PollerActor
}

func (state PollerIdleState) Name() string {
	return "idle"
}

func (state PollerIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx)
	case pollerTick:
		state.actor.logger.Debug("poller@idle tick")
		state.actor.startRefresh(ctx)
		state.actor.BecomeStacked(PollerRefreshingState{
			actor: state.actor,
		})
	case domain.RefreshRequest:
		if !state.actor.limiter.Allow() {
			state.actor.logger.Info("poller@idle RefreshRequest throttled")
			ForRequest(msg).Respond(ctx, domain.RefreshResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: domain.ErrRefreshThrottled,
				},
				Status: state.actor.poller.Status(),
			})
			return
		}
		state.actor.logger.Debug("poller@idle RefreshRequest")
		state.actor.addWaiter(ctx, msg)
		state.actor.startRefresh(ctx)
		state.actor.BecomeStacked(PollerRefreshingState{
			actor: state.actor,
		})
	case domain.SetScanIntervalRequest:
		state.actor.setScanInterval(ctx, msg)
	case domain.GetSnapshotRequest:
		state.actor.respondSnapshot(ctx, msg)
	case *actor.Restarting:
		state.actor.cancel()
	case *actor.Stopping:
		state.actor.stop(ctx)
	default:
		state.actor.logger.Debug("poller@idle: unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Refreshing state

type PollerRefreshingState struct {
	actor *PollerActor
}

func (state PollerRefreshingState) Name() string {
	return "refreshing"
}

func (state PollerRefreshingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case refreshResult:
		state.actor.logger.Debug("poller@refreshing refreshResult")
		state.actor.onRefreshed(ctx, msg)
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case pollerTick:
		state.actor.logger.Debug("poller@refreshing tick skipped")
	case domain.RefreshRequest:
		// answered with the result of the running refresh
		state.actor.logger.Debug("poller@refreshing RefreshRequest joined")
		state.actor.addWaiter(ctx, msg)
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx)
	case domain.GetSnapshotRequest:
		state.actor.respondSnapshot(ctx, msg)
	case *actor.Restarting:
		state.actor.cancel()
	case *actor.Stopping:
		state.actor.stop(ctx)
	default:
		state.actor.logger.Debug("poller@refreshing: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) startRefresh(ctx actor.Context) {
	refreshCtx, cancel := context.WithCancel(context.Background())
	state.cancelRefresh = cancel
	poller := state.poller
	NewBackgroundTask(ctx, func(c context.Context) (*refreshResult, error) {
		_, err := poller.Refresh(c)
		return &refreshResult{Err: err}, nil
	}).WithContext(refreshCtx).WithTimeout(state.refreshTimeout).Recover(func(err error) refreshResult {
		return refreshResult{Err: err}
	}).PipeTo(ctx.Self())
}

func (state *PollerActor) onRefreshed(ctx actor.Context, result refreshResult) {
	if state.cancelRefresh != nil {
		state.cancelRefresh()
		state.cancelRefresh = nil
	}
	status := state.poller.Status()

	if result.Err != nil {
		kind := domain.KindOf(result.Err)
		if kind == domain.KindCanceled {
			state.logger.Debug("poller@refresh canceled")
			state.respondWaiters(ctx, result.Err, status)
			return
		}
		state.logger.Warn("poller@refresh update failed", zap.String("kind", kind.String()),
			zap.Bool("retryable", kind.Retryable()), zap.Error(result.Err))
	}

	for _, ev := range events.DeviceStatusToUpdateEvents(state.poller.Schema(), status) {
		state.eventStream.Publish(ev)
	}
	state.eventStream.Publish(domain.DeviceUpdatedEvent{
		DeviceId: state.poller.DeviceId(),
		Success:  result.Err == nil,
		Error:    result.Err,
	})
	state.respondWaiters(ctx, result.Err, status)
}

func (state *PollerActor) addWaiter(ctx actor.Context, msg domain.RefreshRequest) {
	if replyTo := ForRequest(msg).ReplyTo(ctx); replyTo != nil {
		state.waiters = append(state.waiters, replyTo)
	}
}

func (state *PollerActor) respondWaiters(ctx actor.Context, err error, status domain.DeviceStatus) {
	for _, waiter := range state.waiters {
		ctx.Send(waiter, domain.RefreshResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Status: status,
		})
	}
	state.waiters = nil
}

func (state *PollerActor) setScanInterval(ctx actor.Context, msg domain.SetScanIntervalRequest) {
	seconds := state.poller.SetScanInterval(msg.Seconds)
	state.logger.Info("poller@idle scan interval changed", zap.Int("scan_interval", seconds))
	state.scheduleTicks(ctx)
	state.eventStream.Publish(events.ScanIntervalUpdateEvent(state.poller.DeviceId(), seconds))
	ForRequest(msg).Respond(ctx, domain.SetScanIntervalResponse{
		Seconds: seconds,
	})
}

func (state *PollerActor) scheduleTicks(ctx actor.Context) {
	if state.cancelTicks != nil {
		state.cancelTicks()
	}
	interval := state.poller.ScanInterval()
	state.cancelTicks = state.scheduler.SendRepeatedly(interval, interval, ctx.Self(), pollerTick{})
}

func (state *PollerActor) scanIntervalSeconds() int {
	return int(state.poller.ScanInterval() / time.Second)
}

func (state *PollerActor) respondHealth(ctx actor.Context) {
	ctx.Respond(domain.ActorHealthResponse{
		Id:      domain.PollerActorId(state.poller.DeviceId()),
		Healthy: true,
		State:   state.StateName(),
	})
}

func (state *PollerActor) respondSnapshot(ctx actor.Context, msg domain.GetSnapshotRequest) {
	ForRequest(msg).Respond(ctx, domain.GetSnapshotResponse{
		Status: state.poller.Status(),
	})
}

// cancel stops the ticks and the running refresh, keeping the poller usable by
// a restarted actor.
func (state *PollerActor) cancel() {
	if state.cancelTicks != nil {
		state.cancelTicks()
		state.cancelTicks = nil
	}
	if state.cancelRefresh != nil {
		state.cancelRefresh()
		state.cancelRefresh = nil
	}
}

func (state *PollerActor) stop(ctx actor.Context) {
	state.logger.Debug("poller@stopping")
	state.cancel()
	state.poller.Close()
	state.respondWaiters(ctx, domain.ErrPollerClosed, state.poller.Status())
}
