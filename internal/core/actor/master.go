package actor

import (
	"fmt"
	"log"
	"time"

	adactor "github.com/berfenger/solareco2mqtt/internal/adapter/actor"
	"github.com/berfenger/solareco2mqtt/internal/config"
	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/core/port"
	"github.com/berfenger/solareco2mqtt/internal/core/service"
	. "github.com/berfenger/solareco2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type PollerProvider func(config.DeviceConfig) (*service.TelemetryPoller, error)

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	mqttActor          *actor.PID
	pollerActors       map[string]*actor.PID
	readers            map[string]port.SnapshotReader
	deviceIds          []string
	pollerProvider     PollerProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	expected       int
	checksReceived int
	unhealthy      []string
	respondTo      *actor.PID
}

// NewMasterOfPuppetsActor builds the root actor. A nil mqttActorProvider runs
// the bridge without MQTT.
func NewMasterOfPuppetsActor(config config.Config, pollerProvider PollerProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:       &eventstream.EventStream{},
		pollerActors:      make(map[string]*actor.PID),
		readers:           make(map[string]port.SnapshotReader),
		pollerProvider:    pollerProvider,
		mqttActorProvider: mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

// EventStream is the bus sensor updates are published on.
func (state *MasterOfPuppetsActor) EventStream() *eventstream.EventStream {
	return state.eventStream
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start MQTT child
		if state.mqttActorProvider != nil {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID
		}

		// start one poller per device
		for _, dev := range state.config.Devices {
			if err := state.startPollerActor(ctx, dev); err != nil {
				panic(err)
			}
		}

		// start HA Discovery
		if state.mqttActor != nil && state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.childCount())
		state.currentHealthCheck.respondTo = ctx.Sender()
		if state.currentHealthCheck.allReceived() {
			state.currentHealthCheck.respond(ctx)
			return
		}
		if state.mqttActor != nil {
			state.requestHealth(ctx, state.mqttActor, domain.ACTOR_ID_MQTT)
		}
		for _, deviceId := range state.deviceIds {
			id := domain.PollerActorId(deviceId)
			state.requestHealth(ctx, state.pollerActors[domain.ObjectId(deviceId)], id)
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to the poller of its device
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command, state.deviceIds)
			if err != nil {
				state.logger.Warn("master@default invalid command", zap.Error(err))
				return
			}
			if pid, ok := state.pollerActors[domain.ObjectId(cmd.TargetDevice())]; ok {
				ctx.Send(pid, cmd)
			}
		}
	case domain.GetDevicesRequest:
		devices := make([]domain.DeviceStatus, 0, len(state.deviceIds))
		for _, deviceId := range state.deviceIds {
			devices = append(devices, state.readers[domain.ObjectId(deviceId)].Status())
		}
		ForRequest(msg).Respond(ctx, domain.GetDevicesResponse{
			Devices: devices,
		})
	case domain.DeviceRequest:
		pid, ok := state.pollerActors[domain.ObjectId(msg.TargetDevice())]
		if !ok {
			state.logger.Debug("master@default unknown device", zap.String("device_id", msg.TargetDevice()))
			if resp := unknownDeviceResponse(msg); resp != nil {
				ForRequest(msg).Respond(ctx, resp)
			}
			return
		}
		ctx.Forward(pid)
	case *actor.Terminated:
		state.logger.Warn("master@default child terminated", zap.String("who", msg.Who.Id))
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.logger.Warn("master@healthcheck timeout", zap.Int("received", state.currentHealthCheck.checksReceived),
			zap.Int("expected", state.currentHealthCheck.expected))
		state.currentHealthCheck.unhealthy = append(state.currentHealthCheck.unhealthy, "timeout")
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id),
			zap.Bool("healthy", msg.Healthy), zap.String("state", msg.State))
		state.currentHealthCheck.checksReceived++
		if !msg.Healthy {
			state.currentHealthCheck.unhealthy = append(state.currentHealthCheck.unhealthy, msg.Id)
		}
		if state.currentHealthCheck.allReceived() {
			state.finishHealthCheck(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	state.currentHealthCheck.respond(ctx)
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) requestHealth(ctx actor.Context, pid *actor.PID, id string) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      id,
			Healthy: false,
		}
	})
}

func (state *MasterOfPuppetsActor) childCount() int {
	count := len(state.pollerActors)
	if state.mqttActor != nil {
		count++
	}
	return count
}

func (state *MasterOfPuppetsActor) startPollerActor(ctx actor.Context, dev config.DeviceConfig) error {
	poller, err := state.pollerProvider(dev)
	if err != nil {
		return err
	}

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	actorCfg := PollerActorConfig{
		MinRefreshInterval: time.Duration(state.config.Refresh.MinIntervalMillis) * time.Millisecond,
		RefreshTimeout:     DEFAULT_REFRESH_TIMEOUT,
	}
	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(poller, state.eventStream, actorCfg, state.logger)
	}, actor.WithSupervisor(supervisor))
	pid, err := ctx.SpawnNamed(pollerProps, domain.PollerActorId(dev.DeviceId))
	if err != nil {
		poller.Close()
		return err
	}

	key := domain.ObjectId(dev.DeviceId)
	state.pollerActors[key] = pid
	state.readers[key] = poller
	state.deviceIds = append(state.deviceIds, dev.DeviceId)
	return nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func unknownDeviceResponse(req domain.DeviceRequest) domain.ActorResponse {
	err := fmt.Errorf("%w: %s", domain.ErrUnknownDevice, req.TargetDevice())
	mixIn := domain.ActorResponseMixIn{ResponseError: err}
	switch req.(type) {
	case domain.RefreshRequest:
		return domain.RefreshResponse{ActorResponseMixIn: mixIn}
	case domain.SetScanIntervalRequest:
		return domain.SetScanIntervalResponse{ActorResponseMixIn: mixIn}
	case domain.GetSnapshotRequest:
		return domain.GetSnapshotResponse{ActorResponseMixIn: mixIn}
	default:
		return nil
	}
}

func (state *healthCheckResult) reset(expected int) {
	state.expected = expected
	state.checksReceived = 0
	state.unhealthy = nil
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.expected
}

func (state *healthCheckResult) allHealthy() bool {
	return len(state.unhealthy) == 0 && state.allReceived()
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if !resp.Healthy {
		resp.ResponseError = fmt.Errorf("unhealthy: %v", state.unhealthy)
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
