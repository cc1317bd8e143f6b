package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/config"
	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const HADISCOVERY_RETRY_INTERVAL = 5 * time.Second

// HADiscoveryActor publishes the Home Assistant discovery configs of the
// bridge and of every configured device once the MQTT actor is connected.
type HADiscoveryActor struct {
	config    *config.Config
	behavior  actor.Behavior
	scheduler *scheduler.TimerScheduler
	mqttActor *actor.PID
	attempts  int

	logger *zap.Logger
}

type discoveryRetry struct {
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.requestMQTTHealth(ctx)
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			state.retry(ctx, "mqtt not healthy")
			return
		}
		req := state.discoveryRequest()
		state.logger.Info("hadiscovery@healthcheck publishing discovery", zap.Int("sensors", len(req.Sensors)),
			zap.Int("buttons", len(req.Buttons)), zap.Int("numbers", len(req.InputNumbers)))
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, req, 5*time.Second), func(err error) any {
			return domain.PublishDiscoveryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingPublishedReceive)
	case discoveryRetry:
		state.requestMQTTHealth(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) WaitingPublishedReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PublishDiscoveryResponse:
		if msg.HasResponseError() {
			state.retry(ctx, msg.GetResponseError().Error())
			return
		}
		state.logger.Debug("hadiscovery@published")
		state.behavior.Become(state.Done)
	default:
		state.logger.Debug("hadiscovery@published: ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {
}

func (state *HADiscoveryActor) retry(ctx actor.Context, reason string) {
	state.attempts++
	state.logger.Warn("hadiscovery@retry", zap.String("reason", reason), zap.Int("attempt", state.attempts))
	state.scheduler.SendOnce(HADISCOVERY_RETRY_INTERVAL, ctx.Self(), discoveryRetry{})
	state.behavior.Become(state.WaitingHealthyReceive)
}

func (state *HADiscoveryActor) requestMQTTHealth(ctx actor.Context) {
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: false,
		}
	})
}

func (state *HADiscoveryActor) discoveryRequest() domain.PublishDiscoveryRequest {
	var sensors []domain.GenericSensor
	var buttons []domain.GenericButton
	var inputNumbers []domain.GenericInputNumber

	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	schema := domain.DefaultSensorSchema()
	for _, dev := range state.config.Devices {
		device := domain.SolarEcoDevice(dev.DeviceId)
		device.ViaDevice = bridgeDevice.Id
		sensors = append(sensors, domain.SchemaSensors(device, dev.DeviceId, schema)...)
		buttons = append(buttons, domain.DeviceButtons(domain.IdDevice(device), dev.DeviceId)...)
		inputNumbers = append(inputNumbers, domain.DeviceInputNumbers(domain.IdDevice(device), dev.DeviceId, dev.ScanInterval)...)
	}

	return domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		Buttons:      buttons,
		InputNumbers: inputNumbers,
	}
}
