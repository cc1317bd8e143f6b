package actor

import (
	"sync"

	"github.com/berfenger/solareco2mqtt/internal/config"
	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/mqtt"
	"github.com/berfenger/solareco2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// RecordedMessage is a message the dummy MQTT actor would have published.
type RecordedMessage struct {
	Topic   string
	Payload string
	Retain  bool
}

// MQTTRecorder collects the messages of a dummy MQTT actor.
type MQTTRecorder struct {
	mu        sync.Mutex
	messages  []RecordedMessage
	discovery []domain.PublishDiscoveryRequest
}

func (r *MQTTRecorder) record(msg RecordedMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *MQTTRecorder) Messages() []RecordedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]RecordedMessage, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}

// Last returns the last payload published on topic.
func (r *MQTTRecorder) Last(topic string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Topic == topic {
			return r.messages[i].Payload, true
		}
	}
	return "", false
}

func (r *MQTTRecorder) Discovery() []domain.PublishDiscoveryRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	reqs := make([]domain.PublishDiscoveryRequest, len(r.discovery))
	copy(reqs, r.discovery)
	return reqs
}

// Dummy actor
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, recorder *MQTTRecorder, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	if recorder == nil {
		recorder = &MQTTRecorder{}
	}
	act.behavior.Become(func(ctx actor.Context) {
		act.DummyReceive(ctx, recorder)
	})
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context, recorder *MQTTRecorder) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.subscribe(ctx)
	case *actor.Stopping:
		state.unsubscribe()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@dummy ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishSensorUpdateRequest:
		if raw := state.event2MQTTMessage(msg.Event); raw != nil {
			recorder.record(RecordedMessage{Topic: raw.topic, Payload: raw.message, Retain: raw.retain || msg.Retain})
		}
		if msg.ReplyToRef != nil {
			ctx.Send((*actor.PID)(msg.ReplyToRef), domain.PublishSensorUpdateResponse{})
		}
	case domain.PublishMessageRequest:
		recorder.record(RecordedMessage{Topic: msg.Topic, Payload: msg.Payload, Retain: msg.Retain})
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
	case domain.PublishDiscoveryRequest:
		recorder.mu.Lock()
		recorder.discovery = append(recorder.discovery, msg)
		recorder.mu.Unlock()
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{})
	}
}
