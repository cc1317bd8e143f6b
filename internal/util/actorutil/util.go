package actorutil

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand resolves a command received on a button or number
// topic to the poller request of the device owning the entity.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand, deviceIds []string) (domain.PollerRequest, error) {
	for _, deviceId := range deviceIds {
		switch {
		case cmd.Command == mqtt.MQTT_COMMAND_BUTTON && cmd.EntityId == domain.RefreshButtonId(deviceId):
			return domain.RefreshRequest{
				PollerRequestMixIn: pollerRequest(deviceId),
			}, nil
		case cmd.Command == mqtt.MQTT_COMMAND_NUMBER && cmd.EntityId == domain.ScanIntervalInputNumberId(deviceId):
			seconds, err := parseSeconds(cmd.Payload)
			if err != nil {
				return nil, err
			}
			return domain.SetScanIntervalRequest{
				PollerRequestMixIn: pollerRequest(deviceId),
				Seconds:            seconds,
			}, nil
		}
	}
	return nil, fmt.Errorf("entity %s: %w", cmd.EntityId, domain.ErrUnknownDevice)
}

// parseSeconds rounds a number payload to whole seconds. Out of range values
// saturate so the poller can clamp them.
func parseSeconds(payload string) (int, error) {
	value, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) {
		return 0, fmt.Errorf("number payload %q: %w", payload, domain.ErrNonFiniteValue)
	}
	value = math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Round(value)))
	return int(value), nil
}

func pollerRequest(deviceId string) domain.PollerRequestMixIn {
	return domain.PollerRequestMixIn{
		DeviceRequestMixIn: domain.DeviceRequestMixIn{
			DeviceId: deviceId,
		},
	}
}
