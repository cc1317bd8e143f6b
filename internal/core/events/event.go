package events

import (
	. "github.com/berfenger/solareco2mqtt/internal/core/domain"
)

// DeviceStatusToUpdateEvents maps a device status to the availability and
// value events of its schema sensors. Values are only emitted for available
// sensors with a converted value.
func DeviceStatusToUpdateEvents(schema *SensorSchema, status DeviceStatus) []any {
	var events []any

	for _, def := range schema.Definitions() {
		id := SensorObjectId(status.DeviceId, def)
		available := status.IsAvailable(def.FeedID)
		events = append(events, AvailabilityUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: id,
			},
			Available: available,
		})
		if !available {
			continue
		}
		if v, _ := status.Snapshot.Get(def.FeedID); v.HasValue() {
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: id,
				},
				Value:    *v.Value,
				Decimals: SENSOR_UPDATE_DECIMALS,
			})
		}
	}

	return events
}

func ScanIntervalUpdateEvent(deviceId string, seconds int) any {
	return InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: ScanIntervalInputNumberId(deviceId),
		},
		Value:    float64(seconds),
		Decimals: SCAN_INTERVAL_UPDATE_DECIMALS,
	}
}

func BridgeOnlineUpdateEvent(online bool) any {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
