package service

import (
	"github.com/berfenger/solareco2mqtt/internal/core/domain"
)

// SensorReading is the presented state of one schema sensor of a device.
type SensorReading struct {
	UniqueId    string          `json:"unique_id"`
	FeedId      domain.FeedID   `json:"feed_id"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	DeviceClass domain.Category `json:"device_class"`
	StateClass  string          `json:"state_class"`
	Icon        string          `json:"icon"`
	Value       *float64        `json:"value"`
	Time        *int64          `json:"time"`
	Available   bool            `json:"available"`
}

// SensorCatalog lists one reading per schema definition, in schema order. A
// sensor is available only when the last update succeeded and its feed is in
// the snapshot.
func SensorCatalog(schema *domain.SensorSchema, status domain.DeviceStatus) []SensorReading {
	defs := schema.Definitions()
	readings := make([]SensorReading, 0, len(defs))
	for _, def := range defs {
		reading := SensorReading{
			UniqueId:    def.UniqueKey(status.DeviceId),
			FeedId:      def.FeedID,
			Name:        def.Name,
			Unit:        def.Unit,
			DeviceClass: def.Category,
			StateClass:  string(def.Aggregation),
			Icon:        def.Icon,
			Available:   status.IsAvailable(def.FeedID),
		}
		if v, ok := status.Snapshot.Get(def.FeedID); ok {
			reading.Value = v.Value
			reading.Time = v.Time
		}
		readings = append(readings, reading)
	}
	return readings
}
