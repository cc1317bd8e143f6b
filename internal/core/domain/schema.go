package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FeedID identifies a measurement channel on the remote system.
type FeedID string

type Category string

const (
	CATEGORY_VOLTAGE     Category = "voltage"
	CATEGORY_CURRENT     Category = "current"
	CATEGORY_POWER       Category = "power"
	CATEGORY_TEMPERATURE Category = "temperature"
	CATEGORY_ENERGY      Category = "energy"
)

type Aggregation string

const (
	AGGREGATION_MEASUREMENT      Aggregation = "measurement"
	AGGREGATION_TOTAL_INCREASING Aggregation = "total_increasing"
)

const (
	FEED_ID_VOLTAGE          FeedID = "919"
	FEED_ID_CURRENT          FeedID = "920"
	FEED_ID_POWER            FeedID = "921"
	FEED_ID_TEMPERATURE      FeedID = "923"
	FEED_ID_DAILY_PRODUCTION FeedID = "924"
)

// PrimaryFeeds must be present for a device to be considered a SolarEco
// regulator.
var PrimaryFeeds = []FeedID{FEED_ID_VOLTAGE, FEED_ID_DAILY_PRODUCTION}

// TransformFunc converts the raw feed value text to the exposed unit.
type TransformFunc func(raw string) (float64, error)

var ErrNonFiniteValue = errors.New("value is not a finite number")

// Identity parses the raw value unchanged. NaN and infinities are rejected.
func Identity(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFiniteValue
	}
	return v, nil
}

// Milli converts milli-units (mA) to units (A).
func Milli(raw string) (float64, error) {
	v, err := Identity(raw)
	if err != nil {
		return 0, err
	}
	return v / 1000, nil
}

type SensorDefinition struct {
	FeedID      FeedID
	Name        string
	Key         string
	Unit        string
	Category    Category
	Aggregation Aggregation
	Icon        string
	transform   TransformFunc
}

func NewSensorDefinition(feedID FeedID, name, key, unit string, category Category, aggregation Aggregation,
	icon string, transform TransformFunc) SensorDefinition {
	return SensorDefinition{
		FeedID:      feedID,
		Name:        name,
		Key:         key,
		Unit:        unit,
		Category:    category,
		Aggregation: aggregation,
		Icon:        icon,
		transform:   transform,
	}
}

func (d SensorDefinition) Transform(raw string) (float64, error) {
	v, err := d.transform(raw)
	if err != nil {
		return 0, &ValueTransformError{FeedID: d.FeedID, Raw: raw, Err: err}
	}
	return v, nil
}

// UniqueKey is the device scoped identifier of the measurement.
func (d SensorDefinition) UniqueKey(deviceId string) string {
	return fmt.Sprintf("%s_%s", deviceId, d.Key)
}

// SensorSchema is the immutable registry of supported feeds.
type SensorSchema struct {
	definitions []SensorDefinition
	byFeed      map[FeedID]int
}

func NewSensorSchema(definitions ...SensorDefinition) (*SensorSchema, error) {
	schema := &SensorSchema{
		definitions: make([]SensorDefinition, 0, len(definitions)),
		byFeed:      make(map[FeedID]int, len(definitions)),
	}
	keys := make(map[string]bool, len(definitions))
	for _, def := range definitions {
		if def.FeedID == "" || def.Key == "" {
			return nil, fmt.Errorf("sensor definition %q: feed id and key are required", def.Name)
		}
		if def.transform == nil {
			return nil, fmt.Errorf("sensor definition %s: missing transform", def.FeedID)
		}
		if _, ok := schema.byFeed[def.FeedID]; ok {
			return nil, fmt.Errorf("duplicate sensor definition for feed %s", def.FeedID)
		}
		if keys[def.Key] {
			return nil, fmt.Errorf("duplicate sensor key %s", def.Key)
		}
		keys[def.Key] = true
		schema.byFeed[def.FeedID] = len(schema.definitions)
		schema.definitions = append(schema.definitions, def)
	}
	return schema, nil
}

func MustSensorSchema(definitions ...SensorDefinition) *SensorSchema {
	schema, err := NewSensorSchema(definitions...)
	if err != nil {
		panic(err)
	}
	return schema
}

var defaultSchema = MustSensorSchema(
	NewSensorDefinition(FEED_ID_VOLTAGE, "Voltage", "voltage", "V",
		CATEGORY_VOLTAGE, AGGREGATION_MEASUREMENT, "mdi:lightning-bolt", Identity),
	NewSensorDefinition(FEED_ID_CURRENT, "Current", "current", "A",
		CATEGORY_CURRENT, AGGREGATION_MEASUREMENT, "mdi:current-dc", Milli),
	NewSensorDefinition(FEED_ID_POWER, "Power", "power", "W",
		CATEGORY_POWER, AGGREGATION_MEASUREMENT, "mdi:flash", Identity),
	NewSensorDefinition(FEED_ID_TEMPERATURE, "Temperature", "temperature", "°C",
		CATEGORY_TEMPERATURE, AGGREGATION_MEASUREMENT, "mdi:thermometer", Identity),
	NewSensorDefinition(FEED_ID_DAILY_PRODUCTION, "Daily Production", "daily_production", "Wh",
		CATEGORY_ENERGY, AGGREGATION_TOTAL_INCREASING, "mdi:solar-power", Identity),
)

// DefaultSensorSchema returns the SolarEco MPPT regulator feeds.
func DefaultSensorSchema() *SensorSchema {
	return defaultSchema
}

// Definitions returns the definitions in declaration order.
func (s *SensorSchema) Definitions() []SensorDefinition {
	defs := make([]SensorDefinition, len(s.definitions))
	copy(defs, s.definitions)
	return defs
}

func (s *SensorSchema) Lookup(id FeedID) (SensorDefinition, bool) {
	i, ok := s.byFeed[id]
	if !ok {
		return SensorDefinition{}, false
	}
	return s.definitions[i], true
}

func (s *SensorSchema) Len() int {
	return len(s.definitions)
}

func (s *SensorSchema) Transform(id FeedID, raw string) (float64, error) {
	def, ok := s.Lookup(id)
	if !ok {
		return 0, fmt.Errorf("feed %s: %w", id, ErrUnknownFeed)
	}
	return def.Transform(raw)
}
