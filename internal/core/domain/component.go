package domain

import (
	"regexp"
	"strings"
)

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing (for daily energy)
	DeviceClass       string // voltage, current, power, temperature, energy
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
	// HasAvailability marks sensors that publish their own availability topic.
	HasAvailability bool
}

type GenericButton struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

type GenericInputNumber struct {
	Device       Device
	Id           string
	Name         string
	UniqueId     string
	Icon         string
	Unit         string
	Max          float64
	Min          float64
	Step         float64
	Mode         string
	InitialValue float64
}

var objectIdInvalidChars = regexp.MustCompile("[^a-z0-9_]+")

// ObjectId turns an identifier into a topic and entity safe id.
func ObjectId(id string) string {
	return objectIdInvalidChars.ReplaceAllString(strings.ToLower(id), "_")
}

// ShortDeviceId returns the first 8 characters of a device id, used in titles
// and device names.
func ShortDeviceId(deviceId string) string {
	runes := []rune(deviceId)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return string(runes)
}

// DeviceTitle is the display name of a configured device.
func DeviceTitle(deviceId string) string {
	return "SolarEco " + ShortDeviceId(deviceId)
}
