package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE             = "bridge"
	BUTTON_ID_REFRESH                  = "refresh"
	INPUT_NUMBER_ID_SCAN_INTERVAL      = "scan_interval"
	STATE_CLASS_MEASUREMENT            = "measurement"
	STATE_CLASS_TOTAL_INCREASING       = "total_increasing"
	DEVICE_CLASS_CONNECTIVITY          = "connectivity"
	DEVICE_CLASS_DURATION              = "duration"
	ENTITY_CLASS_DIAGNOSTIC            = "diagnostic"
	ENTITY_CLASS_CONFIG                = "config"
	SENSOR_TYPE_SENSOR                 = "sensor"
	SENSOR_TYPE_BINARY                 = "binary_sensor"
	INPUT_NUMBER_MODE_BOX              = "box"
	INPUT_NUMBER_MODE_SLIDER           = "slider"
	SOLARECO_MANUFACTURER              = "SolarEco"
	SOLARECO_MODEL                     = "MPPT Regulator"
	SCAN_INTERVAL_INPUT_NUMBER_STEP    = 5
	SENSOR_UPDATE_DECIMALS             = 2
	SCAN_INTERVAL_UPDATE_DECIMALS      = 0
	SOLARECO_DEVICE_ID_PREFIX          = "solareco_"
	SOLARECO_BRIDGE_DEVICE_ID_PREFIX   = "solareco_bridge_"
	SOLARECO_BRIDGE_DEVICE_NAME_PREFIX = "SolarEco2MQTT"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           SOLARECO_BRIDGE_DEVICE_ID_PREFIX + md5HashShort(baseTopic),
		Manufacturer: "ACasal",
		Model:        "SolarEco2MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("%s %s", SOLARECO_BRIDGE_DEVICE_NAME_PREFIX, md5HashShort(baseTopic)),
	}
}

// SolarEcoDevice is the Home Assistant device of one regulator.
func SolarEcoDevice(deviceId string) Device {
	return Device{
		Id:           SOLARECO_DEVICE_ID_PREFIX + ObjectId(deviceId),
		Manufacturer: SOLARECO_MANUFACTURER,
		Model:        SOLARECO_MODEL,
		Name:         DeviceTitle(deviceId),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// SensorObjectId is the topic id of a schema sensor of a device.
func SensorObjectId(deviceId string, def SensorDefinition) string {
	return ObjectId(def.UniqueKey(deviceId))
}

func RefreshButtonId(deviceId string) string {
	return ObjectId(deviceId) + "_" + BUTTON_ID_REFRESH
}

func ScanIntervalInputNumberId(deviceId string) string {
	return ObjectId(deviceId) + "_" + INPUT_NUMBER_ID_SCAN_INTERVAL
}

// SchemaSensors describes every schema feed of a device as a sensor entity.
// Only the first sensor carries the full device info.
func SchemaSensors(device Device, deviceId string, schema *SensorSchema) []GenericSensor {
	var sensors []GenericSensor
	for i, def := range schema.Definitions() {
		dev := device
		if i > 0 {
			dev = IdDevice(device)
		}
		sensors = append(sensors, GenericSensor{
			Device:            dev,
			Id:                SensorObjectId(deviceId, def),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              def.Name,
			UniqueId:          def.UniqueKey(deviceId),
			UnitOfMeasurement: def.Unit,
			StateClass:        string(def.Aggregation),
			DeviceClass:       string(def.Category),
			Icon:              def.Icon,
			HasAvailability:   true,
		})
	}
	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func DeviceButtons(device Device, deviceId string) []GenericButton {

	var buttons []GenericButton

	// Manual refresh
	buttons = append(buttons, GenericButton{
		Device:   IdDevice(device),
		Id:       RefreshButtonId(deviceId),
		Name:     "Refresh",
		UniqueId: uniqueId(device.Id, BUTTON_ID_REFRESH),
		Icon:     "mdi:refresh",
	})

	return buttons
}

func DeviceInputNumbers(device Device, deviceId string, scanIntervalSeconds int) []GenericInputNumber {

	var inputNumbers []GenericInputNumber

	// Scan interval
	inputNumbers = append(inputNumbers, GenericInputNumber{
		Device:       IdDevice(device),
		Id:           ScanIntervalInputNumberId(deviceId),
		Name:         "Scan interval",
		UniqueId:     uniqueId(device.Id, INPUT_NUMBER_ID_SCAN_INTERVAL),
		Icon:         "mdi:timer-refresh-outline",
		Unit:         "s",
		Min:          MIN_SCAN_INTERVAL_SECONDS,
		Max:          MAX_SCAN_INTERVAL_SECONDS,
		Step:         SCAN_INTERVAL_INPUT_NUMBER_STEP,
		Mode:         INPUT_NUMBER_MODE_BOX,
		InitialValue: float64(scanIntervalSeconds),
	})

	return inputNumbers
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
