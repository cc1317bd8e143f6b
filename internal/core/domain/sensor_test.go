package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolarEcoDevice(t *testing.T) {

	dev := SolarEcoDevice("0123456789abcdef")
	assert.Equal(t, "solareco_0123456789abcdef", dev.Id)
	assert.Equal(t, "SolarEco 01234567", dev.Name)
	assert.Equal(t, "SolarEco", dev.Manufacturer)
	assert.Equal(t, "MPPT Regulator", dev.Model)
}

func TestBridgeDeviceIsStable(t *testing.T) {

	a := BridgeDevice("solareco")
	b := BridgeDevice("solareco")
	c := BridgeDevice("other")
	assert.Equal(t, a.Id, b.Id)
	assert.NotEqual(t, a.Id, c.Id)
	assert.Len(t, a.Id, len(SOLARECO_BRIDGE_DEVICE_ID_PREFIX)+8)
}

func TestSchemaSensors(t *testing.T) {

	require := require.New(t)

	dev := SolarEcoDevice("Dev.1")
	sensors := SchemaSensors(dev, "Dev.1", DefaultSensorSchema())
	require.Len(sensors, DefaultSensorSchema().Len())

	first := sensors[0]
	require.Equal("dev_1_voltage", first.Id)
	require.Equal("Dev.1_voltage", first.UniqueId)
	require.Equal("V", first.UnitOfMeasurement)
	require.Equal("voltage", first.DeviceClass)
	require.Equal("measurement", first.StateClass)
	require.Equal(dev, first.Device)
	require.True(first.HasAvailability)

	production := sensors[4]
	require.Equal("total_increasing", production.StateClass)
	require.Equal(IdDevice(dev), production.Device, "only the first sensor carries full device info")
}

func TestDeviceControls(t *testing.T) {

	dev := SolarEcoDevice("dev1")

	buttons := DeviceButtons(dev, "dev1")
	require.Len(t, buttons, 1)
	assert.Equal(t, "dev1_refresh", buttons[0].Id)

	numbers := DeviceInputNumbers(dev, "dev1", 45)
	require.Len(t, numbers, 1)
	assert.Equal(t, "dev1_scan_interval", numbers[0].Id)
	assert.Equal(t, float64(10), numbers[0].Min)
	assert.Equal(t, float64(300), numbers[0].Max)
	assert.Equal(t, float64(5), numbers[0].Step)
	assert.Equal(t, float64(45), numbers[0].InitialValue)
}

func TestClampScanInterval(t *testing.T) {

	v, changed := ClampScanInterval(5)
	assert.Equal(t, 10, v)
	assert.True(t, changed)
	v, changed = ClampScanInterval(301)
	assert.Equal(t, 300, v)
	assert.True(t, changed)
	v, changed = ClampScanInterval(30)
	assert.Equal(t, 30, v)
	assert.False(t, changed)
}
