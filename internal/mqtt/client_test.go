package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/solareco2mqtt/internal/config"
	"github.com/berfenger/solareco2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	cfg := config.Config{
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "solareco",
			HADiscoveryTopic: "homeassistant",
		},
	}
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestButtonCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/button/my_device_refresh/press"
	r := buttonCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "my_device_refresh", "button extract")
}

func TestButtonCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/button/my_device_refresh/state"
	r := buttonCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/number_name/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "number_name", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/button/number_name/press"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestParseCommand(t *testing.T) {

	require := require.New(t)
	c := testClient()

	cmd, err := c.ParseCommand("solareco/button/dev1_refresh/press", []byte("PRESS"))
	require.NoError(err)
	require.Equal(MQTT_COMMAND_BUTTON, cmd.Command)
	require.Equal("dev1_refresh", cmd.EntityId)

	cmd, err = c.ParseCommand("solareco/number/dev1_scan_interval/set", []byte("60"))
	require.NoError(err)
	require.Equal(MQTT_COMMAND_NUMBER, cmd.Command)
	require.Equal("60", cmd.Payload)

	_, err = c.ParseCommand("solareco/number/dev1_scan_interval/set", []byte("sixty"))
	require.Error(err)

	_, err = c.ParseCommand("solareco/sensor/dev1_voltage/state", []byte("1"))
	require.Error(err)
}

func TestTopics(t *testing.T) {

	c := testClient()
	assert.Equal(t, "solareco/bridge/state", c.BridgeStateTopic())
	assert.Equal(t, "solareco/sensor/dev1_voltage/state", c.SensorStateTopic("dev1_voltage"))
	assert.Equal(t, "solareco/sensor/dev1_voltage/availability", c.SensorAvailabilityTopic("dev1_voltage"))
	assert.Equal(t, "solareco/button/dev1_refresh/press", c.ButtonCommandTopic("dev1_refresh"))
	assert.Equal(t, "solareco/number/dev1_scan_interval/set", c.InputNumberCommandTopic("dev1_scan_interval"))
}

func TestSensorDiscoveryMessage(t *testing.T) {

	require := require.New(t)
	c := testClient()

	dev := domain.SolarEcoDevice("dev1")
	sensors := domain.SchemaSensors(dev, "dev1", domain.DefaultSensorSchema())

	msg := GenericSensorToHADiscoveryMessage(c, sensors[0])
	require.Equal("solareco/sensor/dev1_voltage/state", msg.StateTopic)
	require.Equal("dev1_voltage", msg.UniqueId)
	require.Equal("V", msg.UnitOfMeasurement)
	require.Len(msg.Availability, 2)
	require.Equal("solareco/sensor/dev1_voltage/availability", msg.Availability[1].Topic)
	require.Equal("all", msg.AvMode)
	require.Empty(msg.AvTopic)
	require.Equal("homeassistant/sensor/solareco_dev1/dev1_voltage/config", HADiscoverySensorTopic(c, sensors[0]))

	payload, err := json.Marshal(msg)
	require.NoError(err)
	require.Contains(string(payload), `"manufacturer":"SolarEco"`)
	require.Contains(string(payload), `"model":"MPPT Regulator"`)
}

func TestBridgeDiscoveryMessage(t *testing.T) {

	c := testClient()
	bridge := domain.BridgeSensors(domain.BridgeDevice("solareco"))[0]

	msg := GenericSensorToHADiscoveryMessage(c, bridge)
	assert.Equal(t, "solareco/bridge/state", msg.StateTopic)
	assert.Equal(t, MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(t, MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
	assert.Empty(t, msg.Availability)
}

func TestControlDiscoveryMessages(t *testing.T) {

	c := testClient()
	dev := domain.SolarEcoDevice("dev1")

	button := domain.DeviceButtons(dev, "dev1")[0]
	bmsg := GenericButtonToHADiscoveryMessage(c, button)
	assert.Equal(t, "solareco/button/dev1_refresh/press", bmsg.CommandTopic)
	assert.Equal(t, "homeassistant/button/solareco_dev1/dev1_refresh/config", HADiscoveryButtonTopic(c, button))

	number := domain.DeviceInputNumbers(dev, "dev1", 30)[0]
	nmsg := GenericInputNumberToHADiscoveryMessage(c, number)
	assert.Equal(t, "solareco/number/dev1_scan_interval/set", nmsg.CommandTopic)
	assert.Equal(t, "solareco/number/dev1_scan_interval/state", nmsg.StateTopic)
	assert.Equal(t, float64(10), nmsg.Min)
	assert.Equal(t, float64(300), nmsg.Max)
	assert.Equal(t, float64(5), nmsg.Step)
}
