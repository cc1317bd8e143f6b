package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func validConfig() Config {
	return Config{
		DeviceId: "abcdef1234567890",
		Refresh:  RefreshConfig{MinIntervalMillis: 5000},
		MQTT: MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "SolarEco",
			HADiscoveryTopic: "homeassistant",
		},
	}
}

func TestValidateShortcutDevice(t *testing.T) {

	require := require.New(t)

	cfg := validConfig()
	warnings, err := cfg.Validate()
	require.NoError(err)
	require.Empty(warnings)
	require.Equal([]string{"abcdef1234567890"}, cfg.DeviceIds())
	require.Equal(30, cfg.Devices[0].ScanInterval)
	require.Equal("solareco", cfg.MQTT.BaseTopic)
}

func TestValidateClampsScanInterval(t *testing.T) {

	cfg := validConfig()
	cfg.DeviceId = ""
	cfg.Devices = []DeviceConfig{
		{DeviceId: "a", ScanInterval: 5},
		{DeviceId: "b", ScanInterval: 1000},
		{DeviceId: "c"},
	}
	cfg.ScanInterval = 60

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
	assert.Equal(t, 10, cfg.Devices[0].ScanInterval)
	assert.Equal(t, 300, cfg.Devices[1].ScanInterval)
	assert.Equal(t, 60, cfg.Devices[2].ScanInterval)
}

func TestValidateRejectsDuplicateDevice(t *testing.T) {

	cfg := validConfig()
	cfg.Devices = []DeviceConfig{{DeviceId: "abcdef1234567890"}}

	_, err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already configured")
}

func TestValidateRejectsMissingDevice(t *testing.T) {

	cfg := validConfig()
	cfg.DeviceId = ""
	_, err := cfg.Validate()
	require.Error(t, err)

	cfg.Devices = []DeviceConfig{{DeviceId: "  "}}
	_, err = cfg.Validate()
	require.Error(t, err)
}

func TestValidateRefreshBounds(t *testing.T) {

	cfg := validConfig()
	cfg.Refresh.MinIntervalMillis = 500
	_, err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateMQTTTopics(t *testing.T) {

	cfg := validConfig()
	cfg.MQTT.BaseTopic = "solar/eco"
	_, err := cfg.Validate()
	require.Error(t, err)

	cfg = validConfig()
	cfg.MQTT.Host = ""
	cfg.MQTT.BaseTopic = "solar/eco"
	_, err = cfg.Validate()
	require.NoError(t, err, "topics are not checked without a broker")
}

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("Lorem_Topic1")
	assert.NoError(err)
	assert.Equal("lorem_topic1", topic)

	_, err = CheckMQTTTopic("lorem/topic")
	assert.Error(err)

	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

func TestParseLogLevel(t *testing.T) {

	assert.Equal(t, zapcore.DebugLevel, ParseLogLevel("trace"))
	assert.Equal(t, zapcore.WarnLevel, ParseLogLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLogLevel("nonsense"))
}

func TestNewLoggerWithFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "solareco.log")
	cfg := validConfig()
	cfg.LogLevel = zapcore.InfoLevel
	cfg.LogFile = LogFileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}

	logger, err := NewLogger(&cfg)
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	assert.FileExists(t, path)
}
