package util

import (
	"github.com/berfenger/solareco2mqtt/internal/config"

	"go.uber.org/zap"
)

const TEST_DEVICE_ID = "abcdef1234567890"

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Endpoint: config.EndpointConfig{
			BaseURL:       "http://127.0.0.1:1/emoncms",
			TimeoutMillis: 1000,
		},
		ScanInterval: 30,
		Devices: []config.DeviceConfig{
			{DeviceId: TEST_DEVICE_ID, ScanInterval: 30},
		},
		Refresh: config.RefreshConfig{
			MinIntervalMillis: 1000,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "solareco",
			HADiscoveryTopic: "homeassistant",
		},
		Port: 8080,
	}
}
