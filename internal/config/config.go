package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

const (
	MIN_REFRESH_INTERVAL_MILLIS = 1000
)

type Config struct {
	LogLevel     zapcore.Level
	LogFile      LogFileConfig  `mapstructure:"log_file"`
	Endpoint     EndpointConfig `mapstructure:"endpoint"`
	DeviceId     string         `mapstructure:"device_id"`
	ScanInterval int            `mapstructure:"scan_interval"`
	Devices      []DeviceConfig `mapstructure:"devices"`
	Refresh      RefreshConfig  `mapstructure:"refresh"`
	MQTT         MQTTConfig     `mapstructure:"mqtt"`
	Port         uint           `mapstructure:"port"`
	HttpLog      bool           `mapstructure:"http_log"`
}

type DeviceConfig struct {
	DeviceId     string `mapstructure:"device_id"`
	ScanInterval int    `mapstructure:"scan_interval"`
}

type EndpointConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type RefreshConfig struct {
	MinIntervalMillis uint32 `mapstructure:"min_interval_millis"`
}

type LogFileConfig struct {
	Path       string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Host != ""
}

// Validate checks and normalizes the configuration in place. Values that were
// adjusted are reported as warnings.
func (c *Config) Validate() ([]string, error) {
	var warnings []string

	if c.MQTTEnabled() {
		// check and fix base topic
		baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
		if err != nil {
			return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		c.MQTT.BaseTopic = baseTopic

		// check and fix homeassistant discovery topic
		hadBaseTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
		if err != nil {
			return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
		}
		c.MQTT.HADiscoveryTopic = hadBaseTopic
	}

	if c.Refresh.MinIntervalMillis < MIN_REFRESH_INTERVAL_MILLIS {
		return nil, fmt.Errorf("config param refresh.min_interval_millis should be >= %d", MIN_REFRESH_INTERVAL_MILLIS)
	}

	if c.ScanInterval == 0 {
		c.ScanInterval = domain.DEFAULT_SCAN_INTERVAL_SECONDS
	}

	// single device shortcut
	if c.DeviceId != "" {
		c.Devices = append([]DeviceConfig{{DeviceId: c.DeviceId, ScanInterval: c.ScanInterval}}, c.Devices...)
		c.DeviceId = ""
	}
	if len(c.Devices) == 0 {
		return nil, errors.New("no device configured. set device_id or devices")
	}

	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		dev := &c.Devices[i]
		dev.DeviceId = strings.TrimSpace(dev.DeviceId)
		if dev.DeviceId == "" {
			return nil, fmt.Errorf("devices[%d]: device_id is required", i)
		}
		key := domain.ObjectId(dev.DeviceId)
		if seen[key] {
			return nil, fmt.Errorf("device %s is already configured", dev.DeviceId)
		}
		seen[key] = true

		if dev.ScanInterval == 0 {
			dev.ScanInterval = c.ScanInterval
		}
		clamped, changed := domain.ClampScanInterval(dev.ScanInterval)
		if changed {
			warnings = append(warnings, fmt.Sprintf("device %s: scan_interval %d out of range [%d, %d], using %d",
				dev.DeviceId, dev.ScanInterval, domain.MIN_SCAN_INTERVAL_SECONDS, domain.MAX_SCAN_INTERVAL_SECONDS, clamped))
			dev.ScanInterval = clamped
		}
	}

	return warnings, nil
}

// DeviceIds returns the configured device ids in order.
func (c *Config) DeviceIds() []string {
	ids := make([]string, 0, len(c.Devices))
	for _, dev := range c.Devices {
		ids = append(ids, dev.DeviceId)
	}
	return ids
}

var baseTopicRegexp = regexp.MustCompile("^[a-z0-9_]+$")

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// ParseLogLevel maps the log_level option to a zap level.
func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "trace":
		return zapcore.DebugLevel
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	case "warn":
		return zapcore.WarnLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
