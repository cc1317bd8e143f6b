package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/solareco2mqtt/internal/adapter/actor"
	"github.com/berfenger/solareco2mqtt/internal/config"
	"github.com/berfenger/solareco2mqtt/internal/core/actor"
	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/core/service"
	"github.com/berfenger/solareco2mqtt/internal/metrics"
	"github.com/berfenger/solareco2mqtt/internal/server"
	"github.com/berfenger/solareco2mqtt/internal/util/actorutil"
	"github.com/berfenger/solareco2mqtt/pkg/emoncms"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, warnings, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	logger, err := config.NewLogger(cfg)
	if err != nil {
		slog.Error("logger error", "error", err)
		return
	}
	defer logger.Sync()

	for _, warning := range warnings {
		logger.Warn("config: " + warning)
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	feedClient, err := emoncms.NewHTTPFeedClient(emoncms.ClientConfig{
		BaseURL:        cfg.Endpoint.BaseURL,
		RequestTimeout: time.Duration(cfg.Endpoint.TimeoutMillis) * time.Millisecond,
	})
	if err != nil {
		logger.Error("invalid endpoint", zap.Error(err))
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pollMetrics := metrics.NewPollCollector(registry)

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, pollerProvider(feedClient, pollMetrics, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Error("cannot start master actor", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid, feedClient, registry, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	if err := ctx.StopFuture(pid).Wait(); err != nil {
		logger.Warn("master actor stop", zap.Error(err))
	}
	as.Shutdown()
}

func initConfig() (*config.Config, []string, error) {

	// alias PORT => SOLARECO_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SOLARECO_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("solareco")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, nil, err
	}

	cfg.LogLevel = config.ParseLogLevel(viper.GetString("log_level"))

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, nil, err
	}

	return &cfg, warnings, nil
}

func pollerProvider(client emoncms.FeedClient, pollMetrics *metrics.PollCollector, logger *zap.Logger) actor.PollerProvider {
	return func(dev config.DeviceConfig) (*service.TelemetryPoller, error) {
		return service.NewTelemetryPoller(service.PollerConfig{
			DeviceId:            dev.DeviceId,
			ScanIntervalSeconds: dev.ScanInterval,
			Client:              client,
			Schema:              domain.DefaultSensorSchema(),
			Metrics:             pollMetrics,
			Logger:              logger,
		})
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTTEnabled() {
		return nil
	}
	return func(eventStream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, eventStream, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_file.path", "")
	viper.SetDefault("log_file.max_size_mb", 10)
	viper.SetDefault("log_file.max_backups", 3)
	viper.SetDefault("log_file.max_age_days", 28)
	viper.SetDefault("endpoint.base_url", emoncms.DefaultBaseURL)
	viper.SetDefault("endpoint.timeout_millis", emoncms.RequestTimeout.Milliseconds())
	viper.SetDefault("device_id", "")
	viper.SetDefault("scan_interval", domain.DEFAULT_SCAN_INTERVAL_SECONDS)
	viper.SetDefault("refresh.min_interval_millis", 5000)
	viper.SetDefault("mqtt.host", "")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "solareco")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
