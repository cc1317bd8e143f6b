package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/config"
	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/pkg/emoncms"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const DEFAULT_REQUEST_TIMEOUT = 20 * time.Second

type Server struct {
	port           uint
	httpLog        bool
	rootContext    *actor.RootContext
	masterActor    *actor.PID
	feedClient     emoncms.FeedClient
	gatherer       prometheus.Gatherer
	schema         *domain.SensorSchema
	requestTimeout time.Duration
	logger         *zap.Logger
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, feedClient emoncms.FeedClient,
	gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	NewServer := newServer(cfg, rootContext, masterActor, feedClient, gatherer, logger)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, feedClient emoncms.FeedClient,
	gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:           cfg.Port,
		httpLog:        cfg.HttpLog,
		rootContext:    rootContext,
		masterActor:    masterActor,
		feedClient:     feedClient,
		gatherer:       gatherer,
		schema:         domain.DefaultSensorSchema(),
		requestTimeout: DEFAULT_REQUEST_TIMEOUT,
		logger:         logger.With(zap.String("component", "http")),
	}
}
