package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/config"
	coreactor "github.com/berfenger/solareco2mqtt/internal/core/actor"
	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/core/service"
	"github.com/berfenger/solareco2mqtt/internal/metrics"
	"github.com/berfenger/solareco2mqtt/internal/util"
	"github.com/berfenger/solareco2mqtt/pkg/emoncms"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type serverFixture struct {
	handler        http.Handler
	validateClient *emoncms.TestFeedClient
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	cfg := util.LoadTestConfig()
	cfg.MQTT.Host = ""
	cfg.Refresh.MinIntervalMillis = 3600 * 1000
	logger := zap.Must(zap.NewDevelopmentConfig().Build())

	registry := prometheus.NewRegistry()
	collector := metrics.NewPollCollector(registry)
	pollClient := emoncms.CreateTestFeedClient(emoncms.DefaultTestFeeds()...)

	as := actor.NewActorSystem()
	t.Cleanup(as.Shutdown)
	props := actor.PropsFromProducer(func() actor.Actor {
		return coreactor.NewMasterOfPuppetsActor(cfg, func(dev config.DeviceConfig) (*service.TelemetryPoller, error) {
			return service.NewTelemetryPoller(service.PollerConfig{
				DeviceId:            dev.DeviceId,
				ScanIntervalSeconds: dev.ScanInterval,
				Client:              pollClient,
				Metrics:             collector,
				Logger:              logger,
			})
		}, nil, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)

	f := &serverFixture{
		validateClient: emoncms.CreateTestFeedClient(emoncms.DefaultTestFeeds()...),
	}
	s := newServer(cfg, as.Root, pid, f.validateClient, registry, logger)
	s.requestTimeout = 5 * time.Second
	f.handler = s.RegisterRoutes()

	// wait for the first refresh
	rec := f.do(http.MethodGet, "/api/devices/"+util.TEST_DEVICE_ID+"/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	return f
}

func (f *serverFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckHandler(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())
}

func TestDevicesHandler(t *testing.T) {

	require := require.New(t)

	f := newServerFixture(t)
	rec := f.do(http.MethodGet, "/api/devices", "")
	require.Equal(http.StatusOK, rec.Code)

	var devices []deviceResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &devices))
	require.Len(devices, 1)
	require.Equal(util.TEST_DEVICE_ID, devices[0].DeviceId)
	require.Equal("SolarEco abcdef12", devices[0].Title)
	require.Equal(30, devices[0].ScanInterval)
	require.True(devices[0].LastUpdateSuccess)
	require.NotNil(devices[0].LastUpdate)
}

func TestSnapshotHandler(t *testing.T) {

	require := require.New(t)

	f := newServerFixture(t)
	rec := f.do(http.MethodGet, "/api/devices/"+util.TEST_DEVICE_ID+"/snapshot", "")
	require.Equal(http.StatusOK, rec.Code)

	var body struct {
		DeviceId          string `json:"device_id"`
		LastUpdateSuccess bool   `json:"last_update_success"`
		Feeds             map[string]struct {
			Value *float64 `json:"value"`
			Time  *int64   `json:"time"`
			Name  *string  `json:"name"`
		} `json:"feeds"`
	}
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(util.TEST_DEVICE_ID, body.DeviceId)
	require.True(body.LastUpdateSuccess)
	require.Len(body.Feeds, 5)
	require.InDelta(1.5, *body.Feeds["920"].Value, 0.0001)
	require.Equal("feed_920", *body.Feeds["920"].Name)

	rec = f.do(http.MethodGet, "/api/devices/unknown/snapshot", "")
	require.Equal(http.StatusNotFound, rec.Code)
}

func TestSensorsHandler(t *testing.T) {

	require := require.New(t)

	f := newServerFixture(t)
	rec := f.do(http.MethodGet, "/api/devices/"+util.TEST_DEVICE_ID+"/sensors", "")
	require.Equal(http.StatusOK, rec.Code)

	var readings []service.SensorReading
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &readings))
	require.Len(readings, 5)
	require.Equal(util.TEST_DEVICE_ID+"_voltage", readings[0].UniqueId)
	require.Equal("V", readings[0].Unit)
	require.True(readings[0].Available)
	require.InDelta(230.5, *readings[0].Value, 0.0001)
}

func TestRefreshHandler(t *testing.T) {

	require := require.New(t)

	f := newServerFixture(t)
	path := "/api/devices/" + util.TEST_DEVICE_ID + "/refresh"

	rec := f.do(http.MethodPost, path, "")
	require.Equal(http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, path, "")
	require.Equal(http.StatusTooManyRequests, rec.Code)
	var body snapshotResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(body.Feeds, 5, "throttled refresh still returns the snapshot")
	require.NotEmpty(body.Error)

	rec = f.do(http.MethodPost, "/api/devices/unknown/refresh", "")
	require.Equal(http.StatusNotFound, rec.Code)
}

func TestValidateHandler(t *testing.T) {

	require := require.New(t)

	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/api/validate", `{"device_id": "0123456789abcdef", "scan_interval": 500}`)
	require.Equal(http.StatusOK, rec.Code)
	var ok struct {
		Title        string   `json:"title"`
		ScanInterval int      `json:"scan_interval"`
		MissingFeeds []string `json:"missing_feeds"`
	}
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &ok))
	require.Equal("SolarEco 01234567", ok.Title)
	require.Equal(domain.MAX_SCAN_INTERVAL_SECONDS, ok.ScanInterval)
	require.Empty(ok.MissingFeeds)

	rec = f.do(http.MethodPost, "/api/validate", `{"device_id": "  "}`)
	require.Equal(http.StatusBadRequest, rec.Code)
	require.Contains(rec.Body.String(), "invalid_device_id")

	f.validateClient.SetError(&emoncms.TransportError{URL: "test", StatusCode: http.StatusNotFound})
	rec = f.do(http.MethodPost, "/api/validate", `{"device_id": "0123456789abcdef"}`)
	require.Equal(http.StatusBadGateway, rec.Code)
	require.Contains(rec.Body.String(), "cannot_connect")
}

func TestMetricsHandler(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "solareco_poll_total")
}
