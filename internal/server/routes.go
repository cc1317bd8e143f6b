package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/internal/core/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type deviceResponse struct {
	DeviceId          string     `json:"device_id"`
	Title             string     `json:"title"`
	ScanInterval      int        `json:"scan_interval"`
	LastUpdateSuccess bool       `json:"last_update_success"`
	LastUpdate        *time.Time `json:"last_update"`
	LastError         string     `json:"last_error,omitempty"`
}

type snapshotResponse struct {
	DeviceId          string                             `json:"device_id"`
	LastUpdateSuccess bool                               `json:"last_update_success"`
	LastUpdate        *time.Time                         `json:"last_update"`
	Feeds             map[domain.FeedID]domain.FeedValue `json:"feeds"`
	Error             string                             `json:"error,omitempty"`
}

type validateRequest struct {
	DeviceId     string `json:"device_id"`
	ScanInterval int    `json:"scan_interval"`
}

type validateResponse struct {
	*service.ValidationResult
	ScanInterval int `json:"scan_interval"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/devices", s.DevicesHandler)
	api.GET("/devices/:device_id/snapshot", s.SnapshotHandler)
	api.GET("/devices/:device_id/sensors", s.SensorsHandler)
	api.POST("/devices/:device_id/refresh", s.RefreshHandler)
	api.POST("/validate", s.ValidateHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DevicesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetDevicesRequest{}, s.requestTimeout).Result()
	if err != nil {
		return s.actorError(c, err)
	}
	resp, ok := res.(domain.GetDevicesResponse)
	if !ok {
		return s.actorError(c, errors.New("unexpected response"))
	}
	devices := make([]deviceResponse, 0, len(resp.Devices))
	for _, status := range resp.Devices {
		dev := deviceResponse{
			DeviceId:          status.DeviceId,
			Title:             domain.DeviceTitle(status.DeviceId),
			ScanInterval:      int(status.ScanInterval / time.Second),
			LastUpdateSuccess: status.LastUpdateSuccess,
			LastUpdate:        optionalTime(status.LastUpdate),
		}
		if status.LastError != nil {
			dev.LastError = status.LastError.Error()
		}
		devices = append(devices, dev)
	}
	return c.JSON(http.StatusOK, devices)
}

func (s *Server) SnapshotHandler(c echo.Context) error {
	status, err := s.deviceStatus(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnapshotResponse(status, nil))
}

func (s *Server) SensorsHandler(c echo.Context) error {
	status, err := s.deviceStatus(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, service.SensorCatalog(s.schema, status))
}

func (s *Server) RefreshHandler(c echo.Context) error {
	req := domain.RefreshRequest{
		PollerRequestMixIn: domain.PollerRequestMixIn{
			DeviceRequestMixIn: domain.DeviceRequestMixIn{
				DeviceId: c.Param("device_id"),
			},
		},
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, req, s.requestTimeout).Result()
	if err != nil {
		return s.actorError(c, err)
	}
	resp, ok := res.(domain.RefreshResponse)
	if !ok {
		return s.actorError(c, errors.New("unexpected response"))
	}
	if !resp.HasResponseError() {
		return c.JSON(http.StatusOK, toSnapshotResponse(resp.Status, nil))
	}

	respErr := resp.GetResponseError()
	switch {
	case errors.Is(respErr, domain.ErrUnknownDevice):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown_device", Message: respErr.Error()})
	case errors.Is(respErr, domain.ErrRefreshThrottled):
		return c.JSON(http.StatusTooManyRequests, toSnapshotResponse(resp.Status, respErr))
	case resp.ResponseErrorKind() == domain.KindCanceled:
		return c.JSON(http.StatusServiceUnavailable, toSnapshotResponse(resp.Status, respErr))
	default:
		return c.JSON(http.StatusBadGateway, toSnapshotResponse(resp.Status, respErr))
	}
}

func (s *Server) ValidateHandler(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
	}

	scanInterval := req.ScanInterval
	if scanInterval == 0 {
		scanInterval = domain.DEFAULT_SCAN_INTERVAL_SECONDS
	}
	scanInterval, _ = domain.ClampScanInterval(scanInterval)

	result, err := service.ValidateConnectivity(c.Request().Context(), s.feedClient, req.DeviceId, s.logger)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindInvalidDeviceId:
			return c.JSON(http.StatusBadRequest, errorResponse{Error: domain.KindInvalidDeviceId.String(), Message: err.Error()})
		default:
			return c.JSON(http.StatusBadGateway, errorResponse{Error: domain.KindCannotConnect.String(), Message: err.Error()})
		}
	}
	return c.JSON(http.StatusOK, validateResponse{
		ValidationResult: result,
		ScanInterval:     scanInterval,
	})
}

func (s *Server) deviceStatus(c echo.Context) (domain.DeviceStatus, error) {
	req := domain.GetSnapshotRequest{
		DeviceRequestMixIn: domain.DeviceRequestMixIn{
			DeviceId: c.Param("device_id"),
		},
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, req, s.requestTimeout).Result()
	if err != nil {
		return domain.DeviceStatus{}, s.actorError(c, err)
	}
	resp, ok := res.(domain.GetSnapshotResponse)
	if !ok {
		return domain.DeviceStatus{}, s.actorError(c, errors.New("unexpected response"))
	}
	if resp.HasResponseError() {
		if errors.Is(resp.GetResponseError(), domain.ErrUnknownDevice) {
			return domain.DeviceStatus{}, echo.NewHTTPError(http.StatusNotFound, errorResponse{
				Error:   "unknown_device",
				Message: resp.GetResponseError().Error(),
			})
		}
		return domain.DeviceStatus{}, s.actorError(c, resp.GetResponseError())
	}
	return resp.Status, nil
}

func (s *Server) actorError(c echo.Context, err error) error {
	s.logger.Error("http: actor request failed", zap.String("path", c.Path()), zap.Error(err))
	return echo.NewHTTPError(http.StatusServiceUnavailable, errorResponse{Error: "unavailable", Message: err.Error()})
}

func toSnapshotResponse(status domain.DeviceStatus, err error) snapshotResponse {
	resp := snapshotResponse{
		DeviceId:          status.DeviceId,
		LastUpdateSuccess: status.LastUpdateSuccess,
		LastUpdate:        optionalTime(status.LastUpdate),
		Feeds:             make(map[domain.FeedID]domain.FeedValue, len(status.Snapshot)),
	}
	for id, v := range status.Snapshot {
		resp.Feeds[id] = v
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
