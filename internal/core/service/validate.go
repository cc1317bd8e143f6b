package service

import (
	"context"
	"strings"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/pkg/emoncms"

	"go.uber.org/zap"
)

type ValidationResult struct {
	DeviceId     string          `json:"device_id"`
	Title        string          `json:"title"`
	FeedCount    int             `json:"feed_count"`
	MissingFeeds []domain.FeedID `json:"missing_feeds"`
}

// ValidateConnectivity checks that the device id answers with a feed list
// before the device is added. Missing primary feeds only produce a warning.
func ValidateConnectivity(ctx context.Context, client emoncms.FeedClient, deviceId string, logger *zap.Logger) (*ValidationResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deviceId = strings.TrimSpace(deviceId)
	if deviceId == "" {
		return nil, &domain.InvalidDeviceIdError{DeviceId: deviceId, Reason: "device id is required"}
	}

	url := client.FeedListURL(deviceId)
	logger.Debug("validate: fetching feed list", zap.String("url", url))

	feeds, err := client.FeedList(ctx, deviceId)
	if err != nil {
		logger.Error("validate: failed to connect to endpoint", zap.String("url", url), zap.Error(err))
		return nil, &domain.CannotConnectError{DeviceId: deviceId, Err: err}
	}
	if len(feeds) == 0 {
		logger.Error("validate: no data returned from API", zap.String("device_id", deviceId))
		return nil, &domain.InvalidDeviceIdError{DeviceId: deviceId, Reason: "no data returned from API"}
	}

	ids := emoncms.FeedIds(feeds)
	present := make(map[domain.FeedID]bool, len(ids))
	for _, id := range ids {
		present[domain.FeedID(id)] = true
	}
	missing := make([]domain.FeedID, 0)
	for _, id := range domain.PrimaryFeeds {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		logger.Warn("validate: expected feed ids not found",
			zap.String("device_id", deviceId), zap.Strings("feed_ids", ids), zap.Any("missing", missing))
	}

	return &ValidationResult{
		DeviceId:     deviceId,
		Title:        domain.DeviceTitle(deviceId),
		FeedCount:    len(feeds),
		MissingFeeds: missing,
	}, nil
}
