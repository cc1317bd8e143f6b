package service

import (
	"context"
	"testing"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"
	"github.com/berfenger/solareco2mqtt/pkg/emoncms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorCatalog(t *testing.T) {

	require := require.New(t)

	client := emoncms.CreateTestFeedClient(
		emoncms.NewTestFeed("919", "230.5", 1700000000),
		emoncms.NewTestFeed("920", "x", 1700000000),
	)
	p := newTestPoller(t, client)

	readings := SensorCatalog(p.Schema(), p.Status())
	require.Len(readings, 5)
	for _, r := range readings {
		require.False(r.Available, "nothing is available before the first update")
	}

	_, err := p.Refresh(context.Background())
	require.NoError(err)

	readings = SensorCatalog(p.Schema(), p.Status())
	require.Len(readings, 5)

	voltage := readings[0]
	require.Equal(domain.FEED_ID_VOLTAGE, voltage.FeedId)
	require.Equal(TEST_DEVICE_ID+"_voltage", voltage.UniqueId)
	require.True(voltage.Available)
	require.InDelta(230.5, *voltage.Value, 0.0001)

	current := readings[1]
	assert.True(t, current.Available, "a feed with a bad value is still reported")
	assert.Nil(t, current.Value)

	power := readings[2]
	assert.False(t, power.Available)
	assert.Nil(t, power.Value)
}
