package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchemaOrder(t *testing.T) {

	assert := assert.New(t)

	schema := DefaultSensorSchema()
	var ids []FeedID
	for _, def := range schema.Definitions() {
		ids = append(ids, def.FeedID)
	}
	assert.Equal([]FeedID{"919", "920", "921", "923", "924"}, ids)
	assert.Equal(5, schema.Len())

	def, ok := schema.Lookup(FEED_ID_DAILY_PRODUCTION)
	assert.True(ok)
	assert.Equal("daily_production", def.Key)
	assert.Equal("Wh", def.Unit)
	assert.Equal(CATEGORY_ENERGY, def.Category)
	assert.Equal(AGGREGATION_TOTAL_INCREASING, def.Aggregation)
	assert.Equal("mdi:solar-power", def.Icon)

	_, ok = schema.Lookup("999")
	assert.False(ok)
}

func TestTransforms(t *testing.T) {

	require := require.New(t)

	schema := DefaultSensorSchema()

	v, err := schema.Transform("920", "1500")
	require.NoError(err)
	require.Equal(1.5, v, "current is reported in mA")

	v, err = schema.Transform("919", "230.5")
	require.NoError(err)
	require.Equal(230.5, v)

	v, err = schema.Transform("921", "345")
	require.NoError(err)
	require.Equal(345.0, v)

	v, err = schema.Transform("923", " -4.5 ")
	require.NoError(err)
	require.Equal(-4.5, v)

	v, err = schema.Transform("924", "1820")
	require.NoError(err)
	require.Equal(1820.0, v)
}

func TestTransformDeterministic(t *testing.T) {

	schema := DefaultSensorSchema()
	for _, def := range schema.Definitions() {
		first, err := def.Transform("1234.5")
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := def.Transform("1234.5")
			require.NoError(t, err)
			require.Equal(t, first, again, "feed %s", def.FeedID)
		}
	}
}

func TestTransformErrors(t *testing.T) {

	assert := assert.New(t)

	schema := DefaultSensorSchema()

	_, err := schema.Transform("919", "n/a")
	var valueErr *ValueTransformError
	if assert.True(errors.As(err, &valueErr)) {
		assert.Equal(FEED_ID_VOLTAGE, valueErr.FeedID)
		assert.Equal("n/a", valueErr.Raw)
	}
	assert.Equal(KindValueTransform, KindOf(err))

	_, err = schema.Transform("920", "")
	assert.Equal(KindValueTransform, KindOf(err))

	for _, raw := range []string{"nan", "NaN", "inf", "-Inf", "infinity"} {
		_, err = schema.Transform("919", raw)
		assert.ErrorIs(err, ErrNonFiniteValue, raw)
		assert.Equal(KindValueTransform, KindOf(err), raw)

		_, err = schema.Transform("920", raw)
		assert.ErrorIs(err, ErrNonFiniteValue, raw)
	}

	_, err = schema.Transform("999", "1")
	assert.ErrorIs(err, ErrUnknownFeed)
}

func TestNewSensorSchemaRejectsDuplicates(t *testing.T) {

	assert := assert.New(t)

	voltage := NewSensorDefinition("1", "Voltage", "voltage", "V", CATEGORY_VOLTAGE, AGGREGATION_MEASUREMENT, "", Identity)
	other := NewSensorDefinition("1", "Other", "other", "V", CATEGORY_VOLTAGE, AGGREGATION_MEASUREMENT, "", Identity)
	sameKey := NewSensorDefinition("2", "Voltage 2", "voltage", "V", CATEGORY_VOLTAGE, AGGREGATION_MEASUREMENT, "", Identity)
	noTransform := NewSensorDefinition("3", "Broken", "broken", "V", CATEGORY_VOLTAGE, AGGREGATION_MEASUREMENT, "", nil)

	_, err := NewSensorSchema(voltage, other)
	assert.Error(err)
	_, err = NewSensorSchema(voltage, sameKey)
	assert.Error(err)
	_, err = NewSensorSchema(noTransform)
	assert.Error(err)

	schema, err := NewSensorSchema(voltage)
	assert.NoError(err)
	assert.Equal(1, schema.Len())
}

func TestUniqueKeyAndTitles(t *testing.T) {

	assert := assert.New(t)

	def, _ := DefaultSensorSchema().Lookup(FEED_ID_CURRENT)
	assert.Equal("ABCdef0123456789_current", def.UniqueKey("ABCdef0123456789"))
	assert.Equal("SolarEco ABCdef01", DeviceTitle("ABCdef0123456789"))
	assert.Equal("SolarEco abc", DeviceTitle("abc"))
	assert.Equal("abcdef01_current", ObjectId("ABCdef01-current"))
	assert.Equal("poller_my_device_1", PollerActorId("My.Device 1"))
}

func TestSnapshotHelpers(t *testing.T) {

	assert := assert.New(t)

	v := 1.0
	snap := Snapshot{
		"921": {Value: &v},
		"919": {},
	}
	assert.True(snap.Has("919"))
	assert.False(snap.Has("920"))
	assert.Equal([]FeedID{"919", "921"}, snap.FeedIDs())
	assert.Equal([]FeedID{"924"}, snap.Missing(PrimaryFeeds...))

	status := DeviceStatus{Snapshot: snap}
	assert.False(status.IsAvailable("919"), "unavailable until an update succeeded")
	status.LastUpdateSuccess = true
	assert.True(status.IsAvailable("919"))
	assert.False(status.IsAvailable("920"))
}
