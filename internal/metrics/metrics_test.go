package metrics

import (
	"testing"
	"time"

	"github.com/berfenger/solareco2mqtt/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPollCollector(t *testing.T) {

	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	c := NewPollCollector(reg)

	c.ObservePoll("dev1", 120*time.Millisecond, domain.KindNone)
	c.ObservePoll("dev1", 10*time.Second, domain.KindTransport)
	c.ObservePoll("dev1", time.Second, domain.KindCanceled)
	c.SetFeedsReported("dev1", 5)
	c.IncValueErrors("dev1", domain.FEED_ID_CURRENT)

	assert.Equal(1.0, testutil.ToFloat64(c.polls.WithLabelValues("dev1", "success")))
	assert.Equal(1.0, testutil.ToFloat64(c.polls.WithLabelValues("dev1", "transport")))
	assert.Equal(0.0, testutil.ToFloat64(c.lastSuccess.WithLabelValues("dev1")))
	assert.Equal(5.0, testutil.ToFloat64(c.feeds.WithLabelValues("dev1")))
	assert.Equal(1.0, testutil.ToFloat64(c.valueErrors.WithLabelValues("dev1", "920")))
	assert.Equal(1, testutil.CollectAndCount(c.pollDuration))
}
