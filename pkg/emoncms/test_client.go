package emoncms

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// TestFeedClient is an in-memory FeedClient for tests. When Block is set every
// call waits on it (or on ctx) before answering.
type TestFeedClient struct {
	mu    sync.Mutex
	feeds []Feed
	err   error
	calls atomic.Int32

	InFlight chan struct{}
	Block    chan struct{}
}

func CreateTestFeedClient(feeds ...Feed) *TestFeedClient {
	return &TestFeedClient{feeds: feeds}
}

// DefaultTestFeeds is a complete feed list as a SolarEco regulator reports it.
func DefaultTestFeeds() []Feed {
	return []Feed{
		NewTestFeed("919", "230.5", 1700000000),
		NewTestFeed("920", "1500", 1700000000),
		NewTestFeed("921", "345.75", 1700000000),
		NewTestFeed("923", "41.2", 1700000000),
		NewTestFeed("924", "1820", 1700000000),
		NewTestFeed("925", "12", 1700000000),
	}
}

func NewTestFeed(id, value string, time int64) Feed {
	name := fmt.Sprintf("feed_%s", id)
	return Feed{
		Id:    id,
		Value: &value,
		Time:  &time,
		Name:  &name,
	}
}

func (c *TestFeedClient) SetFeeds(feeds ...Feed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feeds = feeds
	c.err = nil
}

func (c *TestFeedClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *TestFeedClient) Calls() int {
	return int(c.calls.Load())
}

func (c *TestFeedClient) FeedListURL(deviceId string) string {
	return fmt.Sprintf("%s/%s/feed/list.json", DefaultBaseURL, deviceId)
}

func (c *TestFeedClient) FeedList(ctx context.Context, deviceId string) ([]Feed, error) {
	c.calls.Add(1)
	if c.InFlight != nil {
		select {
		case c.InFlight <- struct{}{}:
		default:
		}
	}
	if c.Block != nil {
		select {
		case <-c.Block:
		case <-ctx.Done():
			return nil, &TransportError{URL: c.FeedListURL(deviceId), Err: ctx.Err()}
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	feeds := make([]Feed, len(c.feeds))
	copy(feeds, c.feeds)
	return feeds, nil
}

var _ FeedClient = (*TestFeedClient)(nil)
