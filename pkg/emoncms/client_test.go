package emoncms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPFeedClient(t *testing.T, baseURL string, timeout time.Duration) *HTTPFeedClient {
	t.Helper()
	c, err := NewHTTPFeedClient(ClientConfig{
		BaseURL:        baseURL,
		RequestTimeout: timeout,
	})
	require.NoError(t, err)
	return c
}

func TestFeedListURL(t *testing.T) {

	assert := assert.New(t)

	c, err := NewHTTPFeedClient(ClientConfig{})
	assert.NoError(err)
	assert.Equal("https://emon.solareco.cz/emoncms/abcdef0123456789/feed/list.json", c.FeedListURL("abcdef0123456789"))

	c = newTestHTTPFeedClient(t, "http://localhost:8080/emoncms/", 0)
	assert.Equal("http://localhost:8080/emoncms/dev%2F1/feed/list.json", c.FeedListURL("dev/1"))
	assert.Equal(RequestTimeout, c.http.Timeout)
}

func TestFeedListOK(t *testing.T) {

	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emoncms/abc123/feed/list.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %q", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"919","value":"231.1","time":1700000000,"name":"U"},{"id":"999","value":"1"}]`))
	}))
	defer srv.Close()

	c := newTestHTTPFeedClient(t, srv.URL+"/emoncms", 5*time.Second)
	feeds, err := c.FeedList(context.Background(), "abc123")
	require.NoError(err)
	require.Len(feeds, 2)
	require.Equal("231.1", *feeds[0].Value)
	require.Equal("999", feeds[1].Id)
}

func TestFeedListNon200(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestHTTPFeedClient(t, srv.URL, 5*time.Second)
	_, err := c.FeedList(context.Background(), "missing")

	var transportErr *TransportError
	if assert.True(errors.As(err, &transportErr)) {
		assert.Equal(http.StatusNotFound, transportErr.StatusCode)
	}
}

func TestFeedListNotArray(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := newTestHTTPFeedClient(t, srv.URL, 5*time.Second)
	_, err := c.FeedList(context.Background(), "abc")

	var formatErr *FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestFeedListTimeout(t *testing.T) {

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestHTTPFeedClient(t, srv.URL, 100*time.Millisecond)
	_, err := c.FeedList(context.Background(), "slow")

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.StatusCode)
}

func TestFeedListConnectionRefused(t *testing.T) {

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestHTTPFeedClient(t, url, time.Second)
	_, err := c.FeedList(context.Background(), "abc")

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestFeedListContextCancel(t *testing.T) {

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestHTTPFeedClient(t, srv.URL, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := c.FeedList(ctx, "abc")
	assert.ErrorIs(t, err, context.Canceled)
}
