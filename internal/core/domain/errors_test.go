package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/berfenger/solareco2mqtt/pkg/emoncms"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {

	assert := assert.New(t)

	transport := &emoncms.TransportError{URL: "http://x", StatusCode: 500}
	format := &emoncms.FormatError{Reason: "not an array"}

	assert.Equal(KindNone, KindOf(nil))
	assert.Equal(KindTransport, KindOf(transport))
	assert.Equal(KindTransport, KindOf(fmt.Errorf("refresh: %w", transport)))
	assert.Equal(KindFormat, KindOf(format))
	assert.Equal(KindCannotConnect, KindOf(&CannotConnectError{DeviceId: "a", Err: transport}))
	assert.Equal(KindInvalidDeviceId, KindOf(&InvalidDeviceIdError{DeviceId: "", Reason: "empty"}))
	assert.Equal(KindCanceled, KindOf(&emoncms.TransportError{URL: "http://x", Err: context.Canceled}))
	assert.Equal(KindCanceled, KindOf(ErrPollerClosed))
	assert.Equal(KindTransport, KindOf(&emoncms.TransportError{URL: "http://x", Err: context.DeadlineExceeded}))
	assert.Equal(KindUnknown, KindOf(errors.New("boom")))

	assert.True(KindTransport.Retryable())
	assert.True(KindFormat.Retryable())
	assert.False(KindCannotConnect.Retryable())
	assert.Equal("cannot_connect", KindCannotConnect.String())
	assert.Equal("invalid_device_id", KindInvalidDeviceId.String())
}

func TestResponseErrorKind(t *testing.T) {

	resp := RefreshResponse{
		ActorResponseMixIn: ActorResponseMixIn{
			ResponseError: &emoncms.FormatError{Reason: "x"},
		},
	}
	assert.True(t, resp.HasResponseError())
	assert.Equal(t, KindFormat, resp.ResponseErrorKind())
}
