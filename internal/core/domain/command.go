package domain

import (
	"errors"
	"fmt"
)

var ErrRefreshThrottled = errors.New("refresh throttled, try again later")

var ErrUnknownDevice = errors.New("unknown device")

// PollerRequest

type PollerRequest interface {
	DeviceRequest
	PollerCommand() string
}

type PollerRequestMixIn struct {
	DeviceRequestMixIn
}

func (r PollerRequestMixIn) PollerCommand() string {
	return fmt.Sprintf("%T", r)
}

// Poller commands

// RefreshRequest asks for an immediate refresh. While a refresh is already
// running the request is answered with that refresh's result.
type RefreshRequest struct {
	PollerRequestMixIn
}

type RefreshResponse struct {
	ActorResponseMixIn
	Status DeviceStatus
}

type SetScanIntervalRequest struct {
	PollerRequestMixIn
	Seconds int
}

type SetScanIntervalResponse struct {
	ActorResponseMixIn
	Seconds int
}

// ensure interface compliance
var _ PollerRequest = (*RefreshRequest)(nil)
var _ PollerRequest = (*SetScanIntervalRequest)(nil)
