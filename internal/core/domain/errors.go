package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/berfenger/solareco2mqtt/pkg/emoncms"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransport
	KindFormat
	KindValueTransform
	KindCannotConnect
	KindInvalidDeviceId
	KindCanceled
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindFormat:
		return "format"
	case KindValueTransform:
		return "value_transform"
	case KindCannotConnect:
		return "cannot_connect"
	case KindInvalidDeviceId:
		return "invalid_device_id"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether the next scheduled poll may succeed.
func (k ErrorKind) Retryable() bool {
	return k == KindTransport || k == KindFormat
}

var ErrUnknownFeed = errors.New("unknown feed")

// ErrPollerClosed is returned by refreshes started or finished after the
// poller was closed.
var ErrPollerClosed = errors.New("poller closed")

type TransportError = emoncms.TransportError

type FormatError = emoncms.FormatError

// ValueTransformError reports a single feed whose raw value is not numeric.
type ValueTransformError struct {
	FeedID FeedID
	Raw    string
	Err    error
}

func (e *ValueTransformError) Error() string {
	return fmt.Sprintf("feed %s: cannot convert %q: %v", e.FeedID, e.Raw, e.Err)
}

func (e *ValueTransformError) Unwrap() error {
	return e.Err
}

// CannotConnectError is returned by onboarding validation when the device
// endpoint cannot be reached or does not answer with a feed list.
type CannotConnectError struct {
	DeviceId string
	Err      error
}

func (e *CannotConnectError) Error() string {
	return fmt.Sprintf("cannot connect to device %s: %v", e.DeviceId, e.Err)
}

func (e *CannotConnectError) Unwrap() error {
	return e.Err
}

type InvalidDeviceIdError struct {
	DeviceId string
	Reason   string
}

func (e *InvalidDeviceIdError) Error() string {
	return fmt.Sprintf("invalid device id %q: %s", e.DeviceId, e.Reason)
}

// KindOf classifies err. Onboarding kinds win over the transport errors they
// wrap.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var invalidDeviceErr *InvalidDeviceIdError
	var cannotConnectErr *CannotConnectError
	var transportErr *TransportError
	var formatErr *FormatError
	var valueErr *ValueTransformError
	switch {
	case errors.As(err, &invalidDeviceErr):
		return KindInvalidDeviceId
	case errors.As(err, &cannotConnectErr):
		return KindCannotConnect
	case errors.Is(err, ErrPollerClosed):
		return KindCanceled
	case errors.As(err, &transportErr):
		if isCanceled(transportErr.Err) {
			return KindCanceled
		}
		return KindTransport
	case errors.As(err, &formatErr):
		return KindFormat
	case errors.As(err, &valueErr):
		return KindValueTransform
	case isCanceled(err):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// isCanceled reports a torn down caller. Deadlines are timeouts, not
// cancellations.
func isCanceled(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}
