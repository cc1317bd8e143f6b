package domain

import "time"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// PollerActorId is the child name of the poller actor of a device.
func PollerActorId(deviceId string) string {
	return ACTOR_ID_POLLER + "_" + ObjectId(deviceId)
}

type GetSnapshotRequest struct {
	DeviceRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Status DeviceStatus
}

type GetDevicesRequest struct {
	ActorRequestMixIn
}

type GetDevicesResponse struct {
	ActorResponseMixIn
	Devices []DeviceStatus
}

// DeviceStatus is the read-only view of a poller handed to collaborators.
type DeviceStatus struct {
	DeviceId          string
	ScanInterval      time.Duration
	Snapshot          Snapshot
	LastUpdateSuccess bool
	LastUpdate        time.Time
	LastError         error
}

// IsAvailable reports whether the feed has a value from the last successful
// update.
func (s DeviceStatus) IsAvailable(id FeedID) bool {
	return s.LastUpdateSuccess && s.Snapshot.Has(id)
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Buttons      []GenericButton
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
