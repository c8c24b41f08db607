package types

type ServiceMode string

// Passenger - runs the passenger request engine against a dispatch server
// Dispatch mock - in-memory dispatch server speaking the passenger protocol, for local development
const (
	PassengerMode    ServiceMode = "passenger"
	DispatchMockMode ServiceMode = "dispatch-mock"
)

// RequestType is the request_type discriminator carried by every request body.
type RequestType string

func (t RequestType) String() string {
	return string(t)
}

// Valid reports whether t is one of the known request kinds.
func (t RequestType) Valid() bool {
	switch t {
	case CallTaxiRequest, CancelCallTaxiRequest, LocationUpdateRequest, FindTaxiRequest, RefreshRequest:
		return true
	default:
		return false
	}
}

const (
	CallTaxiRequest       RequestType = "call-taxi"
	CancelCallTaxiRequest RequestType = "cancel-call-taxi"
	LocationUpdateRequest RequestType = "location-update"
	FindTaxiRequest       RequestType = "FindTaxi"
	RefreshRequest        RequestType = "RefreshRequest"
)

// Keys of the pushed events inside a refresh response "message" object.
const (
	EventCallTaxiReply    = "call-taxi-reply"
	EventLocationUpdate   = "location-update"
	EventCallTaxiComplete = "call-taxi-complete"
)

// CallState is the lifecycle state of the current taxi call.
type CallState int

const (
	CallIdle CallState = iota
	CallRequesting
	CallAssigned
)

func (s CallState) String() string {
	switch s {
	case CallIdle:
		return "IDLE"
	case CallRequesting:
		return "REQUESTING"
	case CallAssigned:
		return "ASSIGNED"
	default:
		return "UNKNOWN"
	}
}
