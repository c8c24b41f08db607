package models

import (
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

// Payload is the type-specific part of a request. Each variant knows its discriminator.
type Payload interface {
	RequestType() types.RequestType
}

type (
	CallTaxiPayload struct {
		From      string  `json:"from"`
		Number    int     `json:"number"`
		To        *string `json:"to,omitempty"`
		Latitude  *int    `json:"latitude,omitempty"`
		Longitude *int    `json:"longitude,omitempty"`
	}

	CancelCallPayload struct {
		From   string `json:"from"`
		Number int    `json:"number"`
	}

	LocationUpdatePayload struct {
		Latitude  int `json:"latitude"`
		Longitude int `json:"longitude"`
	}

	// FindTaxiPayload keeps the capitalised "Longitude" key the dispatch server reads.
	FindTaxiPayload struct {
		Latitude  int `json:"latitude"`
		Longitude int `json:"Longitude"`
	}

	RefreshPayload struct{}
)

func (CallTaxiPayload) RequestType() types.RequestType       { return types.CallTaxiRequest }
func (CancelCallPayload) RequestType() types.RequestType     { return types.CancelCallTaxiRequest }
func (LocationUpdatePayload) RequestType() types.RequestType { return types.LocationUpdateRequest }
func (FindTaxiPayload) RequestType() types.RequestType       { return types.FindTaxiRequest }
func (RefreshPayload) RequestType() types.RequestType        { return types.RefreshRequest }

// Request is one outgoing intent. It is immutable once enqueued; Sequence is the
// correlation number of call and cancel requests (zero for the others).
type Request struct {
	CreatedAt time.Time
	Type      types.RequestType
	Payload   Payload
	Sequence  int
}

func newRequest(p Payload, seq int) *Request {
	return &Request{
		CreatedAt: time.Now(),
		Type:      p.RequestType(),
		Payload:   p,
		Sequence:  seq,
	}
}

// NewCallTaxiRequest builds a call-taxi request. to and pos are optional.
func NewCallTaxiRequest(seq int, from string, to *string, pos *Position) *Request {
	p := CallTaxiPayload{
		From:   from,
		Number: seq,
		To:     to,
	}
	if pos != nil {
		lat, lon := pos.Lat, pos.Lon
		p.Latitude = &lat
		p.Longitude = &lon
	}
	return newRequest(p, seq)
}

func NewCancelCallRequest(seq int, from string) *Request {
	return newRequest(CancelCallPayload{From: from, Number: seq}, seq)
}

func NewLocationUpdateRequest(pos Position) *Request {
	return newRequest(LocationUpdatePayload{Latitude: pos.Lat, Longitude: pos.Lon}, 0)
}

func NewFindTaxiRequest(pos Position) *Request {
	return newRequest(FindTaxiPayload{Latitude: pos.Lat, Longitude: pos.Lon}, 0)
}

func NewRefreshRequest() *Request {
	return newRequest(RefreshPayload{}, 0)
}

// Validate checks that the request can carry its request_type discriminator.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", types.ErrInvalidRequest)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownRequest, r.Type)
	}
	if r.Payload == nil {
		return fmt.Errorf("%w: %s has no payload", types.ErrInvalidRequest, r.Type)
	}
	if r.Payload.RequestType() != r.Type {
		return fmt.Errorf("%w: payload %s does not match type %s", types.ErrInvalidRequest, r.Payload.RequestType(), r.Type)
	}
	return nil
}
