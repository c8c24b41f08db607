package codec

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

type (
	callReplyWire struct {
		From   *string `json:"from"`
		Number *int    `json:"number"`
	}

	taxiLocationWire struct {
		Latitude  *int `json:"latitude"`
		Longitude *int `json:"longitude"`
	}

	callCompleteWire struct {
		From string `json:"from"`
	}
)

// DecodePoll extracts pushed events from a refresh response body. A missing
// "message" object or section means no event of that kind. Malformed sections
// are skipped and reported in the returned error while the well-formed ones are
// still returned.
func DecodePoll(body []byte) (models.PollEvents, error) {
	var resp struct {
		Message json.RawMessage `json:"message"`
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return models.PollEvents{}, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.PollEvents{}, &types.DecodeError{What: "refresh response", Err: err}
	}
	return DecodeMessages(resp.Message)
}

// DecodeMessages decodes the "message" object of a refresh response, which is
// also the payload of a push channel frame.
func DecodeMessages(raw json.RawMessage) (models.PollEvents, error) {
	var events models.PollEvents
	if len(raw) == 0 || string(raw) == "null" {
		return events, nil
	}

	sections := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &sections); err != nil {
		// "message" may legitimately be a plain string (e.g. "no message").
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return events, nil
		}
		return events, &types.DecodeError{What: "refresh messages", Err: err}
	}

	var errs []error

	if sec, ok := present(sections, types.EventCallTaxiReply); ok {
		ev, err := decodeCallReply(sec)
		if err != nil {
			errs = append(errs, err)
		} else {
			events.CallAccepted = ev
		}
	}

	if sec, ok := present(sections, types.EventLocationUpdate); ok {
		ev, err := decodeTaxiLocation(sec)
		if err != nil {
			errs = append(errs, err)
		} else {
			events.TaxiLocation = ev
		}
	}

	if sec, ok := present(sections, types.EventCallTaxiComplete); ok {
		var w callCompleteWire
		if err := json.Unmarshal(sec, &w); err != nil {
			errs = append(errs, &types.DecodeError{What: types.EventCallTaxiComplete, Err: err})
		} else {
			events.CallCompleted = &models.CallCompleted{From: w.From}
		}
	}

	return events, errors.Join(errs...)
}

func present(sections map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	sec, ok := sections[key]
	if !ok || len(sec) == 0 || string(sec) == "null" {
		return nil, false
	}
	return sec, true
}

func decodeCallReply(sec json.RawMessage) (*models.CallAccepted, error) {
	var w callReplyWire
	if err := json.Unmarshal(sec, &w); err != nil {
		return nil, &types.DecodeError{What: types.EventCallTaxiReply, Err: err}
	}
	if w.From == nil || *w.From == "" {
		return nil, &types.DecodeError{What: types.EventCallTaxiReply, Err: errors.New("missing from")}
	}
	if w.Number == nil {
		return nil, &types.DecodeError{What: types.EventCallTaxiReply, Err: errors.New("missing number")}
	}
	return &models.CallAccepted{From: *w.From, Number: *w.Number}, nil
}

func decodeTaxiLocation(sec json.RawMessage) (*models.TaxiLocationChanged, error) {
	var w taxiLocationWire
	if err := json.Unmarshal(sec, &w); err != nil {
		return nil, &types.DecodeError{What: types.EventLocationUpdate, Err: err}
	}
	if w.Latitude == nil || w.Longitude == nil {
		return nil, &types.DecodeError{What: types.EventLocationUpdate, Err: errors.New("missing coordinates")}
	}
	return &models.TaxiLocationChanged{
		Position: models.Position{Lat: *w.Latitude, Lon: *w.Longitude},
	}, nil
}

// EncodeMessages renders events the way DecodeMessages reads them.
func EncodeMessages(events models.PollEvents) (json.RawMessage, error) {
	sections := map[string]any{}
	if ev := events.CallAccepted; ev != nil {
		from, number := ev.From, ev.Number
		sections[types.EventCallTaxiReply] = callReplyWire{From: &from, Number: &number}
	}
	if ev := events.TaxiLocation; ev != nil {
		lat, lon := ev.Position.Lat, ev.Position.Lon
		sections[types.EventLocationUpdate] = taxiLocationWire{Latitude: &lat, Longitude: &lon}
	}
	if ev := events.CallCompleted; ev != nil {
		sections[types.EventCallTaxiComplete] = callCompleteWire{From: ev.From}
	}
	return json.Marshal(sections)
}
