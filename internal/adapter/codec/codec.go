// Package codec builds and parses the JSON envelopes exchanged with the dispatch server.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

const (
	// RouteCommand is where commands and refresh polls are posted, relative to the base URL.
	RouteCommand = ""
	// RouteSignin is the login endpoint relative to the base URL.
	RouteSignin = "/signin"

	discriminatorKey = "request_type"
)

// Call is a request mapped onto the transport.
type Call struct {
	Method string
	Route  string
	Body   []byte
}

// Result is a decoded command response.
type Result struct {
	Status  int
	Message string
	Body    []byte
}

// OK reports whether the server answered with the success sentinel.
func (r Result) OK() bool {
	return r.Status == types.StatusOK
}

// Err converts a failed result into a ProtocolError. Successful results give nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &types.ProtocolError{Status: r.Status, Message: r.Message}
}

// Encode maps a request to a transport call, stamping the request_type discriminator.
func Encode(req *models.Request) (Call, error) {
	const op = "codec.Encode"

	if err := req.Validate(); err != nil {
		return Call{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(req.Payload)
	if err != nil {
		return Call{}, fmt.Errorf("%s: marshal %s: %w", op, req.Type, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Call{}, fmt.Errorf("%s: payload of %s is not an object: %w", op, req.Type, err)
	}

	discriminator, err := json.Marshal(req.Type.String())
	if err != nil {
		return Call{}, fmt.Errorf("%s: %w", op, err)
	}
	fields[discriminatorKey] = discriminator

	body, err := json.Marshal(fields)
	if err != nil {
		return Call{}, fmt.Errorf("%s: marshal envelope: %w", op, err)
	}

	return Call{
		Method: http.MethodPost,
		Route:  RouteCommand,
		Body:   body,
	}, nil
}

// EncodeSignin builds the signin call.
func EncodeSignin(nickname, password string) (Call, error) {
	body, err := json.Marshal(SigninRequest{Nickname: nickname, Password: password})
	if err != nil {
		return Call{}, fmt.Errorf("codec.EncodeSignin: %w", err)
	}
	return Call{
		Method: http.MethodPost,
		Route:  RouteSignin,
		Body:   body,
	}, nil
}

// SigninRequest is the body of the signin endpoint.
type SigninRequest struct {
	Nickname string `json:"nick_name"`
	Password string `json:"password"`
}

// DecodeRequest is the inverse of Encode.
func DecodeRequest(body []byte) (*models.Request, error) {
	var head struct {
		RequestType *types.RequestType `json:"request_type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, &types.DecodeError{What: "request", Err: err}
	}
	if head.RequestType == nil {
		return nil, &types.DecodeError{What: "request", Err: errors.New("missing request_type")}
	}

	var (
		p   models.Payload
		seq int
		err error
	)
	switch t := *head.RequestType; t {
	case types.CallTaxiRequest:
		var v models.CallTaxiPayload
		err = strictUnmarshal(body, &v)
		p, seq = v, v.Number
	case types.CancelCallTaxiRequest:
		var v models.CancelCallPayload
		err = strictUnmarshal(body, &v)
		p, seq = v, v.Number
	case types.LocationUpdateRequest:
		var v models.LocationUpdatePayload
		err = strictUnmarshal(body, &v)
		p = v
	case types.FindTaxiRequest:
		var v models.FindTaxiPayload
		err = strictUnmarshal(body, &v)
		p = v
	case types.RefreshRequest:
		p = models.RefreshPayload{}
	default:
		return nil, &types.DecodeError{What: "request", Err: fmt.Errorf("%w: %q", types.ErrUnknownRequest, t)}
	}
	if err != nil {
		return nil, &types.DecodeError{What: string(*head.RequestType), Err: err}
	}

	return &models.Request{
		Type:     p.RequestType(),
		Payload:  p,
		Sequence: seq,
	}, nil
}

// strictUnmarshal decodes into dst rejecting keys that dst does not know,
// apart from the discriminator itself.
func strictUnmarshal(body []byte, dst any) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return err
	}
	delete(fields, discriminatorKey)
	rest, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(rest))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// envelope is the common shape of every server answer.
type envelope struct {
	Status  *int            `json:"status"`
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// DecodeCommand normalizes a transport answer into a Result. It never fails:
// malformed bodies degrade to StatusDecodeFailed with a diagnostic message.
func DecodeCommand(statusCode int, body []byte) Result {
	if statusCode == types.StatusTransportFailed {
		return Result{
			Status:  types.StatusTransportFailed,
			Message: messageOf(body, "Cannot connect to server"),
			Body:    body,
		}
	}

	if statusCode < 200 || statusCode > 299 {
		return Result{
			Status:  statusCode,
			Message: messageOf(body, http.StatusText(statusCode)),
			Body:    body,
		}
	}

	// A bare acknowledgement carries no body at all.
	if len(bytes.TrimSpace(body)) == 0 {
		return Result{Status: types.StatusOK, Body: body}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return decodeFailed(&types.DecodeError{What: "command response", Err: err}, body)
	}
	// A successful exchange without a status field is an OK answer.
	if env.Status == nil {
		return Result{
			Status:  types.StatusOK,
			Message: stringOf(env.Message),
			Body:    body,
		}
	}

	return Result{
		Status:  *env.Status,
		Message: stringOf(env.Message),
		Body:    body,
	}
}

func decodeFailed(err error, body []byte) Result {
	return Result{
		Status:  types.StatusDecodeFailed,
		Message: err.Error(),
		Body:    body,
	}
}

// messageOf extracts "message" or "error" from a JSON body, falling back to def.
func messageOf(body []byte, def string) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return def
	}
	if msg := stringOf(env.Message); msg != "" {
		return msg
	}
	if msg := stringOf(env.Error); msg != "" {
		return msg
	}
	return def
}

// stringOf renders a raw "message" value: strings as-is, anything else as JSON text.
func stringOf(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ErrorBody renders the diagnostic payload {"message": msg}.
func ErrorBody(msg string) []byte {
	b, err := json.Marshal(map[string]string{"message": msg})
	if err != nil {
		return []byte(`{"message":"internal error"}`)
	}
	return b
}

// DecodeTaxis parses a FindTaxi answer. Entries are returned sorted by id.
func DecodeTaxis(body []byte) ([]models.TaxiInfo, error) {
	var resp struct {
		Taxis map[string]taxiWire `json:"taxis"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &types.DecodeError{What: "taxis", Err: err}
	}

	ids := make([]string, 0, len(resp.Taxis))
	for id := range resp.Taxis {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	taxis := make([]models.TaxiInfo, 0, len(ids))
	for _, id := range ids {
		info, err := resp.Taxis[id].toModel(id)
		if err != nil {
			return nil, &types.DecodeError{What: "taxi " + id, Err: err}
		}
		taxis = append(taxis, info)
	}
	return taxis, nil
}

type taxiWire struct {
	Latitude    *int   `json:"latitude"`
	Longitude   *int   `json:"longitude"`
	CarNumber   string `json:"car_number"`
	PhoneNumber string `json:"phone_number"`
	Nickname    string `json:"nickname"`
}

func (t taxiWire) toModel(id string) (models.TaxiInfo, error) {
	if t.Latitude == nil || t.Longitude == nil {
		return models.TaxiInfo{}, errors.New("missing coordinates")
	}
	if t.PhoneNumber == "" {
		return models.TaxiInfo{}, errors.New("missing phone_number")
	}
	return models.TaxiInfo{
		ID:          id,
		CarNumber:   t.CarNumber,
		PhoneNumber: t.PhoneNumber,
		Nickname:    t.Nickname,
		Position:    models.Position{Lat: *t.Latitude, Lon: *t.Longitude},
	}, nil
}

// EncodeTaxis renders taxis the way DecodeTaxis reads them.
func EncodeTaxis(taxis []models.TaxiInfo) ([]byte, error) {
	out := make(map[string]taxiWire, len(taxis))
	for _, t := range taxis {
		lat, lon := t.Position.Lat, t.Position.Lon
		out[t.ID] = taxiWire{
			Latitude:    &lat,
			Longitude:   &lon,
			CarNumber:   t.CarNumber,
			PhoneNumber: t.PhoneNumber,
			Nickname:    t.Nickname,
		}
	}
	return json.Marshal(map[string]any{"status": types.StatusOK, "taxis": out})
}

// SigninResponse is the optional content of a successful signin.
type SigninResponse struct {
	Token string `json:"token"`
}

// DecodeSignin reads the session token of a successful signin, if present.
func DecodeSignin(body []byte) (SigninResponse, error) {
	var resp SigninResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return SigninResponse{}, &types.DecodeError{What: "signin response", Err: err}
	}
	return resp, nil
}
