package codec

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/stretchr/testify/require"
)

func TestLocationUpdateRoundTrip(t *testing.T) {
	pos := models.Position{Lat: 37123456, Lon: 127123456}

	call, err := Encode(models.NewLocationUpdateRequest(pos))
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, call.Method)
	require.Equal(t, RouteCommand, call.Route)

	req, err := DecodeRequest(call.Body)
	require.NoError(t, err)
	require.Equal(t, types.LocationUpdateRequest, req.Type)

	p, ok := req.Payload.(models.LocationUpdatePayload)
	require.True(t, ok)
	require.Equal(t, 37123456, p.Latitude)
	require.Equal(t, 127123456, p.Longitude)
}

func TestEncodeStampsDiscriminator(t *testing.T) {
	to := "0109999"
	pos := models.Position{Lat: 1, Lon: 2}
	call, err := Encode(models.NewCallTaxiRequest(2, "0101234", &to, &pos))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(call.Body, &body))
	require.Equal(t, "call-taxi", body["request_type"])
	require.Equal(t, "0101234", body["from"])
	require.Equal(t, float64(2), body["number"])
	require.Equal(t, "0109999", body["to"])
	require.Equal(t, float64(1), body["latitude"])
	require.Equal(t, float64(2), body["longitude"])
}

func TestEncodeFindTaxiUsesCapitalLongitude(t *testing.T) {
	call, err := Encode(models.NewFindTaxiRequest(models.Position{Lat: 10, Lon: 20}))
	require.NoError(t, err)
	require.JSONEq(t, `{"request_type":"FindTaxi","latitude":10,"Longitude":20}`, string(call.Body))
}

func TestEncodeRefreshCarriesOnlyDiscriminator(t *testing.T) {
	call, err := Encode(models.NewRefreshRequest())
	require.NoError(t, err)
	require.JSONEq(t, `{"request_type":"RefreshRequest"}`, string(call.Body))
}

func TestEncodeRejectsMismatchedPayload(t *testing.T) {
	req := &models.Request{Type: types.CallTaxiRequest, Payload: models.RefreshPayload{}}
	_, err := Encode(req)
	require.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = Encode(nil)
	require.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestCallTaxiRoundTripKeepsSequence(t *testing.T) {
	call, err := Encode(models.NewCallTaxiRequest(7, "0101234", nil, nil))
	require.NoError(t, err)

	req, err := DecodeRequest(call.Body)
	require.NoError(t, err)
	require.Equal(t, 7, req.Sequence)

	p := req.Payload.(models.CallTaxiPayload)
	require.Nil(t, p.To)
	require.Nil(t, p.Latitude)
}

func TestDecodeRequestErrors(t *testing.T) {
	var decErr *types.DecodeError

	_, err := DecodeRequest([]byte(`{`))
	require.ErrorAs(t, err, &decErr)

	_, err = DecodeRequest([]byte(`{"latitude":1}`))
	require.ErrorAs(t, err, &decErr)

	_, err = DecodeRequest([]byte(`{"request_type":"fly"}`))
	require.ErrorIs(t, err, types.ErrUnknownRequest)

	_, err = DecodeRequest([]byte(`{"request_type":"location-update","altitude":3}`))
	require.ErrorAs(t, err, &decErr)
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		status  int
		message string
	}{
		{"success", 200, `{"status":0}`, 0, ""},
		{"application failure", 200, `{"status":3,"message":"no taxi around"}`, 3, "no taxi around"},
		{"transport failure", -1, `{"message":"Cannot connect to server: refused"}`, -1, "Cannot connect to server: refused"},
		{"http failure with message", 503, `{"error":"maintenance"}`, 503, "maintenance"},
		{"http failure without body", 404, ``, 404, "Not Found"},
		{"malformed", 200, `{"status":`, types.StatusDecodeFailed, ""},
		{"status-less message", 200, `{"message":"hi"}`, 0, "hi"},
		{"status-less taxis", 200, `{"taxis":{}}`, 0, ""},
		{"bare ack", 200, ``, 0, ""},
		{"not an object", 200, `[1,2]`, types.StatusDecodeFailed, ""},
		{"non integer status", 200, `{"status":"zero"}`, types.StatusDecodeFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DecodeCommand(tt.code, []byte(tt.body))
			require.Equal(t, tt.status, res.Status)
			if tt.message != "" {
				require.Equal(t, tt.message, res.Message)
			} else if tt.status == types.StatusDecodeFailed {
				require.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestResultErr(t *testing.T) {
	require.NoError(t, Result{Status: 0}.Err())

	var perr *types.ProtocolError
	require.ErrorAs(t, Result{Status: 5, Message: "busy"}.Err(), &perr)
	require.Equal(t, 5, perr.Status)
	require.Equal(t, "busy", perr.Message)
}

func TestDecodePoll(t *testing.T) {
	body := `{"status":0,"message":{
		"call-taxi-reply":{"from":"0107777","number":4},
		"location-update":{"latitude":11,"longitude":22},
		"call-taxi-complete":{}
	}}`

	ev, err := DecodePoll([]byte(body))
	require.NoError(t, err)
	require.Equal(t, &models.CallAccepted{From: "0107777", Number: 4}, ev.CallAccepted)
	require.Equal(t, models.Position{Lat: 11, Lon: 22}, ev.TaxiLocation.Position)
	require.NotNil(t, ev.CallCompleted)
}

func TestDecodePollMissingSectionsAreNoEvents(t *testing.T) {
	for _, body := range []string{
		`{"status":0}`,
		`{"status":0,"message":null}`,
		`{"status":0,"message":"nothing new"}`,
		`{"status":0,"message":{}}`,
		`{}`,
		``,
	} {
		ev, err := DecodePoll([]byte(body))
		require.NoError(t, err, body)
		require.True(t, ev.Empty(), body)
	}
}

func TestDecodePollWithoutStatus(t *testing.T) {
	body := []byte(`{"message":{"call-taxi-reply":{"from":"0107777","number":2}}}`)

	res := DecodeCommand(200, body)
	require.True(t, res.OK())

	ev, err := DecodePoll(res.Body)
	require.NoError(t, err)
	require.Equal(t, &models.CallAccepted{From: "0107777", Number: 2}, ev.CallAccepted)
}

func TestDecodePollKeepsWellFormedSections(t *testing.T) {
	body := `{"message":{
		"call-taxi-reply":{"from":"0107777"},
		"location-update":{"latitude":11,"longitude":22}
	}}`

	ev, err := DecodePoll([]byte(body))
	var decErr *types.DecodeError
	require.True(t, errors.As(err, &decErr))
	require.Nil(t, ev.CallAccepted, "a reply without number must not be applied")
	require.NotNil(t, ev.TaxiLocation)
}

func TestMessagesRoundTrip(t *testing.T) {
	in := models.PollEvents{
		CallAccepted:  &models.CallAccepted{From: "0101111", Number: 9},
		CallCompleted: &models.CallCompleted{From: "0101111"},
	}
	raw, err := EncodeMessages(in)
	require.NoError(t, err)

	out, err := DecodeMessages(raw)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeTaxis(t *testing.T) {
	body := `{"status":0,"taxis":{
		"b":{"latitude":3,"longitude":4,"car_number":"B-2","phone_number":"0102","nickname":"bob"},
		"a":{"latitude":1,"longitude":2,"car_number":"A-1","phone_number":"0101","nickname":"ann"}
	}}`

	taxis, err := DecodeTaxis([]byte(body))
	require.NoError(t, err)
	require.Len(t, taxis, 2)
	require.Equal(t, "a", taxis[0].ID)
	require.Equal(t, "0101", taxis[0].PhoneNumber)
	require.Equal(t, models.Position{Lat: 3, Lon: 4}, taxis[1].Position)

	_, err = DecodeTaxis([]byte(`{"taxis":{"x":{"phone_number":"1"}}}`))
	var decErr *types.DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestEncodeTaxisRoundTrip(t *testing.T) {
	in := []models.TaxiInfo{{ID: "t1", CarNumber: "C", PhoneNumber: "0103", Nickname: "n", Position: models.Position{Lat: 5, Lon: 6}}}
	body, err := EncodeTaxis(in)
	require.NoError(t, err)

	out, err := DecodeTaxis(body)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSignin(t *testing.T) {
	call, err := EncodeSignin("ann", "secret")
	require.NoError(t, err)
	require.Equal(t, RouteSignin, call.Route)
	require.JSONEq(t, `{"nick_name":"ann","password":"secret"}`, string(call.Body))

	resp, err := DecodeSignin([]byte(`{"status":0,"token":"abc"}`))
	require.NoError(t, err)
	require.Equal(t, "abc", resp.Token)

	resp, err = DecodeSignin(nil)
	require.NoError(t, err)
	require.Empty(t, resp.Token)
}
