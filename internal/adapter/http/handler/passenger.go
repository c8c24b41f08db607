package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/mockdispatch"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/validator"
)

type DispatchService interface {
	SignIn(ctx context.Context, nickname, password string) (string, error)
	Handle(ctx context.Context, user string, req *models.Request) mockdispatch.Reply
}

// Passenger serves the passenger protocol: commands and polls on the base
// route, signin on base/signin.
type Passenger struct {
	service DispatchService
	l       logger.Logger
}

func NewPassenger(service DispatchService, l logger.Logger) *Passenger {
	return &Passenger{
		service: service,
		l:       l,
	}
}

func (h *Passenger) Signin(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionLogin)

	req := &codec.SigninRequest{}
	if err := readJSON(w, r, req); err != nil {
		h.l.Warn(ctx, "failed to read signin request", "reason", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	v.Check(req.Nickname != "", "nick_name", "must be provided")
	v.Check(req.Password != "", "password", "must be provided")
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	token, err := h.service.SignIn(ctx, req.Nickname, req.Password)
	if err != nil {
		if IsOneOf(err, mockdispatch.ErrInvalidCredentials) {
			applicationFailure(w, mockdispatch.StatusRejected, err.Error())
			return
		}
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to sign in", err)
		internalErrorResponse(w, "signin failed")
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": types.StatusOK, "token": token}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

// Command decodes one request_type envelope and answers it.
func (h *Passenger) Command(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readBody(w, r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	req, err := codec.DecodeRequest(body)
	if err != nil {
		h.l.Warn(ctx, "undecodable passenger request", "reason", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	reply := h.service.Handle(ctx, models.PassengerFromContext(ctx), req)

	out, err := render(req.Type, reply)
	if err != nil {
		h.l.Error(ctx, "failed to render reply", err, "request_type", req.Type.String())
		internalErrorResponse(w, "cannot render reply")
		return
	}

	if err := writeRaw(w, http.StatusOK, out, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
	}
}

func render(t types.RequestType, reply mockdispatch.Reply) ([]byte, error) {
	if reply.Status != types.StatusOK {
		return json.Marshal(envelope{"status": reply.Status, "message": reply.Message})
	}

	switch t {
	case types.FindTaxiRequest:
		return codec.EncodeTaxis(reply.Taxis)
	case types.RefreshRequest:
		var events models.PollEvents
		if reply.Events != nil {
			events = *reply.Events
		}
		msg, err := codec.EncodeMessages(events)
		if err != nil {
			return nil, err
		}
		return json.Marshal(envelope{"status": types.StatusOK, "message": msg})
	default:
		return json.Marshal(envelope{"status": types.StatusOK})
	}
}
