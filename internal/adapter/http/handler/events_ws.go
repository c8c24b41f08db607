package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/mockdispatch"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
)

// Events keeps one websocket per passenger and pushes the same "message"
// object a refresh poll would return.
type Events struct {
	connections *ws.ConnectionHub
	l           logger.Logger
}

func NewEvents(connections *ws.ConnectionHub, l logger.Logger) *Events {
	return &Events{
		connections: connections,
		l:           l,
	}
}

// HandleWS upgrades the request and holds the connection until the peer leaves.
func (h *Events) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionPushListen)

	user := models.PassengerFromContext(ctx)
	if user == "" {
		user = mockdispatch.Anonymous
	}

	raw, err := ws.Upgrade(w, r)
	if err != nil {
		// the upgrader already answered
		h.l.Warn(ctx, "websocket upgrade failed", "reason", err.Error())
		return
	}

	conn := ws.NewConn(context.WithoutCancel(ctx), user, raw)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register websocket", err)
		_ = conn.Close()
		return
	}
	defer h.connections.Remove(conn)

	h.l.Info(ctx, "passenger connected for push")

	// frames from the passenger carry nothing; reading keeps control frames flowing
	err = conn.Listen(func([]byte) error { return nil })
	h.l.Info(ctx, "passenger push connection closed", "reason", err.Error())
}

// Connected reports whether the passenger has a live push connection.
func (h *Events) Connected(passenger string) bool {
	_, err := h.connections.GetConn(passenger)
	return err == nil
}

// Publish sends events to the passenger.
func (h *Events) Publish(ctx context.Context, passenger string, events models.PollEvents) error {
	const op = "Events.Publish"

	msg, err := codec.EncodeMessages(events)
	if err != nil {
		return wrap.Error(ctx, err)
	}

	if err := h.connections.SendTo(passenger, envelope{"status": types.StatusOK, "message": msg}); err != nil {
		return wrap.Error(ctx, &types.TransportError{Op: op, Err: err})
	}
	return nil
}
