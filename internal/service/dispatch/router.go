package dispatch

import (
	"context"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

// Router applies pushed events to the call machine. Refresh polls and the
// websocket push channel share one router.
type Router struct {
	handler EventHandler
	log     logger.Logger
}

func NewRouter(handler EventHandler, log logger.Logger) *Router {
	return &Router{
		handler: handler,
		log:     log,
	}
}

// Route delivers events in the fixed order call accepted, taxi location
// changed, call completed. It returns the sequence violation of the reply, if any.
func (r *Router) Route(ctx context.Context, events models.PollEvents) error {
	if events.Empty() {
		return nil
	}

	var err error
	if ev := events.CallAccepted; ev != nil {
		err = r.handler.OnCallAccepted(ctx, *ev)
	}
	if ev := events.TaxiLocation; ev != nil {
		r.handler.OnTaxiLocationChanged(ctx, *ev)
	}
	if ev := events.CallCompleted; ev != nil {
		r.handler.OnCallCompleted(ctx, *ev)
	}
	return err
}
