package dispatch

import (
	"context"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/transport"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

type (
	Sender interface {
		Execute(ctx context.Context, method, route string, body []byte) (transport.Response, error)
	}

	RequestQueue interface {
		Enqueue(ctx context.Context, req *models.Request)
		DequeueOldest() (*models.Request, bool)
		Contains(t types.RequestType) bool
		Ready() <-chan struct{}
	}

	// CallSequencer owns the call sequence number. RequeueIfCurrent re-enqueues
	// a call request only while it is still the current call.
	CallSequencer interface {
		Sequence() int
		RequeueIfCurrent(ctx context.Context, req *models.Request) bool
	}

	Positioner interface {
		Position() (models.Position, bool)
	}

	EventHandler interface {
		OnCallAccepted(ctx context.Context, ev models.CallAccepted) error
		OnTaxiLocationChanged(ctx context.Context, ev models.TaxiLocationChanged)
		OnCallCompleted(ctx context.Context, ev models.CallCompleted)
	}
)
