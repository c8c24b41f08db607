package calltaxi

import (
	"context"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

type (
	// RequestQueue is called with the call lock held. Lock order is call lock
	// then queue lock; the queue must never call back into the machine.
	RequestQueue interface {
		Enqueue(ctx context.Context, req *models.Request)
		RemoveByType(t types.RequestType) bool
	}

	// TaxiDirectory resolves a taxi by phone number among the taxis last shown to
	// the passenger. Implementations must be read-only and non-blocking: they are
	// called with the call lock held.
	TaxiDirectory interface {
		FindByPhone(phone string) (models.TaxiInfo, bool)
	}

	// Identity is read before the call lock is taken.
	Identity interface {
		From() string
		Position() (models.Position, bool)
	}

	// Notifier receives call lifecycle notifications. Called without locks held.
	Notifier interface {
		CallAccepted(ctx context.Context, taxi models.TaxiInfo)
		TaxiMoved(ctx context.Context, taxi models.TaxiInfo)
		CallCompleted(ctx context.Context, taxi models.TaxiInfo)
	}
)
