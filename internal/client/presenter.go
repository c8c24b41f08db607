package client

import (
	"context"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/service/calltaxi"
)

// Presenter is the UI side: map overlays and notifications. Methods are called
// from caller goroutines and from the dispatch worker, never with locks held.
type Presenter interface {
	calltaxi.Notifier

	ShowUser(ctx context.Context, pos models.Position)
	ShowNearbyTaxis(ctx context.Context, taxis []models.TaxiInfo)
	ShowAssignedTaxi(ctx context.Context, taxi models.TaxiInfo)
}

// PushListener receives server pushes out of band while the passenger is logged in.
// Listen blocks until ctx is done.
type PushListener interface {
	Listen(ctx context.Context) error
}
