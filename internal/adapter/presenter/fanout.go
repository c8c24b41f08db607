package presenter

import (
	"context"

	"github.com/Temutjin2k/ride-hail-client/internal/client"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/service/calltaxi"
)

// Fanout is a Presenter that also forwards call notifications to extra notifiers.
type Fanout struct {
	client.Presenter
	extra []calltaxi.Notifier
}

func NewFanout(p client.Presenter, extra ...calltaxi.Notifier) *Fanout {
	return &Fanout{
		Presenter: p,
		extra:     extra,
	}
}

// Add registers another notifier.
func (f *Fanout) Add(n calltaxi.Notifier) {
	f.extra = append(f.extra, n)
}

func (f *Fanout) CallAccepted(ctx context.Context, taxi models.TaxiInfo) {
	f.Presenter.CallAccepted(ctx, taxi)
	for _, n := range f.extra {
		n.CallAccepted(ctx, taxi)
	}
}

func (f *Fanout) TaxiMoved(ctx context.Context, taxi models.TaxiInfo) {
	f.Presenter.TaxiMoved(ctx, taxi)
	for _, n := range f.extra {
		n.TaxiMoved(ctx, taxi)
	}
}

func (f *Fanout) CallCompleted(ctx context.Context, taxi models.TaxiInfo) {
	f.Presenter.CallCompleted(ctx, taxi)
	for _, n := range f.extra {
		n.CallCompleted(ctx, taxi)
	}
}
