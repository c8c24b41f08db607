// Package presenter renders passenger notifications for the terminal.
package presenter

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

// Console writes one line per notification to w and mirrors it to the log.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	log logger.Logger
}

func NewConsole(w io.Writer, log logger.Logger) *Console {
	return &Console{
		w:   w,
		log: log,
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *Console) ShowUser(ctx context.Context, pos models.Position) {
	c.printf("you are at %s", pos)
	c.log.Debug(ctx, "user shown", "position", pos.String())
}

func (c *Console) ShowNearbyTaxis(ctx context.Context, taxis []models.TaxiInfo) {
	if len(taxis) == 0 {
		c.printf("no taxis around")
		return
	}

	c.printf("%d taxi(s) around:", len(taxis))
	for _, t := range taxis {
		c.printf("  %-12s %-10s %-10s at %s", t.PhoneNumber, t.CarNumber, t.Nickname, t.Position)
	}
	c.log.Debug(ctx, "nearby taxis shown", "count", len(taxis))
}

func (c *Console) ShowAssignedTaxi(ctx context.Context, taxi models.TaxiInfo) {
	c.printf("your taxi %s (%s) is at %s", taxi.CarNumber, taxi.PhoneNumber, taxi.Position)
	c.log.Debug(ctx, "assigned taxi shown", "phone", taxi.PhoneNumber)
}

func (c *Console) CallAccepted(ctx context.Context, taxi models.TaxiInfo) {
	c.printf("taxi %s (%s, %s) accepted your call", taxi.CarNumber, taxi.PhoneNumber, taxi.Nickname)
	c.log.Info(ctx, "call accepted", "phone", taxi.PhoneNumber)
}

func (c *Console) TaxiMoved(ctx context.Context, taxi models.TaxiInfo) {
	c.printf("taxi %s moved to %s", taxi.CarNumber, taxi.Position)
	c.log.Debug(ctx, "taxi moved", "position", taxi.Position.String())
}

func (c *Console) CallCompleted(ctx context.Context, taxi models.TaxiInfo) {
	c.printf("ride with %s completed", taxi.CarNumber)
	c.log.Info(ctx, "call completed", "phone", taxi.PhoneNumber)
}
