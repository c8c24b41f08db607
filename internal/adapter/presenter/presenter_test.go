package presenter

import (
	"bytes"
	"context"
	"testing"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	accepted, moved, completed int
}

func (n *countingNotifier) CallAccepted(context.Context, models.TaxiInfo)  { n.accepted++ }
func (n *countingNotifier) TaxiMoved(context.Context, models.TaxiInfo)     { n.moved++ }
func (n *countingNotifier) CallCompleted(context.Context, models.TaxiInfo) { n.completed++ }

func TestConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, logger.NewNop())
	ctx := context.Background()

	c.ShowNearbyTaxis(ctx, nil)
	c.ShowNearbyTaxis(ctx, []models.TaxiInfo{{PhoneNumber: "0109999", CarNumber: "A-1", Nickname: "bob"}})
	c.CallAccepted(ctx, models.TaxiInfo{PhoneNumber: "0109999", CarNumber: "A-1", Nickname: "bob"})

	out := buf.String()
	require.Contains(t, out, "no taxis around")
	require.Contains(t, out, "1 taxi(s) around:")
	require.Contains(t, out, "0109999")
	require.Contains(t, out, "taxi A-1 (0109999, bob) accepted your call")
}

func TestFanoutForwardsNotifications(t *testing.T) {
	var buf bytes.Buffer
	extra := &countingNotifier{}
	f := NewFanout(NewConsole(&buf, logger.NewNop()))
	f.Add(extra)

	ctx := context.Background()
	taxi := models.TaxiInfo{PhoneNumber: "0109999", CarNumber: "A-1"}

	f.CallAccepted(ctx, taxi)
	f.TaxiMoved(ctx, taxi)
	f.TaxiMoved(ctx, taxi)
	f.CallCompleted(ctx, taxi)

	require.Equal(t, 1, extra.accepted)
	require.Equal(t, 2, extra.moved)
	require.Equal(t, 1, extra.completed)
	require.Contains(t, buf.String(), "ride with A-1 completed")
}
