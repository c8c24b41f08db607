// Package calltaxi tracks the lifecycle of the current taxi call and validates
// server pushes against the client-generated sequence number.
package calltaxi

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

// InitialSequence is the counter value of a fresh machine.
const InitialSequence = 1

// Machine is the call session: IDLE -> REQUESTING -> ASSIGNED -> IDLE.
// The sequence counter only grows; a reply numbered below it is stale.
type Machine struct {
	mu       sync.Mutex
	state    types.CallState
	sequence int
	taxi     *models.TaxiInfo

	queue     RequestQueue
	directory TaxiDirectory
	identity  Identity
	notifier  Notifier
	log       logger.Logger
}

func New(queue RequestQueue, directory TaxiDirectory, identity Identity, notifier Notifier, log logger.Logger) *Machine {
	metrics.CallStateGauge.Set(float64(types.CallIdle))
	return &Machine{
		state:     types.CallIdle,
		sequence:  InitialSequence,
		queue:     queue,
		directory: directory,
		identity:  identity,
		notifier:  notifier,
		log:       log,
	}
}

func (m *Machine) setState(s types.CallState) {
	m.state = s
	metrics.CallStateGauge.Set(float64(s))
}

// RequestCall starts a new call, optionally to a specific taxi phone number, and
// returns the sequence number the call request carries.
func (m *Machine) RequestCall(ctx context.Context, to *string) (int, error) {
	ctx = wrap.WithAction(ctx, "request_call")

	from := m.identity.From()
	var pos *models.Position
	if p, ok := m.identity.Position(); ok {
		pos = &p
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case types.CallAssigned:
		return 0, wrap.Error(ctx, types.ErrAlreadyHaveTaxi)
	case types.CallRequesting:
		return 0, wrap.Error(ctx, types.ErrCallInProgress)
	}

	m.sequence++
	m.setState(types.CallRequesting)

	req := models.NewCallTaxiRequest(m.sequence, from, to, pos)

	// Enqueued under the call lock so a concurrent cancel sees it queued.
	m.queue.Enqueue(ctx, req)

	m.log.Info(wrap.WithRequest(ctx, req.Type.String(), m.sequence), "taxi call requested")
	return m.sequence, nil
}

// CancelCall abandons the current call. A call request that never left the
// queue is simply removed; otherwise a cancel command is enqueued. Either way the
// counter moves on, invalidating in-flight replies, and the state is IDLE.
func (m *Machine) CancelCall(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "cancel_call")

	from := m.identity.From()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == types.CallIdle {
		return wrap.Error(ctx, types.ErrNoActiveCall)
	}

	cancelled := m.sequence
	if m.queue.RemoveByType(types.CallTaxiRequest) {
		m.log.Info(ctx, "unsent taxi call removed from queue", "sequence", cancelled)
	} else {
		m.queue.Enqueue(ctx, models.NewCancelCallRequest(cancelled, from))
		m.log.Info(ctx, "cancel command enqueued", "sequence", cancelled)
	}

	m.sequence++
	m.taxi = nil
	m.setState(types.CallIdle)

	return nil
}

// RequeueIfCurrent puts a failed call request back in the queue when it still
// belongs to the call being requested. The check and the enqueue happen under
// the call lock, so a concurrent CancelCall either removes the requeued call or
// makes it stale first.
func (m *Machine) RequeueIfCurrent(ctx context.Context, req *models.Request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Sequence != m.sequence || m.state != types.CallRequesting {
		return false
	}
	m.queue.Enqueue(ctx, req)
	return true
}

// OnCallAccepted applies a call-taxi-reply. It returns a *types.SequenceViolation
// when the reply is numbered above the current counter; every other outcome is
// logged and returns nil.
func (m *Machine) OnCallAccepted(ctx context.Context, ev models.CallAccepted) error {
	ctx = wrap.WithRequest(wrap.WithAction(ctx, types.ActionCallAccepted), types.EventCallTaxiReply, ev.Number)

	m.mu.Lock()

	if ev.Number < m.sequence {
		current := m.sequence
		m.mu.Unlock()
		metrics.RecordEvent(types.EventCallTaxiReply, "stale")
		m.log.Warn(ctx, "ignore stale call taxi reply", "current_sequence", current)
		return nil
	}

	if ev.Number > m.sequence {
		violation := &types.SequenceViolation{Replied: ev.Number, Current: m.sequence}
		m.mu.Unlock()
		metrics.RecordEvent(types.EventCallTaxiReply, "violation")
		m.log.Error(wrap.WithAction(ctx, types.ActionSequenceViolation), "call taxi reply from the future", violation)
		return violation
	}

	if m.state != types.CallRequesting {
		state := m.state
		m.mu.Unlock()
		metrics.RecordEvent(types.EventCallTaxiReply, "ignored")
		m.log.Warn(ctx, "call taxi reply while not requesting", "state", state.String())
		return nil
	}

	taxi, ok := m.directory.FindByPhone(ev.From)
	if !ok {
		m.mu.Unlock()
		metrics.RecordEvent(types.EventCallTaxiReply, "ignored")
		m.log.Warn(ctx, "accepting taxi is not among the nearby taxis", "from", ev.From)
		return nil
	}

	m.taxi = &taxi
	m.setState(types.CallAssigned)
	m.mu.Unlock()

	metrics.RecordEvent(types.EventCallTaxiReply, "applied")
	m.log.Info(ctx, "taxi assigned", "car_number", taxi.CarNumber, "phone_number", taxi.PhoneNumber)
	m.notifier.CallAccepted(ctx, taxi)

	return nil
}

// OnTaxiLocationChanged moves the assigned taxi.
func (m *Machine) OnTaxiLocationChanged(ctx context.Context, ev models.TaxiLocationChanged) {
	ctx = wrap.WithAction(ctx, types.ActionTaxiLocation)

	m.mu.Lock()
	if m.state != types.CallAssigned || m.taxi == nil {
		m.mu.Unlock()
		metrics.RecordEvent(types.EventLocationUpdate, "ignored")
		m.log.Warn(ctx, "taxi location update without an assigned taxi")
		return
	}
	m.taxi.Position = ev.Position
	taxi := *m.taxi
	m.mu.Unlock()

	metrics.RecordEvent(types.EventLocationUpdate, "applied")
	m.log.Debug(ctx, "assigned taxi moved", "position", ev.Position.String())
	m.notifier.TaxiMoved(ctx, taxi)
}

// OnCallCompleted finishes the ride of the assigned taxi.
func (m *Machine) OnCallCompleted(ctx context.Context, ev models.CallCompleted) {
	ctx = wrap.WithAction(ctx, types.ActionCallCompleted)

	m.mu.Lock()
	if m.state != types.CallAssigned || m.taxi == nil {
		m.mu.Unlock()
		metrics.RecordEvent(types.EventCallTaxiComplete, "ignored")
		m.log.Warn(ctx, "call completed without an assigned taxi")
		return
	}
	taxi := *m.taxi
	m.taxi = nil
	m.setState(types.CallIdle)
	m.mu.Unlock()

	metrics.RecordEvent(types.EventCallTaxiComplete, "applied")
	m.log.Info(ctx, "ride completed", "car_number", taxi.CarNumber)
	m.notifier.CallCompleted(ctx, taxi)
}

func (m *Machine) State() types.CallState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Sequence returns the current call sequence number.
func (m *Machine) Sequence() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequence
}

// IsActive reports whether a taxi is assigned.
func (m *Machine) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == types.CallAssigned
}

// Assignment returns the assigned taxi.
func (m *Machine) Assignment() (models.TaxiInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.taxi == nil {
		return models.TaxiInfo{}, false
	}
	return *m.taxi, true
}

// Reset clears the call session at logout. The counter is kept so it never goes back.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.taxi = nil
	m.setState(types.CallIdle)
}
