package mockdispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	"github.com/stretchr/testify/require"
)

var center = models.Position{Lat: 37566500, Lon: 126978000}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T) (*Service, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := New(Options{
		AcceptDelay:   2 * time.Second,
		CompleteDelay: 10 * time.Second,
		TaxiSpeed:     100,
		Secret:        "test-secret",
	}, logger.NewNop())
	s.now = c.Now
	return s, c
}

func refresh(t *testing.T, s *Service, user string) models.PollEvents {
	t.Helper()
	r := s.Handle(context.Background(), user, models.NewRefreshRequest())
	require.Equal(t, types.StatusOK, r.Status)
	require.NotNil(t, r.Events)
	return *r.Events
}

func TestSignIn(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.AddAccount("ann", "0101234", "secret"))
	require.ErrorIs(t, s.AddAccount("ann", "0101234", "other"), ErrAccountExists)

	_, err := s.SignIn(ctx, "ann", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.SignIn(ctx, "bob", "secret")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	s.now = time.Now
	token, err := s.SignIn(ctx, "ann", "secret")
	require.NoError(t, err)

	user, err := s.Authenticate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "ann", user)

	_, err = s.Authenticate(ctx, token+"x")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("k", time.Minute)
	token, err := issuer.Issue("ann", "010", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCallLifecycle(t *testing.T) {
	s, c := newService(t)
	ctx := context.Background()
	taxi := s.AddTaxi(models.TaxiInfo{ID: "t1", CarNumber: "12A3456", PhoneNumber: "0107777", Position: center})

	near := models.Position{Lat: center.Lat + 500, Lon: center.Lon} // about 55 m
	r := s.Handle(ctx, "ann", models.NewCallTaxiRequest(2, "0101234", nil, &near))
	require.Equal(t, types.StatusOK, r.Status)

	s.Tick(ctx)
	require.True(t, refresh(t, s, "ann").Empty(), "accept delay not elapsed")

	c.Advance(2 * time.Second)
	s.Tick(ctx)
	ev := refresh(t, s, "ann")
	require.Equal(t, &models.CallAccepted{From: taxi.PhoneNumber, Number: 2}, ev.CallAccepted)
	require.Empty(t, s.findTaxis(center), "busy taxis are not offered")

	c.Advance(time.Second)
	s.Tick(ctx)
	ev = refresh(t, s, "ann")
	require.NotNil(t, ev.TaxiLocation)
	require.Equal(t, near, ev.TaxiLocation.Position, "within one step of the passenger")
	require.Nil(t, ev.CallCompleted)

	c.Advance(10 * time.Second)
	s.Tick(ctx)
	ev = refresh(t, s, "ann")
	require.NotNil(t, ev.CallCompleted)
	require.Len(t, s.findTaxis(center), 1)
}

func TestCancelDropsCall(t *testing.T) {
	s, c := newService(t)
	ctx := context.Background()
	s.AddTaxi(models.TaxiInfo{ID: "t1", PhoneNumber: "0107777", Position: center})

	s.Handle(ctx, "ann", models.NewCallTaxiRequest(2, "0101234", nil, nil))

	r := s.Handle(ctx, "ann", models.NewCancelCallRequest(1, "0101234"))
	require.Equal(t, types.StatusOK, r.Status, "cancel of an unknown number is acknowledged")

	s.Handle(ctx, "ann", models.NewCancelCallRequest(2, "0101234"))
	c.Advance(time.Minute)
	s.Tick(ctx)
	require.True(t, refresh(t, s, "ann").Empty())
}

func TestResentCallIsIdempotent(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	first := s.Handle(ctx, "ann", models.NewCallTaxiRequest(2, "0101234", nil, nil))
	again := s.Handle(ctx, "ann", models.NewCallTaxiRequest(2, "0101234", nil, nil))
	require.Equal(t, types.StatusOK, first.Status)
	require.Equal(t, types.StatusOK, again.Status)
}

func TestCallUnknownTaxi(t *testing.T) {
	s, _ := newService(t)
	to := "0100000"

	r := s.Handle(context.Background(), "ann", models.NewCallTaxiRequest(2, "0101234", &to, nil))
	require.Equal(t, StatusUnknownTaxi, r.Status)
	require.NotEmpty(t, r.Message)
}

func TestFindTaxisWithinRadius(t *testing.T) {
	s, _ := newService(t)
	s.opts.SearchRadius = 1000

	s.AddTaxi(models.TaxiInfo{ID: "near", PhoneNumber: "01", Position: center})
	s.AddTaxi(models.TaxiInfo{ID: "far", PhoneNumber: "02", Position: models.Position{Lat: center.Lat + 100_000, Lon: center.Lon}})

	r := s.Handle(context.Background(), "", models.NewFindTaxiRequest(center))
	require.Equal(t, types.StatusOK, r.Status)
	require.Len(t, r.Taxis, 1)
	require.Equal(t, "near", r.Taxis[0].ID)
}

type fakePublisher struct {
	mu        sync.Mutex
	connected bool
	fail      bool
	got       []models.PollEvents
}

func (f *fakePublisher) Connected(string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePublisher) Publish(_ context.Context, _ string, events models.PollEvents) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.got = append(f.got, events)
	return nil
}

func TestTickPublishesToConnectedPassenger(t *testing.T) {
	s, c := newService(t)
	ctx := context.Background()
	pub := &fakePublisher{connected: true}
	s.SetPublisher(pub)
	s.AddTaxi(models.TaxiInfo{ID: "t1", PhoneNumber: "0107777", Position: center})

	s.Handle(ctx, "ann", models.NewCallTaxiRequest(2, "0101234", nil, nil))
	c.Advance(2 * time.Second)
	s.Tick(ctx)

	require.Len(t, pub.got, 1)
	require.NotNil(t, pub.got[0].CallAccepted)
	require.True(t, refresh(t, s, "ann").Empty(), "published events are not polled again")
}

func TestFailedPublishKeepsEvents(t *testing.T) {
	s, c := newService(t)
	ctx := context.Background()
	s.SetPublisher(&fakePublisher{connected: true, fail: true})
	s.AddTaxi(models.TaxiInfo{ID: "t1", PhoneNumber: "0107777", Position: center})

	s.Handle(ctx, "ann", models.NewCallTaxiRequest(2, "0101234", nil, nil))
	c.Advance(2 * time.Second)
	s.Tick(ctx)

	require.NotNil(t, refresh(t, s, "ann").CallAccepted)
}

func TestStepToward(t *testing.T) {
	from := models.Position{Lat: 0, Lon: 0}
	to := models.Position{Lat: 100_000, Lon: 0} // about 11 km

	p := StepToward(from, to, 1000)
	require.InDelta(t, 9000, p.Lat, 100)
	require.Equal(t, to, StepToward(p, to, 1e9))
}

func TestSeedFleet(t *testing.T) {
	s, _ := newService(t)
	taxis := s.SeedFleet(center, 5, 1000)
	require.Len(t, taxis, 5)
	for _, taxi := range taxis {
		require.NotEmpty(t, taxi.ID)
		require.InDelta(t, center.Lat, taxi.Position.Lat, 1000)
	}
	require.Len(t, s.Taxis(), 5)
}
