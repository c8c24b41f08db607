package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/dispatch"
	"github.com/Temutjin2k/ride-hail-client/internal/service/mockdispatch"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
	"github.com/stretchr/testify/require"
)

const (
	phone     = "0101234"
	taxiPhone = "0109999"
)

type recorder struct {
	mu        sync.Mutex
	user      []models.Position
	nearby    [][]models.TaxiInfo
	assigned  []models.TaxiInfo
	accepted  []models.TaxiInfo
	moved     []models.TaxiInfo
	completed []models.TaxiInfo
}

func (r *recorder) ShowUser(_ context.Context, pos models.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = append(r.user, pos)
}

func (r *recorder) ShowNearbyTaxis(_ context.Context, taxis []models.TaxiInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nearby = append(r.nearby, taxis)
}

func (r *recorder) ShowAssignedTaxi(_ context.Context, taxi models.TaxiInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assigned = append(r.assigned, taxi)
}

func (r *recorder) CallAccepted(_ context.Context, taxi models.TaxiInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted = append(r.accepted, taxi)
}

func (r *recorder) TaxiMoved(_ context.Context, taxi models.TaxiInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moved = append(r.moved, taxi)
}

func (r *recorder) CallCompleted(_ context.Context, taxi models.TaxiInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, taxi)
}

func (r *recorder) counts() (accepted, completed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accepted), len(r.completed)
}

type fixture struct {
	client  *Client
	service *mockdispatch.Service
	view    *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.NewNop()
	service := mockdispatch.New(mockdispatch.Options{
		Secret:        "test-secret",
		CompleteDelay: time.Hour,
	}, log)
	require.NoError(t, service.AddAccount("ann", phone, "pw"))
	service.AddTaxi(models.TaxiInfo{ID: "t1", PhoneNumber: taxiPhone, CarNumber: "A-1", Position: models.Position{Lat: 1000, Lon: 1000}})

	hub := ws.NewConnHub(server.DispatchServiceName, log)
	api, err := server.NewDispatch(
		config.MockConfig{Port: "0", BasePath: "/passenger", RequireAuth: true},
		service, service, handler.NewEvents(hub, log), log,
	)
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())

	view := &recorder{}
	c, err := New(Options{
		From:           phone,
		BaseURL:        srv.URL + "/passenger",
		RequestTimeout: time.Second,
		UpdateDistance: 5,
		Dispatch: dispatch.Options{
			PollInterval:    20 * time.Millisecond,
			RetryDelay:      10 * time.Millisecond,
			ShutdownTimeout: time.Second,
		},
	}, view, log)
	require.NoError(t, err)

	t.Cleanup(func() {
		if c.LoggedIn() {
			_ = c.Logout(context.Background())
		}
		hub.Close()
		srv.Close()
	})

	return &fixture{client: c, service: service, view: view}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	msg, err := f.client.Login(context.Background(), "ann", "pw")
	require.NoError(t, err)
	require.Equal(t, types.LoginSuccess, msg)
	require.NotEmpty(t, f.client.Token())
}

func TestNewRequiresPhone(t *testing.T) {
	_, err := New(Options{BaseURL: "http://127.0.0.1"}, &recorder{}, logger.NewNop())
	require.Error(t, err)
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t)

	msg, err := f.client.Login(context.Background(), "ann", "wrong")
	require.ErrorIs(t, err, types.ErrLoginFailed)
	require.NotEmpty(t, msg)
	require.NotEqual(t, types.LoginSuccess, msg)
	require.False(t, f.client.LoggedIn())
}

func TestLoginTwice(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.client.Login(context.Background(), "ann", "pw")
	require.ErrorIs(t, err, types.ErrAlreadyLoggedIn)
}

func TestOperationsRequireLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.RequestCall(ctx, nil)
	require.ErrorIs(t, err, types.ErrNotLoggedIn)
	require.ErrorIs(t, f.client.CancelCall(ctx), types.ErrNotLoggedIn)
	_, err = f.client.FindNearbyTaxis(ctx)
	require.ErrorIs(t, err, types.ErrNotLoggedIn)
	require.ErrorIs(t, f.client.Logout(ctx), types.ErrNotLoggedIn)
}

func TestLocateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.client.LocateUser(ctx), types.ErrPositionUnknown)
	require.ErrorIs(t, f.client.LocateTaxi(ctx), types.ErrNoAssignedTaxi)

	pos := models.Position{Lat: 10, Lon: 20}
	f.client.SetUserPosition(ctx, pos)
	require.NoError(t, f.client.LocateUser(ctx))
	require.Equal(t, []models.Position{pos}, f.view.user)
}

func TestFindNearbyTaxisNeedsPosition(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.client.FindNearbyTaxis(context.Background())
	require.ErrorIs(t, err, types.ErrPositionUnknown)
}

func TestFindNearbyTaxis(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	f.client.SetUserPosition(ctx, models.Position{Lat: 0, Lon: 0})
	taxis, err := f.client.FindNearbyTaxis(ctx)
	require.NoError(t, err)
	require.Len(t, taxis, 1)
	require.Equal(t, taxiPhone, taxis[0].PhoneNumber)
	require.Equal(t, taxis, f.client.NearbyTaxis())
	require.Len(t, f.view.nearby, 1)
}

func TestCallLifecycle(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	f.client.SetUserPosition(ctx, models.Position{Lat: 0, Lon: 0})
	_, err := f.client.FindNearbyTaxis(ctx)
	require.NoError(t, err)

	seq, err := f.client.RequestCall(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, types.CallRequesting, f.client.State())

	// ticks before the call reached the server do nothing
	require.Eventually(t, func() bool {
		f.service.Tick(ctx)
		accepted, _ := f.view.counts()
		return accepted == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.True(t, f.client.IsCallActive())
	taxi, ok := f.client.CurrentAssignment()
	require.True(t, ok)
	require.Equal(t, taxiPhone, taxi.PhoneNumber)
	require.NoError(t, f.client.LocateTaxi(ctx))

	_, err = f.client.RequestCall(ctx, nil)
	require.ErrorIs(t, err, types.ErrAlreadyHaveTaxi)

	require.NoError(t, f.client.CancelCall(ctx))
	require.Equal(t, types.CallIdle, f.client.State())
	require.Greater(t, f.client.machine.Sequence(), seq)
}

func TestLogoutDropsState(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	f.client.SetUserPosition(ctx, models.Position{Lat: 0, Lon: 0})
	_, err := f.client.FindNearbyTaxis(ctx)
	require.NoError(t, err)
	_, err = f.client.RequestCall(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, f.client.Logout(ctx))
	require.False(t, f.client.LoggedIn())
	require.Equal(t, types.CallIdle, f.client.State())
	require.Zero(t, f.client.PendingRequests())
	require.Empty(t, f.client.NearbyTaxis())
	require.Empty(t, f.client.Token())

	// a new login starts a fresh worker
	f.login(t)
	require.True(t, f.client.LoggedIn())
}

func TestPositionMovesEnqueueLocationUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// logged out moves are only recorded
	f.client.SetUserPosition(ctx, models.Position{Lat: 0, Lon: 0})
	f.client.SetUserPosition(ctx, models.Position{Lat: 1000, Lon: 0})
	require.Zero(t, f.client.PendingRequests())

	pos, ok := f.client.Position()
	require.True(t, ok)
	require.Equal(t, models.Position{Lat: 1000, Lon: 0}, pos)
}

func TestStatuslessServerAnswers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/signin") {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		req, err := codec.DecodeRequest(body)
		if err == nil && req.Type == types.FindTaxiRequest {
			_, _ = w.Write([]byte(`{"taxis":{"t2":{"latitude":2000,"longitude":3000,"car_number":"B-2","phone_number":"0105555","nickname":"lee"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":{}}`))
	}))
	t.Cleanup(srv.Close)

	view := &recorder{}
	c, err := New(Options{
		From:           phone,
		BaseURL:        srv.URL + "/passenger",
		RequestTimeout: time.Second,
		Dispatch: dispatch.Options{
			PollInterval:    20 * time.Millisecond,
			ShutdownTimeout: time.Second,
		},
	}, view, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	msg, err := c.Login(ctx, "ann", "pw")
	require.NoError(t, err)
	require.Equal(t, types.LoginSuccess, msg)
	t.Cleanup(func() { _ = c.Logout(context.Background()) })

	c.SetUserPosition(ctx, models.Position{Lat: 1000, Lon: 1000})

	taxis, err := c.FindNearbyTaxis(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.TaxiInfo{{
		ID:          "t2",
		CarNumber:   "B-2",
		PhoneNumber: "0105555",
		Nickname:    "lee",
		Position:    models.Position{Lat: 2000, Lon: 3000},
	}}, taxis)
}
