// Package client is the passenger-facing API of the request engine. It owns the
// queue, the call machine, the session and the dispatch worker.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/transport"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/calltaxi"
	"github.com/Temutjin2k/ride-hail-client/internal/service/dispatch"
	"github.com/Temutjin2k/ride-hail-client/internal/service/nearby"
	"github.com/Temutjin2k/ride-hail-client/internal/service/queue"
	"github.com/Temutjin2k/ride-hail-client/internal/service/session"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

type Options struct {
	// From is the passenger phone number sent with calls and cancels.
	From string

	BaseURL        string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	HTTPClient     *http.Client

	// UpdateDistance is the move in metres that triggers a location update.
	UpdateDistance float64

	Dispatch dispatch.Options
}

type Client struct {
	session   *session.Session
	queue     *queue.Queue
	taxis     *nearby.Set
	machine   *calltaxi.Machine
	transport *transport.HTTP
	router    *dispatch.Router
	loop      *dispatch.Loop
	presenter Presenter
	log       logger.Logger

	mu       sync.Mutex // serializes login and logout
	loggedIn atomic.Bool
	push     []PushListener
	stopPush context.CancelFunc
	pushDone sync.WaitGroup
}

func New(opts Options, presenter Presenter, log logger.Logger) (*Client, error) {
	const op = "client.New"

	if opts.From == "" {
		return nil, fmt.Errorf("%s: passenger phone number is required", op)
	}

	s := session.New(opts.From, opts.UpdateDistance)

	tr, err := transport.New(transport.Options{
		BaseURL:        opts.BaseURL,
		RequestTimeout: opts.RequestTimeout,
		RateLimit:      opts.RateLimit,
		RateBurst:      opts.RateBurst,
		Token:          s.Token,
		Client:         opts.HTTPClient,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := queue.New(log)
	taxis := nearby.New()
	machine := calltaxi.New(q, taxis, s, presenter, log)
	router := dispatch.NewRouter(machine, log)

	return &Client{
		session:   s,
		queue:     q,
		taxis:     taxis,
		machine:   machine,
		transport: tr,
		router:    router,
		loop:      dispatch.New(q, tr, machine, s, router, opts.Dispatch, log),
		presenter: presenter,
		log:       log,
	}, nil
}

// AttachPush registers a push listener run between login and logout.
func (c *Client) AttachPush(l PushListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.push = append(c.push, l)
}

// Router is where out-of-band pushes must be delivered.
func (c *Client) Router() *dispatch.Router {
	return c.router
}

// Token returns the current session token, empty when none was issued.
func (c *Client) Token() string {
	return c.session.Token()
}

// Login signs in and starts the dispatch worker. The returned message is
// types.LoginSuccess or the reason given by the server.
func (c *Client) Login(ctx context.Context, nickname, password string) (string, error) {
	const op = "Client.Login"
	ctx = wrap.WithUser(wrap.WithAction(ctx, types.ActionLogin), nickname)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loggedIn.Load() {
		return "", wrap.Error(ctx, types.ErrAlreadyLoggedIn)
	}

	call, err := codec.EncodeSignin(nickname, password)
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	resp, _ := c.transport.Execute(ctx, call.Method, call.Route, call.Body)
	res := codec.DecodeCommand(resp.StatusCode, resp.Body)
	if !res.OK() {
		c.log.Warn(ctx, "login rejected", "status", res.Status, "reason", res.Message)
		return res.Message, wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrLoginFailed, res.Err()))
	}

	signin, err := codec.DecodeSignin(res.Body)
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w: %w", op, types.ErrLoginFailed, err))
	}
	c.session.SignIn(nickname, signin.Token)

	// the worker must outlive the login call
	runCtx := wrap.WithUser(context.WithoutCancel(ctx), nickname)
	if err := c.loop.Start(runCtx); err != nil {
		c.session.SignOut()
		return "", wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	c.startPush(runCtx)
	c.loggedIn.Store(true)

	c.log.Info(ctx, "passenger logged in", "token_expires", c.session.TokenExpiry())
	return types.LoginSuccess, nil
}

func (c *Client) startPush(ctx context.Context) {
	if len(c.push) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.stopPush = cancel

	for _, l := range c.push {
		c.pushDone.Go(func() {
			if err := l.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error(wrap.ErrorCtx(ctx, err), "push listener stopped", err)
			}
		})
	}
}

// Logout stops the worker and drops all per-login state. Pending requests are discarded.
func (c *Client) Logout(ctx context.Context) error {
	ctx = wrap.WithUser(wrap.WithAction(ctx, types.ActionLogout), c.session.Nickname())

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn.Load() {
		return wrap.Error(ctx, types.ErrNotLoggedIn)
	}
	c.loggedIn.Store(false)

	if c.stopPush != nil {
		c.stopPush()
		c.pushDone.Wait()
		c.stopPush = nil
	}

	stopErr := c.loop.Stop(ctx)

	c.queue.Clear()
	c.machine.Reset()
	c.taxis.Clear()
	c.session.SignOut()
	c.transport.Close()

	if stopErr != nil {
		c.log.Error(ctx, "dispatch loop did not stop cleanly", stopErr)
		return wrap.Error(ctx, stopErr)
	}

	c.log.Info(ctx, "passenger logged out")
	return nil
}

func (c *Client) LoggedIn() bool {
	return c.loggedIn.Load()
}

// SetUserPosition records a new fix. While logged in, a move of at least the
// update distance schedules a location update.
func (c *Client) SetUserPosition(ctx context.Context, pos models.Position) {
	moved := c.session.SetPosition(pos)
	if !moved || !c.LoggedIn() {
		return
	}
	c.queue.Enqueue(ctx, models.NewLocationUpdateRequest(pos))
}

// RequestCall calls a taxi, a specific one when phone is set, and returns the
// sequence number of the call.
func (c *Client) RequestCall(ctx context.Context, phone *string) (int, error) {
	if !c.LoggedIn() {
		return 0, wrap.Error(ctx, types.ErrNotLoggedIn)
	}
	return c.machine.RequestCall(ctx, phone)
}

func (c *Client) CancelCall(ctx context.Context) error {
	if !c.LoggedIn() {
		return wrap.Error(ctx, types.ErrNotLoggedIn)
	}
	return c.machine.CancelCall(ctx)
}

// FindNearbyTaxis queries the taxis around the passenger right away, bypassing
// the queue, and shows them.
func (c *Client) FindNearbyTaxis(ctx context.Context) ([]models.TaxiInfo, error) {
	const op = "Client.FindNearbyTaxis"
	ctx = wrap.WithAction(ctx, types.ActionFindTaxi)

	if !c.LoggedIn() {
		return nil, wrap.Error(ctx, types.ErrNotLoggedIn)
	}

	pos, ok := c.session.Position()
	if !ok {
		return nil, wrap.Error(ctx, types.ErrPositionUnknown)
	}

	call, err := codec.Encode(models.NewFindTaxiRequest(pos))
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	resp, _ := c.transport.Execute(ctx, call.Method, call.Route, call.Body)
	res := codec.DecodeCommand(resp.StatusCode, resp.Body)
	if !res.OK() {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, res.Err()))
	}

	taxis, err := codec.DecodeTaxis(res.Body)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	c.taxis.Replace(taxis)
	c.log.Info(ctx, "nearby taxis found", "count", len(taxis))
	c.presenter.ShowNearbyTaxis(ctx, taxis)

	return taxis, nil
}

// LocateUser recenters on the passenger.
func (c *Client) LocateUser(ctx context.Context) error {
	pos, ok := c.session.Position()
	if !ok {
		return wrap.Error(ctx, types.ErrPositionUnknown)
	}
	c.presenter.ShowUser(ctx, pos)
	return nil
}

// LocateTaxi recenters on the assigned taxi.
func (c *Client) LocateTaxi(ctx context.Context) error {
	taxi, ok := c.machine.Assignment()
	if !ok {
		return wrap.Error(ctx, types.ErrNoAssignedTaxi)
	}
	c.presenter.ShowAssignedTaxi(ctx, taxi)
	return nil
}

// IsCallActive reports whether a taxi is assigned.
func (c *Client) IsCallActive() bool {
	return c.machine.IsActive()
}

func (c *Client) CurrentAssignment() (models.TaxiInfo, bool) {
	return c.machine.Assignment()
}

func (c *Client) State() types.CallState {
	return c.machine.State()
}

// Position returns the latest fix of the passenger.
func (c *Client) Position() (models.Position, bool) {
	return c.session.Position()
}

// NearbyTaxis returns the result of the last FindNearbyTaxis.
func (c *Client) NearbyTaxis() []models.TaxiInfo {
	return c.taxis.All()
}

// PendingRequests is the number of requests waiting to be sent.
func (c *Client) PendingRequests() int {
	return c.queue.Len()
}
