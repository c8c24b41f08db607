// Package mockdispatch is an in-memory dispatch server speaking the passenger
// protocol. It owns a small taxi fleet, accepts calls after a delay, moves the
// assigned taxi towards the passenger and completes the ride.
package mockdispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/session"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/passhash"
	"github.com/google/uuid"
)

// Anonymous is the passenger key used when requests carry no session token.
const Anonymous = "anonymous"

type Options struct {
	AcceptDelay   time.Duration
	CompleteDelay time.Duration
	TickInterval  time.Duration
	SearchRadius  float64 // metres, 0 means everywhere
	TaxiSpeed     float64 // metres per tick
	TokenTTL      time.Duration
	Secret        string
}

// Publisher delivers events out of band. Events that cannot be published stay
// pending for the next refresh poll.
type Publisher interface {
	Connected(passenger string) bool
	Publish(ctx context.Context, passenger string, events models.PollEvents) error
}

// Reply is the outcome of one passenger request.
type Reply struct {
	Status  int
	Message string
	Taxis   []models.TaxiInfo
	Events  *models.PollEvents
}

type call struct {
	number      int
	to          string
	taxiID      string
	requestedAt time.Time
	acceptedAt  time.Time
}

type passenger struct {
	nickname     string
	phone        string
	passwordHash string
	position     *models.Position
	call         *call
	pending      models.PollEvents
}

type Service struct {
	mu         sync.Mutex
	passengers map[string]*passenger
	fleet      map[string]*models.TaxiInfo
	busy       map[string]string // taxi id -> passenger

	tokens    *TokenIssuer
	publisher Publisher
	opts      Options
	now       func() time.Time
	log       logger.Logger
}

func New(opts Options, log logger.Logger) *Service {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.TaxiSpeed <= 0 {
		opts.TaxiSpeed = 50
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}

	return &Service{
		passengers: make(map[string]*passenger),
		fleet:      make(map[string]*models.TaxiInfo),
		busy:       make(map[string]string),
		tokens:     NewTokenIssuer(opts.Secret, opts.TokenTTL),
		opts:       opts,
		now:        time.Now,
		log:        log,
	}
}

// SetPublisher enables out-of-band delivery of events.
func (s *Service) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// AddAccount registers a passenger that may sign in.
func (s *Service) AddAccount(nickname, phone, password string) error {
	const op = "Service.AddAccount"

	hash, err := passhash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.passengers[nickname]; ok {
		return fmt.Errorf("%s: %w: %s", op, ErrAccountExists, nickname)
	}
	s.passengers[nickname] = &passenger{
		nickname:     nickname,
		phone:        phone,
		passwordHash: hash,
	}
	return nil
}

// AddTaxi puts a taxi in the fleet. An empty id is generated.
func (s *Service) AddTaxi(taxi models.TaxiInfo) models.TaxiInfo {
	if taxi.ID == "" {
		taxi.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := taxi
	s.fleet[t.ID] = &t
	return t
}

// SignIn checks the credentials and issues a session token.
func (s *Service) SignIn(ctx context.Context, nickname, password string) (string, error) {
	ctx = wrap.WithUser(wrap.WithAction(ctx, types.ActionLogin), nickname)

	s.mu.Lock()
	p, ok := s.passengers[nickname]
	var hash, phone string
	if ok {
		hash, phone = p.passwordHash, p.phone
	}
	s.mu.Unlock()

	if !ok || hash == "" {
		return "", wrap.Error(ctx, ErrInvalidCredentials)
	}

	match, err := passhash.VerifyPassword(password, hash)
	if err != nil {
		s.log.Error(ctx, "stored password hash is malformed", err)
		return "", wrap.Error(ctx, ErrInvalidCredentials)
	}
	if !match {
		return "", wrap.Error(ctx, ErrInvalidCredentials)
	}

	token, err := s.tokens.Issue(nickname, phone, s.now())
	if err != nil {
		return "", wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "passenger signed in")
	return token, nil
}

// Authenticate resolves the passenger of a session token.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return "", wrap.Error(ctx, err)
	}
	return claims.Subject, nil
}

// passengerFor expects s.mu to be held.
func (s *Service) passengerFor(user, phone string) *passenger {
	if user == "" {
		user = Anonymous
	}
	p, ok := s.passengers[user]
	if !ok {
		p = &passenger{nickname: user}
		s.passengers[user] = p
	}
	if p.phone == "" && phone != "" {
		p.phone = phone
	}
	return p
}

// Handle serves one decoded passenger request.
func (s *Service) Handle(ctx context.Context, user string, req *models.Request) Reply {
	ctx = wrap.WithRequest(wrap.WithUser(ctx, user), req.Type.String(), req.Sequence)

	switch p := req.Payload.(type) {
	case models.CallTaxiPayload:
		return s.callTaxi(ctx, user, p)
	case models.CancelCallPayload:
		return s.cancelCall(ctx, user, p)
	case models.LocationUpdatePayload:
		s.mu.Lock()
		pos := models.Position{Lat: p.Latitude, Lon: p.Longitude}
		s.passengerFor(user, "").position = &pos
		s.mu.Unlock()
		s.log.Debug(ctx, "passenger moved", "position", pos.String())
		return Reply{Status: types.StatusOK}
	case models.FindTaxiPayload:
		return Reply{Status: types.StatusOK, Taxis: s.findTaxis(models.Position{Lat: p.Latitude, Lon: p.Longitude})}
	case models.RefreshPayload:
		s.mu.Lock()
		pass := s.passengerFor(user, "")
		events := pass.pending
		pass.pending = models.PollEvents{}
		s.mu.Unlock()
		return Reply{Status: types.StatusOK, Events: &events}
	default:
		return Reply{Status: StatusRejected, Message: types.ErrUnknownRequest.Error()}
	}
}

func (s *Service) callTaxi(ctx context.Context, user string, p models.CallTaxiPayload) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	pass := s.passengerFor(user, p.From)
	if p.Latitude != nil && p.Longitude != nil {
		pos := models.Position{Lat: *p.Latitude, Lon: *p.Longitude}
		pass.position = &pos
	}

	if c := pass.call; c != nil {
		if c.number == p.Number {
			// resent after a lost answer
			return Reply{Status: types.StatusOK}
		}
		if c.taxiID != "" {
			return Reply{Status: StatusCallInProcess, Message: ErrCallInProgress.Error()}
		}
		// a newer call replaces one that nobody accepted yet
	}

	var to string
	if p.To != nil {
		to = *p.To
		if s.taxiByPhone(to) == nil {
			return Reply{Status: StatusUnknownTaxi, Message: ErrUnknownTaxi.Error()}
		}
	}

	pass.call = &call{
		number:      p.Number,
		to:          to,
		requestedAt: s.now(),
	}
	pass.pending = models.PollEvents{}

	s.log.Info(ctx, "taxi call received", "to", to)
	return Reply{Status: types.StatusOK}
}

func (s *Service) cancelCall(ctx context.Context, user string, p models.CancelCallPayload) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	pass := s.passengerFor(user, p.From)
	c := pass.call
	if c == nil || c.number != p.Number {
		s.log.Debug(ctx, "nothing to cancel")
		return Reply{Status: types.StatusOK}
	}

	if c.taxiID != "" {
		delete(s.busy, c.taxiID)
	}
	pass.call = nil
	pass.pending = models.PollEvents{}

	s.log.Info(ctx, "taxi call cancelled")
	return Reply{Status: types.StatusOK}
}

// taxiByPhone expects s.mu to be held.
func (s *Service) taxiByPhone(phone string) *models.TaxiInfo {
	for _, t := range s.fleet {
		if t.PhoneNumber == phone {
			return t
		}
	}
	return nil
}

func (s *Service) findTaxis(around models.Position) []models.TaxiInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.TaxiInfo, 0, len(s.fleet))
	for _, t := range s.fleet {
		if _, busy := s.busy[t.ID]; busy {
			continue
		}
		if s.opts.SearchRadius > 0 && session.Distance(around, t.Position) > s.opts.SearchRadius {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// pickTaxi expects s.mu to be held.
func (s *Service) pickTaxi(c *call, near *models.Position) *models.TaxiInfo {
	if c.to != "" {
		t := s.taxiByPhone(c.to)
		if t == nil {
			return nil
		}
		if _, busy := s.busy[t.ID]; busy {
			return nil
		}
		return t
	}

	ids := make([]string, 0, len(s.fleet))
	for id := range s.fleet {
		if _, busy := s.busy[id]; !busy {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var best *models.TaxiInfo
	bestDist := 0.0
	for _, id := range ids {
		t := s.fleet[id]
		if near == nil {
			return t
		}
		if d := session.Distance(*near, t.Position); best == nil || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

// Tick advances every call by one step: pending calls are accepted once the
// accept delay passed, assigned taxis drive towards their passenger and rides
// complete after the complete delay.
func (s *Service) Tick(ctx context.Context) {
	now := s.now()
	deliveries := map[string]models.PollEvents{}

	s.mu.Lock()
	for key, p := range s.passengers {
		if c := p.call; c != nil {
			s.advance(wrap.WithUser(ctx, key), p, c, now)
		}
		if !p.pending.Empty() && s.publisher != nil && s.publisher.Connected(key) {
			deliveries[key] = p.pending
			p.pending = models.PollEvents{}
		}
	}
	publisher := s.publisher
	s.mu.Unlock()

	for key, events := range deliveries {
		if err := publisher.Publish(ctx, key, events); err != nil {
			s.log.Warn(wrap.WithUser(ctx, key), "push failed, events kept for polling", "reason", err.Error())
			s.restore(key, events)
		}
	}
}

// advance expects s.mu to be held.
func (s *Service) advance(ctx context.Context, p *passenger, c *call, now time.Time) {
	if c.taxiID == "" {
		if now.Sub(c.requestedAt) < s.opts.AcceptDelay {
			return
		}
		taxi := s.pickTaxi(c, p.position)
		if taxi == nil {
			s.log.Debug(ctx, "no free taxi for call", "sequence", c.number)
			return
		}
		c.taxiID = taxi.ID
		c.acceptedAt = now
		s.busy[taxi.ID] = p.nickname
		p.pending.CallAccepted = &models.CallAccepted{From: taxi.PhoneNumber, Number: c.number}
		s.log.Info(ctx, "taxi accepted call", "car_number", taxi.CarNumber, "sequence", c.number)
		return
	}

	taxi, ok := s.fleet[c.taxiID]
	if !ok {
		p.call = nil
		return
	}

	if p.position != nil {
		taxi.Position = StepToward(taxi.Position, *p.position, s.opts.TaxiSpeed)
	}
	p.pending.TaxiLocation = &models.TaxiLocationChanged{Position: taxi.Position}

	if now.Sub(c.acceptedAt) >= s.opts.CompleteDelay {
		p.pending.CallCompleted = &models.CallCompleted{From: taxi.PhoneNumber}
		delete(s.busy, taxi.ID)
		p.call = nil
		s.log.Info(ctx, "ride completed", "car_number", taxi.CarNumber)
	}
}

// restore puts undelivered events back, keeping anything newer that arrived meanwhile.
func (s *Service) restore(key string, events models.PollEvents) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passengers[key]
	if !ok {
		return
	}
	if p.pending.CallAccepted == nil {
		p.pending.CallAccepted = events.CallAccepted
	}
	if p.pending.TaxiLocation == nil {
		p.pending.TaxiLocation = events.TaxiLocation
	}
	if p.pending.CallCompleted == nil {
		p.pending.CallCompleted = events.CallCompleted
	}
}

// Run ticks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "dispatch_mock_tick")

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Taxis returns the whole fleet sorted by id.
func (s *Service) Taxis() []models.TaxiInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.TaxiInfo, 0, len(s.fleet))
	for _, t := range s.fleet {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
