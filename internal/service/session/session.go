// Package session holds the passenger identity, session token and latest known position.
package session

import (
	"sync"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultUpdateDistance is the move, in metres, that triggers a location update.
const DefaultUpdateDistance = 5.0

// Session is safe for concurrent use. Position and identity have separate
// locks so position updates never block identity reads and vice versa.
type Session struct {
	posMu    sync.RWMutex
	position *models.Position

	idMu     sync.RWMutex
	from     string
	nickname string
	token    string
	expires  time.Time

	updateDistance float64
}

// New creates a session for the passenger phone number from.
func New(from string, updateDistance float64) *Session {
	if updateDistance <= 0 {
		updateDistance = DefaultUpdateDistance
	}
	return &Session{
		from:           from,
		updateDistance: updateDistance,
	}
}

// SetPosition records the latest fix and reports whether the passenger moved at
// least the update distance since the previous one. The first fix never reports a move.
func (s *Session) SetPosition(p models.Position) (moved bool) {
	s.posMu.Lock()
	last := s.position
	s.position = &p
	s.posMu.Unlock()

	if last == nil {
		return false
	}
	return Distance(*last, p) >= s.updateDistance
}

// Position returns the latest known fix.
func (s *Session) Position() (models.Position, bool) {
	s.posMu.RLock()
	defer s.posMu.RUnlock()

	if s.position == nil {
		return models.Position{}, false
	}
	return *s.position, true
}

// From is the passenger phone number sent as "from".
func (s *Session) From() string {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.from
}

func (s *Session) Nickname() string {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.nickname
}

// SignIn stores the identity of a successful login. token may be empty; when it
// is a JWT its expiry is read without verifying the signature, which is the
// server's job.
func (s *Session) SignIn(nickname, token string) {
	var expires time.Time
	if token != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				expires = exp.Time
			}
		}
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.nickname = nickname
	s.token = token
	s.expires = expires
}

// SignOut forgets the login identity. The position is kept: it belongs to the device.
func (s *Session) SignOut() {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.nickname = ""
	s.token = ""
	s.expires = time.Time{}
}

// Token returns the session bearer token, empty when none.
func (s *Session) Token() string {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.token
}

// TokenExpiry returns when the session token expires; zero when unknown.
func (s *Session) TokenExpiry() time.Time {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.expires
}
