package session

import (
	"testing"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSetPositionReportsMoves(t *testing.T) {
	s := New("0101234", 5)

	require.False(t, s.SetPosition(models.Position{Lat: 37000000, Lon: 127000000}), "first fix")
	// ~1.1 m north
	require.False(t, s.SetPosition(models.Position{Lat: 37000010, Lon: 127000000}))
	// ~111 m north
	require.True(t, s.SetPosition(models.Position{Lat: 37001010, Lon: 127000000}))

	pos, ok := s.Position()
	require.True(t, ok)
	require.Equal(t, 37001010, pos.Lat)
}

func TestPositionUnknown(t *testing.T) {
	_, ok := New("1", 0).Position()
	require.False(t, ok)
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is ~111.19 km
	d := HaversineDistance(0, 0, 1, 0)
	require.InDelta(t, 111195, d, 10)
}

func TestSignInReadsTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ann",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	s := New("1", 0)
	s.SignIn("ann", token)

	require.Equal(t, "ann", s.Nickname())
	require.Equal(t, token, s.Token())
	require.True(t, exp.Equal(s.TokenExpiry()))

	s.SignOut()
	require.Empty(t, s.Nickname())
	require.Empty(t, s.Token())
}

func TestSignInWithOpaqueToken(t *testing.T) {
	s := New("1", 0)
	s.SignIn("ann", "not-a-jwt")
	require.Equal(t, "not-a-jwt", s.Token())
	require.True(t, s.TokenExpiry().IsZero())
}
