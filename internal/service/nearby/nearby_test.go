package nearby

import (
	"testing"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/stretchr/testify/require"
)

func TestFindByPhone(t *testing.T) {
	s := New()
	s.Replace([]models.TaxiInfo{
		{ID: "1", PhoneNumber: "0101"},
		{ID: "2", PhoneNumber: "0102"},
	})

	taxi, ok := s.FindByPhone("0102")
	require.True(t, ok)
	require.Equal(t, "2", taxi.ID)

	_, ok = s.FindByPhone("0103")
	require.False(t, ok)

	s.Clear()
	_, ok = s.FindByPhone("0101")
	require.False(t, ok)
	require.Empty(t, s.All())
}
