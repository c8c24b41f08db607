package mockdispatch

import (
	"fmt"
	"math/rand/v2"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/service/session"
)

// SeedFleet adds n taxis scattered within spread micro-degrees of center.
func (s *Service) SeedFleet(center models.Position, n, spread int) []models.TaxiInfo {
	if spread <= 0 {
		spread = 10_000
	}

	out := make([]models.TaxiInfo, 0, n)
	for i := range n {
		out = append(out, s.AddTaxi(models.TaxiInfo{
			CarNumber:   fmt.Sprintf("%02d%c%04d", 10+rand.IntN(90), 'A'+rune(rand.IntN(26)), rand.IntN(10_000)),
			PhoneNumber: fmt.Sprintf("010%07d", 1_000_000+i),
			Nickname:    fmt.Sprintf("driver-%d", i+1),
			Position: models.Position{
				Lat: center.Lat + rand.IntN(2*spread+1) - spread,
				Lon: center.Lon + rand.IntN(2*spread+1) - spread,
			},
		}))
	}
	return out
}

// StepToward moves from towards to by at most metres.
func StepToward(from, to models.Position, metres float64) models.Position {
	d := session.Distance(from, to)
	if d <= metres || d == 0 {
		return to
	}
	f := metres / d
	return models.Position{
		Lat: from.Lat + int(float64(to.Lat-from.Lat)*f),
		Lon: from.Lon + int(float64(to.Lon-from.Lon)*f),
	}
}
