// Package nearby keeps the taxis returned by the last FindTaxi query.
package nearby

import (
	"sync"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
)

// Set is the transient nearby taxi set, indexed by phone number.
type Set struct {
	mu    sync.RWMutex
	taxis []models.TaxiInfo
	index map[string]int
}

func New() *Set {
	return &Set{index: map[string]int{}}
}

// Replace swaps the whole set for the result of a new query.
func (s *Set) Replace(taxis []models.TaxiInfo) {
	index := make(map[string]int, len(taxis))
	cp := make([]models.TaxiInfo, len(taxis))
	copy(cp, taxis)
	for i, t := range cp {
		index[t.PhoneNumber] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxis = cp
	s.index = index
}

// FindByPhone resolves a taxi identity by phone number. Read-only and non-blocking
// apart from the read lock, so it may be called while other locks are held.
func (s *Set) FindByPhone(phone string) (models.TaxiInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[phone]
	if !ok {
		return models.TaxiInfo{}, false
	}
	return s.taxis[i], true
}

// All returns a copy of the current set.
func (s *Set) All() []models.TaxiInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]models.TaxiInfo, len(s.taxis))
	copy(cp, s.taxis)
	return cp
}

func (s *Set) Clear() {
	s.Replace(nil)
}
