package cita

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the reference Store implementation. A single mutex makes the
// check-then-insert of Insert atomic, so the no-double-booking invariant holds
// under concurrent callers without any external lock.
type MemoryStore struct {
	mu     sync.Mutex
	citas  map[int64]Cita
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{citas: make(map[int64]Cita), nextID: 1}
}

func (s *MemoryStore) Insert(_ context.Context, c Cita) (*Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.citas {
		if existing.DoctorID == c.DoctorID &&
			existing.CentroID == c.CentroID &&
			existing.Fecha.Equal(c.Fecha) &&
			existing.Estado.Blocking() {
			return nil, ErrSlotTaken
		}
	}

	c.ID = s.nextID
	s.nextID++
	c.Fecha = c.Fecha.UTC()
	s.citas[c.ID] = c

	stored := c
	return &stored, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.citas[id]
	if !ok {
		return nil, ErrCitaNotFound
	}
	return &c, nil
}

func (s *MemoryStore) FindMatching(_ context.Context, f Filter) ([]Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Cita
	for _, c := range s.citas {
		if f.Matches(c) {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Fecha.Equal(result[j].Fecha) {
			return result[i].Fecha.Before(result[j].Fecha)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (s *MemoryStore) ExistsConflict(_ context.Context, doctorID, centroID int64, fecha time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.citas {
		if c.DoctorID == doctorID && c.CentroID == centroID && c.Fecha.Equal(fecha) && c.Estado.Blocking() {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id int64, estado Estado) (*Cita, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.citas[id]
	if !ok {
		return nil, ErrCitaNotFound
	}

	c.Estado = estado
	s.citas[id] = c
	return &c, nil
}
