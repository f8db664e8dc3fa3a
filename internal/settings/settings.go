package settings

import (
	"sync/atomic"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
)

// Defaults for the filter thresholds: Variable A gates the home-screen
// list, Variable B drives the live momentum flag.
const (
	DefaultVariableA = 3.0
	DefaultVariableB = 1.0
)

// Store holds the process-wide threshold settings. Reads are lock-free;
// an administrative write replaces the whole pair atomically. No history
// is kept.
type Store struct {
	cur atomic.Pointer[models.Settings]
}

// NewStore creates a settings store initialized to the defaults.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&models.Settings{
		VariableA: DefaultVariableA,
		VariableB: DefaultVariableB,
	})
	return s
}

// Get returns the current settings.
func (s *Store) Get() models.Settings {
	return *s.cur.Load()
}

// Update atomically replaces both thresholds. Negative values are rejected
// with models.ErrInvalidSettings and leave the prior settings in place.
func (s *Store) Update(variableA, variableB float64) (models.Settings, error) {
	if variableA < 0 || variableB < 0 {
		return s.Get(), models.ErrInvalidSettings
	}
	next := &models.Settings{VariableA: variableA, VariableB: variableB}
	s.cur.Store(next)
	return *next, nil
}
