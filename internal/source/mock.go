package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
)

// MockSource generates a plausible OI random walk for development and
// tests, without touching the network.
type MockSource struct {
	mu      sync.Mutex
	symbols []string
	rng     *rand.Rand
	state   map[string]*mockState
	nowFn   func() time.Time

	// FailNext makes the next Fetch return ErrSourceUnavailable, for
	// exercising the fallback path.
	FailNext bool
}

type mockState struct {
	callOI     int64
	putOI      int64
	volume     int64
	underlying float64
}

// NewMockSource creates a mock source over the given symbols (the default
// universe when empty).
func NewMockSource(symbols []string, seed int64) *MockSource {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	return &MockSource{
		symbols: symbols,
		rng:     rand.New(rand.NewSource(seed)),
		state:   make(map[string]*mockState),
		nowFn:   time.Now,
	}
}

// Name returns "mock".
func (m *MockSource) Name() string { return "mock" }

// Fetch returns one synthetic observation per symbol.
func (m *MockSource) Fetch(ctx context.Context) ([]models.RawObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return nil, models.ErrSourceUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.nowFn()
	batch := make([]models.RawObservation, 0, len(m.symbols))
	for _, symbol := range m.symbols {
		st, ok := m.state[symbol]
		if !ok {
			st = &mockState{
				callOI:     500_000 + m.rng.Int63n(500_000),
				putOI:      500_000 + m.rng.Int63n(500_000),
				volume:     1_000_000 + m.rng.Int63n(1_000_000),
				underlying: 100 + m.rng.Float64()*2000,
			}
			m.state[symbol] = st
		}

		st.callOI = drift(m.rng, st.callOI)
		st.putOI = drift(m.rng, st.putOI)
		st.volume += m.rng.Int63n(50_000)
		st.underlying *= 1 + (m.rng.Float64()-0.5)*0.01

		batch = append(batch, models.RawObservation{
			Symbol:          symbol,
			Expiry:          "26-Mar-2026",
			TotalOI:         st.callOI + st.putOI,
			CallOI:          st.callOI,
			PutOI:           st.putOI,
			FuturesVolume:   st.volume,
			UnderlyingValue: st.underlying,
			ObservedAt:      now,
		})
	}
	return batch, nil
}

// drift moves OI by up to ±2% per poll, floored at zero.
func drift(rng *rand.Rand, v int64) int64 {
	delta := int64(float64(v) * (rng.Float64() - 0.5) * 0.04)
	if v+delta < 0 {
		return 0
	}
	return v + delta
}
