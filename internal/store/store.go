package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
	"github.com/mohamedkhairy/oi-tracker/internal/session"
)

// SessionClock is the session arithmetic the store needs. Implemented by
// session.Clock; tests substitute a fixed calendar.
type SessionClock interface {
	SessionOf(t time.Time) session.ID
	IsNewSession(prev session.ID, t time.Time) bool
	SessionsSince(s session.ID, t time.Time) int
}

// DefaultRetentionSessions is how many completed prior sessions are kept
// in addition to the in-progress one.
const DefaultRetentionSessions = 3

// DefaultBucket is the observation bucket width; duplicate polls inside one
// bucket overwrite rather than append. Matches the nominal poll cadence.
const DefaultBucket = 5 * time.Minute

// Snapshot is an immutable, internally consistent view of every series at
// a single point in time.
type Snapshot struct {
	Provenance models.Provenance
	Series     map[string]*Series
}

// Store is the authoritative in-memory OI time series, keyed by instrument.
// A single writer (the ingestion pipeline) mutates it; readers work off
// copy-on-write snapshots published after each mutation, so a concurrent
// reader never observes a baseline rolled without its first new-session
// point, or any other half-applied update.
type Store struct {
	clock             SessionClock
	retentionSessions int
	bucket            time.Duration

	mu         sync.Mutex
	series     map[string]*Series
	provenance models.Provenance

	snap atomic.Pointer[Snapshot]
}

// Option configures a Store.
type Option func(*Store)

// WithRetention overrides the number of prior sessions retained.
func WithRetention(sessions int) Option {
	return func(s *Store) {
		if sessions > 0 {
			s.retentionSessions = sessions
		}
	}
}

// WithBucket overrides the observation bucket width.
func WithBucket(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.bucket = d
		}
	}
}

// New creates an empty store.
func New(clock SessionClock, opts ...Option) *Store {
	s := &Store{
		clock:             clock,
		retentionSessions: DefaultRetentionSessions,
		bucket:            DefaultBucket,
		series:            make(map[string]*Series),
		provenance:        models.ProvenanceReal,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publishLocked()
	return s
}

// Record appends or overwrites the observation for the instrument's
// current-session bucket. When the observation opens a new session, the
// series baseline is rolled to the last point of the outgoing session
// before the new point is recorded; both changes become visible to readers
// together. Observations older than the series tail are rejected with
// models.ErrOutOfOrderObservation.
func (s *Store) Record(inst models.Instrument, obs models.ObservationPoint) error {
	if obs.TotalOI < 0 || obs.ObservedAt.IsZero() {
		return models.ErrInvalidObservation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.clock.SessionOf(obs.ObservedAt)
	key := inst.Key()

	sr, ok := s.series[key]
	if !ok {
		s.series[key] = &Series{
			Instrument:     inst,
			CurrentSession: sess,
			Points:         []SeriesPoint{{Session: sess, Point: obs}},
		}
		s.publishLocked()
		return nil
	}

	last := &sr.Points[len(sr.Points)-1]
	if obs.ObservedAt.Before(last.Point.ObservedAt) {
		return models.ErrOutOfOrderObservation
	}

	next := sr.clone()
	if s.clock.IsNewSession(sr.CurrentSession, obs.ObservedAt) {
		// First observation of a new session: the outgoing session's last
		// point becomes the baseline, exactly once per transition.
		closing := last.Point
		next.Baseline = &closing
		next.BaselineSession = sr.CurrentSession
		next.CurrentSession = sess
		next.Points = append(next.Points, SeriesPoint{Session: sess, Point: obs})
	} else if obs.ObservedAt.Truncate(s.bucket).Equal(last.Point.ObservedAt.Truncate(s.bucket)) {
		next.Points[len(next.Points)-1] = SeriesPoint{Session: sess, Point: obs}
	} else {
		next.Points = append(next.Points, SeriesPoint{Session: sess, Point: obs})
	}

	s.series[key] = next
	s.publishLocked()
	return nil
}

// Resolved pairs an instrument key with one observation, as produced by
// the ingestion pipeline from a raw scrape.
type Resolved struct {
	Instrument models.Instrument
	Point      models.ObservationPoint
}

// ReplaceAll discards every series and rebuilds the store from a batch of
// single-point real series, atomically from a reader's point of view. Used
// when real data arrives over a fallback-seeded store: fallback values are
// never merged into real series, they are replaced wholesale.
func (s *Store) ReplaceAll(batch []Resolved) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = make(map[string]*Series, len(batch))
	for _, r := range batch {
		sess := s.clock.SessionOf(r.Point.ObservedAt)
		s.series[r.Instrument.Key()] = &Series{
			Instrument:     r.Instrument,
			CurrentSession: sess,
			Points:         []SeriesPoint{{Session: sess, Point: r.Point}},
		}
	}
	s.provenance = models.ProvenanceReal
	s.publishLocked()
}

// SeedFallback populates a cold store with the tagged synthetic dataset.
// Each seed carries a baseline and a current point so list filtering and
// every derived metric remain exercisable while the source is down.
func (s *Store) SeedFallback(seeds []models.FallbackSeed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = make(map[string]*Series, len(seeds))
	for _, seed := range seeds {
		baseline := seed.Baseline
		cur := s.clock.SessionOf(seed.Current.ObservedAt)
		s.series[seed.Instrument.Key()] = &Series{
			Instrument:      seed.Instrument,
			Baseline:        &baseline,
			BaselineSession: s.clock.SessionOf(seed.Baseline.ObservedAt),
			CurrentSession:  cur,
			Points:          []SeriesPoint{{Session: cur, Point: seed.Current}},
		}
	}
	s.provenance = models.ProvenanceFallback
	s.publishLocked()
}

// EvictExpired purges observations and baselines whose session is more than
// the retention window behind the session of now. Idempotent.
func (s *Store) EvictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for key, sr := range s.series {
		kept := sr.Points[:0:0]
		for _, p := range sr.Points {
			if s.clock.SessionsSince(p.Session, now) <= s.retentionSessions {
				kept = append(kept, p)
			}
		}

		dropBaseline := sr.Baseline != nil &&
			s.clock.SessionsSince(sr.BaselineSession, now) > s.retentionSessions &&
			!containsSession(kept, sr.BaselineSession)

		if len(kept) == len(sr.Points) && !dropBaseline {
			continue
		}
		changed = true

		if len(kept) == 0 && (sr.Baseline == nil || dropBaseline) {
			delete(s.series, key)
			continue
		}

		next := sr.clone()
		next.Points = kept
		if dropBaseline {
			next.Baseline = nil
			next.BaselineSession = ""
		}
		s.series[key] = next
	}

	if changed {
		s.publishLocked()
	}
}

// Snapshot returns the current immutable view of all series.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// GetSeries returns the series for an instrument key, or nil if the
// instrument was never observed or has aged out entirely.
func (s *Store) GetSeries(key string) *Series {
	return s.snap.Load().Series[key]
}

// Count reports how many instruments currently hold data.
func (s *Store) Count() int {
	return len(s.snap.Load().Series)
}

// Provenance reports whether the store holds real or fallback data.
func (s *Store) Provenance() models.Provenance {
	return s.snap.Load().Provenance
}

// publishLocked swaps in a fresh immutable snapshot. Callers hold s.mu.
func (s *Store) publishLocked() {
	snap := &Snapshot{
		Provenance: s.provenance,
		Series:     make(map[string]*Series, len(s.series)),
	}
	for key, sr := range s.series {
		snap.Series[key] = sr.clone()
	}
	s.snap.Store(snap)
}

func containsSession(points []SeriesPoint, sess session.ID) bool {
	for i := range points {
		if points[i].Session == sess {
			return true
		}
	}
	return false
}
