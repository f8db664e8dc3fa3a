package store

import (
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
	"github.com/mohamedkhairy/oi-tracker/internal/session"
)

// SeriesPoint is an observation labelled with the trading session it was
// recorded in.
type SeriesPoint struct {
	Session session.ID              `json:"session"`
	Point   models.ObservationPoint `json:"point"`
}

// Series is the retained time series for one instrument: the ordered
// observations of the current and recent sessions, plus the single closing
// observation of the previously completed session (the session baseline).
//
// Series values handed out through Snapshot and GetSeries are immutable;
// only the store mutates them, on its own private copies.
type Series struct {
	Instrument      models.Instrument        `json:"instrument"`
	BaselineSession session.ID               `json:"baseline_session,omitempty"`
	Baseline        *models.ObservationPoint `json:"baseline,omitempty"`
	CurrentSession  session.ID               `json:"current_session"`
	Points          []SeriesPoint            `json:"points"`
}

// Latest returns the most recent observation, or nil for an empty series.
func (s *Series) Latest() *models.ObservationPoint {
	if len(s.Points) == 0 {
		return nil
	}
	return &s.Points[len(s.Points)-1].Point
}

// SessionChangePct is the OI change from the session baseline to the latest
// observation, in percent. Undefined (ok=false) when the baseline is absent
// or zero.
func (s *Series) SessionChangePct() (float64, bool) {
	latest := s.Latest()
	if latest == nil || s.Baseline == nil || s.Baseline.TotalOI <= 0 {
		return 0, false
	}
	return pctChange(s.Baseline.TotalOI, latest.TotalOI), true
}

// LiveChangePct is the OI change between the two most recent observations
// of the current session. Undefined when fewer than two such points exist.
func (s *Series) LiveChangePct() (float64, bool) {
	var cur []int64
	for i := range s.Points {
		if s.Points[i].Session == s.CurrentSession {
			cur = append(cur, s.Points[i].Point.TotalOI)
		}
	}
	if len(cur) < 2 {
		return 0, false
	}
	prev := cur[len(cur)-2]
	if prev <= 0 {
		return 0, false
	}
	return pctChange(prev, cur[len(cur)-1]), true
}

// PutCallRatio is put OI over call OI for the latest observation.
func (s *Series) PutCallRatio() (float64, bool) {
	latest := s.Latest()
	if latest == nil || latest.CallOI <= 0 || latest.PutOI <= 0 {
		return 0, false
	}
	return float64(latest.PutOI) / float64(latest.CallOI), true
}

// PriceChangePct is the underlying price change from the session baseline.
func (s *Series) PriceChangePct() (float64, bool) {
	latest := s.Latest()
	if latest == nil || s.Baseline == nil || s.Baseline.UnderlyingValue <= 0 {
		return 0, false
	}
	return (latest.UnderlyingValue - s.Baseline.UnderlyingValue) / s.Baseline.UnderlyingValue * 100, true
}

// VolumeChangePct is the traded volume change from the session baseline.
// Volume is cumulative within a session, so this is an approximation.
func (s *Series) VolumeChangePct() (float64, bool) {
	latest := s.Latest()
	if latest == nil || s.Baseline == nil || s.Baseline.FuturesVolume <= 0 {
		return 0, false
	}
	return pctChange(s.Baseline.FuturesVolume, latest.FuturesVolume), true
}

// OIChangeLastHourPct compares the latest OI to the retained observation
// closest to one hour ago.
func (s *Series) OIChangeLastHourPct(now time.Time) (float64, bool) {
	latest := s.Latest()
	if latest == nil {
		return 0, false
	}

	target := now.Add(-time.Hour)
	var past *models.ObservationPoint
	var best time.Duration
	for i := range s.Points {
		d := s.Points[i].Point.ObservedAt.Sub(target)
		if d < 0 {
			d = -d
		}
		if past == nil || d < best {
			past = &s.Points[i].Point
			best = d
		}
	}
	if past == nil || past.TotalOI <= 0 {
		return 0, false
	}
	return pctChange(past.TotalOI, latest.TotalOI), true
}

func pctChange(from, to int64) float64 {
	return float64(to-from) / float64(from) * 100
}

func (s *Series) clone() *Series {
	cp := *s
	if s.Baseline != nil {
		b := *s.Baseline
		cp.Baseline = &b
	}
	cp.Points = make([]SeriesPoint, len(s.Points))
	copy(cp.Points, s.Points)
	return &cp
}
