package query

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/ingest"
	"github.com/mohamedkhairy/oi-tracker/internal/models"
	"github.com/mohamedkhairy/oi-tracker/internal/settings"
	"github.com/mohamedkhairy/oi-tracker/internal/store"
)

// Engine answers read requests against a consistent snapshot of the store.
// It runs concurrently with the ingestion pipeline and with other readers.
type Engine struct {
	store    *store.Store
	settings *settings.Store
	health   *ingest.HealthTracker
	nowFn    func() time.Time
}

// NewEngine creates a query engine.
func NewEngine(st *store.Store, set *settings.Store, health *ingest.HealthTracker) *Engine {
	return &Engine{
		store:    st,
		settings: set,
		health:   health,
		nowFn:    time.Now,
	}
}

// ListFiltered returns every instrument whose absolute session OI change
// exceeds Variable A, sorted descending by session change with ties broken
// by symbol. Instruments additionally exceeding Variable B on live change
// carry the momentum flag; Variable B never excludes a row.
func (e *Engine) ListFiltered() []models.InstrumentView {
	snap := e.store.Snapshot()
	cfg := e.settings.Get()
	now := e.nowFn()

	views := make([]models.InstrumentView, 0, len(snap.Series))
	for _, sr := range snap.Series {
		view, sessionPct, ok := e.buildView(sr, cfg, now)
		if !ok {
			continue
		}
		// Threshold on the raw percentage; rounding is display-only.
		if math.Abs(sessionPct) <= cfg.VariableA {
			continue
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].SessionChangePct != views[j].SessionChangePct {
			return views[i].SessionChangePct > views[j].SessionChangePct
		}
		return views[i].Symbol < views[j].Symbol
	})
	return views
}

// GetDetail returns the expanded view for one symbol, or
// models.ErrNotFound when it was never observed or has aged out.
func (e *Engine) GetDetail(symbol string) (*models.StockDetail, error) {
	symbol = strings.ToUpper(symbol)
	sr := e.findBySymbol(symbol)
	if sr == nil {
		return nil, models.ErrNotFound
	}

	latest := sr.Latest()
	if latest == nil || sr.Baseline == nil {
		return nil, models.ErrNotFound
	}

	detail := &models.StockDetail{
		Symbol:             symbol,
		LastSessionTotalOI: sr.Baseline.TotalOI,
		CurrentTotalOI:     latest.TotalOI,
		LastUpdated:        latest.ObservedAt,
	}
	if pct, ok := sr.SessionChangePct(); ok {
		detail.OIChangePct = round2(pct)
	}
	if sr.Baseline.PutOI > 0 {
		detail.PutOIChangePct = round2(float64(latest.PutOI-sr.Baseline.PutOI) / float64(sr.Baseline.PutOI) * 100)
	}
	if sr.Baseline.CallOI > 0 {
		detail.CallOIChangePct = round2(float64(latest.CallOI-sr.Baseline.CallOI) / float64(sr.Baseline.CallOI) * 100)
	}
	if pcr, ok := sr.PutCallRatio(); ok {
		detail.PCRNow = round2(pcr)
	}
	if pct, ok := sr.LiveChangePct(); ok {
		detail.LiveOIChangePct = round2(pct)
	}
	return detail, nil
}

// GetSettings returns the current thresholds.
func (e *Engine) GetSettings() models.Settings {
	return e.settings.Get()
}

// SetSettings replaces both thresholds; negative input is rejected with
// models.ErrInvalidSettings and leaves the prior settings unchanged.
func (e *Engine) SetSettings(variableA, variableB float64) (models.Settings, error) {
	return e.settings.Update(variableA, variableB)
}

// Status reports data-source health and the tracked instrument count.
func (e *Engine) Status() models.StatusReport {
	return models.StatusReport{
		SourceHealth:           e.health.Snapshot(),
		TrackedInstrumentCount: e.store.Count(),
	}
}

// buildView derives the list row for one series, returning the unrounded
// session change for filtering. Rows without a defined session change (no
// baseline yet, or a zero baseline) are skipped.
func (e *Engine) buildView(sr *store.Series, cfg models.Settings, now time.Time) (models.InstrumentView, float64, bool) {
	sessionPct, ok := sr.SessionChangePct()
	if !ok {
		return models.InstrumentView{}, 0, false
	}

	latest := sr.Latest()
	view := models.InstrumentView{
		Symbol:            sr.Instrument.Symbol,
		SessionChangePct:  round2(sessionPct),
		OICurrent:         latest.TotalOI,
		OISessionBaseline: sr.Baseline.TotalOI,
		LastUpdated:       latest.ObservedAt,
	}

	if livePct, ok := sr.LiveChangePct(); ok {
		view.LiveChangePct = round2(livePct)
		view.MomentumAlert = math.Abs(livePct) > cfg.VariableB
	}
	if pcr, ok := sr.PutCallRatio(); ok {
		view.PCRNow = round2(pcr)
	}
	if pct, ok := sr.PriceChangePct(); ok {
		view.PriceChangePct = round2(pct)
	}
	if pct, ok := sr.VolumeChangePct(); ok {
		view.VolumeChangePct = round2(pct)
	}
	if pct, ok := sr.OIChangeLastHourPct(now); ok {
		view.OIChangeLastHourPct = round2(pct)
	}
	return view, sessionPct, true
}

func (e *Engine) findBySymbol(symbol string) *store.Series {
	snap := e.store.Snapshot()
	for _, sr := range snap.Series {
		if sr.Instrument.Symbol == symbol {
			return sr
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
