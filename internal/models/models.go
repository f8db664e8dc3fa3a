package models

import (
	"fmt"
	"time"
)

// ContractType identifies which contract leg an instrument tracks.
type ContractType string

const (
	ContractFutures ContractType = "FUT"
	ContractOptions ContractType = "OPT"
)

// Instrument identifies one tracked F&O contract. Immutable once created;
// its Key is used to index the store.
type Instrument struct {
	Symbol       string       `json:"symbol"`
	ContractType ContractType `json:"contract_type"`
	Strike       *float64     `json:"strike,omitempty"` // nil for futures and aggregated option chains
	Expiry       string       `json:"expiry"`
}

// Key returns the store key for this instrument.
func (i Instrument) Key() string {
	if i.Strike != nil {
		return fmt.Sprintf("%s:%s:%s:%.2f", i.Symbol, i.ContractType, i.Expiry, *i.Strike)
	}
	return fmt.Sprintf("%s:%s:%s", i.Symbol, i.ContractType, i.Expiry)
}

// RawObservation is one scrape result for a symbol, before it has been
// resolved into an Instrument and ObservationPoint.
type RawObservation struct {
	Symbol          string    `json:"symbol"`
	Expiry          string    `json:"expiry_date"`
	TotalOI         int64     `json:"total_oi"`
	CallOI          int64     `json:"call_oi"`
	PutOI           int64     `json:"put_oi"`
	FuturesVolume   int64     `json:"futures_volume"`
	UnderlyingValue float64   `json:"underlying_value"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Validate validates a RawObservation.
func (r *RawObservation) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidSymbol
	}
	if r.TotalOI < 0 || r.CallOI < 0 || r.PutOI < 0 {
		return ErrInvalidObservation
	}
	if r.ObservedAt.IsZero() {
		return ErrInvalidObservation
	}
	return nil
}

// ObservationPoint is one measurement for an instrument at a timestamp.
// Immutable; appended to a series, never mutated.
type ObservationPoint struct {
	TotalOI         int64     `json:"total_oi"`
	CallOI          int64     `json:"call_oi"`
	PutOI           int64     `json:"put_oi"`
	FuturesVolume   int64     `json:"futures_volume"`
	UnderlyingValue float64   `json:"underlying_value"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Provenance tags whether the store holds real scraped data or the
// synthetic fallback dataset.
type Provenance string

const (
	ProvenanceReal     Provenance = "real"
	ProvenanceFallback Provenance = "fallback"
)

// Settings holds the user-adjustable filter thresholds.
// Variable A gates the home-screen list on session OI change,
// Variable B flags live momentum between successive polls.
type Settings struct {
	VariableA float64 `json:"variable_a"`
	VariableB float64 `json:"variable_b"`
}

// InstrumentView is the per-instrument row served by the list endpoint.
type InstrumentView struct {
	Symbol              string    `json:"symbol"`
	SessionChangePct    float64   `json:"session_change_pct"`
	LiveChangePct       float64   `json:"live_change_pct"`
	MomentumAlert       bool      `json:"momentum_alert"`
	OICurrent           int64     `json:"oi_current"`
	OISessionBaseline   int64     `json:"oi_session_baseline"`
	PCRNow              float64   `json:"pcr_now"`
	PriceChangePct      float64   `json:"price_change_pct"`
	VolumeChangePct     float64   `json:"volume_change_pct"`
	OIChangeLastHourPct float64   `json:"oi_change_last_hour_pct"`
	LastUpdated         time.Time `json:"last_updated"`
}

// StockDetail is the expanded single-instrument view, with the call/put
// OI change split against the session baseline.
type StockDetail struct {
	Symbol             string    `json:"symbol"`
	LastSessionTotalOI int64     `json:"last_session_total_oi"`
	CurrentTotalOI     int64     `json:"current_total_oi"`
	OIChangePct        float64   `json:"oi_change_pct"`
	PutOIChangePct     float64   `json:"put_oi_change_pct"`
	CallOIChangePct    float64   `json:"call_oi_change_pct"`
	PCRNow             float64   `json:"pcr_now"`
	LiveOIChangePct    float64   `json:"live_oi_change_pct"`
	LastUpdated        time.Time `json:"last_updated"`
}

// SourceHealth reports the outcome of the most recent ingestion cycles.
type SourceHealth struct {
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt     *time.Time `json:"last_failure_at,omitempty"`
	FailureCause      string     `json:"failure_cause,omitempty"`
	UsingFallbackData bool       `json:"using_fallback_data"`
}

// StatusReport is the payload served by the status endpoint.
type StatusReport struct {
	SourceHealth
	TrackedInstrumentCount int `json:"tracked_instrument_count"`
}

// FallbackSeed is one synthetic series used to populate a cold store when
// the data source is unreachable. It carries both a baseline and a current
// point so every downstream derivation stays exercisable.
type FallbackSeed struct {
	Instrument Instrument
	Baseline   ObservationPoint
	Current    ObservationPoint
}
