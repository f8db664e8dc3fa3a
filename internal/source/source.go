package source

import (
	"context"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
)

// Source provides one batch of per-instrument OI observations on demand.
type Source interface {
	// Fetch returns observations for the current moment, or an error wrapping
	// models.ErrSourceUnavailable when no usable data could be obtained.
	Fetch(ctx context.Context) ([]models.RawObservation, error)

	// Name returns the source name (e.g. "nse", "mock").
	Name() string
}

// DefaultSymbols is the tracked F&O universe when none is configured.
// In production this list would be scraped from the NSE derivatives page.
var DefaultSymbols = []string{
	"RELIANCE", "HDFC", "ICICIBANK", "INFY", "TCS", "NIFTY", "BANKNIFTY",
}
