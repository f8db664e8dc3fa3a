package source

import (
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
)

// fallbackRow defines one entry of the fixed synthetic dataset served when
// the real source is unreachable and nothing is cached yet. Session change
// percentages are spread around typical threshold values so the filtered
// list stays exercisable.
type fallbackRow struct {
	symbol     string
	baselineOI int64
	currentOI  int64
	callOI     int64
	putOI      int64
	underlying float64
}

var fallbackRows = []fallbackRow{
	{symbol: "RELIANCE", baselineOI: 1_000_000, currentOI: 1_205_000, callOI: 650_000, putOI: 555_000, underlying: 2950.0},
	{symbol: "HDFC", baselineOI: 800_000, currentOI: 678_400, callOI: 315_000, putOI: 363_400, underlying: 1640.0},
	{symbol: "INFY", baselineOI: 500_000, currentOI: 525_000, callOI: 275_000, putOI: 250_000, underlying: 1480.0},
	{symbol: "ICICIBANK", baselineOI: 600_000, currentOI: 612_000, callOI: 310_000, putOI: 302_000, underlying: 1210.0},
	{symbol: "TCS", baselineOI: 450_000, currentOI: 441_000, callOI: 225_000, putOI: 216_000, underlying: 3880.0},
	{symbol: "NIFTY", baselineOI: 12_000_000, currentOI: 12_660_000, callOI: 6_500_000, putOI: 6_160_000, underlying: 24400.0},
	{symbol: "BANKNIFTY", baselineOI: 8_000_000, currentOI: 7_560_000, callOI: 3_700_000, putOI: 3_860_000, underlying: 52100.0},
}

// FallbackDataset builds the synthetic seed batch. Baselines are stamped a
// day before now so they resolve to the prior trading session.
func FallbackDataset(now time.Time) []models.FallbackSeed {
	seeds := make([]models.FallbackSeed, 0, len(fallbackRows))
	for _, row := range fallbackRows {
		seeds = append(seeds, models.FallbackSeed{
			Instrument: models.Instrument{
				Symbol:       row.symbol,
				ContractType: models.ContractOptions,
				Expiry:       "N/A",
			},
			Baseline: models.ObservationPoint{
				TotalOI:         row.baselineOI,
				CallOI:          row.baselineOI / 2,
				PutOI:           row.baselineOI - row.baselineOI/2,
				FuturesVolume:   500_000,
				UnderlyingValue: row.underlying * 0.99,
				ObservedAt:      now.Add(-24 * time.Hour),
			},
			Current: models.ObservationPoint{
				TotalOI:         row.currentOI,
				CallOI:          row.callOI,
				PutOI:           row.putOI,
				FuturesVolume:   650_000,
				UnderlyingValue: row.underlying,
				ObservedAt:      now,
			},
		})
	}
	return seeds
}
