package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
)

const sampleChain = `{
  "records": {
    "expiryDates": ["26-Mar-2026", "30-Apr-2026"],
    "underlyingValue": 2950.5
  },
  "filtered": {
    "data": [
      {
        "expiryDate": "26-Mar-2026",
        "CE": {"openInterest": 1000, "totalTradedVolume": 500},
        "PE": {"openInterest": 1500, "totalTradedVolume": 700}
      },
      {
        "expiryDate": "26-Mar-2026",
        "CE": {"openInterest": 2000, "totalTradedVolume": 300}
      },
      {
        "expiryDate": "30-Apr-2026",
        "CE": {"openInterest": 9999, "totalTradedVolume": 9999},
        "PE": {"openInterest": 9999, "totalTradedVolume": 9999}
      }
    ]
  }
}`

func TestParseOptionChainAggregatesNearestExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	obs, err := parseOptionChain("RELIANCE", []byte(sampleChain), now)
	require.NoError(t, err)

	assert.Equal(t, "RELIANCE", obs.Symbol)
	assert.Equal(t, "26-Mar-2026", obs.Expiry, "only the nearest expiry is aggregated")
	assert.Equal(t, int64(3000), obs.CallOI)
	assert.Equal(t, int64(1500), obs.PutOI)
	assert.Equal(t, int64(4500), obs.TotalOI)
	assert.Equal(t, int64(1500), obs.FuturesVolume)
	assert.Equal(t, 2950.5, obs.UnderlyingValue)
	assert.Equal(t, now, obs.ObservedAt)
}

func TestParseOptionChainMalformedBody(t *testing.T) {
	_, err := parseOptionChain("RELIANCE", []byte("<html>blocked</html>"), time.Now())
	assert.Error(t, err)
}

func TestParseOptionChainNoExpiries(t *testing.T) {
	_, err := parseOptionChain("RELIANCE", []byte(`{"records":{},"filtered":{}}`), time.Now())
	assert.Error(t, err)
}

func TestNSESourceFetch(t *testing.T) {
	var warmedUp bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			warmedUp = true
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "token"})
			w.WriteHeader(http.StatusOK)
			return
		}
		require.Equal(t, "/api/option-chain-equities", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleChain))
	}))
	defer srv.Close()

	src, err := NewNSESource(NSEConfig{
		BaseURL:           srv.URL,
		Symbols:           []string{"RELIANCE", "INFY"},
		RequestTimeout:    2 * time.Second,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)

	batch, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.True(t, warmedUp, "warmup request must precede scraping")
	require.Len(t, batch, 2)
	assert.Equal(t, "RELIANCE", batch[0].Symbol)
	assert.Equal(t, "INFY", batch[1].Symbol)
	assert.Equal(t, int64(4500), batch[0].TotalOI)
}

func TestNSESourceFetchUnreachable(t *testing.T) {
	src, err := NewNSESource(NSEConfig{
		BaseURL:           "http://127.0.0.1:1",
		Symbols:           []string{"RELIANCE"},
		RequestTimeout:    200 * time.Millisecond,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)

	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
}

func TestNSESourceFetchAllSymbolsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		// Anti-automation block on every symbol.
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	src, err := NewNSESource(NSEConfig{
		BaseURL:           srv.URL,
		Symbols:           []string{"RELIANCE", "INFY"},
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)

	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
}

func TestMockSource(t *testing.T) {
	src := NewMockSource([]string{"RELIANCE", "NIFTY"}, 42)

	first, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	for _, obs := range first {
		assert.NoError(t, obs.Validate())
		assert.Equal(t, obs.TotalOI, obs.CallOI+obs.PutOI)
	}

	src.FailNext = true
	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)

	// Failure is one-shot; the walk resumes afterwards.
	second, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestFallbackDatasetIsExercisable(t *testing.T) {
	now := time.Date(2024, 7, 9, 10, 0, 0, 0, time.UTC)
	seeds := FallbackDataset(now)
	require.NotEmpty(t, seeds)

	var above, below int
	for _, seed := range seeds {
		require.Positive(t, seed.Baseline.TotalOI)
		require.Positive(t, seed.Current.TotalOI)
		assert.True(t, seed.Baseline.ObservedAt.Before(seed.Current.ObservedAt))

		pct := float64(seed.Current.TotalOI-seed.Baseline.TotalOI) / float64(seed.Baseline.TotalOI) * 100
		if pct > 3.0 || pct < -3.0 {
			above++
		} else {
			below++
		}
	}
	// The dataset straddles the default Variable A threshold so the
	// filtered list shows some rows and hides others.
	assert.Positive(t, above)
	assert.Positive(t, below)
}
