package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
	"github.com/mohamedkhairy/oi-tracker/pkg/logger"
)

const (
	defaultBaseURL     = "https://www.nseindia.com"
	optionChainPath    = "/api/option-chain-equities?symbol="
	defaultHTTPTimeout = 10 * time.Second
)

// Browser-like headers; the NSE API rejects requests without them.
var nseHeaders = map[string]string{
	"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"accept-language": "en,en-US;q=0.9,hi;q=0.8",
	"accept-encoding": "gzip, deflate, br",
	"accept":          "*/*",
}

// NSEConfig configures the NSE option-chain source.
type NSEConfig struct {
	BaseURL        string
	Symbols        []string
	RequestTimeout time.Duration
	// RequestsPerSecond throttles per-symbol requests within one cycle.
	RequestsPerSecond float64
}

// NSESource scrapes the NSE option-chain API, aggregating call and put OI
// for the nearest expiry of each tracked symbol. A cookie warm-up request
// against the base URL is required before the API accepts calls.
type NSESource struct {
	cfg     NSEConfig
	client  *http.Client
	limiter *rate.Limiter
	nowFn   func() time.Time
}

// NewNSESource creates an NSE source.
func NewNSESource(cfg NSEConfig) (*NSESource, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = DefaultSymbols
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultHTTPTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &NSESource{
		cfg: cfg,
		client: &http.Client{
			Jar:     jar,
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		nowFn:   time.Now,
	}, nil
}

// Name returns "nse".
func (s *NSESource) Name() string { return "nse" }

// Fetch warms up cookies, then scrapes every configured symbol. Individual
// symbol failures are logged and skipped; only a fully empty batch is an
// error.
func (s *NSESource) Fetch(ctx context.Context) ([]models.RawObservation, error) {
	if err := s.warmup(ctx); err != nil {
		return nil, fmt.Errorf("%w: cookie warmup: %v", models.ErrSourceUnavailable, err)
	}

	batch := make([]models.RawObservation, 0, len(s.cfg.Symbols))
	for _, symbol := range s.cfg.Symbols {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
		}

		obs, err := s.fetchSymbol(ctx, symbol)
		if err != nil {
			logger.Warn("Failed to scrape symbol",
				logger.String("symbol", symbol),
				logger.ErrorField(err),
			)
			continue
		}
		batch = append(batch, obs)
	}

	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: no symbol yielded data", models.ErrSourceUnavailable)
	}
	return batch, nil
}

// warmup hits the base URL so the anti-automation cookies land in the jar.
func (s *NSESource) warmup(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL, nil)
	if err != nil {
		return err
	}
	applyHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *NSESource) fetchSymbol(ctx context.Context, symbol string) (models.RawObservation, error) {
	url := s.cfg.BaseURL + optionChainPath + symbol
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.RawObservation{}, err
	}
	applyHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.RawObservation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.RawObservation{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return models.RawObservation{}, err
	}

	return parseOptionChain(symbol, body, s.nowFn())
}

func applyHeaders(req *http.Request) {
	for k, v := range nseHeaders {
		req.Header.Set(k, v)
	}
}

// Wire types for the NSE option-chain response. Only the fields used for
// aggregation are declared.
type optionChainResponse struct {
	Records struct {
		ExpiryDates     []string `json:"expiryDates"`
		UnderlyingValue float64  `json:"underlyingValue"`
	} `json:"records"`
	Filtered struct {
		Data []optionChainRow `json:"data"`
	} `json:"filtered"`
}

type optionChainRow struct {
	ExpiryDate string         `json:"expiryDate"`
	CE         *optionChainLeg `json:"CE"`
	PE         *optionChainLeg `json:"PE"`
}

type optionChainLeg struct {
	OpenInterest      int64 `json:"openInterest"`
	TotalTradedVolume int64 `json:"totalTradedVolume"`
}

// parseOptionChain aggregates call and put OI and traded volume across all
// strikes of the nearest expiry.
func parseOptionChain(symbol string, body []byte, now time.Time) (models.RawObservation, error) {
	var chain optionChainResponse
	if err := json.Unmarshal(body, &chain); err != nil {
		return models.RawObservation{}, fmt.Errorf("malformed option chain for %s: %w", symbol, err)
	}

	if len(chain.Records.ExpiryDates) == 0 {
		return models.RawObservation{}, fmt.Errorf("no expiry dates for %s", symbol)
	}
	nearest := chain.Records.ExpiryDates[0]

	var callOI, putOI, volume int64
	for _, row := range chain.Filtered.Data {
		if row.ExpiryDate != nearest {
			continue
		}
		if row.CE != nil {
			callOI += row.CE.OpenInterest
			volume += row.CE.TotalTradedVolume
		}
		if row.PE != nil {
			putOI += row.PE.OpenInterest
			volume += row.PE.TotalTradedVolume
		}
	}

	obs := models.RawObservation{
		Symbol:          symbol,
		Expiry:          nearest,
		TotalOI:         callOI + putOI,
		CallOI:          callOI,
		PutOI:           putOI,
		FuturesVolume:   volume,
		UnderlyingValue: chain.Records.UnderlyingValue,
		ObservedAt:      now,
	}
	if err := obs.Validate(); err != nil {
		return models.RawObservation{}, err
	}
	return obs, nil
}
