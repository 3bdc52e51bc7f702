package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"kanisa/internal/cache"
	"kanisa/internal/core"
)

const (
	defaultLookupTimeout = 5 * time.Second
	rateCacheSize        = 64
	rateCacheTTL         = 10 * time.Minute
)

// HTTPSource resolves rates from an external rate service exposing
// GET <base>/rate?from=XXX&to=YYY returning {"rate": "130.25"}.
//
// Lookups are bounded by a per-request timeout and successful results are
// cached with a TTL. Every failure mode (timeout, transport error, non-200,
// malformed body, non-positive rate) surfaces as core.ErrRateUnavailable so
// the ledger refuses the write instead of persisting a wrong normalization.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	cache   *cache.LRUCache[decimal.Decimal]
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		cache:   cache.NewLRUCache[decimal.Decimal](rateCacheSize, rateCacheTTL),
	}
}

func (s *HTTPSource) Rate(ctx context.Context, from, to core.CurrencyCode) (decimal.Decimal, error) {
	from, to = from.Normalized(), to.Normalized()
	key := pairKey(from, to)
	if rate, ok := s.cache.Get(key); ok {
		return rate, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/rate?from=%s&to=%s", s.baseURL, url.QueryEscape(string(from)), url.QueryEscape(string(to)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", core.ErrRateUnavailable)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "Rate lookup failed", "from", from, "to", to, "error", err)
		return decimal.Zero, fmt.Errorf("rate lookup %s->%s: %w", from, to, core.ErrRateUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.WarnContext(ctx, "Rate service returned non-OK status", "from", from, "to", to, "status", resp.StatusCode)
		return decimal.Zero, fmt.Errorf("rate service status %d for %s->%s: %w", resp.StatusCode, from, to, core.ErrRateUnavailable)
	}

	var body struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response for %s->%s: %w", from, to, core.ErrRateUnavailable)
	}
	if !body.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate for %s->%s: %w", from, to, core.ErrRateUnavailable)
	}

	s.cache.Set(key, body.Rate)
	return body.Rate, nil
}
