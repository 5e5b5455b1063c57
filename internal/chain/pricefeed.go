package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

// PriceFeedConfig tunes a PriceFeed. Zero values use production defaults.
type PriceFeedConfig struct {
	URL        string
	TTL        time.Duration // cache lifetime; default 60s
	HTTPClient *http.Client
	Now        func() time.Time
}

// PriceFeed fetches the SOL/USD price with a short-lived cache so the
// monitor and the /price command don't hammer the public API.
type PriceFeed struct {
	url        string
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
}

// NewPriceFeed creates a PriceFeed.
func NewPriceFeed(cfg PriceFeedConfig) *PriceFeed {
	if cfg.URL == "" {
		cfg.URL = defaultPriceURL
	}
	if cfg.TTL == 0 {
		cfg.TTL = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PriceFeed{
		url:        cfg.URL,
		ttl:        cfg.TTL,
		httpClient: cfg.HTTPClient,
		now:        cfg.Now,
	}
}

// SolUSD returns the current SOL price in USD, served from cache while
// the last fetch is still fresh.
func (f *PriceFeed) SolUSD(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cached > 0 && f.now().Sub(f.fetchedAt) < f.ttl {
		return f.cached, nil
	}

	price, err := f.fetch(ctx)
	if err != nil {
		// A stale cache beats a hard failure on a transient feed hiccup.
		if f.cached > 0 {
			return f.cached, nil
		}
		return 0, err
	}

	f.cached = price
	f.fetchedAt = f.now()
	return price, nil
}

func (f *PriceFeed) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, fmt.Errorf("price feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// CoinGecko shape: {"solana": {"usd": 123.45}}
	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}

	price := payload["solana"]["usd"]
	if price <= 0 {
		return 0, fmt.Errorf("price feed returned no solana/usd quote")
	}
	return price, nil
}
