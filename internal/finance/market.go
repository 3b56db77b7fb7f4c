package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/db"
)

const marketKeyPrefix = "nidhi:market:"

// CryptoData is a spot quote from CoinGecko.
type CryptoData struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	CurrentPrice     float64 `json:"current_price"`
	ChangePercent24h float64 `json:"change_percent_24h"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
}

// RBIRates is the policy rate sheet. The upstream publishes no machine API,
// so the values are a static snapshot refreshed with releases.
type RBIRates struct {
	RepoRate        float64 `json:"repo_rate"`
	ReverseRepoRate float64 `json:"reverse_repo_rate"`
	BankRate        float64 `json:"bank_rate"`
	MCLR            float64 `json:"mclr"`
	BaseRate        float64 `json:"base_rate"`
}

var currentRBIRates = RBIRates{
	RepoRate:        6.50,
	ReverseRepoRate: 3.35,
	BankRate:        6.75,
	MCLR:            8.50,
	BaseRate:        8.25,
}

// cacheStore is the subset of the KV store the market client needs.
type cacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MarketClient serves market quotes with a short KV-backed cache in front of
// the upstream API.
type MarketClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      cacheStore
	ttl        time.Duration
	logger     *zap.Logger
}

type MarketConfig struct {
	BaseURL string
	APIKey  string
	TTL     time.Duration
	Logger  *zap.Logger
}

func NewMarketClient(cfg *MarketConfig, cache cacheStore) *MarketClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MarketClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		cache:      cache,
		ttl:        ttl,
		logger:     cfg.Logger,
	}
}

// Crypto returns a quote for a CoinGecko coin id ("bitcoin", "ethereum").
func (m *MarketClient) Crypto(ctx context.Context, coinID string) (CryptoData, error) {
	key := marketKeyPrefix + "crypto:" + coinID

	var cached CryptoData
	if m.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	params := url.Values{
		"ids":                 {coinID},
		"vs_currencies":       {"usd"},
		"include_24hr_change": {"true"},
		"include_market_cap":  {"true"},
		"include_24hr_vol":    {"true"},
	}
	if m.apiKey != "" {
		params.Set("x_cg_demo_api_key", m.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.baseURL+"/simple/price?"+params.Encode(), nil)
	if err != nil {
		return CryptoData{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return CryptoData{}, fmt.Errorf("fetch crypto %s: %w", coinID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CryptoData{}, fmt.Errorf("fetch crypto %s: upstream status %d", coinID, resp.StatusCode)
	}

	var payload map[string]struct {
		USD          float64 `json:"usd"`
		USD24hChange float64 `json:"usd_24h_change"`
		USDMarketCap float64 `json:"usd_market_cap"`
		USD24hVol    float64 `json:"usd_24h_vol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CryptoData{}, fmt.Errorf("decode crypto response: %w", err)
	}

	coin, ok := payload[coinID]
	if !ok {
		return CryptoData{}, fmt.Errorf("no data for coin %q", coinID)
	}

	data := CryptoData{
		Symbol:           strings.ToUpper(coinID),
		Name:             capitalize(coinID),
		CurrentPrice:     coin.USD,
		ChangePercent24h: coin.USD24hChange,
		MarketCap:        coin.USDMarketCap,
		Volume24h:        coin.USD24hVol,
	}
	m.toCache(ctx, key, data)
	return data, nil
}

// Rates returns the RBI rate sheet, cached like live quotes so a future
// upstream swap changes nothing for callers.
func (m *MarketClient) Rates(ctx context.Context) (RBIRates, error) {
	key := marketKeyPrefix + "rbi_rates"

	var cached RBIRates
	if m.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	m.toCache(ctx, key, currentRBIRates)
	return currentRBIRates, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m *MarketClient) fromCache(ctx context.Context, key string, out any) bool {
	data, err := m.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			m.logger.Warn("Market cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		m.logger.Warn("Market cache entry malformed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (m *MarketClient) toCache(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := m.cache.SetWithTTL(ctx, key, data, m.ttl); err != nil {
		m.logger.Warn("Market cache write failed", zap.String("key", key), zap.Error(err))
	}
}
