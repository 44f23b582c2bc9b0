package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const birdeyeAPIBase = "https://public-api.birdeye.so"

const priceCacheTTL = 60 * time.Second

// tokenSymbols maps common token symbols to their mint addresses.
var tokenSymbols = map[string]string{
	"SOL":  "So11111111111111111111111111111111111111112",
	"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	"BONK": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	"JUP":  "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"RAY":  "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
	"ORCA": "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE",
	"MNGO": "MangoCzJ36AjZyKwVj3VnYU4GTonjfVEnJmvvWaxLac",
	"STEP": "StepAscQoEioFxxWGnh2sLBDFp9d8rvKz2Yp39iDpyT",
	"SRM":  "SRMuApVNdxXokk5GT7XD5cUUgXMBCoAz2LHeuAoKWRt",
}

// resolveMint maps a known symbol to its mint address, passing through
// anything else unchanged.
func resolveMint(mintOrSymbol string) string {
	if mint, ok := tokenSymbols[strings.ToUpper(mintOrSymbol)]; ok {
		return mint
	}
	return mintOrSymbol
}

// symbolForMint reverse-maps a mint address to its known symbol, if any.
func symbolForMint(mint string) string {
	for symbol, m := range tokenSymbols {
		if m == mint {
			return symbol
		}
	}
	return ""
}

// TokenPrice is the USD price of a token.
type TokenPrice struct {
	Symbol         string  `json:"symbol"`
	Mint           string  `json:"mint"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
}

// BirdeyeClient fetches token prices from the Birdeye API, with a short
// Redis cache in front. A nil Redis client disables caching.
type BirdeyeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client
}

// NewBirdeyeClient creates a price client. redisClient may be nil.
func NewBirdeyeClient(apiKey string, redisClient *redis.Client) *BirdeyeClient {
	return &BirdeyeClient{
		apiKey:  apiKey,
		baseURL: birdeyeAPIBase,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: redisClient,
	}
}

// GetTokenPrice returns the current USD price for a mint address or known
// symbol.
func (c *BirdeyeClient) GetTokenPrice(ctx context.Context, mintOrSymbol string) (*TokenPrice, error) {
	mint := resolveMint(mintOrSymbol)
	if !IsValidSolanaAddress(mint) {
		return nil, fmt.Errorf("invalid token mint address or unknown symbol")
	}

	cacheKey := "birdeye:price:" + mint
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Result(); err == nil {
			var price TokenPrice
			if json.Unmarshal([]byte(cached), &price) == nil {
				return &price, nil
			}
		}
	}

	url := fmt.Sprintf("%s/defi/price?address=%s", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create price request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("Birdeye API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResult struct {
		Success bool `json:"success"`
		Data    *struct {
			Value          float64 `json:"value"`
			PriceChange24h float64 `json:"priceChange24h"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}
	if !apiResult.Success || apiResult.Data == nil {
		return nil, fmt.Errorf("token price not found")
	}

	symbol := symbolForMint(mint)
	if symbol == "" {
		symbol = mintOrSymbol
	}
	price := &TokenPrice{
		Symbol:         symbol,
		Mint:           mint,
		Price:          apiResult.Data.Value,
		PriceChange24h: apiResult.Data.PriceChange24h,
	}

	if c.cache != nil {
		if encoded, err := json.Marshal(price); err == nil {
			if err := c.cache.Set(ctx, cacheKey, encoded, priceCacheTTL).Err(); err != nil {
				log.Printf("⚠️  [BIRDEYE] Failed to cache price for %s: %v", mint, err)
			}
		}
	}

	return price, nil
}
