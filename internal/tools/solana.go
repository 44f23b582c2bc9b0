package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/time/rate"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// SolanaClient is a read-only JSON-RPC client for a Solana node. Calls are
// throttled so public RPC endpoints don't rate-ban the bot.
type SolanaClient struct {
	rpcURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSolanaClient creates a client for the given RPC endpoint.
func NewSolanaClient(rpcURL string) *SolanaClient {
	return &SolanaClient{
		rpcURL: rpcURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		// Public mainnet endpoints allow roughly 10 req/s per IP.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// IsValidSolanaAddress reports whether the string is a base58-encoded
// 32-byte public key.
func IsValidSolanaAddress(address string) bool {
	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// BalanceResult is a wallet's SOL balance.
type BalanceResult struct {
	Lamports uint64
	SOL      float64
}

// GetBalance fetches the SOL balance of a wallet address.
func (c *SolanaClient) GetBalance(ctx context.Context, address string) (*BalanceResult, error) {
	if !IsValidSolanaAddress(address) {
		return nil, fmt.Errorf("invalid Solana address format")
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.rpcCall(ctx, "getBalance", []any{address, map[string]string{"commitment": "confirmed"}}, &result); err != nil {
		return nil, err
	}

	return &BalanceResult{
		Lamports: result.Value,
		SOL:      float64(result.Value) / LamportsPerSOL,
	}, nil
}

// TokenSupplyResult is a token mint's total supply.
type TokenSupplyResult struct {
	Supply   float64
	Decimals int
}

// GetTokenSupply fetches the total supply of a token by mint address.
func (c *SolanaClient) GetTokenSupply(ctx context.Context, mint string) (*TokenSupplyResult, error) {
	if !IsValidSolanaAddress(mint) {
		return nil, fmt.Errorf("invalid mint address format")
	}

	var result struct {
		Value struct {
			Amount   string   `json:"amount"`
			Decimals int      `json:"decimals"`
			UIAmount *float64 `json:"uiAmount"`
		} `json:"value"`
	}
	if err := c.rpcCall(ctx, "getTokenSupply", []any{mint, map[string]string{"commitment": "confirmed"}}, &result); err != nil {
		return nil, err
	}

	supply := 0.0
	if result.Value.UIAmount != nil {
		supply = *result.Value.UIAmount
	}

	return &TokenSupplyResult{
		Supply:   supply,
		Decimals: result.Value.Decimals,
	}, nil
}

// rpcCall performs one JSON-RPC request and decodes its result field.
func (c *SolanaClient) rpcCall(ctx context.Context, method string, params []any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("RPC error (status %d): %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode RPC result: %w", err)
	}
	return nil
}
