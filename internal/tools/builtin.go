package tools

import (
	"context"
	"fmt"
)

// NewRouter builds the registry with the fixed tool set: Solana balance,
// token supply and token price lookups.
func NewRouter(solana *SolanaClient, birdeye *BirdeyeClient) *Registry {
	registry := NewRegistry()

	registry.Register(&Tool{
		Name:        "get_solana_balance",
		Description: "Get the SOL balance for a Solana wallet address",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"address": map[string]any{
					"type":        "string",
					"description": "The Solana wallet address (base58 encoded public key)",
				},
			},
			"required": []string{"address"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			address, _ := args["address"].(string)
			if address == "" {
				return nil, fmt.Errorf("Missing address parameter")
			}
			balance, err := solana.GetBalance(ctx, address)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"address":         address,
				"balance":         balance.SOL,
				"balanceLamports": balance.Lamports,
				"unit":            "SOL",
			}, nil
		},
	})

	registry.Register(&Tool{
		Name:        "get_token_supply",
		Description: "Get the total supply of a Solana token by its mint address",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mint": map[string]any{
					"type":        "string",
					"description": "The token mint address (base58 encoded public key)",
				},
			},
			"required": []string{"mint"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			mint, _ := args["mint"].(string)
			if mint == "" {
				return nil, fmt.Errorf("Missing mint parameter")
			}
			supply, err := solana.GetTokenSupply(ctx, mint)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"mint":     mint,
				"supply":   supply.Supply,
				"decimals": supply.Decimals,
			}, nil
		},
	})

	registry.Register(&Tool{
		Name:        "get_token_price",
		Description: "Get the current price of a token in USD",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mintOrSymbol": map[string]any{
					"type":        "string",
					"description": `The token mint address or symbol (e.g., "SOL", "USDC", or a mint address)`,
				},
			},
			"required": []string{"mintOrSymbol"},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			mintOrSymbol, _ := args["mintOrSymbol"].(string)
			if mintOrSymbol == "" {
				return nil, fmt.Errorf("Missing mintOrSymbol parameter")
			}
			price, err := birdeye.GetTokenPrice(ctx, mintOrSymbol)
			if err != nil {
				return nil, err
			}
			result := map[string]any{
				"token":    price.Symbol,
				"price":    price.Price,
				"priceUSD": fmt.Sprintf("$%.6f", price.Price),
			}
			if price.PriceChange24h != 0 {
				result["priceChange24h"] = fmt.Sprintf("%+.2f%%", price.PriceChange24h)
			}
			return result, nil
		},
	})

	return registry
}
