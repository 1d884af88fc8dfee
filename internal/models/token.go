package models

import "context"

// Token describes one catalog asset usable for orders.
type Token struct {
	// Address is the contract address; empty for the chain's native asset.
	Address string `json:"address"`
	// Name is the full name of the token.
	Name string `json:"name"`
	// Symbol is the short symbol of the token (e.g. ETH, USDT).
	Symbol string `json:"symbol"`
	// RateSymbol is the symbol the rate endpoint prices the token under.
	// Usually equal to Symbol; stablecoin wrappers may differ.
	RateSymbol string `json:"rate_symbol"`
	// Decimals is the number of decimals the token uses.
	Decimals int `json:"decimals"`
	// ChainAgnostic marks symbols priced identically on every chain;
	// their rate-cache key carries no chain qualifier.
	ChainAgnostic bool `json:"chain_agnostic"`
}

// TokenCatalog resolves catalog assets per chain.
type TokenCatalog interface {
	// TokensFor lists the catalog assets available on the chain,
	// native asset first. A cold cache fetches under the caller's
	// context.
	TokensFor(ctx context.Context, chain Blockchain) []*Token
	// Lookup resolves one token by contract address (empty address for
	// the native asset).
	Lookup(ctx context.Context, chain Blockchain, address string) (*Token, bool)
}
