package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rampline/rampline/pkg/validation"
)

// EVMChainConfig is one configured EVM chain with its vault.
type EVMChainConfig struct {
	ChainID      uint64
	RPCURL       string
	VaultAddress string
}

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Durable client store
	SQLitePath string
	// Order service configuration
	OrderServiceURL string
	// EVM configuration
	EVMChains []EVMChainConfig
	// EVMPrivateKey is the hex private key of the connected wallet used
	// to sign deposit/withdraw transactions.
	EVMPrivateKey string
	// Identity-chain configuration
	LedgerURL string
	// LedgerPrincipal is the default ledger canister principal.
	LedgerPrincipal string
	// VaultPrincipal is the order service's escrow account on the ledger.
	VaultPrincipal string
	// Token catalog configuration
	CatalogURL string

	// Notification configuration
	TelegramBotToken string
	TelegramChatID   string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		APIPort:          getEnvAsInt("API_PORT", 7430),
		SQLitePath:       getEnv("SQLITE_PATH", "rampline.db"),
		OrderServiceURL:  getEnv("ORDER_SERVICE_URL", "http://localhost:8080"),
		EVMPrivateKey:    getEnv("EVM_PRIVATE_KEY", ""),
		LedgerURL:        getEnv("LEDGER_URL", ""),
		LedgerPrincipal:  getEnv("LEDGER_PRINCIPAL", ""),
		VaultPrincipal:   getEnv("VAULT_PRINCIPAL", ""),
		CatalogURL:       getEnv("CATALOG_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}

	chains, err := ParseEVMChains(getEnv("EVM_CHAINS", ""))
	if err != nil {
		return nil, err
	}
	cfg.EVMChains = chains

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseEVMChains parses "chainID,rpcURL,vaultAddress" triples joined
// by semicolons.
func ParseEVMChains(raw string) ([]EVMChainConfig, error) {
	if raw == "" {
		return nil, nil
	}
	var chains []EVMChainConfig
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid EVM_CHAINS entry %q: want chainID,rpcURL,vaultAddress", entry)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain ID in EVM_CHAINS entry %q: %w", entry, err)
		}
		chains = append(chains, EVMChainConfig{
			ChainID:      chainID,
			RPCURL:       strings.TrimSpace(parts[1]),
			VaultAddress: strings.TrimSpace(parts[2]),
		})
	}
	return chains, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.OrderServiceURL == "" {
		return fmt.Errorf("ORDER_SERVICE_URL is required")
	}

	if c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required")
	}

	for _, chain := range c.EVMChains {
		if chain.RPCURL == "" {
			return fmt.Errorf("EVM chain %d has no RPC URL", chain.ChainID)
		}
		if err := validation.ValidateEVMAddress(chain.VaultAddress); err != nil {
			return fmt.Errorf("invalid vault address for chain %d: %w", chain.ChainID, err)
		}
	}

	if c.LedgerURL != "" {
		if err := validation.ValidatePrincipal(c.LedgerPrincipal); err != nil {
			return fmt.Errorf("invalid LEDGER_PRINCIPAL: %w", err)
		}
		if err := validation.ValidatePrincipal(c.VaultPrincipal); err != nil {
			return fmt.Errorf("invalid VAULT_PRINCIPAL: %w", err)
		}
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
