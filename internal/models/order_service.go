package models

import "context"

// CreateOrderRequest carries everything create_order needs. Gas
// figures are the client's pre-flight estimates; the service computes
// the authoritative fee.
type CreateOrderRequest struct {
	SessionToken string
	UserID       string

	FiatAmount *BigInt
	Currency   string
	Providers  []ProviderRef

	Chain        Blockchain
	Token        string // empty = native asset
	CryptoAmount *BigInt
	Address      string

	GasLock    *uint64
	GasRelease *uint64
}

// OrderService is the remote authoritative ledger of users, sessions,
// orders and exchange rates. Every call can fail with a *ServiceError
// (service-reported variant) or a plain network error.
type OrderService interface {
	// GenerateAuthMessage issues the one-time challenge an EVM
	// credential must sign.
	GenerateAuthMessage(ctx context.Context, credential Credential) (string, error)
	// AuthenticateUser exchanges a credential and its proof for the
	// user record with a fresh session.
	AuthenticateUser(ctx context.Context, credential Credential, proof Proof) (*User, error)
	// RegisterUser creates a new user. Password is only meaningful for
	// email credentials.
	RegisterUser(ctx context.Context, userType UserType, providers []PaymentProvider, credential Credential, password string) (*User, error)
	// RefetchUser re-reads the user by id under an existing session.
	RefetchUser(ctx context.Context, userID, sessionToken string) (*User, error)

	CreateOrder(ctx context.Context, req *CreateOrderRequest) (uint64, error)
	LockOrder(ctx context.Context, sessionToken string, orderID uint64, provider PaymentProvider, address string, gasOverride *uint64) (string, error)
	VerifyTransaction(ctx context.Context, sessionToken string, orderID uint64, providerTxID string, gasOverride *uint64) error
	CancelOrder(ctx context.Context, sessionToken string, orderID uint64) error
	GetOrders(ctx context.Context, filter *OrderFilter, page, pageSize *uint32) ([]OrderState, error)

	GetExchangeRate(ctx context.Context, currency, tokenSymbol string) (float64, error)

	AddPaymentProvider(ctx context.Context, userID, sessionToken string, provider PaymentProvider) error
	AddTransactionAddress(ctx context.Context, userID, sessionToken string, address TransactionAddress) error
	UpdatePassword(ctx context.Context, userID, sessionToken, newPassword string) error
}
