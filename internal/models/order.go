package models

// OrderStatus tags the lifecycle state of an order. Transitions are
// monotonic: Created -> Locked -> Completed, or Created -> Cancelled.
// The order service is the only writer; the client mirrors.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderLocked    OrderStatus = "locked"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is the immutable core of an order, fixed at creation.
type Order struct {
	// ID is the service-assigned order id.
	ID uint64 `json:"id"`
	// FiatAmount is the fiat price in the currency's minor unit.
	FiatAmount *BigInt `json:"fiat_amount"`
	// Currency is the ISO currency code (e.g. USD).
	Currency string `json:"currency"`
	// CryptoAmount is the escrowed amount in the asset's smallest
	// on-chain unit.
	CryptoAmount *BigInt `json:"crypto_amount"`
	// Chain is the blockchain holding the escrow.
	Chain Blockchain `json:"chain"`
	// Token is the token contract address; empty means the chain's
	// native asset.
	Token string `json:"token,omitempty"`
	// OfframperAddress is the depositing party's on-chain address.
	OfframperAddress string `json:"offramper_address"`
	// OfframperProviders are the payment rails the offramper accepts.
	OfframperProviders []ProviderRef `json:"offramper_providers"`
}

// Native reports whether the order escrows the chain's native asset.
func (o *Order) Native() bool { return o.Token == "" }

// OrderState wraps the order core in its lifecycle variant. Fields
// beyond Order are populated per Status: OnramperAddress and
// OnramperProvider only for locked (and completed) orders. A cancelled
// state carries only the order id.
type OrderState struct {
	Status OrderStatus `json:"status"`
	Order  Order       `json:"order"`
	// OnramperAddress is the receiving address of the locking onramper.
	OnramperAddress string `json:"onramper_address,omitempty"`
	// OnramperProvider is the payment rail the onramper selected.
	OnramperProvider *ProviderRef `json:"onramper_provider,omitempty"`
}

// FilterKind discriminates the order query filters.
type FilterKind string

const (
	FilterByState            FilterKind = "by_state"
	FilterByOfframperID      FilterKind = "by_offramper_id"
	FilterByOnramperID       FilterKind = "by_onramper_id"
	FilterByOfframperAddress FilterKind = "by_offramper_address"
	FilterByLockedOnramper   FilterKind = "by_locked_onramper"
	FilterByChain            FilterKind = "by_chain"
)

// OrderFilter is a tagged order query. Exactly the field selected by
// Kind is consulted.
type OrderFilter struct {
	Kind    FilterKind  `json:"kind"`
	Status  OrderStatus `json:"status,omitempty"`
	UserID  string      `json:"user_id,omitempty"`
	Address string      `json:"address,omitempty"`
	Chain   *Blockchain `json:"chain,omitempty"`
}

// Matches applies the filter to one order state. Used for residual
// client-side filtering when the service cannot evaluate the filter
// natively.
func (f *OrderFilter) Matches(s OrderState) bool {
	if f == nil {
		return true
	}
	switch f.Kind {
	case FilterByState:
		return s.Status == f.Status
	case FilterByOfframperAddress:
		return s.Order.OfframperAddress == f.Address
	case FilterByLockedOnramper:
		return s.Status == OrderLocked && s.OnramperAddress == f.Address
	case FilterByChain:
		return f.Chain != nil && s.Order.Chain.Equal(*f.Chain)
	case FilterByOfframperID, FilterByOnramperID:
		// Only the service can resolve user ids to orders. Treated as
		// already applied server-side.
		return true
	default:
		return true
	}
}
