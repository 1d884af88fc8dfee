package models

import "fmt"

// ProviderType is the off-chain payment rail family.
type ProviderType string

const (
	ProviderPayPal  ProviderType = "paypal"
	ProviderRevolut ProviderType = "revolut"
)

// PaymentProvider is one payment rail account of a user.
type PaymentProvider struct {
	Type ProviderType `json:"type"`
	// ID is the provider-specific account identifier.
	ID string `json:"id"`
	// Scheme is the Revolut transfer scheme (e.g. "revolut", "sort-code").
	// Unused for PayPal.
	Scheme string `json:"scheme,omitempty"`
	// DisplayName is the Revolut counterparty name. Required on the
	// offramper side, absent on the onramper side.
	DisplayName *string `json:"display_name,omitempty"`
}

// Ref reduces the provider to the (type, id) pair orders carry.
func (p PaymentProvider) Ref() ProviderRef {
	return ProviderRef{Type: p.Type, ID: p.ID}
}

// Validate checks side-dependent constraints.
func (p PaymentProvider) Validate(side UserType) error {
	if p.ID == "" {
		return fmt.Errorf("payment provider id is required")
	}
	switch p.Type {
	case ProviderPayPal:
		return nil
	case ProviderRevolut:
		if side == UserOfframper && (p.DisplayName == nil || *p.DisplayName == "") {
			return fmt.Errorf("revolut provider requires a display name for offrampers")
		}
		return nil
	default:
		return fmt.Errorf("unknown provider type %q", p.Type)
	}
}

// ProviderRef is the (type, id) tuple recorded on an order.
type ProviderRef struct {
	Type ProviderType `json:"type"`
	ID   string       `json:"id"`
}
