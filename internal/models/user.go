package models

import "time"

// UserType is the marketplace side a user registered as.
type UserType string

const (
	// UserOfframper deposits crypto into escrow and receives fiat.
	UserOfframper UserType = "offramper"
	// UserOnramper pays fiat and receives released crypto.
	UserOnramper UserType = "onramper"
)

// Session is a time-bounded authorization issued by the order service
// after a successful credential proof.
type Session struct {
	// Token is the opaque session token attached to authenticated calls.
	Token string `json:"token"`
	// ExpiresAt is when the service stops honoring the token.
	ExpiresAt time.Time `json:"expires_at"`
	// Owner is the user id the session was issued to.
	Owner string `json:"owner"`
}

// ExpiresWithin reports whether the session ends inside the given
// margin from now. Operations refuse to start on a session that could
// expire mid-flight.
func (s *Session) ExpiresWithin(margin time.Duration) bool {
	if s == nil || s.Token == "" {
		return true
	}
	return !time.Now().Add(margin).Before(s.ExpiresAt)
}

// User mirrors the order service's user record.
type User struct {
	// ID is the service-assigned user id.
	ID string `json:"id"`
	// Type is the marketplace side (offramper or onramper).
	Type UserType `json:"type"`
	// Addresses are the registered transaction addresses, tagged by
	// credential family.
	Addresses []TransactionAddress `json:"addresses"`
	// Providers are the payment rails in the user's preferred order.
	Providers []PaymentProvider `json:"providers"`
	// FiatVolume is the lifetime traded fiat volume in minor units.
	FiatVolume *BigInt `json:"fiat_volume"`
	// Score is the service-computed reputation score.
	Score int64 `json:"score"`
	// Session is the active session, if any.
	Session *Session `json:"session,omitempty"`
}

// AddressFor returns the user's registered address of the given
// credential family.
func (u *User) AddressFor(kind CredentialKind) (string, bool) {
	for _, a := range u.Addresses {
		if a.Kind == kind {
			return a.Address, true
		}
	}
	return "", false
}
