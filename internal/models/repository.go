package models

// Repository is the durable client-side store: the cached session, the
// exchange-rate cache, the preferred display currency and short-lived
// single-use payloads. It is a write-through cache of remote state,
// never the source of truth.
type Repository interface {
	SaveSession(record *StoredSession) error
	// LoadSession returns nil without error when no session is stored.
	LoadSession() (*StoredSession, error)
	ClearSession() error

	// GetRate returns nil without error on a cache miss.
	GetRate(key string) (*RateEntry, error)
	PutRate(entry *RateEntry) error

	PreferredCurrency() (string, error)
	SetPreferredCurrency(currency string) error

	PutPendingPayload(payload *PendingPayload) error
	// TakePendingPayload returns and deletes the payload; a second take
	// of the same token returns nil.
	TakePendingPayload(token string) (*PendingPayload, error)

	Close() error
}

// StoredSession is the persisted session row. The user snapshot is
// serialized as JSON with big-integer fields encoded as strings.
type StoredSession struct {
	// ID is fixed at 1: at most one session is stored.
	ID int64 `json:"id" gorm:"column:id;primaryKey"`
	// UserID is the session owner.
	UserID string `json:"user_id" gorm:"column:user_id;not null"`
	// Token is the opaque session token.
	Token string `json:"token" gorm:"column:token;not null"`
	// ExpiresAt is the session expiry as a Unix timestamp.
	ExpiresAt int64 `json:"expires_at" gorm:"column:expires_at;not null"`
	// UserJSON is the big-integer-safe serialized User snapshot.
	UserJSON string `json:"user_json" gorm:"column:user_json;not null"`
}

// RateEntry is one cached exchange rate.
type RateEntry struct {
	// Key is "<symbol>_<qualifier>_exchange_rate"; the qualifier
	// segment is omitted for chain-agnostic symbols.
	Key string `json:"key" gorm:"column:key;primaryKey"`
	// Rate is fiat per whole token.
	Rate float64 `json:"rate" gorm:"column:rate;not null"`
	// FetchedAt is the fetch time as a Unix timestamp; entries older
	// than the cache TTL are refetched.
	FetchedAt int64 `json:"fetched_at" gorm:"column:fetched_at;not null"`
}

// Preference is a single key/value client preference row.
type Preference struct {
	Key   string `json:"key" gorm:"column:key;primaryKey"`
	Value string `json:"value" gorm:"column:value"`
}

// PendingPayload is a short-lived registration or password-reset
// payload, keyed by a generated confirmation token and consumed by a
// single read.
type PendingPayload struct {
	// Token is the generated confirmation token.
	Token string `json:"token" gorm:"column:token;primaryKey"`
	// Kind distinguishes registration from password reset payloads.
	Kind string `json:"kind" gorm:"column:kind;not null"`
	// Payload is the serialized pending data.
	Payload string `json:"payload" gorm:"column:payload;not null"`
	// CreatedAt is the creation time as a Unix timestamp.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
}
