package models

// Balance is one asset balance: the raw smallest-unit integer and the
// decimals-formatted display string. Computed fresh per account/chain
// and never persisted.
type Balance struct {
	Raw       *BigInt `json:"raw"`
	Formatted string  `json:"formatted"`
}
