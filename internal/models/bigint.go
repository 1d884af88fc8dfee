package models

import (
	"fmt"
	"math/big"
	"strings"
)

// BigInt is a big.Int that serializes to JSON as a base-10 string.
// Fiat minor units and on-chain smallest units routinely exceed the
// 2^53 range that plain JSON numbers survive, so every persisted or
// wire-crossing amount uses this type.
type BigInt struct {
	big.Int
}

// NewBigInt wraps an existing big.Int. The value is copied.
func NewBigInt(i *big.Int) *BigInt {
	b := &BigInt{}
	if i != nil {
		b.Set(i)
	}
	return b
}

// NewBigIntFromUint64 builds a BigInt from a uint64.
func NewBigIntFromUint64(v uint64) *BigInt {
	b := &BigInt{}
	b.SetUint64(v)
	return b
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	// A missing amount must not silently decode to a valid zero.
	if s == "null" || s == "" {
		return fmt.Errorf("missing big integer value")
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid big integer value: %q", s)
	}
	return nil
}
