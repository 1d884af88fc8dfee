package validation

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var principalPattern = regexp.MustCompile(`^([a-z0-9]{5}-)+[a-z0-9]{1,5}$`)

// ValidateEVMAddress validates an EVM address format.
func ValidateEVMAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	// Remove 0x prefix if present
	normalized := strings.TrimPrefix(addr, "0x")
	normalized = strings.TrimPrefix(normalized, "0X")

	// Check length (40 hex characters = 20 bytes)
	if len(normalized) != 40 {
		return fmt.Errorf("invalid address length: expected 40 characters (without 0x), got %d", len(normalized))
	}

	// Validate hex format
	if _, err := hex.DecodeString(normalized); err != nil {
		return fmt.Errorf("invalid hex address: %w", err)
	}

	return nil
}

// ValidatePrincipal validates the textual form of an identity-chain
// principal (lowercase base32 groups joined by dashes).
func ValidatePrincipal(principal string) error {
	if principal == "" {
		return fmt.Errorf("principal cannot be empty")
	}
	if len(principal) > 63 {
		return fmt.Errorf("principal too long: %d characters", len(principal))
	}
	if !principalPattern.MatchString(principal) {
		return fmt.Errorf("invalid principal format: %q", principal)
	}
	return nil
}

// ValidateEmail performs a minimal shape check; the order service owns
// real address verification.
func ValidateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email address: %q", email)
	}
	return nil
}
