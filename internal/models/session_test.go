package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionExpiresWithin(t *testing.T) {
	margin := 4 * time.Minute

	var nilSession *Session
	assert.True(t, nilSession.ExpiresWithin(margin))
	assert.True(t, (&Session{}).ExpiresWithin(margin))

	fresh := &Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, fresh.ExpiresWithin(margin))

	// Inside the margin counts as expired even though the token is
	// still technically valid.
	closing := &Session{Token: "tok", ExpiresAt: time.Now().Add(time.Minute)}
	assert.True(t, closing.ExpiresWithin(margin))

	gone := &Session{Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, gone.ExpiresWithin(margin))
}

func TestAddressFor(t *testing.T) {
	user := &User{Addresses: []TransactionAddress{
		{Kind: CredentialEVM, Address: "0xabc"},
		{Kind: CredentialPrincipal, Address: "aaaaa-aa"},
	}}

	addr, ok := user.AddressFor(CredentialEVM)
	assert.True(t, ok)
	assert.Equal(t, "0xabc", addr)

	_, ok = user.AddressFor(CredentialEmail)
	assert.False(t, ok)
}

func TestProviderValidate(t *testing.T) {
	name := "Jane Doe"

	assert.NoError(t, PaymentProvider{Type: ProviderPayPal, ID: "pp"}.Validate(UserOfframper))
	assert.Error(t, PaymentProvider{Type: ProviderPayPal}.Validate(UserOfframper))

	revolut := PaymentProvider{Type: ProviderRevolut, ID: "rv", Scheme: "revolut"}
	assert.Error(t, revolut.Validate(UserOfframper))
	assert.NoError(t, revolut.Validate(UserOnramper))

	revolut.DisplayName = &name
	assert.NoError(t, revolut.Validate(UserOfframper))
}
