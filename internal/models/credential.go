package models

// CredentialKind discriminates the login methods a user can present.
type CredentialKind string

const (
	// CredentialEVM is an EVM address proven by a signature over a
	// service-issued challenge message.
	CredentialEVM CredentialKind = "evm"
	// CredentialPrincipal is an identity-chain principal proven by the
	// delegated identity riding on the transport.
	CredentialPrincipal CredentialKind = "principal"
	// CredentialEmail is an email address proven by a password digest.
	CredentialEmail CredentialKind = "email"
)

// Credential is one login identity. Value carries the address,
// principal text or email address depending on Kind. Exactly one
// credential is active per authentication attempt.
type Credential struct {
	Kind  CredentialKind `json:"kind"`
	Value string         `json:"value"`
}

// EVMCredential builds an EVM-address credential.
func EVMCredential(address string) Credential {
	return Credential{Kind: CredentialEVM, Value: address}
}

// PrincipalCredential builds an identity-chain credential.
func PrincipalCredential(principal string) Credential {
	return Credential{Kind: CredentialPrincipal, Value: principal}
}

// EmailCredential builds an email credential.
func EmailCredential(email string) Credential {
	return Credential{Kind: CredentialEmail, Value: email}
}

// Proof carries whatever evidence the credential kind requires.
// Signature for EVM credentials, Password for email credentials;
// identity-chain credentials need neither because the delegation is
// part of the call context itself.
type Proof struct {
	Signature string `json:"signature,omitempty"`
	Password  string `json:"password,omitempty"`
}

// TransactionAddress is one registered receiving/sending address of a
// user, tagged by the credential family it belongs to.
type TransactionAddress struct {
	Kind    CredentialKind `json:"kind"`
	Address string         `json:"address"`
}
