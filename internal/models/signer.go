package models

import "context"

// Signer is the opaque sign(message) -> signature capability of a
// connected wallet. The signature scheme belongs to the chain and is
// not interpreted here.
type Signer interface {
	// Address is the signing address the signature binds to.
	Address() string
	// SignMessage signs a service-issued challenge message.
	SignMessage(ctx context.Context, message string) (string, error)
}
