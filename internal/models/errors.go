package models

import (
	"errors"
	"fmt"
)

// Credential errors.
var (
	// ErrUserNotFound means the credential is unregistered. Callers
	// redirect into registration, this is not a hard failure.
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrUnauthorizedPrincipal = errors.New("unauthorized principal")
)

// Session errors.
var (
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionNotSet means the service response carried no session
	// token where one was required.
	ErrSessionNotSet = errors.New("session token not set")
)

// Order errors.
var (
	ErrUnsupportedChain       = errors.New("unsupported blockchain")
	ErrNoAddressForBlockchain = errors.New("no registered address for blockchain")
	// ErrFeesExceedAmount rejects orders whose crypto fee would consume
	// the entire principal. Raised before any vault call.
	ErrFeesExceedAmount       = errors.New("fees would consume the entire principal")
	ErrVaultTransactionFailed = errors.New("vault transaction failed")
)

// ServiceError carries an error variant reported by the order service,
// propagated verbatim for display.
type ServiceError struct {
	Variant string
	Detail  string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return e.Variant
	}
	return fmt.Sprintf("%s: %s", e.Variant, e.Detail)
}

// OrderSubmitError marks the known unreconciled gap: the vault deposit
// succeeded but the paired create_order call failed, leaving funds in
// the vault under the depositor's own address pending a manual
// withdraw. DepositTx identifies the stranded deposit.
type OrderSubmitError struct {
	DepositTx string
	Err       error
}

func (e *OrderSubmitError) Error() string {
	return fmt.Sprintf("order submission failed after deposit %s: funds remain in the vault pending manual withdrawal: %v", e.DepositTx, e.Err)
}

func (e *OrderSubmitError) Unwrap() error { return e.Err }
