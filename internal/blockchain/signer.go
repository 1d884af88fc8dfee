package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rampline/rampline/internal/models"
)

// EVMSigner signs service-issued challenge messages with the wallet
// key, using the standard personal-message digest so the order service
// can recover the address from the signature.
type EVMSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

var _ models.Signer = (*EVMSigner)(nil)

// NewEVMSigner parses a hex private key into a signer.
func NewEVMSigner(privateKeyHex string) (*EVMSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet private key: %w", err)
	}
	return &EVMSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

func (s *EVMSigner) Address() string { return s.address }

func (s *EVMSigner) SignMessage(_ context.Context, message string) (string, error) {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	digest := crypto.Keccak256([]byte(prefixed))

	signature, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge: %w", err)
	}
	// Recovery id shifted to 27/28 as wallets emit it.
	signature[64] += 27
	return hexutil.Encode(signature), nil
}
