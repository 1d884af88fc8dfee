package blockchain

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewEVMSignerAddress(t *testing.T) {
	signer, err := NewEVMSigner(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", signer.Address())

	// The 0x prefix is accepted too.
	prefixed, err := NewEVMSigner("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), prefixed.Address())

	_, err = NewEVMSigner("not-a-key")
	assert.Error(t, err)
}

func TestSignMessageRecoversToSignerAddress(t *testing.T) {
	signer, err := NewEVMSigner(testKeyHex)
	require.NoError(t, err)

	message := "Sign in to the marketplace: nonce 42"
	signature, err := signer.SignMessage(context.Background(), message)
	require.NoError(t, err)

	raw, err := hexutil.Decode(signature)
	require.NoError(t, err)
	require.Len(t, raw, 65)
	// Wallet-style recovery id.
	assert.GreaterOrEqual(t, raw[64], byte(27))

	raw[64] -= 27
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	pub, err := crypto.SigToPub(crypto.Keccak256([]byte(prefixed)), raw)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub).Hex())
}
