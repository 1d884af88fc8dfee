package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

const ledgerTimeout = 30 * time.Second

// Ledger is the identity-chain client. It talks to the chain's HTTP
// gateway under the delegated identity established at login; the
// delegation itself rides on the transport, so no per-call proof is
// attached here.
type Ledger struct {
	logger  *logger.Logger
	baseURL string
	// vaultPrincipal is the order service's escrow account transfers go to.
	vaultPrincipal string
	client         *http.Client
}

var _ models.LedgerService = (*Ledger)(nil)

// NewLedger creates a ledger client against the chain gateway URL.
func NewLedger(baseURL, vaultPrincipal string, logger *logger.Logger) *Ledger {
	return &Ledger{
		logger:         logger,
		baseURL:        baseURL,
		vaultPrincipal: vaultPrincipal,
		client: &http.Client{
			Timeout: ledgerTimeout,
		},
	}
}

func (l *Ledger) post(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode ledger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger gateway returned status %d for %s", resp.StatusCode, endpoint)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("malformed ledger response: %w", err)
		}
	}
	return nil
}

func (l *Ledger) Balance(ctx context.Context, ledgerPrincipal, account string) (*big.Int, error) {
	var result struct {
		Balance *models.BigInt `json:"balance"`
	}
	err := l.post(ctx, "/account_balance", map[string]string{
		"ledger":  ledgerPrincipal,
		"account": account,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Balance.Int, nil
}

func (l *Ledger) TransferFee(ctx context.Context, ledgerPrincipal string) (*big.Int, error) {
	var result struct {
		Fee *models.BigInt `json:"fee"`
	}
	err := l.post(ctx, "/transfer_fee", map[string]string{
		"ledger": ledgerPrincipal,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Fee.Int, nil
}

// TransferToVault sends amount plus the ledger fee to the service's
// escrow account. The gateway replies only once the transfer is final,
// so a returned block index means the funds have moved.
func (l *Ledger) TransferToVault(ctx context.Context, ledgerPrincipal string, amount *big.Int) (uint64, error) {
	fee, err := l.TransferFee(ctx, ledgerPrincipal)
	if err != nil {
		return 0, fmt.Errorf("failed to look up ledger fee: %w", err)
	}
	total := new(big.Int).Add(amount, fee)

	var result struct {
		BlockIndex uint64 `json:"block_index"`
	}
	err = l.post(ctx, "/transfer", map[string]interface{}{
		"ledger": ledgerPrincipal,
		"to":     l.vaultPrincipal,
		"amount": models.NewBigInt(total),
		"fee":    models.NewBigInt(fee),
	}, &result)
	if err != nil {
		return 0, err
	}
	l.logger.Info("Ledger transfer finalized at block ", result.BlockIndex)
	return result.BlockIndex, nil
}

func (l *Ledger) RevokeDelegation(ctx context.Context) error {
	return l.post(ctx, "/revoke_delegation", map[string]string{}, nil)
}
