package gas

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// Static gas-unit defaults per vault operation. The commit and release
// legs are executed by the order service's privileged caller, so the
// client cannot live-simulate them; these figures are the contract's
// measured costs with headroom.
const (
	DefaultCommitGas        = 90_000
	DefaultReleaseNativeGas = 60_000
	DefaultReleaseTokenGas  = 80_000
)

// serviceFeeBps is the order service's fee policy mirrored for the
// pre-submission guard; the service charges the authoritative fee.
const serviceFeeBps = 50

// Estimator computes pre-flight gas and fee figures for order
// creation. Results are a guard against submitting orders whose fees
// consume the principal, never the authoritative fee.
type Estimator struct {
	logger  *logger.Logger
	evm     models.EVMService
	rates   RateSource
	catalog models.TokenCatalog
}

// RateSource is the rate lookup the fee math needs.
type RateSource interface {
	GetRate(ctx context.Context, currency string, token *models.Token, chain models.Blockchain) (float64, error)
}

// NewEstimator creates a gas/fee estimator.
func NewEstimator(evm models.EVMService, rates RateSource, catalog models.TokenCatalog, logger *logger.Logger) *Estimator {
	return &Estimator{logger: logger, evm: evm, rates: rates, catalog: catalog}
}

// defaultGasUnits returns the static per-operation default.
func defaultGasUnits(op models.OperationKind) (uint64, error) {
	switch op {
	case models.OpCommit:
		return DefaultCommitGas, nil
	case models.OpReleaseNative:
		return DefaultReleaseNativeGas, nil
	case models.OpReleaseToken:
		return DefaultReleaseTokenGas, nil
	default:
		return 0, fmt.Errorf("unknown operation kind %q", op)
	}
}

// EstimateGasAndPrice pairs the operation's static gas units with the
// chain's live gas price.
func (e *Estimator) EstimateGasAndPrice(ctx context.Context, chainID uint64, op models.OperationKind) (models.GasEstimate, error) {
	units, err := defaultGasUnits(op)
	if err != nil {
		return models.GasEstimate{}, err
	}
	price, err := e.evm.SuggestGasPrice(ctx, chainID)
	if err != nil {
		return models.GasEstimate{}, fmt.Errorf("failed to get gas price for chain %d: %w", chainID, err)
	}
	return models.GasEstimate{GasUnits: units, GasPrice: price}, nil
}

// EstimateDepositGas live-simulates the caller's own deposit and pairs
// it with the live gas price.
func (e *Estimator) EstimateDepositGas(ctx context.Context, chainID uint64, token string, amount *big.Int) (models.GasEstimate, error) {
	units, err := e.evm.EstimateDepositGas(ctx, chainID, token, amount)
	if err != nil {
		return models.GasEstimate{}, err
	}
	price, err := e.evm.SuggestGasPrice(ctx, chainID)
	if err != nil {
		return models.GasEstimate{}, fmt.Errorf("failed to get gas price for chain %d: %w", chainID, err)
	}
	return models.GasEstimate{GasUnits: units, GasPrice: price}, nil
}

// EstimateOrderFees combines the commit and release gas legs with the
// mirrored service-fee policy and converts the total into the order's
// token. Returns the offramper fee in fiat minor units and the total
// crypto fee in token smallest units.
func (e *Estimator) EstimateOrderFees(ctx context.Context, chainID uint64, currency string, fiatAmount, cryptoAmount *big.Int, tokenAddress string, commit, release models.GasEstimate) (*big.Int, *big.Int, error) {
	chain := models.EVMChain(chainID)
	token, ok := e.catalog.Lookup(ctx, chain, tokenAddress)
	if !ok {
		return nil, nil, fmt.Errorf("token %q is not in the catalog for chain %d", tokenAddress, chainID)
	}
	native, ok := e.catalog.Lookup(ctx, chain, "")
	if !ok {
		return nil, nil, fmt.Errorf("no native asset in the catalog for chain %d", chainID)
	}

	// Both gas legs are paid in the native asset.
	gasWei := new(big.Int).Add(commit.Wei(), release.Wei())

	gasFeeUnits := new(big.Int)
	if token.Address == "" {
		gasFeeUnits.Set(gasWei)
	} else {
		// Convert native wei into token smallest units through the two
		// fiat rates.
		nativeRate, err := e.rates.GetRate(ctx, currency, native, chain)
		if err != nil {
			return nil, nil, err
		}
		tokenRate, err := e.rates.GetRate(ctx, currency, token, chain)
		if err != nil {
			return nil, nil, err
		}
		if tokenRate <= 0 {
			return nil, nil, fmt.Errorf("no usable rate for %s", token.RateSymbol)
		}

		gasFiat := decimal.NewFromBigInt(gasWei, int32(-native.Decimals)).Mul(decimal.NewFromFloat(nativeRate))
		gasInToken := gasFiat.Div(decimal.NewFromFloat(tokenRate)).Shift(int32(token.Decimals))
		gasFeeUnits = gasInToken.Ceil().BigInt()
	}

	// Service fee legs: basis points of both amounts.
	serviceCrypto := new(big.Int).Div(new(big.Int).Mul(cryptoAmount, big.NewInt(serviceFeeBps)), big.NewInt(10_000))
	offramperFee := new(big.Int).Div(new(big.Int).Mul(fiatAmount, big.NewInt(serviceFeeBps)), big.NewInt(10_000))

	cryptoFee := new(big.Int).Add(gasFeeUnits, serviceCrypto)
	return offramperFee, cryptoFee, nil
}
