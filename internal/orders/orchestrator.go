package orders

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rampline/rampline/internal/auth"
	"github.com/rampline/rampline/internal/gas"
	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// CreateRequest is a user's order submission before any on-chain or
// service interaction.
type CreateRequest struct {
	Chain models.Blockchain
	// Token is the contract address; empty for the native asset.
	Token string
	// FiatAmount is the asking price in the currency's minor unit.
	FiatAmount *big.Int
	Currency   string
	// CryptoAmount is the escrow amount in smallest on-chain units.
	CryptoAmount *big.Int
	// Providers are the payment rails the offramper accepts.
	Providers []models.PaymentProvider
}

// Orchestrator drives the order state machine end to end against the
// vault contracts, the identity-chain ledger and the authoritative
// order service. Sequencing inside each flow is strict; across flows
// the order service is the single serialization point.
type Orchestrator struct {
	logger  *logger.Logger
	auth    *auth.Manager
	service models.OrderService
	evm     models.EVMService
	// ledger may be nil when the identity chain is not configured.
	ledger   models.LedgerService
	gas      *gas.Estimator
	catalog  models.TokenCatalog
	notifier models.NotificationService
}

// NewOrchestrator creates an order lifecycle orchestrator.
func NewOrchestrator(
	authManager *auth.Manager,
	service models.OrderService,
	evm models.EVMService,
	ledger models.LedgerService,
	estimator *gas.Estimator,
	catalog models.TokenCatalog,
	notifier models.NotificationService,
	logger *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		logger:   logger,
		auth:     authManager,
		service:  service,
		evm:      evm,
		ledger:   ledger,
		gas:      estimator,
		catalog:  catalog,
		notifier: notifier,
	}
}

// CreateOrder escrows the funds and submits the order. The vault
// deposit must confirm before create_order is called; a deposit that
// confirms while the submission fails leaves funds in the vault under
// the offramper's own address (surfaced as *models.OrderSubmitError).
func (o *Orchestrator) CreateOrder(ctx context.Context, req *CreateRequest) (uint64, error) {
	session, err := o.auth.ValidSession(ctx)
	if err != nil {
		return 0, err
	}
	user := o.auth.CurrentUser()

	switch req.Chain.Kind {
	case models.ChainEVM, models.ChainLedger:
	default:
		return 0, fmt.Errorf("chain %s: %w", req.Chain, models.ErrUnsupportedChain)
	}

	address, ok := user.AddressFor(req.Chain.CredentialKind())
	if !ok {
		return 0, fmt.Errorf("chain %s: %w", req.Chain, models.ErrNoAddressForBlockchain)
	}

	for _, p := range req.Providers {
		if err := p.Validate(models.UserOfframper); err != nil {
			return 0, err
		}
	}

	providerRefs := make([]models.ProviderRef, 0, len(req.Providers))
	for _, p := range req.Providers {
		providerRefs = append(providerRefs, p.Ref())
	}

	create := &models.CreateOrderRequest{
		SessionToken: session.Token,
		UserID:       user.ID,
		FiatAmount:   models.NewBigInt(req.FiatAmount),
		Currency:     req.Currency,
		Providers:    providerRefs,
		Chain:        req.Chain,
		Token:        req.Token,
		CryptoAmount: models.NewBigInt(req.CryptoAmount),
		Address:      address,
	}

	var depositTx string
	switch req.Chain.Kind {
	case models.ChainEVM:
		depositTx, err = o.depositEVM(ctx, req, address, create)
		if err != nil {
			return 0, err
		}
	case models.ChainLedger:
		if o.ledger == nil {
			return 0, fmt.Errorf("chain %s: %w", req.Chain, models.ErrUnsupportedChain)
		}
		blockIndex, err := o.ledger.TransferToVault(ctx, req.Chain.LedgerPrincipal, req.CryptoAmount)
		if err != nil {
			return 0, fmt.Errorf("ledger escrow transfer failed: %w", err)
		}
		depositTx = fmt.Sprintf("block:%d", blockIndex)
	default:
		return 0, fmt.Errorf("chain %s: %w", req.Chain, models.ErrUnsupportedChain)
	}

	orderID, err := o.service.CreateOrder(ctx, create)
	if err != nil {
		// The escrow already confirmed; there is no compensating
		// transaction. Make the gap loud for a manual withdraw.
		o.logger.Error("Order submission failed after confirmed deposit ",
			depositTx, " on ", req.Chain.String(), " amount ", req.CryptoAmount, " address ", address)
		return 0, &models.OrderSubmitError{DepositTx: depositTx, Err: err}
	}

	o.logger.Info("Order ", orderID, " created on ", req.Chain.String(), " deposit ", depositTx)
	return orderID, nil
}

// depositEVM runs the fee guard and the vault deposit, filling the gas
// estimates on the create request. Returns the deposit tx hash.
func (o *Orchestrator) depositEVM(ctx context.Context, req *CreateRequest, address string, create *models.CreateOrderRequest) (string, error) {
	if o.evm == nil || !o.evm.SupportsChain(req.Chain.ChainID) {
		return "", fmt.Errorf("chain %s: %w", req.Chain, models.ErrUnsupportedChain)
	}
	if _, ok := o.catalog.Lookup(ctx, req.Chain, req.Token); !ok {
		return "", fmt.Errorf("token %q is not in the catalog for chain %s", req.Token, req.Chain)
	}

	commit, err := o.gas.EstimateGasAndPrice(ctx, req.Chain.ChainID, models.OpCommit)
	if err != nil {
		return "", err
	}
	releaseOp := models.OpReleaseNative
	if req.Token != "" {
		releaseOp = models.OpReleaseToken
	}
	release, err := o.gas.EstimateGasAndPrice(ctx, req.Chain.ChainID, releaseOp)
	if err != nil {
		return "", err
	}

	_, cryptoFee, err := o.gas.EstimateOrderFees(ctx, req.Chain.ChainID, req.Currency, req.FiatAmount, req.CryptoAmount, req.Token, commit, release)
	if err != nil {
		return "", err
	}
	if cryptoFee.Cmp(req.CryptoAmount) >= 0 {
		return "", models.ErrFeesExceedAmount
	}

	deposit, err := o.gas.EstimateDepositGas(ctx, req.Chain.ChainID, req.Token, req.CryptoAmount)
	if err != nil {
		return "", err
	}

	var receipt *models.TxReceipt
	if req.Token == "" {
		receipt, err = o.evm.DepositNative(ctx, req.Chain.ChainID, req.CryptoAmount, deposit)
	} else {
		receipt, err = o.evm.DepositToken(ctx, req.Chain.ChainID, req.Token, req.CryptoAmount, deposit)
	}
	if err != nil {
		return "", fmt.Errorf("vault deposit failed: %w", err)
	}
	if !receipt.Succeeded() {
		return "", fmt.Errorf("deposit reverted (tx %s): %w", receipt.Hash, models.ErrVaultTransactionFailed)
	}

	create.GasLock = &commit.GasUnits
	create.GasRelease = &release.GasUnits
	return receipt.Hash, nil
}

// LockOrder reserves a created order for the current onramper with the
// selected payment provider.
func (o *Orchestrator) LockOrder(ctx context.Context, orderID uint64, provider models.PaymentProvider, gasOverride *uint64) (string, error) {
	session, err := o.auth.ValidSession(ctx)
	if err != nil {
		return "", err
	}
	user := o.auth.CurrentUser()
	if user.Type != models.UserOnramper {
		return "", fmt.Errorf("only onrampers can lock orders")
	}

	state, err := o.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if state.Status != models.OrderCreated {
		return "", fmt.Errorf("order %d is %s, not open for locking", orderID, state.Status)
	}

	if !matchProviderType(provider, state.Order.OfframperProviders) {
		return "", fmt.Errorf("offramper does not accept %s payments", provider.Type)
	}

	address, ok := user.AddressFor(state.Order.Chain.CredentialKind())
	if !ok {
		return "", fmt.Errorf("chain %s: %w", state.Order.Chain, models.ErrNoAddressForBlockchain)
	}

	txRef, err := o.service.LockOrder(ctx, session.Token, orderID, provider, address, gasOverride)
	if err != nil {
		return "", err
	}

	o.notify(&state.Order, models.OrderLocked)
	return txRef, nil
}

// matchProviderType compares the onramper's chosen provider against
// the offramper's list by type label only: ids intentionally differ
// per side, each names its own account on the shared rail.
func matchProviderType(provider models.PaymentProvider, accepted []models.ProviderRef) bool {
	for _, ref := range accepted {
		if ref.Type == provider.Type {
			return true
		}
	}
	return false
}

// VerifyTransaction settles a locked order after the off-chain payment
// completed. The service releases the escrow on-chain; the client
// submits no release transaction of its own.
func (o *Orchestrator) VerifyTransaction(ctx context.Context, orderID uint64, providerTxID string, gasOverride *uint64) error {
	session, err := o.auth.ValidSession(ctx)
	if err != nil {
		return err
	}

	if err := o.service.VerifyTransaction(ctx, session.Token, orderID, providerTxID, gasOverride); err != nil {
		return err
	}

	if state, err := o.GetOrder(ctx, orderID); err == nil {
		o.notify(&state.Order, models.OrderCompleted)
	}
	return nil
}

// CancelOrder withdraws a created order's escrow and cancels the
// order. The on-chain uncommit must confirm before cancel_order; if it
// fails the order stays Created.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID uint64) error {
	session, err := o.auth.ValidSession(ctx)
	if err != nil {
		return err
	}
	user := o.auth.CurrentUser()

	state, err := o.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if state.Status != models.OrderCreated {
		return fmt.Errorf("order %d is %s and can no longer be cancelled", orderID, state.Status)
	}

	address, ok := user.AddressFor(state.Order.Chain.CredentialKind())
	if !ok || address != state.Order.OfframperAddress {
		return fmt.Errorf("only the order's offramper can cancel it")
	}

	if state.Order.Chain.Kind == models.ChainEVM {
		if o.evm == nil || !o.evm.SupportsChain(state.Order.Chain.ChainID) {
			return fmt.Errorf("chain %s: %w", state.Order.Chain, models.ErrUnsupportedChain)
		}
		receipt, err := o.evm.UncommitDeposit(ctx, state.Order.Chain.ChainID, state.Order.OfframperAddress, state.Order.Token, &state.Order.CryptoAmount.Int)
		if err != nil {
			return fmt.Errorf("vault uncommit failed: %w", err)
		}
		if !receipt.Succeeded() {
			return fmt.Errorf("uncommit reverted (tx %s): %w", receipt.Hash, models.ErrVaultTransactionFailed)
		}
	}

	if err := o.service.CancelOrder(ctx, session.Token, orderID); err != nil {
		return err
	}

	o.notify(&state.Order, models.OrderCancelled)
	return nil
}

// WithdrawDeposit pulls uncommitted escrow back out of the vault to
// the depositor. This is the manual recovery path for funds stranded
// by a failed order submission.
func (o *Orchestrator) WithdrawDeposit(ctx context.Context, chainID uint64, token string, amount *big.Int) (string, error) {
	if _, err := o.auth.ValidSession(ctx); err != nil {
		return "", err
	}
	if o.evm == nil || !o.evm.SupportsChain(chainID) {
		return "", fmt.Errorf("chain %s: %w", models.EVMChain(chainID), models.ErrUnsupportedChain)
	}

	var receipt *models.TxReceipt
	var err error
	if token == "" {
		receipt, err = o.evm.WithdrawNative(ctx, chainID, amount)
	} else {
		receipt, err = o.evm.WithdrawToken(ctx, chainID, token, amount)
	}
	if err != nil {
		return "", fmt.Errorf("vault withdraw failed: %w", err)
	}
	if !receipt.Succeeded() {
		return "", fmt.Errorf("withdraw reverted (tx %s): %w", receipt.Hash, models.ErrVaultTransactionFailed)
	}

	o.logger.Info("Withdrew ", amount, " from the vault on chain ", chainID, " tx ", receipt.Hash)
	return receipt.Hash, nil
}

// GetOrders queries the service and applies residual client-side
// filtering for filter shapes the service cannot evaluate natively.
func (o *Orchestrator) GetOrders(ctx context.Context, filter *models.OrderFilter, page, pageSize *uint32) ([]models.OrderState, error) {
	states, err := o.service.GetOrders(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	return FilterOrders(states, filter), nil
}

// GetOrder fetches one order's current state by id.
func (o *Orchestrator) GetOrder(ctx context.Context, orderID uint64) (*models.OrderState, error) {
	states, err := o.service.GetOrders(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	for i := range states {
		if states[i].Order.ID == orderID {
			return &states[i], nil
		}
	}
	return nil, fmt.Errorf("order %d not found", orderID)
}

func (o *Orchestrator) notify(order *models.Order, status models.OrderStatus) {
	if o.notifier == nil {
		return
	}
	o.notifier.NotifyOrderEvent(&models.OrderEvent{
		OrderID:  order.ID,
		Status:   status,
		Chain:    order.Chain,
		Amount:   order.CryptoAmount,
		Currency: order.Currency,
	})
}
