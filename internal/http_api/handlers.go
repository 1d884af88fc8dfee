package http_api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/internal/orders"
	"github.com/rampline/rampline/pkg/validation"
)

// CredentialRequest is the JSON shape of a credential.
type CredentialRequest struct {
	Kind  string `json:"kind" binding:"required,oneof=evm principal email"`
	Value string `json:"value" binding:"required"`
}

func (r *CredentialRequest) toCredential() (models.Credential, error) {
	credential := models.Credential{Kind: models.CredentialKind(r.Kind), Value: r.Value}
	switch credential.Kind {
	case models.CredentialEVM:
		return credential, validation.ValidateEVMAddress(r.Value)
	case models.CredentialPrincipal:
		return credential, validation.ValidatePrincipal(r.Value)
	case models.CredentialEmail:
		return credential, validation.ValidateEmail(r.Value)
	}
	return credential, nil
}

// ChallengeResponse carries the challenge an EVM credential must sign;
// empty for credential kinds that need no challenge round-trip.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
}

// LoginRequest is the JSON body for authentication.
type LoginRequest struct {
	Credential CredentialRequest `json:"credential" binding:"required"`
	Signature  string            `json:"signature"`
	Password   string            `json:"password"`
}

// RegisterRequest is the JSON body for user registration.
type RegisterRequest struct {
	UserType   string                   `json:"user_type" binding:"required,oneof=offramper onramper"`
	Credential CredentialRequest        `json:"credential" binding:"required"`
	Password   string                   `json:"password"`
	Providers  []models.PaymentProvider `json:"providers"`
}

// CreateOrderRequest is the JSON body for order creation.
type CreateOrderRequest struct {
	ChainKind       string                   `json:"chain_kind" binding:"required,oneof=evm ledger solana"`
	ChainID         uint64                   `json:"chain_id"`
	LedgerPrincipal string                   `json:"ledger_principal"`
	Token           string                   `json:"token"`
	FiatAmount      string                   `json:"fiat_amount" binding:"required"`
	Currency        string                   `json:"currency" binding:"required"`
	CryptoAmount    string                   `json:"crypto_amount" binding:"required"`
	Providers       []models.PaymentProvider `json:"providers" binding:"required,min=1"`
}

// LockRequest is the JSON body for locking an order.
type LockRequest struct {
	Provider models.PaymentProvider `json:"provider" binding:"required"`
	Gas      *uint64                `json:"gas"`
}

// VerifyRequest is the JSON body for settling a locked order.
type VerifyRequest struct {
	ProviderTxID string  `json:"provider_tx_id" binding:"required"`
	Gas          *uint64 `json:"gas"`
}

// PasswordRequest is the JSON body for a password update.
type PasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// respondError maps the error taxonomy onto HTTP statuses. Service
// variants are stringified here, exactly once.
func (s *HTTPServer) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"success": false, "error": err.Error()}

	switch {
	case errors.Is(err, models.ErrUserNotFound):
		status = http.StatusNotFound
		body["registration_required"] = true
	case errors.Is(err, models.ErrInvalidPassword), errors.Is(err, models.ErrUnauthorizedPrincipal):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrSessionExpired), errors.Is(err, models.ErrSessionNotSet):
		status = http.StatusUnauthorized
		body["logged_out"] = true
	case errors.Is(err, models.ErrFeesExceedAmount),
		errors.Is(err, models.ErrUnsupportedChain),
		errors.Is(err, models.ErrNoAddressForBlockchain):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrVaultTransactionFailed):
		status = http.StatusBadGateway
	default:
		var serviceErr *models.ServiceError
		if errors.As(err, &serviceErr) {
			status = http.StatusUnprocessableEntity
		}
	}

	s.logger.Debug("Request failed: ", err)
	c.JSON(status, body)
}

func (s *HTTPServer) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "Invalid request body: " + err.Error(),
	})
}

// beginChallenge is a handler for the /auth/challenge endpoint.
func (s *HTTPServer) beginChallenge(c *gin.Context) {
	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	credential, err := req.toCredential()
	if err != nil {
		s.bindError(c, err)
		return
	}

	challenge, err := s.auth.BeginChallenge(c.Request.Context(), credential)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ChallengeResponse{Challenge: challenge})
}

// signChallenge signs the credential's auth challenge with the
// configured wallet. Only valid when the wallet address matches the
// credential.
func (s *HTTPServer) signChallenge(ctx context.Context, credential models.Credential) (string, error) {
	if s.signer == nil {
		return "", errors.New("no wallet configured and no signature supplied")
	}
	if !strings.EqualFold(s.signer.Address(), credential.Value) {
		return "", errors.New("configured wallet does not hold this address")
	}
	challenge, err := s.auth.BeginChallenge(ctx, credential)
	if err != nil {
		return "", err
	}
	return s.signer.SignMessage(ctx, challenge)
}

// login is a handler for the /auth/login endpoint.
func (s *HTTPServer) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	credential, err := req.Credential.toCredential()
	if err != nil {
		s.bindError(c, err)
		return
	}

	// An EVM login without a signature falls back to the configured
	// wallet: fetch the challenge and sign it locally.
	if credential.Kind == models.CredentialEVM && req.Signature == "" {
		signature, err := s.signChallenge(c.Request.Context(), credential)
		if err != nil {
			s.respondError(c, err)
			return
		}
		req.Signature = signature
	}

	user, err := s.auth.ProveAndAuthenticate(c.Request.Context(), credential, models.Proof{
		Signature: req.Signature,
		Password:  req.Password,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// register is a handler for the /auth/register endpoint.
func (s *HTTPServer) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	credential, err := req.Credential.toCredential()
	if err != nil {
		s.bindError(c, err)
		return
	}

	user, err := s.auth.Register(c.Request.Context(), models.UserType(req.UserType), req.Providers, credential, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// beginRegister is a handler for the /auth/register/begin endpoint.
// The registration is parked under a single-use confirmation token
// instead of being submitted right away.
func (s *HTTPServer) beginRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	if _, err := req.Credential.toCredential(); err != nil {
		s.bindError(c, err)
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	token, err := s.auth.StashPending("registration", string(payload))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"confirmation_token": token})
}

// ConfirmRequest is the JSON body for confirming a parked registration.
type ConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// confirmRegister is a handler for the /auth/register/confirm
// endpoint. The token is consumed whether or not registration
// succeeds.
func (s *HTTPServer) confirmRegister(c *gin.Context) {
	var confirm ConfirmRequest
	if err := c.ShouldBindJSON(&confirm); err != nil {
		s.bindError(c, err)
		return
	}

	pending, err := s.auth.TakePending(confirm.Token)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	}
	var req RegisterRequest
	if err := json.Unmarshal([]byte(pending.Payload), &req); err != nil {
		s.respondError(c, err)
		return
	}
	credential, err := req.Credential.toCredential()
	if err != nil {
		s.bindError(c, err)
		return
	}

	user, err := s.auth.Register(c.Request.Context(), models.UserType(req.UserType), req.Providers, credential, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// logout is a handler for the /auth/logout endpoint.
func (s *HTTPServer) logout(c *gin.Context) {
	s.auth.Logout(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// currentUser is a handler for the /auth/user endpoint.
func (s *HTTPServer) currentUser(c *gin.Context) {
	user := s.auth.CurrentUser()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// updatePassword is a handler for the /auth/password endpoint.
func (s *HTTPServer) updatePassword(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	if err := s.auth.UpdatePassword(c.Request.Context(), req.Password); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// addPaymentProvider is a handler for the /auth/providers endpoint.
func (s *HTTPServer) addPaymentProvider(c *gin.Context) {
	var provider models.PaymentProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		s.bindError(c, err)
		return
	}
	if err := s.auth.AddPaymentProvider(c.Request.Context(), provider); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.auth.CurrentUser())
}

// addTransactionAddress is a handler for the /auth/addresses endpoint.
func (s *HTTPServer) addTransactionAddress(c *gin.Context) {
	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	credential, err := req.toCredential()
	if err != nil {
		s.bindError(c, err)
		return
	}
	address := models.TransactionAddress{Kind: credential.Kind, Address: credential.Value}
	if err := s.auth.AddTransactionAddress(c.Request.Context(), address); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.auth.CurrentUser())
}

func (r *CreateOrderRequest) toChain() (models.Blockchain, error) {
	switch models.ChainKind(r.ChainKind) {
	case models.ChainEVM:
		return models.EVMChain(r.ChainID), nil
	case models.ChainLedger:
		if err := validation.ValidatePrincipal(r.LedgerPrincipal); err != nil {
			return models.Blockchain{}, err
		}
		return models.LedgerChain(r.LedgerPrincipal), nil
	default:
		return models.Blockchain{Kind: models.ChainKind(r.ChainKind)}, nil
	}
}

// createOrder is a handler for POST /orders.
func (s *HTTPServer) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	chain, err := req.toChain()
	if err != nil {
		s.bindError(c, err)
		return
	}
	fiatAmount, ok := new(big.Int).SetString(req.FiatAmount, 10)
	if !ok {
		s.bindError(c, errors.New("fiat_amount must be a base-10 integer"))
		return
	}
	cryptoAmount, ok := new(big.Int).SetString(req.CryptoAmount, 10)
	if !ok {
		s.bindError(c, errors.New("crypto_amount must be a base-10 integer"))
		return
	}

	orderID, err := s.orchestrator.CreateOrder(c.Request.Context(), &orders.CreateRequest{
		Chain:        chain,
		Token:        req.Token,
		FiatAmount:   fiatAmount,
		Currency:     req.Currency,
		CryptoAmount: cryptoAmount,
		Providers:    req.Providers,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order_id": orderID})
}

func orderID(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// lockOrder is a handler for POST /orders/:id/lock.
func (s *HTTPServer) lockOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.bindError(c, err)
		return
	}
	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	txRef, err := s.orchestrator.LockOrder(c.Request.Context(), id, req.Provider, req.Gas)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tx_ref": txRef})
}

// verifyOrder is a handler for POST /orders/:id/verify.
func (s *HTTPServer) verifyOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.bindError(c, err)
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	if err := s.orchestrator.VerifyTransaction(c.Request.Context(), id, req.ProviderTxID, req.Gas); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// cancelOrder is a handler for POST /orders/:id/cancel.
func (s *HTTPServer) cancelOrder(c *gin.Context) {
	id, err := orderID(c)
	if err != nil {
		s.bindError(c, err)
		return
	}

	if err := s.orchestrator.CancelOrder(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// listOrders is a handler for GET /orders. Filter parameters are
// mutually exclusive; the first recognized one wins.
func (s *HTTPServer) listOrders(c *gin.Context) {
	var filter *models.OrderFilter
	switch {
	case c.Query("state") != "":
		filter = &models.OrderFilter{Kind: models.FilterByState, Status: models.OrderStatus(c.Query("state"))}
	case c.Query("offramper_address") != "":
		filter = &models.OrderFilter{Kind: models.FilterByOfframperAddress, Address: c.Query("offramper_address")}
	case c.Query("onramper_address") != "":
		filter = &models.OrderFilter{Kind: models.FilterByLockedOnramper, Address: c.Query("onramper_address")}
	case c.Query("chain_id") != "":
		chainID, err := strconv.ParseUint(c.Query("chain_id"), 10, 64)
		if err != nil {
			s.bindError(c, err)
			return
		}
		chain := models.EVMChain(chainID)
		filter = &models.OrderFilter{Kind: models.FilterByChain, Chain: &chain}
	}

	var page, pageSize *uint32
	if v, err := strconv.ParseUint(c.DefaultQuery("page", ""), 10, 32); err == nil {
		p := uint32(v)
		page = &p
	}
	if v, err := strconv.ParseUint(c.DefaultQuery("page_size", ""), 10, 32); err == nil {
		p := uint32(v)
		pageSize = &p
	}

	states, err := s.orchestrator.GetOrders(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, states)
}

// WithdrawRequest is the JSON body for a manual vault withdrawal.
type WithdrawRequest struct {
	ChainID uint64 `json:"chain_id" binding:"required"`
	Token   string `json:"token"`
	Amount  string `json:"amount" binding:"required"`
}

// withdrawDeposit is a handler for POST /vault/withdraw.
func (s *HTTPServer) withdrawDeposit(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		s.bindError(c, errors.New("amount must be a positive base-10 integer"))
		return
	}

	txHash, err := s.orchestrator.WithdrawDeposit(c.Request.Context(), req.ChainID, req.Token, amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tx_hash": txHash})
}

// fetchBalances is a handler for GET /balances.
func (s *HTTPServer) fetchBalances(c *gin.Context) {
	account := c.Query("account")
	if account == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account is required"})
		return
	}

	var chain models.Blockchain
	if principal := c.Query("ledger"); principal != "" {
		if err := validation.ValidatePrincipal(principal); err != nil {
			s.bindError(c, err)
			return
		}
		chain = models.LedgerChain(principal)
	} else {
		chainID, err := strconv.ParseUint(c.Query("chain_id"), 10, 64)
		if err != nil {
			s.bindError(c, errors.New("chain_id or ledger is required"))
			return
		}
		if err := validation.ValidateEVMAddress(account); err != nil {
			s.bindError(c, err)
			return
		}
		chain = models.EVMChain(chainID)
	}

	result, err := s.balances.FetchBalances(c.Request.Context(), account, chain)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getRate is a handler for GET /rates.
func (s *HTTPServer) getRate(c *gin.Context) {
	currency := c.Query("currency")
	tokenAddress := c.Query("token")
	if currency == "" {
		// Fall back to the stored preferred display currency.
		stored, err := s.repo.PreferredCurrency()
		if err != nil {
			s.respondError(c, err)
			return
		}
		currency = stored
	}
	if currency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency is required and no preferred currency is set"})
		return
	}

	var chain models.Blockchain
	if principal := c.Query("ledger"); principal != "" {
		chain = models.LedgerChain(principal)
	} else {
		chainID, err := strconv.ParseUint(c.Query("chain_id"), 10, 64)
		if err != nil {
			s.bindError(c, errors.New("chain_id or ledger is required"))
			return
		}
		chain = models.EVMChain(chainID)
	}

	token, ok := s.catalog.Lookup(c.Request.Context(), chain, tokenAddress)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found in catalog"})
		return
	}

	rate, err := s.rates.GetRate(c.Request.Context(), currency, token, chain)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate": rate, "symbol": token.RateSymbol, "currency": currency})
}

// CurrencyRequest is the payload for PUT /settings/currency.
type CurrencyRequest struct {
	Currency string `json:"currency" binding:"required"`
}

// getPreferredCurrency is a handler for GET /settings/currency.
func (s *HTTPServer) getPreferredCurrency(c *gin.Context) {
	currency, err := s.repo.PreferredCurrency()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": currency})
}

// setPreferredCurrency is a handler for PUT /settings/currency.
func (s *HTTPServer) setPreferredCurrency(c *gin.Context) {
	var req CurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency is required"})
		return
	}
	if err := s.repo.SetPreferredCurrency(currency); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currency": currency})
}
