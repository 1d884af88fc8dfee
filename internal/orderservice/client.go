package orderservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Client is the HTTP client for the remote authoritative order
// service. Every response uses an Ok/Err envelope; Err carries a
// tagged variant that is mapped onto the local error taxonomy where a
// sentinel exists and wrapped in *models.ServiceError otherwise.
type Client struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client
}

var _ models.OrderService = (*Client)(nil)

// NewClient creates a new order service client.
func NewClient(baseURL string, logger *logger.Logger) *Client {
	return &Client{
		logger:  logger,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// envelope is the service's Ok/Err result wrapper.
type envelope struct {
	Ok  json.RawMessage `json:"ok,omitempty"`
	Err *envelopeError  `json:"err,omitempty"`
}

type envelopeError struct {
	Variant string `json:"variant"`
	Detail  string `json:"detail,omitempty"`
}

// toError maps service error variants onto the local taxonomy.
func (e *envelopeError) toError() error {
	switch e.Variant {
	case "UserNotFound":
		return models.ErrUserNotFound
	case "InvalidPassword":
		return models.ErrInvalidPassword
	case "UnauthorizedPrincipal":
		return models.ErrUnauthorizedPrincipal
	case "SessionExpired":
		return models.ErrSessionExpired
	default:
		return &models.ServiceError{Variant: e.Variant, Detail: e.Detail}
	}
}

// call posts the request body to the endpoint and decodes the Ok
// payload into out (out may be nil for void results).
func (c *Client) call(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("order service unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("order service returned status %d for %s", resp.StatusCode, endpoint)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("malformed %s response: %w", endpoint, err)
	}
	if env.Err != nil {
		return env.Err.toError()
	}
	if out != nil {
		if env.Ok == nil {
			return fmt.Errorf("empty %s response", endpoint)
		}
		if err := json.Unmarshal(env.Ok, out); err != nil {
			return fmt.Errorf("malformed %s payload: %w", endpoint, err)
		}
	}
	return nil
}

func (c *Client) GenerateAuthMessage(ctx context.Context, credential models.Credential) (string, error) {
	var message string
	err := c.call(ctx, "/generate_evm_auth_message", map[string]interface{}{
		"credential": credential,
	}, &message)
	if err != nil {
		return "", err
	}
	return message, nil
}

func (c *Client) AuthenticateUser(ctx context.Context, credential models.Credential, proof models.Proof) (*models.User, error) {
	var user models.User
	err := c.call(ctx, "/authenticate_user", map[string]interface{}{
		"credential": credential,
		"proof":      proof,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) RegisterUser(ctx context.Context, userType models.UserType, providers []models.PaymentProvider, credential models.Credential, password string) (*models.User, error) {
	var user models.User
	err := c.call(ctx, "/register_user", map[string]interface{}{
		"user_type":  userType,
		"providers":  providers,
		"credential": credential,
		"password":   password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) RefetchUser(ctx context.Context, userID, sessionToken string) (*models.User, error) {
	var user models.User
	err := c.call(ctx, "/refetch_user", map[string]interface{}{
		"user_id":       userID,
		"session_token": sessionToken,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (uint64, error) {
	var orderID uint64
	err := c.call(ctx, "/create_order", map[string]interface{}{
		"session_token": req.SessionToken,
		"user_id":       req.UserID,
		"fiat_amount":   req.FiatAmount,
		"currency":      req.Currency,
		"providers":     req.Providers,
		"blockchain":    req.Chain,
		"token":         req.Token,
		"crypto_amount": req.CryptoAmount,
		"address":       req.Address,
		"gas_lock":      req.GasLock,
		"gas_release":   req.GasRelease,
	}, &orderID)
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

func (c *Client) LockOrder(ctx context.Context, sessionToken string, orderID uint64, provider models.PaymentProvider, address string, gasOverride *uint64) (string, error) {
	var txRef string
	err := c.call(ctx, "/lock_order", map[string]interface{}{
		"session_token": sessionToken,
		"order_id":      orderID,
		"provider":      provider,
		"address":       address,
		"gas":           gasOverride,
	}, &txRef)
	if err != nil {
		return "", err
	}
	return txRef, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, sessionToken string, orderID uint64, providerTxID string, gasOverride *uint64) error {
	return c.call(ctx, "/verify_transaction", map[string]interface{}{
		"session_token":  sessionToken,
		"order_id":       orderID,
		"provider_tx_id": providerTxID,
		"gas":            gasOverride,
	}, nil)
}

func (c *Client) CancelOrder(ctx context.Context, sessionToken string, orderID uint64) error {
	return c.call(ctx, "/cancel_order", map[string]interface{}{
		"session_token": sessionToken,
		"order_id":      orderID,
	}, nil)
}

func (c *Client) GetOrders(ctx context.Context, filter *models.OrderFilter, page, pageSize *uint32) ([]models.OrderState, error) {
	var orders []models.OrderState
	err := c.call(ctx, "/get_orders", map[string]interface{}{
		"filter":    filter,
		"page":      page,
		"page_size": pageSize,
	}, &orders)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetExchangeRate(ctx context.Context, currency, tokenSymbol string) (float64, error) {
	var rate float64
	err := c.call(ctx, "/get_exchange_rate", map[string]interface{}{
		"currency": currency,
		"token":    tokenSymbol,
	}, &rate)
	if err != nil {
		return 0, err
	}
	return rate, nil
}

func (c *Client) AddPaymentProvider(ctx context.Context, userID, sessionToken string, provider models.PaymentProvider) error {
	return c.call(ctx, "/add_user_payment_provider", map[string]interface{}{
		"user_id":       userID,
		"session_token": sessionToken,
		"provider":      provider,
	}, nil)
}

func (c *Client) AddTransactionAddress(ctx context.Context, userID, sessionToken string, address models.TransactionAddress) error {
	return c.call(ctx, "/add_user_transaction_address", map[string]interface{}{
		"user_id":       userID,
		"session_token": sessionToken,
		"address":       address,
	}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, userID, sessionToken, newPassword string) error {
	return c.call(ctx, "/update_password", map[string]interface{}{
		"user_id":       userID,
		"session_token": sessionToken,
		"password":      newPassword,
	}, nil)
}
