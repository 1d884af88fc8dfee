package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// RenewalMargin is how close to expiry a session stops being usable,
// so an operation never races an expiring token mid-flight.
const RenewalMargin = 4 * time.Minute

// Manager owns the authenticated session: challenge issuance, proof
// exchange, durable persistence, refresh and teardown. It is the
// explicit session context threaded into every operation that needs
// one.
type Manager struct {
	logger  *logger.Logger
	service models.OrderService
	// ledger may be nil when the identity chain is not configured.
	ledger models.LedgerService
	repo   models.Repository

	mu   sync.RWMutex
	user *models.User
}

// NewManager creates an authentication manager.
func NewManager(service models.OrderService, ledger models.LedgerService, repo models.Repository, logger *logger.Logger) *Manager {
	return &Manager{logger: logger, service: service, ledger: ledger, repo: repo}
}

// CurrentUser returns the authenticated user, nil when logged out.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// IsExpired reports whether the user has no usable session: none at
// all, or one ending within the renewal margin.
func (m *Manager) IsExpired(user *models.User) bool {
	if user == nil || user.Session == nil {
		return true
	}
	return user.Session.ExpiresWithin(RenewalMargin)
}

// ValidSession returns the current session if it is usable, and
// ErrSessionExpired otherwise (after tearing the stale session down).
func (m *Manager) ValidSession(ctx context.Context) (*models.Session, error) {
	user := m.CurrentUser()
	if m.IsExpired(user) {
		if user != nil {
			// An expired session must trigger logout before any
			// authenticated call.
			m.Logout(ctx)
		}
		return nil, models.ErrSessionExpired
	}
	return user.Session, nil
}

// BeginChallenge requests the one-time challenge an EVM credential
// must sign. Identity-chain and email credentials need no challenge
// round-trip and yield an empty challenge.
func (m *Manager) BeginChallenge(ctx context.Context, credential models.Credential) (string, error) {
	switch credential.Kind {
	case models.CredentialEVM:
		message, err := m.service.GenerateAuthMessage(ctx, credential)
		if err != nil {
			return "", fmt.Errorf("failed to obtain auth challenge: %w", err)
		}
		return message, nil
	case models.CredentialPrincipal, models.CredentialEmail:
		return "", nil
	default:
		return "", fmt.Errorf("unknown credential kind %q", credential.Kind)
	}
}

// ProveAndAuthenticate exchanges the credential and its proof for an
// authenticated user and persists the session. Either a full valid
// session is stored, or none is.
func (m *Manager) ProveAndAuthenticate(ctx context.Context, credential models.Credential, proof models.Proof) (*models.User, error) {
	user, err := m.service.AuthenticateUser(ctx, credential, proof)
	if err != nil {
		// ErrUserNotFound redirects the caller into registration;
		// ErrInvalidPassword and ErrUnauthorizedPrincipal fail without
		// touching any prior session.
		return nil, err
	}

	if err := m.adoptUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Register creates a new user and adopts its session like a login.
func (m *Manager) Register(ctx context.Context, userType models.UserType, providers []models.PaymentProvider, credential models.Credential, password string) (*models.User, error) {
	for _, p := range providers {
		if err := p.Validate(userType); err != nil {
			return nil, err
		}
	}

	user, err := m.service.RegisterUser(ctx, userType, providers, credential, password)
	if err != nil {
		return nil, err
	}

	if err := m.adoptUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// adoptUser validates the session on the response, persists it and
// installs it in memory. On any failure no session state survives.
func (m *Manager) adoptUser(user *models.User) error {
	if user.Session == nil || user.Session.Token == "" {
		return models.ErrSessionNotSet
	}

	snapshot, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to serialize user: %w", err)
	}
	record := &models.StoredSession{
		UserID:    user.ID,
		Token:     user.Session.Token,
		ExpiresAt: user.Session.ExpiresAt.Unix(),
		UserJSON:  string(snapshot),
	}
	if err := m.repo.SaveSession(record); err != nil {
		m.mu.Lock()
		m.user = nil
		m.mu.Unlock()
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return nil
}

// Resume silently restores a persisted session at startup and
// reconciles it against the service. Any failure just leaves the
// manager logged out.
func (m *Manager) Resume(ctx context.Context) (*models.User, error) {
	record, err := m.repo.LoadSession()
	if err != nil || record == nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(record.UserJSON), &user); err != nil {
		m.logger.Warn("Discarding unreadable stored session: ", err)
		_ = m.repo.ClearSession()
		return nil, nil
	}
	if m.IsExpired(&user) {
		_ = m.repo.ClearSession()
		return nil, nil
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()

	// The local copy is only a cache; trust the service's answer.
	refreshed, err := m.RefreshUser(ctx)
	if err != nil {
		return nil, nil
	}
	return refreshed, nil
}

// RefreshUser re-fetches the current user under its session token. Any
// service-reported failure logs the session out.
func (m *Manager) RefreshUser(ctx context.Context) (*models.User, error) {
	user := m.CurrentUser()
	if user == nil || user.Session == nil {
		return nil, models.ErrSessionExpired
	}

	fresh, err := m.service.RefetchUser(ctx, user.ID, user.Session.Token)
	if err != nil {
		m.logger.Warn("User refresh failed, logging out: ", err)
		m.Logout(ctx)
		return nil, err
	}
	if fresh.Session == nil {
		// The service does not re-issue the token on refetch; the
		// existing session stays.
		fresh.Session = user.Session
	}

	if err := m.adoptUser(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Logout revokes any identity-chain delegation (best-effort) and
// clears in-memory and durable session state. Idempotent; never
// returns an error.
func (m *Manager) Logout(ctx context.Context) {
	if m.ledger != nil {
		if err := m.ledger.RevokeDelegation(ctx); err != nil {
			m.logger.Warn("Failed to revoke identity delegation: ", err)
		}
	}

	if err := m.repo.ClearSession(); err != nil {
		m.logger.Warn("Failed to clear stored session: ", err)
	}

	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
}

// AddPaymentProvider registers a new payment rail and refreshes the
// cached user.
func (m *Manager) AddPaymentProvider(ctx context.Context, provider models.PaymentProvider) error {
	session, err := m.ValidSession(ctx)
	if err != nil {
		return err
	}
	user := m.CurrentUser()
	if err := provider.Validate(user.Type); err != nil {
		return err
	}
	if err := m.service.AddPaymentProvider(ctx, user.ID, session.Token, provider); err != nil {
		return err
	}
	_, err = m.RefreshUser(ctx)
	return err
}

// AddTransactionAddress registers a new tagged address and refreshes
// the cached user.
func (m *Manager) AddTransactionAddress(ctx context.Context, address models.TransactionAddress) error {
	session, err := m.ValidSession(ctx)
	if err != nil {
		return err
	}
	user := m.CurrentUser()
	if err := m.service.AddTransactionAddress(ctx, user.ID, session.Token, address); err != nil {
		return err
	}
	_, err = m.RefreshUser(ctx)
	return err
}

// UpdatePassword changes the email credential's password.
func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	session, err := m.ValidSession(ctx)
	if err != nil {
		return err
	}
	return m.service.UpdatePassword(ctx, m.CurrentUser().ID, session.Token, newPassword)
}

// StashPending stores a short-lived registration or password-reset
// payload and returns its single-use confirmation token.
func (m *Manager) StashPending(kind, payload string) (string, error) {
	token := uuid.NewString()
	err := m.repo.PutPendingPayload(&models.PendingPayload{
		Token:   token,
		Kind:    kind,
		Payload: payload,
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// TakePending consumes a pending payload; a second take of the same
// token finds nothing.
func (m *Manager) TakePending(token string) (*models.PendingPayload, error) {
	payload, err := m.repo.TakePendingPayload(token)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("confirmation token is unknown or already used")
	}
	return payload, nil
}
