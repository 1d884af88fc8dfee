package auth

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rampline/rampline/internal/blockchain"
	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// Well-known throwaway dev key, address 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// authService fakes the order service's credential endpoints.
type authService struct {
	models.OrderService

	challenge string
	user      *models.User
	authErr   error

	challengeCalls int
	lastProof      models.Proof
	registered     *models.User
}

func (s *authService) GenerateAuthMessage(_ context.Context, _ models.Credential) (string, error) {
	s.challengeCalls++
	return s.challenge, nil
}

func (s *authService) AuthenticateUser(_ context.Context, _ models.Credential, proof models.Proof) (*models.User, error) {
	s.lastProof = proof
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.user, nil
}

func (s *authService) RegisterUser(_ context.Context, userType models.UserType, providers []models.PaymentProvider, credential models.Credential, _ string) (*models.User, error) {
	s.registered = &models.User{
		ID:        "new-user",
		Type:      userType,
		Providers: providers,
		Addresses: []models.TransactionAddress{{Kind: credential.Kind, Address: credential.Value}},
		Session:   &models.Session{Token: "reg-token", ExpiresAt: time.Now().Add(time.Hour), Owner: "new-user"},
	}
	return s.registered, nil
}

func (s *authService) RefetchUser(_ context.Context, userID, _ string) (*models.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, models.ErrUserNotFound
	}
	// The service does not re-issue tokens on refetch.
	fresh := *s.user
	fresh.Session = nil
	return &fresh, nil
}

// memRepo is an in-memory session store.
type memRepo struct {
	models.Repository

	session  *models.StoredSession
	pending  map[string]*models.PendingPayload
	failSave bool
}

func newMemRepo() *memRepo {
	return &memRepo{pending: map[string]*models.PendingPayload{}}
}

func (r *memRepo) SaveSession(record *models.StoredSession) error {
	if r.failSave {
		return errors.New("disk full")
	}
	copied := *record
	r.session = &copied
	return nil
}

func (r *memRepo) LoadSession() (*models.StoredSession, error) { return r.session, nil }

func (r *memRepo) ClearSession() error {
	r.session = nil
	return nil
}

func (r *memRepo) PutPendingPayload(payload *models.PendingPayload) error {
	r.pending[payload.Token] = payload
	return nil
}

func (r *memRepo) TakePendingPayload(token string) (*models.PendingPayload, error) {
	payload := r.pending[token]
	delete(r.pending, token)
	return payload, nil
}

// revokeLedger counts delegation teardowns.
type revokeLedger struct {
	models.LedgerService

	revokes int
	err     error
}

func (l *revokeLedger) RevokeDelegation(_ context.Context) error {
	l.revokes++
	return l.err
}

func sessionUser(expiresIn time.Duration) *models.User {
	return &models.User{
		ID:   "user-1",
		Type: models.UserOfframper,
		Addresses: []models.TransactionAddress{
			{Kind: models.CredentialEVM, Address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		},
		FiatVolume: models.NewBigInt(big.NewInt(0).Lsh(big.NewInt(1), 70)),
		Session: &models.Session{
			Token:     "session-token",
			ExpiresAt: time.Now().Add(expiresIn),
			Owner:     "user-1",
		},
	}
}

func TestChallengeLoginPersistsSession(t *testing.T) {
	service := &authService{challenge: "Sign in to the marketplace: nonce 42", user: sessionUser(time.Hour)}
	repo := newMemRepo()
	mgr := NewManager(service, nil, repo, logger.NewNop())

	signer, err := blockchain.NewEVMSigner(testKeyHex)
	require.NoError(t, err)
	credential := models.EVMCredential(signer.Address())

	message, err := mgr.BeginChallenge(context.Background(), credential)
	require.NoError(t, err)
	assert.Equal(t, service.challenge, message)

	signature, err := signer.SignMessage(context.Background(), message)
	require.NoError(t, err)

	user, err := mgr.ProveAndAuthenticate(context.Background(), credential, models.Proof{Signature: signature})
	require.NoError(t, err)
	assert.Equal(t, signature, service.lastProof.Signature)
	assert.Equal(t, user, mgr.CurrentUser())

	session, err := mgr.ValidSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-token", session.Token)

	// The durable snapshot keeps the big-integer fields intact.
	require.NotNil(t, repo.session)
	var stored models.User
	require.NoError(t, json.Unmarshal([]byte(repo.session.UserJSON), &stored))
	assert.Zero(t, stored.FiatVolume.Cmp(&user.FiatVolume.Int))
}

func TestBeginChallengeSkipsNonEVMCredentials(t *testing.T) {
	service := &authService{challenge: "unused"}
	mgr := NewManager(service, nil, newMemRepo(), logger.NewNop())

	for _, credential := range []models.Credential{
		models.PrincipalCredential("aaaaa-aa"),
		models.EmailCredential("jane@example.com"),
	} {
		message, err := mgr.BeginChallenge(context.Background(), credential)
		require.NoError(t, err)
		assert.Empty(t, message)
	}
	assert.Zero(t, service.challengeCalls)
}

func TestAuthenticateRejectsMissingSessionToken(t *testing.T) {
	user := sessionUser(time.Hour)
	user.Session = nil
	service := &authService{user: user}
	repo := newMemRepo()
	mgr := NewManager(service, nil, repo, logger.NewNop())

	_, err := mgr.ProveAndAuthenticate(context.Background(), models.EmailCredential("jane@example.com"), models.Proof{Password: "hunter2"})
	assert.ErrorIs(t, err, models.ErrSessionNotSet)
	assert.Nil(t, mgr.CurrentUser())
	assert.Nil(t, repo.session)
}

func TestNoPartialSessionOnStoreFailure(t *testing.T) {
	service := &authService{user: sessionUser(time.Hour)}
	repo := newMemRepo()
	repo.failSave = true
	mgr := NewManager(service, nil, repo, logger.NewNop())

	_, err := mgr.ProveAndAuthenticate(context.Background(), models.EmailCredential("jane@example.com"), models.Proof{Password: "hunter2"})
	assert.Error(t, err)
	assert.Nil(t, mgr.CurrentUser())
	assert.Nil(t, repo.session)
}

func TestValidSessionExpiresInsideMargin(t *testing.T) {
	// The session outlives the call but ends inside the renewal margin.
	service := &authService{user: sessionUser(RenewalMargin / 2)}
	repo := newMemRepo()
	mgr := NewManager(service, nil, repo, logger.NewNop())

	_, err := mgr.ProveAndAuthenticate(context.Background(), models.EmailCredential("jane@example.com"), models.Proof{Password: "hunter2"})
	require.NoError(t, err)

	_, err = mgr.ValidSession(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionExpired)
	assert.Nil(t, mgr.CurrentUser())
	assert.Nil(t, repo.session)
}

func TestLogoutIsIdempotentAndRevokesDelegation(t *testing.T) {
	service := &authService{user: sessionUser(time.Hour)}
	repo := newMemRepo()
	ledger := &revokeLedger{err: errors.New("gateway unreachable")}
	mgr := NewManager(service, ledger, repo, logger.NewNop())

	_, err := mgr.ProveAndAuthenticate(context.Background(), models.PrincipalCredential("aaaaa-aa"), models.Proof{})
	require.NoError(t, err)

	// A failing revoke never blocks logout.
	mgr.Logout(context.Background())
	mgr.Logout(context.Background())

	assert.Equal(t, 2, ledger.revokes)
	assert.Nil(t, mgr.CurrentUser())
	assert.Nil(t, repo.session)
}

func TestResumeRestoresPersistedSession(t *testing.T) {
	user := sessionUser(time.Hour)
	service := &authService{user: user}
	repo := newMemRepo()

	snapshot, err := json.Marshal(user)
	require.NoError(t, err)
	repo.session = &models.StoredSession{
		ID:        1,
		UserID:    user.ID,
		Token:     user.Session.Token,
		ExpiresAt: user.Session.ExpiresAt.Unix(),
		UserJSON:  string(snapshot),
	}

	mgr := NewManager(service, nil, repo, logger.NewNop())
	resumed, err := mgr.Resume(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resumed)
	assert.Equal(t, user.ID, resumed.ID)
	// RefetchUser carried no session; the stored one survives.
	require.NotNil(t, resumed.Session)
	assert.Equal(t, user.Session.Token, resumed.Session.Token)
}

func TestResumeDiscardsExpiredSession(t *testing.T) {
	user := sessionUser(-time.Hour)
	repo := newMemRepo()
	snapshot, err := json.Marshal(user)
	require.NoError(t, err)
	repo.session = &models.StoredSession{ID: 1, UserID: user.ID, Token: user.Session.Token, UserJSON: string(snapshot)}

	mgr := NewManager(&authService{}, nil, repo, logger.NewNop())
	resumed, err := mgr.Resume(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resumed)
	assert.Nil(t, mgr.CurrentUser())
	assert.Nil(t, repo.session)
}

func TestRegisterValidatesProvidersUpfront(t *testing.T) {
	service := &authService{}
	mgr := NewManager(service, nil, newMemRepo(), logger.NewNop())

	// Revolut offrampers must carry a display name.
	_, err := mgr.Register(context.Background(), models.UserOfframper,
		[]models.PaymentProvider{{Type: models.ProviderRevolut, ID: "rv", Scheme: "revolut"}},
		models.EmailCredential("jane@example.com"), "hunter2")
	assert.Error(t, err)
	assert.Nil(t, service.registered)

	name := "Jane Doe"
	user, err := mgr.Register(context.Background(), models.UserOfframper,
		[]models.PaymentProvider{{Type: models.ProviderRevolut, ID: "rv", Scheme: "revolut", DisplayName: &name}},
		models.EmailCredential("jane@example.com"), "hunter2")
	require.NoError(t, err)
	assert.Equal(t, models.UserOfframper, user.Type)
	assert.Equal(t, user, mgr.CurrentUser())
}

func TestPendingPayloadIsSingleUse(t *testing.T) {
	mgr := NewManager(&authService{}, nil, newMemRepo(), logger.NewNop())

	token, err := mgr.StashPending("registration", `{"email":"jane@example.com"}`)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	payload, err := mgr.TakePending(token)
	require.NoError(t, err)
	assert.Equal(t, "registration", payload.Kind)

	_, err = mgr.TakePending(token)
	assert.Error(t, err)
}
