// package connections owns per (user, provider) authorization state.
//
// All reads and writes of connection state flow through [Manager]; nothing
// else touches the connections table or token fields. Access is serialized
// per (user, provider) key so a token refresh performed for one job is
// observed, not repeated, by a concurrently starting job.
package connections

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/repositories"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// Manager mediates connection lifecycle: connect, validity checks with a
// single refresh attempt, and disconnect.
type Manager struct {
	repo     *repositories.ConnectionRepository
	registry *providers.Registry
	logger   *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a connection manager backed by the given repository and
// provider registry.
func NewManager(repo *repositories.ConnectionRepository, registry *providers.Registry, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		repo:     repo,
		registry: registry,
		logger:   shared.WithLogger(logger, "component", "connections"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// keyLock returns the mutex serializing access to one (user, provider) key.
func (m *Manager) keyLock(userID string, provider models.ProviderID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userID + "|" + string(provider)
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// Connect exchanges an authorization code and persists the resulting connection.
func (m *Manager) Connect(ctx context.Context, userID string, provider models.ProviderID, authCode string) (*models.Connection, error) {
	if userID == "" || authCode == "" {
		return nil, fmt.Errorf("%w: user id and auth code are required", shared.ErrInvalidInput)
	}

	adapter, err := m.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	lock := m.keyLock(userID, provider)
	lock.Lock()
	defer lock.Unlock()

	tokens, err := adapter.Authorize(ctx, authCode)
	if err != nil {
		return nil, err
	}

	conn := &models.Connection{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		Scopes:       tokens.Scopes,
		Status:       models.ConnectionActive,
	}

	if err := m.repo.Upsert(conn); err != nil {
		return nil, err
	}

	m.logger.Info("provider connected", "user", userID, "provider", provider)
	return conn, nil
}

// EnsureValid returns a usable connection for the (user, provider) key.
//
// An expired access token triggers exactly one refresh attempt with the
// stored refresh token; refreshed tokens are persisted before returning. On
// refresh failure the connection is marked expired and the caller receives
// [shared.ErrReauthRequired]. There is no second attempt.
func (m *Manager) EnsureValid(ctx context.Context, userID string, provider models.ProviderID) (*models.Connection, error) {
	lock := m.keyLock(userID, provider)
	lock.Lock()
	defer lock.Unlock()

	conn, err := m.repo.Get(userID, provider)
	if err != nil {
		return nil, err
	}

	if conn.Status == models.ConnectionDisconnected {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrNotConnected, userID, provider)
	}

	if conn.Usable(time.Now()) {
		return conn, nil
	}

	if conn.RefreshToken == "" {
		m.markExpired(userID, provider)
		return nil, fmt.Errorf("%w: no refresh token for %s", shared.ErrReauthRequired, provider)
	}

	adapter, err := m.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	tokens, err := adapter.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		m.markExpired(userID, provider)
		m.logger.Warn("token refresh failed", "user", userID, "provider", provider, "err", err)
		return nil, fmt.Errorf("%w: refresh failed for %s", shared.ErrReauthRequired, provider)
	}

	if err := m.repo.UpdateTokens(userID, provider, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt); err != nil {
		return nil, err
	}

	conn.AccessToken = tokens.AccessToken
	conn.RefreshToken = tokens.RefreshToken
	conn.ExpiresAt = tokens.ExpiresAt
	conn.Status = models.ConnectionActive

	m.logger.Debug("token refreshed", "user", userID, "provider", provider)
	return conn, nil
}

// Disconnect removes the stored connection for the (user, provider) key.
func (m *Manager) Disconnect(userID string, provider models.ProviderID) error {
	lock := m.keyLock(userID, provider)
	lock.Lock()
	defer lock.Unlock()

	if err := m.repo.Delete(userID, provider); err != nil {
		return err
	}

	m.logger.Info("provider disconnected", "user", userID, "provider", provider)
	return nil
}

// Status reports the connection status for every registered provider.
func (m *Manager) Status(userID string) (map[models.ProviderID]models.ConnectionStatus, error) {
	statuses := make(map[models.ProviderID]models.ConnectionStatus)
	for _, id := range m.registry.IDs() {
		statuses[id] = models.ConnectionDisconnected
	}

	conns, err := m.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, conn := range conns {
		status := conn.Status
		if status == models.ConnectionActive && !now.Before(conn.ExpiresAt) && conn.RefreshToken == "" {
			status = models.ConnectionExpired
		}
		statuses[conn.Provider] = status
	}

	return statuses, nil
}

// AuthURL returns the provider's user-facing authorization URL.
func (m *Manager) AuthURL(provider models.ProviderID, state string) (string, error) {
	adapter, err := m.registry.Get(provider)
	if err != nil {
		return "", err
	}
	return adapter.AuthURL(state), nil
}

func (m *Manager) markExpired(userID string, provider models.ProviderID) {
	if err := m.repo.UpdateStatus(userID, provider, models.ConnectionExpired); err != nil {
		m.logger.Error("failed to mark connection expired", "user", userID, "provider", provider, "err", err)
	}
}
