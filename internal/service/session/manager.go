package session

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/chat-widget/backend/internal/storage"
)

// StorageKey is where the session identifier lives in the storage scope.
const StorageKey = "chat_session_id"

const randomLength = 9

// Manager hands out a stable per-scope session identifier.
type Manager struct {
	mu    sync.Mutex
	scope storage.Scope
	now   func() time.Time
}

// NewManager binds a manager to the given storage scope.
func NewManager(scope storage.Scope) *Manager {
	return &Manager{scope: scope, now: time.Now}
}

// ID returns the stored session id, creating and persisting one on first use.
func (m *Manager) ID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok, err := m.scope.Get(ctx, StorageKey)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if ok && len(raw) > 0 {
		return string(raw), nil
	}
	return m.generateLocked(ctx)
}

// Reset unconditionally replaces the session id with a fresh one.
func (m *Manager) Reset(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateLocked(ctx)
}

func (m *Manager) generateLocked(ctx context.Context) (string, error) {
	id := newID(m.now())
	if err := m.scope.Set(ctx, StorageKey, []byte(id)); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	return id, nil
}

// newID combines a millisecond timestamp with nine base36 characters of
// random entropy taken from a v4 UUID.
func newID(now time.Time) string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	random := n.Text(36)
	if len(random) < randomLength {
		random = strings.Repeat("0", randomLength-len(random)) + random
	}
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), random[len(random)-randomLength:])
}
