package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

type tokenEntry struct {
	userID    string
	resolved  bool
	expiresAt time.Time
}

// MemoryTokenStore keeps subscription tokens in process memory.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*tokenEntry
	now    func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*tokenEntry), now: time.Now}
}

func (s *MemoryTokenStore) Put(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token]; exists {
		return fmt.Errorf("%w: token collision", domain.ErrConflict)
	}
	entry := &tokenEntry{userID: userID}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.tokens[token] = entry
	return nil
}

func (s *MemoryTokenStore) Resolve(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return "", fmt.Errorf("%w: unknown subscription token", domain.ErrNotFound)
	}
	if entry.resolved {
		return "", fmt.Errorf("%w: %w: subscription token already used", domain.ErrNotFound, domain.ErrConflict)
	}
	if s.expiredLocked(entry) {
		delete(s.tokens, token)
		return "", fmt.Errorf("%w: subscription token expired", domain.ErrNotFound)
	}
	entry.resolved = true
	return entry.userID, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}

// Len returns the number of live tokens.
func (s *MemoryTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Sweep drops expired tokens that were never resolved.
func (s *MemoryTokenStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, entry := range s.tokens {
		if !entry.resolved && s.expiredLocked(entry) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *MemoryTokenStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired subscription tokens swept", slog.Int("count", n))
			}
		}
	}
}

func (s *MemoryTokenStore) expiredLocked(entry *tokenEntry) bool {
	return !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)
}

var _ port.TokenStore = (*MemoryTokenStore)(nil)
