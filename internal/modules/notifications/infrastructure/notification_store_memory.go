package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

// MemoryNotificationStore keeps records in process memory. Records are copied
// on the way in and out so callers never share state with the store.
type MemoryNotificationStore struct {
	mu      sync.RWMutex
	records map[string]domain.Notification
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{records: make(map[string]domain.Notification)}
}

func (s *MemoryNotificationStore) Save(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n == nil || n.ID == "" {
		return nil, fmt.Errorf("save notification: missing id")
	}
	s.mu.Lock()
	s.records[n.ID] = *n
	s.mu.Unlock()
	saved := *n
	return &saved, nil
}

func (s *MemoryNotificationStore) FindByID(_ context.Context, id string) (*domain.Notification, error) {
	s.mu.RLock()
	n, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	return &n, nil
}

func (s *MemoryNotificationStore) FindAll(_ context.Context) ([]*domain.Notification, error) {
	return s.collect(func(*domain.Notification) bool { return true }), nil
}

func (s *MemoryNotificationStore) FindByReceiver(_ context.Context, receiverID string) ([]*domain.Notification, error) {
	return s.collect(func(n *domain.Notification) bool { return n.ReceiverID == receiverID }), nil
}

func (s *MemoryNotificationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

// collect returns matching records ordered by date, then id.
func (s *MemoryNotificationStore) collect(match func(*domain.Notification) bool) []*domain.Notification {
	s.mu.RLock()
	out := make([]*domain.Notification, 0, len(s.records))
	for _, n := range s.records {
		if match(&n) {
			out = append(out, &n)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

var _ port.NotificationStore = (*MemoryNotificationStore)(nil)
