package infrastructure

import (
	"log/slog"
	"strings"
	"sync"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

// SubscriptionRegistry maps a user identity to its single live Channel.
// Registering an already registered user returns the existing channel.
type SubscriptionRegistry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{channels: make(map[string]*Channel)}
}

func (r *SubscriptionRegistry) registerLocked(userID string) *Channel {
	if ch, ok := r.channels[userID]; ok {
		slog.Debug("subscription channel reused", slog.String("userId", userID))
		return ch
	}
	ch := newChannel(userID)
	r.channels[userID] = ch
	slog.Info("subscription channel registered", slog.String("userId", userID))
	return ch
}

// Subscribe registers userID if needed and attaches a new reader in one step,
// so a concurrent Leave cannot close the channel in between.
func (r *SubscriptionRegistry) Subscribe(userID string) (port.Stream, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrMissingReceiver
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, err := r.registerLocked(userID).Subscribe()
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Leave detaches stream from its channel and unregisters the channel when it
// was the last reader.
func (r *SubscriptionRegistry) Leave(stream port.Stream) {
	sub, ok := stream.(*Subscription)
	if !ok || sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := sub.channel
	remaining, attached := ch.detach(sub)
	if !attached || remaining > 0 {
		return
	}
	if r.channels[ch.userID] == ch {
		delete(r.channels, ch.userID)
		ch.close()
		slog.Info("subscription channel unregistered", slog.String("userId", ch.userID), slog.String("reason", "last reader left"))
	}
}

// Unregister closes and removes the channel of userID. Unknown users are a no-op.
func (r *SubscriptionRegistry) Unregister(userID string) {
	r.mu.Lock()
	ch, ok := r.channels[userID]
	if ok {
		delete(r.channels, userID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	ch.close()
	slog.Info("subscription channel unregistered", slog.String("userId", userID))
}

// CloseAll unregisters every channel, completing all attached readers. It
// returns the number of channels closed.
func (r *SubscriptionRegistry) CloseAll() int {
	r.mu.RLock()
	users := make([]string, 0, len(r.channels))
	for userID := range r.channels {
		users = append(users, userID)
	}
	r.mu.RUnlock()
	for _, userID := range users {
		r.Unregister(userID)
	}
	return len(users)
}

// Publish enqueues view on the channel of userID. Without a registered
// channel the item is dropped and false is returned.
func (r *SubscriptionRegistry) Publish(userID string, view domain.NotificationView) bool {
	r.mu.RLock()
	ch, ok := r.channels[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return ch.push(view)
}

// Len returns the number of registered channels.
func (r *SubscriptionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

var (
	_ port.Publisher      = (*SubscriptionRegistry)(nil)
	_ port.StreamRegistry = (*SubscriptionRegistry)(nil)
	_ port.Stream         = (*Subscription)(nil)
)
