package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/shared/auth"
)

type stubStore struct {
	saveFn     func(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	findByIDFn func(ctx context.Context, id string) (*domain.Notification, error)
	allFn      func(ctx context.Context) ([]*domain.Notification, error)
	receiverFn func(ctx context.Context, receiverID string) ([]*domain.Notification, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (s *stubStore) Save(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if s.saveFn != nil {
		return s.saveFn(ctx, n)
	}
	saved := *n
	return &saved, nil
}

func (s *stubStore) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	if s.findByIDFn != nil {
		return s.findByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) FindAll(ctx context.Context) ([]*domain.Notification, error) {
	if s.allFn != nil {
		return s.allFn(ctx)
	}
	return nil, nil
}

func (s *stubStore) FindByReceiver(ctx context.Context, receiverID string) ([]*domain.Notification, error) {
	if s.receiverFn != nil {
		return s.receiverFn(ctx, receiverID)
	}
	return nil, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

type published struct {
	userID string
	view   domain.NotificationView
}

type recordingPublisher struct {
	mu     sync.Mutex
	items  []published
	accept bool
}

func (p *recordingPublisher) Publish(userID string, view domain.NotificationView) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, published{userID: userID, view: view})
	return p.accept
}

func (p *recordingPublisher) snapshot() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.items...)
}

type stubTokens struct {
	issueFn   func(ctx context.Context, userID string) (string, error)
	resolveFn func(ctx context.Context, token string) (string, error)
	mu        sync.Mutex
	consumed  []string
}

func (s *stubTokens) Issue(ctx context.Context, userID string) (string, error) {
	return s.issueFn(ctx, userID)
}

func (s *stubTokens) Resolve(ctx context.Context, token string) (string, error) {
	return s.resolveFn(ctx, token)
}

func (s *stubTokens) Consume(_ context.Context, token string) error {
	s.mu.Lock()
	s.consumed = append(s.consumed, token)
	s.mu.Unlock()
	return nil
}

func (s *stubTokens) consumedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.consumed...)
}

type stubStream struct {
	userID string
}

func (s *stubStream) UserID() string { return s.userID }

func (s *stubStream) Drain() ([]domain.NotificationView, error) { return nil, nil }

func (s *stubStream) Wait() <-chan struct{} { return nil }

func (s *stubStream) Receive(ctx context.Context) (domain.NotificationView, error) {
	<-ctx.Done()
	return domain.NotificationView{}, ctx.Err()
}

type stubRegistry struct {
	subscribeErr error
	mu           sync.Mutex
	subscribed   []string
	left         []port.Stream
}

func (r *stubRegistry) Subscribe(userID string) (port.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscribeErr != nil {
		return nil, r.subscribeErr
	}
	r.subscribed = append(r.subscribed, userID)
	return &stubStream{userID: userID}, nil
}

func (r *stubRegistry) Leave(stream port.Stream) {
	r.mu.Lock()
	r.left = append(r.left, stream)
	r.mu.Unlock()
}

func credentialFor(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	claims := auth.Claims{Roles: roles, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign credential: %v", err)
	}
	return token
}
