package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/platform/metrics"
	"notificationRelay/internal/shared/auth"
)

// Session is an open push stream. Close must run on every exit path of the
// transport; it detaches the reader and consumes the bound token, once.
type Session struct {
	UserID string
	Stream port.Stream

	once    sync.Once
	release func()
}

func (s *Session) Close() {
	s.once.Do(s.release)
}

// SubscribeUseCase opens push streams, either with a bearer credential or
// with a single-use subscription token.
type SubscribeUseCase struct {
	inspector auth.CredentialInspector
	tokens    port.Tokens
	registry  port.StreamRegistry
}

func NewSubscribeUseCase(inspector auth.CredentialInspector, tokens port.Tokens, registry port.StreamRegistry) *SubscribeUseCase {
	return &SubscribeUseCase{inspector: inspector, tokens: tokens, registry: registry}
}

func (uc *SubscribeUseCase) authorize(credential, userID string) (string, error) {
	subject, err := auth.Subject(uc.inspector, credential)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	userID = strings.TrimSpace(userID)
	if subject != userID {
		return "", fmt.Errorf("%w: subject does not match user", domain.ErrForbidden)
	}
	return userID, nil
}

// IssueToken returns a subscription token for userID when the credential
// represents that user.
func (uc *SubscribeUseCase) IssueToken(ctx context.Context, credential, userID string) (string, error) {
	userID, err := uc.authorize(credential, userID)
	if err != nil {
		metrics.SubscriptionTokens.WithLabelValues("issue", "rejected").Inc()
		return "", err
	}
	token, err := uc.tokens.Issue(ctx, userID)
	if err != nil {
		metrics.SubscriptionTokens.WithLabelValues("issue", "failed").Inc()
		return "", err
	}
	metrics.SubscriptionTokens.WithLabelValues("issue", "ok").Inc()
	return token, nil
}

// OpenWithCredential attaches a reader to userID's channel for a caller
// presenting a bearer credential of that user.
func (uc *SubscribeUseCase) OpenWithCredential(ctx context.Context, credential, userID string) (*Session, error) {
	userID, err := uc.authorize(credential, userID)
	if err != nil {
		return nil, err
	}
	stream, err := uc.registry.Subscribe(userID)
	if err != nil {
		return nil, err
	}
	slog.Info("push stream opened", slog.String("userId", userID), slog.String("auth", "bearer"))
	return &Session{UserID: userID, Stream: stream, release: func() {
		uc.registry.Leave(stream)
		slog.Info("push stream closed", slog.String("userId", userID))
	}}, nil
}

// OpenWithToken resolves a subscription token and attaches a reader to the
// bound user's channel. The token is consumed when the session closes, or
// right away when attaching fails.
func (uc *SubscribeUseCase) OpenWithToken(ctx context.Context, token string) (*Session, error) {
	userID, err := uc.tokens.Resolve(ctx, token)
	if err != nil {
		metrics.SubscriptionTokens.WithLabelValues("resolve", "rejected").Inc()
		return nil, err
	}
	metrics.SubscriptionTokens.WithLabelValues("resolve", "ok").Inc()

	consume := func() {
		if err := uc.tokens.Consume(context.WithoutCancel(ctx), token); err != nil {
			slog.Warn("subscription token consume failed", slog.String("userId", userID), slog.Any("error", err))
		}
	}
	stream, err := uc.registry.Subscribe(userID)
	if err != nil {
		consume()
		return nil, err
	}
	slog.Info("push stream opened", slog.String("userId", userID), slog.String("auth", "subscription-token"))
	return &Session{UserID: userID, Stream: stream, release: func() {
		uc.registry.Leave(stream)
		consume()
		slog.Info("push stream closed", slog.String("userId", userID))
	}}, nil
}
