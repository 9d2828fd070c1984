package infrastructure

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

// nonceSize is the random input mixed into every token digest.
const nonceSize = 32

// TokenExchange issues single-use subscription tokens for transports that
// cannot carry an Authorization header.
type TokenExchange struct {
	store  port.TokenStore
	ttl    time.Duration
	random io.Reader
}

func NewTokenExchange(store port.TokenStore, ttl time.Duration) *TokenExchange {
	return &TokenExchange{store: store, ttl: ttl, random: rand.Reader}
}

// Issue binds a fresh token to userID. The token is the hex SHA-256 of the
// identity followed by a random nonce.
func (x *TokenExchange) Issue(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: subscription token requires a user identity", domain.ErrUnauthorized)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(x.random, nonce); err != nil {
		return "", fmt.Errorf("read token nonce: %w", err)
	}
	sum := sha256.Sum256(append([]byte(userID), nonce...))
	token := hex.EncodeToString(sum[:])
	if err := x.store.Put(ctx, token, userID, x.ttl); err != nil {
		return "", fmt.Errorf("store subscription token: %w", err)
	}
	slog.Info("subscription token issued", slog.String("userId", userID))
	return token, nil
}

// Resolve returns the identity bound to token. Only the first call for a
// token succeeds.
func (x *TokenExchange) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty subscription token", domain.ErrNotFound)
	}
	return x.store.Resolve(ctx, token)
}

// Consume discards token once its stream has terminated.
func (x *TokenExchange) Consume(ctx context.Context, token string) error {
	if err := x.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("consume subscription token: %w", err)
	}
	return nil
}

var _ port.Tokens = (*TokenExchange)(nil)
