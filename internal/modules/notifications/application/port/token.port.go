package port

import (
	"context"
	"time"
)

// TokenStore keeps the token → user binding of subscription tokens.
//
// Resolve must succeed at most once per token even under concurrent callers;
// later calls fail with an error matching domain.ErrNotFound.
type TokenStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	Resolve(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}
