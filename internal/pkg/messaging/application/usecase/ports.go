package usecase

import "context"

// Deliverer pushes an encoded envelope to a user's live connection.
// It reports false when the user is not connected here.
type Deliverer interface {
	Deliver(userID int64, payload []byte) bool
}

// RateLimiter counts one send for userID. On error the caller fails open.
type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

type PresenceReader interface {
	IsOnline(ctx context.Context, userID int64) bool
}
