package repository

import (
	"context"
	"time"

	messaging "daoob/internal/pkg/messaging/application/domain"
)

// MessageRepository persists direct messages and per-counterparty read markers.
// Implementations must be safe for concurrent append and read.
type MessageRepository interface {
	// SaveMessage stores m and returns it with its assigned ID.
	SaveMessage(ctx context.Context, m messaging.Message) (messaging.Message, error)
	// ListMessagesForUser returns every message userID sent or received, ascending.
	ListMessagesForUser(ctx context.Context, userID int64) ([]messaging.Message, error)
	// GetThread returns every message between a and b, ascending.
	GetThread(ctx context.Context, a, b int64) ([]messaging.Message, error)
	// ReadMarkers maps counterparty id to the time userID last read that conversation.
	ReadMarkers(ctx context.Context, userID int64) (map[int64]time.Time, error)
	MarkRead(ctx context.Context, userID, counterpartyID int64, at time.Time) error
}
