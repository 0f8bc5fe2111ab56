package messaging

import (
	"sort"
	"strings"
	"time"
)

// DefaultMaxContentBytes bounds a message body when no limit is configured.
const DefaultMaxContentBytes = 5 * 1024

// Message is an immutable direct message. ID is zero until persisted.
type Message struct {
	ID         int64     `db:"id"`
	SenderID   int64     `db:"sender_id"`
	ReceiverID int64     `db:"receiver_id"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
}

// NewMessage validates a send request and stamps it with the server clock,
// truncated to the microsecond precision of the stores. Content is stored as
// given; whitespace only counts when deciding whether it is empty.
// maxBytes <= 0 means DefaultMaxContentBytes.
func NewMessage(senderID, receiverID int64, content string, maxBytes int, now time.Time) (*Message, error) {
	if senderID <= 0 {
		return nil, ErrUnknownSender
	}
	if receiverID <= 0 {
		return nil, ErrUnknownReceiver
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxContentBytes
	}
	if len(content) > maxBytes {
		return nil, ErrContentTooLarge
	}

	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  now.UTC().Truncate(time.Microsecond),
	}, nil
}

// Counterparty returns the other side of the message as seen by userID.
func (m Message) Counterparty(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Involves reports whether userID sent or received the message.
func (m Message) Involves(userID int64) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Before orders messages by timestamp, then by id for equal timestamps.
func (m Message) Before(o Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// SortThread sorts msgs ascending in place.
func SortThread(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
}
