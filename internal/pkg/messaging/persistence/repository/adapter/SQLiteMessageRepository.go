package adapter

import (
	"context"
	"database/sql"
	"time"

	messaging "daoob/internal/pkg/messaging/application/domain"
	repository "daoob/internal/pkg/messaging/persistence/repository/port"
)

// SQLiteMessageRepository backs the embedded development store. Timestamps
// are stored as unix nanoseconds so that ordering is numeric.
type SQLiteMessageRepository struct {
	db *sql.DB
}

func NewSQLiteMessageRepository(db *sql.DB) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{db: db}
}

var _ repository.MessageRepository = (*SQLiteMessageRepository)(nil)

func (r *SQLiteMessageRepository) SaveMessage(ctx context.Context, m messaging.Message) (messaging.Message, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, content, created_at) VALUES (?, ?, ?, ?)",
		m.SenderID, m.ReceiverID, m.Content, m.CreatedAt.UnixNano(),
	)
	if err != nil {
		return messaging.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return messaging.Message{}, err
	}
	m.ID = id
	return m, nil
}

func (r *SQLiteMessageRepository) ListMessagesForUser(ctx context.Context, userID int64) ([]messaging.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func (r *SQLiteMessageRepository) GetThread(ctx context.Context, a, b int64) ([]messaging.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, id ASC
	`, a, b, b, a)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

func (r *SQLiteMessageRepository) ReadMarkers(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT counterparty_id, last_read_at FROM message_read_markers WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	markers := make(map[int64]time.Time)
	for rows.Next() {
		var peer, nanos int64
		if err := rows.Scan(&peer, &nanos); err != nil {
			return nil, err
		}
		markers[peer] = time.Unix(0, nanos).UTC()
	}
	return markers, rows.Err()
}

func (r *SQLiteMessageRepository) MarkRead(ctx context.Context, userID, counterpartyID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_read_markers (user_id, counterparty_id, last_read_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, counterparty_id)
		DO UPDATE SET last_read_at = MAX(last_read_at, excluded.last_read_at)
	`, userID, counterpartyID, at.UnixNano())
	return err
}

func scanMessages(rows *sql.Rows) ([]messaging.Message, error) {
	defer rows.Close()
	var msgs []messaging.Message
	for rows.Next() {
		var (
			m     messaging.Message
			nanos int64
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &nanos); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(0, nanos).UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
