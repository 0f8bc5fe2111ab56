package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	messaging "daoob/internal/pkg/messaging/application/domain"
	repository "daoob/internal/pkg/messaging/persistence/repository/port"
)

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

var _ repository.MessageRepository = (*PgMessageRepository)(nil)

func (r *PgMessageRepository) SaveMessage(ctx context.Context, m messaging.Message) (messaging.Message, error) {
	if r == nil || r.pool == nil {
		return messaging.Message{}, errors.New("PgMessageRepository: nil pool")
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, m.SenderID, m.ReceiverID, m.Content, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return messaging.Message{}, err
	}
	return m, nil
}

func (r *PgMessageRepository) ListMessagesForUser(ctx context.Context, userID int64) ([]messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *PgMessageRepository) GetThread(ctx context.Context, a, b int64) ([]messaging.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`, a, b)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *PgMessageRepository) ReadMarkers(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx,
		"SELECT counterparty_id, last_read_at FROM message_read_markers WHERE user_id = $1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	markers := make(map[int64]time.Time)
	for rows.Next() {
		var (
			peer int64
			at   time.Time
		)
		if err := rows.Scan(&peer, &at); err != nil {
			return nil, err
		}
		markers[peer] = at
	}
	return markers, rows.Err()
}

func (r *PgMessageRepository) MarkRead(ctx context.Context, userID, counterpartyID int64, at time.Time) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessageRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO message_read_markers (user_id, counterparty_id, last_read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, counterparty_id)
		DO UPDATE SET last_read_at = GREATEST(message_read_markers.last_read_at, EXCLUDED.last_read_at)
	`, userID, counterpartyID, at)
	return err
}

func collectMessages(rows pgx.Rows) ([]messaging.Message, error) {
	defer rows.Close()
	var msgs []messaging.Message
	for rows.Next() {
		var m messaging.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}
