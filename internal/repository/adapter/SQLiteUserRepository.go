package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	repository "daoob/internal/repository/port"
)

// SQLiteUserRepository backs the embedded development store.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

var _ repository.UserRepository = (*SQLiteUserRepository)(nil)

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	var u repository.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, full_name, user_type FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Username, &u.FullName, &u.UserType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteUserRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]repository.User, error) {
	out := make(map[int64]repository.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, username, full_name, user_type FROM users WHERE id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u repository.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.UserType); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u repository.User) (int64, error) {
	if u.UserType == "" {
		u.UserType = repository.UserTypeClient
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, full_name, user_type) VALUES (?, ?, ?)",
		u.Username, u.FullName, u.UserType,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
