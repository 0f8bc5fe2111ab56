package repository

import (
	"context"
	"errors"
)

// UserType values issued by the DAOOB auth subsystem.
const (
	UserTypeClient             = "client"
	UserTypeVendor             = "vendor"
	UserTypeAdmin              = "admin"
	UserTypeCategorySpecialist = "category_specialist"
)

var ErrUserNotFound = errors.New("user: not found")

// User is the slice of the account record that messaging reads.
type User struct {
	ID       int64   `db:"id"`
	Username string  `db:"username"`
	FullName *string `db:"full_name"`
	UserType string  `db:"user_type"`
}

// UserRepository is read-mostly: accounts are owned by the auth subsystem.
// Create exists for seeding and tests.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]User, error)
	Create(ctx context.Context, u User) (int64, error)
}
