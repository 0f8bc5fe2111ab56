package usecase

import (
	"context"
	"fmt"
	"time"

	repository "daoob/internal/pkg/messaging/persistence/repository/port"
	userRepository "daoob/internal/repository/port"
)

type MarkReadInput struct {
	UserID         int64
	CounterpartyID int64
}

// MarkReadUseCase moves the user's read marker for a conversation to now.
// Markers never move backwards.
type MarkReadUseCase struct {
	Repo  repository.MessageRepository
	Users userRepository.UserRepository

	now func() time.Time
}

func NewMarkReadUseCase(repo repository.MessageRepository, users userRepository.UserRepository) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo, Users: users, now: time.Now}
}

// Execute returns the marker time that was written.
func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (time.Time, error) {
	if err := requireCounterparty(ctx, uc.Users, in.UserID, in.CounterpartyID); err != nil {
		return time.Time{}, err
	}

	now := time.Now
	if uc.now != nil {
		now = uc.now
	}
	at := now().UTC().Truncate(time.Microsecond)
	if err := uc.Repo.MarkRead(ctx, in.UserID, in.CounterpartyID, at); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return at, nil
}
