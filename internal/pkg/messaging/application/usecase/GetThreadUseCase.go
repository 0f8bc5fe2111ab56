package usecase

import (
	"context"
	"errors"
	"fmt"

	messaging "daoob/internal/pkg/messaging/application/domain"
	repository "daoob/internal/pkg/messaging/persistence/repository/port"
	userRepository "daoob/internal/repository/port"
)

type GetThreadInput struct {
	UserID         int64
	CounterpartyID int64
}

// GetThreadUseCase returns the full exchange between two users, oldest first.
// It has no side effects; reading a thread does not mark it read.
type GetThreadUseCase struct {
	Repo  repository.MessageRepository
	Users userRepository.UserRepository
}

func NewGetThreadUseCase(repo repository.MessageRepository, users userRepository.UserRepository) *GetThreadUseCase {
	return &GetThreadUseCase{Repo: repo, Users: users}
}

func (uc *GetThreadUseCase) Execute(ctx context.Context, in GetThreadInput) ([]messaging.Message, error) {
	if err := requireCounterparty(ctx, uc.Users, in.UserID, in.CounterpartyID); err != nil {
		return nil, err
	}

	msgs, err := uc.Repo.GetThread(ctx, in.UserID, in.CounterpartyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msgs == nil {
		msgs = []messaging.Message{}
	}
	return msgs, nil
}

// requireCounterparty validates a (user, counterparty) pair for the
// per-conversation operations.
func requireCounterparty(ctx context.Context, users userRepository.UserRepository, userID, counterpartyID int64) error {
	if userID <= 0 {
		return messaging.ErrUnknownSender
	}
	if counterpartyID <= 0 {
		return messaging.ErrUnknownPeer
	}
	if userID == counterpartyID {
		return messaging.ErrSelfMessage
	}
	if _, err := users.FindByID(ctx, counterpartyID); err != nil {
		if errors.Is(err, userRepository.ErrUserNotFound) {
			return messaging.ErrUnknownPeer
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
