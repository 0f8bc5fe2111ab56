package usecase

import (
	"context"
	"errors"
	"fmt"

	"daoob/internal/auth"
	userRepository "daoob/internal/repository/port"
)

// AuthenticateInput is the content of an auth envelope.
type AuthenticateInput struct {
	ClaimedUserID int64
	Credential    string
}

// AuthenticateUseCase resolves an auth envelope to an existing account.
type AuthenticateUseCase struct {
	Verifier auth.Verifier
	Users    userRepository.UserRepository
}

func NewAuthenticateUseCase(verifier auth.Verifier, users userRepository.UserRepository) *AuthenticateUseCase {
	return &AuthenticateUseCase{Verifier: verifier, Users: users}
}

func (uc *AuthenticateUseCase) Execute(ctx context.Context, in AuthenticateInput) (*userRepository.User, error) {
	userID, err := uc.Verifier.VerifyEnvelope(in.ClaimedUserID, in.Credential)
	if err != nil {
		return nil, err
	}

	u, err := uc.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userRepository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return u, nil
}
