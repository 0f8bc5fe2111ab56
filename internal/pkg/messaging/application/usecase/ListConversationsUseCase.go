package usecase

import (
	"context"
	"fmt"

	messaging "daoob/internal/pkg/messaging/application/domain"
	repository "daoob/internal/pkg/messaging/persistence/repository/port"
	userRepository "daoob/internal/repository/port"
)

type ListConversationsInput struct {
	UserID int64
}

// ConversationView is a conversation joined with the counterparty's account
// and presence.
type ConversationView struct {
	Counterparty userRepository.User
	LastMessage  *messaging.Message
	UnreadCount  int
	Online       bool
}

// ListConversationsUseCase derives the conversation list from full history on
// every call. There is no pagination.
type ListConversationsUseCase struct {
	Repo     repository.MessageRepository
	Users    userRepository.UserRepository
	Presence PresenceReader
}

func NewListConversationsUseCase(repo repository.MessageRepository, users userRepository.UserRepository, presence PresenceReader) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Users: users, Presence: presence}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]ConversationView, error) {
	if in.UserID <= 0 {
		return nil, messaging.ErrUnknownSender
	}

	msgs, err := uc.Repo.ListMessagesForUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	markers, err := uc.Repo.ReadMarkers(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	convs := messaging.Summarize(in.UserID, msgs, markers)
	if len(convs) == 0 {
		return []ConversationView{}, nil
	}

	ids := make([]int64, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.CounterpartyID)
	}
	users, err := uc.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		u, ok := users[c.CounterpartyID]
		if !ok {
			// account removed upstream; keep the history visible
			u = userRepository.User{ID: c.CounterpartyID}
		}
		v := ConversationView{
			Counterparty: u,
			LastMessage:  c.LastMessage,
			UnreadCount:  c.UnreadCount,
		}
		if uc.Presence != nil {
			v.Online = uc.Presence.IsOnline(ctx, c.CounterpartyID)
		}
		views = append(views, v)
	}
	return views, nil
}
