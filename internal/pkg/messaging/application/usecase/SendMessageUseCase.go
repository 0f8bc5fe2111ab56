package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	messaging "daoob/internal/pkg/messaging/application/domain"
	repository "daoob/internal/pkg/messaging/persistence/repository/port"
	userRepository "daoob/internal/repository/port"
)

// SendMessageInput carries one direct message request. SenderID is the
// authenticated identity, never a client-supplied field.
type SendMessageInput struct {
	SenderID   int64
	ReceiverID int64
	Content    string

	// Admitted marks a request that already passed Admit, so the sender's
	// rate limit is not charged a second time (or on every queue retry).
	Admitted bool
}

type SendMessageOutput struct {
	Message   messaging.Message
	Delivered bool
}

// SendMessageUseCase validates, persists and then live-pushes a message.
// The push only happens after a successful write, so a receiver never sees
// a message that history does not have.
type SendMessageUseCase struct {
	Repo            repository.MessageRepository
	Users           userRepository.UserRepository
	Deliverer       Deliverer
	Limiter         RateLimiter
	MaxContentBytes int
	Logger          zerolog.Logger

	now func() time.Time
}

func NewSendMessageUseCase(repo repository.MessageRepository, users userRepository.UserRepository, deliverer Deliverer, limiter RateLimiter, maxContentBytes int, logger zerolog.Logger) *SendMessageUseCase {
	return &SendMessageUseCase{
		Repo:            repo,
		Users:           users,
		Deliverer:       deliverer,
		Limiter:         limiter,
		MaxContentBytes: maxContentBytes,
		Logger:          logger,
		now:             time.Now,
	}
}

// Admit runs every check that precedes persistence: content validation,
// existence of both parties and the sender's rate limit. A successful call
// charges one send against the sender's quota.
func (uc *SendMessageUseCase) Admit(ctx context.Context, in SendMessageInput) (*messaging.Message, error) {
	return uc.admit(ctx, in, true)
}

func (uc *SendMessageUseCase) admit(ctx context.Context, in SendMessageInput, charge bool) (*messaging.Message, error) {
	now := time.Now
	if uc.now != nil {
		now = uc.now
	}
	msg, err := messaging.NewMessage(in.SenderID, in.ReceiverID, in.Content, uc.MaxContentBytes, now())
	if err != nil {
		return nil, err
	}

	users, err := uc.Users.FindByIDs(ctx, []int64{msg.SenderID, msg.ReceiverID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if _, ok := users[msg.SenderID]; !ok {
		return nil, messaging.ErrUnknownSender
	}
	if _, ok := users[msg.ReceiverID]; !ok {
		return nil, messaging.ErrUnknownReceiver
	}

	if charge && uc.Limiter != nil {
		allowed, err := uc.Limiter.Allow(ctx, msg.SenderID)
		if err != nil {
			uc.Logger.Warn().Err(err).Int64("sender", msg.SenderID).Msg("rate limiter unavailable, allowing send")
		}
		if !allowed {
			return nil, messaging.ErrRateLimited
		}
	}
	return msg, nil
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	msg, err := uc.admit(ctx, in, !in.Admitted)
	if err != nil {
		return nil, err
	}

	saved, err := uc.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	out := &SendMessageOutput{Message: saved}

	if uc.Deliverer == nil {
		return out, nil
	}
	payload, err := json.Marshal(messaging.MessageEnvelope(saved))
	if err != nil {
		uc.Logger.Error().Err(err).Int64("message_id", saved.ID).Msg("encode message envelope")
		return out, nil
	}
	out.Delivered = uc.Deliverer.Deliver(saved.ReceiverID, payload)

	uc.Logger.Debug().
		Int64("message_id", saved.ID).
		Int64("sender", saved.SenderID).
		Int64("receiver", saved.ReceiverID).
		Bool("delivered", out.Delivered).
		Msg("message sent")
	return out, nil
}
