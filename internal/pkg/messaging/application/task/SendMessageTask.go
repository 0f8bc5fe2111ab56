package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	qport "daoob/internal/infrastructure/queue/port"
	"daoob/internal/pkg/messaging/application/usecase"
)

// SendMessageTaskType is the queue task name for a REST send handed to the worker.
const SendMessageTaskType = "messaging:send_message"

// SendMessageQueue is the asynq queue the task is enqueued on.
const SendMessageQueue = "messaging"

// SendMessageTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types so the wire format can evolve separately.
type SendMessageTaskPayload struct {
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// Sender is the slice of SendMessageUseCase the worker needs.
type Sender interface {
	Execute(ctx context.Context, in usecase.SendMessageInput) (*usecase.SendMessageOutput, error)
}

// NewSendMessageTask encodes a send request for the queue.
func NewSendMessageTask(in usecase.SendMessageInput, acceptedAt time.Time) (qport.Task, error) {
	b, err := json.Marshal(SendMessageTaskPayload{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		AcceptedAt: acceptedAt.UTC(),
	})
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: SendMessageTaskType, Payload: b}, nil
}

// HandleSendMessage returns the queue handler running sender for each task.
// Tasks are only enqueued after the request was admitted, so the sender's
// rate limit is not charged here. Only persistence failures are retried; a
// request that failed validation will fail the same way on every attempt.
func HandleSendMessage(sender Sender, logger zerolog.Logger) qport.Handler {
	return func(ctx context.Context, t qport.Task) error {
		var p SendMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return qport.SkipRetry(fmt.Errorf("decode %s payload: %w", SendMessageTaskType, err))
		}

		// give the store a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		out, err := sender.Execute(ctx, usecase.SendMessageInput{
			SenderID:   p.SenderID,
			ReceiverID: p.ReceiverID,
			Content:    p.Content,
			Admitted:   true,
		})
		if err != nil {
			if errors.Is(err, usecase.ErrPersistence) {
				return err
			}
			logger.Warn().Err(err).
				Int64("sender", p.SenderID).
				Int64("receiver", p.ReceiverID).
				Msg("queued send rejected")
			return qport.SkipRetry(err)
		}

		logger.Debug().
			Int64("message_id", out.Message.ID).
			Dur("queued_for", out.Message.CreatedAt.Sub(p.AcceptedAt)).
			Bool("delivered", out.Delivered).
			Msg("queued send stored")
		return nil
	}
}

// RegisterSendMessageTask binds the task handler to the provided server.
func RegisterSendMessageTask(srv qport.Server, sender Sender, logger zerolog.Logger) {
	srv.Register(SendMessageTaskType, HandleSendMessage(sender, logger))
}
