package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"daoob/internal/auth"
	queueport "daoob/internal/infrastructure/queue/port"
	"daoob/internal/pkg/messaging/application/task"
	"daoob/internal/pkg/messaging/application/usecase"
)

// SendMessageController handles the REST send endpoint. With a queue client
// the request is admitted synchronously and the write is handed to the
// worker; without one it runs inline.
type SendMessageController struct {
	Q      queueport.Client
	UC     *usecase.SendMessageUseCase
	logger zerolog.Logger
}

func NewSendMessageController(uc *usecase.SendMessageUseCase, client queueport.Client, logger zerolog.Logger) *SendMessageController {
	return &SendMessageController{Q: client, UC: uc, logger: logger}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	Receiver int64  `json:"receiver" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.SendMessageInput{
			SenderID:   auth.MustUserID(c),
			ReceiverID: req.Receiver,
			Content:    req.Content,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if h.Q == nil {
			out, err := h.UC.Execute(ctx, in)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"message":   messageJSON(out.Message),
				"delivered": out.Delivered,
			})
			return
		}

		// validation, receiver existence and the rate limit answer synchronously
		if _, err := h.UC.Admit(ctx, in); err != nil {
			writeError(c, err)
			return
		}

		t, err := task.NewSendMessageTask(in, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode task payload"})
			return
		}
		opts := queueport.EnqueueOption{Queue: task.SendMessageQueue, MaxRetry: 20}
		id, err := h.Q.Enqueue(ctx, t, opts)
		if err != nil {
			h.logger.Error().Err(err).Int64("sender", in.SenderID).Msg("enqueue send failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue message"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":   "queued",
			"taskId":   id,
			"receiver": in.ReceiverID,
		})
	}
}
