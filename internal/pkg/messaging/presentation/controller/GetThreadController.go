package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"daoob/internal/auth"
	messaging "daoob/internal/pkg/messaging/application/domain"
	"daoob/internal/pkg/messaging/application/usecase"
)

// GetThreadController handles fetching the full thread with one counterparty
type GetThreadController struct {
	UC *usecase.GetThreadUseCase
}

func NewGetThreadController(uc *usecase.GetThreadUseCase) *GetThreadController {
	return &GetThreadController{UC: uc}
}

func (h *GetThreadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		counterpartyID, ok := counterpartyParam(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.GetThreadInput{UserID: auth.MustUserID(c), CounterpartyID: counterpartyID})
		if err != nil {
			writeError(c, err)
			return
		}

		out := make([]messaging.Envelope, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, messageJSON(m))
		}
		c.JSON(http.StatusOK, out)
	}
}
