package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"daoob/internal/auth"
	"daoob/internal/pkg/messaging/application/usecase"
)

type MarkReadController struct {
	UC *usecase.MarkReadUseCase
}

func NewMarkReadController(uc *usecase.MarkReadUseCase) *MarkReadController {
	return &MarkReadController{UC: uc}
}

func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		counterpartyID, ok := counterpartyParam(c)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		at, err := h.UC.Execute(ctx, usecase.MarkReadInput{UserID: auth.MustUserID(c), CounterpartyID: counterpartyID})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"userId":     counterpartyID,
			"lastReadAt": at,
		})
	}
}
