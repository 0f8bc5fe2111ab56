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

// ListConversationsController handles the conversation list of the caller (one controller per endpoint)
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(uc *usecase.ListConversationsUseCase) *ListConversationsController {
	return &ListConversationsController{UC: uc}
}

type conversationResponse struct {
	UserID      int64               `json:"userId"`
	Username    string              `json:"username"`
	FullName    *string             `json:"fullName,omitempty"`
	UserType    string              `json:"userType"`
	LastMessage *messaging.Envelope `json:"lastMessage,omitempty"`
	UnreadCount int                 `json:"unreadCount"`
	Online      bool                `json:"online"`
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		views, err := h.UC.Execute(ctx, usecase.ListConversationsInput{UserID: auth.MustUserID(c)})
		if err != nil {
			writeError(c, err)
			return
		}

		out := make([]conversationResponse, 0, len(views))
		for _, v := range views {
			r := conversationResponse{
				UserID:      v.Counterparty.ID,
				Username:    v.Counterparty.Username,
				FullName:    v.Counterparty.FullName,
				UserType:    v.Counterparty.UserType,
				UnreadCount: v.UnreadCount,
				Online:      v.Online,
			}
			if v.LastMessage != nil {
				env := messageJSON(*v.LastMessage)
				r.LastMessage = &env
			}
			out = append(out, r)
		}

		c.JSON(http.StatusOK, out)
	}
}
