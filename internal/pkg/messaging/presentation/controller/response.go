package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	messaging "daoob/internal/pkg/messaging/application/domain"
	"daoob/internal/pkg/messaging/application/usecase"
)

// statusFor maps use case errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, messaging.ErrUnknownReceiver), errors.Is(err, messaging.ErrUnknownPeer):
		return http.StatusNotFound
	case errors.Is(err, messaging.ErrUnknownSender):
		return http.StatusForbidden
	case errors.Is(err, messaging.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// writeError hides persistence details from the client.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func counterpartyParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be a positive integer"})
		return 0, false
	}
	return id, true
}

func messageJSON(m messaging.Message) messaging.Envelope {
	return messaging.MessageEnvelope(m)
}
