package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"daoob/internal/auth"
	qport "daoob/internal/infrastructure/queue/port"
	"daoob/internal/infrastructure/realtime"
	"daoob/internal/pkg/messaging/application/usecase"
	repository "daoob/internal/pkg/messaging/persistence/repository/port"
	"daoob/internal/pkg/messaging/presentation/controller"
	userRepository "daoob/internal/repository/port"
)

// Dependencies is everything the messaging endpoints are built from.
// Queue and Limiter may be nil.
type Dependencies struct {
	Messages        repository.MessageRepository
	Users           userRepository.UserRepository
	Verifier        auth.Verifier
	Registry        *realtime.Registry
	Presence        *realtime.Presence
	Limiter         usecase.RateLimiter
	Queue           qport.Client
	MaxContentBytes int
	Socket          controller.SocketOptions
	Logger          zerolog.Logger
}

// NewSendMessageUseCase builds the send path shared by the socket, the REST
// controller and the queue worker.
func NewSendMessageUseCase(d Dependencies) *usecase.SendMessageUseCase {
	return usecase.NewSendMessageUseCase(d.Messages, d.Users, d.Registry, d.Limiter, d.MaxContentBytes, d.Logger)
}

// RegisterRoutes registers messaging HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d Dependencies) {
	sendUC := NewSendMessageUseCase(d)

	socketCtl := controller.NewSocketController(d.Registry, d.Presence, usecase.NewAuthenticateUseCase(d.Verifier, d.Users), sendUC, d.Socket, d.Logger)
	listCtl := controller.NewListConversationsController(usecase.NewListConversationsUseCase(d.Messages, d.Users, d.Presence))
	threadCtl := controller.NewGetThreadController(usecase.NewGetThreadUseCase(d.Messages, d.Users))
	markReadCtl := controller.NewMarkReadController(usecase.NewMarkReadUseCase(d.Messages, d.Users))
	sendMsgCtl := controller.NewSendMessageController(sendUC, d.Queue, d.Logger)

	// GET /api/v1/ws -> websocket endpoint; identity arrives in the auth envelope
	g.GET("/ws", socketCtl.Handle())

	authed := g.Group("", auth.Middleware(d.Verifier))

	// GET /api/v1/conversations -> conversation list of the caller
	authed.GET("/conversations", listCtl.Handle())

	// GET /api/v1/conversations/:userId/messages -> thread with one counterparty
	authed.GET("/conversations/:userId/messages", threadCtl.Handle())

	// POST /api/v1/conversations/:userId/read -> move the read marker to now
	authed.POST("/conversations/:userId/read", markReadCtl.Handle())

	// POST /api/v1/messages -> send a message (queued when a worker is configured)
	authed.POST("/messages", sendMsgCtl.Handle())
}
