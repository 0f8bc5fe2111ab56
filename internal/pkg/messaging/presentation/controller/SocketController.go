package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"daoob/internal/infrastructure/realtime"
	messaging "daoob/internal/pkg/messaging/application/domain"
	"daoob/internal/pkg/messaging/application/usecase"
)

// SocketOptions tunes the websocket endpoint.
type SocketOptions struct {
	AllowedOrigins []string
	AuthTimeout    time.Duration
	MaxFrameBytes  int64
}

// SocketController handles the websocket endpoint for realtime messaging.
// A connection is anonymous until its first valid auth envelope; after
// that it is bound to one user for its lifetime.
type SocketController struct {
	registry        *realtime.Registry
	presence        *realtime.Presence
	authUC          *usecase.AuthenticateUseCase
	sendUC          *usecase.SendMessageUseCase
	upgrader        websocket.Upgrader
	authTimeout     time.Duration
	maxFrameBytes   int64
	inflightTimeout time.Duration
	logger          zerolog.Logger
}

func NewSocketController(registry *realtime.Registry, presence *realtime.Presence, authUC *usecase.AuthenticateUseCase, sendUC *usecase.SendMessageUseCase, opts SocketOptions, logger zerolog.Logger) *SocketController {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 30 * time.Second
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = 64 * 1024
	}
	return &SocketController{
		registry: registry,
		presence: presence,
		authUC:   authUC,
		sendUC:   sendUC,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		authTimeout:     opts.AuthTimeout,
		maxFrameBytes:   opts.MaxFrameBytes,
		inflightTimeout: 5 * time.Second,
		logger:          logger.With().Str("component", "socket").Logger(),
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients) and browser requests from the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *SocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			ctl.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		conn := realtime.NewConnection(ws)
		conn.Start()
		logger := ctl.logger.With().Str("conn_id", conn.ID).Logger()
		logger.Debug().Str("remote", c.ClientIP()).Msg("connection opened")

		ctx := c.Request.Context()
		defer func() {
			if userID := conn.UserID(); userID != 0 {
				ctl.registry.Unbind(conn)
				ctl.presence.MarkOffline(context.WithoutCancel(ctx), userID, conn.ID)
			}
			conn.Close(websocket.CloseNormalClosure, "")
			logger.Debug().Int64("user_id", conn.UserID()).Msg("connection closed")
		}()

		authTimer := time.AfterFunc(ctl.authTimeout, func() {
			if !conn.Authenticated() {
				logger.Info().Msg("closing unauthenticated connection")
				conn.Close(realtime.CloseAuthTimeout, "authentication timeout")
			}
		})
		defer authTimer.Stop()

		ws.SetReadLimit(ctl.maxFrameBytes)
		_ = ws.SetReadDeadline(time.Now().Add(realtime.PongWait))
		ws.SetPongHandler(func(string) error {
			if userID := conn.UserID(); userID != 0 {
				ctl.presence.MarkOnline(ctx, userID, conn.ID)
			}
			return ws.SetReadDeadline(time.Now().Add(realtime.PongWait))
		})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					logger.Debug().Err(err).Msg("read failed")
				}
				return
			}
			ctl.handleFrame(ctx, conn, data, logger)
		}
	}
}

// handleFrame processes one inbound frame. Failures are logged and never
// reported back to the peer.
func (ctl *SocketController) handleFrame(ctx context.Context, conn *realtime.Connection, data []byte, logger zerolog.Logger) {
	env, err := messaging.ParseEnvelope(data)
	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropping envelope")
		return
	}

	switch env.Type {
	case messaging.EnvelopeAuth:
		ctl.handleAuth(ctx, conn, env, logger)
	case messaging.EnvelopeMessage:
		ctl.handleMessage(ctx, conn, env, logger)
	}
}

func (ctl *SocketController) handleAuth(ctx context.Context, conn *realtime.Connection, env messaging.Envelope, logger zerolog.Logger) {
	if conn.Authenticated() {
		logger.Warn().Int64("user_id", conn.UserID()).Int64("claimed", env.Sender).Msg("ignoring auth on bound connection")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	user, err := ctl.authUC.Execute(ctx, usecase.AuthenticateInput{ClaimedUserID: env.Sender, Credential: env.Content})
	if err != nil {
		logger.Warn().Err(err).Int64("claimed", env.Sender).Msg("authentication failed")
		return
	}
	if err := ctl.registry.Bind(conn, user.ID); err != nil {
		logger.Warn().Err(err).Int64("user_id", user.ID).Msg("bind failed")
		return
	}
	ctl.presence.MarkOnline(ctx, user.ID, conn.ID)

	if payload, err := json.Marshal(messaging.AuthAck(user.ID, time.Now())); err == nil {
		_ = conn.Send(payload)
	}
	logger.Info().Int64("user_id", user.ID).Str("user_type", user.UserType).Msg("connection authenticated")
}

func (ctl *SocketController) handleMessage(ctx context.Context, conn *realtime.Connection, env messaging.Envelope, logger zerolog.Logger) {
	userID := conn.UserID()
	if userID == 0 {
		logger.Warn().Int64("receiver", env.Receiver).Msg("dropping message from unauthenticated connection")
		return
	}
	if env.Sender != 0 && env.Sender != userID {
		logger.Warn().Int64("user_id", userID).Int64("claimed", env.Sender).Msg("dropping message with foreign sender")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	out, err := ctl.sendUC.Execute(ctx, usecase.SendMessageInput{
		SenderID:   userID,
		ReceiverID: env.Receiver,
		Content:    env.Content,
	})
	if err != nil {
		ev := logger.Warn()
		if errors.Is(err, usecase.ErrPersistence) {
			ev = logger.Error()
		}
		ev.Err(err).Int64("sender", userID).Int64("receiver", env.Receiver).Msg("message not sent")
		return
	}
	logger.Debug().Int64("message_id", out.Message.ID).Bool("delivered", out.Delivered).Msg("message routed")
}
