// Package client is the connecting side of the messaging socket: it keeps one
// authenticated connection alive for as long as a login session lasts.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	messaging "daoob/internal/pkg/messaging/application/domain"
)

// DefaultReconnectDelay is the fixed wait between a drop and the next attempt.
const DefaultReconnectDelay = 3 * time.Second

var ErrNotConnected = errors.New("client: not connected")

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session is the login the connection authenticates as. Done is closed when
// the user logs out; the reconnector stops for good at that point.
type Session interface {
	UserID() int64
	Credential() string
	Done() <-chan struct{}
}

// Handler receives every envelope pushed by the server, auth acks included.
type Handler func(env messaging.Envelope)

type Options struct {
	URL     string
	Header  http.Header
	Dialer  *websocket.Dialer
	Delay   time.Duration
	OnState func(State)
	Logger  zerolog.Logger
}

// Reconnector drives disconnected -> connecting -> connected and back. Any
// error or close returns it to disconnected; from there it waits a fixed
// delay and tries again, without backoff growth or a retry cap.
type Reconnector struct {
	session Session
	handler Handler
	opts    Options

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	writeMu sync.Mutex

	wait func(ctx context.Context, d time.Duration) bool
}

func NewReconnector(session Session, handler Handler, opts Options) *Reconnector {
	if opts.Delay <= 0 {
		opts.Delay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if handler == nil {
		handler = func(messaging.Envelope) {}
	}
	return &Reconnector{session: session, handler: handler, opts: opts, wait: sleepCtx}
}

func (r *Reconnector) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run keeps the connection up until ctx is canceled or the session ends.
// It returns nil when the session ended and ctx.Err() on teardown.
func (r *Reconnector) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.session.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	for {
		if err := r.connect(runCtx); err != nil && runCtx.Err() == nil {
			r.opts.Logger.Warn().Err(err).Dur("retry_in", r.opts.Delay).Msg("connection lost")
		}
		r.setState(StateDisconnected)

		if runCtx.Err() != nil || !r.wait(runCtx, r.opts.Delay) {
			select {
			case <-r.session.Done():
				return nil
			default:
				return ctx.Err()
			}
		}
	}
}

// Send writes a message envelope on the live connection.
func (r *Reconnector) Send(receiver int64, content string) error {
	r.mu.Lock()
	ws := r.conn
	r.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	env := messaging.Envelope{
		Type:      messaging.EnvelopeMessage,
		Sender:    r.session.UserID(),
		Receiver:  receiver,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return ws.WriteJSON(env)
}

// connect runs one connection from dial to drop.
func (r *Reconnector) connect(ctx context.Context) error {
	r.setState(StateConnecting)
	ws, _, err := r.opts.Dialer.DialContext(ctx, r.opts.URL, r.opts.Header)
	if err != nil {
		return err
	}
	defer ws.Close()

	auth := messaging.Envelope{
		Type:      messaging.EnvelopeAuth,
		Sender:    r.session.UserID(),
		Content:   r.session.Credential(),
		Timestamp: time.Now().UTC(),
	}
	if err := ws.WriteJSON(auth); err != nil {
		return err
	}

	r.mu.Lock()
	r.conn = ws
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
	}()
	r.setState(StateConnected)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"), time.Now().Add(time.Second))
			_ = ws.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var env messaging.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.opts.Logger.Debug().Err(err).Msg("ignoring undecodable frame")
			continue
		}
		r.handler(env)
	}
}

func (r *Reconnector) setState(s State) {
	r.mu.Lock()
	changed := r.state != s
	r.state = s
	r.mu.Unlock()
	if changed && r.opts.OnState != nil {
		r.opts.OnState(s)
	}
}

// sleepCtx waits d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
