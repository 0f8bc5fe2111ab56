package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10

	sendBuffer = 128
)

// Close codes sent by the server.
const (
	CloseSessionReplaced = 4001
	CloseAuthTimeout     = 4008
)

var (
	ErrConnectionClosed = errors.New("realtime: connection closed")
	ErrSendBufferFull   = errors.New("realtime: send buffer full")
)

// Connection wraps one websocket. It is unauthenticated (UserID 0) until the
// registry binds it, and the binding never changes afterwards.
// Outbound frames go through a buffered channel drained by a single writer.
type Connection struct {
	ID string

	userID atomic.Int64
	ws     *websocket.Conn
	send   chan []byte
	once   sync.Once
	done   chan struct{}
}

func NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// UserID returns the bound user, or 0 while unauthenticated.
func (c *Connection) UserID() int64 { return c.userID.Load() }

func (c *Connection) Authenticated() bool { return c.userID.Load() != 0 }

// Done is closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Start launches the write loop. It must be called exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload. A slow reader that fills the buffer gets disconnected.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	case c.send <- payload:
		return nil
	default:
		// the caller is another user's read loop; the close frame may wait
		// behind this connection's stalled writer, so it goes out in the background
		c.shutdown(websocket.CloseGoingAway, "send buffer full", true)
		return ErrSendBufferFull
	}
}

// Close sends a close frame and tears the socket down. Safe to call repeatedly.
func (c *Connection) Close(code int, reason string) {
	c.shutdown(code, reason, false)
}

// shutdown marks the connection closed at once; async only defers the
// close frame and the socket teardown.
func (c *Connection) shutdown(code int, reason string, async bool) {
	c.once.Do(func() {
		close(c.done)
		if async {
			go c.teardown(code, reason)
			return
		}
		c.teardown(code, reason)
	})
}

func (c *Connection) teardown(code int, reason string) {
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(WriteWait))
	_ = c.ws.Close()
}

func (c *Connection) bind(userID int64) bool {
	return c.userID.CompareAndSwap(0, userID)
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
