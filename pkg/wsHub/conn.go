package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	pingWait  = 3 * time.Second
)

var ErrConnClosed = errors.New("connection closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the passenger client is not a browser
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Upgrade switches an HTTP request to the websocket protocol.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Dial opens a client connection to url with the given request headers.
func Dial(ctx context.Context, url string, header http.Header) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Conn struct {
	conn     *websocket.Conn
	entityID string
	doneCtx  context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
}

func NewConn(ctx context.Context, entityID string, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(ctx)

	return &Conn{
		conn:     conn,
		entityID: entityID,
		doneCtx:  ctx,
		cancel:   cancel,
	}
}

func (c *Conn) EntityID() string {
	return c.entityID
}

// Health pings the peer.
func (c *Conn) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health()
}

// health expects c.mu to be held.
func (c *Conn) health() error {
	if c.conn == nil {
		return errors.New("connection is nil")
	}

	select {
	case <-c.doneCtx.Done():
		return ErrConnClosed
	default:
	}

	if err := c.conn.WriteControl(
		websocket.PingMessage,
		[]byte("ping"),
		time.Now().Add(pingWait),
	); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	return nil
}

// Send writes msg as one JSON text frame.
func (c *Conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.health(); err != nil {
		return fmt.Errorf("send failed: connection not healthy: %w", err)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return c.conn.WriteJSON(msg)
}

// Listen reads frames and passes each payload to handler until the connection
// fails, the handler fails, or the connection is closed.
func (c *Conn) Listen(handler func(payload []byte) error) error {
	go func() {
		// unblock the pending read once the context is done
		<-c.doneCtx.Done()
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if c.doneCtx.Err() != nil {
				return ErrConnClosed
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if err := handler(payload); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCtx.Done()
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	if c.conn != nil {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return c.conn.Close()
	}
	return nil
}
