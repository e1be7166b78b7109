package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polyglot-bot/polyglot/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 4096
	sendBuffer = 32
)

// Client represents a connected event feed client
type Client struct {
	ID        string
	Conn      *websocket.Conn
	Server    *Server
	send      chan *protocol.Message
	closeOnce sync.Once
	closeChan chan struct{}
}

// NewClient creates a new client
func NewClient(id string, conn *websocket.Conn, server *Server) *Client {
	return &Client{
		ID:        id,
		Conn:      conn,
		Server:    server,
		send:      make(chan *protocol.Message, sendBuffer),
		closeChan: make(chan struct{}),
	}
}

// Handle reads client messages until the connection closes.
func (c *Client) Handle() {
	defer c.Close()

	c.Conn.SetReadLimit(readLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Server.logger.Debug("feed client read error", "client", c.ID, "error", err)
			}
			return
		}
		c.ProcessMessage(&msg)
	}
}

// ProcessMessage answers echo requests; the feed is otherwise one-way.
func (c *Client) ProcessMessage(msg *protocol.Message) {
	if msg == nil {
		return
	}
	if msg.Action == protocol.ActionEcho {
		c.Enqueue(&protocol.Message{
			Kind:   protocol.MessageKindSystem,
			Action: protocol.ActionEcho,
			Data:   msg.Data,
		})
		return
	}
	c.Server.logger.Debug("ignored feed client message", "client", c.ID, "kind", msg.Kind, "action", msg.Action)
}

// Enqueue queues a message without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) Enqueue(msg *protocol.Message) bool {
	select {
	case <-c.closeChan:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.Server.logger.Warn("feed client too slow, dropping event", "client", c.ID)
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closeChan:
			return
		case msg := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(msg); err != nil {
				c.Server.logger.Debug("feed client write error", "client", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		_ = c.Conn.Close()
		c.Server.removeClient(c)
		c.Server.logger.Info("feed client disconnected", "client", c.ID)
	})
}
