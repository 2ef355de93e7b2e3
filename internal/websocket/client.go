package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/smartgrocery/internal/model"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	readLimit      = 4096
)

// Client is one websocket connection of a signed-in user. Item changes reach
// it through the hub; full lists arrive on the snapshot channel.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID int64
	send   chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Run blocks until the peer goes away or ctx ends. The client is registered
// with the hub for that time.
func (c *Client) Run(ctx context.Context, snapshots <-chan []model.GroceryItem) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(readLimit)
	// The list is pushed from the server, so reading only watches for close.
	ctx = c.conn.CloseRead(ctx)
	c.writeLoop(ctx, snapshots)
}

func (c *Client) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, data)
}

func (c *Client) writeLoop(ctx context.Context, snapshots <-chan []model.GroceryItem) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		var data []byte
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			data = msg
		case items, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			b, err := json.Marshal(Message{Type: TypeGroceryList, Entity: EntityGroceryItem, Action: "list", Data: items})
			if err != nil {
				c.hub.logger.Error("marshal snapshot", "user_id", c.userID, "error", err)
				continue
			}
			data = b
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
			continue
		case <-ctx.Done():
			return
		}
		if err := c.write(ctx, data); err != nil {
			return
		}
	}
}
