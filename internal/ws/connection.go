package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/fathima-sithara/sync-service/internal/domain"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type command struct {
	Type      string           `json:"type"`
	Content   string           `json:"content,omitempty"`
	MessageID string           `json:"message_id,omitempty"`
	Emoji     string           `json:"emoji,omitempty"`
	MediaURL  string           `json:"media_url,omitempty"`
	MediaKind domain.MediaKind `json:"media_kind,omitempty"`
	ReplyTo   string           `json:"reply_to,omitempty"`
}

type Connection struct {
	ws     *websocket.Conn
	send   chan envelope
	userID string
	peerID string
	srv    *Server
}

// push queues an envelope, dropping it when the client cannot keep up. The
// next full snapshot makes up for any dropped frame.
func (c *Connection) push(ev envelope) {
	select {
	case c.send <- ev:
	default:
	}
}

func (c *Connection) readPump() {
	defer func() { _ = c.ws.Close() }()
	c.ws.SetReadLimit(32 * 1024)
	_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			// ignore invalid JSON from client, don't disconnect
			continue
		}
		c.handle(cmd)
	}
}

func (c *Connection) handle(cmd command) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch cmd.Type {
	case "send":
		var media *domain.MediaInput
		if cmd.MediaURL != "" {
			media = &domain.MediaInput{FileURL: cmd.MediaURL, Kind: cmd.MediaKind}
		}
		_, err = c.srv.svc.Send(ctx, c.userID, c.peerID, cmd.Content, cmd.ReplyTo, media)
	case "read":
		err = c.srv.svc.MarkRead(ctx, c.userID, c.peerID)
	case "react":
		err = c.srv.svc.React(ctx, c.userID, c.peerID, cmd.MessageID, cmd.Emoji)
	case "unsend":
		err = c.srv.svc.Unsend(ctx, c.userID, c.peerID, cmd.MessageID)
	default:
		return
	}
	if err != nil {
		c.push(envelope{Type: "error", Data: err.Error()})
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
