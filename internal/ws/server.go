// Package ws bridges websocket clients onto live message channels: one
// channel subscription per connection, owned by that connection and released
// when it goes away.
package ws

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/sync-service/internal/broadcast"
	"github.com/fathima-sithara/sync-service/internal/channel"
	"github.com/fathima-sithara/sync-service/internal/domain"
	"github.com/fathima-sithara/sync-service/internal/service"
)

type Server struct {
	svc   *service.MessageService
	store broadcast.Store
	log   *zap.SugaredLogger
}

func NewServer(svc *service.MessageService, store broadcast.Store, log *zap.SugaredLogger) *Server {
	return &Server{svc: svc, store: store, log: log}
}

// HandleWS is the websocket.Handler used with websocket.New()
func (s *Server) HandleWS(wsConn *websocket.Conn) {
	// Locals set by JWT middleware preserved through upgrade by fiber/websocket
	userID, _ := wsConn.Locals("user_id").(string)
	peerID := wsConn.Query("peer_id")
	if userID == "" || peerID == "" || userID == peerID {
		_ = wsConn.Close()
		return
	}

	conn := &Connection{
		ws:     wsConn,
		send:   make(chan envelope, 256),
		userID: userID,
		peerID: peerID,
		srv:    s,
	}

	key := domain.ConversationKey(userID, peerID)
	ch := channel.New(s.store, key, s.log)
	unsubscribe, err := ch.Subscribe(context.Background(),
		func(msgs []domain.BroadcastMessage) {
			conn.push(envelope{Type: "snapshot", Data: msgs})
		},
		func(err error) {
			conn.push(envelope{Type: "disconnected", Data: err.Error()})
		},
	)
	if err != nil {
		s.log.Warnw("channel subscribe failed", "conversation", key, "err", err)
		_ = wsConn.Close()
		return
	}
	defer unsubscribe()

	s.log.Infow("ws connected", "user", userID, "conversation", key)
	go conn.writePump()
	conn.readPump()
	s.log.Infow("ws closed", "user", userID, "conversation", key)
}
