package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/internal/game"
	"github.com/mukhtarkv/CTF/pkg/protocol"
)

// SocketHandler upgrades GET /rooms/{key}?role=host|player and bridges the
// socket to the room actor.
func SocketHandler(reg *Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		role := game.Role(r.URL.Query().Get("role"))
		if role != game.RoleHost {
			role = game.RolePlayer
		}

		reply := make(chan *Room, 1)
		reg.Inbox() <- GetRoom{Key: key, Reply: reply}
		room := <-reply
		if room == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		sessionID := randID(16)
		out := make(chan []byte, 16)

		welcome, err := protocol.EncodeServer(protocol.Welcome{
			Role:      string(role),
			SessionID: sessionID,
			Room:      key,
		})
		if err != nil {
			return
		}
		if err := conn.Write(r.Context(), websocket.MessageText, welcome); err != nil {
			return
		}

		joined := make(chan int, 1)
		room.Inbox() <- Join{SessionID: sessionID, Role: role, Outbox: out, Reply: joined}
		playerID := <-joined
		defer func() { room.Inbox() <- Leave{SessionID: sessionID, Role: role} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range out {
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, frame)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}

			ev, perr := protocol.ParseClient(data)
			if perr != nil {
				log.Debug("dropping client frame", zap.Error(perr))
				continue
			}

			room.Inbox() <- FromClient{
				SessionID: sessionID,
				Role:      role,
				PlayerID:  playerID,
				Event:     ev,
			}
		}
	}
}
