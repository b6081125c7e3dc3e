package relay

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type roomResponse struct {
	Key string `json:"room_id"`
	ID  string `json:"id"`
}

// SetupRoutes builds the relay's router with the registry injected.
func SetupRoutes(reg *Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", createRoom(reg))
	r.Get("/rooms/{key}/join", joinRoom(reg))
	r.Get("/rooms/{key}", SocketHandler(reg, log))
	r.Get("/healthz", healthz)
	return r
}

func createRoom(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan *Room, 1)
		reg.Inbox() <- CreateRoom{Reply: reply}
		room := <-reply
		if room == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(roomResponse{Key: room.Key(), ID: room.ID()})
	}
}

func joinRoom(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		reply := make(chan *Room, 1)
		reg.Inbox() <- GetRoom{Key: key, Reply: reply}
		room := <-reply
		if room == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(roomResponse{Key: room.Key(), ID: room.ID()})
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
