package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/internal/game"
	"github.com/mukhtarkv/CTF/pkg/protocol"
)

type RoomMsg interface{ isRoomMsg() }

type Join struct {
	SessionID string
	Role      game.Role
	Outbox    chan []byte
	// Reply receives the assigned player index, or -1 for hosts and
	// rejected joins.
	Reply chan int
}

type Leave struct {
	SessionID string
	Role      game.Role
}

type FromClient struct {
	SessionID string
	Role      game.Role
	PlayerID  int
	Event     protocol.ClientEvent
}

type GetView struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (FromClient) isRoomMsg() {}
func (GetView) isRoomMsg()    {}
func (Shutdown) isRoomMsg()   {}

// View reflects internal room state for tests without data races.
type View struct {
	Key        string
	ID         string
	NumClients int
	NumPlayers int
	Started    bool
}

// spawns are the corner cells players start in, by player index.
var spawns = [game.MaxPlayers][2]float64{
	{0, 0},
	{game.GridWidth - 1, 0},
	{0, game.GridHeight - 1},
	{game.GridWidth - 1, game.GridHeight - 1},
}

// Room relays the wire protocol among the sockets of one match. One
// goroutine owns all state; sockets talk to it through the inbox and
// receive frames on their outbox channels.
type Room struct {
	key     string
	id      string
	inbox   chan RoomMsg
	clients map[string]chan []byte
	players [][2]float64
	started bool
	scores  [2]int
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRoom(parent context.Context, key, id string, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		key:     key,
		id:      id,
		inbox:   make(chan RoomMsg, 64),
		clients: make(map[string]chan []byte),
		log:     log.With(zap.String("room", key)),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- RoomMsg { return r.inbox }

func (r *Room) Key() string { return r.key }

func (r *Room) ID() string { return r.id }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- r.join(msg)

			case Leave:
				// Sessions that never made it in (a rejected fifth
				// player) leave no trace: nobody was told they joined.
				if _, ok := r.clients[msg.SessionID]; !ok {
					continue
				}
				delete(r.clients, msg.SessionID)
				switch msg.Role {
				case game.RoleHost:
					r.broadcast(protocol.HostLeft{SessionID: msg.SessionID})
				default:
					r.broadcast(protocol.UserLeft{SessionID: msg.SessionID})
				}

			case FromClient:
				r.handle(msg)

			case GetView:
				msg.Reply <- View{
					Key:        r.key,
					ID:         r.id,
					NumClients: len(r.clients),
					NumPlayers: len(r.players),
					Started:    r.started,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) join(msg Join) int {
	if msg.Role != game.RolePlayer {
		r.clients[msg.SessionID] = msg.Outbox
		return -1
	}

	if len(r.players) >= game.MaxPlayers {
		r.send(msg.Outbox, protocol.ServerError{Message: "room full"})
		return -1
	}

	r.clients[msg.SessionID] = msg.Outbox
	playerID := len(r.players)
	r.players = append(r.players, spawns[playerID])
	r.broadcast(protocol.UserJoined{SessionID: msg.SessionID, PlayerID: playerID})
	return playerID
}

func (r *Room) handle(msg FromClient) {
	switch ev := msg.Event.(type) {
	case protocol.StartGame:
		// Hosts start matches; anyone else asking is ignored.
		if msg.Role != game.RoleHost || r.started {
			return
		}
		r.started = true
		r.broadcast(protocol.GameStarted{StartedBy: msg.SessionID})
		r.broadcastPositions()

	case protocol.Move:
		if !r.started || msg.Role != game.RolePlayer {
			return
		}
		if msg.PlayerID < 0 || msg.PlayerID >= len(r.players) {
			return
		}
		// Deltas are applied as-is, only clamped to the grid. Walls, tags
		// and captures are the real server's business.
		p := &r.players[msg.PlayerID]
		p[0] = clamp(p[0]+float64(clampUnit(ev.DX)), 0, game.GridWidth-1)
		p[1] = clamp(p[1]+float64(clampUnit(ev.DY)), 0, game.GridHeight-1)
		r.broadcastPositions()

	case protocol.ChatSend:
		r.broadcast(protocol.Chat{From: msg.SessionID, Content: ev.Content})
	}
}

func (r *Room) broadcastPositions() {
	captors := make([]*int, 2)
	r.broadcast(protocol.Positions{
		Players:     append([][2]float64(nil), r.players...),
		FlagCaptors: captors,
		Scores:      r.scores[:],
	})
}

func (r *Room) broadcast(ev protocol.ServerEvent) {
	frame, err := protocol.EncodeServer(ev)
	if err != nil {
		r.log.Warn("broadcast encode failed", zap.Error(err))
		return
	}
	for id, out := range r.clients {
		select {
		case out <- frame:
		default:
			// Slow or gone: drop the client.
			close(out)
			delete(r.clients, id)
		}
	}
}

func (r *Room) send(out chan []byte, ev protocol.ServerEvent) {
	frame, err := protocol.EncodeServer(ev)
	if err != nil {
		return
	}
	select {
	case out <- frame:
	default:
	}
}

func (r *Room) shutdown() {
	for id, out := range r.clients {
		close(out)
		delete(r.clients, id)
	}
	r.cancel()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampUnit(d int) int {
	if d > 1 {
		return 1
	}
	if d < -1 {
		return -1
	}
	return d
}
