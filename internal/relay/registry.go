// Package relay is a development stand-in for the authoritative game
// server: it creates rooms, accepts host and player sockets, and echoes the
// room protocol back out. It applies move deltas without any rule
// validation; capture logic, collisions and scoring belong to the real
// server, not here.
package relay

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"go.uber.org/zap"
)

type RegistryMsg interface{ isRegistryMsg() }

type CreateRoom struct {
	Reply chan *Room
}

type GetRoom struct {
	Key   string
	Reply chan *Room
}

type RemoveRoom struct {
	Key string
}

type ShutdownRegistry struct{}

func (CreateRoom) isRegistryMsg()       {}
func (GetRoom) isRegistryMsg()          {}
func (RemoveRoom) isRegistryMsg()       {}
func (ShutdownRegistry) isRegistryMsg() {}

// Registry owns the set of live rooms. Like the rooms themselves it is an
// actor: all access goes through the inbox, so there is no lock.
type Registry struct {
	inbox  chan RegistryMsg
	rooms  map[string]*Room
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry(parent context.Context, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	reg := &Registry{
		inbox:  make(chan RegistryMsg, 64),
		rooms:  make(map[string]*Room),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go reg.loop()
	return reg
}

func (reg *Registry) Inbox() chan<- RegistryMsg { return reg.inbox }

func (reg *Registry) loop() {
	for {
		select {
		case <-reg.ctx.Done():
			reg.shutdown()
			return

		case m := <-reg.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				key := reg.freshKey()
				room := NewRoom(reg.ctx, key, randID(8), reg.log)
				reg.rooms[key] = room
				reg.log.Info("room created", zap.String("key", key))
				msg.Reply <- room

			case GetRoom:
				msg.Reply <- reg.rooms[msg.Key] // may be nil

			case RemoveRoom:
				delete(reg.rooms, msg.Key)

			case ShutdownRegistry:
				reg.shutdown()
				return
			}
		}
	}
}

func (reg *Registry) shutdown() {
	for key, room := range reg.rooms {
		room.Inbox() <- Shutdown{}
		delete(reg.rooms, key)
	}
	reg.cancel()
}

// freshKey draws 6-digit numeric keys until one is unused.
func (reg *Registry) freshKey() string {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err != nil {
			continue
		}
		key := fmt.Sprintf("%06d", n.Int64())
		if _, taken := reg.rooms[key]; !taken {
			return key
		}
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			b[i] = charset[0]
			continue
		}
		b[i] = charset[n.Int64()]
	}
	return string(b)
}
