package main

import (
	"context"
	"flag"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/internal/config"
	"github.com/mukhtarkv/CTF/internal/conn"
	"github.com/mukhtarkv/CTF/internal/game"
	"github.com/mukhtarkv/CTF/internal/render"
	"github.com/mukhtarkv/CTF/internal/rooms"
	"github.com/mukhtarkv/CTF/internal/view"
)

func main() {
	roleFlag := flag.String("role", "player", "host or player")
	key := flag.String("key", "", "room key to join (hosts create one when omitted)")
	server := flag.String("server", "", "room service base URL (overrides CTF_SERVER_URL)")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()
	if *server != "" {
		cfg.ServerURL = *server
	}

	role := game.RolePlayer
	if *roleFlag == string(game.RoleHost) {
		role = game.RoleHost
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Resolve the room up front; an empty result just renders the
	// "no room" placeholder instead of dialing anything.
	api := rooms.NewClient(cfg.ServerURL, log)
	var info rooms.Info
	switch {
	case role == game.RoleHost && *key == "":
		info, err = api.Create(ctx)
	default:
		info, err = api.Join(ctx, *key)
	}
	if err != nil {
		log.Warn("no game info", zap.String("key", *key), zap.Error(err))
	}

	mgr := conn.NewManager(log)
	v := view.New(log, role, cfg.ServerURL, info, mgr)
	defer v.Unmount()

	ebiten.SetWindowSize(game.GridWidth*render.CellSize, game.GridHeight*render.CellSize+80)
	ebiten.SetWindowTitle("capture the flag - " + string(role))
	if err := ebiten.RunGame(v); err != nil {
		log.Fatal("game loop stopped", zap.Error(err))
	}
}
