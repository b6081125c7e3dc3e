// Package view holds the two game screens. Host and player reuse every
// component identically; they differ only in which outbound messages they
// may send and in what the lobby screen shows. All display state comes from
// folding connection events through game.Reconcile; the screen is always
// redrawn from that state alone.
package view

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/internal/conn"
	"github.com/mukhtarkv/CTF/internal/game"
	"github.com/mukhtarkv/CTF/internal/input"
	"github.com/mukhtarkv/CTF/internal/render"
	"github.com/mukhtarkv/CTF/internal/rooms"
	"github.com/mukhtarkv/CTF/pkg/protocol"
)

const (
	boardW = game.GridWidth * render.CellSize
	boardH = game.GridHeight * render.CellSize
	hudH   = 40
)

// View is one mounted game screen bound to one room session.
type View struct {
	log  *zap.Logger
	role game.Role

	serverURL string
	info      rooms.Info
	mgr       *conn.Manager
	connState conn.State

	state  game.State
	notice string

	tracker  *input.Tracker
	controls *input.Controls
	pad      padLayout

	board *ebiten.Image
}

// New mounts a view for an already-resolved room. An empty info key renders
// the "no room" placeholder and never dials.
func New(log *zap.Logger, role game.Role, serverURL string, info rooms.Info, mgr *conn.Manager) *View {
	v := &View{
		log:       log,
		role:      role,
		serverURL: serverURL,
		info:      info,
		mgr:       mgr,
		connState: conn.StateDisconnected,
		state:     game.NewState(),
		tracker:   input.NewTracker(),
		pad:       defaultPad(),
	}
	v.controls = input.NewControls(
		v.tracker,
		func(it input.Intent) {
			v.mgr.Send(context.Background(), protocol.NewMove(it.DX, it.DY))
		},
		func() bool { return v.connState == conn.StateConnected },
		func() bool { return v.state.IsStarted },
	)
	return v
}

// Unmount tears the session down; a later view starts from scratch.
func (v *View) Unmount() { v.mgr.Disconnect() }

func (v *View) Update() error {
	// Safe to call every tick: Connect suppresses any repeat of the last
	// URL until Unmount disconnects, so a failed session is never dialed
	// again on its own, and an empty URL (no room key) is skipped entirely.
	v.mgr.Connect(context.Background(), rooms.SocketURL(v.serverURL, v.info.Key, v.role))

	v.drainEvents()

	if v.notice != "" {
		// A blocking notice eats all input until dismissed.
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			v.notice = ""
		}
		return nil
	}

	switch v.role {
	case game.RoleHost:
		v.updateHost()
	case game.RolePlayer:
		v.updatePlayer()
	}
	return nil
}

// drainEvents folds everything the connection delivered since the last
// tick, one message at a time, in arrival order.
func (v *View) drainEvents() {
	for {
		select {
		case ev := <-v.mgr.Events():
			v.apply(ev)
		default:
			return
		}
	}
}

func (v *View) apply(ev conn.Event) {
	switch ev := ev.(type) {
	case conn.StateChanged:
		v.connState = ev.State

	case conn.Inbound:
		switch msg := ev.Msg.(type) {
		case protocol.Chat:
			// Display-only; no state.
			v.log.Info("chat", zap.String("from", msg.From), zap.String("content", msg.Content))
		case protocol.ServerError:
			v.notice = msg.Message
		case protocol.HostLeft:
			if v.role == game.RolePlayer {
				v.notice = "host left the game"
			}
		default:
			v.state = game.Reconcile(v.state, v.role, msg)
			if v.role == game.RolePlayer && v.state.PlayerID >= 0 {
				v.tracker.SetPlayerID(v.state.PlayerID)
			}
		}
	}
}

func (v *View) updateHost() {
	if v.state.IsStarted {
		return
	}
	canStart := v.connState == conn.StateConnected && v.state.ConnectedPlayers > 0
	if canStart && (inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace)) {
		v.mgr.Send(context.Background(), protocol.NewStartGame())
	}
}

func (v *View) updatePlayer() {
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		v.controls.KeyDown(k)
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		v.controls.KeyUp(k)
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if it, ok := v.pad.hit(x, y); ok {
			v.controls.Tap(it)
		}
	}
}

func (v *View) Draw(screen *ebiten.Image) {
	if v.info.Key == "" {
		ebitenutil.DebugPrintAt(screen, "no room", boardW/2-24, hudH)
		return
	}

	v.drawHUD(screen)

	if !v.state.IsStarted {
		v.drawLobby(screen)
	} else {
		sc := render.Compose(v.state, game.GridWidth, game.GridHeight)
		if v.board == nil {
			v.board = ebiten.NewImage(boardW, boardH)
		}
		v.board.Clear()
		render.Draw(v.board, sc)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(0, hudH)
		screen.DrawImage(v.board, op)

		if v.role == game.RolePlayer {
			v.pad.draw(screen)
		}
	}

	if v.notice != "" {
		ebitenutil.DebugPrintAt(screen, "ERROR: "+v.notice+"  (esc to dismiss)", 8, boardH+hudH-16)
	}
}

func (v *View) drawHUD(screen *ebiten.Image) {
	status := string(v.connState)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("room %s  [%s]  %s", v.info.Key, v.role, status), 8, 4)

	if v.state.IsStarted {
		ebitenutil.DebugPrintAt(screen,
			fmt.Sprintf("blue %d - %d red", v.state.Scores[0], v.state.Scores[1]), 8, 20)
	}
}

func (v *View) drawLobby(screen *ebiten.Image) {
	switch v.role {
	case game.RoleHost:
		ebitenutil.DebugPrintAt(screen, "share this code: "+v.info.Key, 8, hudH+8)
		ebitenutil.DebugPrintAt(screen,
			fmt.Sprintf("players connected: %d/%d", v.state.ConnectedPlayers, game.MaxPlayers), 8, hudH+24)
		if v.state.ConnectedPlayers > 0 {
			ebitenutil.DebugPrintAt(screen, "press enter to start", 8, hudH+40)
		}
	case game.RolePlayer:
		ebitenutil.DebugPrintAt(screen, "joined game "+v.info.Key, 8, hudH+8)
		ebitenutil.DebugPrintAt(screen, "waiting for host to start", 8, hudH+24)
	}
}

func (v *View) Layout(_, _ int) (int, int) {
	return boardW, boardH + hudH
}
