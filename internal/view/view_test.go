package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mukhtarkv/CTF/internal/conn"
	"github.com/mukhtarkv/CTF/internal/game"
	"github.com/mukhtarkv/CTF/internal/input"
	"github.com/mukhtarkv/CTF/internal/rooms"
)

type scriptedTransport struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func (t *scriptedTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case f := <-t.frames:
		return f, nil
	case <-t.done:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *scriptedTransport) Write(context.Context, []byte) error { return nil }

func (t *scriptedTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func newScriptedView(t *testing.T, role game.Role) (*View, *scriptedTransport) {
	t.Helper()
	tr := &scriptedTransport{frames: make(chan []byte, 32), done: make(chan struct{})}
	mgr := conn.NewManager(zap.NewNop(), conn.WithDial(
		func(context.Context, string) (conn.Transport, error) { return tr, nil },
	))
	v := New(zap.NewNop(), role, "http://localhost:8000", rooms.Info{Key: "123456", ID: "rid"}, mgr)
	return v, tr
}

// tick runs Update until the condition holds, mimicking the game loop.
func tick(t *testing.T, v *View, until func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = v.Update()
		if until() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition never held")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestViewConnectsAndFoldsEvents(t *testing.T) {
	v, tr := newScriptedView(t, game.RoleHost)
	tick(t, v, func() bool { return v.connState == conn.StateConnected })

	tr.frames <- []byte(`{"type":"user_joined","session_id":"p0","player_id":0}`)
	tr.frames <- []byte(`{"type":"game_started","started_by":"h"}`)
	tr.frames <- []byte(`{"type":"positions","players":[[3,4]],"flag_captors":[null,null],"scores":[1,0]}`)
	tick(t, v, func() bool { return len(v.state.Players) > 0 })

	require.Equal(t, 1, v.state.ConnectedPlayers)
	require.True(t, v.state.IsStarted)
	require.Equal(t, game.Player{X: 3, Y: 4, Team: 0}, v.state.Players[0])
	require.Equal(t, [2]int{1, 0}, v.state.Scores)
}

func TestServerErrorBecomesBlockingNotice(t *testing.T) {
	v, tr := newScriptedView(t, game.RolePlayer)
	tick(t, v, func() bool { return v.connState == conn.StateConnected })

	tr.frames <- []byte(`{"type":"error","message":"room full"}`)
	tick(t, v, func() bool { return v.notice != "" })

	require.Equal(t, "room full", v.notice)
	// DisplayState untouched by the application error.
	require.False(t, v.state.IsStarted)
	require.Empty(t, v.state.Players)
}

func TestHostLeftNoticeForPlayersOnly(t *testing.T) {
	v, tr := newScriptedView(t, game.RolePlayer)
	tick(t, v, func() bool { return v.connState == conn.StateConnected })
	tr.frames <- []byte(`{"type":"host_left","session_id":"h"}`)
	tick(t, v, func() bool { return v.notice != "" })

	h, htr := newScriptedView(t, game.RoleHost)
	tick(t, h, func() bool { return h.connState == conn.StateConnected })
	htr.frames <- []byte(`{"type":"welcome","role":"host","session_id":"s","room":"123456"}`)
	htr.frames <- []byte(`{"type":"host_left","session_id":"h"}`)
	// Welcome lands after host_left would have; host keeps no notice.
	tick(t, h, func() bool { return h.connState == conn.StateConnected })
	time.Sleep(20 * time.Millisecond)
	_ = h.Update()
	require.Empty(t, h.notice)
}

func TestPlayerIdentityWiresBindings(t *testing.T) {
	v, tr := newScriptedView(t, game.RolePlayer)
	tick(t, v, func() bool { return v.connState == conn.StateConnected })

	tr.frames <- []byte(`{"type":"welcome","role":"player","session_id":"me","room":"123456"}`)
	tr.frames <- []byte(`{"type":"user_joined","session_id":"someone","player_id":1}`)
	tick(t, v, func() bool { return v.state.SessionID == "me" })
	time.Sleep(20 * time.Millisecond)
	_ = v.Update()
	require.Equal(t, -1, v.state.PlayerID, "someone else's join is not our identity")

	tr.frames <- []byte(`{"type":"user_joined","session_id":"me","player_id":2}`)
	tick(t, v, func() bool { return v.state.PlayerID == 2 })
}

func TestPadTapGatedUntilStart(t *testing.T) {
	v, tr := newScriptedView(t, game.RolePlayer)
	tick(t, v, func() bool { return v.connState == conn.StateConnected })

	var sent []input.Intent
	v.controls = input.NewControls(v.tracker,
		func(it input.Intent) { sent = append(sent, it) },
		func() bool { return v.connState == conn.StateConnected },
		func() bool { return v.state.IsStarted },
	)

	it, ok := v.pad.hit(boardW-2*padButton-8+1, hudH+boardH-2*padButton-8+1)
	require.True(t, ok)
	v.controls.Tap(it)
	require.Empty(t, sent, "tap before start must be dropped")

	tr.frames <- []byte(`{"type":"game_started","started_by":"h"}`)
	tick(t, v, func() bool { return v.state.IsStarted })
	v.controls.Tap(it)
	require.Equal(t, []input.Intent{{DY: -1}}, sent)
}

func TestNoRoomNeverDials(t *testing.T) {
	dials := 0
	mgr := conn.NewManager(zap.NewNop(), conn.WithDial(
		func(context.Context, string) (conn.Transport, error) {
			dials++
			return nil, context.Canceled
		},
	))
	v := New(zap.NewNop(), game.RolePlayer, "http://localhost:8000", rooms.Info{}, mgr)

	for i := 0; i < 3; i++ {
		_ = v.Update()
	}
	require.Zero(t, dials, "missing room key must skip the transport entirely")
}
