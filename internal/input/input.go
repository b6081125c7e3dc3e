// Package input turns raw key and pointer events into unit move intents.
// Intents fire on the key-down edge only: holding a key emits nothing more
// until it is released, regardless of OS key repeat.
package input

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Intent is one unit move. DX and DY are each -1, 0 or 1.
type Intent struct {
	DX int
	DY int
}

// Tracker keeps the set of currently held keys and resolves bindings for
// one local player.
type Tracker struct {
	playerID int
	held     map[ebiten.Key]bool
}

func NewTracker() *Tracker {
	return &Tracker{playerID: -1, held: make(map[ebiten.Key]bool)}
}

// SetPlayerID switches on the extra binding layer for the 3rd and 4th
// player slots. Universal bindings stay active regardless.
func (t *Tracker) SetPlayerID(id int) { t.playerID = id }

// KeyDown records a key press and returns the resulting intent, if any.
// A key already held is ignored: that is the repeat-fire suppression.
func (t *Tracker) KeyDown(k ebiten.Key) (Intent, bool) {
	if t.held[k] {
		return Intent{}, false
	}
	t.held[k] = true

	it := bindingFor(t.playerID, k)
	if it == (Intent{}) {
		return Intent{}, false
	}
	return it, true
}

// KeyUp releases a key. No intent is emitted; the key is armed again.
func (t *Tracker) KeyUp(k ebiten.Key) { delete(t.held, k) }

// bindingFor maps a key to a movement vector. Arrows and WASD work for
// everyone; players 3 and 4 additionally get their own non-overlapping
// four-key sets so several people can share one keyboard.
func bindingFor(playerID int, k ebiten.Key) Intent {
	switch k {
	case ebiten.KeyW, ebiten.KeyArrowUp:
		return Intent{DY: -1}
	case ebiten.KeyS, ebiten.KeyArrowDown:
		return Intent{DY: 1}
	case ebiten.KeyA, ebiten.KeyArrowLeft:
		return Intent{DX: -1}
	case ebiten.KeyD, ebiten.KeyArrowRight:
		return Intent{DX: 1}
	}

	switch playerID {
	case 2:
		switch k {
		case ebiten.KeyF:
			return Intent{DY: -1}
		case ebiten.KeyH:
			return Intent{DY: 1}
		case ebiten.KeyG:
			return Intent{DX: -1}
		case ebiten.KeyT:
			return Intent{DX: 1}
		}
	case 3:
		switch k {
		case ebiten.KeyJ:
			return Intent{DY: -1}
		case ebiten.KeyL:
			return Intent{DY: 1}
		case ebiten.KeyK:
			return Intent{DX: -1}
		case ebiten.KeyI:
			return Intent{DX: 1}
		}
	}
	return Intent{}
}

// Controls gates intents on session and match state and forwards the ones
// that pass. The emit callback is the connection manager's send; connected
// and started reflect the live view.
type Controls struct {
	tracker   *Tracker
	emit      func(Intent)
	connected func() bool
	started   func() bool
}

func NewControls(tracker *Tracker, emit func(Intent), connected, started func() bool) *Controls {
	return &Controls{tracker: tracker, emit: emit, connected: connected, started: started}
}

func (c *Controls) KeyDown(k ebiten.Key) {
	it, ok := c.tracker.KeyDown(k)
	if !ok {
		return
	}
	c.forward(it)
}

func (c *Controls) KeyUp(k ebiten.Key) { c.tracker.KeyUp(k) }

// Tap is the on-screen pad path: pointer and touch presses emit the same
// discrete intents as a key-down edge, gated identically.
func (c *Controls) Tap(it Intent) {
	if it == (Intent{}) {
		return
	}
	c.forward(it)
}

func (c *Controls) forward(it Intent) {
	if !c.connected() || !c.started() {
		return
	}
	c.emit(it)
}
