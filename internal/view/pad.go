package view

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/mukhtarkv/CTF/internal/input"
)

const padButton = 32

// padLayout is the on-screen directional pad for pointer and touch play.
// Taps emit the same discrete intents as a key-down edge.
type padLayout struct {
	buttons []padButtonSpec
}

type padButtonSpec struct {
	rect   image.Rectangle
	intent input.Intent
	label  string
}

func defaultPad() padLayout {
	// Cross in the bottom-right corner, clear of the flags.
	baseX := boardW - 3*padButton - 8
	baseY := hudH + boardH - 2*padButton - 8

	at := func(col, row int) image.Rectangle {
		x := baseX + col*padButton
		y := baseY + row*padButton
		return image.Rect(x, y, x+padButton, y+padButton)
	}

	return padLayout{buttons: []padButtonSpec{
		{rect: at(1, 0), intent: input.Intent{DY: -1}, label: "^"},
		{rect: at(0, 1), intent: input.Intent{DX: -1}, label: "<"},
		{rect: at(1, 1), intent: input.Intent{DY: 1}, label: "v"},
		{rect: at(2, 1), intent: input.Intent{DX: 1}, label: ">"},
	}}
}

func (p padLayout) hit(x, y int) (input.Intent, bool) {
	for _, b := range p.buttons {
		if image.Pt(x, y).In(b.rect) {
			return b.intent, true
		}
	}
	return input.Intent{}, false
}

func (p padLayout) draw(dst *ebiten.Image) {
	fill := color.RGBA{0x33, 0x33, 0x33, 0x99}
	for _, b := range p.buttons {
		vector.DrawFilledRect(dst,
			float32(b.rect.Min.X), float32(b.rect.Min.Y),
			float32(b.rect.Dx()), float32(b.rect.Dy()), fill, false)
		ebitenutil.DebugPrintAt(dst, b.label, b.rect.Min.X+padButton/2-3, b.rect.Min.Y+padButton/2-8)
	}
}
