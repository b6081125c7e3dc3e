// Package render draws the current display state onto a frame. Composition
// is split from painting: Compose derives every visual fact (territories,
// capture state, carried-flag markers) as a plain display list, and Draw
// paints that list. Identical state always composes the identical scene.
package render

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/mukhtarkv/CTF/internal/game"
)

// CellSize is the pixel size of one grid cell.
const CellSize = 20

var (
	colorBackground = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	colorGrid       = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	colorCenter     = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorWall       = color.RGBA{0x33, 0x33, 0x33, 0xff}
	colorPole       = color.RGBA{0x8b, 0x5c, 0xf6, 0xff}
	colorCapturedBG = color.RGBA{0x80, 0x80, 0x80, 0x80}

	// Translucent halves, then the saturated team colors for flags and the
	// darker ones for player discs.
	territoryColors = [2]color.RGBA{{0x3b, 0x82, 0xf6, 0x1a}, {0xef, 0x44, 0x44, 0x1a}}
	flagColors      = [2]color.RGBA{{0x3b, 0x82, 0xf6, 0xff}, {0xef, 0x44, 0x44, 0xff}}
	playerColors    = [2]color.RGBA{{0x1d, 0x4e, 0xd8, 0xff}, {0xdc, 0x26, 0x26, 0xff}}
)

type FlagSprite struct {
	X, Y     int
	Team     int
	Captured bool
}

type PlayerSprite struct {
	X, Y    int
	Team    int
	Ordinal int // 1-based label
	Carried int // index of the flag this player carries, or game.NoCaptor
}

// Scene is the fully derived frame description.
type Scene struct {
	WidthCells  int
	HeightCells int
	Walls       []game.Cell
	Flags       []FlagSprite
	Players     []PlayerSprite
}

// Compose derives the scene from display state. A missing or short captor
// sequence reads as "no captor" per slot, so the function is safe on every
// state the reconciler can produce.
func Compose(s game.State, widthCells, heightCells int) Scene {
	sc := Scene{
		WidthCells:  widthCells,
		HeightCells: heightCells,
		Walls:       s.Walls,
	}

	captor := func(i int) int {
		if i < len(s.FlagCaptors) {
			return s.FlagCaptors[i]
		}
		return game.NoCaptor
	}

	for i, f := range s.Flags {
		sc.Flags = append(sc.Flags, FlagSprite{
			X: f.X, Y: f.Y, Team: f.Team,
			Captured: captor(i) != game.NoCaptor,
		})
	}

	for i, p := range s.Players {
		carried := game.NoCaptor
		for fi := range s.Flags {
			if captor(fi) == i {
				carried = fi
			}
		}
		sc.Players = append(sc.Players, PlayerSprite{
			X: p.X, Y: p.Y,
			Team:    game.TeamOf(i),
			Ordinal: i + 1,
			Carried: carried,
		})
	}
	return sc
}

// Draw paints the scene in back-to-front order: background, grid, territory
// halves, center boundary, walls, flags, players.
func Draw(dst *ebiten.Image, sc Scene) {
	w := float32(sc.WidthCells * CellSize)
	h := float32(sc.HeightCells * CellSize)

	vector.DrawFilledRect(dst, 0, 0, w, h, colorBackground, false)

	for x := 0; x <= sc.WidthCells; x++ {
		fx := float32(x * CellSize)
		vector.StrokeLine(dst, fx, 0, fx, h, 1, colorGrid, false)
	}
	for y := 0; y <= sc.HeightCells; y++ {
		fy := float32(y * CellSize)
		vector.StrokeLine(dst, 0, fy, w, fy, 1, colorGrid, false)
	}

	// Left half scores for team 0, right half for team 1.
	half := w / 2
	vector.DrawFilledRect(dst, 0, 0, half, h, territoryColors[0], false)
	vector.DrawFilledRect(dst, half, 0, half, h, territoryColors[1], false)

	dashedVLine(dst, half, h)

	for _, c := range sc.Walls {
		vector.DrawFilledRect(dst,
			float32(c.X*CellSize), float32(c.Y*CellSize),
			CellSize, CellSize, colorWall, false)
	}

	for _, f := range sc.Flags {
		drawFlag(dst, f)
	}
	for _, p := range sc.Players {
		drawPlayer(dst, p)
	}
}

// dashedVLine strokes the center boundary in 5px-on 5px-off segments.
func dashedVLine(dst *ebiten.Image, x, h float32) {
	for y := float32(0); y < h; y += 10 {
		end := y + 5
		if end > h {
			end = h
		}
		vector.StrokeLine(dst, x, y, x, end, 2, colorCenter, false)
	}
}

func drawFlag(dst *ebiten.Image, f FlagSprite) {
	px := float32(f.X * CellSize)
	py := float32(f.Y * CellSize)

	if !f.Captured {
		vector.DrawFilledRect(dst, px+2, py+2, CellSize-4, CellSize-4, flagColors[f.Team%2], false)
		vector.DrawFilledRect(dst, px+CellSize/2-1, py, 2, CellSize, colorPole, false)
		return
	}

	// Carried away: grey the spawn cell and say so.
	vector.DrawFilledRect(dst, px+2, py+2, CellSize-4, CellSize-4, colorCapturedBG, false)
	ebitenutil.DebugPrintAt(dst, "CAPTURED", int(px)+2, int(py)+2)
}

func drawPlayer(dst *ebiten.Image, p PlayerSprite) {
	cx := float32(p.X*CellSize) + CellSize/2
	cy := float32(p.Y*CellSize) + CellSize/2

	vector.DrawFilledCircle(dst, cx, cy, CellSize/3, playerColors[p.Team%2], false)
	ebitenutil.DebugPrintAt(dst, fmt.Sprintf("%d", p.Ordinal), int(cx)-3, int(cy)-8)

	if p.Carried != game.NoCaptor {
		// Small carried-flag marker above the disc, colored by the flag's
		// team slot.
		my := float32(p.Y*CellSize) - 8
		vector.DrawFilledRect(dst, cx-3, my, 6, 6, flagColors[p.Carried%2], false)
		vector.DrawFilledRect(dst, cx-1, my, 2, 8, colorPole, false)
	}
}
