//go:build gui

package gui

import (
	"image/color"
	"strings"

	"github.com/hajimehoshi/bitmapfont/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font"
)

const (
	screenWidth, screenHeight = 1024, 768

	margin      = 8
	codeColumns = 48
)

var fontFace = text.NewGoXFace(bitmapfont.Face)

var (
	background  = color.RGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}
	textColor   = color.RGBA{R: 0xcd, G: 0xd6, B: 0xf4, A: 0xff}
	pcColor     = color.RGBA{R: 0xf9, G: 0xe2, B: 0xaf, A: 0xff}
	breakColor  = color.RGBA{R: 0xf3, G: 0x8b, B: 0xa8, A: 0xff}
	selectColor = color.RGBA{R: 0x89, G: 0xb4, B: 0xfa, A: 0xff}
	panelColor  = color.RGBA{R: 0xa6, G: 0xe3, B: 0xa1, A: 0xff}
)

var actionByKeys = map[ebiten.Key]action{
	ebiten.KeyN:         actStep,
	ebiten.KeySpace:     actPause,
	ebiten.KeyC:         actContinue,
	ebiten.KeyB:         actBreakpoint,
	ebiten.KeyR:         actReset,
	ebiten.KeyArrowUp:   actUp,
	ebiten.KeyArrowDown: actDown,
	ebiten.KeyQ:         actQuit,
	ebiten.KeyEscape:    actQuit,
}

// Update proceeds the debugger state, called every tick (1/60 [s]).
func (g *Game) Update() error {
	a := actNone
	for key, act := range actionByKeys {
		if inpututil.IsKeyJustPressed(key) {
			a = act
			break
		}
	}
	if g.update(a) {
		return ebiten.Termination
	}
	return nil
}

func lineHeight() float64 {
	m := fontFace.Metrics()
	return m.HLineGap + m.HAscent + m.HDescent
}

func drawText(screen *ebiten.Image, str string, x, y float64, c color.Color) {
	textOp := &text.DrawOptions{}
	textOp.GeoM.Translate(x, y)
	textOp.LineSpacing = lineHeight()
	textOp.ColorScale.ScaleWithColor(c)
	text.Draw(screen, str, fontFace, textOp)
}

// Draw renders the listing on the left, the machine state on the right.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	lh := lineHeight()
	rows := int((screenHeight - 2*margin) / lh)
	for i, l := range g.codeLines(rows) {
		c := color.Color(textColor)
		prefix := "  "
		switch {
		case l.current:
			c, prefix = pcColor, "> "
		case l.selected:
			c = selectColor
		}
		if l.breakpoint {
			drawText(screen, "*", margin, margin+float64(i)*lh, breakColor)
		}
		drawText(screen, prefix+l.text, margin+lh, margin+float64(i)*lh, c)
	}

	charWidth := font.MeasureString(bitmapfont.Face, "0").Ceil()
	x := float64(margin + codeColumns*charWidth)
	drawText(screen, strings.TrimRight(g.sideText(), "\n"), x, margin, panelColor)
}

// Layout returns a fixed logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// Run opens the window and blocks until it is closed.
func Run(g *Game) error {
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("stackvm - " + g.name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(tps)
	return ebiten.RunGameWithOptions(g, &ebiten.RunGameOptions{})
}
