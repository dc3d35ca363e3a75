// Package terminal draws the simulation into a tcell screen and turns terminal
// input into simulation commands.
package terminal

import (
	"github.com/gdamore/tcell/v2"
	"github.com/okian/piggybank/internal/domain/simulation"
)

const (
	// DefaultCellWidth and DefaultCellHeight are the scene units covered by one
	// terminal cell. Cells are about twice as tall as they are wide.
	DefaultCellWidth  = 8.0
	DefaultCellHeight = 16.0
)

//nolint:gochecknoglobals // static glyph table
var glyphs = map[string]rune{
	"penny":   '•',
	"nickel":  'o',
	"dime":    '·',
	"quarter": 'O',
	"dollar":  '$',
}

//nolint:gochecknoglobals // styles are immutable values
var (
	background   = tcell.StyleDefault.Background(tcell.ColorReset)
	overlayStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	hintStyle    = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// View implements simulation.Renderer on a tcell screen.
type View struct {
	screen tcell.Screen
	cellW  float64
	cellH  float64
}

// Option configures a View.
type Option func(*View)

// WithCellSize sets how many scene units one cell covers.
func WithCellSize(w, h float64) Option {
	return func(v *View) {
		if w > 0 && h > 0 {
			v.cellW = w
			v.cellH = h
		}
	}
}

// NewView wraps an initialised screen.
func NewView(screen tcell.Screen, opts ...Option) *View {
	v := &View{screen: screen, cellW: DefaultCellWidth, cellH: DefaultCellHeight}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CellSize returns the scene units per cell.
func (v *View) CellSize() (w, h float64) { return v.cellW, v.cellH }

// SceneSize converts a terminal size in cells to scene units.
func (v *View) SceneSize(cols, rows int) (width, height int) {
	return int(float64(cols) * v.cellW), int(float64(rows) * v.cellH)
}

// Cell maps a scene position to a terminal cell.
func (v *View) Cell(x, y float64) (col, row int) {
	return int(x / v.cellW), int(y / v.cellH)
}

func (v *View) Clear() {
	v.screen.SetStyle(background)
	v.screen.Clear()
}

func (v *View) DrawCoin(c simulation.CoinView) {
	if c.X < 0 || c.Y < 0 {
		return
	}
	col, row := v.Cell(c.X, c.Y)
	cols, rows := v.screen.Size()
	if col >= cols || row >= rows {
		return
	}
	glyph, ok := glyphs[c.Denomination]
	if !ok {
		glyph = 'o'
	}
	style := background.Foreground(tcell.NewRGBColor(int32(c.Color.R), int32(c.Color.G), int32(c.Color.B)))
	v.screen.SetContent(col, row, glyph, nil, style)
}

func (v *View) DrawOverlay(o simulation.Overlay) {
	style := overlayStyle
	if !o.Visible {
		style = hintStyle
	}
	for i, line := range o.Lines() {
		v.drawText(1, i, line, style)
	}
}

func (v *View) drawText(col, row int, text string, style tcell.Style) {
	cols, rows := v.screen.Size()
	if row >= rows {
		return
	}
	for _, r := range text {
		if col >= cols {
			return
		}
		v.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

func (v *View) Show() { v.screen.Show() }
