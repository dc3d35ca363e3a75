package simulation

import (
	"strconv"

	"github.com/okian/piggybank/internal/domain/denomination"
	"github.com/shopspring/decimal"
)

// CoinView is what a renderer needs to draw one coin.
type CoinView struct {
	ID           string           `json:"id"`
	X            float64          `json:"x"`
	Y            float64          `json:"y"`
	Radius       float64          `json:"radius"`
	Denomination string           `json:"denomination"`
	Color        denomination.RGB `json:"color"`
	Settled      bool             `json:"settled"`
}

// Overlay is the textual stats panel. When Visible is false renderers show a
// hint instead.
type Overlay struct {
	Active    bool
	Visible   bool
	Wage      decimal.Decimal
	Expected  decimal.Decimal
	Dispensed decimal.Decimal
	Gap       decimal.Decimal
	Coins     int
}

// Lines formats the overlay the way every renderer prints it.
func (o Overlay) Lines() []string {
	if !o.Active {
		return nil
	}
	if !o.Visible {
		return []string{"click to show stats"}
	}
	return []string{
		"Expected:  $" + o.Expected.StringFixed(2),
		"Dispensed: $" + o.Dispensed.StringFixed(2),
		"Gap:       $" + o.Gap.StringFixed(2),
		"Wage:      $" + o.Wage.StringFixed(2) + "/hr",
		"In piggy bank: $" + o.Dispensed.StringFixed(2),
		"Coins: " + strconv.Itoa(o.Coins),
	}
}

// Renderer draws one frame. Calls happen on the simulation goroutine in the
// order Clear, DrawCoin for each coin, DrawOverlay, Show.
type Renderer interface {
	Clear()
	DrawCoin(c CoinView)
	DrawOverlay(o Overlay)
	Show()
}

type nopRenderer struct{}

func (nopRenderer) Clear()              {}
func (nopRenderer) DrawCoin(CoinView)   {}
func (nopRenderer) DrawOverlay(Overlay) {}
func (nopRenderer) Show()               {}
