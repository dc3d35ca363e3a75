// Package coin models a single falling or resting coin.
package coin

import (
	"math"

	"github.com/okian/piggybank/internal/domain/denomination"
)

// Phase is the coin's position in its settle state machine.
type Phase uint8

const (
	// Falling coins are moving or have just been disturbed.
	Falling Phase = iota
	// Settling coins are still but inside the grace period.
	Settling
	// Settled coins are at rest and skip integration until disturbed.
	Settled
)

func (p Phase) String() string {
	switch p {
	case Settling:
		return "settling"
	case Settled:
		return "settled"
	default:
		return "falling"
	}
}

// Ground reports the resting surface under a horizontal position.
type Ground interface {
	HeightAt(x float64) float64
}

// Coin is one physical body. The simulation goroutine owns every coin.
type Coin struct {
	ID           string
	X, Y         float64
	VX, VY       float64
	Denomination *denomination.Denomination

	settled     bool
	stillFrames int
	imprinted   bool
}

// New creates a falling coin of denomination d at (x, y).
func New(id string, d *denomination.Denomination, x, y, vx float64) *Coin {
	return &Coin{ID: id, Denomination: d, X: x, Y: y, VX: vx}
}

// Radius is half the coin's visual size.
func (c *Coin) Radius() float64 { return c.Denomination.Radius }

// Footprint implements terrain.Body.
func (c *Coin) Footprint() (x, y, r float64) { return c.X, c.Y, c.Radius() }

// Settled reports whether the coin is at rest.
func (c *Coin) Settled() bool { return c.settled }

// Imprinted reports whether the coin already raised the terrain.
func (c *Coin) Imprinted() bool { return c.imprinted }

// MarkImprinted records that the coin's footprint is in the terrain.
func (c *Coin) MarkImprinted() { c.imprinted = true }

// StillFrames returns the consecutive still-frame count.
func (c *Coin) StillFrames() int { return c.stillFrames }

// Phase derives the state machine phase from the settle bookkeeping.
func (c *Coin) Phase() Phase {
	switch {
	case c.settled:
		return Settled
	case c.stillFrames > 0:
		return Settling
	default:
		return Falling
	}
}

// Disturb forces the coin back to falling; it has to settle again.
func (c *Coin) Disturb() {
	c.stillFrames = 0
	c.settled = false
}

// Advance integrates one frame: gravity, one position step, ground contact with
// bounce and friction, settle detection and side-wall reflection. A settled
// coin does not move.
func (c *Coin) Advance(ground Ground, sceneWidth float64) {
	if c.settled {
		return
	}
	r := c.Radius()

	c.VY += Gravity
	c.X += c.VX
	c.Y += c.VY

	surface := ground.HeightAt(c.X)
	if c.Y+r >= surface {
		c.Y = surface - r
		c.VY *= -GroundBounce
		c.VX *= GroundFriction

		if math.Abs(c.VY) < StillSpeedY && math.Abs(c.VX) < StillSpeedX {
			c.stillFrames++
			if c.stillFrames > SettleFrames {
				c.settled = true
				c.VX = 0
				c.VY = 0
			}
		}
	}

	if c.X-r < 0 || c.X+r > sceneWidth {
		c.VX *= -WallBounce
		c.X = clampInside(c.X, r, sceneWidth)
	}
}

// clampInside keeps a body of radius r within [0, width]. A scene narrower
// than the body centres it.
func clampInside(x, r, width float64) float64 {
	if width < 2*r {
		return width / 2
	}
	return math.Max(r, math.Min(x, width-r))
}
