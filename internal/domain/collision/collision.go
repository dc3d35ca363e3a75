// Package collision separates overlapping coins and exchanges velocity along
// the contact normal with a cheap equal-mass impulse.
package collision

import (
	"math"

	"github.com/okian/piggybank/internal/domain/coin"
)

const (
	// Restitution is the coin-coin bounciness.
	Restitution = 0.6
	// ProximitySlack widens the squared-distance reject so near misses reach
	// the exact test.
	ProximitySlack = 1.5
	// DefaultWindow bounds how many later coins each coin is checked against
	// per frame. It keeps the per-frame cost linear in the coin count; a pair
	// outside the window can overlap for a frame.
	DefaultWindow = 50
)

// Resolve handles one pair. It reports whether the pair was in contact, in which
// case both coins are pushed apart along the line between their centres. Only
// an approaching pair exchanges velocity, and only then are both disturbed.
func Resolve(a, b *coin.Coin) bool {
	if a.Settled() && b.Settled() {
		return false
	}

	dx := b.X - a.X
	dy := b.Y - a.Y
	distSq := dx*dx + dy*dy

	minDist := a.Radius() + b.Radius()
	if distSq > minDist*minDist*ProximitySlack {
		return false
	}

	dist := math.Sqrt(distSq)
	// Coincident centres have no normal.
	if dist >= minDist || dist <= 0 {
		return false
	}

	nx := dx / dist
	ny := dy / dist

	half := (minDist - dist) / 2
	a.X -= nx * half
	a.Y -= ny * half
	b.X += nx * half
	b.Y += ny * half

	dvn := (b.VX-a.VX)*nx + (b.VY-a.VY)*ny
	if dvn >= 0 {
		return true
	}

	j := -(1 + Restitution) * dvn * 0.5
	a.VX -= j * nx
	a.VY -= j * ny
	b.VX += j * nx
	b.VY += j * ny

	a.Disturb()
	b.Disturb()
	return true
}

// ResolveWindow checks coins[i] against at most window coins that follow it.
// It returns the number of contacts.
func ResolveWindow(coins []*coin.Coin, i, window int) int {
	if i < 0 || i >= len(coins) || window <= 0 {
		return 0
	}
	end := i + 1 + window
	if end > len(coins) {
		end = len(coins)
	}
	contacts := 0
	for j := i + 1; j < end; j++ {
		if Resolve(coins[i], coins[j]) {
			contacts++
		}
	}
	return contacts
}
