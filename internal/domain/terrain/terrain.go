// Package terrain tracks the resting surface of the coin pile as a 1-D
// height map, one entry per horizontal scene unit.
//
// Heights are measured from the top of the scene, so a larger value is a lower
// surface. An entry equal to the scene height means uncovered floor. Entries
// only ever decrease while the scene keeps its size.
package terrain

import (
	"fmt"
	"math"
)

// Body is anything that leaves a circular footprint on the surface.
type Body interface {
	// Footprint returns the centre and radius of the body.
	Footprint() (x, y, r float64)
}

// Terrain is a discretized height map. It is not safe for concurrent use; the
// simulation goroutine owns it.
type Terrain struct {
	heights []float64
	height  float64
}

// New creates an empty terrain for a scene of the given size.
func New(width, height int) (*Terrain, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("terrain %dx%d: %w", width, height, ErrInvalidSize)
	}
	t := &Terrain{}
	t.reset(width, height)
	return t, nil
}

func (t *Terrain) reset(width, height int) {
	t.height = float64(height)
	t.heights = make([]float64, width)
	for i := range t.heights {
		t.heights[i] = t.height
	}
}

// Reset clears the surface back to an empty floor, keeping the scene size.
func (t *Terrain) Reset() {
	for i := range t.heights {
		t.heights[i] = t.height
	}
}

// Width returns the number of tracked positions.
func (t *Terrain) Width() int { return len(t.heights) }

// SceneHeight returns the floor level.
func (t *Terrain) SceneHeight() float64 { return t.height }

// HeightAt returns the surface height at x. Queries outside the tracked range
// saturate to the nearest edge; an empty terrain reports the floor.
func (t *Terrain) HeightAt(x float64) float64 {
	if len(t.heights) == 0 {
		return t.height
	}
	return t.heights[t.index(x)]
}

func (t *Terrain) index(x float64) int {
	last := len(t.heights) - 1
	if math.IsNaN(x) {
		return 0
	}
	f := math.Floor(x)
	switch {
	case f < 0:
		return 0
	case f > float64(last):
		return last
	default:
		return int(f)
	}
}

// Imprint raises the surface under b to its bottom edge. Every covered
// position keeps the minimum of its current height and y+r, clamped to the
// scene, so the surface never drops. Callers imprint each body once.
func (t *Terrain) Imprint(b Body) {
	if len(t.heights) == 0 {
		return
	}
	x, y, r := b.Footprint()
	bottom := math.Max(0, y+r)
	start := t.index(x - r)
	end := t.index(x + r)
	for i := start; i <= end; i++ {
		if bottom < t.heights[i] {
			t.heights[i] = bottom
		}
	}
}

// Resize adapts the terrain to a new scene size. Positions inside the old range
// keep their height (capped at the new floor); new positions start as
// uncovered floor.
func (t *Terrain) Resize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("resize %dx%d: %w", width, height, ErrInvalidSize)
	}
	floor := float64(height)
	next := make([]float64, width)
	for i := range next {
		if i < len(t.heights) {
			next[i] = math.Min(t.heights[i], floor)
		} else {
			next[i] = floor
		}
	}
	t.heights = next
	t.height = floor
	return nil
}

// Heights returns a copy of the height map.
func (t *Terrain) Heights() []float64 {
	out := make([]float64, len(t.heights))
	copy(out, t.heights)
	return out
}

// Peak returns the highest point of the pile (the smallest height value).
func (t *Terrain) Peak() float64 {
	peak := t.height
	for _, h := range t.heights {
		if h < peak {
			peak = h
		}
	}
	return peak
}
