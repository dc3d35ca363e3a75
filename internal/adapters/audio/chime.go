// Package audio plays a short chime for every dropped coin.
package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

const (
	// DefaultSampleRate is the speaker rate used by the player.
	DefaultSampleRate = beep.SampleRate(44100)

	noteLength = 60 * time.Millisecond
	noteGap    = 20 * time.Millisecond
)

// Bigger coins ring longer and higher.
//
//nolint:gochecknoglobals // static tone table keyed by denomination name
var tones = map[string][]float64{
	"penny":   {880.00},
	"nickel":  {987.77},
	"dime":    {1046.50},
	"quarter": {1174.66, 1567.98},
	"dollar":  {1318.51, 1760.00, 2093.00},
}

// ChimeLength returns how long the chime for denomination lasts, or zero for an
// unknown name.
func ChimeLength(denomination string) time.Duration {
	notes := len(tones[denomination])
	if notes == 0 {
		return 0
	}
	return time.Duration(notes)*noteLength + time.Duration(notes-1)*noteGap
}

// Chime builds the streamer for denomination at volume in [0, 1].
func Chime(denomination string, rate beep.SampleRate, volume float64) (beep.Streamer, error) {
	freqs, ok := tones[denomination]
	if !ok {
		return nil, fmt.Errorf("no chime for %q: %w", denomination, ErrUnknownDenomination)
	}

	parts := make([]beep.Streamer, 0, 2*len(freqs))
	for i, f := range freqs {
		if i > 0 {
			parts = append(parts, beep.Silence(rate.N(noteGap)))
		}
		tone, err := generators.SineTone(rate, f)
		if err != nil {
			return nil, fmt.Errorf("tone %.2f: %w", f, err)
		}
		parts = append(parts, beep.Take(rate.N(noteLength), tone))
	}
	return withVolume(beep.Seq(parts...), volume), nil
}

// math.Log2(0) is -Inf, so zero volume is silent instead.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(math.Min(vol, 1))}
}
