// Package stroke turns pointer samples into evenly spaced dabs.
package stroke

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gogpu/paint/internal/brush"
)

// Sample is one pointer event.
type Sample struct {
	X, Y     float64
	Pressure float64 // [0, 1]
	Time     time.Duration
	// TiltX and TiltY are the pen tilt in degrees, zero when unknown.
	TiltX, TiltY float64
}

// Dab is one placement of the brush tip.
type Dab struct {
	X, Y     float64
	Size     float64
	Opacity  float64
	Rotation float64 // radians
}

// Placer expands a stream of samples into dabs for one stroke.
//
// Dabs are emitted in sample order. Consecutive dabs are never further apart
// than the profile step. A stroke that never moves yields exactly one dab
// at its first sample, emitted by End.
//
// A Placer is not safe for concurrent use.
type Placer struct {
	profile brush.Profile
	seed    uint64
	rng     *rand.Rand

	started bool
	moved   bool
	last    Sample // last smoothed sample
	count   int
}

// NewPlacer creates a placer for profile. Jitter is drawn from a generator
// seeded with seed so that replaying a stroke reproduces it exactly.
func NewPlacer(profile brush.Profile, seed uint64) *Placer {
	return &Placer{profile: profile, seed: seed}
}

// Begin starts a stroke at s, discarding any previous state.
func (pl *Placer) Begin(s Sample) {
	pl.rng = rand.New(rand.NewPCG(pl.seed, 0x5eed))
	pl.started = true
	pl.moved = false
	pl.last = s
	pl.count = 0
}

// Add feeds the next sample and appends the dabs it produces to dst.
func (pl *Placer) Add(dst []Dab, s Sample) []Dab {
	if !pl.started {
		pl.Begin(s)
		return dst
	}
	sm := pl.smooth(s)
	p1 := pl.last
	pl.last = sm

	d := math.Hypot(sm.X-p1.X, sm.Y-p1.Y)
	if d == 0 {
		return dst
	}
	pl.moved = true
	n := int(math.Ceil(d / pl.profile.Step()))
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		dst = append(dst, pl.dab(
			p1.X+(sm.X-p1.X)*t,
			p1.Y+(sm.Y-p1.Y)*t,
			p1.Pressure+(sm.Pressure-p1.Pressure)*t,
		))
	}
	return dst
}

// End finishes the stroke and appends any final dabs to dst.
func (pl *Placer) End(dst []Dab) []Dab {
	if !pl.started {
		return dst
	}
	pl.started = false
	if !pl.moved {
		dst = append(dst, pl.dab(pl.last.X, pl.last.Y, pl.last.Pressure))
	}
	return dst
}

// Active reports whether a stroke is in progress.
func (pl *Placer) Active() bool { return pl.started }

// Count returns the number of dabs emitted by the current or last stroke.
func (pl *Placer) Count() int { return pl.count }

// Place expands a complete stroke.
func Place(profile brush.Profile, seed uint64, samples []Sample) []Dab {
	if len(samples) == 0 {
		return nil
	}
	pl := NewPlacer(profile, seed)
	pl.Begin(samples[0])
	var dabs []Dab
	for _, s := range samples[1:] {
		dabs = pl.Add(dabs, s)
	}
	return pl.End(dabs)
}

// smooth applies a single pole low pass filter to position and pressure.
func (pl *Placer) smooth(s Sample) Sample {
	a := 1 - pl.profile.Smoothing()
	if a >= 1 {
		return s
	}
	p := pl.last
	s.X = p.X + a*(s.X-p.X)
	s.Y = p.Y + a*(s.Y-p.Y)
	s.Pressure = p.Pressure + a*(s.Pressure-p.Pressure)
	return s
}

func (pl *Placer) dab(x, y, pressure float64) Dab {
	pr := pl.profile
	d := Dab{
		X:        x,
		Y:        y,
		Size:     pr.SizeAt(pressure),
		Opacity:  pr.OpacityAt(pressure),
		Rotation: pr.Angle(),
	}
	if sc := pr.Scatter(); sc > 0 {
		r := sc * d.Size / 2
		d.X += (2*pl.rng.Float64() - 1) * r
		d.Y += (2*pl.rng.Float64() - 1) * r
	}
	if j := pr.AngleJitter(); j > 0 {
		d.Rotation += (2*pl.rng.Float64() - 1) * j * math.Pi
	}
	pl.count++
	return d
}
