// Package preprocess provides whole-buffer preprocessors applied to audio
// before it reaches the encoder.
package preprocess

import (
	"fmt"
	"math"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

// DefaultDCBlockPole is the feedback coefficient used when no explicit pole
// is configured.
const DefaultDCBlockPole = 0.995

// NoOp passes audio through untouched.
type NoOp struct{}

// Process returns the input unchanged.
func (NoOp) Process(samples []int16, sampleRateHz int) ([]int16, error) {
	if sampleRateHz <= 0 {
		return nil, fmt.Errorf("preprocess: noop: sample rate %d Hz", sampleRateHz)
	}
	return samples, nil
}

// Ensure NoOp implements codec.Preprocessor at compile time.
var _ codec.Preprocessor = NoOp{}

// DCBlock removes constant offset with a single-pole high-pass filter:
//
//	y[n] = x[n] - x[n-1] + pole * y[n-1]
//
// The pole sets how slowly the blocker tracks; values close to 1 leave low
// audio frequencies intact.
type DCBlock struct {
	pole float64
}

// NewDCBlock creates a DCBlock with the given pole, which must lie in (0, 1).
func NewDCBlock(pole float64) (*DCBlock, error) {
	if pole <= 0 || pole >= 1 {
		return nil, fmt.Errorf("preprocess: dcblock: pole %g not in (0, 1)", pole)
	}
	return &DCBlock{pole: pole}, nil
}

// Process filters the whole buffer in one pass and returns a new slice.
func (d *DCBlock) Process(samples []int16, sampleRateHz int) ([]int16, error) {
	if sampleRateHz <= 0 {
		return nil, fmt.Errorf("preprocess: dcblock: sample rate %d Hz", sampleRateHz)
	}
	out := make([]int16, len(samples))
	var prevIn, prevOut float64
	for i, s := range samples {
		in := float64(s)
		y := in - prevIn + d.pole*prevOut
		prevIn = in
		prevOut = y
		out[i] = clamp(y)
	}
	return out, nil
}

// Ensure DCBlock implements codec.Preprocessor at compile time.
var _ codec.Preprocessor = (*DCBlock)(nil)

func clamp(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(math.Round(v))
}
