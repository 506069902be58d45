package melspec

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

// phaseSeed fixes the excitation noise, so the same feature stream always
// decodes to the same waveform.
const phaseSeed = 42

// Decoder rebuilds sample packets from log-mel feature vectors. It is
// stateful: frames are overlap-added across packet boundaries, and the last
// record seen drives concealment whenever a record is withheld.
type Decoder struct {
	sampleRateHz int
	bitrate      int

	hop       int
	windowLen int
	fftSize   int

	window    []float64
	bank      [][]float64
	binWeight []float64

	pending []float32
	last    []float32
	tail    []float64
	rng     *rand.Rand

	re []float64
	im []float64
}

// NewDecoder creates a Decoder for the given stream parameters. The sample
// rate must be one of codec.SupportedSampleRates.
func NewDecoder(sampleRateHz, bitrate int) (*Decoder, error) {
	if err := codec.ValidateCreation("melspec", sampleRateHz, codec.NumChannels, bitrate); err != nil {
		return nil, err
	}
	hop := codec.SamplesPerPacket(sampleRateHz)
	windowLen := 2 * hop
	fftSize := nextPow2(windowLen)
	bank := melFilterBank(codec.NumFeatures, fftSize, sampleRateHz)

	halfFFT := fftSize/2 + 1
	binWeight := make([]float64, halfFFT)
	for _, filter := range bank {
		for k, w := range filter {
			binWeight[k] += w
		}
	}

	return &Decoder{
		sampleRateHz: sampleRateHz,
		bitrate:      bitrate,
		hop:          hop,
		windowLen:    windowLen,
		fftSize:      fftSize,
		window:       hannWindow(windowLen),
		bank:         bank,
		binWeight:    binWeight,
		tail:         make([]float64, hop),
		rng:          rand.New(rand.NewSource(phaseSeed)),
		re:           make([]float64, fftSize),
		im:           make([]float64, fftSize),
	}, nil
}

// SetEncodedFeatures validates and installs one feature record for the next
// DecodeSamples call.
func (d *Decoder) SetEncodedFeatures(features []float32) error {
	if len(features) != codec.NumFeatures {
		return fmt.Errorf("melspec: decode: %w: got %d values, want %d",
			codec.ErrFeatureLength, len(features), codec.NumFeatures)
	}
	for i, v := range features {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("melspec: decode: %w: value %g at index %d",
				codec.ErrFeatureValue, f, i)
		}
	}
	d.pending = append(d.pending[:0], features...)
	return nil
}

// DecodeSamples synthesises the next packet. With an installed record it
// renders that record; without one it conceals the gap by fading the last
// record towards the noise floor, or stays silent if nothing was ever
// received.
func (d *Decoder) DecodeSamples(numSamples int) ([]int16, error) {
	if numSamples != d.hop {
		return nil, fmt.Errorf("melspec: decode: %w: got %d samples, want %d",
			codec.ErrPacketLength, numSamples, d.hop)
	}

	var features []float32
	switch {
	case d.pending != nil:
		features = d.pending
		d.last = append(d.last[:0], d.pending...)
		d.pending = nil
	case d.last != nil:
		// Power falls as the square of the magnitude decay.
		step := float32(math.Log(concealmentDecay * concealmentDecay))
		floor := float32(math.Log(powerFloor))
		for i, v := range d.last {
			v += step
			if v < floor {
				v = floor
			}
			d.last[i] = v
		}
		features = d.last
	}

	frame := d.synthesize(features)

	out := make([]int16, d.hop)
	for i := 0; i < d.hop; i++ {
		out[i] = clampSample((d.tail[i] + frame[i]) * 32768)
	}
	copy(d.tail, frame[d.hop:])
	return out, nil
}

// synthesize renders one windowed frame of windowLen samples from a feature
// record. A nil record yields a zero frame.
func (d *Decoder) synthesize(features []float32) []float64 {
	frame := make([]float64, d.windowLen)
	if features == nil {
		return frame
	}

	melPower := make([]float64, len(features))
	for i, v := range features {
		melPower[i] = math.Exp(float64(v))
	}

	// Spread mel band power back over FFT bins, weighting each bin by the
	// filters that cover it.
	halfFFT := d.fftSize/2 + 1
	for i := range d.re {
		d.re[i] = 0
		d.im[i] = 0
	}
	for k := 1; k < halfFFT-1; k++ {
		if d.binWeight[k] == 0 {
			continue
		}
		sum := 0.0
		for m, filter := range d.bank {
			sum += filter[k] * melPower[m]
		}
		mag := math.Sqrt(sum / d.binWeight[k])
		phase := 2 * math.Pi * d.rng.Float64()
		d.re[k] = mag * math.Cos(phase)
		d.im[k] = mag * math.Sin(phase)
		d.re[d.fftSize-k] = d.re[k]
		d.im[d.fftSize-k] = -d.im[k]
	}
	ifft(d.re, d.im)

	for i := 0; i < d.windowLen; i++ {
		frame[i] = d.re[i] * d.window[i]
	}
	return frame
}

// SampleRateHz returns the decoder's sample rate in Hertz.
func (d *Decoder) SampleRateHz() int { return d.sampleRateHz }

// NumChannels returns codec.NumChannels.
func (d *Decoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns the configured bitrate in bits per second.
func (d *Decoder) Bitrate() int { return d.bitrate }

// FrameRate returns codec.FrameRate.
func (d *Decoder) FrameRate() int { return codec.FrameRate }

// Ensure Decoder implements codec.Decoder at compile time.
var _ codec.Decoder = (*Decoder)(nil)

func clampSample(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
