// Package melspec implements the codec interfaces with a log-mel
// spectrogram front end and a noise-excited synthesis back end.
//
// The encoder analyses each packet with a Hann window twice the packet
// length, carrying the previous packet as history so windows span packet
// boundaries. Each packet yields codec.NumFeatures log-mel power values.
// The decoder rebuilds a magnitude spectrum from those values, excites it
// with random phase, and overlap-adds the resulting frames. Reconstruction
// is a rough spectral match, not a faithful waveform.
//
// When a feature record is withheld, the decoder extrapolates from the last
// record it saw, fading the spectral envelope packet by packet until it
// reaches the noise floor.
package melspec

import (
	"fmt"
	"math"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

const (
	// powerFloor keeps log energies finite; it doubles as the DTX sentinel
	// level.
	powerFloor = 1e-10

	// dtxPeakThreshold is the largest absolute sample amplitude still
	// treated as silence when discontinuous transmission is enabled.
	dtxPeakThreshold = 16

	// concealmentDecay scales the reconstructed magnitude for every
	// consecutive withheld record.
	concealmentDecay = 0.8
)

// Encoder turns fixed-length sample packets into log-mel feature vectors.
// It is stateful: the previous packet seeds the analysis window of the next
// one, so packets must arrive in stream order.
type Encoder struct {
	sampleRateHz int
	bitrate      int
	enableDTX    bool

	hop       int
	windowLen int
	fftSize   int

	window  []float64
	bank    [][]float64
	history []int16

	re []float64
	im []float64
}

// NewEncoder creates an Encoder for the given stream parameters. The sample
// rate must be one of codec.SupportedSampleRates.
func NewEncoder(sampleRateHz, bitrate int, enableDTX bool) (*Encoder, error) {
	if err := codec.ValidateCreation("melspec", sampleRateHz, codec.NumChannels, bitrate); err != nil {
		return nil, err
	}
	hop := codec.SamplesPerPacket(sampleRateHz)
	windowLen := 2 * hop
	fftSize := nextPow2(windowLen)
	return &Encoder{
		sampleRateHz: sampleRateHz,
		bitrate:      bitrate,
		enableDTX:    enableDTX,
		hop:          hop,
		windowLen:    windowLen,
		fftSize:      fftSize,
		window:       hannWindow(windowLen),
		bank:         melFilterBank(codec.NumFeatures, fftSize, sampleRateHz),
		history:      make([]int16, hop),
		re:           make([]float64, fftSize),
		im:           make([]float64, fftSize),
	}, nil
}

// EncodeRaw analyses one packet and returns its feature vector. The packet
// must hold exactly one packet's worth of samples for the encoder's rate.
func (e *Encoder) EncodeRaw(packet []int16) ([]float32, error) {
	if len(packet) != e.hop {
		return nil, fmt.Errorf("melspec: encode: %w: got %d samples, want %d",
			codec.ErrPacketLength, len(packet), e.hop)
	}

	if e.enableDTX && isSilent(packet) {
		copy(e.history, packet)
		return silenceVector(), nil
	}

	// Analysis frame: previous packet then current packet, windowed.
	for i := 0; i < e.hop; i++ {
		e.re[i] = float64(e.history[i]) / 32768 * e.window[i]
	}
	for i := 0; i < e.hop; i++ {
		e.re[e.hop+i] = float64(packet[i]) / 32768 * e.window[e.hop+i]
	}
	for i := e.windowLen; i < e.fftSize; i++ {
		e.re[i] = 0
	}
	for i := range e.im {
		e.im[i] = 0
	}
	fft(e.re, e.im)

	halfFFT := e.fftSize/2 + 1
	power := make([]float64, halfFFT)
	for i := 0; i < halfFFT; i++ {
		power[i] = e.re[i]*e.re[i] + e.im[i]*e.im[i]
	}

	features := make([]float32, codec.NumFeatures)
	for m := 0; m < codec.NumFeatures; m++ {
		sum := 0.0
		for k, w := range e.bank[m] {
			sum += w * power[k]
		}
		if sum < powerFloor {
			sum = powerFloor
		}
		features[m] = float32(math.Log(sum))
	}

	copy(e.history, packet)
	return features, nil
}

// SampleRateHz returns the encoder's sample rate in Hertz.
func (e *Encoder) SampleRateHz() int { return e.sampleRateHz }

// NumChannels returns codec.NumChannels.
func (e *Encoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns the configured bitrate in bits per second.
func (e *Encoder) Bitrate() int { return e.bitrate }

// FrameRate returns codec.FrameRate.
func (e *Encoder) FrameRate() int { return codec.FrameRate }

// Ensure Encoder implements codec.Encoder at compile time.
var _ codec.Encoder = (*Encoder)(nil)

func isSilent(packet []int16) bool {
	for _, s := range packet {
		if s > dtxPeakThreshold || s < -dtxPeakThreshold {
			return false
		}
	}
	return true
}

// silenceVector is the DTX record: every band pinned to the noise floor. It
// keeps the persisted stream shape identical to a normal record, and the
// decoder synthesises it as near-silence without special handling.
func silenceVector() []float32 {
	features := make([]float32, codec.NumFeatures)
	floor := float32(math.Log(powerFloor))
	for i := range features {
		features[i] = floor
	}
	return features
}
