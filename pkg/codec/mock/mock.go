// Package mock provides test doubles for the codec package interfaces.
//
// Use Encoder to script the feature vectors a driver receives and to inspect
// which sample packets were delivered. Use Decoder to script reconstructed
// samples and to inspect the interleaving of feature installs and decode
// calls, which is how tests tell a decoded packet apart from a concealed one.
//
// Example:
//
//	enc := &mock.Encoder{Features: [][]float32{vec0, vec1}}
//	features, _ := enc.EncodeRaw(packet)
package mock

import (
	"sync"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

// EncodeRawCall records a single invocation of Encoder.EncodeRaw.
type EncodeRawCall struct {
	// Packet is a copy of the samples passed to EncodeRaw.
	Packet []int16
}

// Encoder is a mock implementation of codec.Encoder.
type Encoder struct {
	mu sync.Mutex

	// Features holds the vectors returned by successive EncodeRaw calls in
	// order. Once exhausted (or if nil), EncodeRaw returns a zero vector of
	// length codec.NumFeatures.
	Features [][]float32

	// EncodeRawErr, if non-nil, is returned as the error from EncodeRaw.
	// FailOnCall selects which call fails: 0 fails every call, n > 0 fails
	// only the nth call (1-based).
	EncodeRawErr error

	// FailOnCall is the 1-based index of the EncodeRaw call that returns
	// EncodeRawErr. Zero means every call fails when EncodeRawErr is set.
	FailOnCall int

	// Rate overrides the reported sample rate. Zero means 16000.
	Rate int

	// EncodeRawCalls records every call to EncodeRaw.
	EncodeRawCalls []EncodeRawCall
}

// EncodeRaw records the call and returns the next scripted vector.
func (e *Encoder) EncodeRaw(packet []int16) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]int16, len(packet))
	copy(cp, packet)
	e.EncodeRawCalls = append(e.EncodeRawCalls, EncodeRawCall{Packet: cp})
	n := len(e.EncodeRawCalls)
	if e.EncodeRawErr != nil && (e.FailOnCall == 0 || e.FailOnCall == n) {
		return nil, e.EncodeRawErr
	}
	if n <= len(e.Features) {
		return e.Features[n-1], nil
	}
	return make([]float32, codec.NumFeatures), nil
}

// SampleRateHz returns Rate, or 16000 if Rate is zero.
func (e *Encoder) SampleRateHz() int {
	if e.Rate == 0 {
		return 16000
	}
	return e.Rate
}

// NumChannels returns codec.NumChannels.
func (e *Encoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns codec.Bitrate.
func (e *Encoder) Bitrate() int { return codec.Bitrate }

// FrameRate returns codec.FrameRate.
func (e *Encoder) FrameRate() int { return codec.FrameRate }

// EncodeRawCallCount returns the number of EncodeRaw calls. Thread-safe.
func (e *Encoder) EncodeRawCallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.EncodeRawCalls)
}

// ResetCalls clears all recorded calls. Thread-safe.
func (e *Encoder) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.EncodeRawCalls = nil
}

// Ensure Encoder implements codec.Encoder at compile time.
var _ codec.Encoder = (*Encoder)(nil)

// SetFeaturesCall records a single invocation of Decoder.SetEncodedFeatures.
type SetFeaturesCall struct {
	// Seq is the position of this call in the decoder's overall call order,
	// shared with DecodeSamplesCall. Starts at 1.
	Seq int
	// Features is a copy of the vector passed to SetEncodedFeatures.
	Features []float32
}

// DecodeSamplesCall records a single invocation of Decoder.DecodeSamples.
type DecodeSamplesCall struct {
	// Seq is the position of this call in the decoder's overall call order,
	// shared with SetFeaturesCall. Starts at 1.
	Seq int
	// NumSamples is the sample count requested from DecodeSamples.
	NumSamples int
	// Concealed reports whether no SetEncodedFeatures call preceded this
	// decode since the last DecodeSamples, i.e. the driver asked the decoder
	// to fill the gap itself.
	Concealed bool
}

// Decoder is a mock implementation of codec.Decoder.
type Decoder struct {
	mu  sync.Mutex
	seq int

	// armed tracks whether a feature install has happened since the last
	// decode, so DecodeSamplesCall.Concealed can be derived.
	armed bool

	// Samples holds the packets returned by successive DecodeSamples calls in
	// order. Once exhausted (or if nil), DecodeSamples returns silence of the
	// requested length.
	Samples [][]int16

	// SetFeaturesErr, if non-nil, is returned by every SetEncodedFeatures call.
	SetFeaturesErr error

	// DecodeSamplesErr, if non-nil, is returned as the error from
	// DecodeSamples. FailOnCall selects which call fails: 0 fails every call,
	// n > 0 fails only the nth call (1-based).
	DecodeSamplesErr error

	// FailOnCall is the 1-based index of the DecodeSamples call that returns
	// DecodeSamplesErr. Zero means every call fails when DecodeSamplesErr is
	// set.
	FailOnCall int

	// Rate overrides the reported sample rate. Zero means 16000.
	Rate int

	// SetFeaturesCalls records every call to SetEncodedFeatures in order.
	SetFeaturesCalls []SetFeaturesCall

	// DecodeSamplesCalls records every call to DecodeSamples in order.
	DecodeSamplesCalls []DecodeSamplesCall
}

// SetEncodedFeatures records the call and returns SetFeaturesErr.
func (d *Decoder) SetEncodedFeatures(features []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	cp := make([]float32, len(features))
	copy(cp, features)
	d.SetFeaturesCalls = append(d.SetFeaturesCalls, SetFeaturesCall{Seq: d.seq, Features: cp})
	if d.SetFeaturesErr != nil {
		return d.SetFeaturesErr
	}
	d.armed = true
	return nil
}

// DecodeSamples records the call and returns the next scripted packet.
func (d *Decoder) DecodeSamples(numSamples int) ([]int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.DecodeSamplesCalls = append(d.DecodeSamplesCalls, DecodeSamplesCall{
		Seq:        d.seq,
		NumSamples: numSamples,
		Concealed:  !d.armed,
	})
	d.armed = false
	n := len(d.DecodeSamplesCalls)
	if d.DecodeSamplesErr != nil && (d.FailOnCall == 0 || d.FailOnCall == n) {
		return nil, d.DecodeSamplesErr
	}
	if n <= len(d.Samples) {
		return d.Samples[n-1], nil
	}
	return make([]int16, numSamples), nil
}

// SampleRateHz returns Rate, or 16000 if Rate is zero.
func (d *Decoder) SampleRateHz() int {
	if d.Rate == 0 {
		return 16000
	}
	return d.Rate
}

// NumChannels returns codec.NumChannels.
func (d *Decoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns codec.Bitrate.
func (d *Decoder) Bitrate() int { return codec.Bitrate }

// FrameRate returns codec.FrameRate.
func (d *Decoder) FrameRate() int { return codec.FrameRate }

// DecodeSamplesCallCount returns the number of DecodeSamples calls. Thread-safe.
func (d *Decoder) DecodeSamplesCallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.DecodeSamplesCalls)
}

// ResetCalls clears all recorded calls. Thread-safe.
func (d *Decoder) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.SetFeaturesCalls = nil
	d.DecodeSamplesCalls = nil
	d.seq = 0
	d.armed = false
}

// Ensure Decoder implements codec.Decoder at compile time.
var _ codec.Decoder = (*Decoder)(nil)
