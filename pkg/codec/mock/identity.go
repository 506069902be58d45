package mock

import (
	"fmt"
	"math"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

// IdentityEncoder maps each 8 kHz sample directly onto one feature value
// (sample / 32768). At 8 kHz a packet holds exactly codec.NumFeatures
// samples, so the mapping is bijective and IdentityDecoder inverts it
// losslessly. Round-trip tests use the pair to check that a driver moves
// every sample through untouched.
type IdentityEncoder struct{}

// EncodeRaw converts one packet of samples into a feature vector.
func (IdentityEncoder) EncodeRaw(packet []int16) ([]float32, error) {
	if len(packet) != codec.NumFeatures {
		return nil, fmt.Errorf("mock: identity encode: %w: got %d samples, want %d",
			codec.ErrPacketLength, len(packet), codec.NumFeatures)
	}
	features := make([]float32, len(packet))
	for i, s := range packet {
		features[i] = float32(s) / 32768
	}
	return features, nil
}

// SampleRateHz returns 8000, the only rate at which a packet holds exactly
// codec.NumFeatures samples.
func (IdentityEncoder) SampleRateHz() int { return 8000 }

// NumChannels returns codec.NumChannels.
func (IdentityEncoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns codec.Bitrate.
func (IdentityEncoder) Bitrate() int { return codec.Bitrate }

// FrameRate returns codec.FrameRate.
func (IdentityEncoder) FrameRate() int { return codec.FrameRate }

// Ensure IdentityEncoder implements codec.Encoder at compile time.
var _ codec.Encoder = IdentityEncoder{}

// IdentityDecoder inverts IdentityEncoder. Each installed feature vector is
// consumed by the next DecodeSamples call; a decode with no vector installed
// returns silence.
type IdentityDecoder struct {
	features []float32
}

// SetEncodedFeatures validates and installs the vector for the next decode.
func (d *IdentityDecoder) SetEncodedFeatures(features []float32) error {
	if len(features) != codec.NumFeatures {
		return fmt.Errorf("mock: identity decode: %w: got %d values, want %d",
			codec.ErrFeatureLength, len(features), codec.NumFeatures)
	}
	for i, v := range features {
		f := float64(v)
		if math.IsNaN(f) || f < -1 || f >= 1 {
			return fmt.Errorf("mock: identity decode: %w: value %g at index %d",
				codec.ErrFeatureValue, f, i)
		}
	}
	d.features = append(d.features[:0], features...)
	return nil
}

// DecodeSamples reconstructs the installed vector, or silence if none is
// installed.
func (d *IdentityDecoder) DecodeSamples(numSamples int) ([]int16, error) {
	if numSamples != codec.NumFeatures {
		return nil, fmt.Errorf("mock: identity decode: %w: got %d samples, want %d",
			codec.ErrPacketLength, numSamples, codec.NumFeatures)
	}
	samples := make([]int16, numSamples)
	if d.features == nil {
		return samples, nil
	}
	for i, v := range d.features {
		samples[i] = int16(math.Round(float64(v) * 32768))
	}
	d.features = nil
	return samples, nil
}

// SampleRateHz returns 8000, matching IdentityEncoder.
func (*IdentityDecoder) SampleRateHz() int { return 8000 }

// NumChannels returns codec.NumChannels.
func (*IdentityDecoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns codec.Bitrate.
func (*IdentityDecoder) Bitrate() int { return codec.Bitrate }

// FrameRate returns codec.FrameRate.
func (*IdentityDecoder) FrameRate() int { return codec.FrameRate }

// Ensure IdentityDecoder implements codec.Decoder at compile time.
var _ codec.Decoder = (*IdentityDecoder)(nil)
