package codec

import (
	"fmt"
	"math"
	"slices"
)

// Fixed framing parameters shared by every codec implementation. Changing
// any of these changes the on-disk feature layout, so they are deliberately
// constants rather than configuration.
const (
	// NumFeatures is the length of one feature vector.
	NumFeatures = 160

	// FramesPerPacket is the number of codec frames carried per packet.
	FramesPerPacket = 1

	// FrameRate is the codec-internal frame rate in frames per second.
	// One hop is sampleRate/FrameRate samples (20 ms).
	FrameRate = 50

	// NumChannels is the only supported channel count.
	NumChannels = 1

	// Bitrate is the nominal transport bitrate in bits per second used for
	// packet-size diagnostics.
	Bitrate = 3000
)

// SupportedSampleRates lists the sample rates a codec may be created for,
// in ascending order.
var SupportedSampleRates = []int{8000, 16000, 32000, 48000}

// IsSampleRateSupported reports whether rate is one of the supported
// sample rates.
func IsSampleRateSupported(rate int) bool {
	return slices.Contains(SupportedSampleRates, rate)
}

// SamplesPerHop returns the number of samples in one codec hop at the given
// sample rate. All supported rates divide evenly by FrameRate.
func SamplesPerHop(sampleRateHz int) int {
	return sampleRateHz / FrameRate
}

// SamplesPerPacket returns the packet length in samples at the given sample
// rate: FramesPerPacket hops.
func SamplesPerPacket(sampleRateHz int) int {
	return FramesPerPacket * SamplesPerHop(sampleRateHz)
}

// PacketSize returns the nominal transport packet size in bytes for a
// bitrate and frame rate, rounded up to whole bytes. Used for diagnostics
// only; the feature stream itself is stored as floats.
func PacketSize(bitrate, frameRate int) int {
	bitsPerPacket := float64(bitrate) / float64(frameRate) * FramesPerPacket
	return int(math.Ceil(bitsPerPacket / 8))
}

// ValidateCreation checks the common creation parameters shared by codec
// constructors and returns the first violation wrapped with the given codec
// name. A nil return means sampleRate, channels and bitrate are all
// acceptable.
func ValidateCreation(name string, sampleRateHz, numChannels, bitrate int) error {
	if !IsSampleRateSupported(sampleRateHz) {
		return fmt.Errorf("%s: %w: %d Hz (supported: %v)", name, ErrUnsupportedSampleRate, sampleRateHz, SupportedSampleRates)
	}
	if numChannels != NumChannels {
		return fmt.Errorf("%s: %w: %d (only mono is supported)", name, ErrUnsupportedNumChannels, numChannels)
	}
	if bitrate <= 0 {
		return fmt.Errorf("%s: %w: %d bps", name, ErrUnsupportedBitrate, bitrate)
	}
	return nil
}
