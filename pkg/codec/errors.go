package codec

import "errors"

// Shared error classes for codec implementations. Concrete codecs wrap these
// with fmt.Errorf("name: %w: detail", ...) so callers can classify failures
// with errors.Is while logs keep the implementation context.
var (
	// ErrUnsupportedSampleRate reports a creation attempt with a sample
	// rate outside SupportedSampleRates.
	ErrUnsupportedSampleRate = errors.New("unsupported sample rate")

	// ErrUnsupportedNumChannels reports a creation attempt with a channel
	// count other than NumChannels.
	ErrUnsupportedNumChannels = errors.New("unsupported channel count")

	// ErrUnsupportedBitrate reports a creation attempt with a bitrate the
	// implementation cannot honour.
	ErrUnsupportedBitrate = errors.New("unsupported bitrate")

	// ErrPacketLength reports an EncodeRaw call whose packet is not exactly
	// one packet long for the encoder's sample rate.
	ErrPacketLength = errors.New("packet has wrong sample count")

	// ErrFeatureLength reports a SetEncodedFeatures call whose vector is
	// not exactly FramesPerPacket*NumFeatures long.
	ErrFeatureLength = errors.New("feature vector has wrong length")

	// ErrFeatureValue reports a SetEncodedFeatures call carrying values the
	// decoder cannot synthesise from (NaN or infinities).
	ErrFeatureValue = errors.New("feature vector has non-finite value")
)
