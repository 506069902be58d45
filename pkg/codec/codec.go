// Package codec defines the capability interfaces for the feature codecs
// driven by the sonoxa file pipelines, together with the fixed framing
// parameters every implementation must honour.
//
// A codec converts fixed-duration packets of raw 16-bit PCM audio into
// fixed-length feature vectors and back. The central contract is the framing
// invariant: one packet of FramesPerPacket*SamplesPerHop(rate) samples maps
// to exactly one feature vector of NumFeatures float32 values, and a
// persisted feature stream is always an exact multiple of NumFeatures long.
//
// Encoder and Decoder instances carry hidden internal state that advances
// with every call (analysis history, synthesis overlap, concealment memory).
// They are therefore NOT safe for concurrent use and must observe packets in
// strict temporal order. A pipeline run owns its codec instance exclusively
// for the lifetime of that run; constructing one instance per run is the
// expected usage.
package codec

// Encoder turns one packet of raw PCM samples into one feature vector.
//
// Implementations are stateful: analysis windows may span packet boundaries,
// so EncodeRaw must be called with consecutive packets of the same stream in
// order. Concurrent use is not supported.
type Encoder interface {
	// EncodeRaw encodes exactly one packet. The packet must hold
	// FramesPerPacket * SamplesPerHop(SampleRateHz()) samples; any other
	// length is an error. On success the returned slice holds
	// FramesPerPacket * NumFeatures values. The encoder's internal state
	// advances even when the caller discards the result.
	EncodeRaw(packet []int16) ([]float32, error)

	// SampleRateHz returns the sample rate the encoder was created for.
	SampleRateHz() int

	// NumChannels returns the channel count the encoder was created for.
	NumChannels() int

	// Bitrate returns the configured bitrate in bits per second.
	Bitrate() int

	// FrameRate returns the encoder's internal frame rate in frames per
	// second. Packet length in samples is derived from it:
	// FramesPerPacket * sampleRate / FrameRate().
	FrameRate() int
}

// Decoder synthesises PCM samples from previously installed feature vectors.
//
// The two-step call sequence per record is: SetEncodedFeatures installs one
// feature vector into the decoder's current state, then DecodeSamples
// requests synthesis. DecodeSamples without a preceding install is the
// concealment path: the decoder extrapolates from whatever internal state it
// has (packet-loss behaviour). Implementations are stateful and not safe for
// concurrent use.
type Decoder interface {
	// SetEncodedFeatures installs one feature vector as the decoder's
	// current record. The vector must be exactly
	// FramesPerPacket * NumFeatures long with finite values; otherwise an
	// error is returned and the decoder state is unchanged.
	SetEncodedFeatures(features []float32) error

	// DecodeSamples synthesises exactly count samples from the current
	// decoder state. When no features were installed since the previous
	// call the decoder conceals the gap by extrapolating from internal
	// state. The returned slice has length count on success.
	DecodeSamples(count int) ([]int16, error)

	// Bitrate returns the configured bitrate in bits per second.
	Bitrate() int

	// FrameRate returns the decoder's internal frame rate in frames per
	// second.
	FrameRate() int

	// SampleRateHz returns the sample rate the decoder synthesises at.
	SampleRateHz() int

	// NumChannels returns the channel count of the synthesised audio.
	NumChannels() int
}

// Preprocessor conditions a whole audio buffer before it is sliced into
// packets. Implementations must preserve the sample count and channel
// layout, because packet boundaries are computed after preprocessing.
type Preprocessor interface {
	// Process returns the conditioned samples. The input slice is not
	// modified.
	Process(samples []int16, sampleRateHz int) ([]int16, error)
}
