// Package pipeline implements the batch encode and decode pipelines that
// drive a feature codec over whole audio files.
//
// # Architecture
//
//  1. Encode: load WAV → optional preprocessing → slice into fixed packets →
//     one [codec.Encoder.EncodeRaw] call per packet, in order → accumulate
//     feature vectors → persist as the named array "features" with shape
//     [numPackets, codec.NumFeatures].
//  2. Decode: load the named array → per feature record, an optional
//     channel-loss decision, then [codec.Decoder.SetEncodedFeatures] and
//     [codec.Decoder.DecodeSamples] → accumulate sample runs → write WAV.
//
// Both pipelines are strictly sequential and fail fast: the first error
// aborts the run and no output file is written. Output files only ever
// appear after the full stream has been accumulated, so a failed run never
// leaves a partial artifact behind.
//
// The pipelines depend on the codec capability interfaces only; concrete
// codecs live under pkg/codec and are chosen by the caller.
package pipeline

import (
	"fmt"
	"iter"

	"github.com/MrWong99/sonoxa/internal/lossim"
	"github.com/MrWong99/sonoxa/internal/observe"
	"github.com/MrWong99/sonoxa/pkg/codec"
)

// featureArrayName is the entry name under which the feature stream is
// persisted inside the archive.
const featureArrayName = "features"

// ErrNilCodec is returned when a pipeline is started without a codec
// instance, typically after a registry lookup for an unknown name.
var ErrNilCodec = fmt.Errorf("pipeline: codec instance is nil")

// EncodeError reports a failed packet encode. Offset is the index of the
// packet's first sample within the (preprocessed) source buffer.
type EncodeError struct {
	Offset int
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("pipeline: encode packet at sample offset %d: %v", e.Offset, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports a failed record decode. Offset is the index of the
// record's first value within the flattened feature stream.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pipeline: decode record at feature offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Option configures a single pipeline run.
type Option func(*runConfig)

type runConfig struct {
	pre       codec.Preprocessor
	inj       *lossim.Injector
	metrics   *observe.Metrics
	stats     *observe.PipelineStats
	codecName string
}

// WithPreprocessor runs p over the whole sample buffer before slicing.
// A nil preprocessor leaves the buffer untouched.
func WithPreprocessor(p codec.Preprocessor) Option {
	return func(c *runConfig) { c.pre = p }
}

// WithLossInjector drops feature records on the decode path according to
// inj's channel model. Dropped records are never installed into the decoder,
// which synthesises their samples from internal state instead.
func WithLossInjector(inj *lossim.Injector) Option {
	return func(c *runConfig) { c.inj = inj }
}

// WithMetrics overrides the metrics instance used for per-packet
// instrumentation. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *runConfig) { c.metrics = m }
}

// WithStats attaches a latency and counter collector feeding the end-of-run
// summary. Nil disables collection.
func WithStats(ps *observe.PipelineStats) Option {
	return func(c *runConfig) { c.stats = ps }
}

// WithCodecName sets the codec label recorded on packet metrics.
func WithCodecName(name string) Option {
	return func(c *runConfig) { c.codecName = name }
}

func newRunConfig(opts []Option) runConfig {
	cfg := runConfig{codecName: "unknown"}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = observe.DefaultMetrics()
	}
	return cfg
}

// Slice yields consecutive non-overlapping windows of exactly packetLen
// samples from buf, keyed by the offset of each window's first sample.
// Offsets advance by packetLen; a trailing remainder shorter than packetLen
// is not yielded. The sequence is deterministic and can be ranged over more
// than once. A buffer shorter than one packet, or a non-positive packetLen,
// yields nothing.
func Slice(buf []int16, packetLen int) iter.Seq2[int, []int16] {
	return func(yield func(int, []int16) bool) {
		if packetLen <= 0 {
			return
		}
		for off := 0; off+packetLen <= len(buf); off += packetLen {
			if !yield(off, buf[off:off+packetLen:off+packetLen]) {
				return
			}
		}
	}
}

// encodePacket runs exactly one encoder call for the packet at the given
// sample offset. There is no retry: the encoder's internal state advances
// with every call, so a second attempt would desynchronise the stream. The
// returned vector is checked against the framing contract before it may
// enter the accumulated stream.
func encodePacket(enc codec.Encoder, off int, window []int16) ([]float32, error) {
	fv, err := enc.EncodeRaw(window)
	if err != nil {
		return nil, &EncodeError{Offset: off, Err: err}
	}
	if want := codec.FramesPerPacket * codec.NumFeatures; len(fv) != want {
		return nil, &EncodeError{
			Offset: off,
			Err:    fmt.Errorf("%w: encoder returned %d values, want %d", codec.ErrFeatureLength, len(fv), want),
		}
	}
	return fv, nil
}

// decodePacket runs the two-step decode for one feature record: install the
// record, then synthesise numSamples samples. Failure of either step aborts
// with the record's feature offset.
func decodePacket(dec codec.Decoder, off int, record []float32, numSamples int) ([]int16, error) {
	if err := dec.SetEncodedFeatures(record); err != nil {
		return nil, &DecodeError{Offset: off, Err: err}
	}
	samples, err := dec.DecodeSamples(numSamples)
	if err != nil {
		return nil, &DecodeError{Offset: off, Err: err}
	}
	return samples, nil
}
