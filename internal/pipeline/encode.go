package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/sonoxa/internal/observe"
	"github.com/MrWong99/sonoxa/pkg/codec"
	"github.com/MrWong99/sonoxa/pkg/npz"
	"github.com/MrWong99/sonoxa/pkg/wavio"
)

// EncodeBuffer encodes a whole sample buffer into a flattened feature
// stream: optional preprocessing, then one encoder call per packet in
// strictly ascending offset order. A trailing remainder shorter than one
// packet is dropped. The first failing packet aborts the run with its
// sample offset; the partial stream is discarded.
func EncodeBuffer(ctx context.Context, enc codec.Encoder, samples []int16, opts ...Option) ([]float32, error) {
	if enc == nil {
		return nil, ErrNilCodec
	}
	cfg := newRunConfig(opts)

	buf := samples
	if cfg.pre != nil {
		var err error
		buf, err = cfg.pre.Process(samples, enc.SampleRateHz())
		if err != nil {
			return nil, fmt.Errorf("pipeline: preprocess: %w", err)
		}
	}

	hop := codec.SamplesPerHop(enc.SampleRateHz())
	if hop <= 0 {
		return nil, fmt.Errorf("pipeline: %w: %d Hz", codec.ErrUnsupportedSampleRate, enc.SampleRateHz())
	}
	packetLen := codec.FramesPerPacket * hop

	features := make([]float32, 0, len(buf)/packetLen*codec.NumFeatures)
	numPackets := 0
	for off, window := range Slice(buf, packetLen) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: encode canceled at sample offset %d: %w", off, err)
		}
		start := time.Now()
		fv, err := encodePacket(enc, off, window)
		if err != nil {
			if cfg.stats != nil {
				cfg.stats.IncrErrors()
			}
			return nil, err
		}
		d := time.Since(start)

		cfg.metrics.EncodeDuration.Record(ctx, d.Seconds())
		cfg.metrics.RecordPacketEncoded(ctx, cfg.codecName)
		if cfg.stats != nil {
			cfg.stats.RecordEncode(d)
			cfg.stats.IncrPackets()
		}

		features = append(features, fv...)
		numPackets++
	}

	observe.Logger(ctx).Info("encoded frames",
		slog.Int("count", numPackets*codec.FramesPerPacket),
		slog.Int("samples", len(buf)),
	)
	return features, nil
}

// EncodeFile runs the complete encode pipeline for one file: read the WAV,
// encode the buffer, persist the feature stream as the named array
// "features" with shape [numPackets, codec.NumFeatures], overwriting any
// existing archive. The output file is written only after the whole stream
// has been encoded, so a failed run leaves no artifact behind.
//
// The WAV's layout must match the encoder: same channel count, same sample
// rate. There is no resampling.
func EncodeFile(ctx context.Context, enc codec.Encoder, wavPath, featuresPath string, opts ...Option) error {
	if enc == nil {
		return ErrNilCodec
	}

	audio, err := wavio.Read(wavPath)
	if err != nil {
		return fmt.Errorf("pipeline: read %s: %w", wavPath, err)
	}
	if audio.NumChannels != enc.NumChannels() {
		return fmt.Errorf("pipeline: %s has %d channels, encoder expects %d: %w",
			wavPath, audio.NumChannels, enc.NumChannels(), codec.ErrUnsupportedNumChannels)
	}
	if audio.SampleRateHz != enc.SampleRateHz() {
		return fmt.Errorf("pipeline: %s is sampled at %d Hz, encoder expects %d Hz: %w",
			wavPath, audio.SampleRateHz, enc.SampleRateHz(), codec.ErrUnsupportedSampleRate)
	}

	start := time.Now()
	features, err := EncodeBuffer(ctx, enc, audio.Samples, opts...)
	if err != nil {
		return err
	}

	rows := len(features) / codec.NumFeatures
	if err := npz.Save(featuresPath, featureArrayName, features, rows, codec.NumFeatures, npz.Overwrite); err != nil {
		return fmt.Errorf("pipeline: save features: %w", err)
	}

	logThroughput(ctx, "encode finished", start, len(audio.Samples))
	return nil
}

// logThroughput reports elapsed wall time and realised sample throughput.
// Purely observational: it never affects the pipeline outcome.
func logThroughput(ctx context.Context, msg string, start time.Time, numSamples int) {
	elapsed := time.Since(start)
	var perSec float64
	if elapsed > 0 {
		perSec = float64(numSamples) / elapsed.Seconds()
	}
	observe.Logger(ctx).Info(msg,
		slog.Duration("elapsed", elapsed),
		slog.Float64("samples_per_sec", perSec),
	)
}
