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

// DecodeFeatures synthesises the full sample stream from a flattened
// feature stream, one record per packet in order. The stream length must be
// an exact multiple of the record length; a ragged tail aborts the run with
// the partial record's offset before any record reaches the decoder.
//
// With a loss injector configured, each record first passes a channel
// decision: dropped records are never installed and the decoder synthesises
// their samples from internal state (concealment). A zero-rate injector
// produces output identical to running without one.
func DecodeFeatures(ctx context.Context, dec codec.Decoder, features []float32, opts ...Option) ([]int16, error) {
	if dec == nil {
		return nil, ErrNilCodec
	}
	cfg := newRunConfig(opts)

	recordLen := codec.FramesPerPacket * codec.NumFeatures
	if rem := len(features) % recordLen; rem != 0 {
		off := len(features) - rem
		return nil, &DecodeError{
			Offset: off,
			Err:    fmt.Errorf("%w: trailing record has %d values, want %d", codec.ErrFeatureLength, rem, recordLen),
		}
	}

	hop := codec.SamplesPerHop(dec.SampleRateHz())
	if hop <= 0 {
		return nil, fmt.Errorf("pipeline: %w: %d Hz", codec.ErrUnsupportedSampleRate, dec.SampleRateHz())
	}
	numSamples := codec.FramesPerPacket * hop

	numRecords := len(features) / recordLen
	out := make([]int16, 0, numRecords*numSamples)
	log := observe.Logger(ctx)

	for rec := 0; rec < numRecords; rec++ {
		off := rec * recordLen
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: decode canceled at feature offset %d: %w", off, err)
		}
		record := features[off : off+recordLen]

		delivered := true
		if cfg.inj != nil {
			delivered = cfg.inj.Next()
			log.Debug("channel decision",
				slog.Int("record", rec),
				slog.Bool("delivered", delivered),
			)
		}

		var (
			samples []int16
			err     error
			outcome string
		)
		start := time.Now()
		if delivered {
			samples, err = decodePacket(dec, off, record, numSamples)
			outcome = "decoded"
		} else {
			// The record is withheld: no install, the decoder extrapolates.
			samples, err = dec.DecodeSamples(numSamples)
			if err != nil {
				err = &DecodeError{Offset: off, Err: err}
			}
			outcome = "concealed"
			cfg.metrics.RecordLossInjected(ctx)
			if cfg.stats != nil {
				cfg.stats.IncrDropped()
			}
		}
		if err != nil {
			if cfg.stats != nil {
				cfg.stats.IncrErrors()
			}
			return nil, err
		}
		if len(samples) != numSamples {
			return nil, &DecodeError{
				Offset: off,
				Err:    fmt.Errorf("%w: decoder returned %d samples, want %d", codec.ErrPacketLength, len(samples), numSamples),
			}
		}
		d := time.Since(start)

		cfg.metrics.DecodeDuration.Record(ctx, d.Seconds())
		cfg.metrics.RecordFrameDecoded(ctx, cfg.codecName, outcome)
		if cfg.stats != nil {
			cfg.stats.RecordDecode(d)
			cfg.stats.IncrPackets()
			if outcome == "concealed" {
				cfg.stats.IncrConcealed()
			}
		}

		out = append(out, samples...)
	}

	return out, nil
}

// DecodeFile runs the complete decode pipeline for one file: load the named
// array "features", synthesise the sample stream, and write it as 16-bit
// PCM WAV with the decoder's channel count and sample rate. The output file
// is written only after the whole stream has been decoded, so a failed run
// leaves no artifact behind.
func DecodeFile(ctx context.Context, dec codec.Decoder, featuresPath, wavPath string, opts ...Option) error {
	if dec == nil {
		return ErrNilCodec
	}

	data, rows, cols, err := npz.Load(featuresPath, featureArrayName)
	if err != nil {
		return fmt.Errorf("pipeline: load features: %w", err)
	}
	observe.Logger(ctx).Info("loaded feature array",
		slog.String("path", featuresPath),
		slog.Int("records", rows),
		slog.Int("features", cols),
	)
	if cols != codec.NumFeatures {
		return fmt.Errorf("pipeline: %w: array has %d columns, want %d", codec.ErrFeatureLength, cols, codec.NumFeatures)
	}

	start := time.Now()
	samples, err := DecodeFeatures(ctx, dec, data, opts...)
	if err != nil {
		return err
	}

	if err := wavio.Write(wavPath, dec.NumChannels(), dec.SampleRateHz(), samples); err != nil {
		return fmt.Errorf("pipeline: write %s: %w", wavPath, err)
	}

	logThroughput(ctx, "decode finished", start, len(samples))
	return nil
}
