// Package config provides the configuration schema, loader, and codec
// registry for the Sonoxa file tools.
package config

import (
	"github.com/MrWong99/sonoxa/pkg/codec"
	"github.com/MrWong99/sonoxa/pkg/codec/preprocess"
)

// LogLevel controls log verbosity for the Sonoxa tools.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CodecName selects the codec implementation the tools drive.
type CodecName string

const (
	// CodecMelspec is the built-in log-mel analysis/synthesis codec.
	CodecMelspec CodecName = "melspec"

	// CodecOpus packs Opus frames into fixed-width feature records.
	CodecOpus CodecName = "opus"
)

// IsValid reports whether c is a recognised codec name.
func (c CodecName) IsValid() bool {
	return c == CodecMelspec || c == CodecOpus
}

// PreprocessorName selects the sample conditioning stage applied before
// encoding.
type PreprocessorName string

const (
	PreprocessorNoOp    PreprocessorName = "noop"
	PreprocessorDCBlock PreprocessorName = "dcblock"
)

// IsValid reports whether p is a recognised preprocessor name.
func (p PreprocessorName) IsValid() bool {
	return p == PreprocessorNoOp || p == PreprocessorDCBlock
}

// Config is the root configuration structure for the Sonoxa tools.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// [Default] returns the values used when no file is given.
type Config struct {
	Codec      CodecConfig      `yaml:"codec"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Loss       LossConfig       `yaml:"loss"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// CodecConfig selects and parameterises the codec implementation.
type CodecConfig struct {
	// Name selects the codec. Valid values: melspec, opus.
	Name CodecName `yaml:"name"`

	// SampleRateHz is the PCM sample rate the codec operates at.
	// Must be one of the supported rates (8000, 16000, 32000, 48000).
	SampleRateHz int `yaml:"sample_rate_hz"`

	// Bitrate is the target transport bitrate in bits per second.
	Bitrate int `yaml:"bitrate"`

	// ModelPath points at a directory of external model assets. The
	// built-in codecs bundle their own coefficients and ignore it.
	ModelPath string `yaml:"model_path"`

	// EnableDTX marks silent packets with a sentinel record instead of
	// coding them at full rate.
	EnableDTX bool `yaml:"enable_dtx"`
}

// PreprocessConfig controls the conditioning stage run over the whole
// sample buffer before encoding.
type PreprocessConfig struct {
	// Enabled switches the stage on. When false the buffer reaches the
	// encoder untouched regardless of Name.
	Enabled bool `yaml:"enabled"`

	// Name selects the preprocessor. Valid values: noop, dcblock.
	Name PreprocessorName `yaml:"name"`

	// DCPole is the feedback coefficient of the dcblock filter, in (0, 1).
	// Zero means [preprocess.DefaultDCBlockPole].
	DCPole float64 `yaml:"dc_pole"`
}

// LossConfig drives the optional packet-loss injection stage on decode.
type LossConfig struct {
	// Rate is the long-run fraction of feature records withheld from the
	// decoder, in [0, 1). Zero disables loss injection entirely.
	Rate float64 `yaml:"rate"`

	// AverageBurstLength is the mean run of consecutive drops, at least 1.
	AverageBurstLength float64 `yaml:"average_burst_length"`

	// Seed fixes the loss pattern so runs are reproducible.
	Seed uint64 `yaml:"seed"`
}

// Default returns the configuration used when no config file is given:
// the melspec codec at 16 kHz and the nominal bitrate, with preprocessing,
// DTX and loss injection all disabled.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			Name:         CodecMelspec,
			SampleRateHz: 16000,
			Bitrate:      codec.Bitrate,
		},
		Preprocess: PreprocessConfig{
			Name:   PreprocessorNoOp,
			DCPole: preprocess.DefaultDCBlockPole,
		},
		Loss: LossConfig{
			AverageBurstLength: 1,
		},
		LogLevel: LogInfo,
	}
}
