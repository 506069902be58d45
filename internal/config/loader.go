package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Fields absent from the document keep their [Default] values. Useful in
// tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Codec
	if cfg.Codec.Name != "" && !cfg.Codec.Name.IsValid() {
		errs = append(errs, fmt.Errorf("codec.name %q is invalid; valid values: melspec, opus", cfg.Codec.Name))
	}
	if cfg.Codec.SampleRateHz != 0 && !codec.IsSampleRateSupported(cfg.Codec.SampleRateHz) {
		errs = append(errs, fmt.Errorf("codec.sample_rate_hz %d is unsupported; valid values: %v", cfg.Codec.SampleRateHz, codec.SupportedSampleRates))
	}
	if cfg.Codec.Bitrate < 0 {
		errs = append(errs, fmt.Errorf("codec.bitrate %d must be positive", cfg.Codec.Bitrate))
	}
	if cfg.Codec.ModelPath != "" {
		slog.Warn("codec.model_path is set but the built-in codecs load no external model",
			"codec", cfg.Codec.Name,
			"model_path", cfg.Codec.ModelPath,
		)
	}

	// Preprocessing
	if cfg.Preprocess.Name != "" && !cfg.Preprocess.Name.IsValid() {
		errs = append(errs, fmt.Errorf("preprocess.name %q is invalid; valid values: noop, dcblock", cfg.Preprocess.Name))
	}
	if cfg.Preprocess.DCPole < 0 || cfg.Preprocess.DCPole >= 1 {
		errs = append(errs, fmt.Errorf("preprocess.dc_pole %g is out of range (0, 1)", cfg.Preprocess.DCPole))
	}
	if cfg.Preprocess.Enabled && cfg.Preprocess.Name == PreprocessorNoOp {
		slog.Warn("preprocessing is enabled with the noop preprocessor; samples pass through unchanged")
	}

	// Loss injection
	if cfg.Loss.Rate < 0 || cfg.Loss.Rate >= 1 {
		errs = append(errs, fmt.Errorf("loss.rate %g is out of range [0, 1)", cfg.Loss.Rate))
	}
	if cfg.Loss.Rate > 0 && cfg.Loss.AverageBurstLength < 1 {
		errs = append(errs, fmt.Errorf("loss.average_burst_length %g must be at least 1", cfg.Loss.AverageBurstLength))
	}

	return errors.Join(errs...)
}
