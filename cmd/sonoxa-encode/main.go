// Command sonoxa-encode turns a 16-bit PCM WAV file into a feature archive
// that sonoxa-decode can synthesise back into audio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/sonoxa/internal/config"
	"github.com/MrWong99/sonoxa/internal/observe"
	"github.com/MrWong99/sonoxa/internal/pipeline"
	"github.com/MrWong99/sonoxa/pkg/codec"
	"github.com/MrWong99/sonoxa/pkg/codec/melspec"
	"github.com/MrWong99/sonoxa/pkg/codec/opus"
	"github.com/MrWong99/sonoxa/pkg/codec/preprocess"
	"github.com/MrWong99/sonoxa/pkg/wavio"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	inputPath := flag.String("input", "", "path of the 16-bit PCM WAV file to encode")
	outputPath := flag.String("output", "", "path of the feature archive to write")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "sonoxa-encode: both -input and -output are required")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sonoxa-encode: %v\n", err)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sonoxa-encode starting",
		"input", *inputPath,
		"output", *outputPath,
		"codec", cfg.Codec.Name,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "sonoxa-encode"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Encoder ───────────────────────────────────────────────────────────────
	// The encoder runs at the input file's native rate; there is no resampling.
	rate, channels, err := wavio.Info(*inputPath)
	if err != nil {
		slog.Error("failed to probe input", "path", *inputPath, "err", err)
		return 1
	}
	if channels != codec.NumChannels {
		slog.Error("input must be mono", "path", *inputPath, "channels", channels)
		return 1
	}
	if cfg.Codec.SampleRateHz != rate {
		slog.Info("using the input file's sample rate",
			"configured", cfg.Codec.SampleRateHz,
			"wav", rate,
		)
	}
	cfg.Codec.SampleRateHz = rate

	reg := config.NewRegistry()
	registerBuiltinCodecs(reg)

	enc, err := reg.CreateEncoder(cfg.Codec)
	if err != nil {
		slog.Error("failed to create encoder", "codec", cfg.Codec.Name, "err", err)
		return 1
	}

	// ── Encode ────────────────────────────────────────────────────────────────
	m := observe.DefaultMetrics()
	stats := observe.NewPipelineStats(0)

	opts := []pipeline.Option{
		pipeline.WithMetrics(m),
		pipeline.WithStats(stats),
		pipeline.WithCodecName(string(cfg.Codec.Name)),
	}
	if cfg.Preprocess.Enabled {
		pre, err := reg.CreatePreprocessor(cfg.Preprocess)
		if err != nil {
			slog.Error("failed to create preprocessor", "preprocessor", cfg.Preprocess.Name, "err", err)
			return 1
		}
		opts = append(opts, pipeline.WithPreprocessor(pre))
		slog.Info("preprocessing enabled", "preprocessor", cfg.Preprocess.Name)
	}

	err = observe.Stage(ctx, m, "encode", func(ctx context.Context) error {
		return pipeline.EncodeFile(ctx, enc, *inputPath, *outputPath, opts...)
	})
	if err != nil {
		slog.Error("encode failed", "err", err)
		return 1
	}

	printSummary(cfg, stats.Snapshot())
	return 0
}

// registerBuiltinCodecs wires the encoder and preprocessor factories that
// ship with Sonoxa into reg.
func registerBuiltinCodecs(reg *config.Registry) {
	reg.RegisterEncoder(config.CodecMelspec, func(c config.CodecConfig) (codec.Encoder, error) {
		return melspec.NewEncoder(c.SampleRateHz, c.Bitrate, c.EnableDTX)
	})
	reg.RegisterEncoder(config.CodecOpus, func(c config.CodecConfig) (codec.Encoder, error) {
		return opus.NewEncoder(c.SampleRateHz, c.Bitrate, c.EnableDTX)
	})

	reg.RegisterPreprocessor(config.PreprocessorNoOp, func(c config.PreprocessConfig) (codec.Preprocessor, error) {
		return preprocess.NoOp{}, nil
	})
	reg.RegisterPreprocessor(config.PreprocessorDCBlock, func(c config.PreprocessConfig) (codec.Preprocessor, error) {
		pole := c.DCPole
		if pole == 0 {
			pole = preprocess.DefaultDCBlockPole
		}
		return preprocess.NewDCBlock(pole)
	})
}

// ── Run summary ───────────────────────────────────────────────────────────────

func printSummary(cfg *config.Config, snap observe.Snapshot) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        sonoxa-encode — summary        ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Codec", string(cfg.Codec.Name))
	printRow("Sample rate", fmt.Sprintf("%d Hz", cfg.Codec.SampleRateHz))
	printRow("Packets encoded", fmt.Sprint(snap.Packets))
	printRow("Encode p50", snap.Encode.P50.String())
	printRow("Encode p95", snap.Encode.P95.String())
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-15s : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
