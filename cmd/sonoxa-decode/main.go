// Command sonoxa-decode synthesises a 16-bit PCM WAV file from a feature
// archive produced by sonoxa-encode, optionally replaying the stream through
// a simulated lossy channel first.
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
	"github.com/MrWong99/sonoxa/internal/lossim"
	"github.com/MrWong99/sonoxa/internal/observe"
	"github.com/MrWong99/sonoxa/internal/pipeline"
	"github.com/MrWong99/sonoxa/pkg/codec"
	"github.com/MrWong99/sonoxa/pkg/codec/melspec"
	"github.com/MrWong99/sonoxa/pkg/codec/opus"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	inputPath := flag.String("input", "", "path of the feature archive to decode")
	outputPath := flag.String("output", "", "path of the WAV file to write")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "sonoxa-decode: both -input and -output are required")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sonoxa-decode: %v\n", err)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sonoxa-decode starting",
		"input", *inputPath,
		"output", *outputPath,
		"codec", cfg.Codec.Name,
		"sample_rate_hz", cfg.Codec.SampleRateHz,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "sonoxa-decode"})
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

	// ── Decoder ───────────────────────────────────────────────────────────────
	// The archive carries no rate of its own; the decoder synthesises at the
	// configured sample rate.
	reg := config.NewRegistry()
	registerBuiltinCodecs(reg)

	dec, err := reg.CreateDecoder(cfg.Codec)
	if err != nil {
		slog.Error("failed to create decoder", "codec", cfg.Codec.Name, "err", err)
		return 1
	}

	// ── Decode ────────────────────────────────────────────────────────────────
	m := observe.DefaultMetrics()
	stats := observe.NewPipelineStats(0)

	opts := []pipeline.Option{
		pipeline.WithMetrics(m),
		pipeline.WithStats(stats),
		pipeline.WithCodecName(string(cfg.Codec.Name)),
	}
	var inj *lossim.Injector
	if cfg.Loss.Rate > 0 {
		inj, err = lossim.New(cfg.Loss.Rate, cfg.Loss.AverageBurstLength, cfg.Loss.Seed)
		if err != nil {
			slog.Error("failed to create loss injector", "err", err)
			return 1
		}
		opts = append(opts, pipeline.WithLossInjector(inj))
		slog.Info("loss injection enabled",
			"rate", cfg.Loss.Rate,
			"average_burst_length", cfg.Loss.AverageBurstLength,
			"seed", cfg.Loss.Seed,
		)
	}

	err = observe.Stage(ctx, m, "decode", func(ctx context.Context) error {
		return pipeline.DecodeFile(ctx, dec, *inputPath, *outputPath, opts...)
	})
	if err != nil {
		slog.Error("decode failed", "err", err)
		return 1
	}

	printSummary(cfg, stats.Snapshot(), inj)
	return 0
}

// registerBuiltinCodecs wires the decoder factories that ship with Sonoxa
// into reg.
func registerBuiltinCodecs(reg *config.Registry) {
	reg.RegisterDecoder(config.CodecMelspec, func(c config.CodecConfig) (codec.Decoder, error) {
		return melspec.NewDecoder(c.SampleRateHz, c.Bitrate)
	})
	reg.RegisterDecoder(config.CodecOpus, func(c config.CodecConfig) (codec.Decoder, error) {
		return opus.NewDecoder(c.SampleRateHz, c.Bitrate)
	})
}

// ── Run summary ───────────────────────────────────────────────────────────────

func printSummary(cfg *config.Config, snap observe.Snapshot, inj *lossim.Injector) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        sonoxa-decode — summary        ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Codec", string(cfg.Codec.Name))
	printRow("Sample rate", fmt.Sprintf("%d Hz", cfg.Codec.SampleRateHz))
	printRow("Records decoded", fmt.Sprint(snap.Packets))
	if inj != nil {
		printRow("Records dropped", fmt.Sprint(inj.Dropped()))
		printRow("Concealed", fmt.Sprint(snap.Concealed))
	}
	printRow("Decode p50", snap.Decode.P50.String())
	printRow("Decode p95", snap.Decode.P95.String())
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
