package preprocess_test

import (
	"math"
	"testing"

	"github.com/MrWong99/sonoxa/pkg/codec/preprocess"
)

func TestNoOpPassesThrough(t *testing.T) {
	t.Parallel()
	samples := []int16{1, -2, 3, -4}
	got, err := preprocess.NoOp{}.Process(samples, 16000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestNoOpRejectsBadRate(t *testing.T) {
	t.Parallel()
	if _, err := preprocess.NoOp{}.Process(nil, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestNewDCBlockValidatesPole(t *testing.T) {
	t.Parallel()
	for _, pole := range []float64{0, 1, -0.5, 1.5} {
		if _, err := preprocess.NewDCBlock(pole); err == nil {
			t.Errorf("pole %g accepted, want error", pole)
		}
	}
	if _, err := preprocess.NewDCBlock(preprocess.DefaultDCBlockPole); err != nil {
		t.Errorf("default pole rejected: %v", err)
	}
}

func TestDCBlockRemovesOffset(t *testing.T) {
	t.Parallel()
	d, err := preprocess.NewDCBlock(preprocess.DefaultDCBlockPole)
	if err != nil {
		t.Fatalf("NewDCBlock: %v", err)
	}

	// A 440 Hz tone riding on a constant 1000-sample offset.
	n := 8000
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(1000 + 4000*math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	got, err := d.Process(samples, 16000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// After the filter settles, the mean must sit near zero while the tone
	// survives.
	var sum, energy float64
	for _, s := range got[n/2:] {
		sum += float64(s)
		energy += float64(s) * float64(s)
	}
	mean := sum / float64(n/2)
	if math.Abs(mean) > 5 {
		t.Errorf("settled mean = %.2f, want near 0", mean)
	}
	rms := math.Sqrt(energy / float64(n/2))
	if rms < 2000 {
		t.Errorf("settled rms = %.1f, want the tone preserved", rms)
	}
}

func TestDCBlockEmptyInput(t *testing.T) {
	t.Parallel()
	d, err := preprocess.NewDCBlock(preprocess.DefaultDCBlockPole)
	if err != nil {
		t.Fatalf("NewDCBlock: %v", err)
	}
	got, err := d.Process(nil, 16000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
