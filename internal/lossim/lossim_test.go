package lossim_test

import (
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/sonoxa/internal/lossim"
)

func TestZeroRateDeliversEverything(t *testing.T) {
	t.Parallel()
	inj, err := lossim.New(0, 1, 42)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 1000; i++ {
		if !inj.Next() {
			t.Fatalf("record %d dropped at loss rate 0", i)
		}
	}
	if inj.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", inj.Dropped())
	}
	if inj.Delivered() != 1000 {
		t.Errorf("Delivered() = %d, want 1000", inj.Delivered())
	}
}

func TestSameSeedSameSchedule(t *testing.T) {
	t.Parallel()
	const n = 512
	schedule := func(seed uint64) []bool {
		inj, err := lossim.New(0.3, 2, seed)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		out := make([]bool, n)
		for i := range out {
			out[i] = inj.Next()
		}
		return out
	}

	a, b := schedule(7), schedule(7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("schedules diverge at record %d", i)
		}
	}

	c := schedule(8)
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("seeds 7 and 8 produced identical schedules")
	}
}

func TestObservedRateAndBurstLength(t *testing.T) {
	t.Parallel()
	const (
		n     = 20000
		rate  = 0.1
		burst = 3.0
	)
	inj, err := lossim.New(rate, burst, 99)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var bursts, burstTotal int
	inBurst := false
	for i := 0; i < n; i++ {
		if inj.Next() {
			inBurst = false
			continue
		}
		burstTotal++
		if !inBurst {
			bursts++
			inBurst = true
		}
	}

	if got := inj.Delivered() + inj.Dropped(); got != n {
		t.Fatalf("Delivered+Dropped = %d, want %d", got, n)
	}
	observedRate := float64(inj.Dropped()) / n
	if math.Abs(observedRate-rate) > 0.03 {
		t.Errorf("observed loss rate %.4f, want %.2f +/- 0.03", observedRate, rate)
	}
	if bursts == 0 {
		t.Fatal("no loss bursts observed")
	}
	observedBurst := float64(burstTotal) / float64(bursts)
	if math.Abs(observedBurst-burst) > 0.5 {
		t.Errorf("observed burst length %.2f, want %.1f +/- 0.5", observedBurst, burst)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	if _, err := lossim.New(1, 2, 0); !errors.Is(err, lossim.ErrLossRate) {
		t.Errorf("rate 1: got %v, want ErrLossRate", err)
	}
	if _, err := lossim.New(-0.1, 2, 0); !errors.Is(err, lossim.ErrLossRate) {
		t.Errorf("negative rate: got %v, want ErrLossRate", err)
	}
	if _, err := lossim.New(0.2, 0.5, 0); !errors.Is(err, lossim.ErrBurstLength) {
		t.Errorf("short burst: got %v, want ErrBurstLength", err)
	}
	// A 90% loss rate cannot be reached with bursts of mean length 1.
	if _, err := lossim.New(0.9, 1, 0); !errors.Is(err, lossim.ErrLossRate) {
		t.Errorf("infeasible pair: got %v, want ErrLossRate", err)
	}
	if _, err := lossim.New(0.25, 1.5, 3); err != nil {
		t.Errorf("valid parameters rejected: %v", err)
	}
}
