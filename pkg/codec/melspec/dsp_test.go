package melspec

import (
	"math"
	"math/rand"
	"testing"
)

func TestHannWindow(t *testing.T) {
	w := hannWindow(640)
	if len(w) != 640 {
		t.Fatalf("expected 640, got %d", len(w))
	}
	if w[0] != 0 {
		t.Errorf("w[0] = %f, want 0", w[0])
	}
	if math.Abs(w[320]-1.0) > 1e-12 {
		t.Errorf("w[320] = %f, want 1", w[320])
	}
	// Periodic Hann sums to one at half-window overlap.
	for i := 0; i < 320; i++ {
		if s := w[i] + w[i+320]; math.Abs(s-1.0) > 1e-12 {
			t.Fatalf("w[%d]+w[%d] = %f, want 1", i, i+320, s)
		}
	}
}

func TestMelConversion(t *testing.T) {
	// HTK mel scale: 2595 * log10(1 + f/700)
	mel := hzToMel(1000)
	if math.Abs(mel-1000.45) > 1.0 {
		t.Errorf("hzToMel(1000) = %f, want ~1000.45", mel)
	}
	hz := melToHz(mel)
	if math.Abs(hz-1000) > 0.1 {
		t.Errorf("melToHz(hzToMel(1000)) = %f, want 1000", hz)
	}
}

func TestMelFilterBank(t *testing.T) {
	bank := melFilterBank(160, 1024, 16000)
	if len(bank) != 160 {
		t.Fatalf("expected 160 filters, got %d", len(bank))
	}
	halfFFT := 1024/2 + 1
	for i, f := range bank {
		if len(f) != halfFFT {
			t.Fatalf("filter %d: expected %d bins, got %d", i, halfFFT, len(f))
		}
		hasNonZero := false
		for _, v := range f {
			if v > 0 {
				hasNonZero = true
				break
			}
		}
		if !hasNonZero {
			t.Errorf("filter %d is all zeros", i)
		}
	}
}

func TestFFT(t *testing.T) {
	// Known signal: DC + 1-cycle cosine in an 8-sample window.
	n := 8
	re := make([]float64, n)
	im := make([]float64, n)
	for i := range re {
		re[i] = 1.0 + math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	fft(re, im)

	if math.Abs(re[0]-float64(n)) > 0.01 {
		t.Errorf("DC = %f, want %d", re[0], n)
	}
	if math.Abs(re[1]-float64(n)/2) > 0.01 {
		t.Errorf("H1 real = %f, want %f", re[1], float64(n)/2)
	}
}

func TestIFFTInvertsFFT(t *testing.T) {
	n := 512
	rng := rand.New(rand.NewSource(42))
	orig := make([]float64, n)
	for i := range orig {
		orig[i] = rng.Float64()*2 - 1
	}

	re := make([]float64, n)
	im := make([]float64, n)
	copy(re, orig)
	fft(re, im)
	ifft(re, im)

	for i := range orig {
		if math.Abs(re[i]-orig[i]) > 1e-9 {
			t.Fatalf("sample %d: got %g, want %g", i, re[i], orig[i])
		}
		if math.Abs(im[i]) > 1e-9 {
			t.Fatalf("sample %d: imaginary residue %g", i, im[i])
		}
	}
}

func TestNextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{1, 1}, {2, 2}, {3, 4}, {320, 512}, {640, 1024}, {1024, 1024}, {1920, 2048},
	}
	for _, c := range cases {
		if got := nextPow2(c.in); got != c.want {
			t.Errorf("nextPow2(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
