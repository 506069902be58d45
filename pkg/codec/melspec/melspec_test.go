package melspec_test

import (
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/sonoxa/pkg/codec"
	"github.com/MrWong99/sonoxa/pkg/codec/melspec"
)

func sinePacket(n int, freq float64, rateHz, amplitude int) []int16 {
	packet := make([]int16, n)
	for i := range packet {
		packet[i] = int16(float64(amplitude) * math.Sin(2*math.Pi*freq*float64(i)/float64(rateHz)))
	}
	return packet
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestNewEncoderValidatesParameters(t *testing.T) {
	t.Parallel()
	if _, err := melspec.NewEncoder(44100, 3000, false); !errors.Is(err, codec.ErrUnsupportedSampleRate) {
		t.Errorf("44100 Hz: got %v, want ErrUnsupportedSampleRate", err)
	}
	if _, err := melspec.NewEncoder(16000, 0, false); !errors.Is(err, codec.ErrUnsupportedBitrate) {
		t.Errorf("zero bitrate: got %v, want ErrUnsupportedBitrate", err)
	}
	enc, err := melspec.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if got := enc.SampleRateHz(); got != 16000 {
		t.Errorf("SampleRateHz() = %d, want 16000", got)
	}
	if got := enc.Bitrate(); got != 3000 {
		t.Errorf("Bitrate() = %d, want 3000", got)
	}
}

func TestEncodeProducesFiniteFeatureVector(t *testing.T) {
	t.Parallel()
	enc, err := melspec.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	features, err := enc.EncodeRaw(sinePacket(320, 440, 16000, 16000))
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}
	if len(features) != codec.NumFeatures {
		t.Fatalf("len(features) = %d, want %d", len(features), codec.NumFeatures)
	}
	for i, v := range features {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			t.Fatalf("features[%d] = %f (not finite)", i, v)
		}
	}
}

func TestEncodeRejectsWrongPacketLength(t *testing.T) {
	t.Parallel()
	enc, err := melspec.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if _, err := enc.EncodeRaw(make([]int16, 160)); !errors.Is(err, codec.ErrPacketLength) {
		t.Errorf("got %v, want ErrPacketLength", err)
	}
}

func TestEncodeSeparatesTones(t *testing.T) {
	t.Parallel()
	encode := func(freq float64) []float32 {
		enc, err := melspec.NewEncoder(16000, 3000, false)
		if err != nil {
			t.Fatalf("NewEncoder: %v", err)
		}
		features, err := enc.EncodeRaw(sinePacket(320, freq, 16000, 16000))
		if err != nil {
			t.Fatalf("EncodeRaw: %v", err)
		}
		return features
	}

	low, high := encode(440), encode(3000)
	same := true
	for i := range low {
		if low[i] != high[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("440 Hz and 3000 Hz tones produced identical feature vectors")
	}
}

func TestDTXMarksSilentPackets(t *testing.T) {
	t.Parallel()
	enc, err := melspec.NewEncoder(16000, 3000, true)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	silent, err := enc.EncodeRaw(make([]int16, 320))
	if err != nil {
		t.Fatalf("EncodeRaw silent: %v", err)
	}
	for i := 1; i < len(silent); i++ {
		if silent[i] != silent[0] {
			t.Fatalf("silence record not uniform: [%d]=%f, [0]=%f", i, silent[i], silent[0])
		}
	}

	voiced, err := enc.EncodeRaw(sinePacket(320, 440, 16000, 16000))
	if err != nil {
		t.Fatalf("EncodeRaw voiced: %v", err)
	}
	uniform := true
	for i := 1; i < len(voiced); i++ {
		if voiced[i] != voiced[0] {
			uniform = false
			break
		}
	}
	if uniform {
		t.Error("voiced packet produced a uniform record")
	}
}

func TestDecodeRendersInstalledRecords(t *testing.T) {
	t.Parallel()
	enc, err := melspec.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := melspec.NewDecoder(16000, 3000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	var out []int16
	for p := 0; p < 5; p++ {
		packet := sinePacket(320, 440, 16000, 16000)
		features, err := enc.EncodeRaw(packet)
		if err != nil {
			t.Fatalf("EncodeRaw packet %d: %v", p, err)
		}
		if err := dec.SetEncodedFeatures(features); err != nil {
			t.Fatalf("SetEncodedFeatures packet %d: %v", p, err)
		}
		samples, err := dec.DecodeSamples(320)
		if err != nil {
			t.Fatalf("DecodeSamples packet %d: %v", p, err)
		}
		if len(samples) != 320 {
			t.Fatalf("packet %d: got %d samples, want 320", p, len(samples))
		}
		out = append(out, samples...)
	}

	if got := rms(out[320:]); got < 50 {
		t.Errorf("decoded rms = %.1f, want audible output for a loud tone", got)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	t.Parallel()
	enc, err := melspec.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	features, err := enc.EncodeRaw(sinePacket(320, 440, 16000, 16000))
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}

	decode := func() []int16 {
		dec, err := melspec.NewDecoder(16000, 3000)
		if err != nil {
			t.Fatalf("NewDecoder: %v", err)
		}
		if err := dec.SetEncodedFeatures(features); err != nil {
			t.Fatalf("SetEncodedFeatures: %v", err)
		}
		samples, err := dec.DecodeSamples(320)
		if err != nil {
			t.Fatalf("DecodeSamples: %v", err)
		}
		return samples
	}

	a, b := decode(), decode()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("decoders diverge at sample %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestConcealmentFadesToSilence(t *testing.T) {
	t.Parallel()
	enc, err := melspec.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := melspec.NewDecoder(16000, 3000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	features, err := enc.EncodeRaw(sinePacket(320, 440, 16000, 16000))
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}
	if err := dec.SetEncodedFeatures(features); err != nil {
		t.Fatalf("SetEncodedFeatures: %v", err)
	}
	if _, err := dec.DecodeSamples(320); err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}

	// Decode a long run of withheld records and watch the tail fade.
	var first, last []int16
	for i := 0; i < 80; i++ {
		samples, err := dec.DecodeSamples(320)
		if err != nil {
			t.Fatalf("concealed DecodeSamples %d: %v", i, err)
		}
		if i == 0 {
			first = samples
		}
		last = samples
	}

	firstRMS, lastRMS := rms(first), rms(last)
	if lastRMS > firstRMS/10 && lastRMS > 1 {
		t.Errorf("concealment did not fade: first rms %.2f, last rms %.2f", firstRMS, lastRMS)
	}
}

func TestDecodeSilentBeforeAnyRecord(t *testing.T) {
	t.Parallel()
	dec, err := melspec.NewDecoder(16000, 3000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	samples, err := dec.DecodeSamples(320)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d = %d, want silence before any record", i, s)
		}
	}
}

func TestSetEncodedFeaturesValidation(t *testing.T) {
	t.Parallel()
	dec, err := melspec.NewDecoder(16000, 3000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	if err := dec.SetEncodedFeatures(make([]float32, 10)); !errors.Is(err, codec.ErrFeatureLength) {
		t.Errorf("short record: got %v, want ErrFeatureLength", err)
	}
	bad := make([]float32, codec.NumFeatures)
	bad[7] = float32(math.NaN())
	if err := dec.SetEncodedFeatures(bad); !errors.Is(err, codec.ErrFeatureValue) {
		t.Errorf("NaN record: got %v, want ErrFeatureValue", err)
	}
	bad[7] = float32(math.Inf(1))
	if err := dec.SetEncodedFeatures(bad); !errors.Is(err, codec.ErrFeatureValue) {
		t.Errorf("Inf record: got %v, want ErrFeatureValue", err)
	}
}

func TestDecodeRejectsWrongSampleCount(t *testing.T) {
	t.Parallel()
	dec, err := melspec.NewDecoder(16000, 3000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.DecodeSamples(100); !errors.Is(err, codec.ErrPacketLength) {
		t.Errorf("got %v, want ErrPacketLength", err)
	}
}
