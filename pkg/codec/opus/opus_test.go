package opus_test

import (
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/sonoxa/pkg/codec"
	"github.com/MrWong99/sonoxa/pkg/codec/opus"
)

func TestPackRecord_RoundTrip(t *testing.T) {
	packet := make([]byte, 37)
	for i := range packet {
		packet[i] = byte(i * 7)
	}
	record, err := opus.PackRecord(packet)
	if err != nil {
		t.Fatalf("PackRecord: %v", err)
	}
	if len(record) != codec.NumFeatures {
		t.Fatalf("len(record) = %d, want %d", len(record), codec.NumFeatures)
	}
	if record[0] != 37 {
		t.Errorf("record[0] = %g, want 37", record[0])
	}

	got, err := opus.UnpackRecord(record)
	if err != nil {
		t.Fatalf("UnpackRecord: %v", err)
	}
	if len(got) != len(packet) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(packet))
	}
	for i := range packet {
		if got[i] != packet[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], packet[i])
		}
	}
}

func TestPackRecord_DTX(t *testing.T) {
	record, err := opus.PackRecord(nil)
	if err != nil {
		t.Fatalf("PackRecord: %v", err)
	}
	for i, v := range record {
		if v != 0 {
			t.Fatalf("record[%d] = %g, want 0", i, v)
		}
	}
	packet, err := opus.UnpackRecord(record)
	if err != nil {
		t.Fatalf("UnpackRecord: %v", err)
	}
	if packet != nil {
		t.Errorf("DTX record unpacked to %d bytes, want none", len(packet))
	}
}

func TestPackRecord_OversizedPacket_ReturnsError(t *testing.T) {
	_, err := opus.PackRecord(make([]byte, codec.NumFeatures))
	if !errors.Is(err, codec.ErrFeatureLength) {
		t.Errorf("got %v, want ErrFeatureLength", err)
	}
}

func TestUnpackRecord_InvalidValues_ReturnError(t *testing.T) {
	if _, err := opus.UnpackRecord(make([]float32, 10)); !errors.Is(err, codec.ErrFeatureLength) {
		t.Errorf("short record: got %v, want ErrFeatureLength", err)
	}

	cases := []struct {
		name string
		edit func(record []float32)
	}{
		{"fractional length", func(r []float32) { r[0] = 1.5 }},
		{"negative length", func(r []float32) { r[0] = -1 }},
		{"length beyond capacity", func(r []float32) { r[0] = float32(codec.NumFeatures) }},
		{"NaN length", func(r []float32) { r[0] = float32(math.NaN()) }},
		{"payload not a byte", func(r []float32) { r[0] = 2; r[1] = 300 }},
		{"fractional payload", func(r []float32) { r[0] = 2; r[2] = 0.25 }},
	}
	for _, c := range cases {
		record := make([]float32, codec.NumFeatures)
		c.edit(record)
		if _, err := opus.UnpackRecord(record); !errors.Is(err, codec.ErrFeatureValue) {
			t.Errorf("%s: got %v, want ErrFeatureValue", c.name, err)
		}
	}
}

func TestNewEncoder_UnsupportedRates_ReturnError(t *testing.T) {
	if _, err := opus.NewEncoder(44100, 3000, false); !errors.Is(err, codec.ErrUnsupportedSampleRate) {
		t.Errorf("44100 Hz: got %v, want ErrUnsupportedSampleRate", err)
	}
	// 32 kHz is a valid stream rate but not an Opus rate.
	if _, err := opus.NewEncoder(32000, 3000, false); !errors.Is(err, codec.ErrUnsupportedSampleRate) {
		t.Errorf("32000 Hz: got %v, want ErrUnsupportedSampleRate", err)
	}
	if _, err := opus.NewDecoder(32000, 3000); !errors.Is(err, codec.ErrUnsupportedSampleRate) {
		t.Errorf("decoder at 32000 Hz: got %v, want ErrUnsupportedSampleRate", err)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	enc, err := opus.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := opus.NewDecoder(16000, 3000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	packet := make([]int16, 320)
	for i := range packet {
		packet[i] = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	for p := 0; p < 10; p++ {
		record, err := enc.EncodeRaw(packet)
		if err != nil {
			t.Fatalf("EncodeRaw packet %d: %v", p, err)
		}
		if len(record) != codec.NumFeatures {
			t.Fatalf("packet %d: record length %d, want %d", p, len(record), codec.NumFeatures)
		}
		if err := dec.SetEncodedFeatures(record); err != nil {
			t.Fatalf("SetEncodedFeatures packet %d: %v", p, err)
		}
		samples, err := dec.DecodeSamples(320)
		if err != nil {
			t.Fatalf("DecodeSamples packet %d: %v", p, err)
		}
		if len(samples) != 320 {
			t.Fatalf("packet %d: decoded %d samples, want 320", p, len(samples))
		}
	}
}

func TestEncodeRaw_WrongPacketLength_ReturnsError(t *testing.T) {
	enc, err := opus.NewEncoder(16000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if _, err := enc.EncodeRaw(make([]int16, 100)); !errors.Is(err, codec.ErrPacketLength) {
		t.Errorf("got %v, want ErrPacketLength", err)
	}
}

func TestDecodeSamples_WithheldRecord_RunsConcealment(t *testing.T) {
	enc, err := opus.NewEncoder(8000, 3000, false)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	dec, err := opus.NewDecoder(8000, 3000)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	packet := make([]int16, 160)
	for i := range packet {
		packet[i] = int16(8000 * math.Sin(2*math.Pi*300*float64(i)/8000))
	}
	record, err := enc.EncodeRaw(packet)
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}
	if err := dec.SetEncodedFeatures(record); err != nil {
		t.Fatalf("SetEncodedFeatures: %v", err)
	}
	if _, err := dec.DecodeSamples(160); err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}

	// No record installed: the decoder must fill the gap itself.
	samples, err := dec.DecodeSamples(160)
	if err != nil {
		t.Fatalf("concealed DecodeSamples: %v", err)
	}
	if len(samples) != 160 {
		t.Fatalf("concealed decode produced %d samples, want 160", len(samples))
	}
}

func TestEncoder_DTXRecordsStayParseable(t *testing.T) {
	enc, err := opus.NewEncoder(16000, 3000, true)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	silent := make([]int16, 320)
	dtxRecords := 0
	for p := 0; p < 100; p++ {
		record, err := enc.EncodeRaw(silent)
		if err != nil {
			t.Fatalf("EncodeRaw packet %d: %v", p, err)
		}
		packet, err := opus.UnpackRecord(record)
		if err != nil {
			t.Fatalf("UnpackRecord packet %d: %v", p, err)
		}
		if packet == nil {
			dtxRecords++
		}
	}
	t.Logf("%d of 100 silent packets collapsed to DTX records", dtxRecords)
}
