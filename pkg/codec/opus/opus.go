// Package opus implements the codec interfaces over the libopus bindings.
//
// Each 20 ms sample packet is encoded to one Opus packet, whose bytes are
// packed into a fixed-length feature record: record[0] holds the packet byte
// count, record[1..n] hold the byte values, and the remainder is zero. Byte
// values survive the float32 representation exactly, so the packing is
// lossless. A zero-length record marks a DTX pause.
//
// Decoding a withheld or DTX record goes through the Opus packet-loss
// concealment path instead of the normal decode call.
//
// Opus does not operate at 32 kHz, so of the supported stream rates only
// 8, 16 and 48 kHz are accepted here.
package opus

import (
	"fmt"
	"math"

	"gopkg.in/hraban/opus.v2"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

// maxPacketBytes is the largest Opus packet a record can carry.
const maxPacketBytes = codec.NumFeatures - 1

// minVoicedPacketBytes is the smallest packet Opus emits for actual audio;
// anything shorter signals a DTX pause.
const minVoicedPacketBytes = 3

// Encoder wraps an Opus encoder behind the fixed record framing.
type Encoder struct {
	enc          *opus.Encoder
	sampleRateHz int
	bitrate      int
	hop          int
	buf          []byte
}

// NewEncoder creates an Opus-backed encoder. DTX lets silent stretches
// collapse into empty records.
func NewEncoder(sampleRateHz, bitrate int, enableDTX bool) (*Encoder, error) {
	if err := validateRate(sampleRateHz, bitrate); err != nil {
		return nil, err
	}
	enc, err := opus.NewEncoder(sampleRateHz, codec.NumChannels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opus: create encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("opus: set bitrate %d: %w", bitrate, err)
	}
	if err := enc.SetDTX(enableDTX); err != nil {
		return nil, fmt.Errorf("opus: set dtx: %w", err)
	}
	return &Encoder{
		enc:          enc,
		sampleRateHz: sampleRateHz,
		bitrate:      bitrate,
		hop:          codec.SamplesPerPacket(sampleRateHz),
		buf:          make([]byte, 4000),
	}, nil
}

// EncodeRaw encodes one packet of samples into a feature record.
func (e *Encoder) EncodeRaw(packet []int16) ([]float32, error) {
	if len(packet) != e.hop {
		return nil, fmt.Errorf("opus: encode: %w: got %d samples, want %d",
			codec.ErrPacketLength, len(packet), e.hop)
	}
	n, err := e.enc.Encode(packet, e.buf)
	if err != nil {
		return nil, fmt.Errorf("opus: encode: %w", err)
	}
	if n < minVoicedPacketBytes {
		// DTX pause.
		return PackRecord(nil)
	}
	return PackRecord(e.buf[:n])
}

// SampleRateHz returns the encoder's sample rate in Hertz.
func (e *Encoder) SampleRateHz() int { return e.sampleRateHz }

// NumChannels returns codec.NumChannels.
func (e *Encoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns the configured bitrate in bits per second.
func (e *Encoder) Bitrate() int { return e.bitrate }

// FrameRate returns codec.FrameRate.
func (e *Encoder) FrameRate() int { return codec.FrameRate }

// Ensure Encoder implements codec.Encoder at compile time.
var _ codec.Encoder = (*Encoder)(nil)

// Decoder wraps an Opus decoder behind the fixed record framing.
type Decoder struct {
	dec          *opus.Decoder
	sampleRateHz int
	bitrate      int
	hop          int

	pending    []byte
	hasPending bool
}

// NewDecoder creates an Opus-backed decoder.
func NewDecoder(sampleRateHz, bitrate int) (*Decoder, error) {
	if err := validateRate(sampleRateHz, bitrate); err != nil {
		return nil, err
	}
	dec, err := opus.NewDecoder(sampleRateHz, codec.NumChannels)
	if err != nil {
		return nil, fmt.Errorf("opus: create decoder: %w", err)
	}
	return &Decoder{
		dec:          dec,
		sampleRateHz: sampleRateHz,
		bitrate:      bitrate,
		hop:          codec.SamplesPerPacket(sampleRateHz),
	}, nil
}

// SetEncodedFeatures validates and installs one record for the next
// DecodeSamples call.
func (d *Decoder) SetEncodedFeatures(features []float32) error {
	packet, err := UnpackRecord(features)
	if err != nil {
		return err
	}
	d.pending = packet
	d.hasPending = true
	return nil
}

// DecodeSamples produces the next packet of samples. Withheld and DTX
// records run packet-loss concealment.
func (d *Decoder) DecodeSamples(numSamples int) ([]int16, error) {
	if numSamples != d.hop {
		return nil, fmt.Errorf("opus: decode: %w: got %d samples, want %d",
			codec.ErrPacketLength, numSamples, d.hop)
	}
	pcm := make([]int16, numSamples)
	if !d.hasPending || len(d.pending) == 0 {
		d.hasPending = false
		d.pending = nil
		if err := d.dec.DecodePLC(pcm); err != nil {
			return nil, fmt.Errorf("opus: conceal: %w", err)
		}
		return pcm, nil
	}

	packet := d.pending
	d.hasPending = false
	d.pending = nil
	n, err := d.dec.Decode(packet, pcm)
	if err != nil {
		return nil, fmt.Errorf("opus: decode: %w", err)
	}
	if n != numSamples {
		return nil, fmt.Errorf("opus: decode: packet holds %d samples, want %d", n, numSamples)
	}
	return pcm, nil
}

// SampleRateHz returns the decoder's sample rate in Hertz.
func (d *Decoder) SampleRateHz() int { return d.sampleRateHz }

// NumChannels returns codec.NumChannels.
func (d *Decoder) NumChannels() int { return codec.NumChannels }

// Bitrate returns the configured bitrate in bits per second.
func (d *Decoder) Bitrate() int { return d.bitrate }

// FrameRate returns codec.FrameRate.
func (d *Decoder) FrameRate() int { return codec.FrameRate }

// Ensure Decoder implements codec.Decoder at compile time.
var _ codec.Decoder = (*Decoder)(nil)

// PackRecord lays an Opus packet out as a fixed-length feature record. A nil
// or empty packet produces the DTX record.
func PackRecord(packet []byte) ([]float32, error) {
	if len(packet) > maxPacketBytes {
		return nil, fmt.Errorf("opus: %w: packet of %d bytes exceeds record capacity %d",
			codec.ErrFeatureLength, len(packet), maxPacketBytes)
	}
	record := make([]float32, codec.NumFeatures)
	record[0] = float32(len(packet))
	for i, b := range packet {
		record[i+1] = float32(b)
	}
	return record, nil
}

// UnpackRecord recovers the Opus packet bytes from a feature record. The
// DTX record yields a nil packet.
func UnpackRecord(record []float32) ([]byte, error) {
	if len(record) != codec.NumFeatures {
		return nil, fmt.Errorf("opus: %w: got %d values, want %d",
			codec.ErrFeatureLength, len(record), codec.NumFeatures)
	}
	n, ok := recordByte(record[0], maxPacketBytes)
	if !ok {
		return nil, fmt.Errorf("opus: %w: invalid packet length %g",
			codec.ErrFeatureValue, record[0])
	}
	if n == 0 {
		return nil, nil
	}
	packet := make([]byte, n)
	for i := 0; i < n; i++ {
		b, ok := recordByte(record[i+1], 255)
		if !ok {
			return nil, fmt.Errorf("opus: %w: value %g at index %d is not a byte",
				codec.ErrFeatureValue, record[i+1], i+1)
		}
		packet[i] = byte(b)
	}
	return packet, nil
}

// recordByte reads a non-negative integer up to limit out of a record value.
func recordByte(v float32, limit int) (int, bool) {
	f := float64(v)
	if math.IsNaN(f) || f < 0 || f > float64(limit) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func validateRate(sampleRateHz, bitrate int) error {
	if err := codec.ValidateCreation("opus", sampleRateHz, codec.NumChannels, bitrate); err != nil {
		return err
	}
	if sampleRateHz == 32000 {
		return fmt.Errorf("opus: %w: opus does not operate at 32000 Hz",
			codec.ErrUnsupportedSampleRate)
	}
	return nil
}
