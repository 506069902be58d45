// Package wavio loads and stores 16-bit PCM WAV files as interleaved int16
// sample buffers.
//
// Only uncompressed 16-bit PCM is supported, matching what the codec layer
// consumes. Any other encoding is rejected rather than converted.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrInvalidFile reports a stream that is not parseable RIFF/WAVE.
	ErrInvalidFile = errors.New("wavio: not a valid wav file")

	// ErrUnsupportedFormat reports a WAV encoding other than 16-bit PCM.
	ErrUnsupportedFormat = errors.New("wavio: only 16-bit PCM is supported")

	// ErrInvalidLayout reports a sample buffer whose channel count, sample
	// rate, or frame alignment is unusable.
	ErrInvalidLayout = errors.New("wavio: invalid sample layout")
)

// Audio is an interleaved 16-bit PCM buffer together with its layout.
type Audio struct {
	// Samples holds the interleaved samples. len(Samples) is always a whole
	// multiple of NumChannels.
	Samples []int16

	// NumChannels is the number of interleaved channels, at least 1.
	NumChannels int

	// SampleRateHz is the sampling rate in Hertz, positive.
	SampleRateHz int
}

// NumFrames returns the number of whole sample frames in the buffer.
func (a *Audio) NumFrames() int {
	if a.NumChannels < 1 {
		return 0
	}
	return len(a.Samples) / a.NumChannels
}

// Read loads the WAV file at path.
func Read(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom decodes a WAV stream. The reader must support seeking because
// RIFF chunks are located by offset.
func ReadFrom(rs io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}
	dec.ReadInfo()
	if dec.WavAudioFormat != 1 || dec.BitDepth != 16 {
		return nil, fmt.Errorf("%w: got format %d at %d bit",
			ErrUnsupportedFormat, dec.WavAudioFormat, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: decode pcm: %w", err)
	}
	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		return nil, fmt.Errorf("%w: channel count %d", ErrInvalidLayout, numChannels)
	}
	if len(buf.Data)%numChannels != 0 {
		return nil, fmt.Errorf("%w: %d samples do not fill whole frames of %d channels",
			ErrInvalidLayout, len(buf.Data), numChannels)
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}
	return &Audio{
		Samples:      samples,
		NumChannels:  numChannels,
		SampleRateHz: buf.Format.SampleRate,
	}, nil
}

// Info reports the sample rate and channel count of the WAV file at path
// without decoding its samples. The format checks match [Read].
func Info(path string) (sampleRateHz, numChannels int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("wavio: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, 0, ErrInvalidFile
	}
	dec.ReadInfo()
	if dec.WavAudioFormat != 1 || dec.BitDepth != 16 {
		return 0, 0, fmt.Errorf("%w: got format %d at %d bit",
			ErrUnsupportedFormat, dec.WavAudioFormat, dec.BitDepth)
	}
	return int(dec.SampleRate), int(dec.NumChans), nil
}

// Write stores samples as a 16-bit PCM WAV file at path, truncating any
// existing file.
func Write(path string, numChannels, sampleRateHz int, samples []int16) error {
	if err := validateLayout(numChannels, sampleRateHz, len(samples)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: create %s: %w", path, err)
	}
	if err := WriteTo(f, numChannels, sampleRateHz, samples); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wavio: close %s: %w", path, err)
	}
	return nil
}

// WriteTo encodes samples as a 16-bit PCM WAV stream. The writer must support
// seeking because the RIFF header is patched with final sizes on close.
func WriteTo(ws io.WriteSeeker, numChannels, sampleRateHz int, samples []int16) error {
	if err := validateLayout(numChannels, sampleRateHz, len(samples)); err != nil {
		return err
	}
	enc := wav.NewEncoder(ws, sampleRateHz, 16, numChannels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRateHz},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: write pcm: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: finalize wav: %w", err)
	}
	return nil
}

func validateLayout(numChannels, sampleRateHz, numSamples int) error {
	var errs []error
	if numChannels < 1 {
		errs = append(errs, fmt.Errorf("%w: channel count %d", ErrInvalidLayout, numChannels))
	}
	if sampleRateHz <= 0 {
		errs = append(errs, fmt.Errorf("%w: sample rate %d Hz", ErrInvalidLayout, sampleRateHz))
	}
	if numChannels >= 1 && numSamples%numChannels != 0 {
		errs = append(errs, fmt.Errorf("%w: %d samples do not fill whole frames of %d channels",
			ErrInvalidLayout, numSamples, numChannels))
	}
	return errors.Join(errs...)
}
