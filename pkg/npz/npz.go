// Package npz persists named 2-D float arrays in the numpy archive format: a
// zip container holding one uncompressed .npy entry per array.
//
// Values are stored as little-endian float64 in row-major order. Load accepts
// both float32 and float64 entries, so archives produced by other tools
// remain readable.
package npz

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidMode reports a save mode other than Overwrite or Append.
	ErrInvalidMode = errors.New("npz: invalid save mode")

	// ErrShape reports a shape that does not match the data, or an entry
	// that is not two-dimensional.
	ErrShape = errors.New("npz: invalid array shape")

	// ErrUnsupportedDType reports an entry whose element type is not a
	// 4- or 8-byte float.
	ErrUnsupportedDType = errors.New("npz: unsupported element type")

	// ErrEntryNotFound reports a named array missing from the archive.
	ErrEntryNotFound = errors.New("npz: entry not found")
)

// Mode selects how Save treats an existing archive at the target path.
type Mode string

const (
	// Overwrite replaces the whole archive.
	Overwrite Mode = "w"

	// Append keeps the existing entries, replacing any entry with the same
	// name. A missing archive is created.
	Append Mode = "a"
)

// IsValid reports whether m is a known save mode.
func (m Mode) IsValid() bool {
	switch m {
	case Overwrite, Append:
		return true
	}
	return false
}

type archiveEntry struct {
	name string
	data []byte
}

// Save writes data as the array entry name with shape [rows, cols] into the
// archive at path. The archive is assembled in memory and written in one
// step, so a failed save leaves any existing file untouched.
func Save(path, name string, data []float32, rows, cols int, mode Mode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if rows < 0 || cols < 0 || rows*cols != len(data) {
		return fmt.Errorf("%w: [%d, %d] does not hold %d values", ErrShape, rows, cols, len(data))
	}

	npy, err := encodeArray(data, rows, cols)
	if err != nil {
		return err
	}

	entry := name + ".npy"
	var kept []archiveEntry
	if mode == Append {
		kept, err = readOtherEntries(path, entry)
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range kept {
		if err := writeEntry(zw, e.name, e.data); err != nil {
			return err
		}
	}
	if err := writeEntry(zw, entry, npy); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("npz: finalize archive: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("npz: write %s: %w", path, err)
	}
	return nil
}

// Load reads the array entry name from the archive at path, returning the
// flattened row-major values and the shape.
func Load(path, name string) (data []float32, rows, cols int, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("npz: open %s: %w", path, err)
	}
	defer zr.Close()

	entry := name + ".npy"
	for _, zf := range zr.File {
		if zf.Name != entry {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, 0, 0, fmt.Errorf("npz: open entry %q: %w", entry, err)
		}
		defer rc.Close()
		return readArray(rc, entry)
	}
	return nil, 0, 0, fmt.Errorf("%w: %q in %s", ErrEntryNotFound, name, path)
}

func readArray(r io.Reader, entry string) ([]float32, int, int, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("npz: read entry %q: %w", entry, err)
	}
	shape := nr.Header.Descr.Shape
	if len(shape) != 2 {
		return nil, 0, 0, fmt.Errorf("%w: entry %q has shape %v, want 2 dimensions",
			ErrShape, entry, shape)
	}
	rows, cols := shape[0], shape[1]
	if rows == 0 || cols == 0 {
		return nil, rows, cols, nil
	}

	dtype := nr.Header.Descr.Type
	switch {
	case strings.HasSuffix(dtype, "f4"):
		data := make([]float32, rows*cols)
		if err := nr.Read(&data); err != nil {
			return nil, 0, 0, fmt.Errorf("npz: read entry %q: %w", entry, err)
		}
		return data, rows, cols, nil
	case strings.HasSuffix(dtype, "f8"):
		var m mat.Dense
		if err := nr.Read(&m); err != nil {
			return nil, 0, 0, fmt.Errorf("npz: read entry %q: %w", entry, err)
		}
		data := make([]float32, rows*cols)
		for i := range rows {
			for j := range cols {
				data[i*cols+j] = float32(m.At(i, j))
			}
		}
		return data, rows, cols, nil
	default:
		return nil, 0, 0, fmt.Errorf("%w: entry %q has dtype %q", ErrUnsupportedDType, entry, dtype)
	}
}

func encodeArray(data []float32, rows, cols int) ([]byte, error) {
	var buf bytes.Buffer
	if rows == 0 || cols == 0 {
		if err := writeDegenerateArray(&buf, rows, cols); err != nil {
			return nil, fmt.Errorf("npz: encode array: %w", err)
		}
		return buf.Bytes(), nil
	}
	vals := make([]float64, len(data))
	for i, v := range data {
		vals[i] = float64(v)
	}
	if err := npyio.Write(&buf, mat.NewDense(rows, cols, vals)); err != nil {
		return nil, fmt.Errorf("npz: encode array: %w", err)
	}
	return buf.Bytes(), nil
}

// writeDegenerateArray emits a version 1.0 npy header with no payload.
// mat.Dense cannot represent a zero-row or zero-column matrix, so empty
// shapes are assembled by hand.
func writeDegenerateArray(w io.Writer, rows, cols int) error {
	meta := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	if pad := 64 - (10+len(meta)+1)%64; pad < 64 {
		meta += strings.Repeat(" ", pad)
	}
	meta += "\n"

	hdr := make([]byte, 0, 10+len(meta))
	hdr = append(hdr, 0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0)
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(len(meta)))
	hdr = append(hdr, meta...)
	_, err := w.Write(hdr)
	return err
}

func readOtherEntries(path, skip string) ([]archiveEntry, error) {
	zr, err := zip.OpenReader(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("npz: open %s: %w", path, err)
	}
	defer zr.Close()

	var kept []archiveEntry
	for _, zf := range zr.File {
		if zf.Name == skip {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("npz: open entry %q: %w", zf.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("npz: read entry %q: %w", zf.Name, err)
		}
		kept = append(kept, archiveEntry{name: zf.Name, data: data})
	}
	return kept, nil
}

// writeEntry stores data uncompressed, matching numpy's default container
// layout.
func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("npz: create entry %q: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("npz: write entry %q: %w", name, err)
	}
	return nil
}
