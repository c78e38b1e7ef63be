package splat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrFormat is matched by errors.Is for every FormatError.
var ErrFormat = errors.New("invalid SPLAT data")

// FormatError reports a SPLAT buffer whose length is not a whole number
// of records.
type FormatError struct {
	Len int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid SPLAT data: size %d is not a multiple of %d bytes", e.Len, RecordSize)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Count returns the number of records in a SPLAT buffer.
func Count(data []byte) (int, error) {
	if len(data)%RecordSize != 0 {
		return 0, &FormatError{Len: len(data)}
	}
	return len(data) / RecordSize, nil
}

// Serialize encodes points as contiguous SPLAT records.
func Serialize(points []PackedPoint) []byte {
	buf := make([]byte, len(points)*RecordSize)
	for i := range points {
		points[i].put(buf[i*RecordSize:])
	}
	return buf
}

// Deserialize decodes a SPLAT buffer. The length is validated before any
// record is read.
func Deserialize(data []byte) ([]PackedPoint, error) {
	n, err := Count(data)
	if err != nil {
		return nil, err
	}
	points := make([]PackedPoint, n)
	for i := range points {
		points[i].get(data[i*RecordSize:])
	}
	return points, nil
}

// MarshalBinary encodes a single record.
func (p PackedPoint) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	p.put(buf)
	return buf, nil
}

// UnmarshalBinary decodes a single record; data must be exactly RecordSize bytes.
func (p *PackedPoint) UnmarshalBinary(data []byte) error {
	if len(data) != RecordSize {
		return &FormatError{Len: len(data)}
	}
	p.get(data)
	return nil
}

func (p *PackedPoint) put(b []byte) {
	_ = b[RecordSize-1]
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(p.Position[i]))
		binary.LittleEndian.PutUint32(b[12+4*i:], math.Float32bits(p.Scale[i]))
	}
	copy(b[24:28], p.Color[:])
	copy(b[28:32], p.Rotation[:])
}

func (p *PackedPoint) get(b []byte) {
	_ = b[RecordSize-1]
	for i := 0; i < 3; i++ {
		p.Position[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		p.Scale[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[12+4*i:]))
	}
	copy(p.Color[:], b[24:28])
	copy(p.Rotation[:], b[28:32])
}

// Write streams points to w as SPLAT records and returns the number of
// bytes written.
func Write(w io.Writer, points []PackedPoint) (int64, error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	var rec [RecordSize]byte
	var n int64
	for i := range points {
		points[i].put(rec[:])
		m, err := bw.Write(rec[:])
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("failed to write SPLAT record %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush SPLAT data: %w", err)
	}
	return n, nil
}

// Read decodes every record from r.
func Read(r io.Reader) ([]PackedPoint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read SPLAT data: %w", err)
	}
	return Deserialize(data)
}

// WriteFile creates or truncates path and writes points to it.
func WriteFile(path string, points []PackedPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := Write(f, points); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads and validates a SPLAT file.
func ReadFile(path string) ([]PackedPoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SPLAT file: %w", err)
	}
	points, err := Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}
