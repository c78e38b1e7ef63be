package ply

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/ply2splat/internal/splat"
)

// DefaultReadBufferSize is the read-ahead used by LoadFile.
const DefaultReadBufferSize = 10 * 1024 * 1024

// maxPrealloc caps the up-front allocation taken from a header count so a
// corrupt header cannot force a huge allocation.
const maxPrealloc = 1 << 20

// ParseError is returned for every ingest failure. Line is the 1-based
// line of an ascii document (0 when unknown or for binary bodies).
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse PLY %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to parse PLY %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// vertex field slots, -1 means the property is not a recognized field.
const noField = -1

func fieldSlot(name string) int {
	switch name {
	case "x":
		return 0
	case "y":
		return 1
	case "z":
		return 2
	case "f_dc_0":
		return 3
	case "f_dc_1":
		return 4
	case "f_dc_2":
		return 5
	case "opacity":
		return 6
	case "scale_0":
		return 7
	case "scale_1":
		return 8
	case "scale_2":
		return 9
	case "rot_0":
		return 10
	case "rot_1":
		return 11
	case "rot_2":
		return 12
	case "rot_3":
		return 13
	default:
		return noField
	}
}

func setField(p *splat.RawPoint, slot int, v float32) {
	switch slot {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	case 2:
		p.Z = v
	case 3:
		p.FDC0 = v
	case 4:
		p.FDC1 = v
	case 5:
		p.FDC2 = v
	case 6:
		p.Opacity = v
	case 7:
		p.Scale0 = v
	case 8:
		p.Scale1 = v
	case 9:
		p.Scale2 = v
	case 10:
		p.Rot0 = v
	case 11:
		p.Rot1 = v
	case 12:
		p.Rot2 = v
	case 13:
		p.Rot3 = v
	}
}

// slots resolves the field slot for each property of el. Only scalar
// float properties bind to a field; a recognized name with any other type
// is read and dropped.
func slots(el *Element) []int {
	out := make([]int, len(el.Properties))
	for i, p := range el.Properties {
		out[i] = noField
		if el.Name == "vertex" && !p.List && p.Type == Float32 {
			out[i] = fieldSlot(p.Name)
		}
	}
	return out
}

// Load reads a PLY document from r and returns its vertex records in
// file order. source names the input in errors.
func Load(r io.Reader, source string) ([]splat.RawPoint, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	points, _, err := decode(br, source)
	return points, err
}

// LoadBytes reads a PLY document held in memory.
func LoadBytes(data []byte) ([]splat.RawPoint, error) {
	return Load(bytes.NewReader(data), "data")
}

// LoadFile reads the PLY file at path with DefaultReadBufferSize read-ahead.
func LoadFile(path string) ([]splat.RawPoint, error) {
	return LoadFileWithBuffer(path, DefaultReadBufferSize)
}

// LoadFileWithBuffer reads the PLY file at path using a read-ahead buffer
// of bufSize bytes.
func LoadFileWithBuffer(path string, bufSize int) ([]splat.RawPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Source: path, Err: fmt.Errorf("failed to open PLY file: %w", err)}
	}
	defer f.Close()
	return Load(bufio.NewReaderSize(f, bufSize), path)
}

// ReadHeader parses only the header of a PLY document.
func ReadHeader(r io.Reader, source string) (Header, error) {
	lr := &lineReader{br: bufio.NewReader(r)}
	h, err := readHeader(lr)
	if err != nil {
		return h, &ParseError{Source: source, Line: lr.line, Err: err}
	}
	return h, nil
}

func decode(br *bufio.Reader, source string) ([]splat.RawPoint, Header, error) {
	lr := &lineReader{br: br}
	h, err := readHeader(lr)
	if err != nil {
		return nil, h, &ParseError{Source: source, Line: lr.line, Err: err}
	}

	var points []splat.RawPoint
	found := false
	for i := range h.Elements {
		el := &h.Elements[i]
		var dst *[]splat.RawPoint
		if el.Name == "vertex" && !found {
			found = true
			points = make([]splat.RawPoint, 0, min(el.Count, maxPrealloc))
			dst = &points
		}

		switch h.Format {
		case FormatASCII:
			err = readASCII(lr, el, dst)
		case FormatBinaryLittleEndian:
			err = readBinary(br, binary.LittleEndian, el, dst)
		case FormatBinaryBigEndian:
			err = readBinary(br, binary.BigEndian, el, dst)
		}
		if err != nil {
			pe := &ParseError{Source: source, Err: err}
			if h.Format == FormatASCII {
				pe.Line = lr.line
			}
			return nil, h, pe
		}
	}

	if !found {
		return nil, h, &ParseError{Source: source, Err: ErrNoVertexElement}
	}
	return points, h, nil
}

// readASCII reads el.Count records, one per line. Records are appended to
// dst when it is non-nil and discarded otherwise.
func readASCII(lr *lineReader, el *Element, dst *[]splat.RawPoint) error {
	sl := slots(el)
	for rec := 0; rec < el.Count; rec++ {
		line, err := lr.next()
		for err == nil && strings.TrimSpace(line) == "" {
			line, err = lr.next()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("element %q: expected %d records, got %d", el.Name, el.Count, rec)
			}
			return err
		}

		tokens := strings.Fields(line)
		var p splat.RawPoint
		pos := 0
		for i, prop := range el.Properties {
			if !prop.List {
				if pos >= len(tokens) {
					return fmt.Errorf("element %q: missing value for %q", el.Name, prop.Name)
				}
				v, err := parseASCIIScalar(tokens[pos], prop.Type)
				if err != nil {
					return fmt.Errorf("element %q: property %q: %w", el.Name, prop.Name, err)
				}
				pos++
				if sl[i] != noField {
					setField(&p, sl[i], float32(v))
				}
				continue
			}

			if pos >= len(tokens) {
				return fmt.Errorf("element %q: missing list count for %q", el.Name, prop.Name)
			}
			n, err := parseASCIIScalar(tokens[pos], prop.CountType)
			if err != nil || n < 0 {
				return fmt.Errorf("element %q: invalid list count %q for %q", el.Name, tokens[pos], prop.Name)
			}
			pos++
			for k := 0; k < int(n); k++ {
				if pos >= len(tokens) {
					return fmt.Errorf("element %q: list %q shorter than its count", el.Name, prop.Name)
				}
				if _, err := parseASCIIScalar(tokens[pos], prop.Type); err != nil {
					return fmt.Errorf("element %q: property %q: %w", el.Name, prop.Name, err)
				}
				pos++
			}
		}
		if pos != len(tokens) {
			return fmt.Errorf("element %q: %d values on line, expected %d", el.Name, len(tokens), pos)
		}
		if dst != nil {
			*dst = append(*dst, p)
		}
	}
	return nil
}

// parseASCIIScalar parses a token as t. Float32 tokens are parsed at
// 32-bit precision so the stored value equals the literal rounded once.
func parseASCIIScalar(tok string, t ScalarType) (float64, error) {
	switch t {
	case Float32:
		return parseFloat(tok, 32)
	case Float64:
		return parseFloat(tok, 64)
	case Int8, Int16, Int32:
		v, err := strconv.ParseInt(tok, 10, t.Size()*8)
		return float64(v), err
	case Uint8, Uint16, Uint32:
		v, err := strconv.ParseUint(tok, 10, t.Size()*8)
		return float64(v), err
	}
	return 0, fmt.Errorf("unknown scalar type %d", int(t))
}

// parseFloat accepts literals outside the target range: overflow yields
// ±Inf and underflow the nearest representable value.
func parseFloat(tok string, bits int) (float64, error) {
	v, err := strconv.ParseFloat(tok, bits)
	if errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	return v, err
}

// readBinary reads el.Count fixed or list records from br.
func readBinary(br *bufio.Reader, order binary.ByteOrder, el *Element, dst *[]splat.RawPoint) error {
	sl := slots(el)
	var scratch [8]byte
	for rec := 0; rec < el.Count; rec++ {
		var p splat.RawPoint
		for i, prop := range el.Properties {
			if !prop.List {
				b := scratch[:prop.Type.Size()]
				if _, err := io.ReadFull(br, b); err != nil {
					return truncated(el, rec, err)
				}
				if sl[i] != noField {
					setField(&p, sl[i], math.Float32frombits(order.Uint32(b)))
				}
				continue
			}

			cb := scratch[:prop.CountType.Size()]
			if _, err := io.ReadFull(br, cb); err != nil {
				return truncated(el, rec, err)
			}
			n := binaryCount(cb, prop.CountType, order)
			if n < 0 {
				return fmt.Errorf("element %q record %d: negative list count for %q", el.Name, rec, prop.Name)
			}
			if _, err := br.Discard(int(n) * prop.Type.Size()); err != nil {
				return truncated(el, rec, err)
			}
		}
		if dst != nil {
			*dst = append(*dst, p)
		}
	}
	return nil
}

func binaryCount(b []byte, t ScalarType, order binary.ByteOrder) int64 {
	switch t {
	case Int8:
		return int64(int8(b[0]))
	case Uint8:
		return int64(b[0])
	case Int16:
		return int64(int16(order.Uint16(b)))
	case Uint16:
		return int64(order.Uint16(b))
	case Int32:
		return int64(int32(order.Uint32(b)))
	case Uint32:
		return int64(order.Uint32(b))
	}
	return -1
}

func truncated(el *Element, rec int, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("element %q: data ends in record %d of %d", el.Name, rec, el.Count)
	}
	return fmt.Errorf("element %q record %d: %w", el.Name, rec, err)
}
