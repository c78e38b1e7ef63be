// Package ply reads Gaussian-splat scenes stored as PLY (polygon file
// format) documents in ascii, binary_little_endian or binary_big_endian
// encoding.
package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrBadMagic          = errors.New("missing 'ply' magic line")
	ErrUnsupportedFormat = errors.New("unsupported PLY format")
	ErrNoVertexElement   = errors.New("PLY data has no 'vertex' element")
)

// Format is the body encoding declared by the header.
type Format int

const (
	FormatASCII Format = iota
	FormatBinaryLittleEndian
	FormatBinaryBigEndian
)

func (f Format) String() string {
	switch f {
	case FormatASCII:
		return "ascii"
	case FormatBinaryLittleEndian:
		return "binary_little_endian"
	case FormatBinaryBigEndian:
		return "binary_big_endian"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a header format keyword to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "ascii":
		return FormatASCII, nil
	case "binary_little_endian":
		return FormatBinaryLittleEndian, nil
	case "binary_big_endian":
		return FormatBinaryBigEndian, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ScalarType is a PLY property storage type.
type ScalarType int

const (
	Int8 ScalarType = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

// Size returns the encoded width in bytes.
func (t ScalarType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

func (t ScalarType) String() string {
	switch t {
	case Int8:
		return "char"
	case Uint8:
		return "uchar"
	case Int16:
		return "short"
	case Uint16:
		return "ushort"
	case Int32:
		return "int"
	case Uint32:
		return "uint"
	case Float32:
		return "float"
	case Float64:
		return "double"
	}
	return "unknown"
}

// parseScalarType accepts both the classic and the sized type names.
func parseScalarType(s string) (ScalarType, error) {
	switch s {
	case "char", "int8":
		return Int8, nil
	case "uchar", "uint8":
		return Uint8, nil
	case "short", "int16":
		return Int16, nil
	case "ushort", "uint16":
		return Uint16, nil
	case "int", "int32":
		return Int32, nil
	case "uint", "uint32":
		return Uint32, nil
	case "float", "float32":
		return Float32, nil
	case "double", "float64":
		return Float64, nil
	}
	return 0, fmt.Errorf("unknown property type %q", s)
}

// Property describes one column of an element. List properties carry a
// count type and an item type; scalar properties only Type.
type Property struct {
	Name      string
	Type      ScalarType
	List      bool
	CountType ScalarType
}

// Element is a named group of Count records sharing the same properties.
type Element struct {
	Name       string
	Count      int
	Properties []Property
}

// Header is the parsed PLY header.
type Header struct {
	Format   Format
	Version  string
	Comments []string
	Elements []Element
}

// Element returns the element with the given name.
func (h *Header) Element(name string) (*Element, bool) {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i], true
		}
	}
	return nil, false
}

// lineReader tracks the current line number for error reporting.
type lineReader struct {
	br   *bufio.Reader
	line int
}

func (lr *lineReader) next() (string, error) {
	s, err := lr.br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	lr.line++
	return strings.TrimRight(s, "\r\n"), nil
}

// readHeader consumes the header up to and including end_header.
func readHeader(lr *lineReader) (Header, error) {
	var h Header

	magic, err := lr.next()
	if err != nil {
		return h, fmt.Errorf("reading magic: %w", err)
	}
	if strings.TrimSpace(magic) != "ply" {
		return h, ErrBadMagic
	}

	sawFormat := false
	for {
		line, err := lr.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return h, errors.New("unexpected end of data before end_header")
			}
			return h, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) != 3 {
				return h, fmt.Errorf("malformed format line %q", line)
			}
			if h.Format, err = ParseFormat(fields[1]); err != nil {
				return h, err
			}
			h.Version = fields[2]
			sawFormat = true

		case "comment", "obj_info":
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))

		case "element":
			if len(fields) != 3 {
				return h, fmt.Errorf("malformed element line %q", line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return h, fmt.Errorf("invalid element count %q", fields[2])
			}
			h.Elements = append(h.Elements, Element{Name: fields[1], Count: n})

		case "property":
			if len(h.Elements) == 0 {
				return h, fmt.Errorf("property declared before any element: %q", line)
			}
			prop, err := parseProperty(fields)
			if err != nil {
				return h, err
			}
			el := &h.Elements[len(h.Elements)-1]
			el.Properties = append(el.Properties, prop)

		case "end_header":
			if !sawFormat {
				return h, errors.New("header has no format line")
			}
			return h, nil

		default:
			return h, fmt.Errorf("unexpected header keyword %q", fields[0])
		}
	}
}

func parseProperty(fields []string) (Property, error) {
	if len(fields) >= 2 && fields[1] == "list" {
		if len(fields) != 5 {
			return Property{}, fmt.Errorf("malformed list property %q", strings.Join(fields, " "))
		}
		ct, err := parseScalarType(fields[2])
		if err != nil {
			return Property{}, err
		}
		if ct == Float32 || ct == Float64 {
			return Property{}, fmt.Errorf("list count type must be integral, got %s", fields[2])
		}
		it, err := parseScalarType(fields[3])
		if err != nil {
			return Property{}, err
		}
		return Property{Name: fields[4], Type: it, List: true, CountType: ct}, nil
	}
	if len(fields) != 3 {
		return Property{}, fmt.Errorf("malformed property %q", strings.Join(fields, " "))
	}
	t, err := parseScalarType(fields[1])
	if err != nil {
		return Property{}, err
	}
	return Property{Name: fields[2], Type: t}, nil
}
