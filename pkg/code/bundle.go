package code

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"gopkg.in/yaml.v3"
)

// Field numbers of the binary bundle.
const (
	fieldStream  protowire.Number = 1
	fieldSymbols protowire.Number = 2
)

// Binary bundles start with this magic, followed by a protobuf message with
// the raw stream as packed varints in field 1 and the symbols as repeated
// strings in field 2.
var binaryMagic = []byte("\x00mglr")

// TextBundle is the YAML form of a compiled program.
type TextBundle struct {
	// Transport-encoded raw stream.
	Stream  string   `yaml:"stream"`
	Symbols []string `yaml:"symbols"`
}

// MarshalText returns the YAML bundle of a program.
func MarshalText(p *Program) ([]byte, error) {
	return yaml.Marshal(TextBundle{Encode(p.Raw), p.Symbols})
}

// MarshalBinary returns the binary bundle of a program.
func MarshalBinary(p *Program) []byte {
	var packed []byte
	for _, v := range p.Raw {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b := append([]byte(nil), binaryMagic...)
	b = protowire.AppendTag(b, fieldStream, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	for _, sym := range p.Symbols {
		b = protowire.AppendTag(b, fieldSymbols, protowire.BytesType)
		b = protowire.AppendString(b, sym)
	}
	return b
}

// Unmarshal loads a program from either bundle form.
func Unmarshal(data []byte) (*Program, error) {
	if bytes.HasPrefix(data, binaryMagic) {
		return unmarshalBinary(data[len(binaryMagic):])
	}
	var tb TextBundle
	if err := yaml.Unmarshal(data, &tb); err != nil {
		return nil, err
	}
	raw, err := Decode(tb.Stream)
	if err != nil {
		return nil, err
	}
	return Load(raw, tb.Symbols)
}

var errBadVarint = errors.New("bad varint in stream field")

func unmarshalBinary(b []byte) (*Program, error) {
	var raw []int
	var symbols []string
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldStream && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return nil, errBadVarint
				}
				raw = append(raw, int(v))
				packed = packed[n:]
			}
		case num == fieldSymbols && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			symbols = append(symbols, s)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return Load(raw, symbols)
}
