package bridge

import (
	"fmt"

	"github.com/colorfulnotion/evmbridge/bridgeerrors"
	"github.com/colorfulnotion/evmbridge/felt"
)

const opDecodeSegmented = "decode_segmented"

type SegmentKind uint8

const (
	SegmentFelt SegmentKind = iota
	SegmentFeltArray
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentFelt:
		return "Felt"
	case SegmentFeltArray:
		return "FeltArray"
	default:
		return fmt.Sprintf("SegmentKind(%d)", uint8(k))
	}
}

// Segment is one decoded value of a segmented result.
type Segment struct {
	Kind   SegmentKind
	Value  felt.Felt
	Values []felt.Felt
}

func FeltSegment(v felt.Felt) Segment { return Segment{Kind: SegmentFelt, Value: v} }

func ArraySegment(vs []felt.Felt) Segment { return Segment{Kind: SegmentFeltArray, Values: vs} }

// Bytes decodes an array segment one byte per element.
func (s Segment) Bytes(lossy bool) ([]byte, error) {
	if s.Kind != SegmentFeltArray {
		return nil, fmt.Errorf("segment is %s, not FeltArray", s.Kind)
	}
	return FeltsToBytes(s.Values, lossy)
}

// Schema is a versioned description of the segments an entrypoint returns.
//
// Wire grammar, version 1:
//
//	result  = count segment{count}
//	segment = value | length value{length}
//
// count must equal len(Segments); a Felt segment is one value, a FeltArray
// segment is a length followed by that many values. Nothing may follow the
// last segment.
type Schema struct {
	Name     string
	Version  uint8
	Segments []SegmentKind
}

func (s Schema) String() string { return fmt.Sprintf("%s/v%d", s.Name, s.Version) }

// EthCallSchemaV1 is the eth_call return encoding: one byte array.
var EthCallSchemaV1 = Schema{Name: entryEthCall, Version: 1, Segments: []SegmentKind{SegmentFeltArray}}

func decodeError(schema Schema, offset int, format string, args ...interface{}) error {
	return bridgeerrors.Newf(opDecodeSegmented, bridgeerrors.ErrDecode, fmt.Sprintf("%s@%d", schema, offset), format, args...)
}

// DecodeSegmented validates felts against schema and then splits it into
// segments. Any structural problem is a DecodeError naming the offset.
func DecodeSegmented(schema Schema, felts []felt.Felt) ([]Segment, error) {
	if schema.Version != 1 {
		return nil, decodeError(schema, 0, "unsupported grammar version")
	}
	if len(felts) == 0 {
		return nil, decodeError(schema, 0, "missing segment count")
	}
	if !felts[0].IsUint64() || felts[0].Uint64() != uint64(len(schema.Segments)) {
		return nil, decodeError(schema, 0, "segment count %s, want %d", felts[0], len(schema.Segments))
	}

	// structural pass
	pos := 1
	for i, kind := range schema.Segments {
		if pos >= len(felts) {
			return nil, decodeError(schema, pos, "segment %d (%s) missing", i, kind)
		}
		switch kind {
		case SegmentFelt:
			pos++
		case SegmentFeltArray:
			l := felts[pos]
			remaining := uint64(len(felts) - pos - 1)
			if !l.IsUint64() || l.Uint64() > remaining {
				return nil, decodeError(schema, pos, "array length %s exceeds %d remaining elements", l, remaining)
			}
			pos += 1 + int(l.Uint64())
		default:
			return nil, decodeError(schema, pos, "unknown segment kind %s", kind)
		}
	}
	if pos != len(felts) {
		return nil, decodeError(schema, pos, "%d trailing elements", len(felts)-pos)
	}

	segments := make([]Segment, 0, len(schema.Segments))
	pos = 1
	for _, kind := range schema.Segments {
		if kind == SegmentFelt {
			segments = append(segments, FeltSegment(felts[pos]))
			pos++
			continue
		}
		l := int(felts[pos].Uint64())
		values := make([]felt.Felt, l)
		copy(values, felts[pos+1:pos+1+l])
		segments = append(segments, ArraySegment(values))
		pos += 1 + l
	}
	return segments, nil
}

// EncodeSegmented is the inverse of DecodeSegmented.
func EncodeSegmented(schema Schema, segments []Segment) ([]felt.Felt, error) {
	if len(segments) != len(schema.Segments) {
		return nil, fmt.Errorf("%s: %d segments, want %d", schema, len(segments), len(schema.Segments))
	}
	out := []felt.Felt{felt.FromUint64(uint64(len(segments)))}
	for i, s := range segments {
		if s.Kind != schema.Segments[i] {
			return nil, fmt.Errorf("%s: segment %d is %s, want %s", schema, i, s.Kind, schema.Segments[i])
		}
		if s.Kind == SegmentFelt {
			out = append(out, s.Value)
			continue
		}
		out = append(out, felt.FromUint64(uint64(len(s.Values))))
		out = append(out, s.Values...)
	}
	return out, nil
}
