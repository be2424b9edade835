// Package wire implements the SLIM chunk codec: a self-delimiting,
// length-prefixed, recursively nestable list format.
package wire

import (
	"fmt"
	"strconv"
)

const (
	startChunk = '['
	endChunk   = ']'
	separator  = ':'

	// NumericLength is the fixed width of every length/count field.
	NumericLength = 6
	// NumericBlockLength is a count/length field plus its trailing separator.
	NumericBlockLength = NumericLength + 1

	nullValue = "null"
)

// Value is a SLIM wire value: either a string or a list of wire values.
type Value struct {
	str    string
	list   []Value
	isList bool
	isNull bool
}

// String builds a string-typed Value.
func String(s string) Value { return Value{str: s} }

// Null builds the wire "null" sentinel, used for an absent/empty source
// value per the chunk grammar (§4.1).
func Null() Value { return Value{isNull: true} }

// List builds a list-typed Value.
func List(items ...Value) Value { return Value{list: items, isList: true} }

// IsList reports whether v holds a list rather than a string.
func (v Value) IsList() bool { return v.isList }

// Str returns the string payload of v. Only meaningful if !v.IsList().
func (v Value) Str() string { return v.str }

// Items returns the list payload of v. Only meaningful if v.IsList().
func (v Value) Items() []Value { return v.list }

// UnpackingError is raised when a byte sequence does not conform to the
// chunk grammar. Pos is the byte offset of the offending location.
type UnpackingError struct {
	Msg string
	Pos int
}

func (e *UnpackingError) Error() string {
	return fmt.Sprintf("%s (pos %d)", e.Msg, e.Pos)
}

func unpackErr(pos int, format string, args ...interface{}) error {
	return &UnpackingError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// Encode deterministically renders v as a chunk. If v is a plain string,
// Encode returns the raw UTF-8 bytes of the string with no chunk wrapper and
// no length prefix — callers that need a top-level list should pass
// wire.List(...).
func Encode(v Value) []byte {
	return []byte(encodeValue(v))
}

func encodeValue(v Value) string {
	if v.isList {
		return encodeList(v.list)
	}
	return v.str
}

func encodeList(items []Value) string {
	parts := make([]string, 0, len(items)+1)
	parts = append(parts, numeric(len(items)))
	for _, item := range items {
		parts = append(parts, encodeItem(item))
	}
	out := string(startChunk)
	for _, p := range parts {
		out += p + string(separator)
	}
	return out + string(endChunk)
}

// encodeItem renders one list element as LLLLLL:payload. A Value built with
// Null() carries the wire "null" sentinel verbatim; every other string value
// (including "") is written byte-for-byte so decode(encode(x)) == x holds
// for every string and list value, per the codec's round-trip law. A Null()
// item decodes back as the plain string "null".
func encodeItem(v Value) string {
	var payload string
	switch {
	case v.isList:
		payload = encodeList(v.list)
	case v.isNull:
		payload = nullValue
	default:
		payload = v.str
	}
	return fmt.Sprintf("%s%s%s", numeric(len([]byte(payload))), string(separator), payload)
}

func numeric(n int) string {
	return fmt.Sprintf("%0*d", NumericLength, n)
}

// Decode parses a chunk (as produced by encoding a wire.List(...)) back into
// a Value. It fails with *UnpackingError on any framing violation.
func Decode(data []byte) (Value, error) {
	v, pos, err := decodeChunk(data, 0)
	if err != nil {
		return Value{}, err
	}
	if pos != len(data) {
		return Value{}, unpackErr(pos, "trailing bytes after closing %q", string(endChunk))
	}
	return v, nil
}

func decodeChunk(data []byte, start int) (Value, int, error) {
	if start >= len(data) || data[start] != startChunk {
		return Value{}, start, unpackErr(start, "missing leading %q", string(startChunk))
	}
	pos := start + 1

	count, pos, err := readNumeric(data, pos)
	if err != nil {
		return Value{}, pos, err
	}
	pos, err = expectSeparator(data, pos)
	if err != nil {
		return Value{}, pos, err
	}

	items := make([]Value, 0, count)
	for i := 0; i < count; i++ {
		var item Value
		item, pos, err = decodeItem(data, pos)
		if err != nil {
			return Value{}, pos, err
		}
		items = append(items, item)
	}

	if pos >= len(data) || data[pos] != endChunk {
		return Value{}, pos, unpackErr(pos, "missing trailing %q", string(endChunk))
	}
	pos++

	return List(items...), pos, nil
}

func decodeItem(data []byte, pos int) (Value, int, error) {
	length, pos, err := readNumeric(data, pos)
	if err != nil {
		return Value{}, pos, err
	}
	pos, err = expectSeparator(data, pos)
	if err != nil {
		return Value{}, pos, err
	}
	if pos+length > len(data) {
		return Value{}, pos, unpackErr(pos, "declared length %d runs past buffer", length)
	}
	payload := data[pos : pos+length]
	pos += length

	pos, err = expectSeparator(data, pos)
	if err != nil {
		return Value{}, pos, err
	}

	if len(payload) > 0 && payload[0] == startChunk {
		nested, _, err := decodeChunk(payload, 0)
		if err != nil {
			return Value{}, pos, err
		}
		return nested, pos, nil
	}
	return String(string(payload)), pos, nil
}

func readNumeric(data []byte, pos int) (int, int, error) {
	if pos+NumericLength > len(data) {
		return 0, pos, unpackErr(pos, "declared length runs past buffer reading count")
	}
	n, err := strconv.Atoi(string(data[pos : pos+NumericLength]))
	if err != nil {
		return 0, pos, unpackErr(pos, "invalid numeric field %q", string(data[pos:pos+NumericLength]))
	}
	return n, pos + NumericLength, nil
}

func expectSeparator(data []byte, pos int) (int, error) {
	if pos >= len(data) || data[pos] != separator {
		return pos, unpackErr(pos, "missing %q separator", string(separator))
	}
	return pos + 1, nil
}
