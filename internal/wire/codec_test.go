package wire

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTripFlatList(t *testing.T) {
	v := List(String("id1"), String("make"), String("x"), String("Fixture"))
	decoded, err := Decode(Encode(v))
	if err != nil {
		t.Fatal(err)
	}
	if !valuesEqual(v, decoded) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, v)
	}
}

func TestRoundTripNested(t *testing.T) {
	v := List(
		List(String("id1"), String("OK")),
		List(String("id2"), List(String("a"), String("b"), String(""))),
	)
	decoded, err := Decode(Encode(v))
	if err != nil {
		t.Fatal(err)
	}
	if !valuesEqual(v, decoded) {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, v)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	v := List(String("a"), List(String("b"), String("c")))
	a := Encode(v)
	b := Encode(v)
	if !bytes.Equal(a, b) {
		t.Fatal("encode is not deterministic")
	}
}

func TestByteLengthExactness(t *testing.T) {
	multiByte := "héllo wörld"
	v := List(String(multiByte))
	encoded := Encode(v)
	// Skip the "[NNNNNN:" chunk header, then the item's own length field.
	lenField := string(encoded[8 : 8+NumericLength])
	if lenField != "000013" {
		t.Fatalf("expected byte length 13 for %q, got %s", multiByte, lenField)
	}
}

func TestDecodeRejectsMissingLeadingBracket(t *testing.T) {
	_, err := Decode([]byte("000001:000003:abc:]"))
	assertUnpackingError(t, err)
}

func TestDecodeRejectsMissingTrailingBracket(t *testing.T) {
	_, err := Decode([]byte("[000001:000003:abc:"))
	assertUnpackingError(t, err)
}

func TestDecodeRejectsMissingSeparatorAfterCount(t *testing.T) {
	_, err := Decode([]byte("[000001;000003:abc:]"))
	assertUnpackingError(t, err)
}

func TestDecodeRejectsMissingSeparatorAfterItem(t *testing.T) {
	_, err := Decode([]byte("[000001:000003:abc;]"))
	assertUnpackingError(t, err)
}

func TestDecodeRejectsLengthPastEnd(t *testing.T) {
	_, err := Decode([]byte("[000001:000999:abc:]"))
	assertUnpackingError(t, err)
}

func TestDecodeDoubleTrailingBracket(t *testing.T) {
	// Mirrors spec.md scenario 6: "[000001:000003:abc:]]"
	_, err := Decode([]byte("[000001:000003:abc:]]"))
	assertUnpackingError(t, err)
}

func assertUnpackingError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an UnpackingError, got nil")
	}
	if !strings.Contains(err.Error(), "pos") {
		t.Fatalf("expected an UnpackingError-shaped message, got %q", err.Error())
	}
}

func valuesEqual(a, b Value) bool {
	if a.IsList() != b.IsList() {
		return false
	}
	if !a.IsList() {
		return a.Str() == b.Str()
	}
	ai, bi := a.Items(), b.Items()
	if len(ai) != len(bi) {
		return false
	}
	for i := range ai {
		if !valuesEqual(ai[i], bi[i]) {
			return false
		}
	}
	return true
}
