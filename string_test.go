package jsfe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrValueLatin1RoundTrip(t *testing.T) {
	s := newLatin1OrWideString("plain ascii")
	assert.False(t, s.IsWide())
	assert.Equal(t, "plain ascii", s.AsUTF8String())
}

func TestStrValueWideRoundTrip(t *testing.T) {
	s := newLatin1OrWideString("café 中文")
	assert.True(t, s.IsWide())
	assert.Equal(t, "café 中文", s.AsUTF8String())
}

func TestFromUTF8RoundTrip(t *testing.T) {
	input := []byte("hello \xe4\xb8\xad\xe6\x96\x87")
	s := FromUTF8(input, false)
	assert.Equal(t, "hello 中文", s.AsUTF8String())
}

func TestFromUTF8AstralRoundTripsThroughSurrogatePair(t *testing.T) {
	// U+1F600 GRINNING FACE, outside the BMP: must decode to a surrogate
	// pair in the wide backing array and re-encode to the same rune.
	input := []byte("\xf0\x9f\x98\x80")
	s := FromUTF8(input, false)
	require.True(t, s.IsWide())
	require.Equal(t, 2, s.Len())
	assert.Equal(t, "\U0001F600", s.AsUTF8String())
}

func TestFromCESU8SurrogatePairInput(t *testing.T) {
	// CESU-8 pre-encodes astral code points as two 3-byte surrogate
	// sequences rather than one 4-byte UTF-8 sequence.
	r := rune(0x1F600)
	hi, lo := 0xD800+((r-0x10000)>>10), 0xDC00+((r-0x10000)&0x3FF)
	cesu := append(cesu8Surrogate(uint16(hi)), cesu8Surrogate(uint16(lo))...)

	s := FromUTF8(cesu, true)
	require.True(t, s.IsWide())
	require.Equal(t, 2, s.Len())
	assert.Equal(t, uint16(hi), s.At(0))
	assert.Equal(t, uint16(lo), s.At(1))
	assert.Equal(t, "\U0001F600", s.AsUTF8String())
}

func cesu8Surrogate(u uint16) []byte {
	var b strings.Builder
	writeCESU8Surrogate(&b, u)
	return []byte(b.String())
}

func TestStrValueToUTF8CESU8RoundTripsLoneSurrogate(t *testing.T) {
	// A lone surrogate (no pair) can arise from String.fromCharCode; CESU-8
	// output must re-emit it as its raw 3-byte surrogate encoding rather
	// than replacing it with U+FFFD.
	s := &StrValue{wide: []uint16{0xD800}}
	out := s.ToUTF8(true)
	assert.Equal(t, cesu8Surrogate(0xD800), out)
}

func TestStrValueEqualsAcrossWidths(t *testing.T) {
	narrow := newLatin1OrWideString("abc")
	wide := &StrValue{wide: []uint16{'a', 'b', 'c'}}
	assert.True(t, narrow.Equals(wide))
	assert.True(t, wide.Equals(narrow))
}

func TestStrValueCompareOrdersByCodeUnit(t *testing.T) {
	a := newLatin1OrWideString("abc")
	b := newLatin1OrWideString("abd")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(newLatin1OrWideString("abc")))
}

func TestStrValueComparePrefixOrdersShorterFirst(t *testing.T) {
	a := newLatin1OrWideString("ab")
	b := newLatin1OrWideString("abc")
	assert.Equal(t, -1, a.Compare(b))
}

func TestStrValueConcatWidensWhenEitherSideIsWide(t *testing.T) {
	narrow := newLatin1OrWideString("ab")
	wide := newLatin1OrWideString("中")
	cat := narrow.Concat(wide)
	assert.True(t, cat.IsWide())
	assert.Equal(t, "ab中", cat.AsUTF8String())
}

func TestStrValueSubstringPreservesWidth(t *testing.T) {
	s := newLatin1OrWideString("hello world")
	sub := s.Substring(6, 11)
	assert.False(t, sub.IsWide())
	assert.Equal(t, "world", sub.AsUTF8String())
}

func TestStrValueHashStableAndCached(t *testing.T) {
	s := newLatin1OrWideString("hash me")
	h1 := s.Hash()
	h2 := s.Hash()
	assert.Equal(t, h1, h2)

	other := newLatin1OrWideString("hash me")
	assert.Equal(t, h1, other.Hash(), "identical content must hash identically")
}

func TestStrValueIsEmpty(t *testing.T) {
	assert.True(t, newLatin1OrWideString("").IsEmpty())
	assert.False(t, newLatin1OrWideString("x").IsEmpty())
}
