package jsfe

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomTableInternEquivalence(t *testing.T) {
	at := NewAtomTable()

	a1, err := at.NewAtom("hello", AtomKindString)
	require.NoError(t, err)
	a2, err := at.NewAtom("hello", AtomKindString)
	require.NoError(t, err)

	assert.Equal(t, a1, a2, "identical string content must intern to the same atom")
	assert.Equal(t, "hello", at.ToString(a1).AsUTF8String())
}

func TestAtomTableDistinctContentDistinctAtoms(t *testing.T) {
	at := NewAtomTable()

	a1, err := at.NewAtom("foo", AtomKindString)
	require.NoError(t, err)
	a2, err := at.NewAtom("bar", AtomKindString)
	require.NoError(t, err)

	assert.NotEqual(t, a1, a2)
}

func TestAtomTableSymbolsNeverDedup(t *testing.T) {
	at := NewAtomTable()

	s1, err := at.NewSymbol("tag", false)
	require.NoError(t, err)
	s2, err := at.NewSymbol("tag", false)
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2, "two Symbol() calls with the same description are distinct")
}

func TestAtomTableRoundTrip(t *testing.T) {
	at := NewAtomTable()
	names := []string{"constructor", "Ω", "", "a_very_long_identifier_name_used_for_round_tripping"}
	for _, n := range names {
		a, err := at.NewAtom(n, AtomKindString)
		require.NoError(t, err)
		assert.Equal(t, n, at.ToString(a).AsUTF8String())
	}
}

func TestAtomFromUint32TaggedRoundTrip(t *testing.T) {
	at := NewAtomTable()
	a, err := at.NewAtom("42", AtomKindString)
	require.NoError(t, err)

	assert.True(t, a.IsTaggedInt(), "canonical decimal string must tag as an integer atom")
	n, ok := a.IntValue()
	require.True(t, ok)
	assert.Equal(t, uint32(42), n)
	assert.Equal(t, "42", at.ToString(a).AsUTF8String())
}

func TestAtomFromUint32RejectsNonCanonicalForms(t *testing.T) {
	at := NewAtomTable()
	for _, s := range []string{"042", "-1", "4.0", " 1", "1 "} {
		a, err := at.NewAtom(s, AtomKindString)
		require.NoError(t, err)
		assert.False(t, a.IsTaggedInt(), "%q must not tag as an integer atom", s)
	}
}

func TestAtomTableRefcountFreesSlot(t *testing.T) {
	at := NewAtomTable()
	before := at.Count()

	a, err := at.NewAtom("transient", AtomKindString)
	require.NoError(t, err)
	assert.Equal(t, before+1, at.Count())

	at.Unref(a)
	assert.Equal(t, before, at.Count())
}

func TestAtomTableRefcountSharedAcrossInterns(t *testing.T) {
	at := NewAtomTable()
	a1, err := at.NewAtom("shared", AtomKindString)
	require.NoError(t, err)
	a2, err := at.NewAtom("shared", AtomKindString)
	require.NoError(t, err)
	require.Equal(t, a1, a2)

	at.Unref(a1)
	// Still referenced once more (a2's Ref), so the content must still resolve.
	assert.Equal(t, "shared", at.ToString(a2).AsUTF8String())

	at.Unref(a2)
	assert.Equal(t, "", at.ToString(a1).AsUTF8String(), "fully unreffed atom's slot is reclaimed")
}

func TestAtomTablePredefinedAtomsAreSticky(t *testing.T) {
	at := NewAtomTable()
	lengthAtom, err := at.NewAtom("length", AtomKindString)
	require.NoError(t, err)

	before := at.Count()
	at.Unref(lengthAtom)
	assert.Equal(t, before, at.Count(), "unref of a predefined atom must be a no-op")
	assert.Equal(t, "length", at.ToString(lengthAtom).AsUTF8String())
}

func TestAtomTableResizeGrowsWithoutLosingMappings(t *testing.T) {
	at := NewAtomTable()
	startLog2 := at.hashSizeLog2

	names := make([]string, 0, 600)
	atoms := make([]Atom, 0, 600)
	for i := 0; i < 600; i++ {
		n := "resize_probe_" + strconv.Itoa(i)
		names = append(names, n)
		a, err := at.NewAtom(n, AtomKindString)
		require.NoError(t, err)
		atoms = append(atoms, a)
	}

	assert.Greater(t, at.hashSizeLog2, startLog2, "enough inserts must have triggered at least one resize")
	for i, a := range atoms {
		assert.Equal(t, names[i], at.ToString(a).AsUTF8String())
	}
}
