package jsfe

import (
	"strconv"

	"github.com/pkg/errors"
)

// Atom is an interned handle for a string or symbol: a 32-bit integer
// where the high bit tags "integer-literal string" atoms (array indices
// stored without ever touching the table) from ordinary indexed atoms.
type Atom uint32

// AtomNull is the sentinel atom. It is never refcounted.
const AtomNull Atom = 0

// taggedIntBit marks an Atom as a tagged unsigned-32-bit integer atom
// rather than an index into AtomTable.atoms.
const taggedIntBit = uint32(1) << 31

// MaxAtoms bounds the table; crossing it is a resource error.
const MaxAtoms = 1<<30 - 1

// AtomKind discriminates what an indexed atom's backing string represents.
type AtomKind uint8

const (
	AtomKindString AtomKind = iota
	AtomKindGlobalSymbol
	AtomKindSymbol  // anonymous Symbol()
	AtomKindPrivate // #name
)

// AtomFromUint32 returns the tagged-int atom representing n: for
// any unsigned 32-bit n, new_atom(decimal(n), STRING) returns this value.
func AtomFromUint32(n uint32) Atom {
	return Atom(n | taggedIntBit)
}

// IsTaggedInt reports whether a is a tagged-integer atom.
func (a Atom) IsTaggedInt() bool {
	return uint32(a)&taggedIntBit != 0
}

// IntValue returns the integer a tagged-int atom represents, and ok=true;
// otherwise ok=false.
func (a Atom) IntValue() (uint32, bool) {
	if !a.IsTaggedInt() {
		return 0, false
	}
	return uint32(a) &^ taggedIntBit, true
}

// atomEntry is one slot of AtomTable.atoms. Free slots thread a singly
// linked free list via freeNext (-1 terminates); this replaces the
// spec's C-style tagged-pointer encoding of the free list (low bit set =
// free, high bits = next index) since Go has no reason to bit-pack a
// struct field to save 4 bytes per slot — see DESIGN.md.
type atomEntry struct {
	str      *StrValue
	kind     AtomKind
	hash     uint32
	hashNext int32 // next index in this hash bucket's chain, -1 = none
	refCount int32 // -1 for predefined/sticky atoms
	free     bool
	freeNext int32
}

// AtomTable interns strings and small integers into stable Atom handles.
// It holds a dynamic array of entries, an open-chained hash of bucket
// heads, a free list, and resize bookkeeping.
type AtomTable struct {
	atoms           []atomEntry
	hash            []int32 // bucket -> first atom index, or -1
	hashSizeLog2    uint
	count           int // live, non-sticky atoms
	resizeThreshold int
	freeHead        int32 // -1 = empty
	atomEnd         int   // index one past the last predefined atom
}

// predefinedAtomNames is the fixed prefix of well-known property names,
// keywords and symbol descriptions loaded once at table creation. It is a
// representative rather than exhaustive list: enough for the parser's
// own needs (keyword recognition happens in the scanner against a
// separate static map, not through this table) plus the well-known
// property names the emitter and class/field machinery reference by name.
var predefinedAtomNames = []string{
	"", // ATOM_NULL sentinel: atoms[0], a sticky empty string
	"length", "prototype", "constructor", "name", "message", "stack",
	"arguments", "this", "new.target", "home_object", "eval", "Symbol.iterator",
	"Symbol.asyncIterator", "Symbol.hasInstance", "Symbol.toPrimitive",
	"Symbol.toStringTag", "__proto__", "value", "done", "next", "return", "throw",
	"get", "set", "writable", "enumerable", "configurable", "default", "undefined",
	"null", "true", "false", "NaN", "Infinity", "globalThis", "_default_", "_with_",
	"_var_", "_arg_var_", "async", "of", "yield", "await", "static", "target",
}

// NewAtomTable creates a table with the predefined atoms loaded and
// sticky (no refcounting).
func NewAtomTable() *AtomTable {
	t := &AtomTable{
		hashSizeLog2:    8, // 256 buckets minimum
		resizeThreshold: 2 * 256,
		freeHead:        -1,
	}
	t.hash = make([]int32, 1<<t.hashSizeLog2)
	for i := range t.hash {
		t.hash[i] = -1
	}
	for _, name := range predefinedAtomNames {
		if _, err := t.internPredefined(name, AtomKindString); err != nil {
			panic(errors.Wrap(err, "jsfe: failed to load predefined atoms"))
		}
	}
	t.atomEnd = len(t.atoms)
	return t
}

// AtomEnd returns the index one past the last predefined atom; atoms
// below it are sticky constants.
func (t *AtomTable) AtomEnd() int { return t.atomEnd }

func (t *AtomTable) hashSize() uint32 { return 1 << t.hashSizeLog2 }

// rollingHash implements an FNV-like rolling hash:
// h = h*263 + c over the code units of s, width-agnostic since Go strings
// are already a byte sequence; the low bits of the mask are what matter.
func rollingHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*263 + uint32(s[i])
	}
	return h & 0x3FFFFFFF // low 30 bits, top two reserved
}

func (t *AtomTable) bucketFor(h uint32) uint32 {
	return h & (t.hashSize() - 1)
}

// internPredefined inserts name unconditionally (used only at table
// construction, where dedup against an as-yet-empty hash is trivially
// correct) and marks the resulting atom sticky.
func (t *AtomTable) internPredefined(name string, kind AtomKind) (Atom, error) {
	h := rollingHash(name)
	idx, err := t.allocSlot()
	if err != nil {
		return AtomNull, err
	}
	t.atoms[idx] = atomEntry{
		str:      newLatin1OrWideString(name),
		kind:     kind,
		hash:     h,
		hashNext: -1,
		refCount: -1, // sticky
	}
	b := t.bucketFor(h)
	t.atoms[idx].hashNext = t.hash[b]
	t.hash[b] = int32(idx)
	return Atom(idx), nil
}

// NewAtom interns source under kind. AtomKindString and
// AtomKindGlobalSymbol atoms with identical content and kind are
// deduplicated (refcount bumped); AtomKindSymbol and AtomKindPrivate
// atoms are always created fresh, never deduplicated by content. If source is the canonical decimal
// form of an unsigned 32-bit integer and kind is AtomKindString, the
// tagged-int atom is returned instead of a table entry.
func (t *AtomTable) NewAtom(source string, kind AtomKind) (Atom, error) {
	if kind == AtomKindString {
		if n, ok := canonicalUint32(source); ok {
			return AtomFromUint32(n), nil
		}
	}
	h := rollingHash(source)
	if kind == AtomKindString || kind == AtomKindGlobalSymbol {
		if a, ok := t.lookup(source, kind, h); ok {
			t.Ref(a)
			return a, nil
		}
	}
	return t.insert(source, kind, h)
}

// canonicalUint32 reports whether s is exactly the canonical decimal
// rendering of some uint32 n (no leading zero unless s == "0", no sign,
// no leading/trailing whitespace).
func canonicalUint32(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func (t *AtomTable) lookup(source string, kind AtomKind, h uint32) (Atom, bool) {
	b := t.bucketFor(h)
	for i := t.hash[b]; i != -1; i = t.atoms[i].hashNext {
		e := &t.atoms[i]
		if e.free || e.kind != kind || e.hash != h {
			continue
		}
		if e.str.AsUTF8String() == source {
			return Atom(i), true
		}
	}
	return AtomNull, false
}

func (t *AtomTable) insert(source string, kind AtomKind, h uint32) (Atom, error) {
	if t.count >= t.resizeThreshold {
		if err := t.resize(); err != nil {
			return AtomNull, err
		}
	}
	idx, err := t.allocSlot()
	if err != nil {
		return AtomNull, err
	}
	t.atoms[idx] = atomEntry{
		str:      newLatin1OrWideString(source),
		kind:     kind,
		hash:     h,
		hashNext: -1,
		refCount: 1,
	}
	b := t.bucketFor(h)
	t.atoms[idx].hashNext = t.hash[b]
	t.hash[b] = int32(idx)
	t.count++
	return Atom(idx), nil
}

func (t *AtomTable) allocSlot() (int, error) {
	if t.freeHead != -1 {
		idx := t.freeHead
		t.freeHead = t.atoms[idx].freeNext
		return int(idx), nil
	}
	if len(t.atoms) >= MaxAtoms {
		return 0, errors.New("jsfe: too many atoms")
	}
	t.atoms = append(t.atoms, atomEntry{})
	return len(t.atoms) - 1, nil
}

// resize doubles the hash table and rehashes every live entry, preserving
// every (content -> atom) mapping.
func (t *AtomTable) resize() error {
	t.hashSizeLog2++
	t.resizeThreshold = 2 * int(t.hashSize())
	t.hash = make([]int32, t.hashSize())
	for i := range t.hash {
		t.hash[i] = -1
	}
	for i := range t.atoms {
		e := &t.atoms[i]
		if e.free {
			continue
		}
		b := t.bucketFor(e.hash)
		e.hashNext = t.hash[b]
		t.hash[b] = int32(i)
	}
	return nil
}

// Ref increments an atom's refcount. Sticky (predefined) atoms are a
// no-op.
func (t *AtomTable) Ref(a Atom) {
	if a.IsTaggedInt() || a == AtomNull {
		return
	}
	idx := int(a)
	if idx >= len(t.atoms) {
		return
	}
	e := &t.atoms[idx]
	if e.refCount < 0 {
		return // sticky
	}
	e.refCount++
}

// Unref decrements an atom's refcount, freeing the slot (and unlinking it
// from its hash chain) when it reaches zero. Sticky atoms are a no-op.
func (t *AtomTable) Unref(a Atom) {
	if a.IsTaggedInt() || a == AtomNull {
		return
	}
	idx := int(a)
	if idx >= len(t.atoms) {
		return
	}
	e := &t.atoms[idx]
	if e.refCount < 0 {
		return // sticky
	}
	e.refCount--
	if e.refCount > 0 {
		return
	}
	t.unlink(idx)
	t.count--
	t.atoms[idx] = atomEntry{free: true, freeNext: t.freeHead, hashNext: -1}
	t.freeHead = int32(idx)
}

func (t *AtomTable) unlink(idx int) {
	e := &t.atoms[idx]
	b := t.bucketFor(e.hash)
	cur := t.hash[b]
	if cur == int32(idx) {
		t.hash[b] = e.hashNext
		return
	}
	for cur != -1 {
		next := &t.atoms[cur]
		if next.hashNext == int32(idx) {
			next.hashNext = e.hashNext
			return
		}
		cur = next.hashNext
	}
}

// Count returns the number of live, non-sticky atoms (symbols included).
func (t *AtomTable) Count() int { return t.count }

// ToString returns the string value an atom denotes. For tagged-int
// atoms, a fresh decimal StrValue is materialized; for table atoms, the
// stored string is returned (a borrow: callers must not assume exclusive
// ownership).
func (t *AtomTable) ToString(a Atom) *StrValue {
	if n, ok := a.IntValue(); ok {
		return newLatin1OrWideString(strconv.FormatUint(uint64(n), 10))
	}
	idx := int(a)
	if idx < 0 || idx >= len(t.atoms) || t.atoms[idx].free {
		return newLatin1OrWideString("")
	}
	return t.atoms[idx].str
}

// GetStrDebug renders a for debugging, truncated to max bytes of UTF-8.
func (t *AtomTable) GetStrDebug(a Atom, max int) string {
	s := t.ToString(a).ToUTF8(false)
	if len(s) > max {
		return string(s[:max])
	}
	return string(s)
}

// Kind returns the AtomKind of a table atom; tagged-int atoms report
// AtomKindString.
func (t *AtomTable) Kind(a Atom) AtomKind {
	if a.IsTaggedInt() {
		return AtomKindString
	}
	idx := int(a)
	if idx < 0 || idx >= len(t.atoms) {
		return AtomKindString
	}
	return t.atoms[idx].kind
}

// NewSymbol creates a fresh, never-deduplicated symbol atom. description
// is stored for debugging/toString only.
func (t *AtomTable) NewSymbol(description string, private bool) (Atom, error) {
	kind := AtomKindSymbol
	if private {
		kind = AtomKindPrivate
	}
	return t.insert(description, kind, rollingHash(description)+uint32(len(t.atoms)))
}
