package jsfe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisasmRendersAtomTextWhenTableProvided(t *testing.T) {
	at := NewAtomTable()
	name, err := at.NewAtom("greeting", AtomKindString)
	require.NoError(t, err)

	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitAtom(OpGetVar, name)
	e.EmitOp(OpReturnUndef)

	asm := fd.Disasm(at)
	assert.Contains(t, asm, `get_var "greeting"`)
}

func TestDisasmRendersRawIndexWithoutAtomTable(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitAtom(OpGetVar, Atom(5))
	e.EmitOp(OpReturnUndef)

	asm := fd.Disasm(nil)
	assert.Contains(t, asm, "atom#5")
}

func TestDisasmIndentsEnterLeaveScope(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitEnterScope(1)
	e.EmitOp(OpReturnUndef)
	e.EmitLeaveScope(1)

	asm := fd.Disasm(nil)
	lines := strings.Split(strings.TrimRight(asm, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.False(t, strings.HasPrefix(lines[0], "  "))
	assert.True(t, strings.HasPrefix(lines[1], "  "), "instructions between enter/leave scope render indented")
	assert.False(t, strings.HasPrefix(lines[2], "  "), "leave_scope itself dedents before printing")
}

func TestDisasmPushConstShowsLiteralValue(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitPushConst("hello")
	e.EmitOp(OpReturnUndef)

	asm := fd.Disasm(nil)
	assert.Contains(t, asm, "cpool[0]=hello")
}

func TestDisasmTreeListsNestedFunctionsDepthFirst(t *testing.T) {
	at := NewAtomTable()
	outerName, err := at.NewAtom("outer", AtomKindString)
	require.NoError(t, err)
	innerName, err := at.NewAtom("inner", AtomKindString)
	require.NoError(t, err)

	outer := NewFunctionDef(nil, FuncKindTopLevel)
	outer.Name = outerName
	NewEmitter(outer).EmitOp(OpReturnUndef)

	inner := NewFunctionDef(outer, FuncKindNormal)
	inner.Name = innerName
	NewEmitter(inner).EmitOp(OpReturnUndef)

	tree := outer.DisasmTree(at)
	assert.Contains(t, tree, `function "outer"`)
	assert.Contains(t, tree, `function "inner"`)
	assert.True(t, strings.Index(tree, `"outer"`) < strings.Index(tree, `"inner"`), "depth-first: the outer header precedes the nested one")
}

func TestDisasmTreeAnonymousFunctionLabel(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	NewEmitter(fd).EmitOp(OpReturnUndef)
	tree := fd.DisasmTree(nil)
	assert.Contains(t, tree, "<anonymous>")
}
