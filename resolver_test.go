package jsfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariablesLeavesNoPlaceholderOpcodes(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	_, err := fd.DeclareVar(Atom(100), VarKindVar)
	require.NoError(t, err)
	e.EmitScopeGetVar(Atom(100), 0)
	e.EmitScopePutVarInit(Atom(200), 0) // unbound name: global fallback
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))

	for pos := 0; pos < len(fd.Bytecode); {
		op := Opcode(fd.Bytecode[pos]) | Opcode(fd.Bytecode[pos+1])<<8
		assert.False(t, isPlaceholderOp(op), "opcode %s must not survive resolution", op.Name())
		n, err := copyInstructionForTest(fd.Bytecode, pos, op)
		require.NoError(t, err)
		pos = n
	}
}

// copyInstructionForTest mirrors copyInstruction's cursor advancement
// without needing a real output buffer, used only to walk the resolved
// stream op by op in assertions.
func copyInstructionForTest(code []byte, opStart int, op Opcode) (int, error) {
	var sink []byte
	return copyInstruction(&sink, code, opStart, op)
}

func TestResolveVariablesLocalVarBecomesGetLoc(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	e := NewEmitter(fd)
	_, err := fd.DeclareVar(Atom(1), VarKindVar)
	require.NoError(t, err)
	e.EmitScopeGetVar(Atom(1), 0)
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))
	op := Opcode(fd.Bytecode[0]) | Opcode(fd.Bytecode[1])<<8
	assert.Equal(t, OpGetLoc, op)
}

func TestResolveVariablesFirstWriteUsesCheckInitForm(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	e := NewEmitter(fd)
	_, err := fd.DeclareVar(Atom(1), VarKindConst)
	require.NoError(t, err)
	e.EmitScopePutVarInit(Atom(1), 0)
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))
	op := Opcode(fd.Bytecode[0]) | Opcode(fd.Bytecode[1])<<8
	assert.Equal(t, OpPutLocCheckInit, op, "a const's first write must use the initializing form, not the ordinary put")
}

func TestResolveVariablesUnboundNameFallsBackToGlobal(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitScopeGetVar(Atom(777), 0)
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))
	op := Opcode(fd.Bytecode[0]) | Opcode(fd.Bytecode[1])<<8
	assert.Equal(t, OpGetVar, op)
}

func TestResolveVariablesDirectEvalKeepsNameDynamic(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	fd.HasDirectEval = true
	e := NewEmitter(fd)
	e.EmitScopeGetVar(Atom(50), 0)
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))
	op := Opcode(fd.Bytecode[0]) | Opcode(fd.Bytecode[1])<<8
	assert.Equal(t, OpGetVar, op, "direct eval forces the dynamic lookup form, same opcode as global but reached via a different resolution step")
}

func TestResolveVariablesWithScopeUsesTrampolineForm(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	withLevel := fd.PushScope(true, false)
	e := NewEmitter(fd)
	e.EmitScopeGetVar(Atom(60), withLevel)
	fd.PopScope()
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))
	op := Opcode(fd.Bytecode[0]) | Opcode(fd.Bytecode[1])<<8
	assert.Equal(t, OpWithGetVar, op)
}

func TestResolveVariablesClosureChainCapturesParentLocal(t *testing.T) {
	parent := NewFunctionDef(nil, FuncKindNormal)
	parentSlot, err := parent.DeclareVar(Atom(9), VarKindLet)
	require.NoError(t, err)
	child := NewFunctionDef(parent, FuncKindArrow)
	ce := NewEmitter(child)
	ce.EmitScopeGetVar(Atom(9), 0)
	ce.EmitOp(OpReturnUndef)
	pe := NewEmitter(parent)
	pe.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(parent))

	assert.True(t, parent.Vars[parentSlot].IsCaptured)
	require.Len(t, child.Closures, 1)
	assert.Equal(t, Atom(9), child.Closures[0].Name)
	op := Opcode(child.Bytecode[0]) | Opcode(child.Bytecode[1])<<8
	assert.Equal(t, OpGetVarRef, op)
}

func TestResolveVariablesLabelStaysInByteRange(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	label := fd.NewLabel()
	_, err := fd.DeclareVar(Atom(1), VarKindVar)
	require.NoError(t, err)
	e.EmitScopeGetVar(Atom(1), 0)
	e.EmitGoto(label)
	e.EmitLabel(label)
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))

	l := fd.Labels[label]
	assert.True(t, l.Pos >= 0 && l.Pos <= len(fd.Bytecode))
	for _, ref := range l.RefList {
		assert.True(t, ref >= 0 && ref+4 <= len(fd.Bytecode))
	}
}

func TestResolveVariablesFixesUpGotoTarget(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	label := fd.NewLabel()
	e.EmitGoto(label)
	e.EmitOp(OpDrop)
	e.EmitLabel(label)
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))

	gotoTargetPos := int(uint32(fd.Bytecode[2]) | uint32(fd.Bytecode[3])<<8 | uint32(fd.Bytecode[4])<<16 | uint32(fd.Bytecode[5])<<24)
	assert.Equal(t, fd.Labels[label].Pos, gotoTargetPos)
}

func TestResolveVariablesRecursesIntoChildren(t *testing.T) {
	parent := NewFunctionDef(nil, FuncKindTopLevel)
	child := NewFunctionDef(parent, FuncKindNormal)
	_, err := child.DeclareVar(Atom(1), VarKindVar)
	require.NoError(t, err)
	ce := NewEmitter(child)
	ce.EmitScopeGetVar(Atom(1), 0)
	ce.EmitOp(OpReturnUndef)
	pe := NewEmitter(parent)
	pe.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(parent))

	op := Opcode(child.Bytecode[0]) | Opcode(child.Bytecode[1])<<8
	assert.Equal(t, OpGetLoc, op, "resolution must recurse into nested FunctionDefs")
}

func TestResolveVariablesConstReassignmentThrows(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	e := NewEmitter(fd)
	_, err := fd.DeclareVar(Atom(1), VarKindConst)
	require.NoError(t, err)
	e.EmitScopePutVarInit(Atom(1), 0)
	e.EmitScopePutVar(Atom(1), 0)
	e.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(fd))

	op := Opcode(fd.Bytecode[0]) | Opcode(fd.Bytecode[1])<<8
	assert.Equal(t, OpPutLocCheckInit, op, "the const's own initializing write must still succeed")

	n, err := copyInstructionForTest(fd.Bytecode, 0, op)
	require.NoError(t, err)
	op2 := Opcode(fd.Bytecode[n]) | Opcode(fd.Bytecode[n+1])<<8
	assert.Equal(t, OpThrowError, op2, "a subsequent write to a const must throw rather than silently reassign")
}

func TestResolveVariablesConstReassignmentThroughClosureThrows(t *testing.T) {
	parent := NewFunctionDef(nil, FuncKindNormal)
	_, err := parent.DeclareVar(Atom(9), VarKindConst)
	require.NoError(t, err)
	child := NewFunctionDef(parent, FuncKindArrow)
	ce := NewEmitter(child)
	ce.EmitScopePutVar(Atom(9), 0)
	ce.EmitOp(OpReturnUndef)
	pe := NewEmitter(parent)
	pe.EmitOp(OpReturnUndef)

	require.NoError(t, ResolveVariables(parent))

	op := Opcode(child.Bytecode[0]) | Opcode(child.Bytecode[1])<<8
	assert.Equal(t, OpThrowError, op, "a write to a closed-over const must throw through the closure chain too")
}
