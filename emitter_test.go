package jsfe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitGotoRegistersRefList(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	label := fd.NewLabel()
	e.EmitGoto(label)
	require.Len(t, fd.Labels[label].RefList, 1)
	assert.Equal(t, 2, fd.Labels[label].RefList[0], "the ref site is the operand, right after the 2-byte opcode")
}

func TestEmitCondJumpRegistersRefList(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	label := fd.NewLabel()
	e.EmitCondJump(OpIfFalse, label)
	require.Len(t, fd.Labels[label].RefList, 1)
}

func TestEmitGosubRegistersRefList(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	label := fd.NewLabel()
	e.EmitGosub(label)
	require.Len(t, fd.Labels[label].RefList, 1)
	op := Opcode(fd.Bytecode[0]) | Opcode(fd.Bytecode[1])<<8
	assert.Equal(t, OpGosub, op)
}

func TestEmitReturnWalksBlockEnvsForFinallyGosub(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	e := NewEmitter(fd)
	gosubLabel := fd.NewLabel()
	be := &BlockEnv{Kind: BlockFinally, HasGosub: true, GosubLabel: gosubLabel}
	fd.BlockEnvs = append(fd.BlockEnvs, be)

	e.EmitReturn(true, false, false)

	require.Len(t, fd.Labels[gosubLabel].RefList, 1, "EmitReturn must register its gosub through EmitGosub, not a raw EmitU32")
}

func TestEmitReturnEmitsDropsAndIteratorClose(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	e := NewEmitter(fd)
	be := &BlockEnv{Kind: BlockLoop, DropCount: 2, IteratorCloseDepth: 1}
	fd.BlockEnvs = append(fd.BlockEnvs, be)

	e.EmitReturn(false, false, false)

	d := fd.Disasm(nil)
	assert.Equal(t, []string{"iterator_close_return", "drop", "drop", "return_undef"}, opNames(d))
}

func TestEmitReturnSelectsAsyncForm(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindAsync)
	e := NewEmitter(fd)
	e.EmitReturn(true, true, false)
	assert.Equal(t, []string{"return_async"}, opNames(fd.Disasm(nil)))
}

// opNames extracts the opcode mnemonic from each line of a Disasm
// listing, discarding indentation and operand text.
func opNames(disasm string) []string {
	var names []string
	for _, line := range strings.Split(strings.TrimRight(disasm, "\n"), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			names = append(names, fields[1])
		}
	}
	return names
}

func TestEmitPushConstSelectsNarrowestForm(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)

	e.EmitPushConst(true)
	e.EmitPushConst(false)
	e.EmitPushConst(nil)
	e.EmitPushConst(float64(42))
	e.EmitPushConst(float64(3.5))
	e.EmitPushConst("hi")

	names := opNames(fd.Disasm(nil))
	assert.Equal(t, []string{"push_true", "push_false", "null", "push_i32", "push_const", "push_const"}, names)
	require.Len(t, fd.ConstPool, 2, "only the non-i32 values go through the constant pool")
}

func TestCpoolAddDeduplicatesIdenticalLiterals(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	i1 := e.CpoolAdd(3.5)
	i2 := e.CpoolAdd(3.5)
	i3 := e.CpoolAdd("x")
	i4 := e.CpoolAdd("x")
	assert.Equal(t, i1, i2)
	assert.Equal(t, i3, i4)
	assert.Len(t, fd.ConstPool, 2)
}

func TestEmitLabelDefinesPosAndResetsCursor(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	label := fd.NewLabel()
	e.EmitGoto(label)
	e.EmitLabel(label)

	assert.True(t, fd.Labels[label].Pos >= 0, "EmitLabel must resolve the label's position")
	assert.Equal(t, len(fd.Bytecode), fd.Labels[label].Pos, "the label marks the current end of the bytecode")
}

func TestEmitLabelDoesNotFoldGotoToADifferentTarget(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	other := fd.NewLabel()
	here := fd.NewLabel()
	e.EmitGoto(other)
	e.EmitLabel(here)

	assert.Equal(t, []string{"goto"}, opNames(fd.Disasm(nil)), "goto to a different label must survive EmitLabel")
}

func TestUpgradeLastGetFieldToMethod(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitGetField(Atom(5))
	ok := e.UpgradeLastGetFieldToMethod()
	require.True(t, ok)
	assert.Equal(t, []string{"get_field2"}, opNames(fd.Disasm(nil)))
}

func TestUpgradeLastGetFieldToMethodFailsWhenLastOpIsNotGetField(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitOp(OpPushTrue)
	ok := e.UpgradeLastGetFieldToMethod()
	assert.False(t, ok)
}

func TestEmitScopeGetVarEncodesNameAndScopeLevel(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	e := NewEmitter(fd)
	e.EmitScopeGetVar(Atom(9), 2)
	require.Len(t, fd.Bytecode, 2+4+4)
}
