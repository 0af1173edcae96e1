package jsfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopTopBlockEnv(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	assert.Nil(t, fd.TopBlockEnv())

	be := fd.PushBlockEnv(BlockLoop, AtomNull)
	require.Same(t, be, fd.TopBlockEnv())
	assert.Equal(t, -1, be.BreakLabel)
	assert.Equal(t, -1, be.ContinueLabel)
	assert.Equal(t, -1, be.GosubLabel)

	fd.PopBlockEnv()
	assert.Nil(t, fd.TopBlockEnv())
}

func TestFindBreakTargetUnlabelledFindsNearestBreakable(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	outer := fd.PushBlockEnv(BlockSwitch, AtomNull)
	outer.HasBreak = true
	inner := fd.PushBlockEnv(BlockTry, AtomNull) // try frames don't accept break

	target, unwind, ok := fd.FindBreakTarget(AtomNull)
	require.True(t, ok)
	assert.Same(t, outer, target)
	assert.Equal(t, []*BlockEnv{inner}, unwind)
}

func TestFindBreakTargetLabelledMatchesByName(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	label := Atom(42)
	wrapper := fd.PushBlockEnv(BlockLabelled, label)
	loop := fd.PushBlockEnv(BlockLoop, AtomNull)
	loop.HasBreak = true

	target, _, ok := fd.FindBreakTarget(label)
	require.True(t, ok)
	assert.Same(t, wrapper, target)
}

func TestFindBreakTargetNotFound(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	fd.PushBlockEnv(BlockTry, AtomNull)

	_, _, ok := fd.FindBreakTarget(AtomNull)
	assert.False(t, ok)
}

func TestFindContinueTargetOnlyMatchesContinuableFrames(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	loop := fd.PushBlockEnv(BlockLoop, AtomNull)
	loop.HasContinue = true
	fd.PushBlockEnv(BlockSwitch, AtomNull) // switch can break but never continue

	target, _, ok := fd.FindContinueTarget(AtomNull)
	require.True(t, ok)
	assert.Same(t, loop, target)
}

func TestFindContinueTargetLabelledRequiresBothNameAndContinuable(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	label := Atom(7)
	wrapper := fd.PushBlockEnv(BlockLabelled, label) // no HasContinue: a label on a non-loop

	_, _, ok := fd.FindContinueTarget(label)
	assert.False(t, ok)
	_ = wrapper
}

func TestPendingFinallyGosubsCollectsInnermostFirstUpToTarget(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	outerFinally := fd.PushBlockEnv(BlockFinally, AtomNull)
	outerFinally.HasGosub = true
	loopTarget := fd.PushBlockEnv(BlockLoop, AtomNull)
	loopTarget.HasBreak = true
	innerFinally := fd.PushBlockEnv(BlockFinally, AtomNull)
	innerFinally.HasGosub = true

	gosubs := fd.PendingFinallyGosubs(loopTarget)
	assert.Equal(t, []*BlockEnv{innerFinally}, gosubs, "only finally frames between the stack top and the target are collected")
}

func TestPendingFinallyGosubsSkipsFinallyFramesWithoutGosub(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	loopTarget := fd.PushBlockEnv(BlockLoop, AtomNull)
	loopTarget.HasBreak = true
	fd.PushBlockEnv(BlockFinally, AtomNull) // HasGosub left false

	gosubs := fd.PendingFinallyGosubs(loopTarget)
	assert.Empty(t, gosubs)
}
