package jsfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFunctionDefInheritsStrictFromParent(t *testing.T) {
	parent := NewFunctionDef(nil, FuncKindTopLevel)
	parent.IsStrict = true
	child := NewFunctionDef(parent, FuncKindNormal)

	assert.True(t, child.IsStrict)
	assert.Same(t, parent, child.Parent)
	assert.Equal(t, []*FunctionDef{child}, parent.Children)
}

func TestDeclareVarRecordsScopeLevelAndConstness(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	inner := fd.PushScope(false, false)
	idx, err := fd.DeclareVar(Atom(1), VarKindConst)
	require.NoError(t, err)

	v := fd.Vars[idx]
	assert.Equal(t, inner, v.ScopeLevel)
	assert.True(t, v.IsConst)
	assert.Equal(t, -1, v.FuncPoolIdx)
}

func TestDeclareArgRecordsRestFlag(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	idx := fd.DeclareArg(Atom(2), true)
	assert.True(t, fd.Args[idx].IsRest)
	assert.Equal(t, VarKindFunctionParam, fd.Args[idx].Kind)
}

func TestFindLocalSearchesScopesOutward(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	outerVar, err := fd.DeclareVar(Atom(10), VarKindVar)
	require.NoError(t, err)

	fd.PushScope(false, false)
	innerVar, err := fd.DeclareVar(Atom(20), VarKindLet)
	require.NoError(t, err)

	slot, isArg := fd.FindLocal(Atom(20))
	require.False(t, isArg)
	assert.Equal(t, innerVar, slot)

	slot, isArg = fd.FindLocal(Atom(10))
	require.False(t, isArg)
	assert.Equal(t, outerVar, slot)
}

func TestFindLocalPrefersInnerShadowOverOuter(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	_, err := fd.DeclareVar(Atom(5), VarKindVar)
	require.NoError(t, err)
	fd.PushScope(false, false)
	shadow, err := fd.DeclareVar(Atom(5), VarKindLet)
	require.NoError(t, err)

	slot, _ := fd.FindLocal(Atom(5))
	assert.Equal(t, shadow, slot)
}

func TestFindLocalDoesNotSeeSiblingScopeBindings(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	fd.PushScope(false, false)
	_, err := fd.DeclareVar(Atom(7), VarKindLet)
	require.NoError(t, err)
	fd.PopScope()

	fd.PushScope(false, false)
	slot, isArg := fd.FindLocal(Atom(7))
	assert.Equal(t, -1, slot)
	assert.False(t, isArg)
}

func TestFindLocalFallsBackToArgs(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	argIdx := fd.DeclareArg(Atom(3), false)

	slot, isArg := fd.FindLocal(Atom(3))
	assert.True(t, isArg)
	assert.Equal(t, argIdx, slot)
}

func TestFindLocalReturnsNotFound(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindNormal)
	slot, isArg := fd.FindLocal(Atom(99))
	assert.Equal(t, -1, slot)
	assert.False(t, isArg)
}

func TestAddClosureVarDedupsByName(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindArrow)
	i1 := fd.AddClosureVar(Atom(4), true, false, false, 0)
	i2 := fd.AddClosureVar(Atom(4), true, false, false, 0)
	assert.Equal(t, i1, i2)
	assert.Len(t, fd.Closures, 1)
}

func TestAddClosureVarDistinctNamesGetDistinctSlots(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindArrow)
	i1 := fd.AddClosureVar(Atom(4), true, false, false, 0)
	i2 := fd.AddClosureVar(Atom(5), true, false, false, 1)
	assert.NotEqual(t, i1, i2)
}

func TestNewLabelDefineLabelRoundTrip(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	label := fd.NewLabel()
	assert.Equal(t, -1, fd.Labels[label].Pos)

	fd.Bytecode = make([]byte, 12)
	fd.DefineLabel(label)
	assert.Equal(t, 12, fd.Labels[label].Pos)
}

func TestAddConstReturnsAppendIndex(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	i1 := fd.AddConst(1.0)
	i2 := fd.AddConst("two")
	assert.Equal(t, 0, i1)
	assert.Equal(t, 1, i2)
}

func TestPushPopScopeRestoresParent(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	assert.Equal(t, 0, fd.CurrentScope)

	inner := fd.PushScope(false, true)
	assert.Equal(t, inner, fd.CurrentScope)
	assert.True(t, fd.Scopes[inner].IsCatch)

	fd.PopScope()
	assert.Equal(t, 0, fd.CurrentScope)
}

func TestDeclareVarRejectsDuplicateLexicalBindingInSameScope(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	_, err := fd.DeclareVar(Atom(1), VarKindLet)
	require.NoError(t, err)

	_, err = fd.DeclareVar(Atom(1), VarKindConst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redefinition of lexical identifier")
}

func TestDeclareVarAllowsSameNameInNestedScope(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	_, err := fd.DeclareVar(Atom(1), VarKindLet)
	require.NoError(t, err)

	fd.PushScope(false, false)
	_, err = fd.DeclareVar(Atom(1), VarKindLet)
	assert.NoError(t, err, "a nested scope may shadow an outer lexical binding")
}

func TestDeclareVarAllowsVarRedeclarationAlongsideItself(t *testing.T) {
	fd := NewFunctionDef(nil, FuncKindTopLevel)
	_, err := fd.DeclareVar(Atom(1), VarKindVar)
	require.NoError(t, err)

	_, err = fd.DeclareVar(Atom(1), VarKindVar)
	assert.NoError(t, err, "var/var redeclaration in the same scope is never a lexical collision")
}
