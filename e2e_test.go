package jsfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAndResolve(t *testing.T, src string, goal ParseGoal) *FunctionDef {
	t.Helper()
	fd, err := ParseScript([]byte(src), "e2e.js", goal, FlagNone)
	require.NoError(t, err)
	require.NoError(t, ResolveVariables(fd))
	return fd
}

func TestE2ELetDeclarationWithASIArithmetic(t *testing.T) {
	src := "let a = 1\nlet b = 2\na + b"
	fd := parseAndResolve(t, src, GoalScript)

	names := opNames(fd.Disasm(nil))
	assert.Contains(t, names, "add")
	assert.Contains(t, names, "return_undef")
}

func TestE2EStrictModeRejectsOctalLiteral(t *testing.T) {
	src := "\"use strict\";\nvar x = 010;"
	_, err := ParseScript([]byte(src), "e2e.js", GoalScript, FlagNone)
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestE2EPrivateFieldGetAndSet(t *testing.T) {
	src := "class C { #x = 1; bump() { this.#x = this.#x + 1; return this.#x; } }"
	fd := parseAndResolve(t, src, GoalScript)

	asm := fd.DisasmTree(nil)
	assert.Contains(t, asm, "#x", "the private name must be interned and visible in a disassembly")
	assert.Contains(t, asm, "get_field")
	assert.Contains(t, asm, "put_field")
}

func TestE2EForOfBreakClosesIterator(t *testing.T) {
	src := "for (const x of items) { if (x) break; }"
	fd := parseAndResolve(t, src, GoalScript)

	names := opNames(fd.Disasm(nil))
	assert.Contains(t, names, "for_of_start")
	assert.Contains(t, names, "for_of_next")
	assert.Contains(t, names, "iterator_close", "breaking out of a for-of loop body must close the iterator before jumping to the break target")
}

func TestE2EAsyncGeneratorAwaitAndYield(t *testing.T) {
	src := "async function* gen() { const v = await p; yield v; }"
	fd := parseAndResolve(t, src, GoalScript)

	require.Len(t, fd.Children, 1)
	child := fd.Children[0]
	assert.Equal(t, FuncKindAsyncGenerator, child.Kind)

	names := opNames(child.Disasm(nil))
	assert.Contains(t, names, "await")
	assert.Contains(t, names, "yield")
}

func TestE2EOptionalChainingShortCircuits(t *testing.T) {
	src := "a?.b"
	fd := parseAndResolve(t, src, GoalScript)

	names := opNames(fd.Disasm(nil))
	assert.Contains(t, names, "dup")
	assert.Contains(t, names, "is_undefined_or_null")
	assert.Contains(t, names, "if_true")
}

func TestE2EModuleGoalIsAlwaysStrict(t *testing.T) {
	fd := parseAndResolve(t, "export const x = 1;", GoalModule)
	assert.True(t, fd.IsStrict)
	assert.Equal(t, FuncKindModule, fd.Kind)
}

func TestE2EArrayDestructuringDeclarationEmitsIteratorExtraction(t *testing.T) {
	src := "let [a, b] = pair;"
	fd := parseAndResolve(t, src, GoalScript)

	names := opNames(fd.Disasm(nil))
	assert.Contains(t, names, "for_of_start")
	assert.Contains(t, names, "for_of_next")
	assert.Contains(t, names, "put_loc_check_init", "each destructured leaf binding must receive its own extracted value")
}

func TestE2EObjectDestructuringDeclarationEmitsFieldExtraction(t *testing.T) {
	src := "let {x, y} = point;"
	fd := parseAndResolve(t, src, GoalScript)

	names := opNames(fd.Disasm(nil))
	assert.Contains(t, names, "get_field")
	assert.Contains(t, names, "put_loc_check_init")
}

func TestE2EArrayDestructuringForOfHeaderExtractsPerIteration(t *testing.T) {
	src := "for (const [a, b] of pairs) { a; }"
	fd := parseAndResolve(t, src, GoalScript)

	names := opNames(fd.Disasm(nil))
	assert.Contains(t, names, "for_of_next")
	assert.GreaterOrEqual(t, countOp(names, "for_of_start"), 2, "the outer pairs iterator and each element's array pattern both start an iterator")
}

func TestE2EFunctionParamDefaultAppliesOnlyWhenOmitted(t *testing.T) {
	src := "function f(x = 5) { return x; }"
	fd := parseAndResolve(t, src, GoalScript)

	require.Len(t, fd.Children, 1)
	names := opNames(fd.Children[0].Disasm(nil))
	assert.Contains(t, names, "get_arg")
	assert.Contains(t, names, "strict_eq")
	assert.Contains(t, names, "put_arg")
}

func TestE2EDestructuringParamExtractsFromArgument(t *testing.T) {
	src := "function f({x, y}) { return x; }"
	fd := parseAndResolve(t, src, GoalScript)

	require.Len(t, fd.Children, 1)
	names := opNames(fd.Children[0].Disasm(nil))
	assert.Contains(t, names, "get_arg")
	assert.Contains(t, names, "get_field")
}

func TestE2EConstReassignmentProducesThrowError(t *testing.T) {
	src := "const x = 1; x = 2;"
	fd := parseAndResolve(t, src, GoalScript)

	names := opNames(fd.Disasm(nil))
	assert.Contains(t, names, "throw_error")
}

func TestE2EDuplicateLexicalBindingInSameScopeIsSyntaxError(t *testing.T) {
	src := "let x = 1; let x = 2;"
	_, err := ParseScript([]byte(src), "e2e.js", GoalScript, FlagNone)
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Contains(t, synErr.Message, "redefinition of lexical identifier")
}

func TestE2ELexicalBindingMayShadowVarInNestedScope(t *testing.T) {
	src := "var x = 1; { let x = 2; }"
	fd := parseAndResolve(t, src, GoalScript)
	assert.NotNil(t, fd)
}

func TestE2EDuplicateParamNameRejectedInStrictMode(t *testing.T) {
	src := "\"use strict\";\nfunction f(a, a) {}"
	_, err := ParseScript([]byte(src), "e2e.js", GoalScript, FlagNone)
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestE2EDuplicateParamNameRejectedForArrowFunctions(t *testing.T) {
	src := "const f = (a, a) => a;"
	_, err := ParseScript([]byte(src), "e2e.js", GoalScript, FlagNone)
	require.Error(t, err)
}

func TestE2EDuplicateParamNameAllowedInSloppyModeSimpleParams(t *testing.T) {
	src := "function f(a, a) { return a; }"
	fd := parseAndResolve(t, src, GoalScript)
	require.Len(t, fd.Children, 1)
	assert.Len(t, fd.Children[0].Args, 2)
}

func countOp(names []string, op string) int {
	n := 0
	for _, name := range names {
		if name == op {
			n++
		}
	}
	return n
}
