// Package jsfe implements the front end of a QuickJS-style ECMAScript
// engine: atom/string interning, a UTF-8 scanner, a recursive-descent
// parser, a bytecode emitter, and a scope resolver that rewrites
// placeholder opcodes into final local/argument/closure/global forms.
//
// The bytecode interpreter and object runtime are out of scope; this
// package only produces the bytecode an external evaluator would consume.
package jsfe

// Opcode is a bytecode instruction identifier. The encoder always writes
// it as two little-endian bytes (EmitOp), which keeps every mnemonic in
// one flat, unambiguous space instead of splitting arithmetic/comparison
// ops into an overflow stream the way a single byte would force.
type Opcode uint16

// ─── Control ───────────────────────────────────────────────────────────────
const (
	OpNop Opcode = iota
	OpLabel
	OpGoto
	OpIfTrue
	OpIfFalse
	OpCatch
	OpGosub
	OpRet
	OpReturn
	OpReturnUndef
	OpReturnAsync
	OpThrow
	OpThrowError
	OpLineNum
)

// ─── Stack shuffling ───────────────────────────────────────────────────────
const (
	OpPushConst Opcode = iota + 0x20
	OpPushAtomValue
	OpPushI32
	OpPushTrue
	OpPushFalse
	OpPushThis
	OpNull
	OpUndefined
	OpDup
	OpDup1
	OpDup2
	OpDup3
	OpDrop
	OpNip
	OpNip1
	OpSwap
	OpSwap2
	OpPerm3
	OpPerm4
	OpPerm5
	OpRot3l
	OpRot3r
	OpRot4l
	OpRot5l
	OpInsert2
	OpInsert3
	OpInsert4
)

// ─── Variables: placeholder forms, rewritten by the scope resolver ────────
const (
	OpScopeGetVar Opcode = iota + 0x40
	OpScopePutVar
	OpScopeGetVarUndef
	OpScopePutVarInit
	OpScopeDeleteVar
	OpScopeGetRef
	OpScopeMakeRef
	OpScopeGetPrivateField
	OpScopeGetPrivateField2
	OpScopePutPrivateField
)

// ─── Variables: resolved forms, emitted only by the scope resolver ────────
const (
	OpGetLoc Opcode = iota + 0x60
	OpPutLoc
	OpGetLocCheck
	OpPutLocCheck
	OpPutLocCheckInit
	OpGetArg
	OpPutArg
	OpGetVarRef
	OpPutVarRef
	OpGetVarRefCheck
	OpPutVarRefCheck
	OpPutVarRefCheckInit
	OpGetVar
	OpPutVar
	OpPutVarStrict
	OpPutVarInit
	OpCheckVar
	OpDeleteVar
	OpMakeVarRef
	OpMakeLocRef
	OpMakeArgRef
	OpMakeVarRefRef

	// With-scope specializations, mirroring the plain variable ops.
	OpWithGetVar
	OpWithPutVar
	OpWithDeleteVar
	OpWithMakeRef
)

// ─── Scope lifecycle ───────────────────────────────────────────────────────
const (
	OpEnterScope Opcode = iota + 0x90
	OpLeaveScope
	OpCloseLoc
	OpSetLocUninitialized
)

// ─── Globals ────────────────────────────────────────────────────────────────
const (
	OpCheckDefineVar Opcode = iota + 0xA0
	OpDefineVar
	OpDefineFunc
)

// ─── Properties ─────────────────────────────────────────────────────────────
const (
	OpGetField Opcode = iota + 0xB0
	OpGetField2
	OpPutField
	OpDefineField
	OpDefineMethod
	OpDefineMethodComputed
	OpDefinePrivateField
	OpDefineArrayEl
	OpSetName
	OpSetNameComputed
	OpSetClassName
	OpSetProto
	OpSetHomeObject
	OpAddBrand
	OpPrivateSymbol
	// OpGetArrayEl/OpGetArrayEl2 are get_field/get_field2's computed-key
	// counterparts: pop obj and key (obj,key -> value), or pop neither
	// and push value on top (obj,key -> obj,key,value) so a later store
	// or method call still has the reference it needs.
	OpGetArrayEl
	OpGetArrayEl2
	// OpDefineFieldComputed is define_field's dynamic-key counterpart,
	// for object literal properties written `[expr]: value`.
	OpDefineFieldComputed
	// OpPushClosure pushes a function value built from the FunctionDef
	// at ConstPool[idx], for function/method/arrow/class expressions.
	OpPushClosure
)

// ─── Calls ──────────────────────────────────────────────────────────────────
const (
	OpCall Opcode = iota + 0xC4
	OpCallMethod
	OpCallConstructor
	OpApply
	OpApplyEval
	OpEval
	OpRegexp
	OpImport
	OpCheckCtor
	OpCheckCtorReturn
)

// ─── Object / array literals ───────────────────────────────────────────────
const (
	OpObject Opcode = iota + 0xD0
	OpArrayFrom
	OpAppend
	OpInc
	OpDefineClass
	OpDefineClassComputed
)

// ─── Iteration ──────────────────────────────────────────────────────────────
const (
	OpForInStart Opcode = iota + 0xE0
	OpForInNext
	OpForOfStart
	OpForOfNext
	OpForAwaitOfStart
	OpIteratorNext
	OpIteratorCall
	OpIteratorCheckObj
	OpIteratorGetValDone
	OpIteratorClose
	OpIteratorCloseReturn
)

// ─── Arithmetic / comparison ────────────────────────────────────────────────
const (
	OpAdd Opcode = iota + 0xF0
	OpSub
	OpMul
	OpDiv
	OpMod
	OpMathMod
	OpPow
	OpShl
	OpSar
	OpShr
	OpAnd
	OpOr
	OpXor
	OpNot
	OpLNot
	OpNeg
	OpPlus
	OpDec
	OpPostDec
	OpPostInc
	OpLt
	OpLte
	OpGt
	OpGte
	OpEq
	OpNeq
	OpStrictEq
	OpStrictNeq
	OpIn
	OpInstanceof
	OpTypeof
	OpDelete
	OpIsUndefinedOrNull
	OpToPropkey
	OpToPropkey2
	OpToObject
	OpCopyDataProperties
)

// ─── Async / generators ─────────────────────────────────────────────────────
const (
	OpAwait Opcode = iota + 0x120
	OpYield
	OpYieldStar
	OpAsyncYieldStar
	OpInitialYield
)

// Name returns the human-readable mnemonic for an opcode, used by Disasm
// and by error messages. Unknown opcodes render as "UNKNOWN".
func (o Opcode) Name() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return "UNKNOWN"
}

func (o Opcode) String() string { return o.Name() }

// opcodeNames is a reverse-lookup table: one entry per opcode, built
// once and consulted by Name()/Disasm.
var opcodeNames = map[Opcode]string{
	OpNop: "nop", OpLabel: "label", OpGoto: "goto", OpIfTrue: "if_true", OpIfFalse: "if_false",
	OpCatch: "catch", OpGosub: "gosub", OpRet: "ret", OpReturn: "return", OpReturnUndef: "return_undef",
	OpReturnAsync: "return_async", OpThrow: "throw", OpThrowError: "throw_error", OpLineNum: "line_num",

	OpPushConst: "push_const", OpPushAtomValue: "push_atom_value", OpPushI32: "push_i32",
	OpPushTrue: "push_true", OpPushFalse: "push_false", OpPushThis: "push_this",
	OpNull: "null", OpUndefined: "undefined",
	OpDup: "dup", OpDup1: "dup1", OpDup2: "dup2", OpDup3: "dup3",
	OpDrop: "drop", OpNip: "nip", OpNip1: "nip1", OpSwap: "swap", OpSwap2: "swap2",
	OpPerm3: "perm3", OpPerm4: "perm4", OpPerm5: "perm5",
	OpRot3l: "rot3l", OpRot3r: "rot3r", OpRot4l: "rot4l", OpRot5l: "rot5l",
	OpInsert2: "insert2", OpInsert3: "insert3", OpInsert4: "insert4",

	OpScopeGetVar: "scope_get_var", OpScopePutVar: "scope_put_var",
	OpScopeGetVarUndef: "scope_get_var_undef", OpScopePutVarInit: "scope_put_var_init",
	OpScopeDeleteVar: "scope_delete_var", OpScopeGetRef: "scope_get_ref", OpScopeMakeRef: "scope_make_ref",
	OpScopeGetPrivateField: "scope_get_private_field", OpScopeGetPrivateField2: "scope_get_private_field2",
	OpScopePutPrivateField: "scope_put_private_field",

	OpGetLoc: "get_loc", OpPutLoc: "put_loc", OpGetLocCheck: "get_loc_check",
	OpPutLocCheck: "put_loc_check", OpPutLocCheckInit: "put_loc_check_init",
	OpGetArg: "get_arg", OpPutArg: "put_arg",
	OpGetVarRef: "get_var_ref", OpPutVarRef: "put_var_ref",
	OpGetVarRefCheck: "get_var_ref_check", OpPutVarRefCheck: "put_var_ref_check",
	OpPutVarRefCheckInit: "put_var_ref_check_init",
	OpGetVar: "get_var", OpPutVar: "put_var", OpPutVarStrict: "put_var_strict", OpPutVarInit: "put_var_init",
	OpCheckVar: "check_var", OpDeleteVar: "delete_var", OpMakeVarRef: "make_var_ref",
	OpMakeLocRef: "make_loc_ref", OpMakeArgRef: "make_arg_ref", OpMakeVarRefRef: "make_var_ref_ref",

	OpWithGetVar: "with_get_var", OpWithPutVar: "with_put_var",
	OpWithDeleteVar: "with_delete_var", OpWithMakeRef: "with_make_ref",

	OpEnterScope: "enter_scope", OpLeaveScope: "leave_scope",
	OpCloseLoc: "close_loc", OpSetLocUninitialized: "set_loc_uninitialized",

	OpCheckDefineVar: "check_define_var", OpDefineVar: "define_var", OpDefineFunc: "define_func",

	OpGetField: "get_field", OpGetField2: "get_field2", OpPutField: "put_field",
	OpDefineField: "define_field", OpDefineMethod: "define_method",
	OpDefineMethodComputed: "define_method_computed", OpDefinePrivateField: "define_private_field",
	OpDefineArrayEl: "define_array_el", OpSetName: "set_name", OpSetNameComputed: "set_name_computed",
	OpSetClassName: "set_class_name", OpSetProto: "set_proto", OpSetHomeObject: "set_home_object",
	OpAddBrand: "add_brand", OpPrivateSymbol: "private_symbol",
	OpGetArrayEl: "get_array_el", OpGetArrayEl2: "get_array_el2",
	OpDefineFieldComputed: "define_field_computed", OpPushClosure: "push_closure",

	OpCall: "call", OpCallMethod: "call_method", OpCallConstructor: "call_constructor",
	OpApply: "apply", OpApplyEval: "apply_eval", OpEval: "eval", OpRegexp: "regexp",
	OpImport: "import", OpCheckCtor: "check_ctor", OpCheckCtorReturn: "check_ctor_return",

	OpObject: "object", OpArrayFrom: "array_from", OpAppend: "append", OpInc: "inc",
	OpDefineClass: "define_class", OpDefineClassComputed: "define_class_computed",

	OpForInStart: "for_in_start", OpForInNext: "for_in_next",
	OpForOfStart: "for_of_start", OpForOfNext: "for_of_next", OpForAwaitOfStart: "for_await_of_start",
	OpIteratorNext: "iterator_next", OpIteratorCall: "iterator_call",
	OpIteratorCheckObj: "iterator_check_object", OpIteratorGetValDone: "iterator_get_value_done",
	OpIteratorClose: "iterator_close", OpIteratorCloseReturn: "iterator_close_return",

	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod", OpMathMod: "math_mod",
	OpPow: "pow", OpShl: "shl", OpSar: "sar", OpShr: "shr", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpNot: "not", OpLNot: "lnot", OpNeg: "neg", OpPlus: "plus", OpDec: "dec", OpPostDec: "post_dec",
	OpPostInc: "post_inc",
	OpLt: "lt", OpLte: "lte", OpGt: "gt", OpGte: "gte", OpEq: "eq", OpNeq: "neq",
	OpStrictEq: "strict_eq", OpStrictNeq: "strict_neq", OpIn: "in", OpInstanceof: "instanceof",
	OpTypeof: "typeof", OpDelete: "delete", OpIsUndefinedOrNull: "is_undefined_or_null",
	OpToPropkey: "to_propkey", OpToPropkey2: "to_propkey2", OpToObject: "to_object",
	OpCopyDataProperties: "copy_data_properties",

	OpAwait: "await", OpYield: "yield", OpYieldStar: "yield_star",
	OpAsyncYieldStar: "async_yield_star", OpInitialYield: "initial_yield",
}

// ThrowReason is OpThrowError's single trailing byte operand, selecting
// which runtime error the instruction raises.
type ThrowReason uint8

const (
	// ThrowReasonReadOnly marks an assignment to a const binding.
	ThrowReasonReadOnly ThrowReason = iota
)

// isPlaceholderOp reports whether op is one of the scope-relative
// placeholder opcodes the resolver must rewrite into a concrete
// local/argument/closure/global form before bytecode leaves this package.
func isPlaceholderOp(op Opcode) bool {
	switch op {
	case OpScopeGetVar, OpScopePutVar, OpScopeGetVarUndef, OpScopePutVarInit, OpScopeDeleteVar,
		OpScopeGetRef, OpScopeMakeRef, OpScopeGetPrivateField, OpScopeGetPrivateField2,
		OpScopePutPrivateField, OpEnterScope, OpLeaveScope:
		return true
	}
	return false
}
