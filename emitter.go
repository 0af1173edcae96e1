package jsfe

import "encoding/binary"

// emitU8 appends a single byte to fd's bytecode buffer.
func (fd *FunctionDef) emitU8(b byte) {
	fd.Bytecode = append(fd.Bytecode, b)
}

// emitU16 appends a little-endian uint16 operand.
func (fd *FunctionDef) emitU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	fd.Bytecode = append(fd.Bytecode, buf[:]...)
}

// emitU32 appends a little-endian uint32 operand.
func (fd *FunctionDef) emitU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	fd.Bytecode = append(fd.Bytecode, buf[:]...)
}

// lastOpcodePos tracks the bytecode offset of the most recently emitted
// opcode (not its operands), the cursor the peephole optimizer consults
// to decide whether the previous instruction can be folded into the one
// about to be emitted. -1 means "no previous instruction in this basic
// block" (e.g. right after a label).
//
// This lives outside FunctionDef because it resets at different points
// than the bytecode buffer itself (a label definition resets it, a
// function boundary does not survive across calls the way Bytecode
// does) — kept on Emitter so multiple FunctionDefs mid-construction
// don't share one cursor.
type Emitter struct {
	fd           *FunctionDef
	lastOpcodePos int
}

// NewEmitter creates an Emitter writing into fd.
func NewEmitter(fd *FunctionDef) *Emitter {
	return &Emitter{fd: fd, lastOpcodePos: -1}
}

// EmitOp appends a bare opcode with no operands.
func (e *Emitter) EmitOp(op Opcode) {
	e.fd.emitU8(byte(op))
	e.fd.emitU8(byte(op >> 8))
	e.lastOpcodePos = len(e.fd.Bytecode) - 2
}

func (e *Emitter) opStart() int {
	pos := len(e.fd.Bytecode)
	e.fd.emitU8(0)
	e.fd.emitU8(0)
	return pos
}

func (e *Emitter) patchOp(pos int, op Opcode) {
	e.fd.Bytecode[pos] = byte(op)
	e.fd.Bytecode[pos+1] = byte(op >> 8)
}

// EmitAtom appends op followed by a 4-byte atom operand.
func (e *Emitter) EmitAtom(op Opcode, a Atom) {
	pos := e.opStart()
	e.patchOp(pos, op)
	e.fd.emitU32(uint32(a))
	e.lastOpcodePos = pos
}

// EmitU16 appends op followed by a 2-byte operand (local/arg/closure
// slot indices, small integer immediates).
func (e *Emitter) EmitU16(op Opcode, v uint16) {
	pos := e.opStart()
	e.patchOp(pos, op)
	e.fd.emitU16(v)
	e.lastOpcodePos = pos
}

// EmitU32 appends op followed by a 4-byte operand (constant-pool index,
// large jump offsets before label resolution).
func (e *Emitter) EmitU32(op Opcode, v uint32) {
	pos := e.opStart()
	e.patchOp(pos, op)
	e.fd.emitU32(v)
	e.lastOpcodePos = pos
}

// CpoolAdd interns v into fd's constant pool, deduplicating identical
// number/string literals so a script repeating the same literal doesn't
// grow the pool unboundedly.
func (e *Emitter) CpoolAdd(v any) int {
	switch tv := v.(type) {
	case float64:
		for i, existing := range e.fd.ConstPool {
			if f, ok := existing.(float64); ok && f == tv {
				return i
			}
		}
	case string:
		for i, existing := range e.fd.ConstPool {
			if s, ok := existing.(string); ok && s == tv {
				return i
			}
		}
	}
	return e.fd.AddConst(v)
}

// EmitPushConst emits the narrowest push form for v: a dedicated
// push_i32 for small integers, push_true/push_false for booleans, null
// for a nil v, and a constant-pool reference otherwise.
func (e *Emitter) EmitPushConst(v any) {
	switch tv := v.(type) {
	case bool:
		if tv {
			e.EmitOp(OpPushTrue)
		} else {
			e.EmitOp(OpPushFalse)
		}
		return
	case nil:
		e.EmitOp(OpNull)
		return
	case float64:
		if tv == float64(int32(tv)) {
			e.EmitU32(OpPushI32, uint32(int32(tv)))
			return
		}
		idx := e.CpoolAdd(tv)
		e.EmitU32(OpPushConst, uint32(idx))
		return
	default:
		idx := e.CpoolAdd(v)
		e.EmitU32(OpPushConst, uint32(idx))
	}
}

// EmitLabel defines label at the current position and, if possible,
// folds a trailing unconditional jump directly preceding it (dead-code
// elimination for "goto L; L:" produced by statement-boundary emission).
func (e *Emitter) EmitLabel(label int) {
	if e.lastOpcodePos >= 0 && e.lastOpcodePos < len(e.fd.Bytecode) {
		if Opcode(e.fd.Bytecode[e.lastOpcodePos])|Opcode(e.fd.Bytecode[e.lastOpcodePos+1])<<8 == OpGoto {
			// The operand is still a placeholder, so the target is read
			// from the label's pending references instead.
			refs := e.fd.Labels[label].RefList
			if n := len(refs); n > 0 && refs[n-1] == e.lastOpcodePos+2 && e.lastOpcodePos+6 == len(e.fd.Bytecode) {
				e.fd.Labels[label].RefList = refs[:n-1]
				e.fd.Bytecode = e.fd.Bytecode[:e.lastOpcodePos]
			}
		}
	}
	e.fd.DefineLabel(label)
	e.lastOpcodePos = -1
}

// EmitGoto emits an unconditional jump to label; the jump is always
// emitted, even when label is already defined at the current position.
func (e *Emitter) EmitGoto(label int) {
	pos := e.opStart()
	e.patchOp(pos, OpGoto)
	e.fd.emitU32(0) // patched once label resolves; see resolver.go fixupLabels
	e.fd.Labels[label].RefList = append(e.fd.Labels[label].RefList, pos+2)
	e.lastOpcodePos = pos
}

// EmitCondJump emits if_true or if_false to label, consuming the top of
// stack.
func (e *Emitter) EmitCondJump(op Opcode, label int) {
	pos := e.opStart()
	e.patchOp(pos, op)
	e.fd.emitU32(0)
	e.fd.Labels[label].RefList = append(e.fd.Labels[label].RefList, pos+2)
	e.lastOpcodePos = pos
}

// EmitGosub emits a gosub to label (the finally-block trampoline call
// used by return/break/continue unwinding and by normal completion of a
// try with a finally clause). Uses the same label-patching site as
// EmitGoto/EmitCondJump so fixupLabels resolves it.
func (e *Emitter) EmitGosub(label int) {
	pos := e.opStart()
	e.patchOp(pos, OpGosub)
	e.fd.emitU32(0)
	e.fd.Labels[label].RefList = append(e.fd.Labels[label].RefList, pos+2)
	e.lastOpcodePos = pos
}

// EmitGetField emits a plain get_field. When the access turns out to be
// a call expression's callee, UpgradeLastGetFieldToMethod rewrites it
// into get_field2, which keeps `this` bound for the call without
// re-evaluating the object.
func (e *Emitter) EmitGetField(a Atom) {
	e.EmitAtom(OpGetField, a)
}

// UpgradeLastGetFieldToMethod rewrites the most recently emitted
// get_field into get_field2 when the parser discovers (one token later,
// on seeing '(') that it was actually the callee of a call expression.
func (e *Emitter) UpgradeLastGetFieldToMethod() bool {
	if e.lastOpcodePos < 0 {
		return false
	}
	op := Opcode(e.fd.Bytecode[e.lastOpcodePos]) | Opcode(e.fd.Bytecode[e.lastOpcodePos+1])<<8
	if op != OpGetField {
		return false
	}
	e.patchOp(e.lastOpcodePos, OpGetField2)
	return true
}

// UpgradeLastGetArrayElToMethod is UpgradeLastGetFieldToMethod's
// computed-key counterpart, for `a[b]()` call expressions.
func (e *Emitter) UpgradeLastGetArrayElToMethod() bool {
	if e.lastOpcodePos < 0 {
		return false
	}
	op := Opcode(e.fd.Bytecode[e.lastOpcodePos]) | Opcode(e.fd.Bytecode[e.lastOpcodePos+1])<<8
	if op != OpGetArrayEl {
		return false
	}
	e.patchOp(e.lastOpcodePos, OpGetArrayEl2)
	return true
}

// EmitScopeGetVar emits the placeholder scope_get_var op the resolver
// later rewrites into a concrete get_loc/get_arg/get_var_ref/get_var
// form. name is the atom looked up; scopeLevel is the FunctionDef scope
// index active at the reference site, which the resolver needs to
// replay the six-step lexical search exactly as the parser saw it.
func (e *Emitter) EmitScopeGetVar(name Atom, scopeLevel int) {
	e.EmitAtom(OpScopeGetVar, name)
	e.fd.emitU32(uint32(scopeLevel))
}

// EmitScopePutVar is EmitScopeGetVar's write-side counterpart.
func (e *Emitter) EmitScopePutVar(name Atom, scopeLevel int) {
	e.EmitAtom(OpScopePutVar, name)
	e.fd.emitU32(uint32(scopeLevel))
}

// EmitScopeDeleteVar emits the placeholder scope_delete_var op the
// resolver rewrites into delete_var or with_delete_var.
func (e *Emitter) EmitScopeDeleteVar(name Atom, scopeLevel int) {
	e.EmitAtom(OpScopeDeleteVar, name)
	e.fd.emitU32(uint32(scopeLevel))
}

// EmitScopePutVarInit is EmitScopePutVar's counterpart for a binding's
// first write (let/const declarators, function parameters, catch
// clauses): the resolver rewrites it into put_loc_check_init /
// put_var_ref_check_init / put_var_init, skipping the "already
// initialized" check the repeated-write forms carry.
func (e *Emitter) EmitScopePutVarInit(name Atom, scopeLevel int) {
	e.EmitAtom(OpScopePutVarInit, name)
	e.fd.emitU32(uint32(scopeLevel))
}

// EmitEnterScope/EmitLeaveScope bracket a lexical block's bytecode range
// so the resolver can find "which scope level was active here" without
// re-running the parser; the disassembler also uses them to indent.
func (e *Emitter) EmitEnterScope(scopeLevel int) {
	e.EmitU32(OpEnterScope, uint32(scopeLevel))
}

func (e *Emitter) EmitLeaveScope(scopeLevel int) {
	e.EmitU32(OpLeaveScope, uint32(scopeLevel))
}

// EmitReturn walks the open BlockEnv stack from innermost to the
// function body root, emitting the iterator_close calls, finally
// gosubs, and stack drops an early return must perform before the
// actual return/return_undef/return_async instruction, then emits that
// instruction. isAsync selects return_async; otherwise hasValue chooses
// between return and return_undef. isGenerator does not change the
// emitted form.
func (e *Emitter) EmitReturn(hasValue bool, isAsync, isGenerator bool) {
	for i := len(e.fd.BlockEnvs) - 1; i >= 0; i-- {
		be := e.fd.BlockEnvs[i]
		for j := 0; j < be.IteratorCloseDepth; j++ {
			e.EmitOp(OpIteratorCloseReturn)
		}
		if be.Kind == BlockFinally && be.HasGosub {
			e.EmitGosub(be.GosubLabel)
		}
		for j := 0; j < be.DropCount; j++ {
			e.EmitOp(OpDrop)
		}
	}
	switch {
	case isAsync:
		e.EmitOp(OpReturnAsync)
	case !hasValue:
		e.EmitOp(OpReturnUndef)
	default:
		e.EmitOp(OpReturn)
	}
}

// EmitLineMark records a source line boundary for the pc2line stream;
// the actual LEB128 encoding happens once at resolution time from the
// (pos, line) pairs accumulated by this call (see errors.go encodePC2Line).
type lineMark struct {
	Pos  int
	Line int
}

func (e *Emitter) EmitLineMark(line int) {
	e.fd.lineMarks = append(e.fd.lineMarks, lineMark{Pos: len(e.fd.Bytecode), Line: line})
}
