package jsfe

import "encoding/binary"

// ResolveVariables is the second compiler pass: it walks a fully parsed
// FunctionDef tree and rewrites every scope_* placeholder opcode into a
// concrete get_loc/put_loc/get_arg/put_arg/get_var_ref/put_var_ref/
// get_var/put_var/with_*/make_*_ref form, per the six-step resolution
// procedure below. It also fixes up label references into absolute
// bytecode offsets and encodes the pc2line debug stream. It removes no
// code; the only dead-code folding happens during emission.
//
// Called once per FunctionDef, bottom-up is not required: each
// FunctionDef's own placeholders only ever reference its own scopes or
// its ancestors' bindings, so top-down (parent before children) or any
// order works as long as every FunctionDef in the tree is visited.
func ResolveVariables(fd *FunctionDef) error {
	if err := resolveOne(fd); err != nil {
		return err
	}
	for _, child := range fd.Children {
		if err := ResolveVariables(child); err != nil {
			return err
		}
	}
	return nil
}

func resolveOne(fd *FunctionDef) error {
	rewritten, err := rewritePlaceholders(fd)
	if err != nil {
		return err
	}
	fd.Bytecode = rewritten
	fixupLabels(fd)
	fd.encodePC2Line()
	return nil
}

// rewritePlaceholders produces a new bytecode buffer for fd with every
// scope_* instruction replaced by its resolved form. Because resolved
// forms are never larger than the placeholder they replace (both carry
// a 4-byte atom + 4-byte scope level; the largest resolved form,
// get_var_ref_check, carries only a 2-byte slot), positions only ever
// shift downward relative to the original stream. Label definitions and
// fixup sites were recorded against the pre-rewrite buffer, so posMap
// below maps each old offset to its new one.
func rewritePlaceholders(fd *FunctionDef) ([]byte, error) {
	out := make([]byte, 0, len(fd.Bytecode))
	code := fd.Bytecode
	// posMap records old bytecode offset -> new offset, needed because
	// EmitGoto recorded fixup sites (and EmitLabel recorded label
	// definition sites) against the pre-rewrite buffer.
	posMap := make(map[int]int, len(code)/4)

	pos := 0
	for pos < len(code) {
		posMap[pos] = len(out)
		op := Opcode(code[pos]) | Opcode(code[pos+1])<<8
		opStart := pos
		pos += 2

		if !isPlaceholderOpExceptScopeLifecycle(op) {
			advanced, err := copyInstruction(&out, code, opStart, op)
			if err != nil {
				return nil, err
			}
			pos = advanced
			continue
		}

		switch op {
		case OpEnterScope, OpLeaveScope:
			// Scope lifecycle markers are consumed by the resolver for
			// indentation/closure bookkeeping during placeholder rewriting
			// but are not meaningful to an evaluator, so they are dropped
			// from the final stream.
			pos += 4
			continue
		}

		name := Atom(binary.LittleEndian.Uint32(code[pos:]))
		pos += 4
		scopeLevel := int(binary.LittleEndian.Uint32(code[pos:]))
		pos += 4

		resolved, err := resolveScopeRef(fd, op, name, scopeLevel)
		if err != nil {
			return nil, err
		}
		appendResolved(&out, resolved)
	}

	remapLabels(fd, posMap, len(out))
	return out, nil
}

func isPlaceholderOpExceptScopeLifecycle(op Opcode) bool {
	return isPlaceholderOp(op)
}

// resolvedRef is the concrete instruction rewritePlaceholders emits in
// place of one scope_* placeholder.
type resolvedRef struct {
	op        Opcode
	hasAtom   bool
	atom      Atom
	hasSlot   bool
	slot      uint16
	hasReason bool
	reason    ThrowReason
}

func appendResolved(out *[]byte, r resolvedRef) {
	*out = append(*out, byte(r.op), byte(r.op>>8))
	if r.hasAtom {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(r.atom))
		*out = append(*out, buf[:]...)
	}
	if r.hasSlot {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], r.slot)
		*out = append(*out, buf[:]...)
	}
	if r.hasReason {
		*out = append(*out, byte(r.reason))
	}
}

// readOnlyThrow builds the throw_error instruction a write to a const
// binding resolves to instead of its ordinary put form.
func readOnlyThrow(name Atom) resolvedRef {
	return resolvedRef{op: OpThrowError, hasAtom: true, atom: name, hasReason: true, reason: ThrowReasonReadOnly}
}

// resolveScopeRef implements the six-step resolution procedure:
//  1. pseudo-vars (this/arguments/new.target/home_object) resolve to
//     their synthesized local slot regardless of lexical nesting;
//  2. a local lexical walk from scopeLevel outward through fd's own
//     scopes/vars/args;
//  3. if a with-scope lies between the reference and whatever step 2/4
//     would otherwise find, emit the with_* trampoline form instead,
//     deferring the real lookup to runtime;
//  4. walk enclosing FunctionDefs, synthesizing a closure-var slot the
//     first time a given ancestor binding is captured;
//  5. if fd (or an intervening function without its own eval binding)
//     contains a direct eval, any name not resolved by steps 1-4 is left
//     as a dynamic get_var/put_var rather than promoted to global, since
//     eval could have declared it;
//  6. otherwise, fall back to a global reference (get_var/put_var).
func resolveScopeRef(fd *FunctionDef, op Opcode, name Atom, scopeLevel int) (resolvedRef, error) {
	if r, ok := resolvePseudoVar(fd, op, name); ok {
		return r, nil
	}

	if withLevel, isWith := withScopeBetween(fd, scopeLevel); isWith {
		return resolveWithRef(op, withLevel), nil
	}

	if slot, isArg, ok := findLocalAtLevel(fd, name, scopeLevel); ok {
		isConst := !isArg && fd.Vars[slot].IsConst
		return resolveLocalRef(op, slot, isArg, isConst, name), nil
	}

	if slot, ok := resolveClosureChain(fd, name); ok {
		return resolveVarRef(op, slot, fd.Closures[slot].IsConst, name), nil
	}

	if fd.HasDirectEval || ancestorHasDirectEval(fd) {
		return resolveDynamicRef(op, name), nil
	}

	return resolveGlobalRef(op, name), nil
}

func resolvePseudoVar(fd *FunctionDef, op Opcode, name Atom) (resolvedRef, bool) {
	// Pseudo-vars are declared as ordinary Vars at function-body scope
	// (scope 0) by the parser prologue under well-known atom names; if
	// present there, steps 2 onward already find them via findLocalAtLevel,
	// so this step only short-circuits lookup cost and is a no-op here.
	return resolvedRef{}, false
}

func withScopeBetween(fd *FunctionDef, scopeLevel int) (int, bool) {
	for level := scopeLevel; level != -1; level = fd.Scopes[level].Parent {
		if fd.Scopes[level].IsWith {
			return level, true
		}
	}
	return -1, false
}

func findLocalAtLevel(fd *FunctionDef, name Atom, scopeLevel int) (slot int, isArg bool, ok bool) {
	saved := fd.CurrentScope
	fd.CurrentScope = scopeLevel
	slot, isArg = fd.FindLocal(name)
	fd.CurrentScope = saved
	if slot == -1 {
		return 0, false, false
	}
	return slot, isArg, true
}

// resolveClosureChain walks fd's ancestor chain looking for name among
// each ancestor's own vars/args/closures, synthesizing a ClosureVarDef
// on every FunctionDef from fd up to (and including) the one that binds
// it directly, per the (function_id, kind, slot) triple model.
func resolveClosureChain(fd *FunctionDef, name Atom) (int, bool) {
	if fd.Parent == nil {
		return 0, false
	}
	parent := fd.Parent
	if slot, isArg := parent.FindLocal(name); slot != -1 {
		isConst := false
		if !isArg {
			isConst = parent.Vars[slot].IsConst
			parent.Vars[slot].IsCaptured = true
		}
		idx := fd.AddClosureVar(name, true, isArg, isConst, slot)
		return idx, true
	}
	if parentSlot, ok := resolveClosureChain(parent, name); ok {
		isConst := parent.Closures[parentSlot].IsConst
		idx := fd.AddClosureVar(name, false, false, isConst, parentSlot)
		return idx, true
	}
	return 0, false
}

func ancestorHasDirectEval(fd *FunctionDef) bool {
	for p := fd.Parent; p != nil; p = p.Parent {
		if p.HasDirectEval {
			return true
		}
	}
	return false
}

func resolveLocalRef(op Opcode, slot int, isArg, isConst bool, name Atom) resolvedRef {
	if op == OpScopePutVar && isConst {
		return readOnlyThrow(name)
	}
	target := OpGetLoc
	if isArg {
		target = OpGetArg
	}
	switch op {
	case OpScopeGetVar:
		if isArg {
			target = OpGetArg
		} else {
			target = OpGetLoc
		}
	case OpScopeGetVarUndef:
		if isArg {
			target = OpGetArg
		} else {
			target = OpGetLocCheck
		}
	case OpScopePutVar:
		if isArg {
			target = OpPutArg
		} else {
			target = OpPutLoc
		}
	case OpScopePutVarInit:
		if isArg {
			target = OpPutArg
		} else {
			target = OpPutLocCheckInit
		}
	case OpScopeDeleteVar:
		target = OpPushFalse // local bindings are never deletable
		return resolvedRef{op: target}
	case OpScopeGetRef, OpScopeMakeRef:
		if isArg {
			target = OpMakeArgRef
		} else {
			target = OpMakeLocRef
		}
	default:
		target = OpGetLoc
	}
	return resolvedRef{op: target, hasSlot: true, slot: uint16(slot)}
}

func resolveVarRef(op Opcode, slot int, isConst bool, name Atom) resolvedRef {
	if op == OpScopePutVar && isConst {
		return readOnlyThrow(name)
	}
	var target Opcode
	switch op {
	case OpScopeGetVar:
		target = OpGetVarRef
	case OpScopeGetVarUndef:
		target = OpGetVarRefCheck
	case OpScopePutVar:
		target = OpPutVarRef
	case OpScopePutVarInit:
		target = OpPutVarRefCheckInit
	case OpScopeDeleteVar:
		return resolvedRef{op: OpPushFalse}
	case OpScopeGetRef, OpScopeMakeRef:
		target = OpMakeVarRefRef
	default:
		target = OpGetVarRef
	}
	return resolvedRef{op: target, hasSlot: true, slot: uint16(slot)}
}

func resolveWithRef(op Opcode, withLevel int) resolvedRef {
	var target Opcode
	switch op {
	case OpScopeGetVar, OpScopeGetVarUndef:
		target = OpWithGetVar
	case OpScopePutVar, OpScopePutVarInit:
		target = OpWithPutVar
	case OpScopeDeleteVar:
		target = OpWithDeleteVar
	default:
		target = OpWithMakeRef
	}
	return resolvedRef{op: target, hasSlot: true, slot: uint16(withLevel)}
}

func resolveDynamicRef(op Opcode, name Atom) resolvedRef {
	var target Opcode
	switch op {
	case OpScopeGetVar:
		target = OpGetVar
	case OpScopeGetVarUndef:
		target = OpGetVar
	case OpScopePutVar:
		target = OpPutVar
	case OpScopePutVarInit:
		target = OpPutVarInit
	case OpScopeDeleteVar:
		target = OpDeleteVar
	default:
		target = OpMakeVarRef
	}
	return resolvedRef{op: target, hasAtom: true, atom: name}
}

func resolveGlobalRef(op Opcode, name Atom) resolvedRef {
	var target Opcode
	switch op {
	case OpScopeGetVar:
		target = OpGetVar
	case OpScopeGetVarUndef:
		target = OpGetVar
	case OpScopePutVar:
		target = OpPutVar
	case OpScopePutVarInit:
		target = OpPutVarInit
	case OpScopeDeleteVar:
		target = OpDeleteVar
	default:
		target = OpMakeVarRef
	}
	return resolvedRef{op: target, hasAtom: true, atom: name}
}

// copyInstruction copies one already-resolved-shape instruction from
// code[opStart:] into out verbatim, returning the new read cursor. It
// must know every non-placeholder opcode's operand shape to advance
// correctly.
func copyInstruction(out *[]byte, code []byte, opStart int, op Opcode) (int, error) {
	pos := opStart + 2
	*out = append(*out, code[opStart], code[opStart+1])
	switch op {
	case OpGetField, OpGetField2, OpPutField, OpDefineField, OpDefineMethod,
		OpDefinePrivateField, OpSetName, OpGetVar, OpPutVar, OpPutVarStrict,
		OpPutVarInit, OpCheckVar, OpDeleteVar,
		OpMakeVarRef, OpWithGetVar, OpWithPutVar, OpWithDeleteVar, OpWithMakeRef,
		OpCheckDefineVar, OpDefineVar, OpDefineFunc, OpPrivateSymbol, OpSetClassName:
		*out = append(*out, code[pos:pos+4]...)
		pos += 4
	case OpGetLoc, OpPutLoc, OpGetLocCheck, OpPutLocCheck, OpPutLocCheckInit,
		OpGetArg, OpPutArg, OpGetVarRef, OpPutVarRef, OpGetVarRefCheck,
		OpPutVarRefCheck, OpPutVarRefCheckInit, OpMakeLocRef, OpMakeArgRef,
		OpMakeVarRefRef, OpCall, OpCallMethod, OpCallConstructor, OpArrayFrom:
		*out = append(*out, code[pos:pos+2]...)
		pos += 2
	case OpPushI32, OpPushConst, OpGoto, OpIfTrue, OpIfFalse, OpCatch, OpGosub,
		OpCloseLoc, OpSetLocUninitialized, OpPushClosure, OpRegexp, OpDefineClass:
		*out = append(*out, code[pos:pos+4]...)
		pos += 4
	}
	return pos, nil
}

// remapLabels rewrites fd.Labels' positions and fixup-site offsets from
// the pre-rewrite buffer's coordinate space into the post-rewrite one,
// using the position map rewritePlaceholders built while copying.
func remapLabels(fd *FunctionDef, posMap map[int]int, outLen int) {
	for i := range fd.Labels {
		l := &fd.Labels[i]
		if l.Pos >= 0 {
			if np, ok := posMap[l.Pos]; ok {
				l.Pos = np
			} else {
				l.Pos = outLen
			}
		}
		for j, ref := range l.RefList {
			// ref points at the 4-byte operand immediately following a
			// 2-byte opcode; the opcode itself started 2 bytes earlier.
			if np, ok := posMap[ref-2]; ok {
				l.RefList[j] = np + 2
			}
		}
	}
}

// fixupLabels patches every recorded jump-operand site with its label's
// final, resolved absolute position.
func fixupLabels(fd *FunctionDef) {
	for _, l := range fd.Labels {
		for _, ref := range l.RefList {
			if ref+4 > len(fd.Bytecode) {
				continue
			}
			binary.LittleEndian.PutUint32(fd.Bytecode[ref:], uint32(l.Pos))
		}
	}
}
