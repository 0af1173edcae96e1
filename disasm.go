package jsfe

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Disasm renders fd's bytecode as an indented text listing: one
// instruction per line, indentation tracking enter_scope/leave_scope
// nesting via the block-bracket opcodes. atoms resolves atom operands
// to their source text; pass nil
// to print raw atom indices instead (useful before an AtomTable exists,
// e.g. in a unit test fixture).
func (fd *FunctionDef) Disasm(atoms *AtomTable) string {
	var b strings.Builder
	indent := 0
	code := fd.Bytecode
	pos := 0
	for pos < len(code) {
		op := Opcode(code[pos]) | Opcode(code[pos+1])<<8
		start := pos
		pos += 2

		switch op {
		case OpLeaveScope:
			indent--
		}
		if indent < 0 {
			indent = 0
		}
		fmt.Fprintf(&b, "%s%04d %s", strings.Repeat("  ", indent), start, op.Name())

		switch op {
		case OpScopeGetVar, OpScopePutVar, OpScopeGetVarUndef, OpScopePutVarInit,
			OpScopeDeleteVar, OpScopeGetRef, OpScopeMakeRef,
			OpScopeGetPrivateField, OpScopeGetPrivateField2, OpScopePutPrivateField:
			a := Atom(binary.LittleEndian.Uint32(code[pos:]))
			pos += 4
			level := binary.LittleEndian.Uint32(code[pos:])
			pos += 4
			fmt.Fprintf(&b, " %s scope=%d", atomText(atoms, a), level)
		case OpGetField, OpGetField2, OpPutField, OpDefineField, OpDefineMethod,
			OpDefinePrivateField, OpSetName, OpGetVar, OpPutVar, OpPutVarStrict,
			OpPutVarInit, OpCheckVar, OpDeleteVar, OpMakeVarRef,
			OpWithGetVar, OpWithPutVar, OpWithDeleteVar, OpWithMakeRef,
			OpCheckDefineVar, OpDefineVar, OpDefineFunc, OpPrivateSymbol, OpSetClassName:
			a := Atom(binary.LittleEndian.Uint32(code[pos:]))
			pos += 4
			fmt.Fprintf(&b, " %s", atomText(atoms, a))
		case OpGetLoc, OpPutLoc, OpGetLocCheck, OpPutLocCheck, OpPutLocCheckInit,
			OpGetArg, OpPutArg, OpGetVarRef, OpPutVarRef, OpGetVarRefCheck,
			OpPutVarRefCheck, OpPutVarRefCheckInit, OpMakeLocRef, OpMakeArgRef,
			OpMakeVarRefRef:
			idx := binary.LittleEndian.Uint16(code[pos:])
			pos += 2
			fmt.Fprintf(&b, " #%d", idx)
		case OpPushI32:
			v := int32(binary.LittleEndian.Uint32(code[pos:]))
			pos += 4
			fmt.Fprintf(&b, " %d", v)
		case OpPushConst:
			idx := binary.LittleEndian.Uint32(code[pos:])
			pos += 4
			var lit string
			if int(idx) < len(fd.ConstPool) {
				lit = fmt.Sprintf("%v", fd.ConstPool[idx])
			} else {
				lit = strconv.Itoa(int(idx))
			}
			fmt.Fprintf(&b, " cpool[%d]=%s", idx, lit)
		case OpPushClosure:
			idx := binary.LittleEndian.Uint32(code[pos:])
			pos += 4
			name := "<anonymous>"
			if int(idx) < len(fd.ConstPool) {
				if child, ok := fd.ConstPool[idx].(*FunctionDef); ok && child.Name != AtomNull {
					name = atomText(atoms, child.Name)
				}
			}
			fmt.Fprintf(&b, " closure[%d]=%s", idx, name)
		case OpRegexp:
			idx := binary.LittleEndian.Uint32(code[pos:])
			pos += 4
			fmt.Fprintf(&b, " cpool[%d]", idx)
		case OpDefineClass:
			idx := binary.LittleEndian.Uint32(code[pos:])
			pos += 4
			name := "<anonymous>"
			if int(idx) < len(fd.ConstPool) {
				if child, ok := fd.ConstPool[idx].(*FunctionDef); ok && child.Name != AtomNull {
					name = atomText(atoms, child.Name)
				}
			}
			fmt.Fprintf(&b, " ctor[%d]=%s", idx, name)
		case OpThrowError:
			a := Atom(binary.LittleEndian.Uint32(code[pos:]))
			pos += 4
			reason := code[pos]
			pos++
			fmt.Fprintf(&b, " %s reason=%d", atomText(atoms, a), reason)
		case OpGoto, OpIfTrue, OpIfFalse, OpCatch, OpGosub:
			target := binary.LittleEndian.Uint32(code[pos:])
			pos += 4
			fmt.Fprintf(&b, " -> %04d", target)
		case OpEnterScope, OpLeaveScope, OpCloseLoc, OpSetLocUninitialized:
			v := binary.LittleEndian.Uint32(code[pos:])
			pos += 4
			fmt.Fprintf(&b, " %d", v)
		case OpCall, OpCallMethod, OpCallConstructor, OpArrayFrom:
			if pos+2 <= len(code) {
				argc := binary.LittleEndian.Uint16(code[pos:])
				pos += 2
				fmt.Fprintf(&b, " argc=%d", argc)
			}
		}
		b.WriteByte('\n')

		switch op {
		case OpEnterScope:
			indent++
		}
	}
	return b.String()
}

func atomText(atoms *AtomTable, a Atom) string {
	if atoms == nil {
		return fmt.Sprintf("atom#%d", uint32(a))
	}
	if n, ok := a.IntValue(); ok {
		return strconv.FormatUint(uint64(n), 10)
	}
	return strconv.Quote(atoms.GetStrDebug(a, 64))
}

// DisasmTree renders fd and every descendant FunctionDef (nested
// function/arrow/method/class-field-initializer bodies), each under a
// header naming its kind and source position, depth-first in
// declaration order.
func (fd *FunctionDef) DisasmTree(atoms *AtomTable) string {
	var b strings.Builder
	fd.disasmTreeInto(&b, atoms, 0)
	return b.String()
}

func (fd *FunctionDef) disasmTreeInto(b *strings.Builder, atoms *AtomTable, depth int) {
	prefix := strings.Repeat("  ", depth)
	name := "<anonymous>"
	if fd.Name != AtomNull {
		name = atomText(atoms, fd.Name)
	}
	fmt.Fprintf(b, "%sfunction %s (kind=%d, args=%d, vars=%d, closures=%d)\n",
		prefix, name, fd.Kind, len(fd.Args), len(fd.Vars), len(fd.Closures))
	for _, line := range strings.Split(strings.TrimRight(fd.Disasm(atoms), "\n"), "\n") {
		b.WriteString(prefix)
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, child := range fd.Children {
		child.disasmTreeInto(b, atoms, depth+1)
	}
}
