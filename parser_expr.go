package jsfe

// exprFlags threads grammar restrictions through the precedence ladder:
// whether `in` is accepted at the relational level (suppressed inside a
// for-statement header). The rule that `**`'s left operand may not be a
// bare unary expression is checked in parseExponent, not carried here.
type exprFlags struct {
	noIn bool
}

// parseExpression parses the comma operator at the top of the ladder.
func (p *ParserState) parseExpression(f exprFlags) error {
	if err := p.parseAssignment(f); err != nil {
		return err
	}
	for {
		ok, err := p.consumePunct(PunctComma)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		p.em.EmitOp(OpDrop)
		if err := p.parseAssignment(f); err != nil {
			return err
		}
	}
}

// parseAssignment handles the full assignment-operator family plus
// arrow-function and yield disambiguation, deferring to
// parseConditional for everything below it.
func (p *ParserState) parseAssignment(f exprFlags) error {
	if p.inGenerator && p.cur.IsKeyword("yield") {
		return p.parseYield(f)
	}

	if isArrow, err := p.tryParseArrowFunction(f); err != nil {
		return err
	} else if isArrow {
		return nil
	}

	if err := p.parseConditional(f); err != nil {
		return err
	}

	if op, isAssign := assignPunctOp(p.cur.Punct); p.cur.Kind == TokPunct && isAssign {
		target := p.lastAssignTarget
		if target.kind == targetNone {
			return p.syntaxErrorf("invalid assignment target")
		}
		if err := p.next(); err != nil {
			return err
		}
		if op == PunctEq {
			if err := p.parseAssignment(f); err != nil {
				return err
			}
		} else if shortCircuitLogicalAssign(op) {
			// Logical assignment (&&=, ||=, ??=) only evaluates and
			// stores the right-hand side when the short-circuit test
			// passes, so it needs its own branch rather than the plain
			// "compute both sides, combine" shape every arithmetic
			// compound assignment shares.
			if err := p.parseShortCircuitAssign(f, op, target); err != nil {
				return err
			}
			p.lastAssignTarget = assignTarget{}
			return nil
		} else {
			if err := p.parseAssignment(f); err != nil {
				return err
			}
			p.emitCompoundOp(op)
		}
		p.emitAssignToKeepValue(target)
		p.lastAssignTarget = assignTarget{}
	}
	return nil
}

// assignTarget records enough about the left-hand side of an assignment
// for emitAssignToKeepValue to emit the matching write instead of a
// read: parsePrimary/parseLHSExpression fill this in as they parse an
// identifier or the final step of a member chain, since by that point
// the object (and, for computed access, the key) are already sitting on
// the value stack in the order a store needs them.
type assignTarget struct {
	kind  assignTargetKind
	name  Atom
	level int
}

type assignTargetKind uint8

const (
	targetNone assignTargetKind = iota
	targetIdent
	targetMember // obj on stack beneath the loaded value
	targetIndex  // obj, key on stack beneath the loaded value
)

// emitAssignToKeepValue stores the value on top of the stack into t,
// leaving a copy of the stored value on the stack afterward (assignment
// is an expression; its result is the assigned value). Member/index
// targets use insert2/insert3 to slide that copy underneath the
// object/key operands a put needs, rather than a plain dup, since the
// object and key are still on the stack below the value at this point.
func (p *ParserState) emitAssignToKeepValue(t assignTarget) {
	switch t.kind {
	case targetIdent:
		p.em.EmitOp(OpDup)
		p.em.EmitScopePutVar(t.name, t.level)
	case targetMember:
		p.em.EmitOp(OpInsert2)
		p.em.EmitAtom(OpPutField, t.name)
	case targetIndex:
		p.em.EmitOp(OpInsert3)
		p.em.EmitOp(OpDefineArrayEl)
	}
}

func shortCircuitLogicalAssign(op Punct) bool {
	switch op {
	case PunctAmpAmpEq, PunctPipePipeEq, PunctQuestionQuestionEq:
		return true
	}
	return false
}

// parseShortCircuitAssign implements &&=, ||=, ??=: target's current
// value is already on the stack (from the read parseConditional just
// emitted, with any object/key it needs for a later store sitting
// beneath it). This tests a throwaway copy, and only parses/stores the
// right-hand side along the branch where the assignment actually fires;
// the branch that skips the store still has to collapse the lingering
// object/key down to the bare value so both branches reach the join
// point with the same stack shape.
func (p *ParserState) parseShortCircuitAssign(f exprFlags, op Punct, target assignTarget) error {
	skip := p.fd.NewLabel()
	end := p.fd.NewLabel()
	p.em.EmitOp(OpDup)
	switch op {
	case PunctAmpAmpEq:
		p.em.EmitCondJump(OpIfFalse, skip)
	case PunctPipePipeEq:
		p.em.EmitCondJump(OpIfTrue, skip)
	case PunctQuestionQuestionEq:
		p.em.EmitOp(OpIsUndefinedOrNull)
		p.em.EmitCondJump(OpIfFalse, skip)
	}
	p.em.EmitOp(OpDrop)
	if err := p.parseAssignment(f); err != nil {
		return err
	}
	p.emitAssignToKeepValue(target)
	p.em.EmitGoto(end)
	p.em.EmitLabel(skip)
	switch target.kind {
	case targetMember:
		p.em.EmitOp(OpNip)
	case targetIndex:
		p.em.EmitOp(OpNip)
		p.em.EmitOp(OpNip)
	}
	p.em.EmitLabel(end)
	return nil
}

func assignPunctOp(p Punct) (Punct, bool) {
	switch p {
	case PunctEq, PunctPlusEq, PunctMinusEq, PunctStarEq, PunctPercentEq, PunctStarStarEq,
		PunctShlEq, PunctSarEq, PunctShrEq, PunctAmpEq, PunctPipeEq, PunctCaretEq,
		PunctAmpAmpEq, PunctPipePipeEq, PunctQuestionQuestionEq:
		return p, true
	}
	return 0, false
}

func (p *ParserState) emitCompoundOp(op Punct) {
	switch op {
	case PunctPlusEq:
		p.em.EmitOp(OpAdd)
	case PunctMinusEq:
		p.em.EmitOp(OpSub)
	case PunctStarEq:
		p.em.EmitOp(OpMul)
	case PunctPercentEq:
		p.em.EmitOp(OpMod)
	case PunctStarStarEq:
		p.em.EmitOp(OpPow)
	case PunctShlEq:
		p.em.EmitOp(OpShl)
	case PunctSarEq:
		p.em.EmitOp(OpSar)
	case PunctShrEq:
		p.em.EmitOp(OpShr)
	case PunctAmpEq:
		p.em.EmitOp(OpAnd)
	case PunctPipeEq:
		p.em.EmitOp(OpOr)
	case PunctCaretEq:
		p.em.EmitOp(OpXor)
	}
}

// parseYield parses `yield` / `yield expr` / `yield* expr`.
func (p *ParserState) parseYield(f exprFlags) error {
	if err := p.next(); err != nil {
		return err
	}
	star, err := p.consumePunct(PunctStar)
	if err != nil {
		return err
	}
	if star {
		if err := p.parseAssignment(f); err != nil {
			return err
		}
		p.em.EmitOp(OpYieldStar)
		return nil
	}
	if p.cur.GotLF || p.atStatementEnd() || p.cur.IsPunct(PunctRParen) || p.cur.IsPunct(PunctComma) {
		p.em.EmitOp(OpUndefined)
		p.em.EmitOp(OpYield)
		return nil
	}
	if err := p.parseAssignment(f); err != nil {
		return err
	}
	p.em.EmitOp(OpYield)
	return nil
}

// parseConditional parses the ternary operator.
func (p *ParserState) parseConditional(f exprFlags) error {
	if err := p.parseNullishOr(f); err != nil {
		return err
	}
	ok, err := p.consumePunct(PunctQuestion)
	if err != nil || !ok {
		return err
	}
	elseLabel := p.fd.NewLabel()
	endLabel := p.fd.NewLabel()
	p.em.EmitCondJump(OpIfFalse, elseLabel)
	if err := p.parseAssignment(exprFlags{}); err != nil {
		return err
	}
	p.em.EmitGoto(endLabel)
	if err := p.expectPunct(PunctColon); err != nil {
		return err
	}
	p.em.EmitLabel(elseLabel)
	if err := p.parseAssignment(f); err != nil {
		return err
	}
	p.em.EmitLabel(endLabel)
	p.lastAssignTarget = assignTarget{}
	return nil
}

// binaryLevel is one rung of the precedence ladder below the
// short-circuiting/ternary operators: a set of punctuators/keywords at
// the same precedence, left-associative, plus the next-tighter parse
// function to call for operands.
type binaryLevel struct {
	ops  []Punct
	kw   string // "in"/"instanceof", matched via IsKeyword instead of Punct
	next func(*ParserState, exprFlags) error
	emit func(*Emitter, Punct)
}

func (p *ParserState) parseNullishOr(f exprFlags) error {
	if err := p.parseLogicalOr(f); err != nil {
		return err
	}
	for p.cur.IsPunct(PunctQuestionQuestion) {
		if err := p.next(); err != nil {
			return err
		}
		shortCircuit := p.fd.NewLabel()
		p.em.EmitOp(OpDup)
		p.em.EmitOp(OpIsUndefinedOrNull)
		p.em.EmitCondJump(OpIfFalse, shortCircuit)
		p.em.EmitOp(OpDrop)
		if err := p.parseLogicalOr(f); err != nil {
			return err
		}
		p.em.EmitLabel(shortCircuit)
	}
	p.lastAssignTarget = assignTarget{}
	return nil
}

func (p *ParserState) parseLogicalOr(f exprFlags) error {
	if err := p.parseLogicalAnd(f); err != nil {
		return err
	}
	for p.cur.IsPunct(PunctPipePipe) {
		if err := p.next(); err != nil {
			return err
		}
		shortCircuit := p.fd.NewLabel()
		p.em.EmitOp(OpDup)
		p.em.EmitCondJump(OpIfTrue, shortCircuit)
		p.em.EmitOp(OpDrop)
		if err := p.parseLogicalAnd(f); err != nil {
			return err
		}
		p.em.EmitLabel(shortCircuit)
	}
	p.lastAssignTarget = assignTarget{}
	return nil
}

func (p *ParserState) parseLogicalAnd(f exprFlags) error {
	if err := p.parseBitOr(f); err != nil {
		return err
	}
	for p.cur.IsPunct(PunctAmpAmp) {
		if err := p.next(); err != nil {
			return err
		}
		shortCircuit := p.fd.NewLabel()
		p.em.EmitOp(OpDup)
		p.em.EmitCondJump(OpIfFalse, shortCircuit)
		p.em.EmitOp(OpDrop)
		if err := p.parseBitOr(f); err != nil {
			return err
		}
		p.em.EmitLabel(shortCircuit)
	}
	p.lastAssignTarget = assignTarget{}
	return nil
}

func (p *ParserState) parseBitOr(f exprFlags) error {
	return p.parseLeftAssocBinary(f, []Punct{PunctPipe}, "", p.parseBitXor, func(op Punct) Opcode { return OpOr })
}

func (p *ParserState) parseBitXor(f exprFlags) error {
	return p.parseLeftAssocBinary(f, []Punct{PunctCaret}, "", p.parseBitAnd, func(op Punct) Opcode { return OpXor })
}

func (p *ParserState) parseBitAnd(f exprFlags) error {
	return p.parseLeftAssocBinary(f, []Punct{PunctAmp}, "", p.parseEquality, func(op Punct) Opcode { return OpAnd })
}

func (p *ParserState) parseEquality(f exprFlags) error {
	return p.parseLeftAssocBinary(f, []Punct{PunctEqEq, PunctNeqEq, PunctEqEqEq, PunctNeqEqEq}, "", p.parseRelational, equalityOpcode)
}

func equalityOpcode(op Punct) Opcode {
	switch op {
	case PunctEqEq:
		return OpEq
	case PunctNeqEq:
		return OpNeq
	case PunctEqEqEq:
		return OpStrictEq
	default:
		return OpStrictNeq
	}
}

func (p *ParserState) parseRelational(f exprFlags) error {
	if err := p.parseShift(exprFlags{}); err != nil {
		return err
	}
	for {
		var opc Opcode
		matched := true
		switch {
		case p.cur.IsPunct(PunctLt):
			opc = OpLt
		case p.cur.IsPunct(PunctGt):
			opc = OpGt
		case p.cur.IsPunct(PunctLte):
			opc = OpLte
		case p.cur.IsPunct(PunctGte):
			opc = OpGte
		case p.cur.IsKeyword("instanceof"):
			opc = OpInstanceof
		case !f.noIn && p.cur.IsKeyword("in"):
			opc = OpIn
		default:
			matched = false
		}
		if !matched {
			return nil
		}
		if err := p.next(); err != nil {
			return err
		}
		if err := p.parseShift(exprFlags{}); err != nil {
			return err
		}
		p.em.EmitOp(opc)
		p.lastAssignTarget = assignTarget{}
	}
}

func (p *ParserState) parseShift(f exprFlags) error {
	return p.parseLeftAssocBinary(f, []Punct{PunctShl, PunctSar, PunctShr}, "", p.parseAdditive, shiftOpcode)
}

func shiftOpcode(op Punct) Opcode {
	switch op {
	case PunctShl:
		return OpShl
	case PunctSar:
		return OpSar
	default:
		return OpShr
	}
}

func (p *ParserState) parseAdditive(f exprFlags) error {
	return p.parseLeftAssocBinary(f, []Punct{PunctPlus, PunctMinus}, "", p.parseMultiplicative, addOpcode)
}

func addOpcode(op Punct) Opcode {
	if op == PunctPlus {
		return OpAdd
	}
	return OpSub
}

func (p *ParserState) parseMultiplicative(f exprFlags) error {
	return p.parseLeftAssocBinary(f, []Punct{PunctStar, PunctSlash, PunctPercent}, "", p.parseExponent, mulOpcode)
}

func mulOpcode(op Punct) Opcode {
	switch op {
	case PunctStar:
		return OpMul
	case PunctSlash:
		return OpDiv
	default:
		return OpMod
	}
}

// parseExponent handles `**`'s right-associativity and the
// bare-unary-on-the-left restriction: `typeof x ** 2` and `-x ** 2` are
// both SyntaxErrors; only a parenthesized or postfix-form left operand
// is allowed.
func (p *ParserState) parseExponent(f exprFlags) error {
	wasUnary := p.cur.IsPunct(PunctPlus) || p.cur.IsPunct(PunctMinus) || p.cur.IsPunct(PunctTilde) ||
		p.cur.IsPunct(PunctBang) || p.cur.IsKeyword("typeof") || p.cur.IsKeyword("void") || p.cur.IsKeyword("delete")
	if err := p.parseUnary(f); err != nil {
		return err
	}
	if p.cur.IsPunct(PunctStarStar) {
		if wasUnary {
			return p.syntaxErrorf("unary operator used immediately before exponentiation expression")
		}
		if err := p.next(); err != nil {
			return err
		}
		if err := p.parseExponent(f); err != nil {
			return err
		}
		p.em.EmitOp(OpPow)
		p.lastAssignTarget = assignTarget{}
	}
	return nil
}

func (p *ParserState) parseLeftAssocBinary(f exprFlags, ops []Punct, kw string, next func(exprFlags) error, toOpcode func(Punct) Opcode) error {
	if err := next(f); err != nil {
		return err
	}
	for {
		matched := Punct(0)
		for _, op := range ops {
			if p.cur.IsPunct(op) {
				matched = op
				break
			}
		}
		if matched == 0 {
			return nil
		}
		if err := p.next(); err != nil {
			return err
		}
		if err := next(f); err != nil {
			return err
		}
		p.em.EmitOp(toOpcode(matched))
		p.lastAssignTarget = assignTarget{}
	}
}

// parseUnary handles prefix operators (including prefix ++/--, unary
// +/-/~/!, typeof/void/delete, and await).
func (p *ParserState) parseUnary(f exprFlags) error {
	switch {
	case p.cur.IsPunct(PunctPlus):
		return p.parseUnaryOp(f, OpPlus)
	case p.cur.IsPunct(PunctMinus):
		return p.parseUnaryOp(f, OpNeg)
	case p.cur.IsPunct(PunctTilde):
		return p.parseUnaryOp(f, OpNot)
	case p.cur.IsPunct(PunctBang):
		return p.parseUnaryOp(f, OpLNot)
	case p.cur.IsKeyword("typeof"):
		return p.parseUnaryOp(f, OpTypeof)
	case p.cur.IsKeyword("void"):
		return p.parseUnaryOp(f, 0) // special-cased below
	case p.cur.IsKeyword("delete"):
		return p.parseDelete(f)
	case p.cur.IsPunct(PunctPlusPlus), p.cur.IsPunct(PunctMinusMinus):
		return p.parsePrefixIncDec(f)
	case p.inAsync && p.cur.IsKeyword("await"):
		return p.parseAwait(f)
	}
	return p.parsePostfix(f)
}

func (p *ParserState) parseUnaryOp(f exprFlags, op Opcode) error {
	isVoid := p.cur.IsKeyword("void")
	if err := p.next(); err != nil {
		return err
	}
	if err := p.parseUnary(exprFlags{}); err != nil {
		return err
	}
	if isVoid {
		p.em.EmitOp(OpDrop)
		p.em.EmitOp(OpUndefined)
	} else {
		p.em.EmitOp(op)
	}
	p.lastAssignTarget = assignTarget{}
	return nil
}

// parseDelete parses `delete expr`. Deleting a member access removes
// the property (stack already holds [obj, value]; the value is dropped
// and obj consulted by OpDelete); deleting a bare identifier reduces to
// scope_delete_var; anything else (a literal, a call result, ...) has
// no binding to remove and always succeeds per spec, so its value is
// just discarded in favor of `true`.
func (p *ParserState) parseDelete(f exprFlags) error {
	if err := p.next(); err != nil {
		return err
	}
	if err := p.parseUnary(exprFlags{}); err != nil {
		return err
	}
	switch {
	case p.lastAssignTarget.kind == targetMember, p.lastAssignTarget.kind == targetIndex,
		p.em.UpgradeLastGetFieldToMethod(), p.em.UpgradeLastGetArrayElToMethod():
		p.em.EmitOp(OpDelete)
	case p.lastAssignTarget.kind == targetIdent:
		p.em.EmitOp(OpDrop)
		p.em.EmitScopeDeleteVar(p.lastAssignTarget.name, p.lastAssignTarget.level)
	default:
		p.em.EmitOp(OpDrop)
		p.em.EmitOp(OpPushTrue)
	}
	p.lastAssignTarget = assignTarget{}
	return nil
}

// parsePrefixIncDec parses ++x / --x: the operand's current value is
// already on the stack (with any object/key it needs for a store
// beneath it), so incrementing in place and re-storing with the
// keep-value form yields exactly the prefix result.
func (p *ParserState) parsePrefixIncDec(f exprFlags) error {
	isInc := p.cur.IsPunct(PunctPlusPlus)
	if err := p.next(); err != nil {
		return err
	}
	if err := p.parseUnary(exprFlags{}); err != nil {
		return err
	}
	target := p.lastAssignTarget
	if target.kind == targetNone {
		return p.syntaxErrorf("invalid increment/decrement target")
	}
	if isInc {
		p.em.EmitOp(OpInc)
	} else {
		p.em.EmitOp(OpDec)
	}
	p.emitAssignToKeepValue(target)
	p.lastAssignTarget = assignTarget{}
	return nil
}

// emitAssignDiscard stores the value on top of the stack into t without
// preserving a copy afterward (the postfix ++/-- parsers arrange for
// the value they want to keep to already be buried underneath before
// calling this).
func (p *ParserState) emitAssignDiscard(t assignTarget) {
	switch t.kind {
	case targetIdent:
		p.em.EmitScopePutVar(t.name, t.level)
	case targetMember:
		p.em.EmitAtom(OpPutField, t.name)
	case targetIndex:
		p.em.EmitOp(OpDefineArrayEl)
	}
}

func (p *ParserState) parseAwait(f exprFlags) error {
	if err := p.next(); err != nil {
		return err
	}
	if err := p.parseUnary(exprFlags{}); err != nil {
		return err
	}
	p.em.EmitOp(OpAwait)
	p.lastAssignTarget = assignTarget{}
	return nil
}

// parsePostfix parses LHS expressions plus trailing postfix ++/--
// (which, unlike the prefix forms, are subject to a no-line-terminator
// restriction against the operand). Postfix must yield the operand's
// pre-increment value, so for a bare identifier it uses the dedicated
// post_inc/post_dec forms (which duplicate-then-increment in one op);
// for a member/index target, the object/key are already on the stack
// beneath the loaded value, so the old value is buried under them with
// insert2/insert3 before the (plain) increment and store.
func (p *ParserState) parsePostfix(f exprFlags) error {
	if err := p.parseLHSExpression(f); err != nil {
		return err
	}
	if (p.cur.IsPunct(PunctPlusPlus) || p.cur.IsPunct(PunctMinusMinus)) && !p.cur.GotLF {
		isInc := p.cur.IsPunct(PunctPlusPlus)
		target := p.lastAssignTarget
		if target.kind == targetNone {
			return p.syntaxErrorf("invalid increment/decrement target")
		}
		if err := p.next(); err != nil {
			return err
		}
		switch target.kind {
		case targetIdent:
			if isInc {
				p.em.EmitOp(OpPostInc)
			} else {
				p.em.EmitOp(OpPostDec)
			}
		case targetMember:
			p.em.EmitOp(OpInsert2)
			if isInc {
				p.em.EmitOp(OpInc)
			} else {
				p.em.EmitOp(OpDec)
			}
		case targetIndex:
			p.em.EmitOp(OpInsert3)
			if isInc {
				p.em.EmitOp(OpInc)
			} else {
				p.em.EmitOp(OpDec)
			}
		}
		p.emitAssignDiscard(target)
		p.lastAssignTarget = assignTarget{}
	}
	return nil
}
