package jsfe

// declareBinding declares a single leaf binding, turning a same-scope
// lexical collision DeclareVar reports into a proper SyntaxError.
func (p *ParserState) declareBinding(name Atom, kind VarKind) error {
	if _, err := p.fd.DeclareVar(name, kind); err != nil {
		return p.syntaxErrorf("%s", err.Error())
	}
	return nil
}

// applyOptionalDefault consumes an optional `= AssignmentExpression` for
// the value already on top of the stack, replacing it with the
// default's result when the value is strictly undefined. Leaves exactly
// one value on the stack whether or not a default was present.
func (p *ParserState) applyOptionalDefault() error {
	ok, err := p.consumePunct(PunctEq)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return p.emitDefaultCheck()
}

func (p *ParserState) emitDefaultCheck() error {
	p.em.EmitOp(OpDup)
	p.em.EmitOp(OpUndefined)
	p.em.EmitOp(OpStrictEq)
	keepRawLabel := p.fd.NewLabel()
	doneLabel := p.fd.NewLabel()
	p.em.EmitCondJump(OpIfFalse, keepRawLabel)
	p.em.EmitOp(OpDrop)
	if err := p.parseAssignment(exprFlags{}); err != nil {
		return err
	}
	p.em.EmitGoto(doneLabel)
	p.em.EmitLabel(keepRawLabel)
	p.em.EmitLabel(doneLabel)
	return nil
}

// skipDefaultIfPresent skips an optional `= AssignmentExpression` default
// span without evaluating it, used by the declare-only pattern walk; the
// same span is re-parsed for real by the value-consuming walk once a
// value actually exists to check against undefined.
func (p *ParserState) skipDefaultIfPresent() error {
	ok, err := p.consumePunct(PunctEq)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return p.skipBalancedUntil(PunctComma, PunctRBracket, PunctRBrace)
}

// skipMatchingBracket advances past one balanced `[...]` or `{...}`
// starting at the current '[' or '{' token, leaving cur positioned just
// after the matching close.
func (p *ParserState) skipMatchingBracket() error {
	depth := 0
	for {
		switch {
		case p.cur.IsPunct(PunctLBracket), p.cur.IsPunct(PunctLBrace):
			depth++
		case p.cur.IsPunct(PunctRBracket), p.cur.IsPunct(PunctRBrace):
			depth--
		}
		if err := p.next(); err != nil {
			return err
		}
		if depth == 0 {
			return nil
		}
		if p.cur.Kind == TokEOF {
			return p.syntaxErrorf("unexpected end of input in binding pattern")
		}
	}
}

// ─── Phase 1: declare-only walk, no bytecode ───────────────────────────────
//
// Used for a for-in/for-of header and a classic for-loop's declared
// initializer target, whose bindings must exist before the value they're
// extracted from is available. The pattern is replayed for real from a
// scanner snapshot once that value exists (see storeDeclTarget).

// declarePatternNames declares every leaf binding of an ArrayBindingPattern,
// ObjectBindingPattern, or bare identifier at kind, returning their atoms
// in left-to-right order.
func (p *ParserState) declarePatternNames(kind VarKind) ([]Atom, error) {
	switch {
	case p.cur.IsPunct(PunctLBracket):
		return p.declareArrayPatternNames(kind)
	case p.cur.IsPunct(PunctLBrace):
		return p.declareObjectPatternNames(kind)
	}
	name, err := p.expectIdentName()
	if err != nil {
		return nil, err
	}
	if err := p.declareBinding(name, kind); err != nil {
		return nil, err
	}
	return []Atom{name}, nil
}

func (p *ParserState) declareArrayPatternNames(kind VarKind) ([]Atom, error) {
	if err := p.next(); err != nil { // consume '['
		return nil, err
	}
	var names []Atom
	for !p.cur.IsPunct(PunctRBracket) {
		if p.cur.IsPunct(PunctComma) {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		if p.cur.IsPunct(PunctDotDotDot) {
			if err := p.next(); err != nil {
				return nil, err
			}
			rest, err := p.declarePatternNames(kind)
			if err != nil {
				return nil, err
			}
			names = append(names, rest...)
			break
		}
		sub, err := p.declarePatternNames(kind)
		if err != nil {
			return nil, err
		}
		names = append(names, sub...)
		if err := p.skipDefaultIfPresent(); err != nil {
			return nil, err
		}
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRBracket); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *ParserState) declareObjectPatternNames(kind VarKind) ([]Atom, error) {
	if err := p.next(); err != nil { // consume '{'
		return nil, err
	}
	var names []Atom
	for !p.cur.IsPunct(PunctRBrace) {
		if p.cur.IsPunct(PunctDotDotDot) {
			if err := p.next(); err != nil {
				return nil, err
			}
			name, err := p.expectIdentName()
			if err != nil {
				return nil, err
			}
			if err := p.declareBinding(name, kind); err != nil {
				return nil, err
			}
			names = append(names, name)
			break
		}
		computed := p.cur.IsPunct(PunctLBracket)
		var propName Atom
		if computed {
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.skipBalancedUntil(PunctRBracket); err != nil {
				return nil, err
			}
			if err := p.expectPunct(PunctRBracket); err != nil {
				return nil, err
			}
		} else {
			var err error
			propName, err = p.expectIdentName()
			if err != nil {
				return nil, err
			}
		}
		if ok, err := p.consumePunct(PunctColon); err != nil {
			return nil, err
		} else if ok {
			sub, err := p.declarePatternNames(kind)
			if err != nil {
				return nil, err
			}
			names = append(names, sub...)
			if err := p.skipDefaultIfPresent(); err != nil {
				return nil, err
			}
		} else if !computed {
			if err := p.declareBinding(propName, kind); err != nil {
				return nil, err
			}
			names = append(names, propName)
			if err := p.skipDefaultIfPresent(); err != nil {
				return nil, err
			}
		}
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRBrace); err != nil {
		return nil, err
	}
	return names, nil
}

// ─── Phase 2: value-consuming walk, real extraction bytecode ──────────────
//
// Each function in this group assumes the value to destructure is
// already on top of the stack and consumes it net zero: either storing
// it directly into a binding, or splitting it across get_array_el/
// for_of_start/get_field reads that each consume one level and store
// their own leaf. declare selects whether a leaf also calls DeclareVar
// (true: a direct declarator or parameter) or assumes the binding was
// already declared by a prior declarePatternNames pass (false: a
// for-in/for-of or classic-for header replay).

// parseBindingPatternValue destructures the value on top of the stack
// against an ArrayBindingPattern, ObjectBindingPattern, or bare
// identifier at kind.
func (p *ParserState) parseBindingPatternValue(kind VarKind, declare bool) ([]Atom, error) {
	switch {
	case p.cur.IsPunct(PunctLBracket):
		return p.parseArrayBindingPatternValue(kind, declare)
	case p.cur.IsPunct(PunctLBrace):
		return p.parseObjectBindingPatternValue(kind, declare)
	}
	name, err := p.expectIdentName()
	if err != nil {
		return nil, err
	}
	if err := p.finishLeafBindingValue(name, kind, declare); err != nil {
		return nil, err
	}
	return []Atom{name}, nil
}

func (p *ParserState) finishLeafBindingValue(name Atom, kind VarKind, declare bool) error {
	if declare {
		if err := p.declareBinding(name, kind); err != nil {
			return err
		}
	}
	p.em.EmitScopePutVarInit(name, p.fd.CurrentScope)
	return nil
}

// bindElementValue binds the value currently on top of the stack against
// one BindingElement: a plain identifier (with optional default) or a
// nested pattern (with optional default, via parseDefaultedPattern).
func (p *ParserState) bindElementValue(kind VarKind, declare bool) ([]Atom, error) {
	if p.cur.IsPunct(PunctLBracket) || p.cur.IsPunct(PunctLBrace) {
		return p.parseDefaultedPattern(kind, declare)
	}
	name, err := p.expectIdentName()
	if err != nil {
		return nil, err
	}
	if err := p.applyOptionalDefault(); err != nil {
		return nil, err
	}
	if err := p.finishLeafBindingValue(name, kind, declare); err != nil {
		return nil, err
	}
	return []Atom{name}, nil
}

// parseDefaultedPattern parses a nested BindingPattern Initializer?,
// whose default bytecode can't be emitted until the pattern's own
// closing bracket is seen: it skips the pattern once to find that
// boundary, emits the default check/expression if `=` follows, then
// rewinds and recurses into the pattern for real against the (possibly
// defaulted) value, mirroring finishClassicFor's deferred-replay idiom.
func (p *ParserState) parseDefaultedPattern(kind VarKind, declare bool) ([]Atom, error) {
	startSnap := p.scanner.Snapshot()
	startCur, startPrev := p.cur, p.prev
	if err := p.skipMatchingBracket(); err != nil {
		return nil, err
	}
	hasDefault, err := p.consumePunct(PunctEq)
	if err != nil {
		return nil, err
	}
	if hasDefault {
		if err := p.emitDefaultCheck(); err != nil {
			return nil, err
		}
	}
	afterSnap := p.scanner.Snapshot()
	afterCur, afterPrev := p.cur, p.prev

	p.scanner.Restore(startSnap)
	p.cur, p.prev = startCur, startPrev
	names, err := p.parseBindingPatternValue(kind, declare)
	if err != nil {
		return nil, err
	}

	if hasDefault {
		p.scanner.Restore(afterSnap)
		p.cur, p.prev = afterCur, afterPrev
	}
	return names, nil
}

func (p *ParserState) parseArrayBindingPatternValue(kind VarKind, declare bool) ([]Atom, error) {
	if err := p.next(); err != nil { // consume '['
		return nil, err
	}
	p.em.EmitOp(OpForOfStart)
	var names []Atom
	for !p.cur.IsPunct(PunctRBracket) {
		if p.cur.IsPunct(PunctComma) {
			if err := p.next(); err != nil {
				return nil, err
			}
			p.em.EmitOp(OpForOfNext)
			p.em.EmitOp(OpDrop) // done flag
			p.em.EmitOp(OpDrop) // elided value
			continue
		}
		if p.cur.IsPunct(PunctDotDotDot) {
			if err := p.next(); err != nil {
				return nil, err
			}
			rest, err := p.emitArrayRest(kind, declare)
			if err != nil {
				return nil, err
			}
			names = append(names, rest...)
			break
		}
		p.em.EmitOp(OpForOfNext)
		p.em.EmitOp(OpDrop) // done flag; an exhausted iterator's undefined becomes the bound value
		sub, err := p.bindElementValue(kind, declare)
		if err != nil {
			return nil, err
		}
		names = append(names, sub...)
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRBracket); err != nil {
		return nil, err
	}
	p.em.EmitOp(OpDrop) // nextMethod
	p.em.EmitOp(OpDrop) // iter
	return names, nil
}

// emitArrayRest collects every remaining value of the iterator already
// started by the enclosing array pattern into a fresh array, then binds
// it as one BindingRestElement target.
func (p *ParserState) emitArrayRest(kind VarKind, declare bool) ([]Atom, error) {
	p.em.EmitU16(OpArrayFrom, 0)
	loopLabel := p.fd.NewLabel()
	doneLabel := p.fd.NewLabel()
	p.em.EmitLabel(loopLabel)
	p.em.EmitOp(OpForOfNext)
	p.em.EmitCondJump(OpIfTrue, doneLabel)
	p.em.EmitOp(OpAppend)
	p.em.EmitGoto(loopLabel)
	p.em.EmitLabel(doneLabel)
	p.em.EmitOp(OpDrop) // leftover value from the exhausted next()
	return p.bindElementValue(kind, declare)
}

func (p *ParserState) parseObjectBindingPatternValue(kind VarKind, declare bool) ([]Atom, error) {
	if err := p.next(); err != nil { // consume '{'
		return nil, err
	}
	var names []Atom
	consumedSrc := false
	for !p.cur.IsPunct(PunctRBrace) {
		if p.cur.IsPunct(PunctDotDotDot) {
			if err := p.next(); err != nil {
				return nil, err
			}
			name, err := p.expectIdentName()
			if err != nil {
				return nil, err
			}
			// Simplified rest semantics: a full shallow merge of the
			// remaining source properties, with no per-key exclusion of
			// the names already destructured above.
			p.em.EmitOp(OpObject)
			p.em.EmitOp(OpSwap)
			p.em.EmitOp(OpCopyDataProperties)
			if err := p.finishLeafBindingValue(name, kind, declare); err != nil {
				return nil, err
			}
			names = append(names, name)
			consumedSrc = true
			break
		}
		computed := p.cur.IsPunct(PunctLBracket)
		var propName Atom
		p.em.EmitOp(OpDup)
		if computed {
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.parseAssignment(exprFlags{}); err != nil {
				return nil, err
			}
			if err := p.expectPunct(PunctRBracket); err != nil {
				return nil, err
			}
			p.em.EmitOp(OpGetArrayEl)
		} else {
			var err error
			propName, err = p.expectIdentName()
			if err != nil {
				return nil, err
			}
			p.em.EmitGetField(propName)
		}
		if ok, err := p.consumePunct(PunctColon); err != nil {
			return nil, err
		} else if ok {
			sub, err := p.bindElementValue(kind, declare)
			if err != nil {
				return nil, err
			}
			names = append(names, sub...)
		} else if !computed {
			if err := p.applyOptionalDefault(); err != nil {
				return nil, err
			}
			if err := p.finishLeafBindingValue(propName, kind, declare); err != nil {
				return nil, err
			}
			names = append(names, propName)
		} else {
			return nil, p.syntaxErrorf("computed property name requires a binding target")
		}
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRBrace); err != nil {
		return nil, err
	}
	if !consumedSrc {
		p.em.EmitOp(OpDrop) // src
	}
	return names, nil
}
