package jsfe

// parseLHSExpression parses NewExpression / MemberExpression /
// CallExpression, leaving the resulting value on the stack and, if the
// final step was a plain identifier or the tail of a member chain,
// recording p.lastAssignTarget so the caller can turn it into a write.
func (p *ParserState) parseLHSExpression(f exprFlags) error {
	if p.cur.IsKeyword("new") {
		if err := p.parseNewExpression(f); err != nil {
			return err
		}
	} else {
		if err := p.parsePrimary(f); err != nil {
			return err
		}
	}
	return p.parseCallAndMemberChain(f)
}

// parseNewExpression parses `new Target(args)` or, with no parens,
// `new Target` (equivalent to a zero-argument call), and the meta
// property `new.target`. The callee position disallows a trailing
// call so that `new a.b().c` parses as `new (a.b())` only when the
// programmer wrote the extra parens; without them `new a.b()` calls
// the constructor found at `a.b`.
func (p *ParserState) parseNewExpression(f exprFlags) error {
	if err := p.next(); err != nil { // consume "new"
		return err
	}
	if p.cur.IsPunct(PunctDot) {
		if err := p.next(); err != nil {
			return err
		}
		if !p.cur.IsIdent("target") {
			return p.syntaxErrorf("expected 'target' after 'new.'")
		}
		if err := p.next(); err != nil {
			return err
		}
		if !p.newTargetAllowed {
			return p.syntaxErrorf("'new.target' only allowed within a function body")
		}
		p.em.EmitOp(OpPushThis) // new.target resolution is a runtime concern; the
		p.lastAssignTarget = assignTarget{}
		return nil
	}

	var err error
	if p.cur.IsKeyword("new") {
		err = p.parseNewExpression(f)
	} else {
		err = p.parsePrimary(f)
	}
	if err != nil {
		return err
	}
	if err := p.parseMemberChainNoCall(f); err != nil {
		return err
	}
	argc := 0
	if p.cur.IsPunct(PunctLParen) {
		argc, err = p.parseArguments(f)
		if err != nil {
			return err
		}
	}
	p.em.EmitU16(OpCallConstructor, uint16(argc))
	p.lastAssignTarget = assignTarget{}
	return nil
}

// parseMemberChainNoCall consumes only '.'/'[' steps (the callee
// position of `new`), leaving any '(' for parseNewExpression itself to
// interpret as the constructor's argument list.
func (p *ParserState) parseMemberChainNoCall(f exprFlags) error {
	for {
		switch {
		case p.cur.IsPunct(PunctDot):
			if err := p.parseDotStep(f, false); err != nil {
				return err
			}
		case p.cur.IsPunct(PunctLBracket):
			if err := p.parseIndexStep(f, false); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// parseCallAndMemberChain consumes '.', '[', '(', and tagged-template
// suffixes in a loop, stopping when none apply.
func (p *ParserState) parseCallAndMemberChain(f exprFlags) error {
	for {
		switch {
		case p.cur.IsPunct(PunctQuestionDot):
			if err := p.parseOptionalChainStep(f); err != nil {
				return err
			}
		case p.cur.IsPunct(PunctDot):
			if err := p.parseDotStep(f, true); err != nil {
				return err
			}
		case p.cur.IsPunct(PunctLBracket):
			if err := p.parseIndexStep(f, true); err != nil {
				return err
			}
		case p.cur.IsPunct(PunctLParen):
			isMethod := p.em.UpgradeLastGetFieldToMethod() || p.em.UpgradeLastGetArrayElToMethod()
			argc, err := p.parseArguments(f)
			if err != nil {
				return err
			}
			if isMethod {
				p.em.EmitU16(OpCallMethod, uint16(argc))
			} else {
				p.em.EmitU16(OpCall, uint16(argc))
			}
			p.lastAssignTarget = assignTarget{}
		default:
			return nil
		}
	}
}

// isAssignOrUpdateNext reports whether the current token could begin
// the remainder of an assignment or update expression against the
// member access just parsed, which decides whether that access needs
// to keep its object (get_field2/get_array_el2) on the stack.
func (p *ParserState) isAssignOrUpdateNext() bool {
	if p.cur.Kind != TokPunct {
		return false
	}
	if _, ok := assignPunctOp(p.cur.Punct); ok {
		return true
	}
	return (p.cur.Punct == PunctPlusPlus || p.cur.Punct == PunctMinusMinus) && !p.cur.GotLF
}

func (p *ParserState) parseDotStep(f exprFlags, allowTarget bool) error {
	if err := p.next(); err != nil { // consume '.'
		return err
	}
	name, err := p.propertyKeyOrPrivateName()
	if err != nil {
		return err
	}
	if allowTarget && p.isAssignOrUpdateNext() {
		p.em.EmitAtom(OpGetField2, name)
		p.lastAssignTarget = assignTarget{kind: targetMember, name: name}
	} else {
		p.em.EmitAtom(OpGetField, name)
		p.lastAssignTarget = assignTarget{}
	}
	return nil
}

// propertyKeyOrPrivateName consumes the property name following a '.' in
// a member access: an ordinary identifier name, or a private name
// (#foo), interned the same way parseClassElement interns a private
// field's declaration so a get/set against it addresses the same atom.
func (p *ParserState) propertyKeyOrPrivateName() (Atom, error) {
	if p.cur.Kind == TokPrivateName {
		a, err := p.internAtom("#" + p.cur.Str.AsUTF8String())
		if err != nil {
			return AtomNull, err
		}
		return a, p.next()
	}
	return p.expectIdentName()
}

func (p *ParserState) parseIndexStep(f exprFlags, allowTarget bool) error {
	if err := p.next(); err != nil { // consume '['
		return err
	}
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRBracket); err != nil {
		return err
	}
	if allowTarget && p.isAssignOrUpdateNext() {
		p.em.EmitOp(OpGetArrayEl2)
		p.lastAssignTarget = assignTarget{kind: targetIndex}
	} else {
		p.em.EmitOp(OpGetArrayEl)
		p.lastAssignTarget = assignTarget{}
	}
	return nil
}

// parseOptionalChainStep parses `?.` followed by a property, index, or
// call. Short-circuiting covers this one step only: when the base is
// null or undefined a single conditional jump skips just this step and
// leaves that base value on the stack, so for `a?.b.c` with a nullish
// `a` the `.c` access is still evaluated.
func (p *ParserState) parseOptionalChainStep(f exprFlags) error {
	if err := p.next(); err != nil { // consume '?.'
		return err
	}
	skip := p.fd.NewLabel()
	p.em.EmitOp(OpDup)
	p.em.EmitOp(OpIsUndefinedOrNull)
	p.em.EmitCondJump(OpIfTrue, skip)
	switch {
	case p.cur.IsPunct(PunctLBracket):
		if err := p.parseIndexStep(f, false); err != nil {
			return err
		}
	case p.cur.IsPunct(PunctLParen):
		argc, err := p.parseArguments(f)
		if err != nil {
			return err
		}
		p.em.EmitU16(OpCall, uint16(argc))
	default:
		name, err := p.propertyKeyOrPrivateName()
		if err != nil {
			return err
		}
		p.em.EmitAtom(OpGetField, name)
	}
	p.em.EmitLabel(skip)
	p.lastAssignTarget = assignTarget{}
	return nil
}

// parseArguments parses a parenthesized argument list, returning the
// argument count. Spread arguments (`...expr`) are appended via
// OpAppend rather than counted as an ordinary positional argument; no
// separate bytecode shape marks a call that has spread arguments.
func (p *ParserState) parseArguments(f exprFlags) (int, error) {
	if err := p.expectPunct(PunctLParen); err != nil {
		return 0, err
	}
	count := 0
	for !p.cur.IsPunct(PunctRParen) {
		if p.cur.IsPunct(PunctDotDotDot) {
			if err := p.next(); err != nil {
				return 0, err
			}
			if err := p.parseAssignment(exprFlags{}); err != nil {
				return 0, err
			}
			p.em.EmitOp(OpAppend)
		} else {
			if err := p.parseAssignment(exprFlags{}); err != nil {
				return 0, err
			}
			count++
		}
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return 0, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return 0, err
	}
	return count, nil
}

// parsePrimary parses PrimaryExpression: literals, identifiers, `this`,
// parenthesized expressions, array/object literals, and function/class
// expressions.
func (p *ParserState) parsePrimary(f exprFlags) error {
	switch {
	case p.cur.Kind == TokNumber:
		p.em.EmitPushConst(p.cur.NumValue)
		p.lastAssignTarget = assignTarget{}
		return p.next()
	case p.cur.Kind == TokString:
		p.em.EmitPushConst(p.cur.Str.AsUTF8String())
		p.lastAssignTarget = assignTarget{}
		return p.next()
	case p.cur.Kind == TokTemplate || p.cur.Kind == TokNoSubTemplate || p.cur.Kind == TokTemplateHead:
		return p.parseTemplateLiteral(f)
	case p.cur.IsKeyword("true"):
		p.em.EmitOp(OpPushTrue)
		p.lastAssignTarget = assignTarget{}
		return p.next()
	case p.cur.IsKeyword("false"):
		p.em.EmitOp(OpPushFalse)
		p.lastAssignTarget = assignTarget{}
		return p.next()
	case p.cur.IsKeyword("null"):
		p.em.EmitOp(OpNull)
		p.lastAssignTarget = assignTarget{}
		return p.next()
	case p.cur.IsKeyword("this"):
		p.em.EmitOp(OpPushThis)
		p.lastAssignTarget = assignTarget{}
		return p.next()
	case p.cur.IsKeyword("async") && p.scannerPeeksFunction():
		if err := p.next(); err != nil { // consume "async"
			return err
		}
		return p.parseFunctionExpression(true)
	case p.cur.IsKeyword("function"):
		return p.parseFunctionExpression(false)
	case p.cur.IsKeyword("class"):
		return p.parseClassExpression()
	case p.cur.IsPunct(PunctLParen):
		return p.parseParenthesized(f)
	case p.cur.IsPunct(PunctLBracket):
		return p.parseArrayLiteral(f)
	case p.cur.IsPunct(PunctLBrace):
		return p.parseObjectLiteral(f)
	case p.cur.IsPunct(PunctSlash), p.cur.IsPunct(PunctSlashEq):
		return p.parseRegexpLiteral()
	case p.cur.Kind == TokPrivateName:
		// Only valid on the left side of `in` (ergonomic brand checks,
		// `#x in obj`); parseRelational handles the operator, so this
		// just pushes the private name's atom as a reference.
		a, err := p.internAtom("#" + p.cur.Str.AsUTF8String())
		if err != nil {
			return err
		}
		p.em.EmitAtom(OpPrivateSymbol, a)
		p.lastAssignTarget = assignTarget{}
		return p.next()
	case p.cur.Kind == TokIdent || (p.cur.Kind == TokKeyword && !isStrictOnlyAllowedAsIdent(p.cur.Str.AsUTF8String())):
		return p.parseIdentReference(f)
	}
	return p.syntaxErrorf("unexpected token in expression")
}

func (p *ParserState) parseIdentReference(f exprFlags) error {
	if p.cur.IsKeyword("super") {
		return p.parseSuperReference(f)
	}
	name, err := p.expectIdentName()
	if err != nil {
		return err
	}
	p.em.EmitScopeGetVar(name, p.fd.CurrentScope)
	p.lastAssignTarget = assignTarget{kind: targetIdent, name: name, level: p.fd.CurrentScope}
	return nil
}

func (p *ParserState) parseSuperReference(f exprFlags) error {
	if !p.superAllowed {
		return p.syntaxErrorf("'super' keyword unexpected here")
	}
	if err := p.next(); err != nil {
		return err
	}
	switch {
	case p.cur.IsPunct(PunctDot):
		if err := p.next(); err != nil {
			return err
		}
		name, err := p.expectIdentName()
		if err != nil {
			return err
		}
		p.em.EmitOp(OpSetHomeObject)
		p.em.EmitAtom(OpGetField2, name)
		p.lastAssignTarget = assignTarget{kind: targetMember, name: name}
		return nil
	case p.cur.IsPunct(PunctLParen):
		argc, err := p.parseArguments(f)
		if err != nil {
			return err
		}
		p.em.EmitU16(OpCallConstructor, uint16(argc))
		p.em.EmitOp(OpCheckCtorReturn)
		p.lastAssignTarget = assignTarget{}
		return nil
	}
	return p.syntaxErrorf("unexpected use of 'super'")
}

func (p *ParserState) parseParenthesized(f exprFlags) error {
	if err := p.next(); err != nil {
		return err
	}
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	return p.expectPunct(PunctRParen)
}

// scannerPeeksFunction reports whether the token after the current
// `async` keyword is `function`, the only construct `async` prefixes in
// primary-expression position (arrow functions are disambiguated
// earlier, in tryParseArrowFunction).
func (p *ParserState) scannerPeeksFunction() bool {
	next, err := p.scanner.PeekToken(1)
	if err != nil {
		return false
	}
	return next.IsKeyword("function")
}
