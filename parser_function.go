package jsfe

// compileNestedFunction pushes a fresh FunctionDef as a child of the
// function currently being parsed, parses its parameter list and body
// under it, then restores the parent as the active compile target.
// kind/name/isAsync/isGenerator describe the function itself; params is
// invoked with the parser positioned at '(' (or at the single bare
// identifier, for a one-param arrow) and is responsible for
// consuming through the matching ')' (or the identifier) and declaring
// each parameter via p.fd.DeclareArg. body is invoked once params
// returns, already positioned at the token that begins the function's
// body (either '{' for a block body or the first token of an
// AssignmentExpression for an arrow's expression body).
func (p *ParserState) compileNestedFunction(kind FunctionDefKind, name Atom, isAsync, isGenerator bool, params, body func() error) (*FunctionDef, error) {
	parentFd, parentEm := p.fd, p.em
	savedAsync, savedGen := p.inAsync, p.inGenerator
	savedSuper, savedNewTarget := p.superAllowed, p.newTargetAllowed

	child := NewFunctionDef(parentFd, kind)
	child.Name = name
	child.IsStrict = parentFd.IsStrict

	p.fd = child
	p.em = NewEmitter(child)
	p.inAsync, p.inGenerator = isAsync, isGenerator
	if kind != FuncKindArrow && kind != FuncKindAsyncArrow {
		p.newTargetAllowed = true
	}

	restore := func() {
		p.fd, p.em = parentFd, parentEm
		p.inAsync, p.inGenerator = savedAsync, savedGen
		p.superAllowed, p.newTargetAllowed = savedSuper, savedNewTarget
	}

	if err := params(); err != nil {
		restore()
		return nil, err
	}
	if err := body(); err != nil {
		restore()
		return nil, err
	}
	restore()
	return child, nil
}

// parseParenParams parses a parenthesized, comma-separated parameter
// list: identifier bindings (with an optional default), a trailing rest
// parameter, and destructuring parameter patterns (which delegate to
// parseBindingPatternValue in parser_destructure.go against a reserved
// anonymous argument slot). Once every name is collected, duplicate
// parameter names are rejected where the grammar forbids them.
func (p *ParserState) parseParenParams() error {
	if err := p.expectPunct(PunctLParen); err != nil {
		return err
	}
	var names []Atom
	for !p.cur.IsPunct(PunctRParen) {
		if p.cur.IsPunct(PunctDotDotDot) {
			if err := p.next(); err != nil {
				return err
			}
			p.fd.NonSimpleParams = true
			name, err := p.expectIdentName()
			if err != nil {
				return err
			}
			p.fd.DeclareArg(name, true)
			names = append(names, name)
			break
		}
		sub, err := p.parseOneParam()
		if err != nil {
			return err
		}
		names = append(names, sub...)
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}
	return p.checkDuplicateParamNames(names)
}

// checkDuplicateParamNames rejects a parameter list that binds the same
// name twice wherever the grammar forbids it: strict mode, a
// non-simple parameter list, or a function kind that disallows
// duplicates regardless of strictness (arrow, method, generator, async,
// class constructor). Plain functions with a simple parameter list in
// sloppy mode are the only form that tolerates a repeated name; note
// that a function's own "use strict" directive is parsed from its body
// after this check runs, so only strictness inherited from an enclosing
// scope is caught here for that case.
func (p *ParserState) checkDuplicateParamNames(names []Atom) error {
	if !duplicateParamsForbidden(p.fd) {
		return nil
	}
	seen := make(map[Atom]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return p.syntaxErrorf("duplicate parameter name not allowed in this context")
		}
		seen[n] = true
	}
	return nil
}

func duplicateParamsForbidden(fd *FunctionDef) bool {
	if fd.IsStrict || fd.NonSimpleParams {
		return true
	}
	switch fd.Kind {
	case FuncKindArrow, FuncKindAsyncArrow, FuncKindMethod, FuncKindGetter, FuncKindSetter,
		FuncKindGenerator, FuncKindAsync, FuncKindAsyncGenerator, FuncKindClassConstructor:
		return true
	}
	return false
}

// parseOneParam parses a single, possibly-defaulted, possibly-
// destructured parameter, returning every name it binds (more than one
// for a destructuring pattern).
func (p *ParserState) parseOneParam() ([]Atom, error) {
	if p.cur.IsPunct(PunctLBrace) || p.cur.IsPunct(PunctLBracket) {
		p.fd.NonSimpleParams = true
		idx := p.fd.DeclareArg(AtomNull, false)
		p.em.EmitU16(OpGetArg, uint16(idx))
		if err := p.applyOptionalDefault(); err != nil {
			return nil, err
		}
		return p.parseBindingPatternValue(VarKindVar, true)
	}
	name, err := p.expectIdentName()
	if err != nil {
		return nil, err
	}
	idx := p.fd.DeclareArg(name, false)
	if ok, err := p.consumePunct(PunctEq); err != nil {
		return nil, err
	} else if ok {
		p.fd.NonSimpleParams = true
		if err := p.emitParamDefault(idx); err != nil {
			return nil, err
		}
	}
	return []Atom{name}, nil
}

// emitParamDefault emits the "argument omitted -> use default" check for
// the parameter already bound at Args[idx]: when the supplied argument
// is strictly undefined (including genuinely not passed, which the
// calling convention also surfaces as undefined), the default
// expression is evaluated and stored back into the same slot.
func (p *ParserState) emitParamDefault(idx int) error {
	p.em.EmitU16(OpGetArg, uint16(idx))
	p.em.EmitOp(OpUndefined)
	p.em.EmitOp(OpStrictEq)
	keepLabel := p.fd.NewLabel()
	doneLabel := p.fd.NewLabel()
	p.em.EmitCondJump(OpIfFalse, keepLabel)
	if err := p.parseAssignment(exprFlags{}); err != nil {
		return err
	}
	p.em.EmitU16(OpPutArg, uint16(idx))
	p.em.EmitGoto(doneLabel)
	p.em.EmitLabel(keepLabel)
	p.em.EmitLabel(doneLabel)
	return nil
}

// parseFunctionBody parses '{' directive-prologue statementList '}' into
// the currently-active FunctionDef (p.fd), appending a trailing
// return_undef for a fall-through exit.
func (p *ParserState) parseFunctionBody() error {
	if err := p.expectPunct(PunctLBrace); err != nil {
		return err
	}
	if err := p.parseDirectivePrologue(); err != nil {
		return err
	}
	if err := p.parseStatementList(tokenIsRBrace); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRBrace); err != nil {
		return err
	}
	p.em.EmitOp(OpReturnUndef)
	return nil
}

func tokenIsRBrace(t Token) bool { return t.IsPunct(PunctRBrace) }

// parseFunctionExpression parses `function` [`*`] [Identifier] `(`
// params `)` `{` body `}`, pushing the resulting closure. isAsync is
// true when the caller already consumed a leading `async`.
func (p *ParserState) parseFunctionExpression(isAsync bool) error {
	if err := p.expectKeyword("function"); err != nil {
		return err
	}
	isGenerator, err := p.consumePunct(PunctStar)
	if err != nil {
		return err
	}
	var name Atom = AtomNull
	if p.cur.Kind == TokIdent || (p.cur.Kind == TokKeyword && !isStrictOnlyAllowedAsIdent(p.cur.Str.AsUTF8String())) {
		name, err = p.expectIdentName()
		if err != nil {
			return err
		}
	}
	kind := funcExprKind(isAsync, isGenerator)
	child, err := p.compileNestedFunction(kind, name, isAsync, isGenerator, p.parseParenParams, p.parseFunctionBody)
	if err != nil {
		return err
	}
	idx := p.em.CpoolAdd(child)
	p.em.EmitU32(OpPushClosure, uint32(idx))
	p.lastAssignTarget = assignTarget{}
	return nil
}

func funcExprKind(isAsync, isGenerator bool) FunctionDefKind {
	switch {
	case isAsync && isGenerator:
		return FuncKindAsyncGenerator
	case isAsync:
		return FuncKindAsync
	case isGenerator:
		return FuncKindGenerator
	default:
		return FuncKindNormal
	}
}

// tryParseArrowFunction attempts the bounded lookahead needed to tell an
// arrow function apart from a parenthesized expression or a plain
// identifier reference, without backtracking through a full speculative
// parse: a bare identifier or parameter list is only ever followed by
// `=>` in an arrow function. A bare identifier (optionally preceded by
// async) needs one or two tokens of lookahead; a parenthesized list is
// skipped as one balanced group with SkipParensToken to see whether `=>`
// follows it.
func (p *ParserState) tryParseArrowFunction(f exprFlags) (bool, error) {
	isAsync := false
	if p.cur.IsIdent("async") {
		next, err := p.scanner.PeekToken(1)
		if err != nil {
			return false, nil
		}
		if next.GotLF {
			return false, nil
		}
		if next.Kind == TokIdent {
			after, err := p.scanner.PeekToken(2)
			if err == nil && after.IsPunct(PunctArrow) {
				isAsync = true
				if err := p.next(); err != nil { // consume async
					return false, err
				}
			}
		} else if next.IsPunct(PunctLParen) {
			snap := p.scanner.Snapshot()
			prevCur, prevPrev := p.cur, p.prev
			if err := p.next(); err != nil {
				return false, err
			}
			tailTok, err := p.scanner.SkipParensToken()
			if err != nil {
				return false, err
			}
			if tailTok.IsPunct(PunctArrow) {
				isAsync = true
			} else {
				p.scanner.Restore(snap)
				p.cur, p.prev = prevCur, prevPrev
				return false, nil
			}
		}
		if !isAsync && !next.IsPunct(PunctArrow) { // `async => ...` names a parameter async
			return false, nil
		}
	}

	if p.cur.Kind == TokIdent {
		next, err := p.scanner.PeekToken(1)
		if err != nil {
			return false, nil
		}
		if next.IsPunct(PunctArrow) && !next.GotLF {
			name, err := p.expectIdentName()
			if err != nil {
				return false, err
			}
			return true, p.parseArrowFromSingleParam(isAsync, name)
		}
		return false, nil
	}

	if p.cur.IsPunct(PunctLParen) {
		tailTok, err := p.scanner.SkipParensToken()
		if err != nil {
			return false, nil
		}
		if !tailTok.IsPunct(PunctArrow) || tailTok.GotLF {
			return false, nil
		}
		return true, p.parseArrowFromParenParams(isAsync)
	}
	return false, nil
}

func (p *ParserState) parseArrowFromSingleParam(isAsync bool, name Atom) error {
	kind := FuncKindArrow
	if isAsync {
		kind = FuncKindAsyncArrow
	}
	params := func() error {
		p.fd.DeclareArg(name, false)
		return nil
	}
	child, err := p.compileNestedFunction(kind, AtomNull, isAsync, false, params, p.parseArrowBody)
	if err != nil {
		return err
	}
	idx := p.em.CpoolAdd(child)
	p.em.EmitU32(OpPushClosure, uint32(idx))
	p.lastAssignTarget = assignTarget{}
	return nil
}

func (p *ParserState) parseArrowFromParenParams(isAsync bool) error {
	kind := FuncKindArrow
	if isAsync {
		kind = FuncKindAsyncArrow
	}
	child, err := p.compileNestedFunction(kind, AtomNull, isAsync, false, p.parseParenParams, p.parseArrowBody)
	if err != nil {
		return err
	}
	idx := p.em.CpoolAdd(child)
	p.em.EmitU32(OpPushClosure, uint32(idx))
	p.lastAssignTarget = assignTarget{}
	return nil
}

// parseArrowBody parses the `=>` an arrow parameter list leaves pending,
// then either a block body or a bare AssignmentExpression whose value
// becomes the implicit return.
func (p *ParserState) parseArrowBody() error {
	if err := p.expectPunct(PunctArrow); err != nil {
		return err
	}
	if p.cur.IsPunct(PunctLBrace) {
		return p.parseFunctionBody()
	}
	if err := p.parseAssignment(exprFlags{}); err != nil {
		return err
	}
	p.em.EmitOp(OpReturn)
	return nil
}
