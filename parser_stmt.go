package jsfe

// parseStatementList parses statements until stop(p.cur) reports true
// (the caller's grammar boundary: end of a block, end of the program).
func (p *ParserState) parseStatementList(stop func(Token) bool) error {
	for !stop(p.cur) {
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
	return nil
}

// parseStatement dispatches on the current token to one statement-form
// parser. Labelled statements are detected by a one-token lookahead past
// a leading identifier.
func (p *ParserState) parseStatement() error {
	switch {
	case p.cur.IsPunct(PunctLBrace):
		return p.parseBlockStatement()
	case p.cur.IsPunct(PunctSemi):
		return p.next()
	case p.cur.IsKeyword("var"):
		if err := p.next(); err != nil {
			return err
		}
		return p.parseVariableStatement(VarKindVar)
	case p.cur.IsKeyword("let"):
		if err := p.next(); err != nil {
			return err
		}
		return p.parseVariableStatement(VarKindLet)
	case p.cur.IsKeyword("const"):
		if err := p.next(); err != nil {
			return err
		}
		return p.parseVariableStatement(VarKindConst)
	case p.cur.IsKeyword("if"):
		return p.parseIfStatement()
	case p.cur.IsKeyword("do"):
		return p.parseDoWhileStatement()
	case p.cur.IsKeyword("while"):
		return p.parseWhileStatement()
	case p.cur.IsKeyword("for"):
		return p.parseForStatement()
	case p.cur.IsKeyword("switch"):
		return p.parseSwitchStatement()
	case p.cur.IsKeyword("break"):
		return p.parseBreakStatement()
	case p.cur.IsKeyword("continue"):
		return p.parseContinueStatement()
	case p.cur.IsKeyword("return"):
		return p.parseReturnStatement()
	case p.cur.IsKeyword("throw"):
		return p.parseThrowStatement()
	case p.cur.IsKeyword("try"):
		return p.parseTryStatement()
	case p.cur.IsKeyword("with"):
		return p.parseWithStatement()
	case p.cur.IsKeyword("debugger"):
		if err := p.next(); err != nil {
			return err
		}
		return p.consumeSemicolonASI()
	case p.cur.IsKeyword("function"):
		_, err := p.parseFunctionDeclaration(false)
		return err
	case p.cur.IsKeyword("class"):
		return p.parseClassStatement()
	case p.cur.IsIdent("async"):
		isAsyncFunc, err := p.peekAsyncFunctionDeclaration()
		if err != nil {
			return err
		}
		if isAsyncFunc {
			if err := p.next(); err != nil {
				return err
			}
			_, err := p.parseFunctionDeclaration(true)
			return err
		}
	}

	if p.cur.Kind == TokIdent || (p.cur.Kind == TokKeyword && !isStrictOnlyAllowedAsIdent(p.cur.Str.AsUTF8String())) {
		next, err := p.scanner.PeekToken(1)
		if err == nil && next.IsPunct(PunctColon) {
			label, err := p.expectIdentName()
			if err != nil {
				return err
			}
			return p.parseLabelledStatement(label)
		}
	}

	return p.parseExpressionStatement()
}

func (p *ParserState) peekAsyncFunctionDeclaration() (bool, error) {
	next, err := p.scanner.PeekToken(1)
	if err != nil {
		return false, nil
	}
	return next.IsKeyword("function") && !next.GotLF, nil
}

func (p *ParserState) parseExpressionStatement() error {
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	p.em.EmitOp(OpDrop)
	return p.consumeSemicolonASI()
}

func (p *ParserState) parseBlockStatement() error {
	if err := p.expectPunct(PunctLBrace); err != nil {
		return err
	}
	scope := p.fd.PushScope(false, false)
	p.em.EmitEnterScope(scope)
	if err := p.parseStatementList(tokenIsRBrace); err != nil {
		return err
	}
	p.em.EmitLeaveScope(scope)
	p.fd.PopScope()
	return p.expectPunct(PunctRBrace)
}

func (p *ParserState) parseIfStatement() error {
	if err := p.expectKeyword("if"); err != nil {
		return err
	}
	if err := p.expectPunct(PunctLParen); err != nil {
		return err
	}
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}

	elseLabel := p.fd.NewLabel()
	p.em.EmitCondJump(OpIfFalse, elseLabel)
	if err := p.parseStatement(); err != nil {
		return err
	}

	if p.cur.IsKeyword("else") {
		endLabel := p.fd.NewLabel()
		p.em.EmitGoto(endLabel)
		p.em.EmitLabel(elseLabel)
		if err := p.next(); err != nil {
			return err
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
		p.em.EmitLabel(endLabel)
		return nil
	}

	p.em.EmitLabel(elseLabel)
	return nil
}

// attachLoopLabels retrofits every BlockLabelled frame immediately
// wrapping the loop statement currently being entered (pushed by nested
// parseLabelledStatement calls before the loop's own token was reached)
// so `continue outer;` can find the loop directly through its label,
// rather than only through the unlabelled nearest-enclosing search.
func (p *ParserState) attachLoopLabels(continueLabel int) {
	for i := len(p.fd.BlockEnvs) - 1; i >= 0; i-- {
		be := p.fd.BlockEnvs[i]
		if be.Kind != BlockLabelled {
			return
		}
		be.ContinueLabel, be.HasContinue = continueLabel, true
	}
}

// emitUnwind emits the iterator_close/finally-gosub/drop bookkeeping a
// break or continue statement must perform walking out to its target
// frame, mirroring Emitter.EmitReturn's walk over the same BlockEnv
// shape but only across the slice FindBreakTarget/FindContinueTarget
// already computed.
func (p *ParserState) emitUnwind(unwind []*BlockEnv) {
	for _, be := range unwind {
		for j := 0; j < be.IteratorCloseDepth; j++ {
			p.em.EmitOp(OpIteratorClose)
		}
		if be.Kind == BlockFinally && be.HasGosub {
			p.em.EmitGosub(be.GosubLabel)
		}
		for j := 0; j < be.DropCount; j++ {
			p.em.EmitOp(OpDrop)
		}
	}
}

func (p *ParserState) parseBreakStatement() error {
	if err := p.expectKeyword("break"); err != nil {
		return err
	}
	label := AtomNull
	if !p.cur.GotLF && (p.cur.Kind == TokIdent || (p.cur.Kind == TokKeyword && !isStrictOnlyAllowedAsIdent(p.cur.Str.AsUTF8String()))) {
		var err error
		label, err = p.expectIdentName()
		if err != nil {
			return err
		}
	}
	be, unwind, ok := p.fd.FindBreakTarget(label)
	if !ok {
		return p.syntaxErrorf("illegal break statement")
	}
	// A break also leaves the target frame itself, so its iterator and
	// stack values are released too (a continue keeps them).
	p.emitUnwind(append(unwind, be))
	p.em.EmitGoto(be.BreakLabel)
	return p.consumeSemicolonASI()
}

func (p *ParserState) parseContinueStatement() error {
	if err := p.expectKeyword("continue"); err != nil {
		return err
	}
	label := AtomNull
	if !p.cur.GotLF && (p.cur.Kind == TokIdent || (p.cur.Kind == TokKeyword && !isStrictOnlyAllowedAsIdent(p.cur.Str.AsUTF8String()))) {
		var err error
		label, err = p.expectIdentName()
		if err != nil {
			return err
		}
	}
	be, unwind, ok := p.fd.FindContinueTarget(label)
	if !ok {
		return p.syntaxErrorf("illegal continue statement")
	}
	p.emitUnwind(unwind)
	p.em.EmitGoto(be.ContinueLabel)
	return p.consumeSemicolonASI()
}

func (p *ParserState) parseReturnStatement() error {
	if err := p.expectKeyword("return"); err != nil {
		return err
	}
	hasValue := false
	if !p.cur.GotLF && !p.atStatementEnd() {
		if err := p.parseExpression(exprFlags{}); err != nil {
			return err
		}
		hasValue = true
	}
	if !hasValue && p.inAsync {
		p.em.EmitOp(OpUndefined)
		hasValue = true
	}
	p.em.EmitReturn(hasValue, p.inAsync, p.inGenerator)
	return p.consumeSemicolonASI()
}

func (p *ParserState) parseThrowStatement() error {
	if err := p.expectKeyword("throw"); err != nil {
		return err
	}
	if p.cur.GotLF {
		return p.syntaxErrorf("illegal newline after throw")
	}
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	p.em.EmitOp(OpThrow)
	return p.consumeSemicolonASI()
}

func (p *ParserState) parseWithStatement() error {
	if err := p.expectKeyword("with"); err != nil {
		return err
	}
	if p.fd.IsStrict {
		return p.syntaxErrorf("'with' statement not allowed in strict mode")
	}
	if err := p.expectPunct(PunctLParen); err != nil {
		return err
	}
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}
	p.em.EmitOp(OpDrop) // with-object isn't modeled as a stack value; see resolver's with-scope rewrite

	p.fd.HasWithScope = true
	scope := p.fd.PushScope(true, false)
	p.em.EmitEnterScope(scope)
	p.fd.PushBlockEnv(BlockWith, AtomNull)
	if err := p.parseStatement(); err != nil {
		return err
	}
	p.fd.PopBlockEnv()
	p.em.EmitLeaveScope(scope)
	p.fd.PopScope()
	return nil
}

func (p *ParserState) parseLabelledStatement(label Atom) error {
	if err := p.next(); err != nil { // consume ':'
		return err
	}
	breakLabel := p.fd.NewLabel()
	p.fd.PushBlockEnv(BlockLabelled, label).BreakLabel = breakLabel
	p.fd.TopBlockEnv().HasBreak = true
	if err := p.parseStatement(); err != nil {
		return err
	}
	p.fd.PopBlockEnv()
	p.em.EmitLabel(breakLabel)
	return nil
}

func (p *ParserState) parseFunctionDeclaration(isAsync bool) (Atom, error) {
	if err := p.expectKeyword("function"); err != nil {
		return AtomNull, err
	}
	isGenerator, err := p.consumePunct(PunctStar)
	if err != nil {
		return AtomNull, err
	}
	name, err := p.expectIdentName()
	if err != nil {
		return AtomNull, err
	}
	kind := funcExprKind(isAsync, isGenerator)
	child, err := p.compileNestedFunction(kind, name, isAsync, isGenerator, p.parseParenParams, p.parseFunctionBody)
	if err != nil {
		return AtomNull, err
	}
	idx := p.em.CpoolAdd(child)
	p.em.EmitU32(OpPushClosure, uint32(idx))
	if _, err := p.fd.DeclareVar(name, VarKindHoistedFunction); err != nil {
		return AtomNull, p.syntaxErrorf("%s", err.Error())
	}
	p.em.EmitScopePutVarInit(name, p.fd.CurrentScope)
	return name, nil
}

func (p *ParserState) parseClassStatement() error {
	name, err := p.parseClassDeclaration()
	if err != nil {
		return err
	}
	if name == AtomNull {
		p.em.EmitOp(OpDrop)
		return nil
	}
	if err := p.declareBinding(name, VarKindLet); err != nil {
		return err
	}
	p.em.EmitScopePutVarInit(name, p.fd.CurrentScope)
	return nil
}

// parseVariableStatement parses `var`/`let`/`const` (the keyword itself
// already consumed) through its terminating semicolon.
func (p *ParserState) parseVariableStatement(kind VarKind) error {
	if err := p.parseVariableDeclarator(kind); err != nil {
		return err
	}
	for {
		ok, err := p.consumePunct(PunctComma)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := p.parseVariableDeclarator(kind); err != nil {
			return err
		}
	}
	return p.consumeSemicolonASI()
}

// bindingTarget is a BindingTarget whose leaf names have already been
// declared, carrying enough of the original pattern tokens (via a
// scanner snapshot) that its extraction bytecode can be replayed once a
// value exists to destructure, storeDeclTarget's job.
type bindingTarget struct {
	kind      VarKind
	isPattern bool
	identName Atom

	patternSnap Scanner
	patternCur  Token
	patternPrev Token
}

// parseDeclarationTarget parses a declaration's BindingTarget (identifier
// or pattern), declaring its bindings, without consuming a following
// '=' or evaluating any extraction bytecode: the caller decides how the
// value (a for-in/for-of per-iteration value, or a classic declarator's
// initializer) gets bound via storeDeclTarget once it is available.
func (p *ParserState) parseDeclarationTarget(kind VarKind) (bindingTarget, error) {
	if p.cur.IsPunct(PunctLBrace) || p.cur.IsPunct(PunctLBracket) {
		snap := p.scanner.Snapshot()
		cur, prev := p.cur, p.prev
		if _, err := p.declarePatternNames(kind); err != nil {
			return bindingTarget{}, err
		}
		return bindingTarget{kind: kind, isPattern: true, patternSnap: snap, patternCur: cur, patternPrev: prev}, nil
	}
	name, err := p.expectIdentName()
	if err != nil {
		return bindingTarget{}, err
	}
	if err := p.declareBinding(name, kind); err != nil {
		return bindingTarget{}, err
	}
	return bindingTarget{kind: kind, identName: name}, nil
}

// storeDeclTarget binds the value on top of the stack into bt: a plain
// identifier is stored directly; a pattern is destructured by rewinding
// the scanner to bt's snapshot and replaying parseBindingPatternValue
// with declare=false, since its bindings were already declared by the
// parseDeclarationTarget call that produced bt.
func (p *ParserState) storeDeclTarget(bt bindingTarget) error {
	if !bt.isPattern {
		p.em.EmitScopePutVarInit(bt.identName, p.fd.CurrentScope)
		return nil
	}
	resumeSnap := p.scanner.Snapshot()
	resumeCur, resumePrev := p.cur, p.prev
	p.scanner.Restore(bt.patternSnap)
	p.cur, p.prev = bt.patternCur, bt.patternPrev
	if _, err := p.parseBindingPatternValue(bt.kind, false); err != nil {
		return err
	}
	p.scanner.Restore(resumeSnap)
	p.cur, p.prev = resumeCur, resumePrev
	return nil
}

// parseVariableDeclarator parses one `BindingTarget Initializer?`,
// destructuring the initializer's value against a pattern target via
// storeDeclTarget once it has been evaluated.
func (p *ParserState) parseVariableDeclarator(kind VarKind) error {
	bt, err := p.parseDeclarationTarget(kind)
	if err != nil {
		return err
	}
	ok, err := p.consumePunct(PunctEq)
	if err != nil {
		return err
	}
	if !ok {
		if bt.isPattern {
			return p.syntaxErrorf("missing initializer in destructuring declaration")
		}
		return nil
	}
	if err := p.parseAssignment(exprFlags{}); err != nil {
		return err
	}
	return p.storeDeclTarget(bt)
}

func (p *ParserState) parseWhileStatement() error {
	if err := p.expectKeyword("while"); err != nil {
		return err
	}
	if err := p.expectPunct(PunctLParen); err != nil {
		return err
	}

	testLabel := p.fd.NewLabel()
	breakLabel := p.fd.NewLabel()

	p.em.EmitLabel(testLabel)
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}
	p.em.EmitCondJump(OpIfFalse, breakLabel)

	p.attachLoopLabels(testLabel)
	be := p.fd.PushBlockEnv(BlockLoop, AtomNull)
	be.BreakLabel, be.HasBreak = breakLabel, true
	be.ContinueLabel, be.HasContinue = testLabel, true

	if err := p.parseStatement(); err != nil {
		return err
	}

	p.fd.PopBlockEnv()
	p.em.EmitGoto(testLabel)
	p.em.EmitLabel(breakLabel)
	return nil
}

func (p *ParserState) parseDoWhileStatement() error {
	if err := p.expectKeyword("do"); err != nil {
		return err
	}

	bodyLabel := p.fd.NewLabel()
	continueLabel := p.fd.NewLabel()
	breakLabel := p.fd.NewLabel()

	p.em.EmitLabel(bodyLabel)

	p.attachLoopLabels(continueLabel)
	be := p.fd.PushBlockEnv(BlockLoop, AtomNull)
	be.BreakLabel, be.HasBreak = breakLabel, true
	be.ContinueLabel, be.HasContinue = continueLabel, true

	if err := p.parseStatement(); err != nil {
		return err
	}

	p.fd.PopBlockEnv()
	p.em.EmitLabel(continueLabel)

	if err := p.expectKeyword("while"); err != nil {
		return err
	}
	if err := p.expectPunct(PunctLParen); err != nil {
		return err
	}
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}
	p.em.EmitCondJump(OpIfTrue, bodyLabel)
	p.em.EmitLabel(breakLabel)
	return p.consumeSemicolonASI()
}

// skipBalancedUntil advances the scanner past tokens, tracking
// paren/brace/bracket depth, until one of stops is seen at depth 0. Used
// to locate a classic for-loop's update clause boundary without having
// to understand expression grammar (a bare top-level ';' can appear
// inside a nested function/block, but never at depth 0 of the update
// clause itself).
func (p *ParserState) skipBalancedUntil(stops ...Punct) error {
	depth := 0
	for {
		if depth == 0 {
			for _, s := range stops {
				if p.cur.IsPunct(s) {
					return nil
				}
			}
		}
		switch {
		case p.cur.IsPunct(PunctLParen), p.cur.IsPunct(PunctLBrace), p.cur.IsPunct(PunctLBracket):
			depth++
		case p.cur.IsPunct(PunctRParen), p.cur.IsPunct(PunctRBrace), p.cur.IsPunct(PunctRBracket):
			depth--
		}
		if p.cur.Kind == TokEOF {
			return p.syntaxErrorf("unexpected end of input in for statement")
		}
		if err := p.next(); err != nil {
			return err
		}
	}
}

// parseForStatement parses every `for` variant: the classic three-clause
// form, for-in, for-of and for-await-of.
func (p *ParserState) parseForStatement() error {
	if err := p.expectKeyword("for"); err != nil {
		return err
	}
	isAwait := false
	if p.cur.IsKeyword("await") {
		isAwait = true
		if err := p.next(); err != nil {
			return err
		}
	}
	if err := p.expectPunct(PunctLParen); err != nil {
		return err
	}

	scope := p.fd.PushScope(false, false)
	p.em.EmitEnterScope(scope)

	switch {
	case p.cur.IsKeyword("var"), p.cur.IsKeyword("let"), p.cur.IsKeyword("const"):
		kind := VarKindVar
		switch {
		case p.cur.IsKeyword("let"):
			kind = VarKindLet
		case p.cur.IsKeyword("const"):
			kind = VarKindConst
		}
		if err := p.next(); err != nil {
			return err
		}
		bt, err := p.parseDeclarationTarget(kind)
		if err != nil {
			return err
		}

		switch {
		case p.cur.IsKeyword("in"):
			return p.finishForInOf(scope, true, bt, assignTarget{}, false, false)
		case p.cur.IsIdent("of"):
			return p.finishForInOf(scope, true, bt, assignTarget{}, true, isAwait)
		}

		if ok, err := p.consumePunct(PunctEq); err != nil {
			return err
		} else if ok {
			if err := p.parseAssignment(exprFlags{noIn: true}); err != nil {
				return err
			}
			if err := p.storeDeclTarget(bt); err != nil {
				return err
			}
		}
		for {
			ok, err := p.consumePunct(PunctComma)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := p.parseVariableDeclarator(kind); err != nil {
				return err
			}
		}
		if err := p.expectPunct(PunctSemi); err != nil {
			return err
		}
		return p.finishClassicFor(scope)

	case p.cur.IsPunct(PunctSemi):
		if err := p.next(); err != nil {
			return err
		}
		return p.finishClassicFor(scope)

	default:
		if err := p.parseExpression(exprFlags{noIn: true}); err != nil {
			return err
		}
		target := p.lastAssignTarget
		switch {
		case p.cur.IsKeyword("in"):
			return p.finishForInOf(scope, false, bindingTarget{}, target, false, false)
		case p.cur.IsIdent("of"):
			return p.finishForInOf(scope, false, bindingTarget{}, target, true, isAwait)
		}
		p.em.EmitOp(OpDrop)
		if err := p.expectPunct(PunctSemi); err != nil {
			return err
		}
		return p.finishClassicFor(scope)
	}
}

// finishClassicFor parses the test/update clauses and body of a classic
// three-clause for loop, p.cur already positioned right after the first
// ';'. The update clause's tokens are skipped on the first pass (its
// bytecode must run after the body, not before it) and replayed from a
// scanner snapshot once the body has been emitted.
func (p *ParserState) finishClassicFor(scope int) error {
	testLabel := p.fd.NewLabel()
	continueLabel := p.fd.NewLabel()
	breakLabel := p.fd.NewLabel()

	p.em.EmitLabel(testLabel)
	hasTest := !p.cur.IsPunct(PunctSemi)
	if hasTest {
		if err := p.parseExpression(exprFlags{}); err != nil {
			return err
		}
	}
	if err := p.expectPunct(PunctSemi); err != nil {
		return err
	}

	updateSnap := p.scanner.Snapshot()
	updateCur, updatePrev := p.cur, p.prev
	if err := p.skipBalancedUntil(PunctRParen); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}

	if hasTest {
		p.em.EmitCondJump(OpIfFalse, breakLabel)
	}

	p.attachLoopLabels(continueLabel)
	be := p.fd.PushBlockEnv(BlockLoop, AtomNull)
	be.BreakLabel, be.HasBreak = breakLabel, true
	be.ContinueLabel, be.HasContinue = continueLabel, true

	if err := p.parseStatement(); err != nil {
		return err
	}

	p.fd.PopBlockEnv()
	p.em.EmitLabel(continueLabel)

	savedScanner := p.scanner.Snapshot()
	savedCur, savedPrev := p.cur, p.prev
	p.scanner.Restore(updateSnap)
	p.cur, p.prev = updateCur, updatePrev
	if !p.cur.IsPunct(PunctRParen) {
		if err := p.parseExpression(exprFlags{}); err != nil {
			return err
		}
		p.em.EmitOp(OpDrop)
	}
	p.scanner.Restore(savedScanner)
	p.cur, p.prev = savedCur, savedPrev

	p.em.EmitGoto(testLabel)
	p.em.EmitLabel(breakLabel)
	p.em.EmitLeaveScope(scope)
	p.fd.PopScope()
	return nil
}

// storeForBinding consumes the per-iteration key/value a for-in/for-of
// header's next-op just pushed, storing it into the declared binding
// (via storeDeclTarget, which handles pattern extraction) or the
// pre-parsed assignment target.
func (p *ParserState) storeForBinding(hasDecl bool, bt bindingTarget, target assignTarget) error {
	if hasDecl {
		return p.storeDeclTarget(bt)
	}
	switch target.kind {
	case targetIdent:
		p.em.EmitScopePutVar(target.name, target.level)
	default:
		p.em.EmitOp(OpDrop) // member/index for-in/of targets unsupported
	}
	return nil
}

// finishForInOf parses the `in`/`of` keyword onward and the loop body for
// a for-in, for-of, or for-await-of statement. hasDecl/bt describe a
// `var`/`let`/`const` header; otherwise target names the already-parsed
// bare assignment-target header.
func (p *ParserState) finishForInOf(scope int, hasDecl bool, bt bindingTarget, target assignTarget, isOf, isAwait bool) error {
	if err := p.next(); err != nil { // consume 'in' or 'of'
		return err
	}
	if err := p.parseAssignment(exprFlags{}); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}

	testLabel := p.fd.NewLabel()
	exhaustedLabel := p.fd.NewLabel()
	breakLabel := p.fd.NewLabel()
	continueLabel := p.fd.NewLabel()

	dropCount := 1
	if isOf {
		dropCount = 2
		if isAwait {
			p.em.EmitOp(OpForAwaitOfStart)
		} else {
			p.em.EmitOp(OpForOfStart)
		}
	} else {
		p.em.EmitOp(OpForInStart)
	}

	p.em.EmitLabel(testLabel)
	if isOf {
		p.em.EmitOp(OpForOfNext)
	} else {
		p.em.EmitOp(OpForInNext)
	}
	p.em.EmitCondJump(OpIfTrue, exhaustedLabel)
	if err := p.storeForBinding(hasDecl, bt, target); err != nil {
		return err
	}

	p.attachLoopLabels(continueLabel)
	be := p.fd.PushBlockEnv(BlockLoop, AtomNull)
	be.BreakLabel, be.HasBreak = breakLabel, true
	be.ContinueLabel, be.HasContinue = continueLabel, true
	be.DropCount = dropCount
	if isOf {
		be.IteratorCloseDepth = 1
	}

	if err := p.parseStatement(); err != nil {
		return err
	}

	p.fd.PopBlockEnv()
	p.em.EmitLabel(continueLabel)
	p.em.EmitGoto(testLabel)

	p.em.EmitLabel(exhaustedLabel)
	p.em.EmitOp(OpDrop) // leftover key/value from the not-taken final next()
	for i := 0; i < dropCount; i++ {
		p.em.EmitOp(OpDrop)
	}
	p.em.EmitLabel(breakLabel)
	p.em.EmitLeaveScope(scope)
	p.fd.PopScope()
	return nil
}

// skipSwitchClauseBody advances past one case/default clause's statement
// list, tracking bracket depth so a nested block, object literal, or
// inner switch's own case/default keywords are never mistaken for this
// clause's boundary.
func (p *ParserState) skipSwitchClauseBody() error {
	depth := 0
	for {
		if depth == 0 && (p.cur.IsKeyword("case") || p.cur.IsKeyword("default") || p.cur.IsPunct(PunctRBrace)) {
			return nil
		}
		switch {
		case p.cur.IsPunct(PunctLParen), p.cur.IsPunct(PunctLBrace), p.cur.IsPunct(PunctLBracket):
			depth++
		case p.cur.IsPunct(PunctRParen), p.cur.IsPunct(PunctRBrace), p.cur.IsPunct(PunctRBracket):
			depth--
		}
		if p.cur.Kind == TokEOF {
			return p.syntaxErrorf("unexpected end of input in switch statement")
		}
		if err := p.next(); err != nil {
			return err
		}
	}
}

func tokenIsSwitchClauseBoundary(t Token) bool {
	return t.IsKeyword("case") || t.IsKeyword("default") || t.IsPunct(PunctRBrace)
}

// switchClause is one case/default clause's recorded bytecode labels and
// replay position, built during parseSwitchStatement's first pass (test
// chain) and consumed by its second pass (bodies, in lexical order).
type switchClause struct {
	isDefault  bool
	trampoline int
	bodyLabel  int
	bodySnap   Scanner
	bodyCur    Token
	bodyPrev   Token
}

// parseSwitchStatement implements the standard linear-scan switch
// lowering: every case's test is a dup+strict-eq+conditional-jump chain
// tried in source order, with the chain's final "nothing matched" path
// falling to default (if present) or straight out of the switch.
// Bodies fall through to one another exactly as written (real switch
// fallthrough), so they are emitted afterward, in lexical order, from a
// second pass over positions snapshotted during the first.
func (p *ParserState) parseSwitchStatement() error {
	if err := p.expectKeyword("switch"); err != nil {
		return err
	}
	if err := p.expectPunct(PunctLParen); err != nil {
		return err
	}
	if err := p.parseExpression(exprFlags{}); err != nil {
		return err
	}
	if err := p.expectPunct(PunctRParen); err != nil {
		return err
	}
	if err := p.expectPunct(PunctLBrace); err != nil {
		return err
	}

	scope := p.fd.PushScope(false, false)
	p.em.EmitEnterScope(scope)

	breakLabel := p.fd.NewLabel()
	be := p.fd.PushBlockEnv(BlockSwitch, AtomNull)
	be.BreakLabel, be.HasBreak = breakLabel, true

	var clauses []switchClause
	defaultIdx := -1

	for !p.cur.IsPunct(PunctRBrace) {
		switch {
		case p.cur.IsKeyword("default"):
			if defaultIdx != -1 {
				return p.syntaxErrorf("duplicate default clause in switch statement")
			}
			if err := p.next(); err != nil {
				return err
			}
			if err := p.expectPunct(PunctColon); err != nil {
				return err
			}
			defaultIdx = len(clauses)
			clauses = append(clauses, switchClause{isDefault: true, bodyLabel: p.fd.NewLabel()})
		case p.cur.IsKeyword("case"):
			if err := p.next(); err != nil {
				return err
			}
			trampoline := p.fd.NewLabel()
			p.em.EmitOp(OpDup)
			if err := p.parseExpression(exprFlags{}); err != nil {
				return err
			}
			p.em.EmitOp(OpStrictEq)
			p.em.EmitCondJump(OpIfTrue, trampoline)
			if err := p.expectPunct(PunctColon); err != nil {
				return err
			}
			clauses = append(clauses, switchClause{trampoline: trampoline, bodyLabel: p.fd.NewLabel()})
		default:
			return p.syntaxErrorf("expected 'case' or 'default' in switch body")
		}

		snap := p.scanner.Snapshot()
		cur, prev := p.cur, p.prev
		if err := p.skipSwitchClauseBody(); err != nil {
			return err
		}
		clauses[len(clauses)-1].bodySnap = snap
		clauses[len(clauses)-1].bodyCur = cur
		clauses[len(clauses)-1].bodyPrev = prev
	}
	if err := p.expectPunct(PunctRBrace); err != nil {
		return err
	}

	if defaultIdx != -1 {
		p.em.EmitOp(OpDrop)
		p.em.EmitGoto(clauses[defaultIdx].trampolineOrBody())
	} else {
		p.em.EmitOp(OpDrop)
		p.em.EmitGoto(breakLabel)
	}

	for i := range clauses {
		c := &clauses[i]
		if c.isDefault {
			continue
		}
		p.em.EmitLabel(c.trampoline)
		p.em.EmitOp(OpDrop)
		p.em.EmitGoto(c.bodyLabel)
	}

	savedScanner := p.scanner.Snapshot()
	savedCur, savedPrev := p.cur, p.prev

	for i := range clauses {
		c := clauses[i]
		p.em.EmitLabel(c.bodyLabel)
		p.scanner.Restore(c.bodySnap)
		p.cur, p.prev = c.bodyCur, c.bodyPrev
		if err := p.parseStatementList(tokenIsSwitchClauseBoundary); err != nil {
			return err
		}
	}

	p.scanner.Restore(savedScanner)
	p.cur, p.prev = savedCur, savedPrev

	p.fd.PopBlockEnv()
	p.em.EmitLabel(breakLabel)
	p.em.EmitLeaveScope(scope)
	p.fd.PopScope()
	return nil
}

func (c switchClause) trampolineOrBody() int {
	if c.isDefault {
		return c.bodyLabel
	}
	return c.trampoline
}

// peekTryHasFinally looks past a try statement's block (and, if present,
// its catch clause) to tell whether a finally clause follows, without
// consuming any tokens for real. Knowing this ahead of parsing the try
// block lets return/break/continue inside it gosub through the finally
// before unwinding further.
func (p *ParserState) peekTryHasFinally() (bool, error) {
	snap := p.scanner.Snapshot()
	savedCur, savedPrev := p.cur, p.prev
	defer func() {
		p.scanner.Restore(snap)
		p.cur, p.prev = savedCur, savedPrev
	}()

	skipBraced := func() error {
		if err := p.next(); err != nil { // consume '{'
			return err
		}
		depth := 1
		for depth > 0 {
			if p.cur.Kind == TokEOF {
				return p.syntaxErrorf("unexpected end of input in try statement")
			}
			switch {
			case p.cur.IsPunct(PunctLBrace):
				depth++
			case p.cur.IsPunct(PunctRBrace):
				depth--
			}
			if err := p.next(); err != nil {
				return err
			}
		}
		return nil
	}

	if err := skipBraced(); err != nil {
		return false, err
	}
	if p.cur.IsKeyword("catch") {
		if err := p.next(); err != nil {
			return false, err
		}
		if ok, err := p.consumePunct(PunctLParen); err != nil {
			return false, err
		} else if ok {
			depth := 1
			for depth > 0 {
				if p.cur.Kind == TokEOF {
					return false, p.syntaxErrorf("unexpected end of input in catch clause")
				}
				switch {
				case p.cur.IsPunct(PunctLParen):
					depth++
				case p.cur.IsPunct(PunctRParen):
					depth--
				}
				if err := p.next(); err != nil {
					return false, err
				}
			}
		}
		if !p.cur.IsPunct(PunctLBrace) {
			return false, p.syntaxErrorf("expected '{' after catch clause")
		}
		if err := skipBraced(); err != nil {
			return false, err
		}
	}
	return p.cur.IsKeyword("finally"), nil
}

// parseTryStatement lowers try/catch/finally onto the catch/gosub/ret
// opcode family: `catch L` establishes a handler before the try block: on
// a thrown exception control transfers to L with the exception value
// left on the stack. A finally clause is emitted once, as a gosub
// target, reached via gosub from normal completion, from the catch path,
// and (through BlockFinally's GosubLabel) from any break/continue/return
// unwinding out through the try.
func (p *ParserState) parseTryStatement() error {
	if err := p.expectKeyword("try"); err != nil {
		return err
	}

	hasFinally, err := p.peekTryHasFinally()
	if err != nil {
		return err
	}

	catchLabel := p.fd.NewLabel()
	skipCatchLabel := p.fd.NewLabel()
	endLabel := p.fd.NewLabel()

	var finallyBE *BlockEnv
	gosubLabel := -1
	if hasFinally {
		gosubLabel = p.fd.NewLabel()
		finallyBE = p.fd.PushBlockEnv(BlockFinally, AtomNull)
		finallyBE.GosubLabel, finallyBE.HasGosub = gosubLabel, true
	}

	p.em.EmitCondJump(OpCatch, catchLabel)

	p.fd.PushBlockEnv(BlockTry, AtomNull)
	if err := p.parseBlockStatement(); err != nil {
		return err
	}
	p.fd.PopBlockEnv()

	p.em.EmitGoto(skipCatchLabel)
	p.em.EmitLabel(catchLabel)

	hasCatch := false
	if p.cur.IsKeyword("catch") {
		hasCatch = true
		if err := p.next(); err != nil {
			return err
		}
		scope := p.fd.PushScope(false, true)
		p.em.EmitEnterScope(scope)
		if ok, err := p.consumePunct(PunctLParen); err != nil {
			return err
		} else if ok {
			name, err := p.expectIdentName()
			if err != nil {
				return err
			}
			if _, err := p.fd.DeclareVar(name, VarKindCatchParam); err != nil {
				return p.syntaxErrorf("%s", err.Error())
			}
			p.em.EmitScopePutVarInit(name, p.fd.CurrentScope)
			if err := p.expectPunct(PunctRParen); err != nil {
				return err
			}
		} else {
			p.em.EmitOp(OpDrop) // catch binding omitted; discard the exception value
		}
		p.fd.PushBlockEnv(BlockCatch, AtomNull)
		if err := p.parseBlockStatement(); err != nil {
			return err
		}
		p.fd.PopBlockEnv()
		p.em.EmitLeaveScope(scope)
		p.fd.PopScope()
	} else {
		if hasFinally {
			p.em.EmitGosub(gosubLabel)
		}
		p.em.EmitOp(OpThrow)
	}

	p.em.EmitLabel(skipCatchLabel)

	if hasFinally {
		p.fd.PopBlockEnv() // finallyBE
		p.em.EmitGosub(gosubLabel)
		p.em.EmitGoto(endLabel)
		p.em.EmitLabel(gosubLabel)
		if err := p.parseBlockStatement(); err != nil {
			return err
		}
		p.em.EmitOp(OpRet)
		p.em.EmitLabel(endLabel)
	}

	if !hasCatch && !hasFinally {
		return p.syntaxErrorf("missing catch or finally after try")
	}
	return nil
}
