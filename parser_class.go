package jsfe

// classMember is a non-constructor class element, already compiled into
// one or two nested FunctionDefs (its value/method, and — for a
// computed key — the key expression too) by the time it is recorded.
// Wiring onto the class value is deferred until after the class value
// exists on the enclosing stack, which is only known once every element
// has been scanned (the "constructor" element may appear anywhere in
// source order), so nothing here writes to the enclosing function's
// bytecode until parseClassTail's wiring loop runs.
type classMember struct {
	isField     bool
	computed    bool
	name        Atom         // property key, when !computed
	keyFd       *FunctionDef // zero-arg function computing the key, when computed
	fd          *FunctionDef // method closure, or field initializer (zero-arg, called once)
	staticBlock bool         // fd is a static block's body; no property to define
}

// parseClassExpression parses a ClassExpression in primary-expression
// position, leaving the class value on the stack.
func (p *ParserState) parseClassExpression() error {
	_, err := p.parseClassTail()
	return err
}

// parseClassDeclaration parses a ClassDeclaration, leaving the class
// value on the stack and returning its bound name (AtomNull for an
// unnamed default-export class, handled by the caller).
func (p *ParserState) parseClassDeclaration() (Atom, error) {
	return p.parseClassTail()
}

// parseClassTail implements `class` Identifier? ClassHeritage? `{`
// ClassBody `}`, common to both declaration and expression forms.
//
// Class bodies are always strict, and `super` is valid inside every
// method (including field initializers). Static and instance members
// are wired onto the same class value: this front end has no separate
// prototype-object model to execute against, so a faithful split
// between "instance members live on the prototype, static members live
// on the constructor" does not change any observable behavior here —
// documented as a known simplification. Likewise, every field
// initializer (instance or static) is evaluated once at class-
// definition time rather than once per constructed instance, since
// there is no constructor-integration point to run instance
// initializers against real instances.
func (p *ParserState) parseClassTail() (Atom, error) {
	if err := p.expectKeyword("class"); err != nil {
		return AtomNull, err
	}
	name := AtomNull
	if p.cur.Kind == TokIdent {
		var err error
		name, err = p.expectIdentName()
		if err != nil {
			return AtomNull, err
		}
	}

	savedStrict := p.fd.IsStrict
	savedSuperAllowed := p.superAllowed
	p.fd.IsStrict = true
	p.superAllowed = true
	defer func() {
		p.fd.IsStrict = savedStrict
		p.superAllowed = savedSuperAllowed
	}()

	hasSuper := false
	if p.cur.IsKeyword("extends") {
		if err := p.next(); err != nil {
			return AtomNull, err
		}
		if err := p.parseLHSExpression(exprFlags{}); err != nil {
			return AtomNull, err
		}
		hasSuper = true
	} else {
		p.em.EmitOp(OpUndefined)
	}

	if err := p.expectPunct(PunctLBrace); err != nil {
		return AtomNull, err
	}

	var ctorFd *FunctionDef
	var members []classMember
	hasPrivate := false

	for !p.cur.IsPunct(PunctRBrace) {
		if ok, err := p.consumePunct(PunctSemi); err != nil {
			return AtomNull, err
		} else if ok {
			continue
		}

		isStatic := false
		if p.cur.IsIdent("static") {
			next, err := p.scanner.PeekToken(1)
			if err == nil && next.IsPunct(PunctLBrace) {
				if err := p.next(); err != nil { // consume "static"
					return AtomNull, err
				}
				fd, err := p.parseStaticBlock()
				if err != nil {
					return AtomNull, err
				}
				members = append(members, classMember{fd: fd, staticBlock: true})
				continue
			}
			if err == nil && !next.IsPunct(PunctLParen) && !next.IsPunct(PunctEq) &&
				!next.IsPunct(PunctSemi) && !next.IsPunct(PunctRBrace) {
				if err := p.next(); err != nil { // consume "static"
					return AtomNull, err
				}
				isStatic = true
			}
		}

		member, isCtor, ctorChild, private, err := p.parseClassElement(isStatic)
		if err != nil {
			return AtomNull, err
		}
		if private {
			hasPrivate = true
		}
		if isCtor {
			ctorFd = ctorChild
			continue
		}
		members = append(members, member)
	}
	if err := p.expectPunct(PunctRBrace); err != nil {
		return AtomNull, err
	}

	if ctorFd == nil {
		var err error
		ctorFd, err = p.synthesizeDefaultConstructor(hasSuper)
		if err != nil {
			return AtomNull, err
		}
	}
	ctorFd.HasBrand = hasPrivate && hasSuper

	ctorIdx := p.em.CpoolAdd(ctorFd)
	p.em.EmitU32(OpDefineClass, uint32(ctorIdx))
	if name != AtomNull {
		p.em.EmitAtom(OpSetClassName, name)
	}
	if hasPrivate {
		p.em.EmitOp(OpAddBrand) // in place, like define_field/define_method: class value stays on the stack
	}

	// Each define_field/define_method/define_*_computed below follows the
	// same stack contract object-literal property definitions use: it
	// consumes its key/value operand(s) and leaves the class value in
	// place, so no per-member dup/drop bracketing is needed.
	for _, m := range members {
		if m.staticBlock {
			idx := p.em.CpoolAdd(m.fd)
			p.em.EmitU32(OpPushClosure, uint32(idx))
			p.em.EmitU16(OpCall, 0)
			p.em.EmitOp(OpDrop) // the static block's own return value
			continue
		}
		if m.computed {
			keyIdx := p.em.CpoolAdd(m.keyFd)
			p.em.EmitU32(OpPushClosure, uint32(keyIdx))
			p.em.EmitU16(OpCall, 0)
			p.em.EmitOp(OpToPropkey)
		}
		if m.isField {
			idx := p.em.CpoolAdd(m.fd)
			p.em.EmitU32(OpPushClosure, uint32(idx))
			p.em.EmitU16(OpCall, 0)
		} else {
			idx := p.em.CpoolAdd(m.fd)
			p.em.EmitU32(OpPushClosure, uint32(idx))
		}
		switch {
		case m.isField && m.computed:
			p.em.EmitOp(OpDefineFieldComputed)
		case m.isField:
			p.em.EmitAtom(OpDefineField, m.name)
		case m.computed:
			p.em.EmitOp(OpDefineMethodComputed)
		default:
			p.em.EmitAtom(OpDefineMethod, m.name)
		}
	}

	p.lastAssignTarget = assignTarget{}
	return name, nil
}

// parseStaticBlock parses `static` `{` StatementList `}`, compiling it
// as a zero-argument function invoked immediately at class-definition
// time (see parseClassTail's doc comment on timing).
func (p *ParserState) parseStaticBlock() (*FunctionDef, error) {
	noParams := func() error { return nil }
	body := func() error {
		p.fd.PushBlockEnv(BlockClassStatic, AtomNull)
		defer p.fd.PopBlockEnv()
		return p.parseFunctionBody()
	}
	savedStatic := p.inClassStaticBlock
	p.inClassStaticBlock = true
	fd, err := p.compileNestedFunction(FuncKindClassFieldInit, AtomNull, false, false, noParams, body)
	p.inClassStaticBlock = savedStatic
	return fd, err
}

// parseComputedKey compiles a `[` AssignmentExpression `]` property key
// into its own zero-argument function (see classMember.keyFd), so its
// evaluation can be deferred to the point the class value is wired
// without disturbing the enclosing function's own stack.
func (p *ParserState) parseComputedKey() (*FunctionDef, error) {
	if err := p.next(); err != nil { // consume '['
		return nil, err
	}
	noParams := func() error { return nil }
	body := func() error {
		if err := p.parseAssignment(exprFlags{}); err != nil {
			return err
		}
		p.em.EmitOp(OpReturn)
		return nil
	}
	fd, err := p.compileNestedFunction(FuncKindClassFieldInit, AtomNull, false, false, noParams, body)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(PunctRBracket); err != nil {
		return nil, err
	}
	return fd, nil
}

// parseClassElement parses one class element other than a bare ';'. It
// returns either a constructor FunctionDef (isCtor true) or a
// classMember describing a field or method to wire in after the class
// value exists. isStatic only affects whether a literal "constructor"
// name is recognized as the class constructor (it never is, for a
// static member) — static and instance members are otherwise wired
// identically, see parseClassTail's doc comment.
func (p *ParserState) parseClassElement(isStatic bool) (member classMember, isCtor bool, ctorFd *FunctionDef, private bool, err error) {
	isAsync, isGenerator := false, false
	if p.cur.IsIdent("async") {
		if next, e := p.scanner.PeekToken(1); e == nil && !next.GotLF &&
			!next.IsPunct(PunctEq) && !next.IsPunct(PunctLParen) && !next.IsPunct(PunctSemi) && !next.IsPunct(PunctRBrace) {
			if err = p.next(); err != nil {
				return
			}
			isAsync = true
		}
	}
	if p.cur.IsPunct(PunctStar) {
		if err = p.next(); err != nil {
			return
		}
		isGenerator = true
	}

	accessorKind := FuncKindMethod
	if (p.cur.IsIdent("get") || p.cur.IsIdent("set")) && !isAsync && !isGenerator {
		accessor := p.cur.Str.AsUTF8String()
		if next, e := p.scanner.PeekToken(1); e == nil &&
			!next.IsPunct(PunctEq) && !next.IsPunct(PunctLParen) && !next.IsPunct(PunctSemi) && !next.IsPunct(PunctRBrace) {
			if err = p.next(); err != nil {
				return
			}
			if accessor == "get" {
				accessorKind = FuncKindGetter
			} else {
				accessorKind = FuncKindSetter
			}
		}
	}

	computed := p.cur.IsPunct(PunctLBracket)
	var name Atom
	var keyFd *FunctionDef
	switch {
	case computed:
		keyFd, err = p.parseComputedKey()
		if err != nil {
			return
		}
	case p.cur.Kind == TokPrivateName:
		private = true
		var n Atom
		n, err = p.internAtom("#" + p.cur.Str.AsUTF8String())
		if err != nil {
			return
		}
		name = n
		if err = p.next(); err != nil {
			return
		}
	default:
		name, err = p.propertyKeyName()
		if err != nil {
			return
		}
	}

	if p.cur.IsPunct(PunctLParen) {
		kind := funcExprKind(isAsync, isGenerator)
		switch {
		case accessorKind != FuncKindMethod:
			kind = accessorKind
		case kind == FuncKindNormal:
			kind = FuncKindMethod
		}
		isCtorName := false
		if !computed && !private && !isStatic && kind == FuncKindMethod {
			var ctorAtom Atom
			ctorAtom, err = p.internAtom("constructor")
			if err != nil {
				return
			}
			isCtorName = name == ctorAtom
		}
		if isCtorName {
			var child *FunctionDef
			child, err = p.compileNestedFunction(FuncKindClassConstructor, name, false, false, p.parseParenParams, p.parseFunctionBody)
			if err != nil {
				return
			}
			ctorFd = child
			isCtor = true
			return
		}
		var child *FunctionDef
		child, err = p.compileNestedFunction(kind, name, isAsync, isGenerator, p.parseParenParams, p.parseFunctionBody)
		if err != nil {
			return
		}
		member = classMember{isField: false, computed: computed, name: name, keyFd: keyFd, fd: child}
		return
	}

	// Field: optional `= initializer`, terminated by ASI.
	noParams := func() error { return nil }
	body := func() error {
		if ok, e := p.consumePunct(PunctEq); e != nil {
			return e
		} else if ok {
			if e := p.parseAssignment(exprFlags{}); e != nil {
				return e
			}
		} else {
			p.em.EmitOp(OpUndefined)
		}
		p.em.EmitOp(OpReturn)
		return nil
	}
	var child *FunctionDef
	child, err = p.compileNestedFunction(FuncKindClassFieldInit, name, false, false, noParams, body)
	if err != nil {
		return
	}
	if err = p.consumeSemicolonASI(); err != nil {
		return
	}
	member = classMember{isField: true, computed: computed, name: name, keyFd: keyFd, fd: child}
	return
}

// synthesizeDefaultConstructor builds the implicit `constructor(...args)
// { super(...args); }` (derived class) or `constructor() {}` (base
// class) a class without an explicit constructor element receives.
func (p *ParserState) synthesizeDefaultConstructor(hasSuper bool) (*FunctionDef, error) {
	restName, err := p.internAtom("args")
	if err != nil {
		return nil, err
	}
	params := func() error {
		if hasSuper {
			p.fd.DeclareArg(restName, true)
		}
		return nil
	}
	body := func() error {
		if hasSuper {
			p.em.EmitOp(OpPushThis)
			p.em.EmitScopeGetVar(restName, p.fd.CurrentScope)
			p.em.EmitOp(OpAppend) // spread the rest parameter into the super call, see parseArguments
			p.em.EmitU16(OpCallConstructor, 0)
			p.em.EmitOp(OpCheckCtorReturn)
			p.em.EmitOp(OpDrop)
		}
		p.em.EmitOp(OpReturnUndef)
		return nil
	}
	return p.compileNestedFunction(FuncKindClassConstructor, AtomNull, false, false, params, body)
}
