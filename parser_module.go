package jsfe

// resolveModuleRequest interns name as a module specifier this module
// depends on, deduplicating by specifier text so "from './a.js'"
// appearing in two different import/export declarations shares one
// table entry.
func (p *ParserState) resolveModuleRequest(name string, isExport bool) int {
	for i, mr := range p.fd.ModuleRequests {
		if mr.ModuleName == name {
			if isExport {
				p.fd.ModuleRequests[i].IsExport = true
			}
			return i
		}
	}
	p.fd.ModuleRequests = append(p.fd.ModuleRequests, ModuleRequest{ModuleName: name, IsExport: isExport})
	return len(p.fd.ModuleRequests) - 1
}

func (p *ParserState) expectStringLiteral() (string, error) {
	if p.cur.Kind != TokString {
		return "", p.syntaxErrorf("expected string literal")
	}
	s := p.cur.Str.AsUTF8String()
	if err := p.next(); err != nil {
		return "", err
	}
	return s, nil
}

// expectModuleExportName accepts either an identifier or (per the
// arbitrary-module-namespace-names extension) a string literal wherever
// an export/import binding name is expected.
func (p *ParserState) expectModuleExportName() (Atom, error) {
	if p.cur.Kind == TokString {
		a, err := p.internStr(p.cur.Str)
		if err != nil {
			return AtomNull, err
		}
		return a, p.next()
	}
	return p.expectIdentName()
}

// parseModuleBody parses a module's StatementList, where import/export
// declarations are additionally permitted at the top level. p.fd is
// already a FuncKindModule FunctionDef.
func (p *ParserState) parseModuleBody() error {
	for p.cur.Kind != TokEOF {
		switch {
		case p.cur.IsKeyword("import"):
			if err := p.parseImportDeclaration(); err != nil {
				return err
			}
		case p.cur.IsKeyword("export"):
			if err := p.parseExportDeclaration(); err != nil {
				return err
			}
		default:
			if err := p.parseStatement(); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseImportDeclaration parses every import form: default, namespace,
// named, combinations of the three, and the bare `import "mod";` side
// effect form. Imported bindings are declared as module-scope lets with
// no store emitted, since their values are supplied by module linking,
// not by this module's own bytecode.
func (p *ParserState) parseImportDeclaration() error {
	if err := p.expectKeyword("import"); err != nil {
		return err
	}

	if p.cur.Kind == TokString {
		spec, err := p.expectStringLiteral()
		if err != nil {
			return err
		}
		p.resolveModuleRequest(spec, false)
		return p.consumeSemicolonASI()
	}

	var bindings []ImportEntry
	sawClause := false

	if p.cur.Kind == TokIdent || (p.cur.Kind == TokKeyword && !isStrictOnlyAllowedAsIdent(p.cur.Str.AsUTF8String())) {
		sawClause = true
		local, err := p.expectIdentName()
		if err != nil {
			return err
		}
		defaultName, err := p.internLiteral("default")
		if err != nil {
			return err
		}
		bindings = append(bindings, ImportEntry{LocalName: local, ImportName: defaultName})
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return err
		} else if ok {
			more, err := p.parseImportClauseTail()
			if err != nil {
				return err
			}
			bindings = append(bindings, more...)
		}
	} else if p.cur.IsPunct(PunctStar) || p.cur.IsPunct(PunctLBrace) {
		sawClause = true
		more, err := p.parseImportClauseTail()
		if err != nil {
			return err
		}
		bindings = append(bindings, more...)
	}

	if !sawClause {
		return p.syntaxErrorf("expected import clause")
	}

	if !p.cur.IsIdent("from") {
		return p.syntaxErrorf("expected 'from' in import declaration")
	}
	if err := p.next(); err != nil {
		return err
	}
	spec, err := p.expectStringLiteral()
	if err != nil {
		return err
	}
	idx := p.resolveModuleRequest(spec, false)

	for _, b := range bindings {
		b.ModuleIdx = idx
		p.fd.Imports = append(p.fd.Imports, b)
		if _, err := p.fd.DeclareVar(b.LocalName, VarKindLet); err != nil {
			return p.syntaxErrorf("%s", err.Error())
		}
	}
	return p.consumeSemicolonASI()
}

// parseImportClauseTail parses a namespace import ("* as ns") or a named
// import list ("{ a, b as c }"), whichever starts at p.cur. ModuleIdx is
// left unset; the caller fills it in once the trailing "from" clause is
// parsed.
func (p *ParserState) parseImportClauseTail() ([]ImportEntry, error) {
	if ok, err := p.consumePunct(PunctStar); err != nil {
		return nil, err
	} else if ok {
		if !p.cur.IsIdent("as") {
			return nil, p.syntaxErrorf("expected 'as' after '*' in import declaration")
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		local, err := p.expectIdentName()
		if err != nil {
			return nil, err
		}
		return []ImportEntry{{LocalName: local, ImportName: AtomNull}}, nil
	}

	if err := p.expectPunct(PunctLBrace); err != nil {
		return nil, err
	}
	var entries []ImportEntry
	for !p.cur.IsPunct(PunctRBrace) {
		importName, err := p.expectModuleExportName()
		if err != nil {
			return nil, err
		}
		localName := importName
		if p.cur.IsIdent("as") {
			if err := p.next(); err != nil {
				return nil, err
			}
			localName, err = p.expectIdentName()
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, ImportEntry{LocalName: localName, ImportName: importName})
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRBrace); err != nil {
		return nil, err
	}
	return entries, nil
}

// internLiteral interns a fixed ASCII literal used internally by the
// module machinery (export table names, and the synthetic local binding
// for an anonymous default export, that are never spelled as actual
// source identifiers).
func (p *ParserState) internLiteral(s string) (Atom, error) {
	return p.internAtom(s)
}

// parseExportDeclaration parses every export form: star re-export,
// named export list (with an optional re-export "from"), default
// export, and export of a var/let/const/function/class declaration.
func (p *ParserState) parseExportDeclaration() error {
	if err := p.expectKeyword("export"); err != nil {
		return err
	}

	switch {
	case p.cur.IsPunct(PunctStar):
		return p.parseExportStar()
	case p.cur.IsPunct(PunctLBrace):
		return p.parseExportNamedList()
	case p.cur.IsKeyword("default"):
		return p.parseExportDefault()
	case p.cur.IsKeyword("var"):
		if err := p.next(); err != nil {
			return err
		}
		return p.parseExportedVariableStatement(VarKindVar)
	case p.cur.IsKeyword("let"):
		if err := p.next(); err != nil {
			return err
		}
		return p.parseExportedVariableStatement(VarKindLet)
	case p.cur.IsKeyword("const"):
		if err := p.next(); err != nil {
			return err
		}
		return p.parseExportedVariableStatement(VarKindConst)
	case p.cur.IsKeyword("function"):
		name, err := p.parseFunctionDeclaration(false)
		if err != nil {
			return err
		}
		p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: name, LocalName: name, ModuleIdx: -1})
		return nil
	case p.cur.IsKeyword("class"):
		name, err := p.parseClassDeclaration()
		if err != nil {
			return err
		}
		if err := p.declareBinding(name, VarKindLet); err != nil {
			return err
		}
		p.em.EmitScopePutVarInit(name, p.fd.CurrentScope)
		p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: name, LocalName: name, ModuleIdx: -1})
		return nil
	case p.cur.IsIdent("async"):
		isAsyncFunc, err := p.peekAsyncFunctionDeclaration()
		if err != nil {
			return err
		}
		if !isAsyncFunc {
			return p.syntaxErrorf("unexpected token after export")
		}
		if err := p.next(); err != nil {
			return err
		}
		name, err := p.parseFunctionDeclaration(true)
		if err != nil {
			return err
		}
		p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: name, LocalName: name, ModuleIdx: -1})
		return nil
	default:
		return p.syntaxErrorf("unexpected token after export")
	}
}

func (p *ParserState) parseExportStar() error {
	if err := p.next(); err != nil { // consume '*'
		return err
	}
	var asName Atom = AtomNull
	if p.cur.IsIdent("as") {
		if err := p.next(); err != nil {
			return err
		}
		var err error
		asName, err = p.expectModuleExportName()
		if err != nil {
			return err
		}
	}
	if !p.cur.IsIdent("from") {
		return p.syntaxErrorf("expected 'from' after 'export *'")
	}
	if err := p.next(); err != nil {
		return err
	}
	spec, err := p.expectStringLiteral()
	if err != nil {
		return err
	}
	idx := p.resolveModuleRequest(spec, true)
	if asName == AtomNull {
		p.fd.HasStarExport = true
	} else {
		p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: asName, LocalName: AtomNull, ModuleIdx: idx})
	}
	return p.consumeSemicolonASI()
}

// parseExportNamedList parses `export { a, b as c }` and its re-export
// form `export { a, b as c } from "mod"`.
func (p *ParserState) parseExportNamedList() error {
	if err := p.expectPunct(PunctLBrace); err != nil {
		return err
	}
	type pending struct{ local, exported Atom }
	var entries []pending
	for !p.cur.IsPunct(PunctRBrace) {
		local, err := p.expectModuleExportName()
		if err != nil {
			return err
		}
		exported := local
		if p.cur.IsIdent("as") {
			if err := p.next(); err != nil {
				return err
			}
			exported, err = p.expectModuleExportName()
			if err != nil {
				return err
			}
		}
		entries = append(entries, pending{local, exported})
		if ok, err := p.consumePunct(PunctComma); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(PunctRBrace); err != nil {
		return err
	}

	moduleIdx := -1
	if p.cur.IsIdent("from") {
		if err := p.next(); err != nil {
			return err
		}
		spec, err := p.expectStringLiteral()
		if err != nil {
			return err
		}
		moduleIdx = p.resolveModuleRequest(spec, true)
	}

	for _, e := range entries {
		local := e.local
		if moduleIdx < 0 {
			// not a re-export: local must resolve against this module's own
			// bindings, so the bound atom (not a re-export placeholder) is
			// recorded directly.
			p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: e.exported, LocalName: local, ModuleIdx: -1})
		} else {
			p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: e.exported, LocalName: local, ModuleIdx: moduleIdx})
		}
	}
	return p.consumeSemicolonASI()
}

// parseExportDefault parses `export default`'s three productions: a
// named function/class declaration (exported as "default" while also
// binding its own name locally), and the bare-expression form, which is
// stored into a synthetic local binding so it has a LocalName an
// ExportEntry can reference.
func (p *ParserState) parseExportDefault() error {
	if err := p.expectKeyword("default"); err != nil {
		return err
	}
	defaultName, err := p.internLiteral("default")
	if err != nil {
		return err
	}

	switch {
	case p.cur.IsKeyword("function"):
		name, err := p.parseFunctionDeclaration(false)
		if err != nil {
			return err
		}
		p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: defaultName, LocalName: name, ModuleIdx: -1})
		p.fd.DefaultBound = true
		return nil
	case p.cur.IsKeyword("class"):
		name, err := p.parseClassDeclaration()
		if err != nil {
			return err
		}
		local := name
		if local == AtomNull {
			local, err = p.internLiteral("*default*")
			if err != nil {
				return err
			}
		}
		if err := p.declareBinding(local, VarKindLet); err != nil {
			return err
		}
		p.em.EmitScopePutVarInit(local, p.fd.CurrentScope)
		p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: defaultName, LocalName: local, ModuleIdx: -1})
		p.fd.DefaultBound = true
		return nil
	default:
		if err := p.parseAssignment(exprFlags{}); err != nil {
			return err
		}
		local, err := p.internLiteral("*default*")
		if err != nil {
			return err
		}
		if err := p.declareBinding(local, VarKindLet); err != nil {
			return err
		}
		p.em.EmitScopePutVarInit(local, p.fd.CurrentScope)
		p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: defaultName, LocalName: local, ModuleIdx: -1})
		p.fd.DefaultBound = true
		return p.consumeSemicolonASI()
	}
}

// parseExportedVariableStatement is parseVariableStatement's
// export-tracking counterpart: every plain-identifier declarator also
// becomes an ExportEntry. Destructuring-pattern declarators are still
// declared and initialized normally but, consistent with this parser's
// existing pattern-binding simplifications, their individual names are
// not added to the export table.
func (p *ParserState) parseExportedVariableStatement(kind VarKind) error {
	for {
		if p.cur.IsPunct(PunctLBrace) || p.cur.IsPunct(PunctLBracket) {
			if err := p.parseVariableDeclarator(kind); err != nil {
				return err
			}
		} else {
			name, err := p.expectIdentName()
			if err != nil {
				return err
			}
			if err := p.declareBinding(name, kind); err != nil {
				return err
			}
			if ok, err := p.consumePunct(PunctEq); err != nil {
				return err
			} else if ok {
				if err := p.parseAssignment(exprFlags{}); err != nil {
					return err
				}
				p.em.EmitScopePutVarInit(name, p.fd.CurrentScope)
			}
			p.fd.Exports = append(p.fd.Exports, ExportEntry{ExportName: name, LocalName: name, ModuleIdx: -1})
		}
		ok, err := p.consumePunct(PunctComma)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return p.consumeSemicolonASI()
}
