package jsfe

import "github.com/pkg/errors"

// ParseFlags configures optional grammar extensions and diagnostics, as
// a constant-enum bitmask selecting which lexical mode is active.
type ParseFlags uint32

const (
	FlagNone ParseFlags = 0
	// FlagStrict forces the whole unit to be parsed as strict mode even
	// without a "use strict" directive prologue (used for module goal
	// and class bodies, which are always strict).
	FlagStrict ParseFlags = 1 << iota
	// FlagAllowHTMLComments permits the legacy <!-- --> comment forms
	// some hosts still feed through a script element.
	FlagAllowHTMLComments
	// FlagAllowUndeclaredVarsSloppyCatch permits the legacy "catch
	// without binding + same-name var" sloppy compatibility annex some
	// hosts still script against.
	FlagAllowUndeclaredVarsSloppyCatch
)

// ParserState holds the scanner, atom table, logger and active
// FunctionDef/Emitter/BlockEnv context for one parse. It is constructed
// fresh per top-level ParseScript call; nested function bodies reuse the
// same ParserState, swapping only its fd/emitter fields as the parser
// descends into and returns from each function.
type ParserState struct {
	scanner *Scanner
	atoms   *AtomTable
	log     Logger
	flags   ParseFlags

	fd      *FunctionDef
	em      *Emitter
	goal    ParseGoal

	cur  Token
	prev Token

	// inAsync/inGenerator/inClassField/inClassStaticBlock
	// track grammar context that determines whether yield/await/super
	// are keywords or ordinary identifiers at the current position.
	inAsync            bool
	inGenerator         bool
	inClassField        bool
	inClassStaticBlock  bool
	inLoopOrSwitchDepth int
	superAllowed        bool
	newTargetAllowed    bool

	filename string
	source   []byte

	// lastAssignTarget records what the expression just parsed by the
	// conditional/LHS chain would need for a write: set by parsePrimary's
	// member/identifier cases, consulted by parseAssignment and the
	// update-expression parsers, cleared by every binary/logical operator
	// once its operands are no longer simple references.
	lastAssignTarget assignTarget
}

// NewParserState creates a parser over source, with filename used for
// error messages and an AtomTable shared across the whole parse (so
// repeated identifiers intern to the same Atom).
func NewParserState(source []byte, filename string, flags ParseFlags, log Logger) *ParserState {
	if log == nil {
		log = NopLogger{}
	}
	return &ParserState{
		scanner:  NewScanner(source, filename),
		atoms:    NewAtomTable(),
		log:      log,
		flags:    flags,
		filename: filename,
		source:   source,
	}
}

// Atoms exposes the parser's AtomTable so a caller driving ParseScript
// and ResolveVariables together can print a disassembly with resolved
// names afterward.
func (p *ParserState) Atoms() *AtomTable { return p.atoms }

// ParseScript is the front end's primary entry point: it builds a fresh
// ParserState over source and parses it as goal, returning the
// top-level FunctionDef with every nested function parsed into
// FunctionDef.Children, still carrying scope_* placeholder opcodes. Call
// ResolveVariables on the result before disassembling or handing it to
// an evaluator.
func ParseScript(source []byte, filename string, goal ParseGoal, flags ParseFlags) (*FunctionDef, error) {
	return ParseScriptWithLogger(source, filename, goal, flags, nil)
}

// ParseScriptWithLogger is ParseScript with an explicit structured
// logger; passing nil uses a no-op logger.
func ParseScriptWithLogger(source []byte, filename string, goal ParseGoal, flags ParseFlags, log Logger) (*FunctionDef, error) {
	p := NewParserState(source, filename, flags, log)
	p.goal = goal
	kind := FuncKindTopLevel
	if goal == GoalModule {
		kind = FuncKindModule
		p.flags |= FlagStrict
	}
	fd := NewFunctionDef(nil, kind)
	fd.IsStrict = p.flags&FlagStrict != 0
	p.fd = fd
	p.em = NewEmitter(fd)

	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.parseDirectivePrologue(); err != nil {
		return nil, err
	}

	if goal == GoalModule {
		if err := p.parseModuleBody(); err != nil {
			return nil, err
		}
	} else {
		if err := p.parseStatementList(tokenIsEOF); err != nil {
			return nil, err
		}
	}

	if p.cur.Kind != TokEOF {
		return nil, p.syntaxErrorf("unexpected token after program body")
	}
	p.em.EmitOp(OpReturnUndef)
	p.log.Debug("parsed top-level unit", LogField{"kind", int(kind)}, LogField{"vars", len(fd.Vars)})
	return fd, nil
}

func tokenIsEOF(t Token) bool { return t.Kind == TokEOF }

// next advances the scanner by one token, storing the previous current
// token in p.prev (used by ASI and by postfix-operator no-line-terminator
// checks).
func (p *ParserState) next() error {
	p.prev = p.cur
	tok, err := p.scanner.NextToken()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *ParserState) syntaxErrorf(format string, args ...any) error {
	return &SyntaxError{
		FileName:   p.filename,
		LineNumber: p.cur.Line,
		Message:    errors.Errorf(format, args...).Error(),
	}
}

// expectPunct consumes the current token if it is punctuator want,
// otherwise reports a syntax error.
func (p *ParserState) expectPunct(want Punct) error {
	if !p.cur.IsPunct(want) {
		return p.syntaxErrorf("expected %q", punctText(want))
	}
	return p.next()
}

// consumePunct consumes and reports whether the current token is
// punctuator want, without erroring if it is not.
func (p *ParserState) consumePunct(want Punct) (bool, error) {
	if !p.cur.IsPunct(want) {
		return false, nil
	}
	return true, p.next()
}

func (p *ParserState) expectKeyword(kw string) error {
	if !p.cur.IsKeyword(kw) {
		return p.syntaxErrorf("expected keyword %q", kw)
	}
	return p.next()
}

// internAtom interns s into the shared atom table.
func (p *ParserState) internAtom(s string) (Atom, error) {
	return p.atoms.NewAtom(s, AtomKindString)
}

func (p *ParserState) internStr(s *StrValue) (Atom, error) {
	return p.internAtom(s.AsUTF8String())
}

// expectIdentName consumes an identifier or identifier-like keyword
// (contextual keywords such as "of"/"async"/"yield"/"let"/"static" are
// valid BindingIdentifiers outside their special grammar positions) and
// returns its interned atom.
func (p *ParserState) expectIdentName() (Atom, error) {
	if p.cur.Kind != TokIdent && p.cur.Kind != TokKeyword {
		return AtomNull, p.syntaxErrorf("expected identifier")
	}
	if p.cur.Kind == TokKeyword && isStrictOnlyAllowedAsIdent(p.cur.Str.AsUTF8String()) {
		return AtomNull, p.syntaxErrorf("unexpected reserved word %q", p.cur.Str.AsUTF8String())
	}
	a, err := p.internStr(p.cur.Str)
	if err != nil {
		return AtomNull, err
	}
	return a, p.next()
}

// isStrictOnlyAllowedAsIdent reports whether a TokKeyword name is
// refused as an identifier. Only the literal words true, false and null
// are refused; every other keyword the scanner classified is accepted
// here, whatever the strictness.
func isStrictOnlyAllowedAsIdent(name string) bool {
	switch name {
	case "true", "false", "null":
		return true
	}
	return false
}

// parseDirectivePrologue consumes leading string-literal-expression
// statements, recognizing "use strict" and flipping p.fd/p.scanner into
// strict mode for the remainder of this function body. "use strip" and
// "use math" are recognized syntactically (consumed like any other
// directive) but do not change parsing behavior in this implementation.
func (p *ParserState) parseDirectivePrologue() error {
	for p.cur.Kind == TokString {
		raw := p.cur.Raw
		literal := p.cur.Str.AsUTF8String()
		isPlainDirective := len(raw) >= 2 && raw[0] == raw[len(raw)-1] && !containsEscapeOrContinuation(raw)
		save := *p.scanner
		if err := p.next(); err != nil {
			return err
		}
		if !p.atStatementEnd() {
			*p.scanner = save
			p.cur = Token{Kind: TokString, Str: newLatin1OrWideString(literal), Raw: raw}
			break
		}
		if err := p.consumeSemicolonASI(); err != nil {
			return err
		}
		if isPlainDirective && literal == "use strict" {
			p.fd.IsStrict = true
			p.scanner.SetStrict(true)
		}
	}
	return nil
}

func containsEscapeOrContinuation(raw string) bool {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' {
			return true
		}
	}
	return false
}

func (p *ParserState) atStatementEnd() bool {
	return p.cur.IsPunct(PunctSemi) || p.cur.IsPunct(PunctRBrace) || p.cur.Kind == TokEOF || p.cur.GotLF
}

// consumeSemicolonASI implements automatic semicolon insertion: an
// explicit ';' is consumed; otherwise a '}' or EOF or a line terminator
// before the next token silently ends the statement, and anything else
// is a syntax error.
func (p *ParserState) consumeSemicolonASI() error {
	if ok, err := p.consumePunct(PunctSemi); err != nil || ok {
		return err
	}
	if p.cur.IsPunct(PunctRBrace) || p.cur.Kind == TokEOF || p.cur.GotLF {
		return nil
	}
	return p.syntaxErrorf("expected ';'")
}

func punctText(p Punct) string {
	if s, ok := punctTextTable[p]; ok {
		return s
	}
	return "?"
}

var punctTextTable = map[Punct]string{
	PunctLBrace: "{", PunctRBrace: "}", PunctLParen: "(", PunctRParen: ")",
	PunctLBracket: "[", PunctRBracket: "]", PunctDot: ".", PunctDotDotDot: "...",
	PunctSemi: ";", PunctComma: ",", PunctColon: ":", PunctArrow: "=>",
	PunctEq: "=", PunctQuestion: "?",
}
