package jsfe

// TokenKind identifies what a Token carries. Punctuators and keywords
// each get their own kind rather than sharing a generic "operator" kind
// with a string payload: a discriminant enum over stringly-typed
// dispatch.
type TokenKind uint16

const (
	TokEOF TokenKind = iota
	TokNumber
	TokBigInt
	TokString
	TokTemplate     // one chunk of a template literal, cooked + raw
	TokRegexp       // body + flags, only ever produced on request
	TokIdent        // identifier or identifier-like keyword (e.g. "of", "async")
	TokPrivateName  // #name
	TokKeyword      // reserved word: if, for, class, ...
	TokPunct        // operator/punctuator
	TokNoSubTemplate // a template literal with no substitutions: `...`
	TokTemplateHead
	TokTemplateMiddle
	TokTemplateTail
)

// Punct enumerates punctuator/operator lexemes. Kept distinct from
// Opcode: a punctuator is surface syntax, not a bytecode instruction,
// even where their names coincide (e.g. "+").
type Punct uint16

const (
	PunctNone Punct = iota
	PunctLBrace
	PunctRBrace
	PunctLParen
	PunctRParen
	PunctLBracket
	PunctRBracket
	PunctDot
	PunctDotDotDot
	PunctSemi
	PunctComma
	PunctLt
	PunctGt
	PunctLte
	PunctGte
	PunctEqEq
	PunctNeqEq
	PunctEqEqEq
	PunctNeqEqEq
	PunctPlus
	PunctMinus
	PunctStar
	PunctPercent
	PunctStarStar
	PunctPlusPlus
	PunctMinusMinus
	PunctShl
	PunctSar
	PunctShr
	PunctAmp
	PunctPipe
	PunctCaret
	PunctBang
	PunctTilde
	PunctAmpAmp
	PunctPipePipe
	PunctQuestionQuestion
	PunctQuestion
	PunctQuestionDot
	PunctColon
	PunctEq
	PunctPlusEq
	PunctMinusEq
	PunctStarEq
	PunctPercentEq
	PunctStarStarEq
	PunctShlEq
	PunctSarEq
	PunctShrEq
	PunctAmpEq
	PunctPipeEq
	PunctCaretEq
	PunctAmpAmpEq
	PunctPipePipeEq
	PunctQuestionQuestionEq
	PunctArrow
	PunctSlash
	PunctSlashEq
	PunctAt // decorators, parsed but rejected unless a future flag enables them
)

// Token is the scanner's single output unit: one struct with a
// discriminant (Kind) and the union of payload fields any kind might
// need.
type Token struct {
	Kind TokenKind

	// Punct is valid when Kind == TokPunct.
	Punct Punct

	// NumValue is valid when Kind == TokNumber.
	NumValue float64

	// BigIntDigits holds the decimal digit text (sign-free, base
	// already normalized to base 10 text by the scanner) when
	// Kind == TokBigInt.
	BigIntDigits string

	// Str is valid for TokString/TokTemplate*/TokRegexp(body)/TokIdent/
	// TokPrivateName/TokKeyword: the cooked value for strings/templates,
	// the decoded name (\u escapes resolved) for identifiers/keywords, and
	// the source text for a regexp body.
	Str *StrValue

	// Raw is the uncooked source text, populated for TokTemplate* and
	// TokString so tagged templates can recover the original escapes.
	Raw string

	// RegexpFlags holds the trailing flag letters when Kind == TokRegexp.
	RegexpFlags string

	// HasEscape marks identifiers/keywords spelled with a \u escape:
	// such tokens can never match a reserved word per the grammar even
	// when their resolved text does (e.g. "if" written with a \u escape
	// for its first letter is not the keyword if).
	HasEscape bool

	// GotLF marks whether a line terminator appeared between the
	// previous token and this one; the ASI and arrow-function-parameter
	// productions both consult this field directly
	GotLF bool

	// Line and Col are 1-based source positions of the token's first
	// character, used for error messages and the pc2line table.
	Line int
	Col  int

	// Pos is the byte offset of the token's first character in the
	// original source buffer.
	Pos int
	End int
}

// IsKeyword reports whether t is a reserved word whose text is exactly
// name (and which was not spelled with an escape, since escaped reserved
// words are never treated as keywords).
func (t *Token) IsKeyword(name string) bool {
	return t.Kind == TokKeyword && !t.HasEscape && t.Str != nil && t.Str.AsUTF8String() == name
}

// IsIdent reports whether t is an identifier (not a keyword) whose text
// is exactly name. Used for contextual keywords like "of", "async",
// "yield" outside strict/generator context.
func (t *Token) IsIdent(name string) bool {
	return t.Kind == TokIdent && t.Str != nil && t.Str.AsUTF8String() == name
}

// IsPunct reports whether t is the punctuator p.
func (t *Token) IsPunct(p Punct) bool {
	return t.Kind == TokPunct && t.Punct == p
}
