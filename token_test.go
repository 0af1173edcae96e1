package jsfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenIsKeywordRejectsEscaped(t *testing.T) {
	tok := Token{Kind: TokKeyword, Str: newLatin1OrWideString("if"), HasEscape: true}
	assert.False(t, tok.IsKeyword("if"), "an escaped spelling of a reserved word is never a keyword")
}

func TestTokenIsKeywordMatchesExactText(t *testing.T) {
	tok := Token{Kind: TokKeyword, Str: newLatin1OrWideString("for")}
	assert.True(t, tok.IsKeyword("for"))
	assert.False(t, tok.IsKeyword("while"))
}

func TestTokenIsIdentOnlyMatchesIdentKind(t *testing.T) {
	ident := Token{Kind: TokIdent, Str: newLatin1OrWideString("of")}
	assert.True(t, ident.IsIdent("of"))

	kw := Token{Kind: TokKeyword, Str: newLatin1OrWideString("of")}
	assert.False(t, kw.IsIdent("of"))
}

func TestTokenIsPunct(t *testing.T) {
	tok := Token{Kind: TokPunct, Punct: PunctArrow}
	assert.True(t, tok.IsPunct(PunctArrow))
	assert.False(t, tok.IsPunct(PunctEq))
}
