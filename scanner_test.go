package jsfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := NewScanner([]byte(src), "test.js")
	var toks []Token
	for {
		tok, err := s.NextToken()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks
		}
	}
}

func TestScannerGotLFSetOnlyAcrossLineTerminator(t *testing.T) {
	toks := scanAll(t, "a\nb c")
	require.Len(t, toks, 4) // a, b, c, EOF
	assert.False(t, toks[0].GotLF, "first token never carries a preceding line break")
	assert.True(t, toks[1].GotLF, "b follows a newline")
	assert.False(t, toks[2].GotLF, "c follows only a space")
}

func TestScannerGotLFAcrossLineComment(t *testing.T) {
	toks := scanAll(t, "a // trailing comment\nb")
	require.Len(t, toks, 3)
	assert.True(t, toks[1].GotLF)
}

func TestScannerGotLFAcrossMultilineBlockComment(t *testing.T) {
	toks := scanAll(t, "a /* spans\na line */ b")
	require.Len(t, toks, 3)
	assert.True(t, toks[1].GotLF)
}

func TestScannerByteAccountingPosAndEnd(t *testing.T) {
	toks := scanAll(t, "  foo(bar)")
	require.GreaterOrEqual(t, len(toks), 4)
	foo := toks[0]
	assert.Equal(t, 2, foo.Pos)
	assert.Equal(t, 5, foo.End)

	lparen := toks[1]
	assert.True(t, lparen.IsPunct(PunctLParen))
	assert.Equal(t, 5, lparen.Pos)
	assert.Equal(t, 6, lparen.End)
}

func TestScannerLineAndColTracking(t *testing.T) {
	toks := scanAll(t, "a\n  b")
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 3, toks[1].Col)
}

func TestScanRegexpBodyIsVerbatimSourceText(t *testing.T) {
	s := NewScanner([]byte(`/a\/b[/]c/gi after`), "test.js")
	tok, err := s.NextToken() // positions the lookahead at the leading '/'
	require.NoError(t, err)
	require.True(t, tok.IsPunct(PunctSlash))

	re, err := s.ScanRegexp()
	require.NoError(t, err)
	assert.Equal(t, TokRegexp, re.Kind)
	assert.Equal(t, `a\/b[/]c`, re.Str.AsUTF8String(), "regexp body is copied byte-for-byte, escapes untouched")
	assert.Equal(t, "gi", re.RegexpFlags)

	next, err := s.NextToken()
	require.NoError(t, err)
	assert.True(t, next.IsIdent("after"), "scanning resumes right after the regexp's flags")
}

func TestScanNumberPlainIntegerAndFloat(t *testing.T) {
	toks := scanAll(t, "0 42 3.14 1e10 1.5e-3")
	require.Len(t, toks, 6)
	want := []float64{0, 42, 3.14, 1e10, 1.5e-3}
	for i, w := range want {
		assert.Equal(t, TokNumber, toks[i].Kind)
		assert.Equal(t, w, toks[i].NumValue)
	}
}

func TestScanNumberBigIntSuffix(t *testing.T) {
	toks := scanAll(t, "123n")
	require.Len(t, toks, 2)
	assert.Equal(t, TokBigInt, toks[0].Kind)
	assert.Equal(t, "123", toks[0].BigIntDigits)
}

func TestScanNumberHexBigIntSuffix(t *testing.T) {
	toks := scanAll(t, "0xffn")
	require.Len(t, toks, 2)
	assert.Equal(t, TokBigInt, toks[0].Kind)
	assert.Equal(t, "255", toks[0].BigIntDigits)
}

func TestScanNumberFractionalBigIntSuffixIsInvalid(t *testing.T) {
	s := NewScanner([]byte("3.5n"), "test.js")
	_, err := s.NextToken()
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestScanNumberFollowedByIdentifierIsInvalid(t *testing.T) {
	s := NewScanner([]byte("3in"), "test.js")
	_, err := s.NextToken()
	require.Error(t, err)
}

func TestScanNumberFollowedBySpaceThenIdentIsFine(t *testing.T) {
	toks := scanAll(t, "3 in x")
	require.Len(t, toks, 4)
	assert.Equal(t, TokNumber, toks[0].Kind)
	assert.True(t, toks[1].IsKeyword("in"))
}

func TestScanStringEscapeSequences(t *testing.T) {
	toks := scanAll(t, `"a\nb\tc"`)
	require.Len(t, toks, 2)
	assert.Equal(t, "a\nb\tc", toks[0].Str.AsUTF8String())
}

func TestScanIdentWithUnicodeEscape(t *testing.T) {
	toks := scanAll(t, "\\u0069f")
	require.Len(t, toks, 2)
	assert.True(t, toks[0].HasEscape)
	assert.Equal(t, "if", toks[0].Str.AsUTF8String())
	// an escaped spelling of a reserved word is never classified as one
	assert.Equal(t, TokIdent, toks[0].Kind)
}
