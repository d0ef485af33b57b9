package wave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeEndsInSingleEOF(t *testing.T) {
	for _, src := range []string{
		"",
		"fun main() {}",
		"// just a comment",
		"/* block */",
	} {
		tokens, err := NewLexer(src).Tokenize()
		require.NoError(t, err, src)
		require.NotEmpty(t, tokens)
		assert.Equal(t, TokenEOF, tokens[len(tokens)-1].Kind)
		count := 0
		for _, tok := range tokens {
			if tok.Kind == TokenEOF {
				count++
			}
		}
		assert.Equal(t, 1, count, src)
	}
}

func TestTokenizeKeywordsAndTypes(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"fun", TokenFun},
		{"var", TokenVar},
		{"let", TokenLet},
		{"mut", TokenMut},
		{"const", TokenConst},
		{"while", TokenWhile},
		{"proto", TokenProto},
		{"struct", TokenStruct},
		{"asm", TokenAsm},
		{"in", TokenIn},
		{"out", TokenOut},
		{"clobber", TokenClobber},
		{"deref", TokenDeref},
		{"null", TokenNull},
		{"i8", TokenTypeInt},
		{"i32", TokenTypeInt},
		{"i1024", TokenTypeInt},
		{"isz", TokenTypeInt},
		{"u8", TokenTypeUint},
		{"u1024", TokenTypeUint},
		{"usz", TokenTypeUint},
		{"f32", TokenTypeFloat},
		{"f64", TokenTypeFloat},
		{"bool", TokenTypeBool},
		{"char", TokenTypeChar},
		{"byte", TokenTypeByte},
		{"str", TokenTypeStr},
		{"void", TokenTypeVoid},
		{"i33", TokenIdentifier},  // not a legal width
		{"i2048", TokenIdentifier},
		{"f16", TokenIdentifier},
		{"x", TokenIdentifier},
	}
	for _, tt := range tests {
		tokens, err := NewLexer(tt.input).Tokenize()
		require.NoError(t, err, tt.input)
		require.Len(t, tokens, 2, tt.input)
		assert.Equal(t, tt.kind, tokens[0].Kind, tt.input)
		assert.Equal(t, tt.input, tokens[0].Lexeme, tt.input)
	}
}

func TestTokenizeBoolLiterals(t *testing.T) {
	tokens, err := NewLexer("true false").Tokenize()
	require.NoError(t, err)
	assert.Equal(t,
		[]TokenKind{TokenBoolLiteral, TokenBoolLiteral, TokenEOF},
		kinds(tokens))
}

func TestTokenizeOperators(t *testing.T) {
	src := "+ ++ += - -- -= -> * *= / /= % %= = == ! != < <= << > >= >> & && | || ^ ~ :: : ; , ."
	tokens, err := NewLexer(src).Tokenize()
	require.NoError(t, err)
	expected := []TokenKind{
		TokenPlus, TokenPlusPlus, TokenPlusEq,
		TokenMinus, TokenMinusMinus, TokenMinusEq, TokenArrow,
		TokenStar, TokenStarEq, TokenSlash, TokenSlashEq,
		TokenPercent, TokenPercentEq,
		TokenEq, TokenEqEq, TokenBang, TokenBangEq,
		TokenLt, TokenLtEq, TokenShl,
		TokenGt, TokenGtEq, TokenShr,
		TokenAmp, TokenAmpAmp, TokenPipe, TokenPipePipe,
		TokenCaret, TokenTilde,
		TokenPathSep, TokenColon, TokenSemi, TokenComma, TokenDot,
		TokenEOF,
	}
	assert.Equal(t, expected, kinds(tokens))
}

func TestTokenizeLineTracking(t *testing.T) {
	tokens, err := NewLexer("fun\nmain\n\nx").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 2, tokens[1].Line)
	assert.Equal(t, 4, tokens[2].Line)
}

func TestTokenizeNumbers(t *testing.T) {
	tokens, err := NewLexer("0 42 123456789012345678901234567890 3.14").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, TokenIntLiteral, tokens[0].Kind)
	assert.Equal(t, "42", tokens[1].Lexeme)
	// Very wide literals stay textual.
	assert.Equal(t, "123456789012345678901234567890", tokens[2].Lexeme)
	assert.Equal(t, TokenFloatLiteral, tokens[3].Kind)
	assert.Equal(t, "3.14", tokens[3].Lexeme)
}

func TestTokenizeInvalidNumber(t *testing.T) {
	_, err := NewLexer("123abc").Tokenize()
	require.Error(t, err)
	cerr := err.(*CompilerError)
	assert.Equal(t, ErrInvalidNumber, cerr.Kind)
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, err := NewLexer(`"a\nb\tc\\d\"e\x41"`).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, "a\nb\tc\\d\"eA", tokens[0].Lexeme)
}

func TestTokenizeUnknownEscape(t *testing.T) {
	_, err := NewLexer(`"\q"`).Tokenize()
	require.Error(t, err)
	assert.Equal(t, ErrInvalidString, err.(*CompilerError).Kind)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	for _, src := range []string{`"abc`, "\"abc\ndef\""} {
		_, err := NewLexer(src).Tokenize()
		require.Error(t, err, src)
		assert.Equal(t, ErrUnterminatedString, err.(*CompilerError).Kind, src)
	}
}

func TestTokenizeCharLiteral(t *testing.T) {
	tokens, err := NewLexer(`'a' '\n' '\''`).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, "a", tokens[0].Lexeme)
	assert.Equal(t, "\n", tokens[1].Lexeme)
	assert.Equal(t, "'", tokens[2].Lexeme)
}

func TestTokenizeNestedBlockComments(t *testing.T) {
	tokens, err := NewLexer("/* outer /* inner */ still outer */ x").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "x", tokens[0].Lexeme)
}

func TestTokenizeUnterminatedComment(t *testing.T) {
	_, err := NewLexer("/* outer /* inner */").Tokenize()
	require.Error(t, err)
	assert.Equal(t, ErrUnterminatedComment, err.(*CompilerError).Kind)
}

func TestTokenizeUnexpectedChar(t *testing.T) {
	_, err := NewLexer("fun @").Tokenize()
	require.Error(t, err)
	cerr := err.(*CompilerError)
	assert.Equal(t, ErrUnexpectedChar, cerr.Kind)
	assert.Equal(t, 1, cerr.Line)
}

func TestTokenizeColumnsAreRuneBased(t *testing.T) {
	// The error column counts Unicode scalars, not bytes.
	_, err := NewLexer("\"héllo\n").Tokenize()
	require.Error(t, err)
	cerr := err.(*CompilerError)
	assert.Equal(t, ErrUnterminatedString, cerr.Kind)
	assert.Equal(t, 7, cerr.Column)
}

func TestTokenizeCRLF(t *testing.T) {
	tokens, err := NewLexer("fun\r\nmain").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, 2, tokens[1].Line)
}
