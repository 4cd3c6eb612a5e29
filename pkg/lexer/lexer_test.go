package lexer

import "testing"

func TestNextToken(t *testing.T) {
	input := `x = 1U + 2U.`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenIdent, "x"},
		{TokenAssign, "="},
		{TokenNat, "1"},
		{TokenPlus, "+"},
		{TokenNat, "2"},
		{TokenDot, "."},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || ! & | ^ ~ => += -= *= /= %= &= |= ^=`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNe, "!="},
		{TokenLt, "<"},
		{TokenLe, "<="},
		{TokenGt, ">"},
		{TokenGe, ">="},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenBang, "!"},
		{TokenAmp, "&"},
		{TokenPipe, "|"},
		{TokenCaret, "^"},
		{TokenTilde, "~"},
		{TokenArrow, "=>"},
		{TokenPlusAssign, "+="},
		{TokenMinusAssign, "-="},
		{TokenStarAssign, "*="},
		{TokenSlashAssign, "/="},
		{TokenPercentAssign, "%="},
		{TokenAndAssign, "&="},
		{TokenOrAssign, "|="},
		{TokenXorAssign, "^="},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestDelimitersAndRecordRef(t *testing.T) {
	input := `( ) { } [ ] . , ; : $ @ # $@2 t$f`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenDot, "."},
		{TokenComma, ","},
		{TokenSemicolon, ";"},
		{TokenColon, ":"},
		{TokenDollar, "$"},
		{TokenAt, "@"},
		{TokenHash, "#"},
		{TokenRecordRef, "2"},
		{TokenIdent, "t"},
		{TokenDollar, "$"},
		{TokenIdent, "f"},
		{TokenEOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `true false void func proc nat int real return exit break breaker`

	tests := []TokenType{
		TokenTrue, TokenFalse, TokenVoid, TokenFunc, TokenProc,
		TokenNatTy, TokenIntTy, TokenRealTy, TokenReturn, TokenExit,
		TokenBreak, TokenIdent, TokenEOF,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, expected, tok.Type)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input           string
		expectedType    TokenType
		expectedLiteral string
	}{
		{"42", TokenInt, "42"},
		{"42U", TokenNat, "42"},
		{"4.25", TokenReal, "4.25"},
		{"0", TokenInt, "0"},
		{"12abc", TokenIllegal, "12abc"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Errorf("input %q: type expected=%q, got=%q", tt.input, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Errorf("input %q: literal expected=%q, got=%q", tt.input, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNumberBeforeTerminator(t *testing.T) {
	toks := Tokenize(`x = 10.`)
	want := []TokenType{TokenIdent, TokenAssign, TokenInt, TokenDot, TokenEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("tokens[%d] = %q, want %q", i, toks[i].Type, tt)
		}
	}
}

func TestCharAndString(t *testing.T) {
	tests := []struct {
		input           string
		expectedType    TokenType
		expectedLiteral string
	}{
		{`'a'`, TokenChar, "a"},
		{`'\n'`, TokenChar, "\n"},
		{`'\''`, TokenChar, "'"},
		{`'\0'`, TokenChar, "\x00"},
		{`"hello"`, TokenString, "hello"},
		{`"a\tb\"c"`, TokenString, "a\tb\"c"},
		{`""`, TokenString, ""},
		{`"open`, TokenIllegal, "unterminated string"},
		{`'ab'`, TokenIllegal, "'a"},
		{`'\q'`, TokenIllegal, `\q`},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Errorf("input %q: type expected=%q, got=%q", tt.input, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Errorf("input %q: literal expected=%q, got=%q", tt.input, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestComments(t *testing.T) {
	input := `// line comment
x /* block
comment */ = 1.`

	tests := []TokenType{TokenIdent, TokenAssign, TokenInt, TokenDot, TokenEOF}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, expected, tok.Type)
		}
	}
}

func TestLatin1Identifiers(t *testing.T) {
	input := "gr\xfc\xdfe = 1."
	l := New(input)
	tok := l.NextToken()
	if tok.Type != TokenIdent || tok.Literal != "gr\xfc\xdfe" {
		t.Fatalf("expected Latin-1 identifier, got %q %q", tok.Type, tok.Literal)
	}

	// The multiplication and division signs are not letters.
	l = New("a\xd7b")
	if tok := l.NextToken(); tok.Literal != "a" {
		t.Fatalf("expected identifier a, got %q", tok.Literal)
	}
	if tok := l.NextToken(); tok.Type != TokenIllegal {
		t.Fatalf("expected ILLEGAL for 0xD7, got %q", tok.Type)
	}
}

func TestLineAndColumn(t *testing.T) {
	input := "x = 1.\n  y = 2."
	toks := Tokenize(input)
	// y is the fifth token
	y := toks[4]
	if y.Literal != "y" {
		t.Fatalf("expected y, got %q", y.Literal)
	}
	if y.Line != 2 || y.Column != 3 {
		t.Errorf("y position = %d:%d, want 2:3", y.Line, y.Column)
	}
}
