package lexer

// Lexer tokenizes dryfart source code
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // next reading position
	ch      byte // current character
	line    int
	column  int
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekCharAt(n int) byte {
	if l.readPos+n >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+n]
}

var arithOps = map[byte]TokenType{
	'+': TokenPlus, '-': TokenMinus, '*': TokenStar,
	'/': TokenSlash, '%': TokenPercent, '^': TokenCaret,
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	l.skipComments()
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		if l.pos < len(l.input) {
			tok = l.newToken(TokenIllegal, l.ch)
			break
		}
		tok.Type = TokenEOF
		tok.Literal = ""
		return tok
	case '+', '-', '*', '/', '%', '^':
		tok = l.operator(arithOps[l.ch])
	case '&':
		if l.peekChar() == '&' {
			tok = l.twoCharToken(TokenAnd)
		} else {
			tok = l.operator(TokenAmp)
		}
	case '|':
		if l.peekChar() == '|' {
			tok = l.twoCharToken(TokenOr)
		} else {
			tok = l.operator(TokenPipe)
		}
	case '=':
		switch l.peekChar() {
		case '=':
			tok = l.twoCharToken(TokenEq)
		case '>':
			tok = l.twoCharToken(TokenArrow)
		default:
			tok = l.newToken(TokenAssign, l.ch)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TokenNe)
		} else {
			tok = l.newToken(TokenBang, l.ch)
		}
	case '<':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TokenLe)
		} else {
			tok = l.newToken(TokenLt, l.ch)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TokenGe)
		} else {
			tok = l.newToken(TokenGt, l.ch)
		}
	case '~':
		tok = l.newToken(TokenTilde, l.ch)
	case '(':
		tok = l.newToken(TokenLParen, l.ch)
	case ')':
		tok = l.newToken(TokenRParen, l.ch)
	case '{':
		tok = l.newToken(TokenLBrace, l.ch)
	case '}':
		tok = l.newToken(TokenRBrace, l.ch)
	case '[':
		tok = l.newToken(TokenLBracket, l.ch)
	case ']':
		tok = l.newToken(TokenRBracket, l.ch)
	case ';':
		tok = l.newToken(TokenSemicolon, l.ch)
	case ',':
		tok = l.newToken(TokenComma, l.ch)
	case '.':
		tok = l.newToken(TokenDot, l.ch)
	case ':':
		tok = l.newToken(TokenColon, l.ch)
	case '@':
		tok = l.newToken(TokenAt, l.ch)
	case '#':
		tok = l.newToken(TokenHash, l.ch)
	case '$':
		if l.peekChar() == '@' && isDigit(l.peekCharAt(1)) {
			l.readChar() // consume $
			l.readChar() // consume @
			tok.Type = TokenRecordRef
			tok.Literal = l.readDigits()
			return tok
		}
		tok = l.newToken(TokenDollar, l.ch)
	case '\'':
		return l.readCharLit(tok)
	case '"':
		return l.readString(tok)
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			return l.readNumber(tok)
		}
		tok = l.newToken(TokenIllegal, l.ch)
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType TokenType, ch byte) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: l.line, Column: l.column}
}

func (l *Lexer) twoCharToken(tokenType TokenType) Token {
	tok := Token{Type: tokenType, Line: l.line, Column: l.column}
	first := l.ch
	l.readChar()
	tok.Literal = string([]byte{first, l.ch})
	return tok
}

// operator lexes a binary operator, folding a following '=' into its
// operate-on form.
func (l *Lexer) operator(tokenType TokenType) Token {
	if l.peekChar() == '=' {
		return l.twoCharToken(compoundAssign[tokenType])
	}
	return l.newToken(tokenType, l.ch)
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComments() {
	for l.ch == '/' {
		if l.peekChar() == '/' {
			// Single-line comment
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			l.skipWhitespace()
		} else if l.peekChar() == '*' {
			// Multi-line comment
			l.readChar() // consume /
			l.readChar() // consume *
			for {
				if l.ch == 0 && l.pos >= len(l.input) {
					break
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
			l.skipWhitespace()
		} else {
			break
		}
	}
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

func (l *Lexer) readDigits() string {
	pos := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readNumber lexes 12 (int), 12U (nat) and 1.5 (real). A '.' not followed by
// a digit is left for the statement terminator.
func (l *Lexer) readNumber(tok Token) Token {
	tok.Literal = l.readDigits()
	switch {
	case l.ch == 'U':
		l.readChar()
		tok.Type = TokenNat
	case l.ch == '.' && isDigit(l.peekChar()):
		l.readChar()
		tok.Literal += "." + l.readDigits()
		tok.Type = TokenReal
	default:
		tok.Type = TokenInt
	}
	if isLetter(l.ch) {
		tok.Type = TokenIllegal
		tok.Literal += l.readIdentifier()
	}
	return tok
}

// readEscape decodes the character after a backslash.
func (l *Lexer) readEscape() (byte, bool) {
	switch l.ch {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '\'', '"':
		return l.ch, true
	}
	return 0, false
}

// readCharLit lexes a character literal; the token literal holds the decoded byte.
func (l *Lexer) readCharLit(tok Token) Token {
	l.readChar() // consume opening quote
	c := l.ch
	if c == '\\' {
		l.readChar()
		var ok bool
		if c, ok = l.readEscape(); !ok {
			tok.Type = TokenIllegal
			tok.Literal = "\\" + string(l.ch)
			l.readChar()
			return tok
		}
	} else if c == '\'' || c == '\n' || l.pos >= len(l.input) {
		tok.Type = TokenIllegal
		tok.Literal = "'"
		return tok
	}
	l.readChar()
	if l.ch != '\'' {
		tok.Type = TokenIllegal
		tok.Literal = "'" + string(c)
		return tok
	}
	l.readChar() // consume closing quote
	tok.Type = TokenChar
	tok.Literal = string([]byte{c})
	return tok
}

// readString lexes a string literal; the token literal holds the decoded bytes.
func (l *Lexer) readString(tok Token) Token {
	l.readChar() // consume opening quote
	var buf []byte
	for l.ch != '"' {
		if l.pos >= len(l.input) || l.ch == '\n' {
			tok.Type = TokenIllegal
			tok.Literal = "unterminated string"
			return tok
		}
		if l.ch == '\\' {
			l.readChar()
			c, ok := l.readEscape()
			if !ok {
				tok.Type = TokenIllegal
				tok.Literal = "\\" + string(l.ch)
				return tok
			}
			buf = append(buf, c)
		} else {
			buf = append(buf, l.ch)
		}
		l.readChar()
	}
	l.readChar() // consume closing quote
	tok.Type = TokenString
	tok.Literal = string(buf)
	return tok
}

// isLetter accepts ASCII letters, '_' and the Latin-1 letters.
func isLetter(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', ch == '_':
		return true
	case ch >= 0xC0:
		return ch != 0xD7 && ch != 0xF7
	}
	return false
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// Tokenize lexes the whole input, stopping after EOF.
func Tokenize(input string) []Token {
	l := New(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}
