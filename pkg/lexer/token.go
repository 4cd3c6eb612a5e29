package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenIdent     // main, STD, x
	TokenNat       // 42U
	TokenInt       // 42
	TokenReal      // 4.2
	TokenChar      // 'a'
	TokenString    // "hello"
	TokenRecordRef // $@1

	// Keywords
	TokenTrue   // true
	TokenFalse  // false
	TokenVoid   // void
	TokenFunc   // func
	TokenProc   // proc
	TokenNatTy  // nat
	TokenIntTy  // int
	TokenRealTy // real
	TokenReturn // return
	TokenExit   // exit
	TokenBreak  // break

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenAmp     // &
	TokenPipe    // |
	TokenCaret   // ^
	TokenBang    // !
	TokenTilde   // ~
	TokenAnd     // &&
	TokenOr      // ||
	TokenEq      // ==
	TokenNe      // !=
	TokenLt      // <
	TokenLe      // <=
	TokenGt      // >
	TokenGe      // >=
	TokenAssign  // =
	TokenArrow   // =>

	// Compound assignment operators
	TokenPlusAssign    // +=
	TokenMinusAssign   // -=
	TokenStarAssign    // *=
	TokenSlashAssign   // /=
	TokenPercentAssign // %=
	TokenAndAssign     // &=
	TokenOrAssign      // |=
	TokenXorAssign     // ^=

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenDot       // .
	TokenComma     // ,
	TokenSemicolon // ;
	TokenColon     // :
	TokenDollar    // $
	TokenAt        // @
	TokenHash      // #
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenIllegal:       "ILLEGAL",
	TokenIdent:         "IDENT",
	TokenNat:           "NAT",
	TokenInt:           "INT",
	TokenReal:          "REAL",
	TokenChar:          "CHAR",
	TokenString:        "STRING",
	TokenRecordRef:     "$@",
	TokenTrue:          "true",
	TokenFalse:         "false",
	TokenVoid:          "void",
	TokenFunc:          "func",
	TokenProc:          "proc",
	TokenNatTy:         "nat",
	TokenIntTy:         "int",
	TokenRealTy:        "real",
	TokenReturn:        "return",
	TokenExit:          "exit",
	TokenBreak:         "break",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenStar:          "*",
	TokenSlash:         "/",
	TokenPercent:       "%",
	TokenAmp:           "&",
	TokenPipe:          "|",
	TokenCaret:         "^",
	TokenBang:          "!",
	TokenTilde:         "~",
	TokenAnd:           "&&",
	TokenOr:            "||",
	TokenEq:            "==",
	TokenNe:            "!=",
	TokenLt:            "<",
	TokenLe:            "<=",
	TokenGt:            ">",
	TokenGe:            ">=",
	TokenAssign:        "=",
	TokenArrow:         "=>",
	TokenPlusAssign:    "+=",
	TokenMinusAssign:   "-=",
	TokenStarAssign:    "*=",
	TokenSlashAssign:   "/=",
	TokenPercentAssign: "%=",
	TokenAndAssign:     "&=",
	TokenOrAssign:      "|=",
	TokenXorAssign:     "^=",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenDot:           ".",
	TokenComma:         ",",
	TokenSemicolon:     ";",
	TokenColon:         ":",
	TokenDollar:        "$",
	TokenAt:            "@",
	TokenHash:          "#",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"true":   TokenTrue,
	"false":  TokenFalse,
	"void":   TokenVoid,
	"func":   TokenFunc,
	"proc":   TokenProc,
	"nat":    TokenNatTy,
	"int":    TokenIntTy,
	"real":   TokenRealTy,
	"return": TokenReturn,
	"exit":   TokenExit,
	"break":  TokenBreak,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}

// compoundAssign maps an operator to its operate-on form.
var compoundAssign = map[TokenType]TokenType{
	TokenPlus:    TokenPlusAssign,
	TokenMinus:   TokenMinusAssign,
	TokenStar:    TokenStarAssign,
	TokenSlash:   TokenSlashAssign,
	TokenPercent: TokenPercentAssign,
	TokenAmp:     TokenAndAssign,
	TokenPipe:    TokenOrAssign,
	TokenCaret:   TokenXorAssign,
}
