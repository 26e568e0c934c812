package nupy

// TokenType identifies the lexical class of a token. The set is closed:
// the execution stage switches over these values and must never see
// anything outside of it.
type TokenType int

// TOKEN_NONE is not part of the language. It is the sentinel returned by
// TokenQueue.PeekSecond when fewer than two tokens remain and is guaranteed
// to alias no real token type.
const TOKEN_NONE TokenType = -1

const (
	TOKEN_EOS TokenType = iota // end of stream ($ or real EOF)
	TOKEN_UNKNOWN
	TOKEN_IDENTIFIER
	TOKEN_INT_LITERAL
	TOKEN_REAL_LITERAL
	TOKEN_STR_LITERAL

	TOKEN_KEYW_AND
	TOKEN_KEYW_BREAK
	TOKEN_KEYW_CONTINUE
	TOKEN_KEYW_DEF
	TOKEN_KEYW_ELIF
	TOKEN_KEYW_ELSE
	TOKEN_KEYW_FALSE
	TOKEN_KEYW_FOR
	TOKEN_KEYW_IF
	TOKEN_KEYW_IN
	TOKEN_KEYW_IS
	TOKEN_KEYW_NONE
	TOKEN_KEYW_NOT
	TOKEN_KEYW_OR
	TOKEN_KEYW_PASS
	TOKEN_KEYW_RETURN
	TOKEN_KEYW_TRUE
	TOKEN_KEYW_WHILE

	TOKEN_LEFT_PAREN    // (
	TOKEN_RIGHT_PAREN   // )
	TOKEN_LEFT_BRACKET  // [
	TOKEN_RIGHT_BRACKET // ]
	TOKEN_LEFT_BRACE    // {
	TOKEN_RIGHT_BRACE   // }
	TOKEN_COLON         // :
	TOKEN_AMPERSAND     // &
	TOKEN_ASTERISK      // *
	TOKEN_POWER         // **
	TOKEN_PLUS          // +
	TOKEN_MINUS         // -
	TOKEN_SLASH         // /
	TOKEN_PERCENT       // %
	TOKEN_ASSIGN        // =
	TOKEN_EQUAL         // ==
	TOKEN_NOT_EQUAL     // !=
	TOKEN_LT            // <
	TOKEN_LTE           // <=
	TOKEN_GT            // >
	TOKEN_GTE           // >=
	TOKEN_EOLN          // newline
)

// Token is an immutable classification record. The lexeme text is NOT part
// of the token; it travels alongside it, bound by position in a TokenQueue.
type Token struct {
	Type TokenType
	Line int // 1-based
	Col  int // 1-based, position of the token's first character
}

// keywords maps identifier text to its keyword token type. Case-sensitive.
var keywords = map[string]TokenType{
	"and":      TOKEN_KEYW_AND,
	"break":    TOKEN_KEYW_BREAK,
	"continue": TOKEN_KEYW_CONTINUE,
	"def":      TOKEN_KEYW_DEF,
	"elif":     TOKEN_KEYW_ELIF,
	"else":     TOKEN_KEYW_ELSE,
	"False":    TOKEN_KEYW_FALSE,
	"for":      TOKEN_KEYW_FOR,
	"if":       TOKEN_KEYW_IF,
	"in":       TOKEN_KEYW_IN,
	"is":       TOKEN_KEYW_IS,
	"None":     TOKEN_KEYW_NONE,
	"not":      TOKEN_KEYW_NOT,
	"or":       TOKEN_KEYW_OR,
	"pass":     TOKEN_KEYW_PASS,
	"return":   TOKEN_KEYW_RETURN,
	"True":     TOKEN_KEYW_TRUE,
	"while":    TOKEN_KEYW_WHILE,
}

var tokenNames = map[TokenType]string{
	TOKEN_NONE:          "NONE",
	TOKEN_EOS:           "EOS",
	TOKEN_UNKNOWN:       "UNKNOWN",
	TOKEN_IDENTIFIER:    "IDENTIFIER",
	TOKEN_INT_LITERAL:   "INT_LITERAL",
	TOKEN_REAL_LITERAL:  "REAL_LITERAL",
	TOKEN_STR_LITERAL:   "STR_LITERAL",
	TOKEN_KEYW_AND:      "KEYW_AND",
	TOKEN_KEYW_BREAK:    "KEYW_BREAK",
	TOKEN_KEYW_CONTINUE: "KEYW_CONTINUE",
	TOKEN_KEYW_DEF:      "KEYW_DEF",
	TOKEN_KEYW_ELIF:     "KEYW_ELIF",
	TOKEN_KEYW_ELSE:     "KEYW_ELSE",
	TOKEN_KEYW_FALSE:    "KEYW_FALSE",
	TOKEN_KEYW_FOR:      "KEYW_FOR",
	TOKEN_KEYW_IF:       "KEYW_IF",
	TOKEN_KEYW_IN:       "KEYW_IN",
	TOKEN_KEYW_IS:       "KEYW_IS",
	TOKEN_KEYW_NONE:     "KEYW_NONE",
	TOKEN_KEYW_NOT:      "KEYW_NOT",
	TOKEN_KEYW_OR:       "KEYW_OR",
	TOKEN_KEYW_PASS:     "KEYW_PASS",
	TOKEN_KEYW_RETURN:   "KEYW_RETURN",
	TOKEN_KEYW_TRUE:     "KEYW_TRUE",
	TOKEN_KEYW_WHILE:    "KEYW_WHILE",
	TOKEN_LEFT_PAREN:    "LEFT_PAREN",
	TOKEN_RIGHT_PAREN:   "RIGHT_PAREN",
	TOKEN_LEFT_BRACKET:  "LEFT_BRACKET",
	TOKEN_RIGHT_BRACKET: "RIGHT_BRACKET",
	TOKEN_LEFT_BRACE:    "LEFT_BRACE",
	TOKEN_RIGHT_BRACE:   "RIGHT_BRACE",
	TOKEN_COLON:         "COLON",
	TOKEN_AMPERSAND:     "AMPERSAND",
	TOKEN_ASTERISK:      "ASTERISK",
	TOKEN_POWER:         "POWER",
	TOKEN_PLUS:          "PLUS",
	TOKEN_MINUS:         "MINUS",
	TOKEN_SLASH:         "SLASH",
	TOKEN_PERCENT:       "PERCENT",
	TOKEN_ASSIGN:        "ASSIGN",
	TOKEN_EQUAL:         "EQUAL",
	TOKEN_NOT_EQUAL:     "NOT_EQUAL",
	TOKEN_LT:            "LT",
	TOKEN_LTE:           "LTE",
	TOKEN_GT:            "GT",
	TOKEN_GTE:           "GTE",
	TOKEN_EOLN:          "EOLN",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "INVALID"
}
