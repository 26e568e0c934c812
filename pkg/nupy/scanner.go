package nupy

import (
	"fmt"
	"io"
	"os"
)

// Scanner performs lexical analysis on nuPython source, one token per call.
// Input ends at real end-of-stream or at the '$' terminator character, which
// lets an interactive user signal "done" without closing the stream.
//
// The scanner never fails: unrecognized characters become TOKEN_UNKNOWN and
// unterminated string literals produce a warning on the diagnostic writer
// while the partial text is still returned. The parser therefore always
// sees a well-formed token stream.
type Scanner struct {
	in   *pushbackReader
	diag io.Writer
	line int
	col  int
}

// NewScanner creates a scanner reading from r. Diagnostics (currently only
// the unterminated-string warning) are written to diag; a nil diag means
// stdout, matching the interactive front end.
func NewScanner(r io.Reader, diag io.Writer) *Scanner {
	if diag == nil {
		diag = os.Stdout
	}
	s := &Scanner{
		in:   newPushbackReader(r),
		diag: diag,
	}
	s.Init()
	return s
}

// Init resets the cursor to line 1, column 1 for a new tokenization pass.
func (s *Scanner) Init() {
	s.line = 1
	s.col = 1
}

// NextToken consumes characters until one lexical unit is complete and
// returns the token plus its lexeme text. The lexeme is the literal source
// substring: identifier name, digits (with any absorbed sign), string
// contents without the quotes, or the punctuation characters themselves.
// EOLN and EOS carry the fixed texts "EOLN" and "$".
func (s *Scanner) NextToken() (Token, string) {
	for {
		c, ok := s.in.readByte()
		if !ok {
			// true end of stream: column is not advanced
			return Token{Type: TOKEN_EOS, Line: s.line, Col: s.col}, "$"
		}

		switch {
		case c == '$':
			tok := Token{Type: TOKEN_EOS, Line: s.line, Col: s.col}
			s.col++
			return tok, "$"

		case c == '\n':
			tok := Token{Type: TOKEN_EOLN, Line: s.line, Col: s.col}
			s.line++
			s.col = 1
			return tok, "EOLN"

		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			s.col++
			continue

		case c == '#':
			// line comment: consume up to, but not including, the newline.
			// The newline stays in the stream and is counted exactly once
			// by the EOLN rule above.
			s.col++
			for {
				c, ok := s.in.readByte()
				if !ok {
					break
				}
				if c == '\n' {
					s.in.unread(c)
					break
				}
				s.col++
			}
			continue

		case c == '(':
			return s.punct(TOKEN_LEFT_PAREN, c)
		case c == ')':
			return s.punct(TOKEN_RIGHT_PAREN, c)
		case c == '[':
			return s.punct(TOKEN_LEFT_BRACKET, c)
		case c == ']':
			return s.punct(TOKEN_RIGHT_BRACKET, c)
		case c == '{':
			return s.punct(TOKEN_LEFT_BRACE, c)
		case c == '}':
			return s.punct(TOKEN_RIGHT_BRACE, c)
		case c == ':':
			return s.punct(TOKEN_COLON, c)
		case c == '&':
			return s.punct(TOKEN_AMPERSAND, c)
		case c == '/':
			return s.punct(TOKEN_SLASH, c)
		case c == '%':
			return s.punct(TOKEN_PERCENT, c)

		case c == '*':
			// * or **: one character of lookahead, push back a non-match
			tok := Token{Type: TOKEN_ASTERISK, Line: s.line, Col: s.col}
			s.col++
			next, ok := s.in.readByte()
			if ok && next == '*' {
				tok.Type = TOKEN_POWER
				s.col++
				return tok, "**"
			}
			if ok {
				s.in.unread(next)
			}
			return tok, "*"

		case c == '=':
			return s.twoChar(TOKEN_ASSIGN, TOKEN_EQUAL, '=', "=", "==")
		case c == '<':
			return s.twoChar(TOKEN_LT, TOKEN_LTE, '=', "<", "<=")
		case c == '>':
			return s.twoChar(TOKEN_GT, TOKEN_GTE, '=', ">", ">=")

		case c == '!':
			// forced two-character construct: a lone '!' is not an
			// operator of the language, so it comes back UNKNOWN with
			// the second character pushed back for reprocessing
			tok := Token{Type: TOKEN_NOT_EQUAL, Line: s.line, Col: s.col}
			s.col++
			next, ok := s.in.readByte()
			if ok && next == '=' {
				s.col++
				return tok, "!="
			}
			if ok {
				s.in.unread(next)
			}
			tok.Type = TOKEN_UNKNOWN
			return tok, "!"

		case c == '+' || c == '-':
			tok := Token{Line: s.line, Col: s.col}
			s.col++
			next, ok := s.in.readByte()
			if ok && isDigit(next) {
				// sign absorbed into the numeric literal: one signed
				// token instead of an operator/literal pair
				return s.collectNumber(next, string(c), tok)
			}
			if ok {
				s.in.unread(next)
			}
			if c == '+' {
				tok.Type = TOKEN_PLUS
				return tok, "+"
			}
			tok.Type = TOKEN_MINUS
			return tok, "-"

		case isAlpha(c) || c == '_':
			return s.collectIdentifier(c)

		case isDigit(c):
			tok := Token{Line: s.line, Col: s.col}
			return s.collectNumber(c, "", tok)

		case c == '\'' || c == '"':
			return s.collectString(c)

		default:
			// classification is exhaustive: anything else is a single
			// unrecognized token, never a scan failure
			tok := Token{Type: TOKEN_UNKNOWN, Line: s.line, Col: s.col}
			s.col++
			return tok, string(c)
		}
	}
}

// punct emits a single-character punctuation token.
func (s *Scanner) punct(t TokenType, c byte) (Token, string) {
	tok := Token{Type: t, Line: s.line, Col: s.col}
	s.col++
	return tok, string(c)
}

// twoChar handles the base/extended operator pairs (= ==, < <=, > >=).
// The extension character is read ahead and pushed back when it does not
// match.
func (s *Scanner) twoChar(single, double TokenType, ext byte, singleText, doubleText string) (Token, string) {
	tok := Token{Type: single, Line: s.line, Col: s.col}
	s.col++
	next, ok := s.in.readByte()
	if ok && next == ext {
		tok.Type = double
		s.col++
		return tok, doubleText
	}
	if ok {
		s.in.unread(next)
	}
	return tok, singleText
}

// collectIdentifier consumes letters, digits and underscores starting at
// first, then checks the keyword table. The first non-matching character
// is pushed back.
func (s *Scanner) collectIdentifier(first byte) (Token, string) {
	tok := Token{Type: TOKEN_IDENTIFIER, Line: s.line, Col: s.col}
	value := []byte{first}
	s.col++
	for {
		c, ok := s.in.readByte()
		if !ok {
			break
		}
		if !isAlpha(c) && !isDigit(c) && c != '_' {
			s.in.unread(c)
			break
		}
		value = append(value, c)
		s.col++
	}
	text := string(value)
	if keyword, ok := keywords[text]; ok {
		tok.Type = keyword
	}
	return tok, text
}

// collectNumber consumes an integer or real literal. first is the already
// consumed leading digit, sign is "" or the absorbed "+"/"-", and tok
// carries the position of the literal's first character (the sign, if any).
func (s *Scanner) collectNumber(first byte, sign string, tok Token) (Token, string) {
	tok.Type = TOKEN_INT_LITERAL
	value := append([]byte(sign), first)
	s.col++
	for {
		c, ok := s.in.readByte()
		if !ok {
			break
		}
		if isDigit(c) {
			value = append(value, c)
			s.col++
			continue
		}
		if c == '.' && tok.Type == TOKEN_INT_LITERAL {
			tok.Type = TOKEN_REAL_LITERAL
			value = append(value, c)
			s.col++
			continue
		}
		s.in.unread(c)
		break
	}
	return tok, string(value)
}

// collectString consumes a string literal opened by quote. A literal ends
// normally when the same quote character recurs. A different quote, a
// newline or end of stream ends it abnormally: a warning is emitted, the
// partial text is still returned, and the offending character is pushed
// back for reprocessing. This is a recoverable lexical error.
func (s *Scanner) collectString(quote byte) (Token, string) {
	tok := Token{Type: TOKEN_STR_LITERAL, Line: s.line, Col: s.col}
	s.col++ // past the opening quote
	var value []byte
	for {
		c, ok := s.in.readByte()
		if !ok {
			s.warnUnterminated(tok)
			return tok, string(value)
		}
		if c == quote {
			s.col++
			return tok, string(value)
		}
		if c == '\'' || c == '"' || c == '\n' {
			s.in.unread(c)
			s.warnUnterminated(tok)
			return tok, string(value)
		}
		value = append(value, c)
		s.col++
	}
}

func (s *Scanner) warnUnterminated(tok Token) {
	fmt.Fprintf(s.diag, "**WARNING: string literal @ (%d,%d) not terminated properly\n", tok.Line, tok.Col)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
