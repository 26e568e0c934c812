package nupy

import (
	"strings"
	"testing"
)

// parseSrc runs the parser over src and returns the resulting queue (nil on
// failure) plus the captured diagnostics.
func parseSrc(t *testing.T, src string) (*TokenQueue, string) {
	t.Helper()
	var diag strings.Builder
	p := NewParser(&diag)
	q, err := p.Parse(strings.NewReader(src))
	if err != nil && q != nil {
		t.Fatal("Parse returned both a queue and an error")
	}
	return q, diag.String()
}

func TestParser_AcceptsValidPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"pass", "pass\n"},
		{"empty line", "\n"},
		{"assignment int", "x = 1\n"},
		{"assignment real", "x = -3.5\n"},
		{"assignment string", "msg = 'hello'\n"},
		{"assignment identifier", "x = y\n"},
		{"assignment True", "flag = True\n"},
		{"assignment None", "p = None\n"},
		{"pointer deref target", "*p = 10\n"},
		{"address of", "p = &x\n"},
		{"pointer deref value", "x = *p\n"},
		{"unary plus identifier", "x = + y\n"},
		{"binary op", "x = a + b\n"},
		{"binary power", "x = a ** 2\n"},
		{"binary is", "x = a is None\n"},
		{"binary in", "x = a in b\n"},
		{"comparison", "x = a <= b\n"},
		{"call no arg", "print()\n"},
		{"call with element", "print('hi')\n"},
		{"call as value", "x = input('name?')\n"},
		{"if", "if x:\n{\npass\n}\n"},
		{"if else", "if x == 1:\n{\npass\n}\nelse:\n{\npass\n}\n"},
		{"if elif else", "if x < 0:\n{\npass\n}\nelif x > 0:\n{\npass\n}\nelse:\n{\npass\n}\n"},
		{"while", "while i < 10:\n{\ni = i + 1\n}\n"},
		{"nested", "while True:\n{\nif x:\n{\npass\n}\n}\n"},
		{"multiple stmts", "x = 1\ny = 2\nprint(x)\npass\n"},
		{"comments", "# setup\nx = 1 # init\n"},
		{"dollar terminated", "pass\n$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, diag := parseSrc(t, tt.src)
			if q == nil {
				t.Fatalf("program rejected, diagnostics: %q", diag)
			}
			if diag != "" {
				t.Errorf("unexpected diagnostics: %q", diag)
			}
			// every accepted queue spans the program up to and including EOS
			var last Token
			for q.Len() > 0 {
				last, _ = q.Dequeue()
			}
			if last.Type != TOKEN_EOS {
				t.Errorf("queue does not end with EOS, got %v", last.Type)
			}
		})
	}
}

func TestParser_RoundTripTokenOrder(t *testing.T) {
	const src = "x = 1\npass\n"

	q, diag := parseSrc(t, src)
	if q == nil {
		t.Fatalf("program rejected: %q", diag)
	}

	// the returned queue must reproduce exactly the tokenization order
	sc := NewScanner(strings.NewReader(src), nil)
	sc.Init()
	for i := 0; ; i++ {
		wantTok, wantValue := sc.NextToken()
		gotTok, gotValue := q.Dequeue()
		if gotTok != wantTok || gotValue != wantValue {
			t.Fatalf("token %d = %v %q @ (%d,%d), want %v %q @ (%d,%d)",
				i, gotTok.Type, gotValue, gotTok.Line, gotTok.Col,
				wantTok.Type, wantValue, wantTok.Line, wantTok.Col)
		}
		if wantTok.Type == TOKEN_EOS {
			break
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue has %d tokens past EOS", q.Len())
	}
}

func TestParser_RejectsWithDiagnostic(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantDiag string
	}{
		{
			"missing body statement",
			"if x:\n{\n}\n",
			"**SYNTAX ERROR @ (3,1): expecting start of a statement, found '}'\n",
		},
		{
			"unclosed call",
			"x = y(\n",
			"**SYNTAX ERROR @ (1,7): expecting ), found 'EOLN'\n",
		},
		{
			"missing newline at end",
			"pass",
			"**SYNTAX ERROR @ (1,5): expecting EOLN, found '$'\n",
		},
		{
			"missing assignment operator",
			"x 5\n",
			"**SYNTAX ERROR @ (1,3): expecting =, found '5'\n",
		},
		{
			"missing colon",
			"if x\n",
			"**SYNTAX ERROR @ (1,5): expecting :, found 'EOLN'\n",
		},
		{
			"empty program",
			"",
			"**SYNTAX ERROR @ (1,1): expecting start of a statement, found '$'\n",
		},
		{
			"bad expression",
			"x = )\n",
			"**SYNTAX ERROR @ (1,5): expecting element, found ')'\n",
		},
		{
			"sign without operand",
			"x = -\n",
			"**SYNTAX ERROR @ (1,6): expecting identifier or numeric literal, found 'EOLN'\n",
		},
		{
			"deref without identifier",
			"x = * 5\n",
			"**SYNTAX ERROR @ (1,7): expecting identifier, found '5'\n",
		},
		{
			"else without colon",
			"if x:\n{\npass\n}\nelse\n",
			"**SYNTAX ERROR @ (5,5): expecting :, found 'EOLN'\n",
		},
		{
			"body without brace",
			"while x:\npass\n",
			"**SYNTAX ERROR @ (2,1): expecting {, found 'pass'\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, diag := parseSrc(t, tt.src)
			if q != nil {
				t.Fatal("invalid program accepted")
			}
			// exactly one diagnostic line, no per-level repetition
			if diag != tt.wantDiag {
				t.Errorf("diagnostics = %q, want %q", diag, tt.wantDiag)
			}
		})
	}
}

func TestParser_StopsAtFirstError(t *testing.T) {
	// both lines are bad; only the first failure is reported
	_, diag := parseSrc(t, "x 1\ny 2\n")
	if count := strings.Count(diag, "**SYNTAX ERROR"); count != 1 {
		t.Errorf("got %d diagnostics, want 1: %q", count, diag)
	}
}

func TestParser_ErrSyntax(t *testing.T) {
	var diag strings.Builder
	p := NewParser(&diag)
	q, err := p.Parse(strings.NewReader("if\n"))
	if q != nil {
		t.Fatal("invalid program returned a queue")
	}
	if err != ErrSyntax {
		t.Errorf("err = %v, want ErrSyntax", err)
	}
}

func TestClassifyStmt_Lookahead(t *testing.T) {
	build := func(types ...TokenType) *TokenQueue {
		q := NewTokenQueue()
		for _, typ := range types {
			q.Enqueue(Token{Type: typ}, "")
		}
		return q
	}

	tests := []struct {
		name  string
		queue *TokenQueue
		want  stmtKind
	}{
		{"call", build(TOKEN_IDENTIFIER, TOKEN_LEFT_PAREN), stmtCall},
		{"assignment", build(TOKEN_IDENTIFIER, TOKEN_ASSIGN), stmtAssignment},
		{"deref assignment", build(TOKEN_ASTERISK, TOKEN_IDENTIFIER), stmtAssignment},
		{"asterisk alone", build(TOKEN_ASTERISK, TOKEN_EOS), stmtNone},
		{"if", build(TOKEN_KEYW_IF, TOKEN_IDENTIFIER), stmtIfThenElse},
		{"while", build(TOKEN_KEYW_WHILE, TOKEN_IDENTIFIER), stmtWhileLoop},
		{"pass", build(TOKEN_KEYW_PASS, TOKEN_EOLN), stmtPass},
		{"empty", build(TOKEN_EOLN, TOKEN_EOS), stmtEmpty},
		{"eos", build(TOKEN_EOS), stmtNone},
		{"identifier short queue", build(TOKEN_IDENTIFIER), stmtAssignment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStmt(tt.queue); got != tt.want {
				t.Errorf("classifyStmt = %v, want %v", got, tt.want)
			}
		})
	}
}
