package nupy

import "testing"

func TestTokenQueue_FIFOOrder(t *testing.T) {
	q := NewTokenQueue()
	q.Enqueue(Token{Type: TOKEN_IDENTIFIER, Line: 1, Col: 1}, "x")
	q.Enqueue(Token{Type: TOKEN_ASSIGN, Line: 1, Col: 3}, "=")
	q.Enqueue(Token{Type: TOKEN_INT_LITERAL, Line: 1, Col: 5}, "1")

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	wantValues := []string{"x", "=", "1"}
	for i, w := range wantValues {
		_, value := q.Dequeue()
		if value != w {
			t.Errorf("dequeue %d = %q, want %q", i, value, w)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len after draining = %d, want 0", q.Len())
	}
}

func TestTokenQueue_PeekDoesNotConsume(t *testing.T) {
	q := NewTokenQueue()
	q.Enqueue(Token{Type: TOKEN_KEYW_IF}, "if")
	q.Enqueue(Token{Type: TOKEN_IDENTIFIER}, "x")

	first, value := q.PeekFirst()
	if first.Type != TOKEN_KEYW_IF || value != "if" {
		t.Fatalf("PeekFirst = %v %q, want KEYW_IF if", first.Type, value)
	}
	second, value := q.PeekSecond()
	if second.Type != TOKEN_IDENTIFIER || value != "x" {
		t.Fatalf("PeekSecond = %v %q, want IDENTIFIER x", second.Type, value)
	}
	if q.Len() != 2 {
		t.Errorf("Len after peeks = %d, want 2", q.Len())
	}
}

func TestTokenQueue_PeekSecondSentinel(t *testing.T) {
	q := NewTokenQueue()

	tok, _ := q.PeekSecond()
	if tok.Type != TOKEN_NONE {
		t.Errorf("PeekSecond on empty queue = %v, want TOKEN_NONE", tok.Type)
	}

	q.Enqueue(Token{Type: TOKEN_EOS}, "$")
	tok, _ = q.PeekSecond()
	if tok.Type != TOKEN_NONE {
		t.Errorf("PeekSecond on 1-element queue = %v, want TOKEN_NONE", tok.Type)
	}

	// the sentinel must never alias a real token type
	for real := TOKEN_EOS; real <= TOKEN_EOLN; real++ {
		if TOKEN_NONE == real {
			t.Fatalf("TOKEN_NONE aliases real token type %v", real)
		}
	}
}

func TestTokenQueue_DequeueEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Dequeue on empty queue did not panic")
		}
	}()
	NewTokenQueue().Dequeue()
}

func TestTokenQueue_DuplicateIsIndependent(t *testing.T) {
	q := NewTokenQueue()
	q.Enqueue(Token{Type: TOKEN_KEYW_PASS, Line: 1, Col: 1}, "pass")
	q.Enqueue(Token{Type: TOKEN_EOLN, Line: 1, Col: 5}, "EOLN")
	q.Enqueue(Token{Type: TOKEN_EOS, Line: 2, Col: 1}, "$")

	dup := q.Duplicate()

	// draining the original must not alter the duplicate
	for q.Len() > 0 {
		q.Dequeue()
	}
	if dup.Len() != 3 {
		t.Fatalf("duplicate Len after draining original = %d, want 3", dup.Len())
	}

	wantValues := []string{"pass", "EOLN", "$"}
	for i, w := range wantValues {
		tok, value := dup.Dequeue()
		if value != w {
			t.Errorf("duplicate token %d = %q, want %q", i, value, w)
		}
		if i == 0 && tok.Type != TOKEN_KEYW_PASS {
			t.Errorf("duplicate token 0 type = %v, want KEYW_PASS", tok.Type)
		}
	}

	// and the other direction: mutating a fresh duplicate leaves the
	// source untouched
	q2 := NewTokenQueue()
	q2.Enqueue(Token{Type: TOKEN_IDENTIFIER}, "x")
	dup2 := q2.Duplicate()
	dup2.Dequeue()
	if q2.Len() != 1 {
		t.Errorf("source Len after mutating duplicate = %d, want 1", q2.Len())
	}
}

func TestTokenQueue_DestroySafeWhenEmpty(t *testing.T) {
	q := NewTokenQueue()
	q.Destroy()
	q.Destroy() // idempotent

	q.Enqueue(Token{Type: TOKEN_EOS}, "$")
	q.Destroy()
	if q.Len() != 0 {
		t.Errorf("Len after Destroy = %d, want 0", q.Len())
	}
}
