package nupy

// tokenPair binds a token to its lexeme text. The text is associated by
// queue position, not stored in the Token itself.
type tokenPair struct {
	tok   Token
	value string
}

// TokenQueue is the ordered sequence of (token, text) pairs produced by one
// tokenization pass. The parser drains it destructively; the grammar's
// two-token lookahead is served by PeekFirst/PeekSecond.
//
// A TokenQueue is owned by a single goroutine; it is not safe for
// concurrent use and does not need to be.
type TokenQueue struct {
	items []tokenPair
}

// NewTokenQueue creates an empty queue.
func NewTokenQueue() *TokenQueue {
	return &TokenQueue{}
}

// Enqueue appends a (token, text) pair at the tail.
func (q *TokenQueue) Enqueue(tok Token, value string) {
	q.items = append(q.items, tokenPair{tok: tok, value: value})
}

// Dequeue removes and returns the head pair. Calling Dequeue on an empty
// queue is a programmer error and fails fast; it never returns a sentinel.
func (q *TokenQueue) Dequeue() (Token, string) {
	if len(q.items) == 0 {
		panic("nupy: dequeue on empty token queue (Dequeue)")
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head.tok, head.value
}

// PeekFirst returns the head pair without removing it. Like Dequeue, an
// empty queue is a programmer error.
func (q *TokenQueue) PeekFirst() (Token, string) {
	if len(q.items) == 0 {
		panic("nupy: peek on empty token queue (PeekFirst)")
	}
	return q.items[0].tok, q.items[0].value
}

// PeekSecond returns the second-from-head pair without removing it. With
// fewer than two elements it returns the TOKEN_NONE sentinel, which aliases
// no real token type; the statement-lookahead rules depend on that.
func (q *TokenQueue) PeekSecond() (Token, string) {
	if len(q.items) < 2 {
		return Token{Type: TOKEN_NONE}, ""
	}
	return q.items[1].tok, q.items[1].value
}

// Len returns the number of pairs currently in the queue.
func (q *TokenQueue) Len() int {
	return len(q.items)
}

// Duplicate returns an independent copy of the queue: same pair sequence,
// fully separate storage. Mutating one queue never affects the other.
func (q *TokenQueue) Duplicate() *TokenQueue {
	dup := &TokenQueue{items: make([]tokenPair, len(q.items))}
	copy(dup.items, q.items)
	return dup
}

// Destroy releases the queue's storage. Safe on an already-empty queue.
func (q *TokenQueue) Destroy() {
	q.items = nil
}
