package live

import (
	"sync"
	"unicode/utf8"
)

// transcript keeps the tail of the model's spoken output.
type transcript struct {
	mu    sync.Mutex
	text  string
	limit int
}

func newTranscript(limit int) *transcript {
	return &transcript{limit: limit}
}

// Append adds " "+fragment and truncates to the last limit characters.
func (t *transcript) Append(fragment string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = tail(t.text+" "+fragment, t.limit)
	return t.text
}

func (t *transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

func (t *transcript) Reset() {
	t.mu.Lock()
	t.text = ""
	t.mu.Unlock()
}

func tail(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-limit:])
}
