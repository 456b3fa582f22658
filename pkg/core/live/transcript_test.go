package live

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTranscript_AppendKeepsTail(t *testing.T) {
	tr := newTranscript(10)
	if got := tr.Append("hi"); got != " hi" {
		t.Fatalf("got %q", got)
	}
	if got := tr.Append("there friend"); got != "there friend"[2:] {
		t.Fatalf("got %q", got)
	}
	tr.Reset()
	if tr.String() != "" {
		t.Fatalf("reset left %q", tr.String())
	}
}

func TestTranscript_CountsCharactersNotBytes(t *testing.T) {
	tr := newTranscript(DefaultTranscriptLimit)
	var got string
	for i := 0; i < 40; i++ {
		got = tr.Append("ಟೊಮೆಟೊ")
	}
	if n := utf8.RuneCountInString(got); n != DefaultTranscriptLimit {
		t.Fatalf("runes=%d, want %d", n, DefaultTranscriptLimit)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a character")
	}
	if !strings.HasSuffix(got, " ಟೊಮೆಟೊ") {
		t.Fatalf("tail lost latest fragment: %q", got)
	}
}
