package shellquote

import (
	"reflect"
	"testing"
)

func TestQuoteRoundTrip(t *testing.T) {
	cases := [][]string{
		{"echo", "hello"},
		{"echo", "hello world"},
		{"sh", "-c", "exit 42"},
		{"printf", "it's a test"},
		{"printf", "a'b'c"},
		{"touch", ""},
		{"ls", "-la", "/tmp/some dir/with spaces"},
	}
	for _, seq := range cases {
		joined := QuoteAll(seq)
		got := Split(joined)
		if !reflect.DeepEqual(got, seq) {
			t.Fatalf("round-trip mismatch: quoted=%q got=%v want=%v", joined, got, seq)
		}
	}
}

func TestQuoteVerbatimForSafeTokens(t *testing.T) {
	for _, tok := range []string{"abc", "a.b", "a/b", "a=b", "a:b", "a@b", "a%b", "a+b", "a-b"} {
		if got := Quote(tok); got != tok {
			t.Fatalf("Quote(%q) = %q, want verbatim", tok, got)
		}
	}
}

func TestQuoteEmptyString(t *testing.T) {
	if Quote("") != "''" {
		t.Fatalf("Quote(\"\") = %q, want ''", Quote(""))
	}
}

func TestNeedsShell(t *testing.T) {
	if NeedsShell([]string{"echo", "hello"}) {
		t.Fatal("plain argv should not need a shell")
	}
	if !NeedsShell([]string{"echo", "hello world"}) {
		t.Fatal("argv with a space should need a shell")
	}
	if !NeedsShell([]string{"echo", ""}) {
		t.Fatal("empty argument should need a shell")
	}
}

func TestWhich(t *testing.T) {
	if matches := Which("a-program-name-that-no-one-would-ever-use"); len(matches) != 0 {
		t.Fatalf("expected no matches, got %v", matches)
	}
	if matches := Which("sh"); len(matches) == 0 {
		t.Fatal("expected to find sh on PATH")
	}
}
