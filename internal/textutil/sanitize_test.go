package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  My Video: Part 1/2  ", "My Video- Part 1-2"},
		{"what?<>|\"", "what"},
		{"..hidden..", "hidden"},
		{"tab\there", "tabhere"},
		{"Café", "Café"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("abcdefghij", 4); got != "abcd…" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héllo…" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Fatalf("zero limit should not truncate, got %q", got)
	}
}
