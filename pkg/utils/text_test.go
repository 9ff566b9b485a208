package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("x", 0); got != "x" {
		t.Errorf("maxLen 0 should return as-is, got %q", got)
	}
}
