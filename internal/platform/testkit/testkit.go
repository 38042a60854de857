// Package testkit holds small assertions shared by package tests
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	perr "echokit/internal/platform/errors"
)

// MustPanic fails unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}

// MustNotPanic fails if fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	fn()
}

// MustContain fails unless haystack contains needle; the haystack is dumped to a temp file
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		dump := filepath.Join(t.TempDir(), "haystack.txt")
		_ = os.WriteFile(dump, []byte(haystack), 0o600)
		t.Fatalf("expected output to contain %q\n\nfull output written to %s", needle, dump)
	}
}

// MustCode fails unless err carries code anywhere in its chain
func MustCode(t *testing.T, err error, code perr.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %v, got nil", code)
	}
	if !perr.HasCode(err, code) {
		t.Fatalf("expected code %v in chain, got %v (%v)", code, perr.CodeOf(err), err)
	}
}
