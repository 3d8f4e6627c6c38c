// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestToolErrorCategories(t *testing.T) {
	tests := []struct {
		err      *ToolError
		category ErrorCategory
		code     int
	}{
		{Validation("bad %s", "input"), CategoryValidation, 2},
		{Transient("link %s", "down"), CategoryTransient, 1},
		{Internal("no %s", "pty"), CategoryInternal, 1},
	}
	for _, test := range tests {
		if test.err.Category != test.category {
			t.Errorf("%v: category = %q, want %q", test.err, test.err.Category, test.category)
		}
		if got := ExitCode(test.err); got != test.code {
			t.Errorf("%v: ExitCode = %d, want %d", test.err, got, test.code)
		}
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	err := Internal("open transport: %w", fs.ErrNotExist)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("ToolError does not unwrap to fs.ErrNotExist")
	}
	wrapped := fmt.Errorf("client: %w", err)
	var toolErr *ToolError
	if !errors.As(wrapped, &toolErr) {
		t.Fatal("errors.As did not find the ToolError")
	}
	if toolErr.Category != CategoryInternal {
		t.Errorf("category = %q, want internal", toolErr.Category)
	}
}

func TestToolErrorWithHint(t *testing.T) {
	err := Validation("too many arguments").WithHint("Run 'demul --help' for usage.")
	want := "too many arguments\n\nRun 'demul --help' for usage."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
	if got := ExitCode(errors.New("plain")); got != 1 {
		t.Errorf("ExitCode(plain) = %d, want 1", got)
	}
	if got := ExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: 3})); got != 3 {
		t.Errorf("ExitCode(ExitError 3) = %d, want 3", got)
	}
}
