package runner

import (
	"context"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("abc", 5); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc...(truncated)" {
		t.Fatalf("got %q", got)
	}
}

func TestExecRun(t *testing.T) {
	if !Available("echo") {
		t.Skip("echo not on PATH")
	}
	out, _, err := NewExec(nil).Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Fatalf("stdout = %q", out)
	}
}

func TestExecRunMissingBinary(t *testing.T) {
	_, _, err := NewExec(nil).Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
