package generator

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "fake-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLIClient_PipesPromptThroughStdin(t *testing.T) {
	cli := NewCLIClient(writeScript(t, "cat"))

	resp, err := cli.Generate(context.Background(), "system", "  Topic: Fractions  ")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "Topic: Fractions" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.PromptTokens != 0 || resp.OutputTokens != 0 {
		t.Errorf("expected no token usage, got %d/%d", resp.PromptTokens, resp.OutputTokens)
	}
}

func TestCLIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantMsg string
	}{
		{"empty output", "cat >/dev/null", "empty response"},
		{"non-zero exit", "echo boom >&2; exit 3", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := NewCLIClient(writeScript(t, tt.script))
			_, err := cli.Generate(context.Background(), "system", "prompt")
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestCLIClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewCLIClient("claude").Generate(ctx, "s", "u"); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
