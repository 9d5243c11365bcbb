package cmd

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with args and returns its combined output
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	if ctx == nil {
		ctx = context.Background()
	}
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

// isolatedConfig points the commands at a missing config file and a
// temporary database
func isolatedConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TSYNC_DATABASE_PATH", filepath.Join(dir, "test.db"))
	return filepath.Join(dir, "missing.yaml")
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantErr        bool
		expectedOutput string
	}{
		{
			name:           "root command without args shows help",
			args:           []string{},
			wantErr:        false,
			expectedOutput: "Transcript Sync",
		},
		{
			name:           "root command with --help",
			args:           []string{"--help"},
			wantErr:        false,
			expectedOutput: "Available Commands:",
		},
		{
			name:           "root command with invalid flag",
			args:           []string{"--invalid-flag"},
			wantErr:        true,
			expectedOutput: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, nil, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.expectedOutput != "" && !strings.Contains(out, tt.expectedOutput) {
				t.Errorf("Expected output to contain %q, got %q", tt.expectedOutput, out)
			}
		})
	}
}

func TestLogFlags(t *testing.T) {
	cmd := NewRootCmd()

	// Test that log-level flag is registered
	logFlag := cmd.PersistentFlags().Lookup("log-level")
	if logFlag == nil {
		t.Error("Expected log-level flag to be registered")
		return
	}

	if logFlag.DefValue != "info" {
		t.Errorf("Expected default log-level to be 'info', got %s", logFlag.DefValue)
	}

	// Test that json-logs flag is registered
	jsonFlag := cmd.PersistentFlags().Lookup("json-logs")
	if jsonFlag == nil {
		t.Error("Expected json-logs flag to be registered")
		return
	}

	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("Expected config flag to be registered")
	}
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})

	if err := setupLogging(new(bytes.Buffer), "verbose", false); err == nil {
		t.Error("Expected an error for an unknown log level")
	}

	buf := new(bytes.Buffer)
	if err := setupLogging(buf, "INFO", true); err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	log.Printf("Merger: rejected stale update of r1")

	line := buf.String()
	if !strings.Contains(line, `"component":"Merger"`) {
		t.Errorf("Expected component field, got %q", line)
	}
	if !strings.Contains(line, `"msg":"Merger: rejected stale update of r1"`) {
		t.Errorf("Expected msg field, got %q", line)
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("Expected one line, got %q", line)
	}
}
