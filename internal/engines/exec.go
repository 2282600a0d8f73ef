package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// commandRunner abstracts subprocess execution so the CLI-backed adapters can
// be tested with canned output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// runCommand executes the engine binary and returns its stdout. Several of
// the wrapped CLIs signal "issues found" through a non-zero exit code while
// still emitting a full JSON document, so an exit error with JSON on stdout
// is treated as success.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && looksLikeJSON(stdout.Bytes()) {
			return stdout.Bytes(), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w (stderr: %s)", name, err, firstLine(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

func looksLikeJSON(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && (b[0] == '{' || b[0] == '[')
}

func firstLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	const max = 300
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
