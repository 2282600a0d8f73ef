// Package reporting serializes the final audit report.
package reporting

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/sightline9/a11y-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes one AccessibilityReport to an output.
type Reporter interface {
	Write(report *schemas.AccessibilityReport) error
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// jsonReporter renders the report as indented JSON.
type jsonReporter struct {
	out io.WriteCloser
}

// New creates a reporter writing to the given path; empty or "stdout" writes
// to standard output.
func New(outputPath string) (Reporter, error) {
	if outputPath == "" || outputPath == "stdout" {
		return &jsonReporter{out: nopWriteCloser{os.Stdout}}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	return &jsonReporter{out: f}, nil
}

// NewWriter creates a reporter over an arbitrary writer. Used by tests.
func NewWriter(w io.Writer) Reporter {
	return &jsonReporter{out: nopWriteCloser{w}}
}

func (r *jsonReporter) Write(report *schemas.AccessibilityReport) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.out.Close()
}
