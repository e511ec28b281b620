package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ErrConverterUnavailable is returned when the converter binary is not installed
var ErrConverterUnavailable = errors.New("document converter not available")

// Converter turns legacy .doc files into .docx with an office suite running headless
type Converter struct {
	binary  string
	tempDir string
	timeout time.Duration
}

// NewConverter creates a converter. An empty tempDir uses the system default.
func NewConverter(binary, tempDir string, timeout time.Duration) *Converter {
	if binary == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Converter{
		binary:  binary,
		tempDir: tempDir,
		timeout: timeout,
	}
}

// ConvertToDocx writes the input into a private work directory, runs the
// converter there and returns the produced .docx bytes. The work directory
// is removed on every path.
func (c *Converter) ConvertToDocx(ctx context.Context, data []byte) ([]byte, error) {
	binPath, err := exec.LookPath(c.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConverterUnavailable, err)
	}

	workDir, err := os.MkdirTemp(c.tempDir, "doc-convert-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "input.doc")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binPath, "--headless", "--convert-to", "docx", "--outdir", workDir, inPath)
	cmd.Stderr = &stderr
	// soffice keeps its user profile under HOME
	cmd.Env = append(os.Environ(), "HOME="+workDir)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("conversion failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	out, err := os.ReadFile(filepath.Join(workDir, "input.docx"))
	if err != nil {
		return nil, fmt.Errorf("converted file missing: %w", err)
	}
	return out, nil
}
