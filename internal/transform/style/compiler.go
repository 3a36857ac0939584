// Package style compiles SCSS through the sass binary, adds vendor prefixes
// and minifies the result.
package style

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrSassBinaryNotFound is returned when the configured sass binary is not on PATH.
var ErrSassBinaryNotFound = errors.New("sass binary not found")

// Compiler turns one stylesheet source into plain CSS.
type Compiler interface {
	Compile(ctx context.Context, path string, src []byte) ([]byte, error)
}

// SassCompiler invokes the Dart Sass command line on PATH. The source is fed
// on stdin; the source file's directory and LoadPaths are import roots.
type SassCompiler struct {
	Binary    string
	LoadPaths []string
}

func (s *SassCompiler) Compile(ctx context.Context, path string, src []byte) ([]byte, error) {
	binary := s.Binary
	if binary == "" {
		binary = "sass"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSassBinaryNotFound, err)
	}

	args := []string{"--stdin", "--no-source-map", "--style=expanded", "--load-path=" + filepath.Dir(path)}
	for _, p := range s.LoadPaths {
		args = append(args, "--load-path="+p)
	}
	if strings.EqualFold(filepath.Ext(path), ".sass") {
		args = append(args, "--indented")
	}

	cmd := exec.CommandContext(ctx, resolved, args...)
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking sass", "binary", resolved, "path", path)

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String())
		if output != "" {
			return nil, fmt.Errorf("sass: %w: %s", err, output)
		}
		return nil, fmt.Errorf("sass: %w", err)
	}
	if errStr := strings.TrimSpace(stderr.String()); errStr != "" {
		slog.Warn("sass stderr", "path", path, "error_output", errStr)
	}
	return stdout.Bytes(), nil
}
