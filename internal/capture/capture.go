// Package capture grabs a single JPEG frame for the detector.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotJPEG is returned when captured bytes lack the JPEG start-of-image marker.
var ErrNotJPEG = errors.New("captured image is not a JPEG")

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// Capturer produces one still image per call.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Command runs an external program and reads the JPEG it writes to stdout,
// e.g. "fswebcam -q --no-banner -".
type Command struct {
	name string
	args []string
}

// NewCommand splits line on whitespace into a program and its arguments.
func NewCommand(line string) (*Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	return &Command{name: parts[0], args: parts[1:]}, nil
}

// Capture runs the command once.
func (c *Command) Capture(ctx context.Context) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("failed to run capture command: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("failed to run capture command: %w", err)
	}
	return checkJPEG(stdout.Bytes())
}

// File re-reads a JPEG from disk on every capture. Useful with tools that
// keep overwriting a snapshot file.
type File struct {
	Path string
}

// Capture reads the file.
func (f File) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture file: %w", err)
	}
	return checkJPEG(data)
}

// FromConfig picks a File capturer for "file:<path>" and a Command otherwise.
func FromConfig(value string) (Capturer, error) {
	value = strings.TrimSpace(value)
	if path, ok := strings.CutPrefix(value, "file:"); ok {
		if path == "" {
			return nil, fmt.Errorf("capture file path is empty")
		}
		return File{Path: path}, nil
	}
	return NewCommand(value)
}

func checkJPEG(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, jpegMagic) {
		return nil, ErrNotJPEG
	}
	return data, nil
}
