// Package ocr runs an out-of-process OCR engine on capture artifacts.
//
// The engine contract is the one of the tesseract CLI:
//
//	<engine> <image path> stdout [args...]
//
// prints the recognized text on stdout and exits with 0. Any other exit code is
// a failure, the stderr of the engine is kept in model.RecognitionError.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/CZERTAINLY/Spotter/internal/model"
)

const waitDelay = time.Second

// Recognizer returns text found in an image file.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

type Command struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// CommandFromConfig converts the ocr section of a config to a Command.
func CommandFromConfig(cfg model.OCR) Command {
	return Command{
		Path:    cfg.Path,
		Args:    append([]string(nil), cfg.Args...),
		Env:     cfg.Environ(),
		Timeout: cfg.TimeoutDuration(),
	}
}

type Tesseract struct {
	cmd Command
}

func NewTesseract(cmd Command) Tesseract {
	return Tesseract{cmd: cmd}
}

// Recognize runs the engine on a file at path. The engine is killed when ctx
// is canceled or when the command timeout expires.
func (t Tesseract) Recognize(ctx context.Context, path string) (string, error) {
	if t.cmd.Timeout == 0 {
		slog.WarnContext(ctx, "ocr command has no timeout", "path", t.cmd.Path)
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cmd.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(t.cmd.Args)+2)
	args = append(args, path, "stdout")
	args = append(args, t.cmd.Args...)

	cmd := exec.CommandContext(ctx, t.cmd.Path, args...)
	if len(t.cmd.Env) > 0 {
		cmd.Env = append(os.Environ(), t.cmd.Env...)
	}
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	slog.DebugContext(ctx, "ocr finished",
		"elapsed", time.Since(started).String(),
		"stdout_len", stdout.Len(),
		"error", err,
	)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = errors.Join(ctx.Err(), err)
		}
		return "", &model.RecognitionError{
			Path:   path,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", &model.RecognitionError{Path: path, Err: model.ErrNotUTF8}
	}
	return stdout.String(), nil
}
