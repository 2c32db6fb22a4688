// Package backend runs an external compiler command as the build backend.
package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Backend = (*Command)(nil)

// Command implements ports.Backend by running a configured command once per pass.
// Source units go to its stdin one per line; it answers with JSON lines on stdout.
type Command struct {
	argv   []string
	env    map[string]string
	dir    string
	logger ports.Logger
}

// NewCommand creates a backend running cfg.Command in dir.
func NewCommand(cfg domain.BackendConfig, dir string, logger ports.Logger) *Command {
	return &Command{
		argv:   cfg.Command,
		env:    cfg.Env,
		dir:    dir,
		logger: logger,
	}
}

// Compile runs the command for units. Unit errors reported by the command are
// returned as failures; a non-zero exit or undecodable output fails the call.
func (c *Command) Compile(ctx context.Context, units []domain.SourceUnit) (*domain.CompileResult, error) {
	if len(c.argv) == 0 {
		return nil, zerr.Wrap(domain.ErrBackendFailed, "no backend command configured")
	}

	name := c.argv[0]
	cmdEnv := resolveEnvironment(os.Environ(), c.env)

	executable := name
	if !filepath.IsAbs(name) && strings.ContainsRune(name, filepath.Separator) {
		executable = filepath.Join(c.dir, name)
	} else if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, c.argv[1:]...) //nolint:gosec // user provided command
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Dir = c.dir
	cmd.Env = cmdEnv
	cmd.Stdin = strings.NewReader(stdinFor(units))

	stderr := &logWriter{logger: c.logger}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Join(domain.ErrBackendFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Join(domain.ErrBackendFailed, zerr.With(err, "command", name))
	}

	result, decodeErr := decode(stdout)
	if decodeErr != nil {
		// Drain so the command is not blocked on a full pipe before Wait.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	_ = stderr.Close()

	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, errors.Join(domain.ErrBackendFailed, zerr.With(zerr.With(waitErr, "command", name), "exit_code", exitCode))
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	return result, nil
}

func stdinFor(units []domain.SourceUnit) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// decode reads JSON lines until EOF.
func decode(r io.Reader) (*domain.CompileResult, error) {
	result := &domain.CompileResult{}
	br := bufio.NewReader(r)

	for lineNo := 1; ; lineNo++ {
		raw, readErr := br.ReadBytes('\n')
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := decodeLine(raw, result); err != nil {
				return nil, zerr.With(err, "line", lineNo)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return result, nil
		}
		if readErr != nil {
			return nil, errors.Join(domain.ErrBackendFailed, readErr)
		}
	}
}

// logWriter forwards the command's stderr to the logger line by line.
type logWriter struct {
	logger ports.Logger
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if msg == "" || w.logger == nil {
		return
	}
	w.logger.Warn("backend: " + msg)
}
