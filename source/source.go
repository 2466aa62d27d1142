// Package source acquires cpuinfo listings. It reads a file (by default
// /proc/cpuinfo), standard input, or the standard output of a command run
// with a timeout, such as "ssh host cat /proc/cpuinfo".
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultPath is the kernel's processor listing.
const DefaultPath = "/proc/cpuinfo"

// StdinPath selects standard input when used as Config.Path.
const StdinPath = "-"

// Config selects where a listing is read from. When Command is set it takes
// precedence over Path.
type Config struct {
	// Path is the file to read. Empty means DefaultPath; "-" means Stdin.
	Path string

	// Command is the name or path of a command whose stdout is the listing.
	Command string

	// Args are the command-line arguments (optional)
	Args []string

	// Env specifies the environment in "KEY=value" form (optional).
	// If nil, the command inherits the parent process environment.
	Env []string

	// Timeout bounds a command run or file read (optional).
	// If zero, only the parent context applies.
	Timeout time.Duration

	// Stdin is read when Path is "-". Defaults to os.Stdin.
	Stdin io.Reader
}

// Result holds an acquired listing.
type Result struct {
	// Text is the raw listing.
	Text string

	// Origin describes where Text came from: a file path, "stdin", or the
	// command line.
	Origin string

	// Duration is the time spent acquiring Text.
	Duration time.Duration
}

// Origin returns the description Read puts into Result.Origin for cfg.
func (c Config) Origin() string {
	if c.Command != "" {
		return strings.Join(append([]string{c.Command}, c.Args...), " ")
	}
	switch c.Path {
	case "":
		return DefaultPath
	case StdinPath:
		return "stdin"
	default:
		return c.Path
	}
}

// Read acquires a listing as described by cfg.
//
// A command that exits non-zero is an error carrying its stderr. If the
// command times out or the context is cancelled, the process is killed.
//
// Example:
//
//	res, err := source.Read(ctx, source.Config{
//		Command: "ssh",
//		Args:    []string{"db-1", "cat", "/proc/cpuinfo"},
//		Timeout: 10 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	info, err := p.Parse(ctx, res.Text)
func Read(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	var text string
	var err error
	switch {
	case cfg.Command != "":
		text, err = runCommand(ctx, cfg)
	case cfg.Path == StdinPath:
		stdin := cfg.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		text, err = readAll(ctx, stdin)
	default:
		text, err = readFile(ctx, cfg.Origin())
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:     text,
		Origin:   cfg.Origin(),
		Duration: time.Since(start),
	}, nil
}

func readFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	text, err := readAll(ctx, f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return text, nil
}

// readAll reads r to the end unless ctx finishes first. Files under /proc
// do not support deadlines, so the read runs in its own goroutine.
func readAll(ctx context.Context, r io.Reader) (string, error) {
	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(r)
		done <- readResult{data, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		return string(res.data), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func runCommand(ctx context.Context, cfg Config) (string, error) {
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if cfg.Env != nil {
		cmd.Env = cfg.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("command %q timed out after %v", cfg.Command, cfg.Timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return "", fmt.Errorf("command %q cancelled", cfg.Command)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &ExitError{
			Command:  cfg.Origin(),
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return "", fmt.Errorf("command execution failed: %w", err)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// BinaryExists reports whether name is found in PATH.
func BinaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
