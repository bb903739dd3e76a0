package token

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Fetch waits for the command's output pipes to
// close after the process has been killed.
const waitDelay = time.Second

var errEmptyToken = errors.New("command printed an empty token")

// FetchError is returned when the identity command cannot produce a token.
type FetchError struct {
	// Command is the argv joined with spaces.
	Command string
	// ExitCode is the process exit status, or -1 if it never ran to completion.
	ExitCode int
	// Stderr is the trimmed standard error output, if any.
	Stderr string
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("token: %s", e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(": exit status %d", e.ExitCode)
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher obtains bearer tokens by running an identity CLI that prints the
// token on stdout, such as `gcloud auth print-access-token`.
type Fetcher struct {
	args    []string
	timeout time.Duration
}

// New returns a Fetcher running args[0] with args[1:]. A non-positive
// timeout leaves the call bounded only by the caller's context.
func New(args []string, timeout time.Duration) *Fetcher {
	return &Fetcher{args: append([]string(nil), args...), timeout: timeout}
}

// Fetch runs the command once and returns its trimmed stdout. It does not
// retry; every failure is a *FetchError. A zero exit whose stdout is empty
// or only whitespace is a failure too, since an empty bearer token would
// produce a kubeconfig that every API call rejects.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	command := strings.Join(f.args, " ")
	if len(f.args) == 0 {
		return "", &FetchError{Command: command, ExitCode: -1, Err: errors.New("no command configured")}
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.args[0], f.args[1:]...) //nolint:gosec // argv comes from operator config
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		ferr := &FetchError{
			Command:  command,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			ferr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			ferr.Err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return "", ferr
	}

	tok := strings.TrimSpace(stdout.String())
	if tok == "" {
		return "", &FetchError{Command: command, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: errEmptyToken}
	}
	return tok, nil
}
