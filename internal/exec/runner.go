// Package exec provides a testable command execution abstraction used by
// script steps. Inject a [Runner] instead of calling os/exec directly.
package exec

import (
	"bytes"
	"context"
	"fmt"
	osexec "os/exec"
	"strings"
)

// Runner defines the interface for executing external commands.
type Runner interface {
	// RunInDir executes a command in a specific directory and returns
	// stdout and stderr separately.
	RunInDir(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)
}

// OSRunner implements Runner using os/exec. The child inherits the
// environment of the current process.
type OSRunner struct{}

// NewOSRunner creates a new OS-based command runner.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

// RunInDir executes a command in dir and returns stdout and stderr separately.
func (r *OSRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Call records one invocation made through [MockRunner].
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Command returns the call as a single space-separated command line.
func (c Call) Command() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// MockRunner implements [Runner] for testing.
//
// Configure failures by command line:
//
//	mock := &MockRunner{Fail: map[string]bool{"python3 check.py": true}}
type MockRunner struct {
	// Calls records all invocations in order.
	Calls []Call

	// Stdout is returned for every successful call.
	Stdout string

	// Stderr is returned for every failing call.
	Stderr string

	// Fail lists command lines (see [Call.Command]) that must fail.
	Fail map[string]bool
}

// RunInDir records the call and returns the configured output.
func (m *MockRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	m.Calls = append(m.Calls, call)

	if m.Fail[call.Command()] {
		return nil, []byte(m.Stderr), fmt.Errorf("exit status 1")
	}
	return []byte(m.Stdout), nil, nil
}
