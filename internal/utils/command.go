package utils

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// CommandResult captures the observable outcome of one external command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

var ErrCommandTimeout = errors.New("command timed out")

/**
 * Run an external command with a hard deadline
 * @param {time.Duration} timeout - Upper bound before the command is killed
 * @param {string} name - Command name resolved via PATH
 * @param {...string} args - Command arguments
 * @returns {(CommandResult, error)} Returns captured output and error if any
 * @description
 * - Wraps exec.CommandContext so a hung tool cannot stall the whole run
 * - Timeout is reported as ErrCommandTimeout so callers can log-and-continue
 */
func RunCommand(timeout time.Duration, name string, args ...string) (CommandResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return RunCommandContext(ctx, name, args...)
}

// RunCommandContext runs a command under an existing context.
func RunCommandContext(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if ctx.Err() == context.DeadlineExceeded {
		return res, ErrCommandTimeout
	}
	return res, err
}

// CheckCommand reports whether a command is resolvable via PATH.
func CheckCommand(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
