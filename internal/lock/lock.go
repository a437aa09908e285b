//go:build unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning means another agent instance holds the run lock.
var ErrAlreadyRunning = errors.New("another gz302-agent run is in progress")

// RunLock serializes whole agent runs on one host with an advisory
// flock(2). Provisioning tools are not expected to race themselves, but a
// second accidental invocation should fail fast instead of interleaving
// file mutations.
type RunLock struct {
	path string
	file *os.File
}

// NewRunLock places the lock file next to the agent's state.
func NewRunLock(path string) *RunLock {
	return &RunLock{path: path}
}

/**
 * Acquire the exclusive run lock without blocking
 * @returns {error} ErrAlreadyRunning when the lock is held elsewhere
 * @description
 * - Writes our PID into the lock file for operator diagnosis
 * - The lock dies with the process, so crashes never wedge future runs
 */
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return ErrAlreadyRunning
		}
		return fmt.Errorf("flock: %w", err)
	}
	f.Truncate(0)
	f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	l.file = f
	return nil
}

// Release drops the lock. Safe to call when never acquired.
func (l *RunLock) Release() {
	if l.file == nil {
		return
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
	l.file = nil
}
