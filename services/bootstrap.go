package services

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gz302-agent/internal/bootparam"
	"gz302-agent/internal/config"
	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/lock"
	"gz302-agent/internal/state"
)

/**
 * Assemble the reconciler for the live host
 * @param {io.Writer} out - Destination for per-step output
 * @returns {(*Reconciler, error)} Ready reconciler or a fatal setup error
 * @description
 * - Refuses to run without root: every artifact lives under /etc, /boot
 *   or /usr/share
 * - An unparseable kernel release is fatal; every decision hangs off it
 * - State directory creation failures are fatal, later state errors only
 *   degrade to warnings
 */
func Bootstrap(out io.Writer) (*Reconciler, error) {
	e := env.DetectEnvironment()
	if !e.IsRoot() {
		return nil, fmt.Errorf("gz302-agent must run as root, try: sudo gz302-agent")
	}

	oracle, err := kernel.NewOracle(e.KernelRelease)
	if err != nil {
		return nil, fmt.Errorf("kernel version: %w", err)
	}

	cfg := &config.Config
	st := state.NewManager(cfg.Directory.State, cfg.Directory.Backups, cfg.Log.Path)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("state directories: %w", err)
	}

	timeout := time.Duration(cfg.Exec.TimeoutSeconds) * time.Second
	return NewReconciler(e, st, oracle, bootparam.New(e, timeout), out), nil
}

// NewRunLock places the run lock next to the agent's state directory.
func NewRunLock() *lock.RunLock {
	return lock.NewRunLock(filepath.Join(filepath.Dir(config.Config.Directory.State), "run.lock"))
}
