package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gz302-agent/internal/bootparam"
	"gz302-agent/internal/env"
	"gz302-agent/internal/kernel"
	"gz302-agent/internal/models"
	"gz302-agent/internal/state"
)

/**
 * Reconciler drives the component managers through one detect/apply/verify
 * cycle
 * @description
 * - Managers run in a fixed order but are independent: a failing artifact
 *   in one never blocks the others, it just lands in the summary
 * - Per-step outcomes print immediately so an interrupted run still shows
 *   what happened; the summary repeats the totals once at the end
 */
type Reconciler struct {
	env      *env.Environment
	st       *state.Manager
	oracle   *kernel.Oracle
	injector *bootparam.Injector
	managers []ComponentManager
	out      io.Writer
}

func NewReconciler(e *env.Environment, st *state.Manager, oracle *kernel.Oracle,
	inj *bootparam.Injector, out io.Writer) *Reconciler {
	return &Reconciler{
		env:      e,
		st:       st,
		oracle:   oracle,
		injector: inj,
		managers: []ComponentManager{
			NewNetworkManager(e, st, oracle),
			NewGPUManager(e, st, oracle, inj),
			NewInputManager(e, st, oracle),
			NewAudioManager(e, st, oracle),
			NewPlatformManager(e, st, oracle),
		},
		out: out,
	}
}

// State exposes the state manager for the rollback and status surfaces.
func (r *Reconciler) State() *state.Manager {
	return r.st
}

// Injector exposes the kernel parameter injector for the param surface.
func (r *Reconciler) Injector() *bootparam.Injector {
	return r.injector
}

// Managers exposes the component managers, mainly for status output.
func (r *Reconciler) Managers() []ComponentManager {
	return r.managers
}

// Manager returns the named component manager, nil when unknown.
func (r *Reconciler) Manager(name string) ComponentManager {
	for _, m := range r.managers {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

/**
 * Run one full reconciliation
 * @param {bool} force - Rewrite artifacts even when they already match
 * @param {string} only - Restrict to one component name; empty runs all
 * @returns {*models.RunSummary} Aggregated outcomes; Clean() decides exit
 * @description
 * - Apply everything first, then verify everything: verification sees the
 *   combined result, not per-component intermediate states
 * - An unknown component name is a fatal summary entry, not a panic
 */
func (r *Reconciler) Run(force bool, only string) *models.RunSummary {
	summary := &models.RunSummary{
		StartTime:     time.Now(),
		KernelRelease: r.oracle.Release(),
		KernelVersion: r.oracle.VersionNumber(),
		Bootloader:    r.injector.Kind().String(),
	}

	targets := r.managers
	if only != "" {
		m := r.Manager(only)
		if m == nil {
			summary.Fatal = append(summary.Fatal, "unknown component: "+only)
			return summary
		}
		targets = []ComponentManager{m}
	}

	fmt.Fprintf(r.out, "kernel %s (%d), bootloader %s\n",
		summary.KernelRelease, summary.KernelVersion, summary.Bootloader)

	for _, m := range targets {
		facts := m.DetectHardware()
		if !facts.Present {
			fmt.Fprintf(r.out, "[%s] hardware not detected, skipping\n", m.Name())
			summary.Applies = append(summary.Applies, models.ApplyResult{Component: m.Name()})
			continue
		}
		fmt.Fprintf(r.out, "[%s] %s\n", m.Name(), facts.Identity)

		res := m.ApplyConfiguration(force)
		r.printApply(res)
		summary.Applies = append(summary.Applies, res)
		r.st.Log("INFO", m.Name(), fmt.Sprintf("applied=%d removed=%d skipped=%d warnings=%d",
			len(res.Applied), len(res.Removed), len(res.Skipped), len(res.Warnings)))
	}

	for _, m := range targets {
		ver := m.Verify()
		for _, f := range ver.Findings {
			fmt.Fprintf(r.out, "[%s] verify: %s\n", m.Name(), f)
		}
		summary.Verifies = append(summary.Verifies, ver)
	}

	r.printSummary(summary)
	return summary
}

func (r *Reconciler) printApply(res models.ApplyResult) {
	for _, a := range res.Applied {
		fmt.Fprintf(r.out, "[%s] applied %s\n", res.Component, a)
	}
	for _, a := range res.Removed {
		fmt.Fprintf(r.out, "[%s] removed obsolete %s\n", res.Component, a)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(r.out, "[%s] warning: %s\n", res.Component, w)
	}
	if !res.Changed() && len(res.Warnings) == 0 {
		fmt.Fprintf(r.out, "[%s] nothing to do\n", res.Component)
	}
}

func (r *Reconciler) printSummary(s *models.RunSummary) {
	applied, removed, findings := 0, 0, 0
	for _, a := range s.Applies {
		applied += len(a.Applied)
		removed += len(a.Removed)
	}
	for _, v := range s.Verifies {
		findings += len(v.Findings)
	}
	fmt.Fprintf(r.out, "done in %s: %d applied, %d removed, %d findings\n",
		time.Since(s.StartTime).Round(time.Millisecond), applied, removed, findings)
	if !s.Clean() {
		fmt.Fprintln(r.out, "run finished with findings; see the install log")
	}
}

// Status renders the full status report: kernel and bootloader facts, the
// state manager's view, then every component's own report.
func (r *Reconciler) Status() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kernel: %s (version %d)\n", r.oracle.Release(), r.oracle.VersionNumber())
	fmt.Fprintf(&b, "bootloader: %s\n", r.injector.Kind())
	fmt.Fprintf(&b, "distro family: %s\n\n", r.env.DistroFamily)
	b.WriteString(r.st.PrintStatus())
	b.WriteString("\n")
	for _, m := range r.managers {
		b.WriteString(m.PrintStatus())
		b.WriteString("\n")
	}
	return b.String()
}
