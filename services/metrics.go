package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"gz302-agent/internal/models"
)

const metricsFile = "gz302.prom"

/**
 * Write the run outcome in node-exporter textfile format
 * @param {string} dir - Textfile collector directory
 * @param {*models.RunSummary} s - Finished run to export
 * @returns {error} Render or write failure
 * @description
 * - The agent is a short-lived process, so it exports through the textfile
 *   collector instead of serving a scrape endpoint itself
 * - The file is written next to its final name and renamed so the
 *   collector never reads a half-written snapshot
 */
func WriteRunMetrics(dir string, s *models.RunSummary) error {
	reg := prometheus.NewRegistry()

	actions := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gz302_actions",
		Help: "Actions taken per component by the last reconciliation run.",
	}, []string{"component", "kind"})
	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gz302_verify_findings",
		Help: "Verification findings per component from the last run.",
	}, []string{"component"})
	runInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gz302_run_info",
		Help: "Kernel and bootloader facts of the last run, value is always 1.",
	}, []string{"kernel_release", "bootloader"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gz302_last_run_timestamp_seconds",
		Help: "Unix time the last run started.",
	})
	runClean := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gz302_run_clean",
		Help: "1 when the last run had no fatal errors and no findings.",
	})
	reg.MustRegister(actions, findings, runInfo, lastRun, runClean)

	for _, a := range s.Applies {
		actions.WithLabelValues(a.Component, "applied").Set(float64(len(a.Applied)))
		actions.WithLabelValues(a.Component, "removed").Set(float64(len(a.Removed)))
		actions.WithLabelValues(a.Component, "skipped").Set(float64(len(a.Skipped)))
	}
	for _, v := range s.Verifies {
		findings.WithLabelValues(v.Component).Set(float64(len(v.Findings)))
	}
	runInfo.WithLabelValues(s.KernelRelease, s.Bootloader).Set(1)
	lastRun.Set(float64(s.StartTime.Unix()))
	if s.Clean() {
		runClean.Set(1)
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	tmp := filepath.Join(dir, metricsFile+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, metricsFile))
}
