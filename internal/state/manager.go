package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gz302-agent/internal/logger"
	"gz302-agent/internal/models"
)

// ErrNothingToRollback distinguishes "no backup recorded for this action"
// from real failures. Callers treat it as a clean no-op.
var ErrNothingToRollback = errors.New("nothing to roll back")

/**
 * Manager persists action records, file backups and the audit log
 * @property {string} stateDir - Root for per (component, action) JSON records
 * @property {string} backupDir - Vault for pre-mutation snapshots
 * @property {string} logPath - Append-only audit log
 * @description
 * State tracking is an audit layer, not a correctness gate: after Init
 * succeeds, every other operation degrades to a logged warning rather than
 * blocking the underlying hardware fix.
 */
type Manager struct {
	stateDir  string
	backupDir string
	logPath   string

	// content hashes backed up during this run, to avoid duplicate
	// snapshots when several actions touch the same file
	runBackups map[string]string
}

// NewManager wires a state manager over the three persistence roots.
func NewManager(stateDir, backupDir, logPath string) *Manager {
	return &Manager{
		stateDir:   stateDir,
		backupDir:  backupDir,
		logPath:    logPath,
		runBackups: make(map[string]string),
	}
}

/**
 * Create the state, backup and log directories
 * @returns {error} Returns error when any directory cannot be created
 * @description
 * - Idempotent; safe to call on every run
 * - Failure here is fatal for the caller: without the roots nothing can be
 *   tracked or backed up, so the engine refuses to mutate anything
 */
func (m *Manager) Init() error {
	for _, dir := range []string{m.stateDir, m.backupDir, filepath.Dir(m.logPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (m *Manager) recordPath(component, action string) string {
	return filepath.Join(m.stateDir, component, action+".json")
}

// IsApplied reports whether an applied record exists for the action.
func (m *Manager) IsApplied(component, action string) bool {
	rec, ok := m.GetRecord(component, action)
	return ok && rec.Applied
}

// GetRecord loads the persisted record for one action, if present.
func (m *Manager) GetRecord(component, action string) (models.ActionRecord, bool) {
	var rec models.ActionRecord
	data, err := os.ReadFile(m.recordPath(component, action))
	if err != nil {
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Warnf("state record %s/%s is corrupt: %v", component, action, err)
		return rec, false
	}
	return rec, true
}

/**
 * Persist an applied record for an action
 * @param {string} component - Component namespace
 * @param {string} action - Action name within the component
 * @param {models.ActionRecord} rec - Record; Applied and Timestamp are set here
 * @returns {error} Returns write error; callers log and continue
 * @description
 * - Overwrites any previous record for the pair
 * - Appends an INFO entry to the audit log
 */
func (m *Manager) MarkApplied(component, action string, rec models.ActionRecord) error {
	rec.Applied = true
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	dir := filepath.Join(m.stateDir, component)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warnf("cannot create state dir for %s: %v", component, err)
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.recordPath(component, action), data, 0644); err != nil {
		logger.Warnf("cannot write state record %s/%s: %v", component, action, err)
		return err
	}
	m.Log("INFO", component, fmt.Sprintf("marked applied: %s (%s)", action, rec.Metadata))
	return nil
}

// MarkRemoved clears the record for an action that was actively undone.
func (m *Manager) MarkRemoved(component, action string) error {
	err := os.Remove(m.recordPath(component, action))
	if err != nil && !os.IsNotExist(err) {
		logger.Warnf("cannot clear state record %s/%s: %v", component, action, err)
		return err
	}
	m.Log("INFO", component, "marked removed: "+action)
	return nil
}

/**
 * Snapshot a file into the backup vault before its first mutation
 * @param {string} path - File about to be mutated
 * @returns {(string, error)} Returns backup path ("" when the file is absent)
 * @description
 * - Backup name is <originalFilename>.<timestamp>.bak; never overwritten
 * - A snapshot with identical content already in the vault is reused, so
 *   repeated runs do not pile up byte-identical backups
 */
func (m *Manager) Backup(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s for backup: %w", path, err)
	}

	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	if existing, ok := m.runBackups[path+":"+digest]; ok {
		return existing, nil
	}

	base := filepath.Base(path)
	if existing := m.findBackupWithContent(base, digest); existing != "" {
		m.runBackups[path+":"+digest] = existing
		return existing, nil
	}

	stamp := time.Now().Format("20060102-150405")
	backupPath := filepath.Join(m.backupDir, fmt.Sprintf("%s.%s.bak", base, stamp))
	// timestamps have second resolution; a counter keeps names unique when
	// several distinct versions of one file are snapshotted in that window
	for n := 1; ; n++ {
		if _, err := os.Lstat(backupPath); os.IsNotExist(err) {
			break
		}
		backupPath = filepath.Join(m.backupDir, fmt.Sprintf("%s.%s-%d.bak", base, stamp, n))
	}
	if err := os.WriteFile(backupPath, content, 0600); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	m.runBackups[path+":"+digest] = backupPath
	m.Log("INFO", "backup", fmt.Sprintf("saved %s -> %s", path, backupPath))
	return backupPath, nil
}

func (m *Manager) findBackupWithContent(base, digest string) string {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base+".") || !strings.HasSuffix(name, ".bak") {
			continue
		}
		full := filepath.Join(m.backupDir, name)
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) == digest {
			return full
		}
	}
	return ""
}

// Log appends one line to the audit log. Never read back into decisions.
func (m *Manager) Log(level, component, message string) {
	line := fmt.Sprintf("[%s] [%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), level, component, message)
	f, err := os.OpenFile(m.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warnf("cannot append audit log: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		logger.Warnf("cannot append audit log: %v", err)
	}
}

/**
 * Restore the most recent backup for an action and clear its record
 * @param {string} component - Component namespace
 * @param {string} action - Action to roll back
 * @returns {error} ErrNothingToRollback when no usable backup exists
 * @description
 * - Best effort: the backup recorded at apply time wins; an action applied
 *   onto a previously missing file has nothing to restore
 */
func (m *Manager) Rollback(component, action string) error {
	rec, ok := m.GetRecord(component, action)
	if !ok {
		return ErrNothingToRollback
	}
	if rec.Backup == "" || rec.Artifact == "" {
		return ErrNothingToRollback
	}
	content, err := os.ReadFile(rec.Backup)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNothingToRollback
		}
		return fmt.Errorf("read backup %s: %w", rec.Backup, err)
	}
	if err := os.MkdirAll(filepath.Dir(rec.Artifact), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(rec.Artifact, content, 0644); err != nil {
		return fmt.Errorf("restore %s: %w", rec.Artifact, err)
	}
	if err := os.Remove(m.recordPath(component, action)); err != nil && !os.IsNotExist(err) {
		logger.Warnf("rollback restored %s but could not clear record: %v", rec.Artifact, err)
	}
	m.Log("INFO", component, fmt.Sprintf("rolled back %s from %s", action, rec.Backup))
	return nil
}

// Components lists every component namespace with at least one record.
func (m *Manager) Components() []string {
	entries, err := os.ReadDir(m.stateDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Records returns all persisted records for one component.
func (m *Manager) Records(component string) map[string]models.ActionRecord {
	records := make(map[string]models.ActionRecord)
	dir := filepath.Join(m.stateDir, component)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return records
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		action := strings.TrimSuffix(name, ".json")
		if rec, ok := m.GetRecord(component, action); ok {
			records[action] = rec
		}
	}
	return records
}

// RecentBackups returns up to n vault entries, newest first.
func (m *Manager) RecentBackups(n int) []string {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return nil
	}
	type stamped struct {
		name string
		mod  time.Time
	}
	var backups []stamped
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".bak") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, stamped{e.Name(), info.ModTime()})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].mod.After(backups[j].mod) })
	var names []string
	for i, b := range backups {
		if i >= n {
			break
		}
		names = append(names, b.name)
	}
	return names
}

// LogTail returns the last n audit log lines.
func (m *Manager) LogTail(n int) []string {
	data, err := os.ReadFile(m.logPath)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

/**
 * Render a human readable report of tracked state
 * @returns {string} Formatted multi-section report
 * @description
 * - Lists every component's records with apply timestamps
 * - Shows the most recent vault entries and audit log tail
 */
func (m *Manager) PrintStatus() string {
	var b strings.Builder

	b.WriteString("=== Tracked state ===\n")
	components := m.Components()
	if len(components) == 0 {
		b.WriteString("no actions recorded\n")
	}
	for _, component := range components {
		records := m.Records(component)
		actions := make([]string, 0, len(records))
		for action := range records {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		for _, action := range actions {
			rec := records[action]
			fmt.Fprintf(&b, "%-10s %-28s applied %s  %s\n",
				component, action, rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Metadata)
		}
	}

	b.WriteString("\n=== Recent backups ===\n")
	backups := m.RecentBackups(10)
	if len(backups) == 0 {
		b.WriteString("no backups\n")
	}
	for _, name := range backups {
		b.WriteString(name + "\n")
	}

	b.WriteString("\n=== Log tail ===\n")
	tail := m.LogTail(20)
	if len(tail) == 0 {
		b.WriteString("log empty\n")
	}
	for _, line := range tail {
		b.WriteString(line + "\n")
	}
	return b.String()
}
