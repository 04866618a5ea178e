// Package daemon guards the data directory against two schedulers running
// at once.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"repowatch/internal/errors"
)

// PIDFile records the process that owns the scheduler for a data directory
type PIDFile struct {
	path string
}

// NewPIDFile creates a new PID file manager
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the file location
func (p *PIDFile) Path() string {
	return p.path
}

// Acquire writes the current process ID. It fails when a live process
// already holds the file; a stale file is replaced.
func (p *PIDFile) Acquire() error {
	running, pid, err := p.IsRunning()
	if err != nil {
		return err
	}
	if running && pid != os.Getpid() {
		return errors.Newf(errors.SchedulerRunning, "scheduler already running (PID: %d)", pid)
	}

	content := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(p.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release removes the file if this process still owns it
func (p *PIDFile) Release() error {
	pid, err := p.GetPID()
	if err != nil || pid != os.Getpid() {
		return nil //nolint:nilerr // someone else's or unreadable file is left alone
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning reports whether the recorded process is alive.
// Returns (running, pid, error)
func (p *PIDFile) IsRunning() (bool, int, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false, 0, nil //nolint:nilerr // garbage content counts as stale
	}
	return processExists(pid), pid, nil
}

// GetPID returns the PID from the file, or 0 if not found
func (p *PIDFile) GetPID() (int, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processExists checks if a process with the given PID exists
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes without delivering anything
	return process.Signal(syscall.Signal(0)) == nil
}
