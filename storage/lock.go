package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// InstanceLock marks a data directory as in use by one mdpilot process.
// Lock file: <data_dir>/mdpilot.lock, holding the PID of the owner.
type InstanceLock struct {
	path string
}

func NewInstanceLock(dataDir string) *InstanceLock {
	return &InstanceLock{path: filepath.Join(dataDir, "mdpilot.lock")}
}

// Acquire writes the current PID into the lock file.
func (l *InstanceLock) Acquire() error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(l.path, []byte(pid), 0600); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// Release removes the lock file if this process owns it.
func (l *InstanceLock) Release() error {
	pid, ok, err := l.owner()
	if err != nil || !ok || pid != os.Getpid() {
		return err
	}
	err = os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Check reports whether another process holds the lock. Stale or invalid
// lock files are removed.
func (l *InstanceLock) Check() (bool, int, error) {
	pid, ok, err := l.owner()
	if err != nil || !ok {
		return false, 0, err
	}
	if pid == os.Getpid() {
		return false, 0, nil
	}

	// os.FindProcess always succeeds on Unix, so this only catches stale
	// locks on Windows.
	if _, err := os.FindProcess(pid); err != nil {
		_ = os.Remove(l.path)
		return false, 0, nil
	}

	return true, pid, nil
}

func (l *InstanceLock) owner() (int, bool, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(l.path)
		return 0, false, nil
	}
	return pid, true, nil
}
