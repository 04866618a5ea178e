package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"repowatch/internal/errors"
)

func TestPIDFile_IsRunning(t *testing.T) {
	tests := []struct {
		name        string
		content     *string
		wantRunning bool
	}{
		{name: "no file"},
		{name: "garbage", content: strPtr("not-a-pid\n")},
		{name: "negative", content: strPtr("-4\n")},
		{name: "self", content: strPtr(strconv.Itoa(os.Getpid()) + "\n"), wantRunning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "repowatch.pid")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}

			running, _, err := NewPIDFile(path).IsRunning()
			if err != nil {
				t.Fatalf("IsRunning() error = %v", err)
			}
			if running != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", running, tt.wantRunning)
			}
		})
	}
}

func TestPIDFile_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repowatch.pid")
	p := NewPIDFile(path)

	if err := p.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	pid, err := p.GetPID()
	if err != nil || pid != os.Getpid() {
		t.Fatalf("GetPID() = %d, %v; want %d", pid, err, os.Getpid())
	}

	// Re-acquiring from the owning process is allowed
	if err := p.Acquire(); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}

	if err := p.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("PID file still present after Release")
	}
}

func TestPIDFile_ReplacesStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repowatch.pid")
	if err := os.WriteFile(path, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewPIDFile(path).Acquire(); err != nil {
		t.Fatalf("Acquire() over stale file error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Errorf("PID file = %q", data)
	}
}

func TestPIDFile_ReleaseLeavesForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repowatch.pid")
	if err := os.WriteFile(path, []byte("1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewPIDFile(path).Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Release() removed a file owned by another process")
	}
}

func TestSchedulerRunningCode(t *testing.T) {
	err := errors.Newf(errors.SchedulerRunning, "scheduler already running (PID: %d)", 1)
	if !errors.Is(err, errors.SchedulerRunning) {
		t.Errorf("errors.Is(SchedulerRunning) = false")
	}
	if errors.GetRemedy(err) == "" {
		t.Errorf("SchedulerRunning has no remedy")
	}
}

func strPtr(s string) *string { return &s }
