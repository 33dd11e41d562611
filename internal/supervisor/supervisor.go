package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/feishu-sync/feishu-sync/internal/utils"
)

var (
	ErrAlreadyRunning = errors.New("supervisor: worker already running")
	ErrNotRunning     = errors.New("supervisor: worker not running")
)

// Supervisor starts named workers detached from the calling terminal and
// tracks them through pid files, so `start`, `stop` and `status` work across
// separate invocations of the CLI.
type Supervisor struct {
	runDir string
	logDir string
}

func New(baseDir string) *Supervisor {
	return &Supervisor{
		runDir: filepath.Join(baseDir, "run"),
		logDir: filepath.Join(baseDir, "log"),
	}
}

// Start launches a worker in its own session with output redirected to its
// log file, records the pid, and returns it. The worker outlives this
// process.
func (s *Supervisor) Start(name, command string, args ...string) (int, error) {
	if pid, running := s.liveWorker(name); running {
		return pid, ErrAlreadyRunning
	}

	if err := utils.EnsureDir(s.runDir); err != nil {
		return 0, err
	}
	if err := utils.EnsureDir(s.logDir); err != nil {
		return 0, err
	}

	logFile, err := os.OpenFile(s.logPath(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open worker log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(command, args...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = detachedSysProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start worker %s: %w", name, err)
	}
	pid := cmd.Process.Pid

	if err := os.WriteFile(s.pidPath(name), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return pid, fmt.Errorf("record worker pid: %w", err)
	}
	// the worker is on its own, don't hold a handle to it
	if err := cmd.Process.Release(); err != nil {
		return pid, err
	}
	return pid, nil
}

// Stop terminates a worker: SIGTERM first, SIGKILL after a grace period.
func (s *Supervisor) Stop(name string) error {
	pid, running := s.liveWorker(name)
	if !running {
		s.clearPid(name)
		return ErrNotRunning
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		s.clearPid(name)
		return ErrNotRunning
	}

	if err := proc.Terminate(); err != nil {
		return fmt.Errorf("terminate worker %s (pid %d): %w", name, pid, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if exists, _ := process.PidExists(int32(pid)); !exists {
			s.clearPid(name)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill worker %s (pid %d): %w", name, pid, err)
	}
	s.clearPid(name)
	return nil
}

// Status reports whether a worker is alive and its pid when it is.
func (s *Supervisor) Status(name string) (int, bool) {
	return s.liveWorker(name)
}

// LogPath returns where a worker's output lands.
func (s *Supervisor) LogPath(name string) string {
	return s.logPath(name)
}

func (s *Supervisor) pidPath(name string) string {
	return filepath.Join(s.runDir, name+".pid")
}

func (s *Supervisor) logPath(name string) string {
	return filepath.Join(s.logDir, name+".log")
}

func (s *Supervisor) clearPid(name string) {
	os.Remove(s.pidPath(name))
}

// liveWorker reads the pid file and checks the process still exists. A
// stale pid file counts as not running.
func (s *Supervisor) liveWorker(name string) (int, bool) {
	data, err := os.ReadFile(s.pidPath(name))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		return 0, false
	}
	return pid, true
}
