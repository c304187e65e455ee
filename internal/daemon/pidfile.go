package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PIDFile records the process id of the running watcher next to its lock.
type PIDFile struct {
	path string
}

func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

func (p *PIDFile) Write() error {
	if info, err := os.Lstat(p.path); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("PID file %s is a symlink", p.path)
		}
		os.Remove(p.path)
	}

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer f.Close()

	_, err = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	return err
}

// Read returns 0 without error when no PID file exists.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}

	pid, err := strconv.Atoi(content)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", p.path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID %d in %s", pid, p.path)
	}

	return pid, nil
}

// Owner returns the recorded PID if that process is still alive, else 0.
func (p *PIDFile) Owner() int {
	pid, err := p.Read()
	if err != nil || pid == 0 {
		return 0
	}
	if !processExists(pid) {
		return 0
	}
	return pid
}

func (p *PIDFile) Remove() error {
	info, err := os.Lstat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to remove PID file %s: is a symlink", p.path)
	}
	return os.Remove(p.path)
}

func (p *PIDFile) Path() string {
	return p.path
}
