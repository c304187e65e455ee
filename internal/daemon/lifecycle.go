package daemon

import (
	"errors"
	"fmt"
)

// AlreadyRunningError reports the watcher that owns the instance lock.
type AlreadyRunningError struct {
	PID  int
	Lock string
}

func (e *AlreadyRunningError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("another watcher (pid %d) already holds %s", e.PID, e.Lock)
	}
	return fmt.Sprintf("another watcher already holds %s", e.Lock)
}

func (e *AlreadyRunningError) Unwrap() error {
	return ErrLockHeld
}

// LifecycleManager owns the files that mark a running watcher: the instance
// lock, the pid file and the control socket path.
type LifecycleManager struct {
	lockFile   *LockFile
	pidFile    *PIDFile
	socketPath string
}

func NewLifecycleManager(lockPath, pidPath, socketPath string) *LifecycleManager {
	return &LifecycleManager{
		lockFile:   NewLockFile(lockPath),
		pidFile:    NewPIDFile(pidPath),
		socketPath: socketPath,
	}
}

func (lm *LifecycleManager) AcquireInstanceLock() error {
	if err := lm.lockFile.Acquire(); err != nil {
		if errors.Is(err, ErrLockHeld) {
			return &AlreadyRunningError{PID: lm.pidFile.Owner(), Lock: lm.lockFile.Path()}
		}
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	return nil
}

func (lm *LifecycleManager) RegisterRunning() error {
	return lm.pidFile.Write()
}

func (lm *LifecycleManager) Cleanup() {
	if err := lm.pidFile.Remove(); err != nil {
		log.Warn("failed to remove pid file", "path", lm.pidFile.Path(), "error", err)
	}
	if err := lm.lockFile.Release(); err != nil {
		log.Warn("failed to release lock", "path", lm.lockFile.Path(), "error", err)
	}
}

func (lm *LifecycleManager) SocketPath() string {
	return lm.socketPath
}
