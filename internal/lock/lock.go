// Package lock serializes umu-setup runs against one install directory with an advisory file lock.
package lock

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/messages"
)

// ErrTimeout reports that another process held the lock for longer than the wait timeout.
var ErrTimeout = errors.New(messages.LockTimeout)

type fileLock struct {
	file *os.File
}

var flockFn = unix.Flock
var lockSleep = time.Sleep

var (
	lockWaitTimeout = 30 * time.Second
	lockPollEvery   = 100 * time.Millisecond
)

// PathFor returns the lock file guarding installDir. It sits next to the directory, not inside it,
// so an otherwise empty install directory still reads as empty.
func PathFor(installDir string) string {
	return installDir + ".lock"
}

// With acquires an exclusive lock on path, runs fn, and releases the lock.
// log may be nil; when set, a console line is printed once if the lock is contended.
func With(path string, log *logging.Logger, fn func() error) error {
	lock, err := acquire(path, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.release()
	}()
	return fn()
}

// acquire opens or creates path and acquires an exclusive lock.
func acquire(path string, log *logging.Logger) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf(messages.LockOpenFmt, path, err)
	}
	if err := lockFile(file, log); err != nil {
		_ = file.Close()
		if errors.Is(err, ErrTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf(messages.LockFmt, path, err)
	}
	return &fileLock{file: file}, nil
}

// release unlocks and closes the file lock.
func (l *fileLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := flockFn(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}

// lockFile polls for an exclusive advisory lock until lockWaitTimeout elapses.
func lockFile(file *os.File, log *logging.Logger) error {
	deadline := time.Now().Add(lockWaitTimeout)
	announced := false
	for {
		err := flockFn(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf(messages.LockTimeoutFmt, ErrTimeout, file.Name(), lockWaitTimeout)
		}
		if !announced && log != nil {
			log.Consolef(messages.LockWaitingFmt, file.Name())
			announced = true
		}
		lockSleep(lockPollEvery)
	}
}
