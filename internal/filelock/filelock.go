// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package filelock provides non-blocking advisory file locks.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyLocked indicates the lock is currently held by another process.
var ErrAlreadyLocked = errors.New("already locked")

// Lock is a held file lock.
type Lock struct{ file *os.File }

// Acquire obtains a non-blocking exclusive lock on path and records the
// current process ID in it. If another process holds the lock, the returned
// error wraps [ErrAlreadyLocked] and names the holder.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder, _ := os.ReadFile(path)
		if closeErr := f.Close(); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			if h := strings.TrimSpace(string(holder)); h != "" {
				return nil, fmt.Errorf("%s: %w by %s", path, ErrAlreadyLocked, h)
			}
			return nil, fmt.Errorf("%s: %w", path, ErrAlreadyLocked)
		}
		return nil, err
	}

	l := &Lock{file: f}
	if err := l.writePID(); err != nil {
		return nil, errors.Join(err, l.Release())
	}
	return l, nil
}

func (l *Lock) writePID() error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	_, err := l.file.WriteAt([]byte("pid="+strconv.Itoa(os.Getpid())+"\n"), 0)
	return err
}

// Release releases the lock. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		return errors.Join(err, l.file.Close())
	}
	return l.file.Close()
}
