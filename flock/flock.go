// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package flock provides advisory file locks for coordinating access to a
// file between processes.
//
// Locks are taken on a sidecar file next to the protected file, named by
// appending ".lock". The protected file itself is never locked, since writers
// that replace it by renaming would leave other processes holding a lock on
// the old file. The sidecar is never removed.
package flock

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/yourbase/iniedit/retry"
)

// Mode is the kind of lock to acquire.
type Mode int

// Lock modes.
const (
	// Shared locks may be held by any number of processes at once, as long as
	// no process holds an Exclusive lock.
	Shared Mode = iota
	// Exclusive locks may only be held by one process at a time.
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ErrLocked is returned by TryAcquire when another process holds a
// conflicting lock.
var ErrLocked = errors.New("file is locked")

// A Lock is a held advisory lock.
type Lock struct {
	f *os.File
}

// Path returns the name of the sidecar file used to lock path.
func Path(path string) string {
	return path + ".lock"
}

// Acquire blocks until it obtains a lock on path.
func Acquire(path string, mode Mode) (*Lock, error) {
	return acquire(path, mode, true)
}

// TryAcquire obtains a lock on path without blocking. If a conflicting lock is
// held, TryAcquire returns an error wrapping ErrLocked.
func TryAcquire(path string, mode Mode) (*Lock, error) {
	return acquire(path, mode, false)
}

func acquire(path string, mode Mode, block bool) (*Lock, error) {
	f, err := os.OpenFile(Path(path), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("flock: %w", err)
	}
	if err := lockFile(f, mode, block); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock: %s lock %s: %w", mode, f.Name(), err)
	}
	return &Lock{f: f}, nil
}

// Release releases the lock. Calling Release more than once is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if closeErr := l.f.Close(); err == nil {
		err = closeErr
	}
	l.f = nil
	if err != nil {
		return fmt.Errorf("flock: release: %w", err)
	}
	return nil
}

// Do acquires a lock on path, calls f, and releases the lock. While another
// process holds a conflicting lock, Do retries using the given strategy until
// the Context is Done, in which case it returns an error wrapping ErrLocked.
func Do(ctx context.Context, path string, mode Mode, strategy retry.BackoffStrategy, f func() error) error {
	var l *Lock
	err := retry.Do(ctx, "locking "+path, strategy, func() error {
		var err error
		l, err = TryAcquire(path, mode)
		if err != nil && !errors.Is(err, ErrLocked) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return err
	}
	err = f()
	if releaseErr := l.Release(); err == nil {
		err = releaseErr
	}
	return err
}
