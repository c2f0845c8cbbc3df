// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package flock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zombiezen.com/go/log/testlog"
)

func newTestPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.ini")
	l, err := TryAcquire(path, Shared)
	if errors.Is(err, errors.ErrUnsupported) {
		t.Skip("file locking not supported on this platform")
	}
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExclusiveConflicts(t *testing.T) {
	path := newTestPath(t)
	l, err := Acquire(path, Exclusive)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	for _, mode := range []Mode{Shared, Exclusive} {
		if l2, err := TryAcquire(path, mode); !errors.Is(err, ErrLocked) {
			l2.Release()
			t.Errorf("TryAcquire(path, %v) while exclusively locked = _, %v; want %v", mode, err, ErrLocked)
		}
	}

	if err := l.Release(); err != nil {
		t.Fatal("Release:", err)
	}
	l2, err := TryAcquire(path, Exclusive)
	if err != nil {
		t.Fatal("TryAcquire after Release:", err)
	}
	if err := l2.Release(); err != nil {
		t.Error("Release:", err)
	}
}

func TestSharedLocksCoexist(t *testing.T) {
	path := newTestPath(t)
	l1, err := TryAcquire(path, Shared)
	if err != nil {
		t.Fatal(err)
	}
	defer l1.Release()
	l2, err := TryAcquire(path, Shared)
	if err != nil {
		t.Fatal("second shared lock:", err)
	}
	defer l2.Release()
	if l3, err := TryAcquire(path, Exclusive); !errors.Is(err, ErrLocked) {
		l3.Release()
		t.Errorf("TryAcquire(path, Exclusive) while shared locks held = _, %v; want %v", err, ErrLocked)
	}
}

func TestReleaseTwice(t *testing.T) {
	path := newTestPath(t)
	l, err := Acquire(path, Exclusive)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release = %v; want <nil>", err)
	}
	if _, err := os.Stat(Path(path)); err != nil {
		t.Errorf("lock file: %v", err)
	}
}

func TestDo(t *testing.T) {
	t.Run("Unlocked", func(t *testing.T) {
		ctx := testlog.WithTB(context.Background(), t)
		path := newTestPath(t)
		called := false
		err := Do(ctx, path, Exclusive, constBackoff(time.Millisecond), func() error {
			called = true
			if l, err := TryAcquire(path, Shared); !errors.Is(err, ErrLocked) {
				l.Release()
				t.Errorf("TryAcquire inside Do = _, %v; want %v", err, ErrLocked)
			}
			return nil
		})
		if err != nil {
			t.Error("Do:", err)
		}
		if !called {
			t.Error("f not called")
		}
		l, err := TryAcquire(path, Exclusive)
		if err != nil {
			t.Fatal("lock still held after Do:", err)
		}
		l.Release()
	})

	t.Run("ReturnsError", func(t *testing.T) {
		ctx := testlog.WithTB(context.Background(), t)
		path := newTestPath(t)
		want := errors.New("bork")
		if got := Do(ctx, path, Shared, constBackoff(time.Millisecond), func() error { return want }); got != want {
			t.Errorf("Do = %v; want %v", got, want)
		}
	})

	t.Run("WaitsForRelease", func(t *testing.T) {
		ctx := testlog.WithTB(context.Background(), t)
		path := newTestPath(t)
		held, err := Acquire(path, Exclusive)
		if err != nil {
			t.Fatal(err)
		}
		timer := time.AfterFunc(20*time.Millisecond, func() { held.Release() })
		defer timer.Stop()
		called := false
		err = Do(ctx, path, Exclusive, constBackoff(5*time.Millisecond), func() error {
			called = true
			return nil
		})
		if err != nil {
			t.Error("Do:", err)
		}
		if !called {
			t.Error("f not called")
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(testlog.WithTB(context.Background(), t), 20*time.Millisecond)
		defer cancel()
		path := newTestPath(t)
		held, err := Acquire(path, Exclusive)
		if err != nil {
			t.Fatal(err)
		}
		defer held.Release()
		err = Do(ctx, path, Shared, constBackoff(5*time.Millisecond), func() error {
			t.Error("f called while lock held")
			return nil
		})
		if !errors.Is(err, ErrLocked) {
			t.Errorf("Do = %v; want %v", err, ErrLocked)
		}
	})
}

type constBackoff time.Duration

func (b constBackoff) Duration() time.Duration {
	return time.Duration(b)
}

func TestMain(m *testing.M) {
	testlog.Main(nil)
	os.Exit(m.Run())
}
