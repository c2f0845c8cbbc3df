// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package iniwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/yourbase/iniedit/ini"
	"zombiezen.com/go/log/testlog"
)

const changeTimeout = 5 * time.Second

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(testlog.WithTB(context.Background(), t))
	defer cancel()
	path := filepath.Join(t.TempDir(), "app.ini")
	if err := os.WriteFile(path, []byte("[server]\nhost=localhost\nport=8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan Change, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, "server", "port", func(c Change) {
			changes <- c
		})
	}()
	next := func() Change {
		t.Helper()
		select {
		case c := <-changes:
			return c
		case err := <-done:
			t.Fatal("Watch returned early:", err)
		case <-time.After(changeTimeout):
			t.Fatal("timed out waiting for change")
		}
		panic("unreachable")
	}

	if diff := cmp.Diff(Change{Value: "8080", Found: true}, next()); diff != "" {
		t.Errorf("initial change (-want +got):\n%s", diff)
	}

	if err := ini.SetString(path, "server", "port", "9090"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Change{Value: "9090", Found: true}, next()); diff != "" {
		t.Errorf("after SetString (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(path, []byte("[server]\nhost=localhost\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Change{}, next()); diff != "" {
		t.Errorf("after removing key (-want +got):\n%s", diff)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Error("Watch:", err)
		}
	case <-time.After(changeTimeout):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchInvalidArgument(t *testing.T) {
	ctx := testlog.WithTB(context.Background(), t)
	path := filepath.Join(t.TempDir(), "app.ini")
	err := Watch(ctx, path, "", "port", func(Change) {
		t.Error("fn called")
	})
	if !errors.Is(err, ini.ErrInvalidArgument) {
		t.Errorf("Watch(...) = %v; want %v", err, ini.ErrInvalidArgument)
	}
}

func TestMain(m *testing.M) {
	testlog.Main(nil)
	os.Exit(m.Run())
}
