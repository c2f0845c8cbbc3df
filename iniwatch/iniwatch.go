// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// Package iniwatch reports changes to a single property of an INI file.
package iniwatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/yourbase/iniedit/ini"
	"zombiezen.com/go/log"
)

// A Change is the state of a watched property after the file changed.
type Change struct {
	// Value is the property's value. It is empty if Found is false.
	Value string
	// Found reports whether the section and key were present.
	Found bool
	// Err is any error other than ini.ErrNotFound encountered while reading
	// the file, such as the file being missing.
	Err error
}

func (c Change) equal(c2 Change) bool {
	if c.Value != c2.Value || c.Found != c2.Found || (c.Err == nil) != (c2.Err == nil) {
		return false
	}
	return c.Err == nil || c.Err.Error() == c2.Err.Error()
}

// Watch calls fn with the current state of the property and then again every
// time the property's value or presence changes, until the Context is Done.
// Watch observes the file's directory so that files replaced by renaming
// (as ini.SetString does) continue to be watched.
//
// Watch returns nil once the Context is Done, or an error if the watch could
// not be established or failed.
func Watch(ctx context.Context, path, section, key string, fn func(Change)) error {
	if !ini.IsValidSection(section) || !ini.IsValidKey(key) {
		return fmt.Errorf("watch %s: [%s] %s: %w", path, section, key, ini.ErrInvalidArgument)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	log.Debugf(ctx, "Watching %s for [%s] %s", target, section, key)

	last := read(target, section, key)
	fn(last)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("watch %s: watcher closed", path)
			}
			if filepath.Clean(ev.Name) != target || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debugf(ctx, "%v", ev)
			c := read(target, section, key)
			if c.equal(last) {
				continue
			}
			last = c
			fn(c)
		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("watch %s: watcher closed", path)
			}
			return fmt.Errorf("watch %s: %w", path, err)
		case <-ctx.Done():
			return nil
		}
	}
}

func read(path, section, key string) Change {
	v, err := ini.GetString(path, section, key)
	switch {
	case err == nil:
		return Change{Value: v, Found: true}
	case errors.Is(err, ini.ErrNotFound):
		return Change{}
	default:
		return Change{Err: err}
	}
}
