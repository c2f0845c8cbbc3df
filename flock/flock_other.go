// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd || windows)

package flock

import (
	"errors"
	"os"
)

func lockFile(f *os.File, mode Mode, block bool) error {
	return errors.ErrUnsupported
}

func unlockFile(f *os.File) error {
	return errors.ErrUnsupported
}
