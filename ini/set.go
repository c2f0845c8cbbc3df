// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package ini

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SetString replaces the value of the first property with the given key in
// the first section with the given name. The rest of the file is preserved
// byte-for-byte, including the replaced line's terminator.
//
// The new content is written to a temporary file in the same directory, which
// is then renamed over path. If the section or key does not exist, SetString
// returns an error wrapping ErrNotFound and the file is left untouched. The
// temporary file never outlives the call. If path is a symbolic link, the file
// it refers to is replaced and the link itself is kept.
func SetString(path, section, key, value string) error {
	if err := checkArgs(path, section, key); err != nil {
		return fmt.Errorf("ini: set %s: %w", path, err)
	}
	if !IsValidValue(value) {
		return fmt.Errorf("ini: set %s: value %q: %w", path, value, ErrInvalidArgument)
	}
	if err := replaceFile(path, section, key, value); err != nil {
		return fmt.Errorf("ini: set %s: %w", path, err)
	}
	return nil
}

func replaceFile(path, section, key, value string) (err error) {
	path, err = filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close() // Close errors irrelevant for reads.
	info, err := src.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return err
	}

	w := bufio.NewWriter(tmp)
	if err := rewrite(w, src, section, key, value); err != nil {
		return fmt.Errorf("[%s] %s: %w", section, key, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Progress of rewrite through the source file.
const (
	seekingSection = iota
	seekingKey
	replaced
)

// rewrite copies r to w, replacing the value of the first matching property.
// It returns an error wrapping ErrNotFound if no property was replaced.
func rewrite(w io.Writer, r io.Reader, section, key, value string) error {
	s := newLineScanner(r)
	marker := sectionMarker(section)
	state := seekingSection
	lineno := 1
	for ; s.Scan(); lineno++ {
		line := s.Bytes()
		switch state {
		case seekingSection:
			if !isSkippable(line) && string(trimEOL(line)) == marker {
				state = seekingKey
			}
		case seekingKey:
			if isComment(line) {
				break
			}
			if k, _, ok := splitKeyValue(line); ok && string(k) == key {
				line = replaceValue(line, len(k), value)
				state = replaced
				break
			}
			if isSectionBoundary(line) {
				return fmt.Errorf("key %w", ErrNotFound)
			}
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	if err := scanErr(s, lineno); err != nil {
		return err
	}
	switch state {
	case seekingSection:
		return fmt.Errorf("section %w", ErrNotFound)
	case seekingKey:
		return fmt.Errorf("key %w", ErrNotFound)
	}
	return nil
}

// replaceValue returns a new line made of the first keyLen bytes of line, an
// equals sign, the value and line's original terminator.
func replaceValue(line []byte, keyLen int, value string) []byte {
	term := eol(line)
	buf := make([]byte, 0, keyLen+1+len(value)+len(term))
	buf = append(buf, line[:keyLen]...)
	buf = append(buf, '=')
	buf = append(buf, value...)
	buf = append(buf, term...)
	return buf
}
