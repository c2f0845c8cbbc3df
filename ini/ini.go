// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package ini

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxLineLength is the longest line, including its terminator, that the
// functions in this package will process. This holds for a final line without
// a terminator too. Longer lines produce ErrLineTooLong.
const MaxLineLength = bufio.MaxScanTokenSize

var (
	// ErrNotFound is returned when the requested section or key is not present
	// in the file. A missing file is reported with an error that wraps
	// fs.ErrNotExist instead.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned when a path, section, key or value is empty
	// or cannot be represented in an INI file.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLineTooLong is returned when the file contains a line longer than
	// MaxLineLength.
	ErrLineTooLong = errors.New("line too long")
)

// GetString returns the value of the first property with the given key in
// the first section with the given name.
//
// GetString returns an error wrapping ErrNotFound if the section does not
// exist or the key does not appear in it before the next section header.
func GetString(path, section, key string) (string, error) {
	if err := checkArgs(path, section, key); err != nil {
		return "", fmt.Errorf("ini: get %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("ini: get %s: %w", path, err)
	}
	defer f.Close() // Close errors irrelevant for reads.
	v, err := lookup(f, section, key)
	if err != nil {
		return "", fmt.Errorf("ini: get %s: [%s] %s: %w", path, section, key, err)
	}
	return v, nil
}

// lookup scans r for the key in the named section.
func lookup(r io.Reader, section, key string) (string, error) {
	s := newLineScanner(r)
	marker := sectionMarker(section)
	lineno := 1
	found := false
	for ; s.Scan(); lineno++ {
		line := s.Bytes()
		if isSkippable(line) {
			continue
		}
		if string(trimEOL(line)) == marker {
			found = true
			lineno++
			break
		}
	}
	if !found {
		if err := scanErr(s, lineno); err != nil {
			return "", err
		}
		return "", fmt.Errorf("section %w", ErrNotFound)
	}
	for ; s.Scan(); lineno++ {
		line := s.Bytes()
		if isComment(line) {
			continue
		}
		if k, v, ok := splitKeyValue(line); ok && string(k) == key {
			return string(v), nil
		}
		if isSectionBoundary(line) {
			return "", fmt.Errorf("key %w", ErrNotFound)
		}
	}
	if err := scanErr(s, lineno); err != nil {
		return "", err
	}
	return "", fmt.Errorf("key %w", ErrNotFound)
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), MaxLineLength+1)
	s.Split(scanRawLines)
	return s
}

// scanErr reports the scanner's error, if any. bufio.ErrTooLong only occurs
// when scanRawLines has not already rejected the line.
func scanErr(s *bufio.Scanner, lineno int) error {
	err := s.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return fmt.Errorf("line %d: %w", lineno, ErrLineTooLong)
	}
	return fmt.Errorf("line %d: %w", lineno, err)
}

// scanRawLines is a bufio.SplitFunc like bufio.ScanLines, except that the
// returned token includes its line terminator.
func scanRawLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		if i+1 > MaxLineLength {
			return 0, nil, ErrLineTooLong
		}
		return i + 1, data[:i+1], nil
	}
	if len(data) > MaxLineLength {
		return 0, nil, ErrLineTooLong
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// eol returns the line terminator at the end of line, if any.
func eol(line []byte) []byte {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return line[len(line)-2:]
	case bytes.HasSuffix(line, []byte("\n")), bytes.HasSuffix(line, []byte("\r")):
		return line[len(line)-1:]
	default:
		return nil
	}
}

func trimEOL(line []byte) []byte {
	return line[:len(line)-len(eol(line))]
}

func isComment(line []byte) bool {
	return len(line) > 0 && (line[0] == ';' || line[0] == '#')
}

func isSkippable(line []byte) bool {
	return isComment(line) || len(trimEOL(line)) == 0
}

// isSectionBoundary reports whether line would start a new section.
func isSectionBoundary(line []byte) bool {
	return bytes.IndexByte(line, '[') >= 0 && bytes.IndexByte(line, ']') >= 0
}

// splitKeyValue splits a property line at its first equals sign. The value
// stops at the first carriage return or line feed.
func splitKeyValue(line []byte) (key, value []byte, ok bool) {
	i := bytes.IndexByte(line, '=')
	if i == -1 {
		return nil, nil, false
	}
	value = line[i+1:]
	if j := bytes.IndexAny(value, "\r\n"); j >= 0 {
		value = value[:j]
	}
	return line[:i], value, true
}

func sectionMarker(name string) string {
	return "[" + name + "]"
}

func checkArgs(path, section, key string) error {
	if path == "" {
		return fmt.Errorf("empty path: %w", ErrInvalidArgument)
	}
	if !IsValidSection(section) {
		return fmt.Errorf("section %q: %w", section, ErrInvalidArgument)
	}
	if !IsValidKey(key) {
		return fmt.Errorf("key %q: %w", key, ErrInvalidArgument)
	}
	return nil
}

// IsValidSection reports whether a string can be used as a section name.
func IsValidSection(name string) bool {
	return name != "" && !strings.ContainsAny(name, "[]\r\n")
}

// IsValidKey reports whether a string can be used as a property key. A key
// must not be empty, contain an equals sign or line break, start like a
// comment, or contain both square brackets.
func IsValidKey(key string) bool {
	if key == "" {
		return false
	}
	if key[0] == ';' || key[0] == '#' {
		return false
	}
	if strings.ContainsAny(key, "=\r\n") {
		return false
	}
	return !(strings.ContainsRune(key, '[') && strings.ContainsRune(key, ']'))
}

// IsValidValue reports whether a string can be stored as a property value.
// Values are written verbatim, so they must not contain line breaks.
func IsValidValue(value string) bool {
	return !strings.ContainsAny(value, "\r\n")
}
