// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

package ini

import (
	"fmt"
	"math"
	"strconv"
)

// GetInt returns the value of a property as a decimal integer. Like C's atoi,
// it skips leading white space, accepts an optional sign, and then reads
// digits up to the first non-digit byte: a value like "abc" reads as 0 without
// error. Values out of range are clamped to math.MinInt or math.MaxInt.
// GetInt fails exactly when GetString fails.
func GetInt(path, section, key string) (int, error) {
	v, err := GetString(path, section, key)
	if err != nil {
		return 0, err
	}
	return atoi(v), nil
}

// SetInt sets the value of a property to the decimal form of n.
// See SetString for details.
func SetInt(path, section, key string, n int) error {
	return SetString(path, section, key, strconv.Itoa(n))
}

// GetBool returns the value of a property as a boolean. It accepts the same
// strings as strconv.ParseBool and, unlike GetInt, returns an error for any
// other value.
func GetBool(path, section, key string) (bool, error) {
	v, err := GetString(path, section, key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("ini: get %s: [%s] %s: %w", path, section, key, err)
	}
	return b, nil
}

// SetBool sets the value of a property to "true" or "false".
func SetBool(path, section, key string, b bool) error {
	return SetString(path, section, key, strconv.FormatBool(b))
}

func atoi(s string) int {
	i := 0
	for i < len(s) && isCSpace(s[i]) {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digitStart := i
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		i++
	}
	if i == digitStart {
		return 0
	}
	n, err := strconv.ParseInt(s[start:i], 10, strconv.IntSize)
	if err != nil {
		// Only range errors are possible here.
		if s[start] == '-' {
			return math.MinInt
		}
		return math.MaxInt
	}
	return int(n)
}

func isCSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}
