// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

/*
Package ini reads and updates single values in INI files.
See https://en.wikipedia.org/wiki/INI_file.

This package is specifically designed for editing one property at a time
without loading the file into memory: reads stream the file line by line and
stop at the first match, and writes copy the file line by line into a
temporary sibling, replacing exactly one line, before renaming the copy over
the original. Every other byte of the file, including comments, blank lines,
ordering and line endings, is preserved.

Syntax

An INI file is a sequence of lines terminated by "\n" or "\r\n". The last line
may be unterminated. Each line is one of:

	; a comment (first byte ';' or '#')
	[section]
	key=value

or a blank line. A property belongs to the most recent section header. A
section ends at the next line that contains both '[' and ']', or at the end of
the file. Properties before the first section header are never matched.

A property's key is every byte before the first equals sign ('='), and its
value is every byte after it up to the end of the line. No white space is
trimmed, no quoting or escapes are recognized, and section headers must match
exactly:

	[server]
	host=localhost
	port=8080

Repeated names

If a section name appears more than once, only its first occurrence is
searched. If a key appears more than once in that section, the first
occurrence wins for both reads and writes.

Concurrency

Functions in this package do not synchronize access to the files they operate
on. Callers that share a file across processes should hold the advisory lock
provided by package github.com/yourbase/iniedit/flock for the duration of
each call.
*/
package ini
