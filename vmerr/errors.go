// Copyright (C) 2026 tinystalk Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package vmerr implements the VM's error taxonomy: fatal VM errors,
// compile errors/warnings, and the helpers that report them.
package vmerr

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// Sentinel fatal errors: object-table overflow, negative
// refcount, index out of range, image corruption. These indicate bugs;
// there is no recovery path.
var (
	ErrImageCorrupt    = errors.New("image corrupt")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrOutOfObjects    = errors.New("out of objects")
)

// FatalError is a two-fragment fatal diagnostic.
type FatalError struct {
	Tag    string
	Detail string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tag, e.Detail)
}

// Reporter prints fatal diagnostics and compile errors/warnings to a
// *log.Logger, constructed with log.New(os.Stderr, "", log.Lshortfile)
// and threaded explicitly rather than using the package-level default.
type Reporter struct {
	log *log.Logger
	// Abort is called after a fatal error is reported. Defaults to
	// os.Exit(1); tests substitute a function that instead panics or
	// records the call so they can assert on it without exiting the
	// test binary.
	Abort func()
}

// NewReporter builds a Reporter that writes to logger (one on os.Stderr in
// production).
func NewReporter(logger *log.Logger) *Reporter {
	return &Reporter{log: logger, Abort: func() { os.Exit(1) }}
}

// DefaultLogger builds the *log.Logger every VM entry point constructs
// when the caller has no logger of its own to thread in.
func DefaultLogger() *log.Logger {
	return log.New(os.Stderr, "", log.Lshortfile)
}

// Fatal reports a fatal VM error and aborts. tag and detail are the two
// diagnostic fragments printed together.
func (r *Reporter) Fatal(tag, detail string) {
	r.log.Printf("fatal: %s: %s", tag, detail)
	r.Abort()
}

// Warn reports a compile warning.
func (r *Reporter) Warn(selector, message string) {
	r.log.Printf("warning: %s: %s", selector, message)
}

// CompileError is collected by the compiler as (selector, message, detail).
// The containing method is still emitted, with its bytecodes slot nil.
type CompileError struct {
	Selector string
	Message  string
	Detail   string
}

func (e *CompileError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Selector, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Selector, e.Message, e.Detail)
}

// ReportCompileError logs a CompileError without aborting.
func (r *Reporter) ReportCompileError(e *CompileError) {
	r.log.Printf("compile error: %s", e.Error())
}
