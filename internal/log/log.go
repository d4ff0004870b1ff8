// Copyright (c) nano Authors. All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package log is a small pluggable logger facade, used throughout the
// runtime instead of calling the standard log package directly so that a
// host application can redirect kernel diagnostics into its own logging
// pipeline.
package log

import (
	"log"
	"os"
)

// Logger is the minimal interface the runtime logs through.
type Logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}

var logger Logger = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

// SetLogger overrides the default logger.
func SetLogger(l Logger) {
	if l != nil {
		logger = l
	}
}

// Print logs at the default level.
func Print(v ...interface{}) { logger.Print(v...) }

// Printf logs at the default level with a format string.
func Printf(format string, v ...interface{}) { logger.Printf(format, v...) }

// Fatal logs and then halts the process. Reserved for programming-contract
// violations that cannot be safely recovered from (spec.md §7, "Fatal
// conditions").
func Fatal(v ...interface{}) { logger.Fatal(v...) }

// Fatalf logs and then halts the process, with a format string.
func Fatalf(format string, v ...interface{}) { logger.Fatalf(format, v...) }
