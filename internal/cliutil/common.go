// Package cliutil provides shared plumbing for memsim's command-line tools.
package cliutil

import (
	"fmt"
	"os"
	"time"
)

// Logger provides structured logging for CLI tools.
type Logger struct {
	Verbose   bool
	DebugMode bool
}

// NewLogger creates a new logger instance.
func NewLogger(verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose, DebugMode: debug}
}

// Info logs an info message, gated on Verbose.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Verbose {
		fmt.Printf("[INFO] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	}
}

// Debug logs a debug message, gated on DebugMode.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.DebugMode {
		fmt.Printf("[DEBUG] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	}
}

// Warn always logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// Error always logs an error.
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] %s: %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// ExitWithError prints a usage-style error to stderr and exits with code 1,
// matching the CLI surface's "exit code 1 on any configuration validation
// failure" contract.
func ExitWithError(usage string, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "memsim: "+format+"\n", args...)
	if usage != "" {
		fmt.Fprintln(os.Stderr, usage)
	}
	os.Exit(1)
}
