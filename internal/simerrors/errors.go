// Package simerrors provides standardized error messaging for memsim.
package simerrors

import (
	"fmt"
	"runtime"
)

// Category classifies an error per the simulator's error taxonomy.
type Category string

const (
	CategoryConfig     Category = "CONFIG"     // InvalidConfig: bad CLI value or inconsistent geometry
	CategoryIO         Category = "IO"         // IOError: trace file not openable/readable
	CategoryTrace      Category = "TRACE"      // MalformedTrace: unparsable record, recovered at stream boundary
	CategoryAllocation Category = "ALLOCATION" // AllocationFailure: fatal, aborts the run
)

// SimError is a standardized, categorized error.
type SimError struct {
	Category Category
	Message  string
	Caller   string
}

func (e *SimError) Error() string {
	return fmt.Sprintf("[%s] %s (at %s)", e.Category, e.Message, e.Caller)
}

func newError(category Category, format string, args ...interface{}) *SimError {
	pc, _, _, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &SimError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Caller:   caller,
	}
}

// InvalidConfigf reports a configuration validation failure.
func InvalidConfigf(format string, args ...interface{}) *SimError {
	return newError(CategoryConfig, format, args...)
}

// IOErrorf reports a trace file that could not be opened or read.
func IOErrorf(format string, args ...interface{}) *SimError {
	return newError(CategoryIO, format, args...)
}

// MalformedTracef reports a record that failed to parse.
func MalformedTracef(format string, args ...interface{}) *SimError {
	return newError(CategoryTrace, format, args...)
}

// AllocationFailuref reports a fatal allocation failure.
func AllocationFailuref(format string, args ...interface{}) *SimError {
	return newError(CategoryAllocation, format, args...)
}

// IsCategory reports whether err is a *SimError of the given category.
func IsCategory(err error, category Category) bool {
	se, ok := err.(*SimError)
	return ok && se.Category == category
}
