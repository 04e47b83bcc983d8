// Package result defines the shared outcome contract used by every helper
// operation in this module. An operation either completes and returns a
// success result carrying its payload, or detects a recoverable problem
// (bad input, missing file, external-tool failure) and returns a failure
// result carrying a human-readable message and zeroed payload fields.
// Programmer errors (nil receivers, impossible states) are still returned
// as plain Go errors and are documented at the call site.
package result

import "fmt"

// Status is the common part of every operation result. Result types in this
// module embed Status and add their operation-specific payload fields.
// On failure the payload fields must be left at their zero values; partial
// output from an external tool is never exposed as if it were valid.
type Status struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
}

// Ok returns a success Status with the given message.
func Ok(msg string) Status {
	return Status{Success: true, Msg: msg}
}

// Err returns a failure Status with a formatted message.
func Err(format string, args ...any) Status {
	return Status{Success: false, Msg: fmt.Sprintf(format, args...)}
}

// Succeeded implements Reporter.
func (s Status) Succeeded() bool { return s.Success }

// Message implements Reporter.
func (s Status) Message() string { return s.Msg }

// Reporter is implemented by result types produced by this module. The log
// stream uses it to infer a default category (INFO on success, ERROR on
// failure). Arbitrary caller data never implements Reporter, so inference
// only ever activates for results produced by this layer.
type Reporter interface {
	Succeeded() bool
	Message() string
}
