package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// GitCommandFailed indicates a git subprocess exited non-zero
	GitCommandFailed ErrorCode = "GIT_COMMAND_FAILED"
	// GitTimeout indicates a git subprocess exceeded its deadline
	GitTimeout ErrorCode = "GIT_TIMEOUT"
	// RepoUnreadable indicates the repository cannot be read at all
	RepoUnreadable ErrorCode = "REPO_UNREADABLE"
	// RepoNotFound indicates no tracked repository matches the reference
	RepoNotFound ErrorCode = "REPO_NOT_FOUND"
	// StoreUnavailable indicates the database could not be reached
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// AnalyzerFailed indicates the analyzer could not produce a result
	AnalyzerFailed ErrorCode = "ANALYZER_FAILED"
	// CacheStoreFailed indicates a cache read or write failed
	CacheStoreFailed ErrorCode = "CACHE_STORE_FAILED"
	// CacheCorrupt indicates a cached payload could not be decoded
	CacheCorrupt ErrorCode = "CACHE_CORRUPT"
	// SchedulerRunning indicates another process owns the data directory
	SchedulerRunning ErrorCode = "SCHEDULER_RUNNING"
	// InvalidArgument indicates a caller supplied a bad value
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// softCodes are failures the pipeline logs and works around.
var softCodes = map[ErrorCode]bool{
	GitCommandFailed: true,
	GitTimeout:       true,
	AnalyzerFailed:   true,
}

// hardCodes are failures that must always reach the caller.
var hardCodes = map[ErrorCode]bool{
	CacheStoreFailed: true,
	CacheCorrupt:     true,
}

// Error is a repowatch error with a stable code and an optional cause.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new Error with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.cause
	}
	return false
}

// IsSoft reports whether err is a transient failure that callers may log and skip.
func IsSoft(err error) bool {
	if err == nil {
		return false
	}
	return softCodes[CodeOf(err)]
}

// IsHard reports whether err must be surfaced rather than swallowed.
func IsHard(err error) bool {
	if err == nil {
		return false
	}
	return hardCodes[CodeOf(err)]
}

// Remedies maps error codes to a short hint printed by the CLI
var Remedies = map[ErrorCode]string{
	GitCommandFailed: "check that git is installed and the repository is not corrupted",
	GitTimeout:       "raise detector.gitTimeoutMs in config.json",
	RepoUnreadable:   "verify the repository path exists and is a git work tree",
	RepoNotFound:     "run 'repowatch repo list' to see tracked repositories",
	StoreUnavailable: "check permissions on the data directory",
	CacheCorrupt:     "run 'repowatch cache clear --all' to drop unreadable entries",
	SchedulerRunning: "stop the running 'repowatch serve' or set REPOWATCH_HOME to another data directory",
}

// GetRemedy returns the hint for an error, or "" when none is known
func GetRemedy(err error) string {
	return Remedies[CodeOf(err)]
}
