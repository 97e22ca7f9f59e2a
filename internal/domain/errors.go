package domain

import "fmt"

// ToolNotFoundError indicates the duplicity binary is absent or cannot be
// probed. Fatal to any further operation until resolved externally.
type ToolNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ToolNotFoundError) Error() string {
	if e.Path == "" {
		return "duplicity not found in PATH"
	}
	return fmt.Sprintf("duplicity not found at %s", e.Path)
}

// InvalidArgumentReason identifies which restore precondition failed.
type InvalidArgumentReason string

const (
	// ReasonNotFound means the directory does not exist.
	ReasonNotFound InvalidArgumentReason = "not_found"
	// ReasonNotReadable means the directory cannot be read.
	ReasonNotReadable InvalidArgumentReason = "not_readable"
	// ReasonNotEmpty means the directory already contains entries.
	ReasonNotEmpty InvalidArgumentReason = "not_empty"
)

// InvalidArgumentError indicates a caller-fixable bad request, raised before
// any process spawns. Err, when set, carries the underlying cause.
type InvalidArgumentError struct {
	Path   string
	Reason InvalidArgumentReason
	Err    error
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonNotFound:
		msg = fmt.Sprintf("directory does not exist: %s", e.Path)
	case ReasonNotReadable:
		msg = fmt.Sprintf("directory is not readable: %s", e.Path)
	case ReasonNotEmpty:
		msg = fmt.Sprintf("directory is not empty: %s", e.Path)
	default:
		msg = fmt.Sprintf("invalid argument: %s", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *InvalidArgumentError) Unwrap() error {
	return e.Err
}
