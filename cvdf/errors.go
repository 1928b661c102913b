package cvdf

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.  Callers should match them with errors.Is.
var (
	// ErrUnknownType is returned for a membership-type selector or stored type
	// code that is not part of the enumeration.
	ErrUnknownType = errors.New("unknown membership type")

	// ErrMissingData is returned when a voxel table has no rows for the
	// requested membership type, or no rows at all.
	ErrMissingData = errors.New("missing voxel data")

	// ErrVariableNotFound is returned when a scalar field is absent from a dataset.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrExternalTool is returned when vdfcreate or raw2vdf fails.
	ErrExternalTool = errors.New("external tool failure")
)

// VariableNotFoundError reports the requested variable along with the 4d
// (time, z, y, x) variables that are actually present in the dataset.
type VariableNotFoundError struct {
	Name      string
	Path      string
	Available []string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable %q not found in %s; variable names are: [%s]",
		e.Name, e.Path, strings.Join(e.Available, ", "))
}

func (e *VariableNotFoundError) Unwrap() error { return ErrVariableNotFound }

// ToolError records a failed external tool invocation with its captured output.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if e.Err != nil {
		msg = fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExternalTool, e.Err}
	}
	return []error{ErrExternalTool}
}
