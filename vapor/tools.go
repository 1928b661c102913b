/*
	Package vapor drives the VAPOR command-line tools: vdfcreate builds the
	.vdf container and raw2vdf imports one raw timestep into it.
*/
package vapor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// DefaultTimeout bounds every tool invocation when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

// Tools holds the paths of the VAPOR executables.
type Tools struct {
	ContainerTool string // vdfcreate
	ImportTool    string // raw2vdf
	Timeout       time.Duration
}

// Result describes a completed tool invocation.
type Result struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Duration time.Duration
}

// ContainerSpec describes the .vdf container to create.
type ContainerSpec struct {
	Coords       CoordinateFiles
	Dims         cvdf.Dims3d
	Variable     string
	NumTimesteps int
	Path         string
}

// ContainerArgs returns the vdfcreate argument vector.
func ContainerArgs(spec ContainerSpec) []string {
	return []string{
		"-xcoords", spec.Coords.X,
		"-ycoords", spec.Coords.Y,
		"-zcoords", spec.Coords.Z,
		"-gridtype", "stretched",
		"-dimension", spec.Dims.Descriptor(),
		"-vars3d", spec.Variable,
		"-numts", strconv.Itoa(spec.NumTimesteps),
		spec.Path,
	}
}

// ImportArgs returns the raw2vdf argument vector.
func ImportArgs(variable string, timestep int, container, raw string) []string {
	return []string{"-varname", variable, "-ts", strconv.Itoa(timestep), container, raw}
}

// CreateContainer runs vdfcreate.  Any failure is returned as a *cvdf.ToolError.
func (t Tools) CreateContainer(ctx context.Context, spec ContainerSpec) (*Result, error) {
	return t.run(ctx, t.ContainerTool, ContainerArgs(spec))
}

// Import runs raw2vdf for one timestep.  Any failure is returned as a
// *cvdf.ToolError along with the result.
func (t Tools) Import(ctx context.Context, variable string, timestep int, container, raw string) (*Result, error) {
	return t.run(ctx, t.ImportTool, ImportArgs(variable, timestep, container, raw))
}

func (t Tools) run(ctx context.Context, tool string, args []string) (*Result, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Tool:     tool,
		Args:     args,
		Output:   out.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		cvdf.Debugf("%s %v: exit 0 after %s\n", tool, args, res.Duration)
		return res, nil
	}

	toolErr := &cvdf.ToolError{Tool: tool, Args: args, ExitCode: res.ExitCode, Output: res.Output}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		toolErr.Err = fmt.Errorf("timed out after %s: %w", timeout, context.DeadlineExceeded)
	case ctx.Err() != nil:
		toolErr.Err = ctx.Err()
	case errors.As(err, &exitErr):
	default:
		toolErr.Err = err
	}
	cvdf.Warningf("%s %v: %v\n", tool, args, toolErr)
	return res, toolErr
}
