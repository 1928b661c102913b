/*
	This file holds types and functions supporting command-line activity.
*/

package cvdf

import (
	"strings"
)

// Keys for setting various arguments within the command line via "key=value" strings.
const (
	KeyConfigFile = "config"
	KeyVariable   = "var"
	KeySelector   = "type"
	KeyName       = "name"
	KeyTableDir   = "tables"
	KeyFieldDir   = "fields"
	KeyPlatform   = "os"
)

var setKeys = map[string]bool{
	KeyConfigFile: true,
	KeyVariable:   true,
	KeySelector:   true,
	KeyName:       true,
	KeyTableDir:   true,
	KeyFieldDir:   true,
	KeyPlatform:   true,
}

// Command is a parsed command line.  The first item in the string slice is the
// command, e.g., "run" or "extrema".  The other arguments are command arguments
// or optional settings of the form "<key>=<value>".
type Command []string

// String returns a space-separated command line
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument which is assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0]
}

// Parameter scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Parameter(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.SplitN(arg, "=", 2)
			if len(elems) == 2 && elems[0] == key {
				value = elems[1]
				found = true
				return
			}
		}
	}
	return
}

// CommandArgs sets a variadic argument set of string pointers to
// command arguments, ignoring setting arguments of the form "<key>=<value>".
// If there aren't enough arguments to set a target, the target is set to the
// empty string.  It returns an 'overflow' slice that has all arguments
// beyond those needed for targets.
func (cmd Command) CommandArgs(targets ...*string) (overflow []string) {
	overflow = make([]string, 0, len(cmd))
	for _, target := range targets {
		*target = ""
	}
	if len(cmd) < 2 {
		return
	}
	curTarget := 0
	for _, arg := range cmd[1:] {
		elems := strings.SplitN(arg, "=", 2)
		if len(elems) == 2 && setKeys[elems[0]] {
			continue
		}
		if curTarget >= len(targets) {
			overflow = append(overflow, arg)
		} else {
			*(targets[curTarget]) = arg
		}
		curTarget++
	}
	return
}
