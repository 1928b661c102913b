// Command-line code generation of the git-derived source version.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// Name of file to output with Go version code
	outputfile = flag.String("o", "", "")

	// Package of the generated file.
	pkgName = flag.String("pkg", "cvdf", "")

	// Display usage if true.
	showHelp = flag.Bool("help", false, "")
)

const helpMessage = `
cvdf-gen-version records "git describe" output in a Go source file so that
"cvdf about" can report the source version.

Usage: cvdf-gen-version -o gitversion.go

      -o          =string   Output Go file (required)
      -pkg        =string   Package name of the output file (default "cvdf")
  -h, -help       (flag)    Show help message

`

const code = `// Code generated by gen-version. DO NOT EDIT.

package %s

func init() {
	gitVersion = %q
}
`

func describe() string {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to find git command, recording notag: %v\n", err)
		return "notag"
	}
	out, err := exec.Command(gitPath, "describe", "--abbrev=7", "--tags", "--dirty").Output()
	if err != nil {
		return "notag"
	}
	return strings.TrimSpace(string(out))
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() {
		fmt.Print(helpMessage)
	}
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if !strings.HasSuffix(*outputfile, ".go") {
		fmt.Fprintf(os.Stderr, "An output Go file is required, e.g., %q\n", "-o gitversion.go")
		os.Exit(1)
	}

	goCode := fmt.Sprintf(code, *pkgName, describe())
	if err := os.WriteFile(*outputfile, []byte(goCode), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *outputfile, err)
		os.Exit(1)
	}
}
