// Package prog provides the entry point to manglr. Subprograms live in the
// packages of what they operate on and are tried in turn by Run.
package prog

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/mattn/go-isatty"

	"src.manglr.sh/pkg/diag"
	"src.manglr.sh/pkg/logutil"
)

// Usage is the command-line interface of manglr, in docopt syntax.
const Usage = `Manglr compiles declarative templates and renders them.

Usage:
  manglr compile <source> [-o <out>] [--binary] [options]
  manglr render <bundle> [--data=<data>] [--config=<config>] [--watch] [options]
  manglr decode <bundle> [options]
  manglr buildinfo [--json] [options]
  manglr -h | --help
  manglr --version

Options:
  -o <out>           Write the bundle to <out> instead of standard output.
  --binary           Write a binary bundle instead of YAML.
  --data=<data>      YAML file of values to bind in the root scope.
  --config=<config>  Runtime configuration file.
  --watch            Render again whenever the data file changes.
  --json             Show build information as JSON.
  --log=<file>       Write the debug log to <file>.
  --verbose          Log to standard error, including verbose tracing.
  -h --help          Show this screen.
  --version          Show version.`

// Flags keeps the parsed command line.
type Flags struct {
	Compile, Render, Decode, Buildinfo bool

	Source string `docopt:"<source>"`
	Bundle string `docopt:"<bundle>"`
	Out    string `docopt:"-o"`
	Binary bool

	Data, Config string
	Watch        bool

	JSON bool `docopt:"--json"`

	Log     string
	Verbose bool

	Help, Version bool
}

// ParseFlags parses command-line arguments, not including the program name.
// When help is requested, it returns nil flags and the help text.
func ParseFlags(args []string) (f *Flags, help string, err error) {
	var output string
	parser := &docopt.Parser{HelpHandler: func(_ error, s string) { output = s }}
	opts, err := parser.ParseArgs(Usage, args, "")
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return nil, "", badUsageError{output}
	}
	if opts == nil {
		return nil, output, nil
	}
	f = &Flags{}
	if err := opts.Bind(f); err != nil {
		return nil, "", err
	}
	return f, "", nil
}

// Run parses command-line flags and runs the first applicable subprogram. It
// returns the exit status of the program.
func Run(fds [3]*os.File, args []string, p Program) int {
	f, help, err := ParseFlags(args[1:])
	if err != nil {
		fmt.Fprintln(fds[2], err)
		return 2
	}
	if f == nil {
		fmt.Fprintln(fds[1], help)
		return 0
	}

	diag.SetColor(isatty.IsTerminal(fds[2].Fd()) || isatty.IsCygwinTerminal(fds[2].Fd()))
	if f.Verbose {
		// glog keeps its settings in the standard flag set.
		flag.Set("logtostderr", "true")
		flag.Set("v", "2")
	}
	if f.Log != "" {
		if err := logutil.SetOutputFile(f.Log); err != nil {
			fmt.Fprintln(fds[2], err)
		}
		defer logutil.SetOutput(nil)
	}
	defer glog.Flush()

	err = p.Run(fds, f)
	if err == nil {
		return 0
	}
	if msg := err.Error(); msg != "" {
		diag.ShowError(fds[2], err)
	}
	switch err := err.(type) {
	case badUsageError:
		fmt.Fprintln(fds[2], shortUsage)
	case exitError:
		return err.exit
	}
	return 2
}

const shortUsage = `Run "manglr --help" for usage.`

// Composite returns a Program that tries each of the given programs,
// terminating at the first one that doesn't return ErrNotSuitable.
func Composite(programs ...Program) Program {
	return compositeProgram(programs)
}

type compositeProgram []Program

func (cp compositeProgram) Run(fds [3]*os.File, f *Flags) error {
	for _, p := range cp {
		err := p.Run(fds, f)
		if err != ErrNotSuitable {
			return err
		}
	}
	return ErrNotSuitable
}

// ErrNotSuitable is a special error that may be returned by Program.Run, to
// signify that this Program should not be run. It is useful when a Program is
// used in Composite.
var ErrNotSuitable = errors.New("internal error: no suitable subprogram")

// BadUsage returns a special error that may be returned by Program.Run. It
// causes the main function to print out a message, a hint about usage and
// exit with 2.
func BadUsage(msg string) error { return badUsageError{msg} }

type badUsageError struct{ msg string }

func (e badUsageError) Error() string { return e.msg }

// Exit returns a special error that may be returned by Program.Run. It causes
// the main function to exit with the given code without printing any error
// messages. Exit(0) returns nil.
func Exit(exit int) error {
	if exit == 0 {
		return nil
	}
	return exitError{exit}
}

type exitError struct{ exit int }

func (e exitError) Error() string { return "" }

// Program represents a subprogram.
type Program interface {
	// Run runs the subprogram, or returns ErrNotSuitable if the flags ask for
	// something else.
	Run(fds [3]*os.File, f *Flags) error
}
