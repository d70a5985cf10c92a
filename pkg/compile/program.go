package compile

import (
	"fmt"
	"os"

	"src.manglr.sh/pkg/code"
	"src.manglr.sh/pkg/diag"
	"src.manglr.sh/pkg/prog"
)

// Program is the compile subprogram. It compiles a YAML source file into a
// bundle, written to -o or standard output.
//
// Diagnostics are shown on standard error. The bundle is still written when
// there are diagnostics, but the exit status is 1.
var Program prog.Program = program{}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags) error {
	if !f.Compile {
		return prog.ErrNotSuitable
	}
	data, err := os.ReadFile(f.Source)
	if err != nil {
		return err
	}
	body, err := LoadYAML(f.Source, data)
	if err != nil {
		return err
	}
	p, diags := Compile(f.Source, body)
	for _, d := range diags {
		diag.ShowError(fds[2], d)
	}
	logger.Printf("compiled %s: %d templates, %d symbols, %d diagnostics",
		f.Source, p.NumTemplates(), len(p.Symbols), len(diags))

	var out []byte
	if f.Binary {
		out = code.MarshalBinary(p)
	} else if out, err = code.MarshalText(p); err != nil {
		return err
	}
	if f.Out != "" {
		err = os.WriteFile(f.Out, out, 0o644)
	} else {
		_, err = fds[1].Write(out)
	}
	if err != nil {
		return err
	}
	if len(diags) > 0 {
		fmt.Fprintf(fds[2], "%d problems found\n", len(diags))
		return prog.Exit(1)
	}
	return nil
}
