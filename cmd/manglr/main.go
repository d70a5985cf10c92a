// Manglr compiles declarative templates into compact instruction streams and
// renders them against data.
package main

import (
	"os"

	"src.manglr.sh/pkg/buildinfo"
	"src.manglr.sh/pkg/compile"
	"src.manglr.sh/pkg/prog"
	"src.manglr.sh/pkg/render"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			buildinfo.Program, compile.Program, render.Program, render.DecodeProgram)))
}
