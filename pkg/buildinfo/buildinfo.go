// Package buildinfo contains build information.
//
// Build information should be set during compilation by passing
// -ldflags "-X src.manglr.sh/pkg/buildinfo.Var=value" to "go build".
package buildinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"src.manglr.sh/pkg/prog"
)

// Version identifies the version of manglr. On development commits, it
// identifies the next release.
const Version = "v0.3.0"

// VersionSuffix is appended to Version to build the full version string.
var VersionSuffix = "-dev.unknown"

// Reproducible identifies whether the build is reproducible.
var Reproducible = "false"

// Type of Value.
type Type struct {
	Version      string `json:"version"`
	GoVersion    string `json:"goversion"`
	Reproducible bool   `json:"reproducible"`
}

// Value returns the build information of this binary.
func Value() Type {
	return Type{
		Version:      Version + VersionSuffix,
		GoVersion:    runtime.Version(),
		Reproducible: Reproducible == "true",
	}
}

// Program is the buildinfo subprogram. It serves --version and the buildinfo
// command.
var Program prog.Program = program{}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags) error {
	if !f.Version && !f.Buildinfo {
		return prog.ErrNotSuitable
	}
	v := Value()
	if f.Version {
		fmt.Fprintln(fds[1], v.Version)
		return nil
	}
	if f.JSON {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(fds[1], "%s\n", b)
		return nil
	}
	fmt.Fprintln(fds[1], "Version:", v.Version)
	fmt.Fprintln(fds[1], "Go version:", v.GoVersion)
	fmt.Fprintln(fds[1], "Reproducible build:", v.Reproducible)
	return nil
}
