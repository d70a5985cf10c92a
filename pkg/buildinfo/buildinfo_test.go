package buildinfo

import (
	"encoding/json"
	"fmt"
	"testing"

	. "src.manglr.sh/pkg/prog/progtest"
	"src.manglr.sh/pkg/testutil"
)

func TestProgram(t *testing.T) {
	v := Value()
	Test(t, Program,
		ThatManglr("--version").WritesStdout(v.Version+"\n"),

		ThatManglr("buildinfo").WritesStdout(fmt.Sprintf(
			"Version: %v\nGo version: %v\nReproducible build: %v\n",
			v.Version, v.GoVersion, v.Reproducible)),
		ThatManglr("buildinfo", "--json").WritesStdout(mustToJSON(v)+"\n"),

		ThatManglr("decode", "x").
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestValue_Reproducible(t *testing.T) {
	testutil.Set(t, &Reproducible, "true")
	if !Value().Reproducible {
		t.Errorf("Reproducible = %q but Value().Reproducible is false", Reproducible)
	}
}

func mustToJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
