package diag

import (
	"fmt"
	"io"
)

// Shower wraps the Show function.
type Shower interface {
	// Show takes an indentation string and shows.
	Show(indent string) string
}

// Markers around messages; cleared by SetColor(false).
var (
	messageStart = "\033[31;1m"
	messageEnd   = "\033[m"
)

// SetColor turns ANSI highlighting of shown messages on or off.
func SetColor(on bool) {
	if on {
		messageStart, messageEnd = "\033[31;1m", "\033[m"
	} else {
		messageStart, messageEnd = "", ""
	}
}

// ShowError writes an error to w. It uses the Show method if the error
// implements Shower, and uses Complain otherwise.
func ShowError(w io.Writer, err error) {
	if shower, ok := err.(Shower); ok {
		fmt.Fprintln(w, shower.Show(""))
	} else {
		Complain(w, err.Error())
	}
}

// Complain writes a highlighted message to w, adding a trailing newline.
func Complain(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s%s%s\n", messageStart, msg, messageEnd)
}

// Complainf is like Complain, but accepts a format string and arguments.
func Complainf(w io.Writer, format string, args ...any) {
	Complain(w, fmt.Sprintf(format, args...))
}
