// Package diag contains the diagnostics produced by the compiler.
package diag

import (
	"fmt"
	"strings"
)

// Error is a problem found in a source file. It carries enough context to be
// shown to the author of the file.
type Error struct {
	Type    string
	Message string
	Context Context
}

// Context locates an Error in a source file.
type Context struct {
	Name string
	// 1-based line and column; 0 when unknown.
	Line   int
	Column int
	// Describes the offending node or attribute, such as `<div class>`.
	Where string
}

func (c Context) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	if c.Line > 0 {
		fmt.Fprintf(&sb, ":%d:%d", c.Line, c.Column)
	}
	if c.Where != "" {
		if sb.Len() > 0 {
			sb.WriteString(": ")
		}
		sb.WriteString(c.Where)
	}
	return sb.String()
}

// Error returns a plain text representation of the error.
func (e *Error) Error() string {
	if ctx := e.Context.String(); ctx != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type, ctx, e.Message)
	}
	return e.Type + ": " + e.Message
}

// Show shows the error with the message highlighted.
func (e *Error) Show(indent string) string {
	header := fmt.Sprintf("%s: %s%s%s", title(e.Type), messageStart, e.Message, messageEnd)
	if ctx := e.Context.String(); ctx != "" {
		return header + "\n" + indent + "  " + ctx
	}
	return header
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
