package parser

import "fmt"

// ParseError is a syntactic error (spec.md §7.2): an unexpected token, or
// too many parameters/arguments. It carries the source line so the CLI can
// report a useful diagnostic.
type ParseError struct {
	Message string
	Line    int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("💥 ParseError [line %d]: %s", e.Line, e.Message)
}
