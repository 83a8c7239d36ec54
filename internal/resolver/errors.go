package resolver

import (
	"fmt"
	"strings"
)

// AmbiguousError is returned when more than one symbol matches a query.
// Candidates are canonical names, each usable as an unambiguous query.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("More than one protobuf symbol matched your query. Replace your link with one of the following:\n%s",
		strings.Join(references(e.Candidates), "\n"))
}

// NotFoundError is returned when no symbol matches a query. Suggestions are
// ranked near matches; when none scored, Samples lists valid examples.
type NotFoundError struct {
	Query       string
	Suggestions []string
	Samples     []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("No protobuf symbol matched your query `%s`, or was similar. Sample of valid formats:\n%s",
			e.Query, strings.Join(references(e.Samples), "\n"))
	}
	return fmt.Sprintf("No protobuf symbol matched your query `%s`, consider one of the following near matches:\n%s",
		e.Query, strings.Join(references(e.Suggestions), "\n"))
}

func references(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Reference(n)
	}
	return out
}
