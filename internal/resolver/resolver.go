package resolver

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"protobook/internal/symbol"
)

// MaxSuggestions bounds near-miss suggestions and fallback samples.
const MaxSuggestions = 3

// Resolver finds the unique symbol a prose query refers to.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns a copy of the single known symbol matching query, or an
// *AmbiguousError / *NotFoundError describing how to fix the reference.
func (r *Resolver) Resolve(query string, known []symbol.Link) (symbol.Link, error) {
	q := ParseQuery(query)

	var matches []symbol.Link
	for _, candidate := range known {
		if q.Matches(candidate) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return symbol.Link{}, r.notFound(query, known)
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.FQSL()
		}
		sort.Strings(names)
		return symbol.Link{}, &AmbiguousError{Query: query, Candidates: names}
	}
}

// Suggest ranks known symbols by similarity to query. Only subsequence
// matches score; closer edit distance ranks first. A query without a
// symbol name scores nothing.
func (r *Resolver) Suggest(query string, known []symbol.Link, limit int) []string {
	if len(ParseQuery(query).Segments) == 0 {
		return nil
	}

	targets := make([]string, len(known))
	for i, k := range known {
		targets[i] = k.FQSL()
	}

	var ranks fuzzy.Ranks
	if hasUpper(query) {
		ranks = fuzzy.RankFind(query, targets)
	} else {
		ranks = fuzzy.RankFindFold(query, targets)
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].Target < ranks[j].Target
	})

	var out []string
	seen := make(map[string]bool)
	for _, rank := range ranks {
		if len(out) == limit {
			break
		}
		if seen[rank.Target] {
			continue
		}
		seen[rank.Target] = true
		out = append(out, rank.Target)
	}
	return out
}

func (r *Resolver) notFound(query string, known []symbol.Link) error {
	err := &NotFoundError{Query: query}
	err.Suggestions = r.Suggest(query, known, MaxSuggestions)
	if len(err.Suggestions) > 0 {
		return err
	}

	samples := make([]string, 0, len(known))
	for _, k := range known {
		samples = append(samples, k.FQSL())
	}
	sort.Strings(samples)
	if len(samples) > MaxSuggestions {
		samples = samples[:MaxSuggestions]
	}
	err.Samples = samples
	return err
}
