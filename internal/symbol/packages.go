package symbol

import (
	"sort"
	"strings"
)

// Packages is the flat set of known package names.
type Packages map[string]struct{}

func NewPackages(names ...string) Packages {
	p := make(Packages, len(names))
	for _, n := range names {
		p.Add(n)
	}
	return p
}

func (p Packages) Add(name string) {
	p[name] = struct{}{}
}

func (p Packages) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// LongestPrefix returns the longest package that equals name or is followed
// by a `.` in name. The empty package never matches.
func (p Packages) LongestPrefix(name string) string {
	best := ""
	for pkg := range p {
		if pkg == "" || len(pkg) <= len(best) {
			continue
		}
		if name == pkg || strings.HasPrefix(name, pkg+".") {
			best = pkg
		}
	}
	return best
}

// Sorted returns the package names in lexical order.
func (p Packages) Sorted() []string {
	out := make([]string, 0, len(p))
	for pkg := range p {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}
