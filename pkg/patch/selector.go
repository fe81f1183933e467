package patch

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/daimatz/silkboot/pkg/classfile"
)

// Selector matches class names against exact names and glob patterns. Both
// sides are compared in dotted form; '*' stops at a package separator and
// '**' does not.
type Selector struct {
	exact map[string]struct{}
	globs []pattern
}

// pattern is a compiled glob plus the length of its literal part. The glob
// matcher lets a prefix and suffix share characters around '**', so
// "a.**.B" would accept "a.B"; names shorter than min are rejected first.
type pattern struct {
	glob.Glob
	min int
}

// literalLen counts the characters a match of p needs at least: every
// literal, '?' and character class is one character, '*' and '**' none.
// Alternatives count as none.
func literalLen(p string) int {
	n := 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '*':
		case '\\':
			i++
			n++
		case '[':
			for i < len(p) && p[i] != ']' {
				i++
			}
			n++
		case '{':
			for i < len(p) && p[i] != '}' {
				i++
			}
		default:
			n++
		}
	}
	return n
}

// NewSelector compiles the patterns.
func NewSelector(patterns ...string) (*Selector, error) {
	s := &Selector{exact: make(map[string]struct{})}
	for _, p := range patterns {
		p = classfile.BinaryName(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, "*?[{") {
			s.exact[p] = struct{}{}
			continue
		}
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("compiling class pattern %q: %w", p, err)
		}
		s.globs = append(s.globs, pattern{Glob: g, min: literalLen(p)})
	}
	return s, nil
}

// Match reports whether the class is selected.
func (s *Selector) Match(className string) bool {
	name := classfile.BinaryName(className)
	if _, ok := s.exact[name]; ok {
		return true
	}
	for _, g := range s.globs {
		if len(name) >= g.min && g.Match(name) {
			return true
		}
	}
	return false
}

// Empty reports whether the selector can match nothing.
func (s *Selector) Empty() bool {
	return len(s.exact) == 0 && len(s.globs) == 0
}
