package boot

import (
	"fmt"
	"strings"

	"github.com/daimatz/silkboot/pkg/version"
)

// Version is the version of silkboot reported for the builtin mod.
const Version = "0.1.0"

// MinPaperVersion is the oldest supported Paper release.
const MinPaperVersion = "1.17.1"

// ModDependency is a "depends" relation on another mod.
type ModDependency struct {
	ModID    string
	Versions []string // predicates such as ">=1.17.1"
}

// Satisfied reports whether v matches any predicate. Supported predicates
// are ">=x", "=x", "x" and "*".
func (d ModDependency) Satisfied(v string) bool {
	for _, p := range d.Versions {
		p = strings.TrimSpace(p)
		switch {
		case p == "*":
			return true
		case strings.HasPrefix(p, ">="):
			if version.AtLeast(v, strings.TrimPrefix(p, ">=")) {
				return true
			}
		case version.Compare(v, strings.TrimPrefix(p, "=")) == 0:
			return true
		}
	}
	return false
}

// BuiltinMod describes a mod provided by the loader itself.
type BuiltinMod struct {
	ID      string
	Name    string
	Version string
	Path    string
	Depends []ModDependency
}

func builtinMods(gameJar string, info version.Info) []BuiltinMod {
	deps := []ModDependency{{ModID: "paper", Versions: []string{">=" + MinPaperVersion}}}
	if java, ok := info.JavaVersion(); ok {
		deps = append(deps, ModDependency{ModID: "java", Versions: []string{fmt.Sprintf(">=%d", java)}})
	}
	return []BuiltinMod{{
		ID:      "silk",
		Name:    "Silk",
		Version: Version,
		Path:    gameJar,
		Depends: deps,
	}}
}
