// Package version resolves and normalizes the game version.
package version

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/daimatz/silkboot/pkg/archive"
	"github.com/daimatz/silkboot/pkg/classfile"
	"github.com/daimatz/silkboot/pkg/logging"
)

// EnvVar overrides the detected version when set.
const EnvVar = "SILK_GAME_VERSION"

// Info is the resolved version of the game.
type Info struct {
	Raw        string
	Normalized string
	// ClassFormatVersion is the major version of the entry class, 0 when no
	// candidate class could be read.
	ClassFormatVersion int
}

// JavaVersion returns the Java feature version the game was compiled for.
func (i Info) JavaVersion() (int, bool) {
	if i.ClassFormatVersion == 0 {
		return 0, false
	}
	return JavaFeature(i.ClassFormatVersion), true
}

// Source names where a raw version came from.
type Source string

const (
	SourceExplicit    Source = "explicit"
	SourceEnvironment Source = "environment"
	SourceVersionJSON Source = "version.json"
	SourceManifest    Source = "manifest"
	SourceClassFormat Source = "class format"
	SourceNone        Source = "none"
)

var log = logging.Category("Version")

// Resolve determines the game version. The explicit value wins, then the
// environment value, then what the binary says about itself. The class format
// version is recorded whenever a candidate class is readable.
func Resolve(explicit, environment, binaryPath string, candidates archive.Candidates, view archive.View) (Info, error) {
	major, err := classFormat(binaryPath, candidates, view)
	if err != nil {
		return Info{}, err
	}

	raw, src := strings.TrimSpace(explicit), SourceExplicit
	if raw == "" {
		raw, src = strings.TrimSpace(environment), SourceEnvironment
	}
	if raw == "" {
		raw, src, err = introspect(binaryPath, view)
		if err != nil {
			return Info{}, err
		}
	}
	if raw == "" && major != 0 {
		raw, src = strconv.Itoa(JavaFeature(major)), SourceClassFormat
	}
	if raw == "" {
		src = SourceNone
	}

	info := Info{Raw: raw, Normalized: Normalize(raw), ClassFormatVersion: major}
	log.WithField("source", src).Debugf("Game version %q (normalized %s)", info.Raw, info.Normalized)
	return info, nil
}

// versionFile is the subset of version.json that names the version.
type versionFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// mcVersion picks the game version out of Paper's Implementation-Version,
// e.g. "git-Paper-196 (MC: 1.20.1)".
var mcVersion = regexp.MustCompile(`\(MC: ([^)]+)\)`)

func introspect(binaryPath string, view archive.View) (string, Source, error) {
	data, err := view.Open(binaryPath, "version.json")
	switch {
	case err == nil:
		var vf versionFile
		if err := json.Unmarshal(data, &vf); err != nil {
			return "", "", fmt.Errorf("version: parsing version.json in %s: %w", binaryPath, err)
		}
		if vf.ID != "" {
			return vf.ID, SourceVersionJSON, nil
		}
		if vf.Name != "" {
			return vf.Name, SourceVersionJSON, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", "", fmt.Errorf("version: reading version.json in %s: %w", binaryPath, err)
	}

	m, err := archive.ReadManifest(view, binaryPath)
	if err != nil {
		return "", "", fmt.Errorf("version: %w", err)
	}
	if v := m.ImplementationVersion(); v != "" {
		if sub := mcVersion.FindStringSubmatch(v); sub != nil {
			v = sub[1]
		}
		return strings.TrimSpace(v), SourceManifest, nil
	}
	return "", "", nil
}

// classFormat returns the major version of the first readable candidate.
func classFormat(binaryPath string, candidates archive.Candidates, view archive.View) (int, error) {
	for _, name := range candidates {
		resource := classfile.ResourceName(name)
		found, err := view.Contains(binaryPath, resource)
		if err != nil {
			return 0, fmt.Errorf("version: %w", err)
		}
		if !found {
			continue
		}
		data, err := view.Open(binaryPath, resource)
		if err != nil {
			return 0, fmt.Errorf("version: reading %s: %w", resource, err)
		}
		_, major, err := classfile.ParseHeader(data)
		if err != nil {
			log.WithError(err).Debugf("Skipping unreadable candidate %s", name)
			continue
		}
		return int(major), nil
	}
	return 0, nil
}

// JavaFeature maps a class format major version to the Java feature version
// (52 is Java 8, 65 is Java 21). Versions before Java 1.1 map to 0.
func JavaFeature(major int) int {
	if major < 45 {
		return 0
	}
	return major - 44
}

// Normalize turns a raw version into MAJOR.MINOR.PATCH. Only the leading run
// of digits and dots counts; a raw string without one normalizes to 0.0.0.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}

	var parts []string
	for _, p := range strings.Split(s[:end], ".") {
		if p == "" {
			continue
		}
		p = strings.TrimLeft(p, "0")
		if p == "" {
			p = "0"
		}
		parts = append(parts, p)
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}

// Compare orders two versions after normalization: -1, 0 or +1. Components
// past the third break ties.
func Compare(a, b string) int {
	pa := strings.Split(Normalize(a), ".")
	pb := strings.Split(Normalize(b), ".")
	if c := semver.Compare("v"+strings.Join(pa[:3], "."), "v"+strings.Join(pb[:3], ".")); c != 0 {
		return c
	}
	for i := 3; i < len(pa) || i < len(pb); i++ {
		x, y := "0", "0"
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		// Normalized components have no leading zeros.
		if c := cmp.Compare(len(x), len(y)); c != 0 {
			return c
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// AtLeast reports whether v satisfies ">=min".
func AtLeast(v, min string) bool {
	return Compare(v, min) >= 0
}
