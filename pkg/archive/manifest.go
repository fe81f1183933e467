package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ManifestPath is the location of the jar manifest.
const ManifestPath = "META-INF/MANIFEST.MF"

// Manifest holds the main attributes of a jar manifest.
type Manifest map[string]string

// MainClass returns the Main-Class attribute.
func (m Manifest) MainClass() string {
	return m["Main-Class"]
}

// ImplementationVersion returns the Implementation-Version attribute.
func (m Manifest) ImplementationVersion() string {
	return m["Implementation-Version"]
}

// ReadManifest returns the main section of root's manifest. A root without
// a manifest yields an empty Manifest.
func ReadManifest(view View, root string) (Manifest, error) {
	found, err := view.Contains(root, ManifestPath)
	if err != nil {
		return nil, err
	}
	if !found {
		return Manifest{}, nil
	}
	data, err := view.Open(root, ManifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// ParseManifest parses the main section: "Name: value" lines, where a line
// starting with a single space continues the previous value. Parsing stops at
// the first blank line.
func ParseManifest(data []byte) (Manifest, error) {
	m := Manifest{}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, " ") {
			if last == "" {
				return nil, fmt.Errorf("archive: manifest continuation without attribute")
			}
			m[last] += line[1:]
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("archive: malformed manifest line %q", line)
		}
		last = strings.TrimSpace(name)
		m[last] = strings.TrimPrefix(value, " ")
	}
	return m, sc.Err()
}
