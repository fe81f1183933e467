// Package archive finds the entry class of the game among classpath roots
// without loading anything from them.
package archive

import (
	"fmt"

	"github.com/daimatz/silkboot/pkg/classfile"
)

// Candidates is an ordered list of acceptable entry class names in dotted
// form. The first match wins.
type Candidates []string

// LocateResult names the entry class found and the root that holds it.
type LocateResult struct {
	EntrypointName string
	ArchivePath    string
}

// Locate scans roots in order and, within a root, candidates in order. The
// first (root, candidate) pair whose class resource exists wins. ok is false
// when no root holds any candidate.
func Locate(roots []string, candidates Candidates, view View) (LocateResult, bool, error) {
	for _, root := range roots {
		for _, name := range candidates {
			found, err := view.Contains(root, classfile.ResourceName(name))
			if err != nil {
				return LocateResult{}, false, fmt.Errorf("archive: looking up %s in %s: %w", name, root, err)
			}
			if found {
				return LocateResult{EntrypointName: name, ArchivePath: root}, true, nil
			}
		}
	}
	return LocateResult{}, false, nil
}

// FindSource returns the first root holding resource.
func FindSource(roots []string, resource string, view View) (string, bool, error) {
	for _, root := range roots {
		found, err := view.Contains(root, resource)
		if err != nil {
			return "", false, fmt.Errorf("archive: looking up %s in %s: %w", resource, root, err)
		}
		if found {
			return root, true, nil
		}
	}
	return "", false, nil
}
