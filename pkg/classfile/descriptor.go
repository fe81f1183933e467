package classfile

import (
	"fmt"
	"strings"
)

// ReturnType returns the return type part of a method descriptor.
func ReturnType(descriptor string) (string, error) {
	end := strings.LastIndex(descriptor, ")")
	if !strings.HasPrefix(descriptor, "(") || end == -1 || end == len(descriptor)-1 {
		return "", fmt.Errorf("invalid method descriptor: %s", descriptor)
	}
	return descriptor[end+1:], nil
}

// ParamCount returns the number of parameters in a method descriptor.
func ParamCount(descriptor string) (int, error) {
	params, err := ParamTypes(descriptor)
	if err != nil {
		return 0, err
	}
	return len(params), nil
}

// ParamTypes splits the parameter list of a method descriptor into field
// descriptors.
func ParamTypes(descriptor string) ([]string, error) {
	// Parse between ( and )
	start := strings.Index(descriptor, "(")
	end := strings.Index(descriptor, ")")
	if start != 0 || end == -1 {
		return nil, fmt.Errorf("invalid method descriptor: %s", descriptor)
	}

	params := descriptor[start+1 : end]
	var out []string
	i := 0
	for i < len(params) {
		from := i
		// Array: skip dimensions, then read the element type
		for i < len(params) && params[i] == '[' {
			i++
		}
		if i == len(params) {
			return nil, fmt.Errorf("truncated array type in %s", descriptor)
		}
		switch params[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			i++
		case 'L':
			semi := strings.IndexByte(params[i:], ';')
			if semi == -1 {
				return nil, fmt.Errorf("unterminated class type in %s", descriptor)
			}
			i += semi + 1
		default:
			return nil, fmt.Errorf("invalid type descriptor char '%c' in %s", params[i], descriptor)
		}
		out = append(out, params[from:i])
	}
	return out, nil
}

// InternalName converts a binary class name (a.b.C) to its internal form
// (a/b/C).
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// BinaryName converts an internal class name (a/b/C) to its dotted form.
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// ResourceName returns the archive entry holding the class, a/b/C.class.
func ResourceName(name string) string {
	return InternalName(name) + ".class"
}
