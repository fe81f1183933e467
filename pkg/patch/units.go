package patch

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// unitsFile is the layout of a hook definition file:
//
//	[[hook]]
//	name = "motd"
//	classes = ["net.minecraft.server.dedicated.*"]
//	methods = ["getMotd"]
//	return = "Ljava/lang/String;"
//	owner = "com/example/Hooks"
//	method = "motd"
//	descriptor = "(Ljava/lang/String;)Ljava/lang/String;"
//
// symbol = "<key>" may replace owner/method/descriptor with a symbol already
// registered in the table.
type unitsFile struct {
	Hooks []hookDef `toml:"hook"`
}

type hookDef struct {
	Name       string   `toml:"name"`
	Classes    []string `toml:"classes"`
	Methods    []string `toml:"methods"`
	Return     string   `toml:"return"`
	Symbol     string   `toml:"symbol"`
	Owner      string   `toml:"owner"`
	Method     string   `toml:"method"`
	Descriptor string   `toml:"descriptor"`
}

// ParseError reports a hook file that is not valid TOML.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadUnits reads return hook units from a TOML file. Every hook's symbol is
// registered in symbols under the hook's name.
func LoadUnits(path string, symbols *SymbolTable) ([]Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hooks: %w", err)
	}
	return DecodeUnits(path, data, symbols)
}

// DecodeUnits is LoadUnits over data already read from path.
func DecodeUnits(path string, data []byte, symbols *SymbolTable) ([]Unit, error) {
	var f unitsFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var decodeErr *toml.DecodeError
		var strictErr *toml.StrictMissingError
		if errors.As(err, &decodeErr) || errors.As(err, &strictErr) {
			return nil, &ParseError{Path: path, Err: err}
		}
		return nil, err
	}

	units := make([]Unit, 0, len(f.Hooks))
	for i, d := range f.Hooks {
		sym := HookSymbol{Owner: d.Owner, Name: d.Method, Descriptor: d.Descriptor}
		if d.Symbol != "" {
			if d.Owner != "" || d.Method != "" || d.Descriptor != "" {
				return nil, fmt.Errorf("%s: hook %d: symbol excludes owner, method and descriptor", path, i)
			}
			var ok bool
			if sym, ok = symbols.Lookup(d.Symbol); !ok {
				return nil, fmt.Errorf("%s: hook %d: unknown symbol %q", path, i, d.Symbol)
			}
		}
		h, err := NewReturnHook(ReturnHookConfig{
			Name:        d.Name,
			Classes:     d.Classes,
			MethodNames: d.Methods,
			ReturnType:  d.Return,
			Hook:        sym,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: hook %d: %w", path, i, err)
		}
		if err := symbols.Register(d.Name, h.Hook()); err != nil {
			return nil, fmt.Errorf("%s: hook %d: %w", path, i, err)
		}
		units = append(units, h)
	}
	return units, nil
}
