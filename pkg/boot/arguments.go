package boot

import "strings"

// DefaultSensitive are the flags whose values never appear in diagnostics.
var DefaultSensitive = []string{"--accessToken"}

// Arguments holds --key value pairs in insertion order plus the remaining
// tokens.
type Arguments struct {
	keys   []string
	values map[string]string
	extras []string
}

// NewArguments returns empty Arguments.
func NewArguments() *Arguments {
	return &Arguments{values: make(map[string]string)}
}

// Parse adds tokens. "--key value" is a pair; a --key followed by another
// flag gets an empty value, and a --key that ends the input is an extra.
func (a *Arguments) Parse(tokens []string) {
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "--") || i == len(tokens)-1 {
			a.extras = append(a.extras, tok)
			continue
		}
		value := tokens[i+1]
		if strings.HasPrefix(value, "--") {
			value = ""
		} else {
			i++
		}
		a.Put(tok[2:], value)
	}
}

// Put sets key. A new key goes last; an existing key keeps its position.
func (a *Arguments) Put(key, value string) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a *Arguments) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

func (a *Arguments) GetOrDefault(key, def string) string {
	if v, ok := a.values[key]; ok {
		return v
	}
	return def
}

// Remove deletes key and returns its old value.
func (a *Arguments) Remove(key string) (string, bool) {
	v, ok := a.values[key]
	if !ok {
		return "", false
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Extras returns the tokens that are not part of a pair.
func (a *Arguments) Extras() []string {
	return append([]string(nil), a.extras...)
}

// ToSlice renders the pairs in order followed by the extras.
func (a *Arguments) ToSlice() []string {
	out := make([]string, 0, 2*len(a.keys)+len(a.extras))
	for _, k := range a.keys {
		out = append(out, "--"+k, a.values[k])
	}
	return append(out, a.extras...)
}

// Sanitize drops every sensitive flag together with the token after it.
// Without sensitive flags DefaultSensitive applies. tokens is not modified.
func Sanitize(tokens []string, sensitive ...string) []string {
	if len(sensitive) == 0 {
		sensitive = DefaultSensitive
	}
	drop := make(map[string]struct{}, len(sensitive))
	for _, s := range sensitive {
		drop[s] = struct{}{}
	}
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if _, ok := drop[tokens[i]]; ok {
			i++
			continue
		}
		out = append(out, tokens[i])
	}
	return out
}
