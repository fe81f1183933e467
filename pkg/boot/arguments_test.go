package boot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgumentsParse(t *testing.T) {
	a := NewArguments()
	a.Parse([]string{
		"--username", "Steve",
		"--demo",
		"--width", "800",
		"nogui",
		"--version", "1.20.1",
		"--world",
	})

	v, ok := a.Get("username")
	assert.True(t, ok)
	assert.Equal(t, "Steve", v)
	v, ok = a.Get("demo")
	assert.True(t, ok)
	assert.Empty(t, v)
	_, ok = a.Get("world")
	assert.False(t, ok)
	assert.Equal(t, []string{"nogui", "--world"}, a.Extras())
	assert.Equal(t, ".", a.GetOrDefault("gameDir", "."))

	assert.Equal(t, []string{
		"--username", "Steve", "--demo", "", "--width", "800", "--version", "1.20.1",
		"nogui", "--world",
	}, a.ToSlice())

	v, ok = a.Remove("version")
	assert.True(t, ok)
	assert.Equal(t, "1.20.1", v)
	_, ok = a.Remove("version")
	assert.False(t, ok)

	a.Put("username", "Alex")
	a.Put("port", "25565")
	assert.Equal(t, []string{
		"--username", "Alex", "--demo", "", "--width", "800", "--port", "25565",
		"nogui", "--world",
	}, a.ToSlice())
}

func TestArgumentsParseEmpty(t *testing.T) {
	a := NewArguments()
	a.Parse(nil)
	assert.Empty(t, a.ToSlice())
	assert.Empty(t, a.Extras())
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name      string
		in        []string
		sensitive []string
		want      []string
	}{
		{
			name: "access token",
			in:   []string{"--x", "1", "--accessToken", "SECRET", "--y", "2"},
			want: []string{"--x", "1", "--y", "2"},
		},
		{
			name: "no sensitive flag",
			in:   []string{"--x", "1", "--y", "2"},
			want: []string{"--x", "1", "--y", "2"},
		},
		{
			name: "flag at the end",
			in:   []string{"--x", "1", "--accessToken"},
			want: []string{"--x", "1"},
		},
		{
			name: "repeated",
			in:   []string{"--accessToken", "a", "nogui", "--accessToken", "b"},
			want: []string{"nogui"},
		},
		{
			name:      "custom flags",
			in:        []string{"--session", "s", "--accessToken", "t", "--uuid", "u"},
			sensitive: []string{"--session", "--uuid"},
			want:      []string{"--accessToken", "t"},
		},
		{
			name: "empty",
			in:   nil,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]string(nil), tt.in...)
			assert.Equal(t, tt.want, Sanitize(tt.in, tt.sensitive...))
			assert.Equal(t, in, tt.in)
		})
	}
}
