package patch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/silkboot/pkg/bytecode"
	"github.com/daimatz/silkboot/pkg/classfile"
)

func TestSelector(t *testing.T) {
	s, err := NewSelector("net.minecraft.server.MinecraftServer", "net/minecraft/client/*", "org.bukkit.**.Main", " ")
	require.NoError(t, err)
	assert.False(t, s.Empty())

	tests := map[string]bool{
		"net.minecraft.server.MinecraftServer":  true,
		"net/minecraft/server/MinecraftServer":  true,
		"net.minecraft.server.MinecraftServer2": false,
		"net.minecraft.client.Minecraft":        true,
		"net.minecraft.client.gui.Screen":       false,
		"org.bukkit.craftbukkit.Main":           true,
		"org/bukkit/craftbukkit/v1_20_R1/Main":  true,
		"org.bukkit.Main":                       false,
		"org.bukkit.a.Main":                     true,
		"org.bukkit.Main.Main":                  true,
		"org.Main":                              false,
	}
	for name, want := range tests {
		assert.Equal(t, want, s.Match(name), name)
	}

	assert.Equal(t, len("org.bukkit..Main"), literalLen("org.bukkit.**.Main"))
	assert.Equal(t, len("a.?.[bc]"), literalLen("a.?.[bc]{x,yz}*"))

	empty, err := NewSelector()
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.False(t, empty.Match("a.B"))
}

func TestSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	sym, ok := st.Lookup(BrandingKey)
	require.True(t, ok)
	assert.Equal(t, BrandingHook, sym)

	motd := HookSymbol{Owner: "com.example.Hooks", Name: "motd", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;"}
	require.NoError(t, st.Register("motd", motd))
	require.NoError(t, st.Register("motd", motd))
	sym, _ = st.Lookup("motd")
	assert.Equal(t, "com/example/Hooks", sym.Owner)

	motd.Name = "other"
	assert.Error(t, st.Register("motd", motd))
	assert.Error(t, st.Register(BrandingKey, motd))
	assert.Equal(t, []string{BrandingKey, "motd"}, st.Keys())

	_, ok = st.Lookup("missing")
	assert.False(t, ok)
}

func TestBrandingClass(t *testing.T) {
	data, err := BrandingClass()
	require.NoError(t, err)
	cf, err := classfile.ParseBytes(data)
	require.NoError(t, err)

	name, err := cf.ClassName()
	require.NoError(t, err)
	assert.Equal(t, BrandingHook.Owner, name)

	m := cf.FindMethod(BrandingHook.Name, BrandingHook.Descriptor)
	require.NotNil(t, m)
	assert.Equal(t, uint16(classfile.AccPublic|classfile.AccStatic), m.AccessFlags)
	code := m.Code.Code
	require.Len(t, code, 4)
	assert.Equal(t, uint8(bytecode.OpLdcW), code[0])
	assert.Equal(t, uint8(bytecode.OpAreturn), code[3])

	s, ok := cf.ConstantPool[uint16(code[1])<<8|uint16(code[2])].(*classfile.ConstantString)
	require.True(t, ok)
	brand, err := classfile.GetUtf8(cf.ConstantPool, s.StringIndex)
	require.NoError(t, err)
	assert.Equal(t, Brand, brand)

	b, err := Branding().HookClass()
	require.NoError(t, err)
	assert.Equal(t, data, b)
}

func TestDecodeUnits(t *testing.T) {
	t.Run("hooks", func(t *testing.T) {
		data := []byte(`
[[hook]]
name = "motd"
classes = ["net.minecraft.server.dedicated.*"]
methods = ["getMotd"]
return = "Ljava/lang/String;"
owner = "com.example.Hooks"
method = "motd"
descriptor = "(Ljava/lang/String;)Ljava/lang/String;"

[[hook]]
name = "brand"
classes = ["net.minecraft.server.MinecraftServer"]
methods = ["getServerModName"]
return = "Ljava/lang/String;"
symbol = "branding"
`)
		st := NewSymbolTable()
		units, err := DecodeUnits("hooks.toml", data, st)
		require.NoError(t, err)
		require.Len(t, units, 2)
		assert.Equal(t, "motd", units[0].Name())
		assert.True(t, units[0].Selects("net/minecraft/server/dedicated/DedicatedServer"))
		assert.Equal(t, BrandingHook, units[1].(*ReturnHook).Hook())

		sym, ok := st.Lookup("motd")
		require.True(t, ok)
		assert.Equal(t, "com/example/Hooks", sym.Owner)
		sym, ok = st.Lookup("brand")
		require.True(t, ok)
		assert.Equal(t, BrandingHook, sym)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := DecodeUnits("bad.toml", []byte("[[hook]\nname = "), NewSymbolTable())
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "bad.toml", perr.Path)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := DecodeUnits("bad.toml", []byte("[[hook]]\nnmae = \"x\"\n"), NewSymbolTable())
		var perr *ParseError
		assert.ErrorAs(t, err, &perr)
	})

	tests := map[string]string{
		"unknown symbol": `[[hook]]
name = "x"
classes = ["a.B"]
methods = ["m"]
return = "I"
symbol = "nope"
`,
		"symbol and owner": `[[hook]]
name = "x"
classes = ["a.B"]
methods = ["m"]
return = "I"
symbol = "branding"
owner = "a.Hooks"
`,
		"wrong descriptor": `[[hook]]
name = "x"
classes = ["a.B"]
methods = ["m"]
return = "I"
owner = "a.Hooks"
method = "h"
descriptor = "(J)J"
`,
		"rebinds builtin": `[[hook]]
name = "branding"
classes = ["a.B"]
methods = ["m"]
return = "I"
owner = "a.Hooks"
method = "h"
descriptor = "(I)I"
`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeUnits("hooks.toml", []byte(data), NewSymbolTable())
			require.Error(t, err)
			var perr *ParseError
			assert.False(t, errors.As(err, &perr))
		})
	}
}

func TestLoadUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[[hook]]
name = "tps"
classes = ["net.minecraft.server.MinecraftServer"]
methods = ["getAverageTickTime"]
return = "F"
owner = "com/example/Hooks"
method = "tps"
descriptor = "(F)F"
`), 0o644))

	units, err := LoadUnits(path, NewSymbolTable())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "tps", units[0].Name())

	_, err = LoadUnits(filepath.Join(t.TempDir(), "missing.toml"), NewSymbolTable())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
