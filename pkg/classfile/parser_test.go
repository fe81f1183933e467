package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/silkboot/pkg/bytecode"
	"github.com/daimatz/silkboot/pkg/classfile/classfiletest"
)

func serverClass() *classfiletest.Builder {
	b := classfiletest.New("net/minecraft/server/MinecraftServer")
	b.Long(1234567890123)
	b.Double(0.5)
	b.Field(AccPrivate, "brand", "Ljava/lang/String;")
	b.Method(classfiletest.Method{
		Flags:     AccPublic,
		Name:      "getServerModName",
		Desc:      "()Ljava/lang/String;",
		MaxStack:  1,
		MaxLocals: 1,
		Code:      []byte{bytecode.OpLdc, byte(b.String("vanilla")), bytecode.OpAreturn},
		CodeAttrs: []classfiletest.Attr{{Name: "LineNumberTable", Data: []byte{0, 1, 0, 0, 0, 42}}},
	})
	b.Method(classfiletest.Method{
		Flags: AccPublic | AccAbstract,
		Name:  "tick",
		Desc:  "(IJ[[Ljava/lang/Object;)V",
	})
	b.Main()
	b.Attr("SourceFile", []byte{0, 1})
	return b
}

func TestParseBytes(t *testing.T) {
	cf, err := ParseBytes(serverClass().Bytes())
	require.NoError(t, err)

	name, err := cf.ClassName()
	require.NoError(t, err)
	assert.Equal(t, "net/minecraft/server/MinecraftServer", name)
	assert.Equal(t, "java/lang/Object", cf.SuperClassName())
	assert.Equal(t, uint16(52), cf.MajorVersion)

	require.Len(t, cf.Fields, 1)
	assert.Equal(t, "brand", cf.Fields[0].Name)

	m := cf.FindMethod("getServerModName", "()Ljava/lang/String;")
	require.NotNil(t, m)
	require.NotNil(t, m.Code)
	assert.Equal(t, uint16(1), m.Code.MaxStack)
	require.Len(t, m.Code.Attributes, 1)
	assert.Equal(t, "LineNumberTable", m.Code.Attributes[0].Name)

	assert.Nil(t, cf.FindMethod("getServerModName", "()Ljava/lang/Object;"))
	assert.Nil(t, cf.FindMethod("tick", "(IJ[[Ljava/lang/Object;)V").Code)
	require.Len(t, cf.Attributes, 1)
	assert.Equal(t, "SourceFile", cf.Attributes[0].Name)
}

func TestRoundTripIsIdentical(t *testing.T) {
	tests := map[string][]byte{
		"server": serverClass().Bytes(),
		"empty":  classfiletest.New("Empty").Bytes(),
		"main":   classfiletest.New("org/bukkit/craftbukkit/Main").Main().Bytes(),
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			cf, err := ParseBytes(in)
			require.NoError(t, err)
			out, err := cf.Bytes()
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestRoundTripAfterDecodingBody(t *testing.T) {
	in := serverClass().Bytes()
	cf, err := ParseBytes(in)
	require.NoError(t, err)

	m := cf.FindMethod("getServerModName", "()Ljava/lang/String;")
	_, err = m.Body()
	require.NoError(t, err)
	assert.False(t, m.Dirty())

	out, err := cf.Bytes()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Re-encoding an unedited body gives the same bytes as well.
	m.MarkDirty()
	out, err = cf.Bytes()
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.False(t, m.Dirty())
}

func TestEditedBodyIsWrittenBack(t *testing.T) {
	cf, err := ParseBytes(serverClass().Bytes())
	require.NoError(t, err)

	ref, err := cf.AddMethodref("Hook", "wrap", "(Ljava/lang/String;)Ljava/lang/String;")
	require.NoError(t, err)

	m := cf.FindMethod("getServerModName", "()Ljava/lang/String;")
	body, err := m.Body()
	require.NoError(t, err)
	it := body.Iterator()
	for it.HasNext() {
		in, _ := it.Next()
		if in.Op == bytecode.OpAreturn {
			require.NoError(t, it.InsertBefore(bytecode.MethodInsn(bytecode.OpInvokestatic, ref)))
		}
	}
	m.MarkDirty()

	out, err := cf.Bytes()
	require.NoError(t, err)

	again, err := ParseBytes(out)
	require.NoError(t, err)
	code := again.FindMethod("getServerModName", "()Ljava/lang/String;").Code.Code
	require.Len(t, code, 6)
	assert.Equal(t, uint8(bytecode.OpInvokestatic), code[2])

	info, err := ResolveMethodref(again.ConstantPool, uint16(code[3])<<8|uint16(code[4]))
	require.NoError(t, err)
	assert.Equal(t, &MethodRefInfo{
		ClassName:  "Hook",
		MethodName: "wrap",
		Descriptor: "(Ljava/lang/String;)Ljava/lang/String;",
	}, info)
}

func TestParseMalformed(t *testing.T) {
	good := serverClass().Bytes()
	tests := map[string][]byte{
		"empty":       nil,
		"bad magic":   append([]byte{0xCA, 0xFE, 0xBA, 0xBF}, good[4:]...),
		"truncated":   good[:len(good)/2],
		"trailing":    append(append([]byte(nil), good...), 0),
		"unknown tag": {0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52, 0, 2, 2, 0, 0},
		"long at end": {0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52, 0, 2, 5, 0, 0, 0, 0, 0, 0, 0, 1},
		"bad this":    {0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52, 0, 1, 0, 0x21, 0, 1, 0, 0},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBytes(in)
			assert.ErrorIs(t, err, ErrMalformedClass)
		})
	}
}
