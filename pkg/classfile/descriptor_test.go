package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/silkboot/pkg/bytecode"
	"github.com/daimatz/silkboot/pkg/classfile/classfiletest"
)

func TestDescriptors(t *testing.T) {
	tests := []struct {
		desc   string
		params []string
		ret    string
	}{
		{"()V", nil, "V"},
		{"(Ljava/lang/String;)Ljava/lang/String;", []string{"Ljava/lang/String;"}, "Ljava/lang/String;"},
		{"(IJ[[Ljava/lang/Object;[D)Z", []string{"I", "J", "[[Ljava/lang/Object;", "[D"}, "Z"},
		{"([Ljava/lang/String;)V", []string{"[Ljava/lang/String;"}, "V"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			params, err := ParamTypes(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.params, params)

			n, err := ParamCount(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, len(tt.params), n)

			ret, err := ReturnType(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.ret, ret)
		})
	}

	for _, bad := range []string{"", "V", "(", "()", "(Ljava/lang/String)V", "(Q)V", "([)V"} {
		_, err := ParamTypes(bad)
		_, rerr := ReturnType(bad)
		assert.True(t, err != nil || rerr != nil, bad)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "org/bukkit/craftbukkit/Main", InternalName("org.bukkit.craftbukkit.Main"))
	assert.Equal(t, "org/bukkit/craftbukkit/Main", InternalName("org/bukkit/craftbukkit/Main"))
	assert.Equal(t, "org.bukkit.craftbukkit.Main", BinaryName("org/bukkit/craftbukkit/Main"))
	assert.Equal(t, "ModLoader.class", ResourceName("ModLoader"))
	assert.Equal(t, "a/b/C.class", ResourceName("a.b.C"))
}

func TestAddEntriesDeduplicate(t *testing.T) {
	b := classfiletest.New("Owner")
	existing := b.Methodref("Hook", "wrap", "(I)I")
	cf, err := ParseBytes(b.Bytes())
	require.NoError(t, err)
	size := len(cf.ConstantPool)

	idx, err := cf.AddMethodref("Hook", "wrap", "(I)I")
	require.NoError(t, err)
	assert.Equal(t, existing, idx)
	assert.Len(t, cf.ConstantPool, size)

	u, err := cf.AddUtf8("Owner")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), u)

	idx, err = cf.AddMethodref("Hook", "wrap", "(J)J")
	require.NoError(t, err)
	assert.Equal(t, uint16(size+2), idx)
	assert.Len(t, cf.ConstantPool, size+3)

	info, err := ResolveMethodref(cf.ConstantPool, idx)
	require.NoError(t, err)
	assert.Equal(t, "(J)J", info.Descriptor)
}

func TestAddFailsWhenPoolIsFull(t *testing.T) {
	cf := &ClassFile{ConstantPool: make([]ConstantPoolEntry, maxPoolCount)}
	_, err := cf.AddUtf8("x")
	assert.ErrorIs(t, err, ErrConstantPoolFull)

	cf = &ClassFile{ConstantPool: make([]ConstantPoolEntry, maxPoolCount-1)}
	_, err = cf.AddUtf8("x")
	assert.NoError(t, err)
	_, err = cf.add(&ConstantLong{Value: 1})
	assert.ErrorIs(t, err, ErrConstantPoolFull)
}

func TestNewClass(t *testing.T) {
	cf, err := NewClass("a/Hooks", "java/lang/Object", 52)
	require.NoError(t, err)
	s, err := cf.AddString("brand")
	require.NoError(t, err)
	again, err := cf.AddString("brand")
	require.NoError(t, err)
	assert.Equal(t, s, again)

	_, err = cf.AddMethod(AccPublic|AccStatic, "brand", "(Ljava/lang/String;)Ljava/lang/String;", &CodeAttribute{
		MaxStack:  1,
		MaxLocals: 1,
		Code:      []byte{bytecode.OpLdcW, byte(s >> 8), byte(s), bytecode.OpAreturn},
	})
	require.NoError(t, err)
	_, err = cf.AddMethod(AccPublic|AccAbstract, "tick", "()V", nil)
	require.NoError(t, err)

	out, err := cf.Bytes()
	require.NoError(t, err)
	got, err := ParseBytes(out)
	require.NoError(t, err)

	name, err := got.ClassName()
	require.NoError(t, err)
	assert.Equal(t, "a/Hooks", name)
	assert.Equal(t, "java/lang/Object", got.SuperClassName())
	assert.Equal(t, uint16(52), got.MajorVersion)

	m := got.FindMethod("brand", "(Ljava/lang/String;)Ljava/lang/String;")
	require.NotNil(t, m)
	require.NotNil(t, m.Code)
	assert.Equal(t, []byte{bytecode.OpLdcW, byte(s >> 8), byte(s), bytecode.OpAreturn}, m.Code.Code)
	assert.Nil(t, got.FindMethod("tick", "()V").Code)

	// Decoding and re-encoding the generated body is stable as well.
	_, err = m.Body()
	require.NoError(t, err)
	m.MarkDirty()
	twice, err := got.Bytes()
	require.NoError(t, err)
	assert.Equal(t, out, twice)
}
