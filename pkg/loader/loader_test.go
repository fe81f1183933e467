package loader

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/silkboot/pkg/archive/archivetest"
	"github.com/daimatz/silkboot/pkg/bytecode"
	"github.com/daimatz/silkboot/pkg/classfile"
	"github.com/daimatz/silkboot/pkg/classfile/classfiletest"
	"github.com/daimatz/silkboot/pkg/patch"
)

type recordingRuntime struct {
	cmds []Command
	err  error
}

func (r *recordingRuntime) Run(_ context.Context, cmd Command) error {
	r.cmds = append(r.cmds, cmd)
	return r.err
}

type failingTransformer struct{}

func (failingTransformer) OnClassLoad(string, []byte) ([]byte, bool, error) {
	return nil, false, errors.New("boom")
}

func serverClass() []byte {
	b := classfiletest.New("net/minecraft/server/MinecraftServer")
	b.Method(classfiletest.Method{
		Flags:     classfile.AccPublic,
		Name:      "getServerModName",
		Desc:      "()Ljava/lang/String;",
		MaxStack:  1,
		MaxLocals: 1,
		Code:      []byte{bytecode.OpLdc, byte(b.String("vanilla")), bytecode.OpAreturn},
	})
	return b.Bytes()
}

func gameJar(t *testing.T, dir string) string {
	t.Helper()
	notMain := classfiletest.New("org/bukkit/craftbukkit/Launcher")
	notMain.Method(classfiletest.Method{
		Flags:     classfile.AccPublic,
		Name:      "main",
		Desc:      "([Ljava/lang/String;)V",
		MaxLocals: 2,
		Code:      []byte{bytecode.OpReturn},
	})
	return archivetest.WriteJar(t, dir, "paper.jar", map[string][]byte{
		"org/bukkit/craftbukkit/Main.class":          classfiletest.New("org/bukkit/craftbukkit/Main").Main().Bytes(),
		"org/bukkit/craftbukkit/Launcher.class":      notMain.Bytes(),
		"org/bukkit/craftbukkit/Empty.class":         classfiletest.New("org/bukkit/craftbukkit/Empty").Bytes(),
		"net/minecraft/server/MinecraftServer.class": serverClass(),
		"META-INF/MANIFEST.MF":                       []byte("Manifest-Version: 1.0\n"),
	})
}

func newHost(t *testing.T, roots ...string) (*ArchiveHost, *recordingRuntime) {
	t.Helper()
	rt := &recordingRuntime{}
	h, err := NewArchiveHost(Config{Roots: roots, WorkDir: filepath.Join(t.TempDir(), "work"), Runtime: rt})
	require.NoError(t, err)
	return h, rt
}

func TestLoadClassCaches(t *testing.T) {
	dir := t.TempDir()
	h, _ := newHost(t, filepath.Join(dir, "missing.jar"), gameJar(t, dir))

	a, err := h.LoadClass("org.bukkit.craftbukkit.Main")
	require.NoError(t, err)
	b, err := h.LoadClass("org/bukkit/craftbukkit/Main")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = h.LoadClass("com.example.Nope")
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestBindEntry(t *testing.T) {
	dir := t.TempDir()
	h, _ := newHost(t, gameJar(t, dir))

	_, err := h.BindEntry("org.bukkit.craftbukkit.Main")
	require.NoError(t, err)

	for _, name := range []string{
		"org.bukkit.craftbukkit.Launcher",
		"org.bukkit.craftbukkit.Empty",
		"com.example.Nope",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.BindEntry(name)
			assert.ErrorIs(t, err, ErrEntryRoutineMissing)
		})
	}
}

func TestEntryRunsWithOverlay(t *testing.T) {
	dir := t.TempDir()
	jar := gameJar(t, dir)
	h, rt := newHost(t, jar)

	entry, err := h.BindEntry("org/bukkit/craftbukkit/Main")
	require.NoError(t, err)
	h.RegisterTransformer(patch.NewPipeline(patch.Branding()))

	require.NoError(t, entry(context.Background(), []string{"--nogui"}))
	require.Len(t, rt.cmds, 1)
	cmd := rt.cmds[0]
	assert.Equal(t, "org.bukkit.craftbukkit.Main", cmd.MainClass)
	assert.Equal(t, []string{"--nogui"}, cmd.Args)
	require.Len(t, cmd.Classpath, 2)
	assert.Equal(t, OverlayName, filepath.Base(cmd.Classpath[0]))
	assert.Equal(t, jar, cmd.Classpath[1])
	assert.Equal(t, []string{"net/minecraft/server/MinecraftServer"}, h.Patched())

	files := overlayFiles(t, cmd.Classpath[0])
	require.Len(t, files, 2)

	cf, err := classfile.ParseBytes(files["net/minecraft/server/MinecraftServer.class"])
	require.NoError(t, err)
	code := cf.FindMethod("getServerModName", "()Ljava/lang/String;").Code.Code
	require.Len(t, code, 6)
	assert.Equal(t, uint8(bytecode.OpInvokestatic), code[2])

	brand, err := patch.BrandingClass()
	require.NoError(t, err)
	assert.Equal(t, brand, files[patch.BrandingHook.Owner+".class"])

	defined, err := h.LoadClass("net.minecraft.server.MinecraftServer")
	require.NoError(t, err)
	assert.Len(t, defined.FindMethod("getServerModName", "()Ljava/lang/String;").Code.Code, 6)
}

func overlayFiles(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	files := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = data
	}
	return files
}

func TestEntryHookClasses(t *testing.T) {
	dir := t.TempDir()
	motd, err := patch.NewReturnHook(patch.ReturnHookConfig{
		Name:        "motd",
		Classes:     []string{"net.minecraft.server.MinecraftServer"},
		MethodNames: []string{"getServerModName"},
		ReturnType:  "Ljava/lang/String;",
		Hook:        patch.HookSymbol{Owner: "a/Hooks", Name: "motd", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;"},
	})
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		h, rt := newHost(t, gameJar(t, dir))
		entry, err := h.BindEntry("org.bukkit.craftbukkit.Main")
		require.NoError(t, err)
		h.RegisterTransformer(patch.NewPipeline(motd))
		err = entry(context.Background(), nil)
		assert.ErrorIs(t, err, ErrHookClassMissing)
		assert.ErrorContains(t, err, "a.Hooks")
		assert.Empty(t, rt.cmds)
	})

	t.Run("on the classpath", func(t *testing.T) {
		mods := archivetest.WriteJar(t, dir, "mods.jar", map[string][]byte{
			"a/Hooks.class":                     classfiletest.New("a/Hooks").Bytes(),
			patch.BrandingHook.Owner + ".class": classfiletest.New(patch.BrandingHook.Owner).Bytes(),
		})
		h, rt := newHost(t, gameJar(t, dir), mods)
		entry, err := h.BindEntry("org.bukkit.craftbukkit.Main")
		require.NoError(t, err)
		h.RegisterTransformer(patch.NewPipeline(patch.Branding(), motd))
		require.NoError(t, entry(context.Background(), nil))

		require.Len(t, rt.cmds, 1)
		files := overlayFiles(t, rt.cmds[0].Classpath[0])
		assert.Len(t, files, 1)
		assert.Contains(t, files, "net/minecraft/server/MinecraftServer.class")
	})
}

type mapLoader map[string]*classfile.ClassFile

func (m mapLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := m[classfile.InternalName(name)]; ok {
		return cf, nil
	}
	return nil, ErrClassNotFound
}

func TestFindEntry(t *testing.T) {
	main, err := classfile.ParseBytes(classfiletest.New("a/Main").Main().Bytes())
	require.NoError(t, err)
	empty, err := classfile.ParseBytes(classfiletest.New("a/Empty").Bytes())
	require.NoError(t, err)
	cl := mapLoader{"a/Main": main, "a/Empty": empty}

	m, err := FindEntry(cl, "a.Main")
	require.NoError(t, err)
	assert.Equal(t, "main", m.Name)

	_, err = FindEntry(cl, "a.Empty")
	assert.ErrorIs(t, err, ErrEntryRoutineMissing)
	_, err = FindEntry(cl, "a.Nope")
	assert.ErrorIs(t, err, ErrEntryRoutineMissing)
}

func TestEntryWithoutTransformer(t *testing.T) {
	dir := t.TempDir()
	jar := gameJar(t, dir)
	h, rt := newHost(t, jar)

	entry, err := h.BindEntry("org.bukkit.craftbukkit.Main")
	require.NoError(t, err)
	require.NoError(t, entry(context.Background(), nil))
	require.Len(t, rt.cmds, 1)
	assert.Equal(t, []string{jar}, rt.cmds[0].Classpath)
}

func TestEntryFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("transformer", func(t *testing.T) {
		h, rt := newHost(t, gameJar(t, dir))
		entry, err := h.BindEntry("org.bukkit.craftbukkit.Main")
		require.NoError(t, err)
		h.RegisterTransformer(failingTransformer{})
		err = entry(context.Background(), nil)
		assert.ErrorContains(t, err, "boom")
		assert.Empty(t, rt.cmds)
	})

	t.Run("runtime", func(t *testing.T) {
		h, rt := newHost(t, gameJar(t, dir))
		rt.err = errors.New("exit status 1")
		entry, err := h.BindEntry("org.bukkit.craftbukkit.Main")
		require.NoError(t, err)
		assert.ErrorIs(t, entry(context.Background(), nil), rt.err)
	})
}

func TestNewArchiveHostNeedsRuntime(t *testing.T) {
	_, err := NewArchiveHost(Config{})
	assert.Error(t, err)
}

func TestJavaRuntime(t *testing.T) {
	r := &JavaRuntime{JVMArgs: []string{"-Xmx2G"}}
	argv := r.CommandLine(Command{
		Classpath: []string{"overlay.jar", "paper.jar"},
		MainClass: "org.bukkit.craftbukkit.Main",
		Args:      []string{"--nogui"},
	})
	sep := string(filepath.ListSeparator)
	assert.Equal(t, []string{"java", "-Xmx2G", "-cp", "overlay.jar" + sep + "paper.jar", "org.bukkit.craftbukkit.Main", "--nogui"}, argv)

	r = &JavaRuntime{Java: filepath.Join(t.TempDir(), "no-java")}
	err := r.Run(context.Background(), Command{MainClass: "a.B"})
	assert.ErrorContains(t, err, "java: ")
}
