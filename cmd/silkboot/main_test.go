package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/silkboot/pkg/archive"
	"github.com/daimatz/silkboot/pkg/archive/archivetest"
	"github.com/daimatz/silkboot/pkg/classfile/classfiletest"
)

func TestParseArgs(t *testing.T) {
	sep := string(filepath.ListSeparator)
	args, err := parseArgs([]string{
		"-roots", "libs.jar" + sep + " paper.jar" + sep,
		"-entrypoint", "org.bukkit.craftbukkit.Main, net.minecraft.server.Main",
		"-v",
		"--", "--port", "25565", "nogui",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"libs.jar", "paper.jar"}, args.rootList())
	assert.Equal(t, archive.Candidates{"org.bukkit.craftbukkit.Main", "net.minecraft.server.Main"}, args.candidates())
	assert.Equal(t, "debug", args.level())
	assert.Equal(t, defaultEnv, args.env)
	assert.Equal(t, defaultWorkDir, args.workDir)
	assert.Equal(t, uint(archive.DefaultCacheSize), args.cacheSize)
	assert.Equal(t, []string{"--port", "25565", "nogui"}, args.gameArgs)
}

func TestParseArgsEnvAndConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "silkboot.conf")
	require.NoError(t, os.WriteFile(cfg, []byte("work-dir /var/silk\nlog-level warn\n"), 0o644))
	t.Setenv("SILKBOOT_ENV", "client")

	args, err := parseArgs([]string{"-config", cfg, "-log-level", "trace"})
	require.NoError(t, err)
	assert.Equal(t, cfg, args.config)
	assert.Equal(t, "client", args.env)
	assert.Equal(t, "/var/silk", args.workDir)
	assert.Equal(t, "trace", args.level())
	assert.Empty(t, args.candidates())

	_, err = parseArgs([]string{"-config", filepath.Join(t.TempDir(), "missing.conf")})
	assert.NoError(t, err)

	_, err = parseArgs([]string{"-no-such-flag"})
	assert.Error(t, err)
}

func TestFindJava(t *testing.T) {
	assert.Equal(t, "/opt/java", findJava("/opt/java"))

	home := t.TempDir()
	t.Setenv("JAVA_HOME", home)
	assert.Equal(t, "java", findJava(""))

	java := filepath.Join(home, "bin", "java")
	require.NoError(t, os.MkdirAll(filepath.Dir(java), 0o755))
	require.NoError(t, os.WriteFile(java, nil, 0o755))
	assert.Equal(t, java, findJava(""))
}

func TestMainWithExitCode(t *testing.T) {
	dir := t.TempDir()
	game := archivetest.WriteJar(t, dir, "paper.jar", map[string][]byte{
		"org/bukkit/craftbukkit/Main.class": classfiletest.New("org/bukkit/craftbukkit/Main").Main().Bytes(),
	})
	other := archivetest.WriteJar(t, dir, "other.jar", map[string][]byte{
		"a/B.class": classfiletest.New("a/B").Bytes(),
	})
	hooks := filepath.Join(dir, "hooks.toml")
	require.NoError(t, os.WriteFile(hooks, []byte("[[hook]]\nname = 1\n"), 0o644))
	noJava := filepath.Join(dir, "no-java")
	work := filepath.Join(dir, "work")

	tests := []struct {
		name string
		argv []string
		want exitCode
	}{
		{"version", []string{"-version"}, exitSuccess},
		{"help", []string{"-h"}, exitSuccess},
		{"bad flag", []string{"-no-such-flag"}, exitParseError},
		{"no roots", nil, exitParseError},
		{"bad env", []string{"-roots", game, "-env", "proxy"}, exitParseError},
		{"bad log level", []string{"-roots", game, "-log-level", "loud"}, exitParseError},
		{"bad hooks", []string{"-roots", game, "-hooks", hooks}, exitParseError},
		{"client", []string{"-roots", game, "-env", "client"}, exitFailure},
		{"not found", []string{"-roots", other}, exitFailure},
		{"launch fails", []string{"-roots", game, "-java", noJava, "-work-dir", work, "--", "nogui"}, exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mainWithExitCode(tt.argv))
		})
	}
}
