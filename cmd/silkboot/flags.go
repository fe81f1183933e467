package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v3"

	"github.com/daimatz/silkboot/pkg/archive"
)

const (
	defaultWorkDir  = ".silk"
	defaultEnv      = "server"
	defaultLogLevel = "info"
)

var (
	rootsHelp = "Classpath roots searched for the game, separated by '" +
		string(filepath.ListSeparator) + "'."
	entrypointHelp = "Comma-separated entry class candidates, first match wins. " +
		"Defaults to org.bukkit.craftbukkit.Main."
	configHelp    = "Plain config file with one \"flag value\" per line."
	envHelp       = "Environment to launch: server or client."
	hooksHelp     = "TOML file with additional return hooks."
	workDirHelp   = "Directory receiving the overlay jar."
	javaHelp      = "Java executable. Defaults to $JAVA_HOME/bin/java, then java from PATH."
	jvmArgsHelp   = "Space-separated arguments passed to the JVM before the classpath."
	cacheSizeHelp = "Number of archives whose entry lists are kept in memory."
	logLevelHelp  = "Log level: error, warn, info, debug or trace."
	verboseHelp   = "Shorthand for -log-level debug."
	versionHelp   = "Show version."
)

type arguments struct {
	config     string
	roots      string
	entrypoint string
	env        string
	hooks      string
	workDir    string
	java       string
	jvmArgs    string
	cacheSize  uint
	logLevel   string
	verbose    bool
	version    bool

	// gameArgs are the tokens after the flags, passed to the game.
	gameArgs []string
}

func parseArgs(argv []string) (*arguments, error) {
	var args arguments

	fs := flag.NewFlagSet("silkboot", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.UintVar(&args.cacheSize, "cache-size", archive.DefaultCacheSize, cacheSizeHelp)
	fs.StringVar(&args.config, "config", "", configHelp)
	fs.StringVar(&args.entrypoint, "entrypoint", "", entrypointHelp)
	fs.StringVar(&args.env, "env", defaultEnv, envHelp)
	fs.StringVar(&args.hooks, "hooks", "", hooksHelp)
	fs.StringVar(&args.java, "java", "", javaHelp)
	fs.StringVar(&args.jvmArgs, "jvm-args", "", jvmArgsHelp)
	fs.StringVar(&args.logLevel, "log-level", defaultLogLevel, logLevelHelp)
	fs.StringVar(&args.roots, "roots", "", rootsHelp)
	fs.BoolVar(&args.verbose, "v", false, verboseHelp)
	fs.BoolVar(&args.version, "version", false, versionHelp)
	fs.StringVar(&args.workDir, "work-dir", defaultWorkDir, workDirHelp)

	err := ff.Parse(fs, argv,
		ff.WithEnvVarPrefix("SILKBOOT"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return nil, err
	}
	args.gameArgs = fs.Args()
	return &args, nil
}

func (a *arguments) rootList() []string {
	return splitList(a.roots, string(filepath.ListSeparator))
}

func (a *arguments) candidates() archive.Candidates {
	return splitList(a.entrypoint, ",")
}

func (a *arguments) level() string {
	if a.verbose {
		return "debug"
	}
	return a.logLevel
}

func splitList(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// findJava returns the java executable: the flag, then JAVA_HOME, then PATH.
func findJava(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "bin", "java")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "java"
}
