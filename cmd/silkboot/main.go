// silkboot launches a Paper server with the Silk patches applied.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/daimatz/silkboot/pkg/boot"
	"github.com/daimatz/silkboot/pkg/loader"
	"github.com/daimatz/silkboot/pkg/logging"
	"github.com/daimatz/silkboot/pkg/patch"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// flag parse errors and invalid settings
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode(os.Args[1:])))
}

func mainWithExitCode(argv []string) exitCode {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	args, err := parseArgs(argv)
	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		return parseError("Failure to parse arguments: %v", err)
	}
	if args.version {
		fmt.Printf("silkboot %s\n", boot.Version)
		return exitSuccess
	}
	if err := logging.Setup(args.level()); err != nil {
		return parseError("Invalid log level: %v", err)
	}

	env, err := boot.ParseEnvType(args.env)
	if err != nil {
		return parseError("%v", err)
	}
	roots := args.rootList()
	if len(roots) == 0 {
		return parseError("No classpath roots given, use -roots")
	}

	pipeline := patch.NewPipeline(patch.Branding())
	if args.hooks != "" {
		units, err := patch.LoadUnits(args.hooks, patch.NewSymbolTable())
		if err != nil {
			return parseError("Failed to load hooks: %v", err)
		}
		pipeline.Register(units...)
	}

	host, err := loader.NewArchiveHost(loader.Config{
		Roots:     roots,
		WorkDir:   args.workDir,
		CacheSize: uint32(args.cacheSize),
		Runtime: &loader.JavaRuntime{
			Java:    findJava(args.java),
			JVMArgs: strings.Fields(args.jvmArgs),
			Stdin:   os.Stdin,
		},
	})
	if err != nil {
		return failure("Failed to create loader: %v", err)
	}

	c, err := boot.New(boot.Options{
		Host:       host,
		Roots:      roots,
		Candidates: args.candidates(),
		Pipeline:   pipeline,
	})
	if err != nil {
		return failure("Failed to create coordinator: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		unix.SIGINT, unix.SIGTERM)
	defer cancel()

	return run(ctx, c, env, args.gameArgs)
}

func run(ctx context.Context, c *boot.Coordinator, env boot.EnvType, gameArgs []string) exitCode {
	if err := c.LocateGame(env, gameArgs); err != nil {
		if errors.Is(err, boot.ErrEntrypointNotFound) {
			return failure("Could not find the game: %v", err)
		}
		return failure("Failed to locate the game: %v", err)
	}
	log.Infof("Silk %s on %s %s", boot.Version, c.GameName(), c.RawGameVersion())
	for _, mod := range c.BuiltinMods() {
		for _, dep := range mod.Depends {
			if dep.ModID == "paper" && !dep.Satisfied(c.NormalizedGameVersion()) {
				log.Warnf("%s %s wants paper %s, found %s",
					mod.Name, mod.Version, strings.Join(dep.Versions, " "), c.NormalizedGameVersion())
			}
		}
	}

	if _, err := c.EntrypointTransformer(); err != nil {
		return failure("Failed to register patches: %v", err)
	}
	if err := c.Launch(ctx); err != nil {
		return failure("%v", err)
	}
	return exitSuccess
}

func parseError(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
