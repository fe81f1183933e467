// Package boot drives the launch of the game: it finds the entry class,
// resolves the game version, registers the class patches with the host
// loader and finally runs the entry routine.
package boot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/daimatz/silkboot/pkg/archive"
	"github.com/daimatz/silkboot/pkg/loader"
	"github.com/daimatz/silkboot/pkg/logging"
	"github.com/daimatz/silkboot/pkg/patch"
	"github.com/daimatz/silkboot/pkg/version"
)

const (
	GameID   = "minecraft"
	GameName = "Minecraft"
)

// Marker resources looked up next to the game jar.
const (
	realmsMarker    = "realmsVersion"
	modLoaderMarker = "ModLoader.class"
)

// DefaultCandidates are the entry classes of a Paper server.
var DefaultCandidates = archive.Candidates{"org.bukkit.craftbukkit.Main"}

// Options configures a Coordinator.
type Options struct {
	Host  loader.Host
	Roots []string
	// Candidates defaults to DefaultCandidates.
	Candidates archive.Candidates
	// Pipeline defaults to one holding the branding patch.
	Pipeline *patch.Pipeline
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// GOOS defaults to runtime.GOOS.
	GOOS string
}

// Coordinator runs the launch lifecycle. It is not safe for concurrent use.
type Coordinator struct {
	host       loader.Host
	roots      []string
	candidates archive.Candidates
	pipeline   *patch.Pipeline
	getenv     func(string) string
	goos       string
	log        *log.Entry

	state     State
	env       EnvType
	args      *Arguments
	gameDir   string
	located   archive.LocateResult
	realmsJar string
	modLoader bool
	version   version.Info
	entry     loader.EntryFunc
}

// New creates a Coordinator in state Unstarted.
func New(opts Options) (*Coordinator, error) {
	if opts.Host == nil {
		return nil, errors.New("boot: no host loader")
	}
	c := &Coordinator{
		host:       opts.Host,
		roots:      append([]string(nil), opts.Roots...),
		candidates: opts.Candidates,
		pipeline:   opts.Pipeline,
		getenv:     opts.Getenv,
		goos:       opts.GOOS,
		log:        logging.Category("GameProvider"),
	}
	if len(c.candidates) == 0 {
		c.candidates = DefaultCandidates
	}
	if c.pipeline == nil {
		c.pipeline = patch.NewPipeline(patch.Branding())
	}
	if c.getenv == nil {
		c.getenv = os.Getenv
	}
	if c.goos == "" {
		c.goos = runtime.GOOS
	}
	return c, nil
}

func (c *Coordinator) State() State { return c.state }

func (c *Coordinator) expect(op string, want State) error {
	if c.state != want {
		return lifecycleError(op, c.state, want)
	}
	return nil
}

// LocateGame finds the game among the roots, resolves its version and binds
// the entry routine. On success the Coordinator is Versioned.
func (c *Coordinator) LocateGame(env EnvType, args []string) error {
	if err := c.expect("locate", Unstarted); err != nil {
		return err
	}
	c.env = env
	c.args = NewArguments()
	c.args.Parse(args)
	if env == EnvClient {
		return fmt.Errorf("%w: the server cannot run on the %s", ErrUnsupportedEnvironment, env)
	}

	view := c.host.View()
	res, ok, err := archive.Locate(c.roots, c.candidates, view)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: none of %s in %d roots", ErrEntrypointNotFound, strings.Join(c.candidates, ", "), len(c.roots))
	}
	c.log, _ = logging.WithLaunch(c.log)
	c.located = res
	if c.realmsJar, _, err = archive.FindSource(c.roots, realmsMarker, view); err != nil {
		return err
	}
	if _, c.modLoader, err = archive.FindSource(c.roots, modLoaderMarker, view); err != nil {
		return err
	}
	c.state = Located
	c.log.Infof("Found %s in %s", res.EntrypointName, res.ArchivePath)

	explicit, _ := c.args.Remove("version")
	info, err := version.Resolve(explicit, c.getenv(version.EnvVar), res.ArchivePath, c.candidates, view)
	if err != nil {
		return err
	}
	c.version = info
	c.state = Versioned
	c.log.Infof("Loading %s %s", GameName, info.Raw)

	c.args.Remove("version")
	if dir, ok := c.args.Remove("gameDir"); ok {
		c.gameDir = dir
	}
	c.args.Remove("assetsDir")

	entry, err := c.host.BindEntry(res.EntrypointName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEntrypointNotFound, err)
	}
	c.entry = entry
	return nil
}

// EntrypointTransformer registers the patch pipeline with the host loader
// and returns it. The Coordinator moves to PatchRegistered.
func (c *Coordinator) EntrypointTransformer() (*patch.Pipeline, error) {
	if err := c.expect("register patches", Versioned); err != nil {
		return nil, err
	}
	if c.entry == nil {
		return nil, fmt.Errorf("%w: entry routine not bound", ErrInvalidLifecycleState)
	}
	c.host.RegisterTransformer(c.pipeline)
	c.state = PatchRegistered
	for _, u := range c.pipeline.Units() {
		c.log.Debugf("Registered patch %s", u.Name())
	}
	return c.pipeline, nil
}

// Launch runs the entry routine with the raw arguments. It can be called
// once, after EntrypointTransformer.
func (c *Coordinator) Launch(ctx context.Context) error {
	if err := c.expect("launch", PatchRegistered); err != nil {
		return err
	}
	c.state = Launched
	c.log.Debugf("Launch arguments: %s", strings.Join(c.LaunchArguments(true), " "))
	if err := c.entry(ctx, c.args.ToSlice()); err != nil {
		return &LaunchError{Entrypoint: c.located.EntrypointName, Err: err}
	}
	return nil
}

func (c *Coordinator) GameID() string   { return GameID }
func (c *Coordinator) GameName() string { return GameName }

func (c *Coordinator) RawGameVersion() string        { return c.version.Raw }
func (c *Coordinator) NormalizedGameVersion() string { return c.version.Normalized }

// VersionInfo returns the resolved version, zero before Versioned.
func (c *Coordinator) VersionInfo() version.Info { return c.version }

func (c *Coordinator) Entrypoint() string { return c.located.EntrypointName }
func (c *Coordinator) GameJar() string    { return c.located.ArchivePath }

// GameContextJars returns the game jar and the realms jar if there is one.
func (c *Coordinator) GameContextJars() []string {
	jars := []string{c.located.ArchivePath}
	if c.realmsJar != "" {
		jars = append(jars, c.realmsJar)
	}
	return jars
}

// LaunchDirectory is --gameDir, or "." when it was not given.
func (c *Coordinator) LaunchDirectory() string {
	if c.gameDir == "" {
		return "."
	}
	return c.gameDir
}

func (c *Coordinator) IsObfuscated() bool { return true }
func (c *Coordinator) IsEnabled() bool    { return true }

// RequiresURLClassLoader reports whether a ModLoader.class sentinel is on
// the classpath.
func (c *Coordinator) RequiresURLClassLoader() bool { return c.modLoader }

// Arguments returns the parsed arguments, nil before LocateGame.
func (c *Coordinator) Arguments() *Arguments { return c.args }

// LaunchArguments returns the arguments passed to the entry routine. With
// sanitize the values of sensitive flags are removed.
func (c *Coordinator) LaunchArguments(sanitize bool) []string {
	if c.args == nil {
		return []string{}
	}
	if !sanitize {
		return c.args.ToSlice()
	}
	return Sanitize(c.args.ToSlice())
}

// CanOpenErrorGUI reports whether an interactive error window may be shown.
func (c *Coordinator) CanOpenErrorGUI() bool {
	if c.goos == "darwin" {
		return false
	}
	if c.args == nil || c.env == EnvClient {
		return true
	}
	if _, ok := c.args.Get("nogui"); ok {
		return false
	}
	for _, e := range c.args.extras {
		if e == "nogui" || e == "--nogui" {
			return false
		}
	}
	return true
}

// BuiltinMods describes the silk mod and what it depends on.
func (c *Coordinator) BuiltinMods() []BuiltinMod {
	return builtinMods(c.located.ArchivePath, c.version)
}
