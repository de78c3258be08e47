// Command gltfload loads glTF 2.0 assets with the oxy-gltf loader and reports on them.
//
// Usage:
//
//	gltfload <command> [flags] <file>
//
// Commands:
//
//	info     print a summary of the constructed assets
//	dump     print the constructed model in full
//	watch    reload the asset whenever it or its external buffers change
//	extract  merge a node hierarchy into a single mesh and write it as GLB
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/engine/config"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type command struct {
	name  string
	usage string
	flags func(fs *flag.FlagSet) func(ctx context.Context, env *env, file string) error
}

// env is the state shared by every command once flags are parsed.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	loader loader.Loader
}

var commands = []command{
	{name: "info", usage: "print a summary of the constructed assets", flags: infoFlags},
	{name: "dump", usage: "print the constructed model in full", flags: dumpFlags},
	{name: "watch", usage: "reload the asset whenever it changes", flags: watchFlags},
	{name: "extract", usage: "merge a node hierarchy into one mesh and write it as GLB", flags: extractFlags},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "gltfload:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage()
		return errors.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.Load(configPath(args[1:]))
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.String("config", "", "config file (yaml or toml)")
	verbose := fs.Bool("v", false, "log to stderr")
	cfg.BindFlags(fs)
	exec := cmd.flags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.Errorf("%s: expected exactly one file, got %d", cmd.name, fs.NArg())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging, *verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	e := &env{
		cfg: cfg,
		log: log,
		loader: loader.NewLoader(loader.BackendTypeGLTF,
			loader.WithConfig(cfg),
			loader.WithLogger(log),
		),
	}
	return exec(ctx, e, fs.Arg(0))
}

// configPath finds the -config value ahead of flag parsing so file values become the flag defaults.
func configPath(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gltfload <command> [flags] <file>")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.usage)
	}
}

// load runs one load request and treats a failed request as an error.
func (e *env) load(ctx context.Context, file string, opts ...loader.RequestOption) (*loader.Result, error) {
	res, err := e.loader.Load(ctx, file, opts...)
	if err != nil {
		return res, errors.WithMessagef(err, "load %s", file)
	}
	return res, nil
}
