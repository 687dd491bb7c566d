package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/callsite"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/rhino1998/callbind/pkg/registry"
	"github.com/urfave/cli/v3"
)

func newLogger(w *os.File, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

type env struct {
	logger   *slog.Logger
	registry *registry.Registry
	binder   *binder.Binder
	cache    *callsite.Cache
}

func setup(c *cli.Command) (*env, error) {
	logger := newLogger(os.Stderr, c.Bool("debug"))

	binderConfig, cacheConfig, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	b, err := binder.New(logger, binderConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize binder: %w", err)
	}

	cache, err := callsite.NewCache(logger, b, cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	path := c.String("registry")
	if path == "" {
		return nil, fmt.Errorf("must provide a registry file with --registry")
	}

	reg, err := registry.Load(logger, path)
	if err != nil {
		return nil, err
	}

	return &env{
		logger:   logger,
		registry: reg,
		binder:   b,
		cache:    cache,
	}, nil
}

// call parses "name arg..." from the command's arguments.
func (e *env) call(c *cli.Command) (*binder.Overloads, binder.CallSignature, []any, error) {
	if c.Args().Len() < 1 {
		return nil, binder.CallSignature{}, nil, fmt.Errorf("must provide a method name")
	}

	overloads, err := e.registry.Overloads(c.Args().First())
	if err != nil {
		return nil, binder.CallSignature{}, nil, err
	}

	sig, values, err := e.registry.ParseArguments(c.Args().Tail())
	if err != nil {
		return nil, binder.CallSignature{}, nil, err
	}

	return overloads, sig, values, nil
}

func printCandidates(w io.Writer, overloads *binder.Overloads) {
	fmt.Fprintf(w, "%s (%s)\n", overloads.Name, overloads.ID)
	for _, set := range overloads.Sets() {
		fmt.Fprintf(w, "  arity %d\n", set.Arity)
		for _, c := range set.Candidates {
			fmt.Fprintf(w, "    %s\n", c)
		}
	}
}

func printResolution(w io.Writer, result *binder.BindingResult) {
	fmt.Fprintf(w, "candidate: %s\n", result.Candidate)
	fmt.Fprintf(w, "level:     %d\n", int(result.Level))
	fmt.Fprintf(w, "arguments: %s\n", result.Arguments)
	fmt.Fprintf(w, "delegate:  %t\n", result.Plan.HasDelegate())
	fmt.Fprintf(w, "plan:\n%s", result.Plan)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := &cli.Command{
		Name:  "callbind",
		Usage: "Resolve and invoke calls against a registry of overloads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "registry",
				Aliases: []string{"r"},
				Usage:   "YAML registry file",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML binder config file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "names",
				Usage: "List the declared method names",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := setup(c)
					if err != nil {
						return err
					}

					for _, name := range e.registry.Names() {
						fmt.Println(name)
					}
					return nil
				},
			},
			{
				Name:      "candidates",
				Usage:     "List the candidates of an overload set by arity",
				ArgsUsage: "name",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := setup(c)
					if err != nil {
						return err
					}

					if c.Args().Len() != 1 {
						return fmt.Errorf("must provide exactly one method name")
					}

					overloads, err := e.registry.Overloads(c.Args().First())
					if err != nil {
						return err
					}

					printCandidates(os.Stdout, overloads)
					return nil
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a call and print the chosen candidate and its plan",
				ArgsUsage: "name [args...]",
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := setup(c)
					if err != nil {
						return err
					}

					overloads, sig, values, err := e.call(c)
					if err != nil {
						return err
					}

					result, err := e.binder.Bind(overloads, sig, binder.RestrictArguments(values...))
					if err != nil {
						return err
					}

					printResolution(os.Stdout, result)
					return nil
				},
			},
			{
				Name:      "invoke",
				Usage:     "Resolve a call through a call site and run it",
				ArgsUsage: "name [args...]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "repeat",
						Usage: "number of times to run the call",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "stats",
						Usage: "print call site statistics",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					e, err := setup(c)
					if err != nil {
						return err
					}

					overloads, sig, values, err := e.call(c)
					if err != nil {
						return err
					}

					site := e.cache.NewSite(overloads, sig)
					defer site.Close()

					repeat := int(c.Int("repeat"))
					for i := 0; i < repeat; i++ {
						if err := ctx.Err(); err != nil {
							return err
						}

						res, err := site.Invoke(values...)
						if err != nil {
							return err
						}
						if i == repeat-1 {
							fmt.Println(object.Inspect(res))
						}
					}

					if c.Bool("stats") {
						hits, misses := site.Stats()
						fmt.Fprintf(os.Stderr, "state=%s hits=%d misses=%d binds=%d\n", site.State(), hits, misses, e.cache.Binds())
					}

					return nil
				},
			},
		},
	}

	err := cmd.Run(ctx, os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}
