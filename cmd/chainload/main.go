package main

import (
	"fmt"
	"log"
	"os"

	. "github.com/ZenLiuCN/chainload"
	"github.com/ZenLiuCN/chainload/config"
	"github.com/ZenLiuCN/chainload/export"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("failure %s", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Usage = "chain loading proxy tool"
	app.Name = "chainload"
	app.Description = "load, inspect and unload native modules the same way the wrapper add-on does"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}},
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "toml configuration file"},
		&cli.StringSliceFlag{Name: "search", Aliases: []string{"s"}, Usage: "extra library search path"},
		&cli.BoolFlag{Name: "objects", Aliases: []string{"o"}, Usage: "link go object files (.o/.a) with goloader"},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "load",
			Action: load,
			Usage:  "load configured modules and the argument modules, list them, then unload all",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "keep", Aliases: []string{"k"}, Usage: "skip the final unload"},
			},
			Args: true,
		},
		{
			Name:   "inspect",
			Action: inspect,
			Usage:  "display lifecycle hooks of libraries without calling them",
			Args:   true,
		},
		{
			Name:   "symbols",
			Action: symbols,
			Usage:  "display symbols of go object files",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pkg", Aliases: []string{"p"}, Usage: "package path or default main"},
			},
			Args: true,
		},
	}
	return app
}

func settings(ctx *cli.Context) (cfg *config.Config, err error) {
	if p := ctx.String("config"); p != "" {
		if cfg, err = config.Load(p); err != nil {
			return
		}
	} else {
		cfg = config.Default()
	}
	if ctx.IsSet("debug") {
		cfg.Debug = ctx.Bool("debug")
	}
	if ctx.IsSet("objects") {
		cfg.Objects = ctx.Bool("objects")
	}
	cfg.SearchPaths = append(cfg.SearchPaths, ctx.StringSlice("search")...)
	return
}

func logger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(cfg.Level())
	c.Encoding = "console"
	return c.Build()
}

func loader(cfg *config.Config) (Loader, error) {
	if cfg.Objects {
		return NewMux()
	}
	return &Mux{Native: NewNativeLoader()}, nil
}

func load(ctx *cli.Context) (err error) {
	cfg, err := settings(ctx)
	if err != nil {
		return
	}
	cfg.Modules = append(cfg.Modules, ctx.Args().Slice()...)
	if len(cfg.Modules) == 0 {
		return fmt.Errorf("missing modules to load")
	}
	lg, err := logger(cfg)
	if err != nil {
		return
	}
	defer func() { _ = lg.Sync() }()
	l, err := loader(cfg)
	if err != nil {
		return
	}
	s := export.New(l, export.WithLogger(lg))
	failed := config.Apply(cfg, s)
	w := ctx.App.Writer
	s.GetLoadedLibraryNames(func(names []string) {
		_, _ = fmt.Fprintf(w, "loaded %d modules\n", s.GetLoadedLibraryCount())
		for _, name := range names {
			m, _ := s.Pool().Get(name)
			_, _ = fmt.Fprintf(w, "\t%s\t%s\n", name, m.State())
		}
	})
	if !ctx.Bool("keep") {
		s.HostUnloading()
		if left := s.Pool().Names(); len(left) > 0 {
			err = multierr.Append(err, fmt.Errorf("modules stuck after unload: %v", left))
		}
	}
	if len(failed) > 0 {
		err = multierr.Append(err, fmt.Errorf("modules failed to load: %v", failed))
	}
	return
}

func inspect(ctx *cli.Context) (err error) {
	cfg, err := settings(ctx)
	if err != nil {
		return
	}
	l, err := loader(cfg)
	if err != nil {
		return
	}
	defer func() { err = multierr.Append(err, l.Close()) }()
	for _, dir := range cfg.SearchPaths {
		if e := l.AddSearchPath(dir); e != nil {
			log.Printf("skip search path: %s", e)
		}
	}
	for _, s := range ctx.Args().Slice() {
		r, e := Inspect(l, s)
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		if cfg.Debug {
			spew.Fdump(ctx.App.Writer, r)
		}
		_, _ = fmt.Fprint(ctx.App.Writer, r.String())
	}
	return
}

func symbols(ctx *cli.Context) (err error) {
	for _, s := range ctx.Args().Slice() {
		var v []string
		if v, err = ObjectSymbols(s, ctx.String("pkg")); err != nil {
			return
		}
		_, _ = fmt.Fprintf(ctx.App.Writer, "%s\n", s)
		for _, sym := range v {
			_, _ = fmt.Fprintf(ctx.App.Writer, "\t%s\n", sym)
		}
	}
	return
}
