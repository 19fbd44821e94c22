// gridwarp is a CLI for deforming triangle meshes with control grids.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/config"
	"github.com/Faultbox/gridwarp/internal/deform"
	"github.com/Faultbox/gridwarp/internal/grid"
	"github.com/Faultbox/gridwarp/internal/logger"
	"github.com/Faultbox/gridwarp/internal/mesh"
	"github.com/Faultbox/gridwarp/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "grid":
		cmdGrid(args)
	case "deform", "d":
		cmdDeform(args)
	case "watch", "w":
		cmdWatch(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gridwarp - free-form mesh deformation with control grids

Usage:
  gridwarp <command> [options]

Commands:
  info <file.mesh>                     Show mesh information
  grid [options] [file.mesh]           Build a grid and report how the mesh binds to it
  deform [options] <file.mesh>         Apply an edit script and save the result
  watch [options] <file.mesh>          Re-run deform whenever the mesh or script changes
  config [-o file]                     Print or write the effective configuration

Common options:
  -config <file>   Config file (default ./gridwarp.yaml)
  -kind <kind>     bilinear, barycentric or trilinear
  -size <n>        Grid vertices per axis (2-10)
  -attenuate       Spread vertex moves to the rest of the grid
  -seed <n>        Seed for barycentric grids
  -debug           Enable debug logging

Examples:
  gridwarp info cow.mesh
  gridwarp grid -kind barycentric -size 5 cow.mesh
  gridwarp deform -script bend.yaml -o bent.mesh cow.mesh
  gridwarp watch -script bend.yaml -o bent.mesh cow.mesh`)
}

// setup parses fs, loads the configuration and starts the logger. Callers
// must defer logger.Sync.
func setup(fs *flag.FlagSet, args []string) *config.Config {
	config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger.Sugar.Debugf("Config: %+v", cfg)
	return cfg
}

// meshArg returns the mesh named on the command line, falling back to the
// configured one.
func meshArg(fs *flag.FlagSet, cfg *config.Config) string {
	if fs.NArg() > 0 {
		return fs.Arg(0)
	}
	return cfg.Mesh.Path
}

func fatal(msg string, err error) {
	logger.Error(msg, zap.Error(err))
	logger.Sync()
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	path := meshArg(fs, cfg)
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: gridwarp info <file.mesh>")
		os.Exit(1)
	}

	store := mesh.NewStore()
	if err := store.Load(path); err != nil {
		fatal("cannot read mesh", err)
	}

	c := store.Centroid()
	fmt.Printf("Mesh:       %s\n", path)
	fmt.Printf("Triangles:  %d\n", store.TriangleCount())
	fmt.Printf("Vertices:   %d\n", len(store.Rest()))
	fmt.Printf("Model size: %.4f\n", store.ModelSize())
	fmt.Printf("Centroid:   (%.4f, %.4f, %.4f)\n", c.X, c.Y, c.Z)
}

func cmdGrid(args []string) {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	modelSize := fs.Float64("model-size", 0, "Grid extent when no mesh is given (default 1)")
	verbose := fs.Bool("v", false, "List grid vertices")
	cfg := setup(fs, args)
	defer logger.Sync()

	store := mesh.NewStore()
	if path := meshArg(fs, cfg); path != "" {
		if err := store.Load(path); err != nil {
			fatal("cannot read mesh", err)
		}
	}

	size := store.ModelSize()
	if store.IsEmpty() && *modelSize > 0 {
		size = float32(*modelSize)
	}

	engine := grid.NewEngine()
	g, err := engine.Build(cfg.GridParams(size))
	if err != nil {
		fatal("cannot build grid", err)
	}

	fmt.Printf("Grid:       %s, %d per axis\n", g.Kind(), cfg.Grid.Size)
	fmt.Printf("Vertices:   %d\n", g.Len())
	fmt.Printf("Edges:      %d\n", len(g.Edges()))
	if tris := g.Triangles(); tris != nil {
		fmt.Printf("Triangles:  %d\n", len(tris))
	}
	fmt.Printf("Model size: %.4f\n", g.ModelSize)

	if !store.IsEmpty() {
		printStats(store.Rebind(g))
	}

	if *verbose {
		fmt.Println()
		for i, v := range g.Vertices {
			fmt.Printf("  %4d  % .4f % .4f % .4f\n", i, v.X, v.Y, v.Z)
		}
	}
}

func printStats(st deform.Stats) {
	fmt.Printf("Bound:      %d of %d mesh vertices\n", st.Bound, st.Total)
	if st.Extrapolated > 0 {
		fmt.Printf("  outside lattice: %d\n", st.Extrapolated)
	}
	if st.Missed > 0 {
		fmt.Printf("  not covered:     %d (kept at rest)\n", st.Missed)
	}
}

// jobFlags registers the flags shared by deform and watch.
func jobFlags(fs *flag.FlagSet) (script, output *string, force *bool) {
	script = fs.String("script", "", "YAML edit script to apply")
	output = fs.String("o", "", "Output mesh (default <input>-warped.mesh)")
	force = fs.Bool("f", false, "Overwrite an existing output file")
	return script, output, force
}

func newJob(fs *flag.FlagSet, cfg *config.Config, script, output string, force bool) session.Job {
	in := meshArg(fs, cfg)
	if in == "" {
		fmt.Fprintf(os.Stderr, "Usage: gridwarp %s [options] <file.mesh>\n", fs.Name())
		os.Exit(1)
	}

	if output == "" {
		output = cfg.Mesh.Output
	}
	if output == "" {
		ext := filepath.Ext(in)
		output = in[:len(in)-len(ext)] + "-warped"
	}
	return session.Job{Mesh: in, Script: script, Output: output, Overwrite: force}
}

func cmdDeform(args []string) {
	fs := flag.NewFlagSet("deform", flag.ExitOnError)
	script, output, force := jobFlags(fs)
	cfg := setup(fs, args)
	defer logger.Sync()

	job := newJob(fs, cfg, *script, *output, *force)
	s := session.New(cfg)
	out, err := s.Run(job)
	if err != nil {
		fatal("deform failed", err)
	}

	if b, ok := s.Mesh().Bindings(); ok {
		printStats(b.Stats())
	}
	fmt.Printf("Wrote %s\n", out)
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	script, output, _ := jobFlags(fs)
	cfg := setup(fs, args)
	defer logger.Sync()

	job := newJob(fs, cfg, *script, *output, true)
	if samePath(session.MeshPath(job.Output), job.Mesh) {
		fmt.Fprintln(os.Stderr, "Error: watch output must differ from the input mesh")
		os.Exit(1)
	}
	s := session.New(cfg)

	paths := []string{job.Mesh}
	if job.Script != "" {
		paths = append(paths, job.Script)
	}
	w, err := session.NewWatcher(0, paths...)
	if err != nil {
		fatal("cannot watch files", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	run := func() {
		out, err := s.Run(job)
		if err != nil {
			logger.Warn("deform failed, waiting for the next change", zap.Error(err))
			return
		}
		fmt.Printf("Wrote %s\n", out)
	}

	run()
	logger.Info("watching for changes", zap.Strings("paths", paths))
	for path := range w.Changes() {
		logger.Info("change detected", zap.String("path", path))
		run()
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		fatal("watcher stopped", err)
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	output := fs.String("o", "", "Write the configuration to this file")
	save := fs.Bool("save", false, "Write the configuration to the user config directory")
	cfg := setup(fs, args)
	defer logger.Sync()

	switch {
	case *save:
		path, err := cfg.Save()
		if err != nil {
			fatal("cannot save config", err)
		}
		fmt.Printf("Wrote %s\n", path)
	case *output != "":
		if err := cfg.SaveTo(*output); err != nil {
			fatal("cannot save config", err)
		}
		fmt.Printf("Wrote %s\n", *output)
	default:
		data, err := cfg.Marshal()
		if err != nil {
			fatal("cannot encode config", err)
		}
		os.Stdout.Write(data)
	}
}
