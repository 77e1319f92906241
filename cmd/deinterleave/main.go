package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"deinterleave/pkg/config"
	"deinterleave/pkg/deinterleave"
	"deinterleave/pkg/plugin"
	"deinterleave/pkg/stackio"
	"deinterleave/pkg/visualization"
)

func main() {
	inputDir := flag.String("input", "", "Directory holding the interleaved stack, one file per frame")
	outputDir := flag.String("output", "", "Directory to write channel stacks to (overrides config)")
	configPath := flag.String("config", "deinterleave.yaml", "Configuration file")
	prefsPath := flag.String("prefs", config.DefaultPrefsPath(), "File persisting the last used options")
	channels := flag.Int("channels", 0, "Number of interleaved channels (default: last used)")
	keep := flag.Bool("keep", true, "Keep the source stack after splitting (default: last used)")
	interactive := flag.Bool("interactive", false, "Ask for the options on the terminal")
	plan := flag.Bool("plan", false, "Print where every frame goes and exit without writing")
	flag.Parse()

	keepSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "keep" {
			keepSet = true
		}
	})

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	ctx := context.Background()
	if err := config.ApplyEnv(ctx, cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	prefs, err := config.LoadPrefs(*prefsPath)
	if err != nil {
		log.Fatalf("Failed to load preferences: %v", err)
	}

	opts := stackio.Options{
		Extensions:      cfg.Input.Extensions,
		CalibrationFile: cfg.Input.CalibrationFile,
	}
	source := stackio.DirSource{Dir: *inputDir, Options: opts}

	options := resolveOptions(cfg, prefs, *channels, *keep, keepSet)

	if *plan {
		if err := printPlan(os.Stdout, source, options.Channels); err != nil {
			log.Fatalf("Plan failed: %v", err)
		}
		return
	}

	var prompter plugin.Prompter
	if *interactive {
		prompter = plugin.NewTerminalPrompter(os.Stdin, os.Stdout)
	} else {
		prompter = plugin.FixedPrompter{Options: options}
	}

	viewer := visualization.NewViewer(cfg.Output.Dir, cfg.Input.CalibrationFile)
	p := plugin.New(source, prompter, viewer, stackio.DirCloser{Dir: *inputDir}, prefs)
	p.Defaults = plugin.Options{
		Channels:   cfg.Deinterleave.Channels,
		KeepSource: cfg.Deinterleave.KeepSource,
	}
	p.Logger = logger

	res, err := p.Run(ctx)
	switch {
	case errors.Is(err, plugin.ErrCancelled):
		return
	case errors.Is(err, plugin.ErrNoImage):
		log.Fatalf("No stack found at %s", *inputDir)
	case err != nil:
		log.Fatalf("Deinterleave failed: %v", err)
	}

	fmt.Printf("Split %s into %d channel stacks (%d channels requested):\n",
		res.Source, len(res.Channels), res.Options.Channels)
	for _, ch := range res.Channels {
		note := ""
		if ch.Remainder {
			note = " (remainder)"
		}
		fmt.Printf("- %s: %d frames%s -> %s\n", ch.Name, ch.Frames, note, filepath.Join(cfg.Output.Dir, ch.Name))
	}
	if res.Uncovered > 0 {
		fmt.Printf("%d trailing frames were not assigned to any channel\n", res.Uncovered)
	}
	if res.SourceClosed {
		fmt.Printf("Source moved to %s\n", filepath.Clean(*inputDir)+stackio.ClosedSuffix)
	}
}

// resolveOptions picks the options for a non-interactive run. Flags win when
// given; otherwise the stored preferences apply, then the config.
func resolveOptions(cfg *config.Config, prefs *config.Prefs, channels int, keep, keepSet bool) plugin.Options {
	opts := plugin.Options{
		Channels:   prefs.GetInt(config.KeyChannels, cfg.Deinterleave.Channels),
		KeepSource: prefs.GetBool(config.KeyKeepSource, cfg.Deinterleave.KeepSource),
	}
	if channels != 0 {
		opts.Channels = channels
	}
	if keepSet {
		opts.KeepSource = keep
	}
	return opts
}

// printPlan prints the channel and timepoint of each source frame and the
// frame ranges each output channel would receive.
func printPlan(w io.Writer, source stackio.DirSource, channels int) error {
	if channels < 1 {
		return plugin.ErrInvalidChannels
	}
	stack, err := source.CurrentStack()
	if err != nil {
		return err
	}
	if stack == nil {
		return plugin.ErrNoImage
	}

	size := stack.Size()
	fmt.Fprintf(w, "%s: %d frames, %d channels\n", stack.Name, size, channels)
	for i, f := range stack.Frames {
		c := deinterleave.Locate(i, channels, size)
		fmt.Fprintf(w, "  %-24s channel %d, time %d\n", f.Filename, c.Channel+1, c.Time)
	}

	shuffled := deinterleave.Shuffle(*stack, channels)
	for _, r := range deinterleave.Plan(size, channels) {
		fmt.Fprintf(w, "%s: %d frames, %s .. %s\n",
			deinterleave.ChannelName(stack.Name, r.Ordinal), r.Len(),
			shuffled.Frames[r.Begin].Filename, shuffled.Frames[r.End-1].Filename)
	}
	if n := deinterleave.Uncovered(size, channels); n > 0 {
		fmt.Fprintf(w, "%d trailing frames not assigned to any channel\n", n)
	}
	return nil
}
