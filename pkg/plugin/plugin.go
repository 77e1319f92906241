// Package plugin runs the deinterleaver against a host application.
//
// The host is reached only through the small capabilities defined here:
// where the current stack comes from, how the user is asked for options,
// where result stacks are shown, how the source is closed and where the
// dialog defaults persist. None of them is touched by the core transformation.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"deinterleave/internal/models"
	"deinterleave/pkg/config"
	"deinterleave/pkg/deinterleave"
)

var (
	// ErrNoImage is returned when the host has no current stack
	ErrNoImage = errors.New("no image is open")

	// ErrNotAStack is returned when the current image has a single frame
	ErrNotAStack = errors.New("please select a stack before choosing Deinterleave")

	// ErrCancelled is returned when the user dismisses the options prompt.
	// It is a silent abort; callers should not report it as a failure.
	ErrCancelled = errors.New("cancelled")

	// ErrInvalidChannels is returned when the prompt yields fewer than one channel
	ErrInvalidChannels = errors.New("channel count must be at least 1")
)

// Options are the values asked from the user before splitting
type Options struct {
	Channels   int
	KeepSource bool
}

// ImageSource supplies the stack the user is working on. A nil stack with a
// nil error means nothing is open.
type ImageSource interface {
	CurrentStack() (*models.Stack, error)
}

// Prompter asks the user for options, starting from defaults. It returns
// ErrCancelled if the user backs out.
type Prompter interface {
	Prompt(defaults Options) (Options, error)
}

// DisplaySink takes ownership of a result stack.
type DisplaySink interface {
	Show(stack models.Stack, name string, cal models.Calibration) error
}

// Closer closes the source stack when the user chose not to keep it.
type Closer interface {
	CloseSource(stack *models.Stack) error
}

// PrefStore persists the dialog defaults between invocations.
type PrefStore interface {
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
	SetInt(key string, value int)
	SetBool(key string, value bool)
	Save() error
}

// Channel summarises one emitted channel stack
type Channel struct {
	Name      string
	Frames    int
	Remainder bool
}

// Result describes a completed run
type Result struct {
	Source   string
	Options  Options
	Channels []Channel

	// Uncovered counts trailing shuffled frames that no channel received
	Uncovered int

	SourceClosed bool
}

// Plugin wires the deinterleaver to its host collaborators
type Plugin struct {
	Source   ImageSource
	Prompter Prompter
	Sink     DisplaySink
	Closer   Closer
	Prefs    PrefStore

	// Defaults are offered when the prefs store has no value yet
	Defaults Options

	Logger *slog.Logger
}

// New creates a plugin. Defaults start at 2 channels with the source kept.
func New(source ImageSource, prompter Prompter, sink DisplaySink, closer Closer, prefs PrefStore) *Plugin {
	return &Plugin{
		Source:   source,
		Prompter: prompter,
		Sink:     sink,
		Closer:   closer,
		Prefs:    prefs,
		Defaults: Options{Channels: 2, KeepSource: true},
		Logger:   slog.Default(),
	}
}

// Run performs one deinterleave: fetch the current stack, ask for options,
// split it and hand every channel stack to the sink in ascending order.
func (p *Plugin) Run(ctx context.Context) (*Result, error) {
	log := p.logger()

	stack, err := p.Source.CurrentStack()
	if err != nil {
		return nil, fmt.Errorf("failed to get current stack: %w", err)
	}
	if stack == nil {
		return nil, ErrNoImage
	}
	if stack.Size() == 1 {
		return nil, ErrNotAStack
	}

	opts, err := p.askOptions()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("deinterleaving stack",
		slog.String("stack", stack.Name),
		slog.Int("frames", stack.Size()),
		slog.Int("channels", opts.Channels))

	res := &Result{
		Source:    stack.Name,
		Options:   opts,
		Uncovered: deinterleave.Uncovered(stack.Size(), opts.Channels),
	}
	if res.Uncovered > 0 {
		log.Warn("frames left out of every channel",
			slog.String("stack", stack.Name),
			slog.Int("uncovered", res.Uncovered))
	}

	cal := stack.Calibration.Copy()
	for _, ch := range deinterleave.Deinterleave(*stack, opts.Channels) {
		if err := p.Sink.Show(ch.Stack, ch.Name, cal.Copy()); err != nil {
			return res, fmt.Errorf("failed to show %s: %w", ch.Name, err)
		}
		log.Debug("channel shown",
			slog.String("name", ch.Name),
			slog.Int("frames", ch.Size()),
			slog.Bool("remainder", ch.Remainder))
		res.Channels = append(res.Channels, Channel{
			Name:      ch.Name,
			Frames:    ch.Size(),
			Remainder: ch.Remainder,
		})
	}

	if !opts.KeepSource && p.Closer != nil {
		if err := p.Closer.CloseSource(stack); err != nil {
			return res, fmt.Errorf("failed to close source stack: %w", err)
		}
		res.SourceClosed = true
	}

	return res, nil
}

// askOptions prompts with the stored defaults and persists the answer.
func (p *Plugin) askOptions() (Options, error) {
	defaults := p.Defaults
	if p.Prefs != nil {
		defaults.Channels = p.Prefs.GetInt(config.KeyChannels, defaults.Channels)
		defaults.KeepSource = p.Prefs.GetBool(config.KeyKeepSource, defaults.KeepSource)
	}

	opts := defaults
	if p.Prompter != nil {
		var err error
		opts, err = p.Prompter.Prompt(defaults)
		if err != nil {
			return Options{}, err
		}
	}
	if opts.Channels < 1 {
		return Options{}, fmt.Errorf("%w, got %d", ErrInvalidChannels, opts.Channels)
	}

	if p.Prefs != nil {
		p.Prefs.SetInt(config.KeyChannels, opts.Channels)
		p.Prefs.SetBool(config.KeyKeepSource, opts.KeepSource)
		if err := p.Prefs.Save(); err != nil {
			p.logger().Warn("failed to save preferences", slog.Any("error", err))
		}
	}
	return opts, nil
}

func (p *Plugin) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
