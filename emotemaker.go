/*
Package emotemaker turns a directory of animation frames into sprite sheets
and animated PNGs at several sizes.

For every scale factor the input frames are scaled down into a numbered
working sequence (000.png, 001.png, ...), then ffmpeg tiles the sequence into
a one-row framestrip and encodes it as an animated PNG:

	output/<basename>_<height>.png
	output/<basename>_ANIM_<height>.png
*/
package emotemaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

type Option func(m *Maker)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(m *Maker) {
		m.log = log
	}
}

// WithProgress draws frame scaling progress onto w. Progress is not shown by default.
func WithProgress(w io.Writer) Option {
	return func(m *Maker) {
		m.progress = w
	}
}

// WithClock replaces the clock output names are derived from.
func WithClock(now func() time.Time) Option {
	return func(m *Maker) {
		m.now = now
	}
}

// Maker runs the frame pipeline for every configured scale factor.
type Maker struct {
	cfg      Config
	layout   Layout
	enc      *Encoder
	log      *slog.Logger
	progress io.Writer
	now      func() time.Time
}

func New(cfg Config, layout Layout, enc *Encoder, opts ...Option) *Maker {
	if len(cfg.Scales) == 0 {
		cfg.Scales = append([]int(nil), DefaultScales...)
	}
	m := Maker{
		cfg:      cfg,
		layout:   layout,
		enc:      enc,
		log:      slog.Default(),
		progress: io.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

// Config returns the configuration the maker runs with.
func (m *Maker) Config() Config {
	return m.cfg
}

/*
Run prepares the working sequence and builds the framestrip and the animated
PNG for each scale factor in turn.

A failed step is logged and the run moves on: a preparation failure skips the
encoding of that scale factor, an ffmpeg failure skips only that artifact.
With FailFast the first failure ends the run instead. Run returns every
failure combined, or nil if all artifacts were built.
*/
func (m *Maker) Run(ctx context.Context) error {
	var errs error
	for _, scale := range m.cfg.Scales {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		log := m.log.With("scale", scale)

		frames, err := m.Prepare(ctx, scale)
		if err != nil {
			log.Error("frame preparation failed", "err", err)
			errs = multierr.Append(errs, err)
			if stop, all := m.stop(ctx, errs); stop {
				return all
			}
			continue
		}
		log.Info("prepared working sequence", "frames", len(frames))

		job := Job{
			WorkDir:   m.layout.Working,
			OutDir:    m.layout.Output,
			Basename:  basename(m.now()),
			Framerate: m.cfg.Framerate(),
			Loops:     m.cfg.Loops,
		}
		for _, build := range []func(context.Context, Job) (string, error){m.enc.Framestrip, m.enc.AnimatedPNG} {
			if _, err := build(ctx, job); err != nil {
				log.Error("encoding failed", "err", err)
				errs = multierr.Append(errs, err)
				if stop, all := m.stop(ctx, errs); stop {
					return all
				}
			}
		}
	}
	return errs
}

// stop reports whether the run ends after a failure. A cancelled context
// always ends it and is added to errs unless already recorded there.
func (m *Maker) stop(ctx context.Context, errs error) (bool, error) {
	if err := ctx.Err(); err != nil {
		if !errors.Is(errs, err) {
			errs = multierr.Append(errs, err)
		}
		return true, errs
	}
	return m.cfg.FailFast, errs
}

// basename formats t as fractional Unix seconds, e.g. "1697641234.5678".
// Whole seconds keep one decimal: "1700000000.0".
func basename(t time.Time) string {
	s := strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
