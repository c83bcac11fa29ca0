package emotemaker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/multierr"
)

// Frame is one resized copy in the working sequence.
type Frame struct {
	Source string // Input file the copy was made from
	Index  int    // Position in the working sequence
	Size   Size   // Size of the resized copy
}

// Name is the working sequence file name of the frame.
func (f Frame) Name() string {
	return FrameName(f.Index)
}

// Prepare fills the working directory with a copy of every input frame,
// scaled down by scale and numbered in sequence. Sizes are truncated, so a
// 401px frame at scale 2 becomes 200px. Scaling always starts from the
// original input frames.
//
// Preparation stops at the first frame whose size cannot be read; such errors
// wrap ErrNotImage.
func (m *Maker) Prepare(ctx context.Context, scale int) ([]Frame, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale factor %d", scale)
	}
	if err := clearDir(m.layout.Working); err != nil {
		return nil, err
	}

	names, err := m.inputNames()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		m.log.Warn("no input frames", "dir", m.layout.Input)
		return []Frame{}, nil
	}

	bar := progressbar.NewOptions(len(names),
		progressbar.OptionSetWriter(m.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription(fmt.Sprintf("Scaling frames 1/%d", scale)),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	defer bar.Finish()

	frames := make([]Frame, 0, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		m.log.Debug("scaling frame", "file", name, "scale", scale, "index", i)

		frame, err := m.scaleFrame(filepath.Join(m.layout.Input, name), i, scale)
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
		bar.Add(1)
	}
	return frames, nil
}

func (m *Maker) scaleFrame(src string, index, scale int) (Frame, error) {
	orig, err := DecodeSize(src)
	if err != nil {
		return Frame{}, err
	}
	size := Size{Width: orig.Width / scale, Height: orig.Height / scale}
	if size.Width <= 0 || size.Height <= 0 {
		return Frame{}, fmt.Errorf("%s: frame of %s is too small for scale 1/%d", src, orig, scale)
	}

	img, err := imaging.Open(src)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode '%s': %w", src, err)
	}
	img = resize.Resize(uint(size.Width), uint(size.Height), img, m.cfg.Filter.interpolation())

	frame := Frame{Source: src, Index: index, Size: size}
	dst := filepath.Join(m.layout.Working, frame.Name())
	if err := imaging.Save(img, dst); err != nil {
		return Frame{}, fmt.Errorf("failed to save '%s': %w", dst, err)
	}
	return frame, nil
}

// inputNames lists the files of the input directory in the order the file
// system returns them, unless sorting was asked for, and reversed if the
// animation plays backwards.
func (m *Maker) inputNames() ([]string, error) {
	dir, err := os.Open(m.layout.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input directory: %w", err)
	}
	defer dir.Close()

	// (*os.File).ReadDir keeps directory order, os.ReadDir would sort.
	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory '%s': %w", m.layout.Input, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	if m.cfg.Sort {
		sort.Strings(names)
	}
	if m.cfg.Reverse {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}
	return names, nil
}

// clearDir removes everything inside dir, keeping dir itself.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read working directory '%s': %w", dir, err)
	}
	var errs error
	for _, entry := range entries {
		errs = multierr.Append(errs, os.RemoveAll(filepath.Join(dir, entry.Name())))
	}
	if errs != nil {
		return fmt.Errorf("failed to clear working directory '%s': %w", dir, errs)
	}
	return nil
}
