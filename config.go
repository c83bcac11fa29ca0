package emotemaker

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

const (
	// DefaultFrameDelay is the delay between two frames of the animated PNG, in seconds.
	DefaultFrameDelay = 0.07
	// DefaultLoops loops the animation forever.
	DefaultLoops = 0
)

// DefaultScales are the divisors applied to the input frames, one pass each.
var DefaultScales = []int{1, 2, 4}

// Config holds the settings of one run. It is passed by value and never
// changes once the run has started.
type Config struct {
	FrameDelay float64 // Seconds between two frames of the animated PNG
	Loops      int     // Number of plays, 0 loops forever
	Reverse    bool    // Reverse the frame order
	Sort       bool    // Sort input frames by name instead of directory order
	FailFast   bool    // Stop at the first failed step
	Scales     []int
	Filter     Filter
}

func DefaultConfig() Config {
	return Config{
		FrameDelay: DefaultFrameDelay,
		Loops:      DefaultLoops,
		Scales:     append([]int(nil), DefaultScales...),
		Filter:     FilterNearest,
	}
}

// Framerate converts the frame delay into the integer frame rate handed to
// ffmpeg. Halves round to even: a 0.4s delay gives 2fps, not 3.
func (c Config) Framerate() int {
	delay := c.FrameDelay
	if delay == 0 {
		delay = DefaultFrameDelay
	}
	return int(math.RoundToEven(1 / delay))
}

// Filter names a resampling kernel used when scaling frames down.
type Filter string

const (
	FilterNearest  Filter = "nearest"
	FilterBilinear Filter = "bilinear"
	FilterBicubic  Filter = "bicubic"
	FilterMitchell Filter = "mitchell"
	FilterLanczos2 Filter = "lanczos2"
	FilterLanczos3 Filter = "lanczos3"
)

var interpolations = map[Filter]resize.InterpolationFunction{
	FilterNearest:  resize.NearestNeighbor,
	FilterBilinear: resize.Bilinear,
	FilterBicubic:  resize.Bicubic,
	FilterMitchell: resize.MitchellNetravali,
	FilterLanczos2: resize.Lanczos2,
	FilterLanczos3: resize.Lanczos3,
}

// ParseFilter maps a kernel name to a Filter. Matching ignores case.
func ParseFilter(name string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := interpolations[f]; !ok {
		return "", fmt.Errorf("unknown filter %q (expected one of nearest, bilinear, bicubic, mitchell, lanczos2, lanczos3)", name)
	}
	return f, nil
}

func (f Filter) interpolation() resize.InterpolationFunction {
	if fn, ok := interpolations[f]; ok {
		return fn
	}
	return resize.NearestNeighbor
}

// Layout is the set of directories a run works in.
type Layout struct {
	Root    string
	Input   string // Source frames, never written to
	Working string // Resized copies, overwritten on every pass
	Output  string // Framestrips and animations, never cleared
}

// NewLayout places the input, working and output directories under root.
func NewLayout(root string) Layout {
	return Layout{
		Root:    root,
		Input:   filepath.Join(root, "inputFrames"),
		Working: filepath.Join(root, "temp"),
		Output:  filepath.Join(root, "output"),
	}
}

// Ensure creates any missing directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Input, l.Output, l.Working} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}
	return nil
}
