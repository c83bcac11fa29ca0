package main

import (
	"fmt"
	"io"

	"github.com/kevin-cantwell/emotemaker"
)

type options struct {
	loops    int
	delay    float64
	reverse  bool
	sort     bool
	filter   string
	failFast bool
}

// config builds the run configuration and announces every setting that
// differs from the defaults on w. Values are not range checked: a negative
// delay or loop count goes to ffmpeg as given.
func (o options) config(w io.Writer) (emotemaker.Config, error) {
	cfg := emotemaker.DefaultConfig()

	filter, err := emotemaker.ParseFilter(o.filter)
	if err != nil {
		return cfg, err
	}
	cfg.Filter = filter

	if o.loops != 0 {
		fmt.Fprintf(w, "Setting number of loops to %d\n", o.loops)
		cfg.Loops = o.loops
	}
	// A zero delay means "not given".
	if o.delay != 0 && o.delay != emotemaker.DefaultFrameDelay {
		fmt.Fprintf(w, "Setting frame delay to %gs\n", o.delay)
		cfg.FrameDelay = o.delay
	}
	if o.reverse {
		fmt.Fprintln(w, "Reversing animation")
		cfg.Reverse = true
	}
	cfg.Sort = o.sort
	cfg.FailFast = o.failFast
	return cfg, nil
}

func checkArgs(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("Unrecognized arguments: %q\nUse 'emotemaker -h' for available arguments and usage", args)
	}
	return nil
}

func printExamples(w io.Writer) {
	fmt.Fprint(w, `####################### Examples #######################

Default settings (0.07s delay between each frame for the apng, animation loops indefinitely)
		-> emotemaker

Custom delay of 0.5 seconds between each frame for the apng
		-> emotemaker -d 0.5

Only loop once
		-> emotemaker -l 1

Reverse the animation
		-> emotemaker -r

Loop 3 times with a delay of 1.5 seconds between each frame for the apng
		-> emotemaker -l 3 -d 1.5

Loop 3 times with a delay of 1.5 seconds between each frame for the apng and reverse the animation
		-> emotemaker -l 3 -d 1.5 -r

Take frames in file name order and scale them with a smoother filter
		-> emotemaker -s --filter lanczos3

==> The order in which the flags are used does not matter

########################################################
`)
}
