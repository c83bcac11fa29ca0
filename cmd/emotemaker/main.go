package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/codegangsta/cli"
	"github.com/kevin-cantwell/emotemaker"
	"github.com/lmittmann/tint"
)

func main() {
	os.Exit(runApp(newApp(), os.Args))
}

// runApp runs app and returns the process exit status. Errors carrying their
// own status have already been reported by the cli package.
func runApp(app *cli.App, args []string) int {
	if err := app.Run(args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintln(app.Writer, err)
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = "0.1.0"
	app.Name = "emotemaker"
	app.Usage = "Calls ffmpeg to create resized images, framestrips and apng for the files in the input folder."
	app.UsageText = "emotemaker [-l LOOPS] [-d DELAY] [-r]\n" +
		/*      */ "   Frames are read from inputFrames/, results are written to output/."
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "examples,e",
			Usage: "Show examples.",
		},
		cli.IntFlag{
			Name:  "loops,l",
			Usage: "`LOOPS` sets the number of loops for the apng. Default is 0 which loops forever.",
			Value: emotemaker.DefaultLoops,
		},
		cli.Float64Flag{
			Name:  "delay,d",
			Usage: "`DELAY` sets the delay in seconds between each frame of the apng.",
			Value: emotemaker.DefaultFrameDelay,
		},
		cli.BoolFlag{
			Name:  "reverse,r",
			Usage: "Reverses the animation.",
		},
		cli.BoolFlag{
			Name:  "sort,s",
			Usage: "Orders input frames by file name instead of directory order.",
		},
		cli.StringFlag{
			Name:  "filter",
			Usage: "`FILTER` used to scale frames down: nearest, bilinear, bicubic, mitchell, lanczos2 or lanczos3.",
			Value: string(emotemaker.FilterNearest),
		},
		cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "Stops at the first failed step instead of moving on to the next one.",
		},
		cli.StringFlag{
			Name:  "root",
			Usage: "`DIR` holding inputFrames/, temp/ and output/. Defaults to the directory of the executable.",
		},
		cli.StringFlag{
			Name:  "ffmpeg",
			Usage: "`PATH` of the ffmpeg binary. Defaults to an ffmpeg next to the executable, then the one in PATH.",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Logs every frame and ffmpeg command.",
		},
	}
	app.Action = func(c *cli.Context) error {
		if err := checkArgs(c.Args()); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		if c.Bool("examples") {
			printExamples(app.Writer)
			return nil
		}

		opts := options{
			loops:    c.Int("loops"),
			delay:    c.Float64("delay"),
			reverse:  c.Bool("reverse"),
			sort:     c.Bool("sort"),
			filter:   c.String("filter"),
			failFast: c.Bool("fail-fast"),
		}
		cfg, err := opts.config(app.Writer)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		exeDir, err := executableDir()
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		root := c.String("root")
		if root == "" {
			root = exeDir
		}
		// The encoder is looked up next to the tool even when --root moves
		// the frame directories elsewhere.
		program := c.String("ffmpeg")
		if program == "" {
			if program, err = emotemaker.LocateEncoder(exeDir); err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
		}

		level := slog.LevelInfo
		if c.Bool("verbose") {
			level = slog.LevelDebug
		}
		logger := slog.New(
			tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: "15:04:05",
			}),
		)

		if err := run(cfg, root, program, logger, os.Stderr); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}
	return app
}

func run(cfg emotemaker.Config, root, program string, logger *slog.Logger, progress io.Writer) error {
	layout := emotemaker.NewLayout(root)
	if err := layout.Ensure(); err != nil {
		return err
	}
	logger.Debug("using encoder", "program", program)

	ctx, stop := handleInterrupt()
	defer stop()

	maker := emotemaker.New(cfg, layout, emotemaker.NewEncoder(program, logger),
		emotemaker.WithLogger(logger),
		emotemaker.WithProgress(progress),
	)
	return maker.Run(ctx)
}

// handleInterrupt cancels the returned context on SIGINT or SIGTERM, which
// also kills a running ffmpeg.
func handleInterrupt() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return "", fmt.Errorf("failed to resolve executable: %w", err)
	}
	return filepath.Dir(exe), nil
}
