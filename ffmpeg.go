package emotemaker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// LocateEncoder finds the ffmpeg binary. An executable ffmpeg next to the
// tool (in dir) wins over the one found in PATH.
func LocateEncoder(dir string) (string, error) {
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	local := filepath.Join(dir, name)
	if info, err := os.Stat(local); err == nil && info.Mode().IsRegular() && (runtime.GOOS == "windows" || info.Mode().Perm()&0111 != 0) {
		return local, nil
	}
	program, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found next to the tool nor in PATH: %w", err)
	}
	return program, nil
}

// ExitError reports an ffmpeg invocation that did not exit cleanly.
type ExitError struct {
	Artifact string // Output file ffmpeg was asked to produce
	Code     int    // Exit status, -1 if the process never finished
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg failed building '%s' (exit code %d)", filepath.Base(e.Artifact), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// waitDelay bounds how long a cancelled ffmpeg may keep its output open.
const waitDelay = time.Second

// Job describes one encoding pass over a working sequence.
type Job struct {
	WorkDir   string
	OutDir    string
	Basename  string
	Framerate int
	Loops     int
}

// Encoder runs ffmpeg over a working sequence.
type Encoder struct {
	program string
	log     *slog.Logger
}

// NewEncoder provides an Encoder running program. If log is nil, slog.Default is used.
func NewEncoder(program string, log *slog.Logger) *Encoder {
	if log == nil {
		log = slog.Default()
	}
	return &Encoder{
		program: program,
		log:     log,
	}
}

// Program is the ffmpeg binary the encoder runs.
func (e *Encoder) Program() string {
	return e.program
}

// Framestrip tiles every frame of the working sequence into a single row,
// all scaled to the width of the first frame. It returns the path of the
// produced image, or "" when the working directory holds no frames.
func (e *Encoder) Framestrip(ctx context.Context, job Job) (string, error) {
	first, count, err := firstFrame(job.WorkDir)
	if err != nil || count == 0 {
		return "", err
	}

	out := filepath.Join(job.OutDir, fmt.Sprintf("%s_%d.png", job.Basename, first.Height))
	args := []string{
		"-y",
		"-i", filepath.Join(job.WorkDir, framePattern),
		"-filter_complex", fmt.Sprintf("scale=%d:-1,tile=%dx1", first.Width, count),
		out,
	}
	return out, e.run(ctx, out, args)
}

// AnimatedPNG encodes the working sequence as an animated PNG. Timestamps are
// reset so playback starts at zero. It returns the path of the produced
// animation, or "" when the working directory holds no frames.
func (e *Encoder) AnimatedPNG(ctx context.Context, job Job) (string, error) {
	first, count, err := firstFrame(job.WorkDir)
	if err != nil || count == 0 {
		return "", err
	}

	out := filepath.Join(job.OutDir, fmt.Sprintf("%s_ANIM_%d.png", job.Basename, first.Height))
	args := []string{
		"-y",
		"-framerate", strconv.Itoa(job.Framerate),
		"-i", filepath.Join(job.WorkDir, framePattern),
		"-plays", strconv.Itoa(job.Loops),
		"-vf", "setpts=PTS-STARTPTS",
		"-f", "apng",
		out,
	}
	return out, e.run(ctx, out, args)
}

func (e *Encoder) run(ctx context.Context, out string, args []string) error {
	cmd := exec.CommandContext(ctx, e.program, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Children of a killed ffmpeg may still hold stderr open.
	cmd.WaitDelay = waitDelay

	e.log.Debug("running ffmpeg", "cmd", cmd.String())
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &ExitError{
			Artifact: out,
			Code:     code,
			Stderr:   lastLine(stderr.String()),
			Err:      err,
		}
	}
	e.log.Info("wrote artifact", "path", out)
	return nil
}

// firstFrame returns the size of the first file of the working directory and
// the number of files in it.
func firstFrame(dir string) (Size, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Size{}, 0, fmt.Errorf("failed to read working directory '%s': %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return Size{}, 0, nil
	}
	size, err := DecodeSize(filepath.Join(dir, files[0]))
	if err != nil {
		return Size{}, 0, err
	}
	return size, len(files), nil
}

// lastLine keeps the final non-empty line of ffmpeg's output, which is where
// it states why it gave up.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
