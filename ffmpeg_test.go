package emotemaker_test

import (
	"context"
	"errors"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kevin-cantwell/emotemaker"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var quiet = slog.New(slog.NewTextHandler(GinkgoWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))

// readLines returns the lines of path, or nil if it does not exist.
func readLines(path string) []string {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	Expect(err).NotTo(HaveOccurred())
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

var _ = Describe("Encoder", func() {
	var (
		root    string
		layout  emotemaker.Layout
		logPath string
		job     emotemaker.Job
		ctx     = context.Background()
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("fake ffmpeg is a shell script")
		}
		var err error
		root, err = os.MkdirTemp("", "emotemaker-ffmpeg")
		Expect(err).NotTo(HaveOccurred())
		layout = emotemaker.NewLayout(root)
		Expect(layout.Ensure()).To(Succeed())
		logPath = filepath.Join(root, "ffmpeg.log")

		job = emotemaker.Job{
			WorkDir:   layout.Working,
			OutDir:    layout.Output,
			Basename:  "1700000000.5",
			Framerate: 14,
			Loops:     2,
		}
	})

	AfterEach(func() {
		os.RemoveAll(root)
	})

	Context("with a working sequence", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				writePNG(filepath.Join(layout.Working, emotemaker.FrameName(i)), 20, 10, color.Black)
			}
		})

		It("tiles the frames into one row", func() {
			enc := emotemaker.NewEncoder(fakeFFmpeg(root, logPath, 0), quiet)
			out, err := enc.Framestrip(ctx, job)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(filepath.Join(layout.Output, "1700000000.5_10.png")))
			Expect(readLines(logPath)).To(Equal([]string{
				"-y -i " + filepath.Join(layout.Working, "%03d.png") +
					" -filter_complex scale=20:-1,tile=3x1 " + out,
			}))
		})

		It("encodes an animated png", func() {
			enc := emotemaker.NewEncoder(fakeFFmpeg(root, logPath, 0), quiet)
			out, err := enc.AnimatedPNG(ctx, job)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(filepath.Join(layout.Output, "1700000000.5_ANIM_10.png")))
			Expect(readLines(logPath)).To(Equal([]string{
				"-y -framerate 14 -i " + filepath.Join(layout.Working, "%03d.png") +
					" -plays 2 -vf setpts=PTS-STARTPTS -f apng " + out,
			}))
		})

		It("reports the exit code of a failed run", func() {
			enc := emotemaker.NewEncoder(fakeFFmpeg(root, logPath, 3), quiet)
			_, err := enc.Framestrip(ctx, job)

			var exitErr *emotemaker.ExitError
			Expect(errors.As(err, &exitErr)).To(BeTrue())
			Expect(exitErr.Code).To(Equal(3))
			Expect(exitErr.Stderr).To(Equal("Conversion failed!"))
			Expect(exitErr.Artifact).To(Equal(filepath.Join(layout.Output, "1700000000.5_10.png")))
			Expect(err.Error()).To(ContainSubstring("exit code 3"))
		})

		It("kills ffmpeg when the context is cancelled", func() {
			enc := emotemaker.NewEncoder(sleepyFFmpeg(root), quiet)
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			time.AfterFunc(200*time.Millisecond, cancel)

			start := time.Now()
			_, err := enc.AnimatedPNG(cctx, job)
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))

			var exitErr *emotemaker.ExitError
			Expect(errors.As(err, &exitErr)).To(BeTrue())
			Expect(exitErr.Code).To(Equal(-1))
		})

		It("reports a program that cannot be started", func() {
			enc := emotemaker.NewEncoder(filepath.Join(root, "no-such-ffmpeg"), quiet)
			_, err := enc.AnimatedPNG(ctx, job)

			var exitErr *emotemaker.ExitError
			Expect(errors.As(err, &exitErr)).To(BeTrue())
			Expect(exitErr.Code).To(Equal(-1))
		})
	})

	It("does nothing without frames", func() {
		enc := emotemaker.NewEncoder(fakeFFmpeg(root, logPath, 0), quiet)

		out, err := enc.Framestrip(ctx, job)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())

		out, err = enc.AnimatedPNG(ctx, job)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())

		Expect(readLines(logPath)).To(BeNil())
	})
})

var _ = Describe("LocateEncoder", func() {
	var dir string

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("fake ffmpeg is a shell script")
		}
		var err error
		dir, err = os.MkdirTemp("", "emotemaker-locate")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("prefers an ffmpeg next to the tool", func() {
		local := fakeFFmpeg(dir, filepath.Join(dir, "ffmpeg.log"), 0)
		program, err := emotemaker.LocateEncoder(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(program).To(Equal(local))
	})

	It("ignores a local ffmpeg that is not executable", func() {
		local := filepath.Join(dir, "ffmpeg")
		Expect(os.WriteFile(local, []byte("not a program"), 0644)).To(Succeed())
		program, _ := emotemaker.LocateEncoder(dir)
		Expect(program).NotTo(Equal(local))
	})
})
