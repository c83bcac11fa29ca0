package emotemaker

import "fmt"

// framePattern is the ffmpeg input pattern matching FrameName.
const framePattern = "%03d.png"

// FrameName returns the working sequence file name for the i-th frame,
// e.g. 5 -> "005.png".
func FrameName(i int) string {
	return fmt.Sprintf(framePattern, i)
}
