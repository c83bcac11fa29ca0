package emotemaker

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// ErrNotImage is returned when a file is not a PNG, GIF or JPEG image, or its
// header cannot be parsed.
var ErrNotImage = errors.New("not a recognized image")

// headerLen is the number of leading bytes every supported format needs.
const headerLen = 24

// pngCheck is bytes 4..8 of the PNG signature: "\r\n\x1a\n".
const pngCheck = 0x0D0A1A0A

// Size is a pixel width and height.
type Size struct {
	Width, Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// DecodeSize reads the dimensions of the image stored at path without
// decoding its pixels.
func DecodeSize(path string) (Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return Size{}, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()

	size, err := SizeOf(f)
	if err != nil {
		return Size{}, fmt.Errorf("%s: %w", path, err)
	}
	return size, nil
}

// SizeOf reads the dimensions of a PNG, GIF or JPEG image from its header.
// Anything else, including truncated or malformed headers, yields ErrNotImage.
func SizeOf(r io.ReadSeeker) (Size, error) {
	head := make([]byte, headerLen)
	if _, err := io.ReadFull(r, head); err != nil {
		return Size{}, ErrNotImage
	}

	kind, err := filetype.Match(head)
	if err != nil {
		return Size{}, ErrNotImage
	}

	switch kind {
	case matchers.TypePng:
		if binary.BigEndian.Uint32(head[4:8]) != pngCheck {
			return Size{}, ErrNotImage
		}
		return Size{
			Width:  int(int32(binary.BigEndian.Uint32(head[16:20]))),
			Height: int(int32(binary.BigEndian.Uint32(head[20:24]))),
		}, nil
	case matchers.TypeGif:
		return Size{
			Width:  int(binary.LittleEndian.Uint16(head[6:8])),
			Height: int(binary.LittleEndian.Uint16(head[8:10])),
		}, nil
	case matchers.TypeJpeg:
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return Size{}, ErrNotImage
		}
		return jpegSize(bufio.NewReader(r))
	default:
		return Size{}, ErrNotImage
	}
}

// jpegSize walks the marker segments until it reaches a Start Of Frame
// segment and reads the frame dimensions from it. r must be positioned at
// the SOI marker.
func jpegSize(r *bufio.Reader) (Size, error) {
	skip := 2 // SOI
	for {
		if _, err := r.Discard(skip); err != nil {
			return Size{}, ErrNotImage
		}
		marker, err := r.ReadByte()
		if err != nil {
			return Size{}, ErrNotImage
		}
		// Markers may be preceded by any number of fill bytes.
		for marker == 0xFF {
			if marker, err = r.ReadByte(); err != nil {
				return Size{}, ErrNotImage
			}
		}
		var length uint16
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return Size{}, ErrNotImage
		}
		// The length counts its own two bytes.
		if length < 2 {
			return Size{}, ErrNotImage
		}
		skip = int(length) - 2
		if isSOF(marker) {
			break
		}
	}

	var frame struct {
		Precision     uint8
		Height, Width uint16
	}
	if err := binary.Read(r, binary.BigEndian, &frame); err != nil {
		return Size{}, ErrNotImage
	}
	return Size{Width: int(frame.Width), Height: int(frame.Height)}, nil
}

// isSOF reports whether marker starts a frame header. DHT, JPG and DAC share
// the 0xC0-0xCF range but carry no dimensions.
func isSOF(marker byte) bool {
	if marker < 0xC0 || marker > 0xCF {
		return false
	}
	switch marker {
	case 0xC4, 0xC8, 0xCC:
		return false
	}
	return true
}
