// Package testdata generates synthetic frames and video clips for tests.
package testdata

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Frames returns n BGR frames of size w x h with a white block sliding left to right,
// so consecutive frames differ. The caller closes them.
func Frames(n, w, h int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	block := w / 8
	if block < 1 {
		block = 1
	}

	for i := range frames {
		m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
		x := (i * block / 2) % (w - block + 1)
		gocv.Rectangle(&m, image.Rect(x, h/4, x+block, h/4+block), color.RGBA{255, 255, 255, 0}, -1)
		frames[i] = &m
	}
	return frames
}

// StillFrames returns n identical black BGR frames. The caller closes them.
func StillFrames(n, w, h int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}

// Close releases frames.
func Close(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// WriteVideo encodes n sliding-block frames into an MJPG AVI file at path.
func WriteVideo(path string, n, w, h int, fps float64) error {
	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, w, h, true)
	if err != nil {
		return fmt.Errorf("open video writer: %w", err)
	}
	defer writer.Close()

	if !writer.IsOpened() {
		return fmt.Errorf("video writer for %s not opened", path)
	}

	frames := Frames(n, w, h)
	defer Close(frames)

	for i, f := range frames {
		if err := writer.Write(*f); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}
