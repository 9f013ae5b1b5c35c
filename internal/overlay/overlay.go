// Package overlay draws the pose skeleton, bounding box and gesture label onto frames.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/punchalert/internal/gesture"
	"github.com/ayusman/punchalert/internal/pose"
)

var (
	red      = color.RGBA{R: 255, A: 255}
	green    = color.RGBA{G: 255, A: 255}
	boneGrey = color.RGBA{R: 224, G: 224, B: 224, A: 255}
)

// Label text placement.
var labelOrigin = image.Pt(10, 30)

const (
	labelScale     = 1.0
	labelThickness = 2
	jointRadius    = 2
	boneThickness  = 2
)

// BoxStyle returns the bounding-box colour and line thickness for a label:
// thin red while punching, thick green otherwise.
func BoxStyle(label gesture.Label) (color.RGBA, int) {
	if label.IsPunch() {
		return red, 1
	}
	return green, 3
}

// LabelColor returns the text colour for a label.
func LabelColor(label gesture.Label) color.RGBA {
	if label.IsPunch() {
		return red
	}
	return green
}

// Render draws onto frame in place. When set is nil only the label is drawn.
func Render(frame *gocv.Mat, set *pose.LandmarkSet, label gesture.Label) {
	if set != nil {
		w, h := frame.Cols(), frame.Rows()

		boxColor, thickness := BoxStyle(label)
		gocv.Rectangle(frame, set.Bounds(w, h), boxColor, thickness)

		drawSkeleton(frame, set.PixelPoints(w, h))
	}

	gocv.PutText(frame, label.String(), labelOrigin, gocv.FontHersheySimplex, labelScale, LabelColor(label), labelThickness)
}

func drawSkeleton(frame *gocv.Mat, points []image.Point) {
	for _, c := range pose.Connections {
		gocv.Line(frame, points[c[0]], points[c[1]], boneGrey, boneThickness)
	}
	for _, p := range points {
		gocv.Circle(frame, p, jointRadius, red, -1)
	}
}
