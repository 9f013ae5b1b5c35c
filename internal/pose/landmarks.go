// Package pose provides body landmark types and the landmark source boundary.
package pose

import (
	"image"
)

// Body landmark indices following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumJoints      = 33
)

// ValuesPerJoint is the number of floats a joint contributes to a Vector (x, y, z, visibility).
const ValuesPerJoint = 4

// VectorSize is the length of a flattened landmark set.
const VectorSize = ValuesPerJoint * NumJoints

// BoxTopMargin is how far above the highest joint the overlay box starts, in pixels.
const BoxTopMargin = 25

// Connections lists the joint pairs drawn as the skeleton.
var Connections = [][2]int{
	{Nose, LeftEyeInner}, {LeftEyeInner, LeftEye}, {LeftEye, LeftEyeOuter}, {LeftEyeOuter, LeftEar},
	{Nose, RightEyeInner}, {RightEyeInner, RightEye}, {RightEye, RightEyeOuter}, {RightEyeOuter, RightEar},
	{MouthLeft, MouthRight},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{LeftWrist, LeftPinky}, {LeftWrist, LeftIndex}, {LeftWrist, LeftThumb}, {LeftPinky, LeftIndex},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{RightWrist, RightPinky}, {RightWrist, RightIndex}, {RightWrist, RightThumb}, {RightPinky, RightIndex},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip}, {LeftHip, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle}, {LeftAnkle, LeftHeel}, {LeftHeel, LeftFootIndex}, {LeftAnkle, LeftFootIndex},
	{RightHip, RightKnee}, {RightKnee, RightAnkle}, {RightAnkle, RightHeel}, {RightHeel, RightFootIndex}, {RightAnkle, RightFootIndex},
}

// Landmark is a single tracked joint in normalized image coordinates.
type Landmark struct {
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	Z          float64 `json:"z" msgpack:"z"`
	Visibility float64 `json:"visibility" msgpack:"visibility"`
}

// LandmarkSet holds the joints detected for one person in one frame.
// It is a value type; copies never alias.
type LandmarkSet struct {
	Joints [NumJoints]Landmark `json:"joints"`
}

// Vector is a LandmarkSet flattened to x, y, z, visibility per joint.
type Vector []float32

// Flatten returns the landmark set as a freshly allocated Vector.
func (s *LandmarkSet) Flatten() Vector {
	v := make(Vector, 0, VectorSize)
	for _, j := range s.Joints {
		v = append(v, float32(j.X), float32(j.Y), float32(j.Z), float32(j.Visibility))
	}
	return v
}

// PixelPoints projects every joint onto a frame of the given size.
func (s *LandmarkSet) PixelPoints(width, height int) []image.Point {
	points := make([]image.Point, NumJoints)
	for i, j := range s.Joints {
		points[i] = image.Point{
			X: int(j.X * float64(width)),
			Y: int(j.Y * float64(height)),
		}
	}
	return points
}

// Bounds returns the overlay box around all joints on a frame of the given size.
// The top edge is raised by BoxTopMargin to leave room above the head.
func (s *LandmarkSet) Bounds(width, height int) image.Rectangle {
	points := s.PixelPoints(width, height)

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}

	return image.Rect(minX, minY-BoxTopMargin, maxX, maxY)
}
