package gesture

import "math"

// Sequence is a time series of feature vectors, one per frame.
type Sequence [][]float32

// DTWDistance calculates the Dynamic Time Warping distance between two sequences,
// using Euclidean distance between frames. The result is normalized by the longer
// length. Returns infinity if either sequence is empty or their frame widths differ.
func DTWDistance(a, b Sequence) float64 {
	n := len(a)
	m := len(b)

	if n == 0 || m == 0 || len(a[0]) != len(b[0]) {
		return math.Inf(1)
	}

	// Two rolling rows of the (n+1) x (m+1) cost matrix.
	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := frameDistance(a[i-1], b[j-1])
			curr[j] = cost + min(prev[j], curr[j-1], prev[j-1])
		}
		prev, curr = curr, prev
	}

	return prev[m] / float64(max(n, m))
}

// frameDistance is the Euclidean distance between two frames of equal width.
func frameDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Resample stretches or shrinks s to exactly length frames by linear interpolation.
func Resample(s Sequence, length int) Sequence {
	if len(s) == 0 {
		return nil
	}
	if len(s) == 1 || length <= 1 {
		return Sequence{append([]float32(nil), s[0]...)}
	}

	out := make(Sequence, length)
	for i := 0; i < length; i++ {
		pos := float64(i) / float64(length-1) * float64(len(s)-1)

		idx := int(pos)
		if idx >= len(s)-1 {
			idx = len(s) - 2
		}
		frac := float32(pos - float64(idx))

		a, b := s[idx], s[idx+1]
		frame := make([]float32, len(a))
		for f := range frame {
			frame[f] = a[f] + frac*(b[f]-a[f])
		}
		out[i] = frame
	}
	return out
}
