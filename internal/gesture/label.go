// Package gesture defines gesture labels, verdicts and the shared label state.
package gesture

import (
	"fmt"
	"time"
)

// Label is the binary gesture decision shown to the user.
type Label string

const (
	// Neutral means no target gesture was seen in the window.
	Neutral Label = "neutral"
	// Punch means the target gesture was seen in the window.
	Punch Label = "punch"
)

// ParseLabel converts a string into a Label.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case Neutral, Punch:
		return Label(s), nil
	default:
		return "", fmt.Errorf("unknown label %q", s)
	}
}

// IsPunch reports whether l is the target gesture.
func (l Label) IsPunch() bool {
	return l == Punch
}

// String implements fmt.Stringer.
func (l Label) String() string {
	return string(l)
}

// Verdict is the classifier outcome for one window.
type Verdict struct {
	Seq         uint64        // Window sequence number, starting at 1
	Label       Label         // Decision after thresholding
	Probability float64       // Raw model output
	Latency     time.Duration // Time spent in inference
	Err         error         // Non-nil when inference failed and Label fell back to Neutral
	At          time.Time     // Completion time
}
