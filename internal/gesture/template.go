package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// ErrNoTemplates is returned when a template set has nothing to match against.
var ErrNoTemplates = errors.New("no gesture templates")

// Template is a recorded gesture sequence. A window matches it when their DTW
// distance is below Tolerance.
type Template struct {
	Name      string   `json:"name"`
	Tolerance float64  `json:"tolerance"`
	Steps     Sequence `json:"steps"`
}

// Match is a template scored against a window.
type Match struct {
	Template *Template
	Distance float64
	// Score is Tolerance / (Tolerance + Distance): above 0.5 exactly when the
	// distance is within tolerance.
	Score float64
}

// TemplateSet is a collection of punch templates stored as JSON.
type TemplateSet struct {
	Templates []*Template `json:"templates"`
}

// LoadTemplates reads a template set from path.
func LoadTemplates(path string) (*TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var set TemplateSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if len(set.Templates) == 0 {
		return nil, ErrNoTemplates
	}
	for i, t := range set.Templates {
		if len(t.Steps) == 0 {
			return nil, fmt.Errorf("template %d (%s) has no steps", i, t.Name)
		}
		if t.Tolerance <= 0 {
			return nil, fmt.Errorf("template %d (%s) needs a positive tolerance", i, t.Name)
		}
	}
	return &set, nil
}

// Save writes the set to path as indented JSON.
func (s *TemplateSet) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Match scores seq against every template and returns them best first.
func (s *TemplateSet) Match(seq Sequence) []Match {
	matches := make([]Match, 0, len(s.Templates))
	for _, t := range s.Templates {
		d := DTWDistance(seq, t.Steps)
		score := 0.0
		if !math.IsInf(d, 1) {
			score = t.Tolerance / (t.Tolerance + d)
		}
		matches = append(matches, Match{Template: t, Distance: d, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// AverageTemplate builds a template from recorded samples. Samples are resampled to
// the length of the first one and averaged frame by frame.
func AverageTemplate(name string, tolerance float64, samples []Sequence) (*Template, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	length := len(samples[0])
	if length < 2 {
		return nil, fmt.Errorf("sample 0 has insufficient steps")
	}
	width := len(samples[0][0])

	averaged := make(Sequence, length)
	for i := range averaged {
		averaged[i] = make([]float32, width)
	}

	for n, sample := range samples {
		if len(sample) < 2 {
			return nil, fmt.Errorf("sample %d has insufficient steps", n)
		}
		if len(sample[0]) != width {
			return nil, fmt.Errorf("sample %d has %d features, want %d", n, len(sample[0]), width)
		}
		for i, frame := range Resample(sample, length) {
			for f, v := range frame {
				averaged[i][f] += v
			}
		}
	}

	count := float32(len(samples))
	for _, frame := range averaged {
		for f := range frame {
			frame[f] /= count
		}
	}

	return &Template{Name: name, Tolerance: tolerance, Steps: averaged}, nil
}
