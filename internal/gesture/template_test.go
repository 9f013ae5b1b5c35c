package gesture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTemplateSet_Match(t *testing.T) {
	set := &TemplateSet{Templates: []*Template{
		{Name: "jab", Tolerance: 0.5, Steps: line(0, 1, 5)},
		{Name: "hook", Tolerance: 0.5, Steps: line(1, 0, 5)},
	}}

	matches := set.Match(line(0, 1, 10))
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}

	if matches[0].Template.Name != "jab" {
		t.Errorf("best match = %s, want jab", matches[0].Template.Name)
	}
	if matches[0].Score <= 0.5 {
		t.Errorf("score within tolerance should exceed 0.5, got %f", matches[0].Score)
	}
	if matches[1].Score >= matches[0].Score {
		t.Error("matches should be sorted by score descending")
	}
}

func TestTemplateSet_MatchWidthMismatch(t *testing.T) {
	set := &TemplateSet{Templates: []*Template{
		{Name: "jab", Tolerance: 0.5, Steps: Sequence{{0, 0}, {1, 1}}},
	}}

	matches := set.Match(line(0, 1, 3))
	if matches[0].Score != 0 {
		t.Errorf("score = %f, want 0 for incomparable sequences", matches[0].Score)
	}
}

func TestTemplateScore_ToleranceBoundary(t *testing.T) {
	set := &TemplateSet{Templates: []*Template{
		{Name: "flat", Tolerance: 1, Steps: Sequence{{0}, {0}}},
	}}

	// Distance exactly equals tolerance: score is exactly one half.
	m := set.Match(Sequence{{1}, {1}})[0]
	if m.Distance != 1 || m.Score != 0.5 {
		t.Errorf("distance=%f score=%f, want 1 and 0.5", m.Distance, m.Score)
	}
}

func TestLoadTemplates_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	set := &TemplateSet{Templates: []*Template{{Name: "jab", Tolerance: 0.3, Steps: line(0, 1, 4)}}}

	if err := set.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	if len(loaded.Templates) != 1 || loaded.Templates[0].Name != "jab" || len(loaded.Templates[0].Steps) != 4 {
		t.Errorf("loaded = %+v", loaded.Templates[0])
	}
}

func TestLoadTemplates_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty set", `{"templates": []}`, ErrNoTemplates},
		{"no steps", `{"templates": [{"name": "jab", "tolerance": 1, "steps": []}]}`, nil},
		{"zero tolerance", `{"templates": [{"name": "jab", "tolerance": 0, "steps": [[0]]}]}`, nil},
		{"bad json", `{"templates": `, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := LoadTemplates(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadTemplates(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAverageTemplate(t *testing.T) {
	samples := []Sequence{
		line(0, 1, 3),
		line(0, 3, 5),
	}

	tmpl, err := AverageTemplate("jab", 0.4, samples)
	if err != nil {
		t.Fatalf("AverageTemplate() error = %v", err)
	}

	if tmpl.Name != "jab" || tmpl.Tolerance != 0.4 {
		t.Errorf("template = %+v", tmpl)
	}
	if len(tmpl.Steps) != 3 {
		t.Fatalf("len(steps) = %d, want length of first sample", len(tmpl.Steps))
	}

	want := []float32{0, 1, 2}
	for i, w := range want {
		if tmpl.Steps[i][0] != w {
			t.Errorf("steps[%d] = %f, want %f", i, tmpl.Steps[i][0], w)
		}
	}
}

func TestAverageTemplate_Errors(t *testing.T) {
	if _, err := AverageTemplate("x", 1, nil); err == nil {
		t.Error("expected error for no samples")
	}
	if _, err := AverageTemplate("x", 1, []Sequence{{{0}}}); err == nil {
		t.Error("expected error for a single-step sample")
	}
	if _, err := AverageTemplate("x", 1, []Sequence{line(0, 1, 3), {{0, 0}, {1, 1}}}); err == nil {
		t.Error("expected error for mismatched widths")
	}
}
