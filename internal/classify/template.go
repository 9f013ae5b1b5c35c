package classify

import (
	"context"

	"github.com/ayusman/punchalert/internal/gesture"
)

// TemplateModel scores a window by its DTW distance to recorded punch templates.
// The probability is the best template score, so a window within a template's
// tolerance classifies as punch at the default threshold.
type TemplateModel struct {
	set *gesture.TemplateSet
}

// NewTemplateModel loads the template set at path.
func NewTemplateModel(path string) (*TemplateModel, error) {
	set, err := gesture.LoadTemplates(path)
	if err != nil {
		return nil, err
	}
	return &TemplateModel{set: set}, nil
}

// Infer returns the best template score for batch.
func (m *TemplateModel) Infer(ctx context.Context, batch Batch) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	matches := m.set.Match(batch.Sequence())
	if len(matches) == 0 {
		return 0, gesture.ErrNoTemplates
	}
	return matches[0].Score, nil
}

// Close is a no-op.
func (m *TemplateModel) Close() error {
	return nil
}
