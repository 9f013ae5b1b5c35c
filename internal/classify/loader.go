package classify

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendONNX     = "onnx"
	BackendService  = "service"
	BackendTemplate = "template"
)

// ModelConfig selects and locates the classifier model.
type ModelConfig struct {
	// Backend is "onnx", "service" or "template". Empty picks one from the model file
	// extension: .onnx and .json select onnx and template, anything else the service.
	Backend string
	Path    string
	Python  string
	Script  string
}

// Open loads the model described by cfg.
func Open(cfg ModelConfig) (Model, error) {
	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = backendFor(cfg.Path)
	}

	switch backend {
	case BackendONNX:
		return NewONNXModel(cfg.Path)
	case BackendTemplate:
		return NewTemplateModel(cfg.Path)
	case BackendService:
		return NewServiceModel(ServiceConfig{
			Python: cfg.Python,
			Script: cfg.Script,
			Model:  cfg.Path,
		})
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

func backendFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".onnx":
		return BackendONNX
	case ".json":
		return BackendTemplate
	default:
		return BackendService
	}
}
