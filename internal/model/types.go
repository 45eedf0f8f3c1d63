package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Brownie44l1/medscan-api/internal/prediction"
	"github.com/Brownie44l1/medscan-api/internal/tensor"
)

// Spec locates one named model on disk.
type Spec struct {
	Name         string
	Path         string
	MetadataPath string
	Classes      int
}

// Metadata is the optional JSON file exported next to a model.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

// Session runs a forward pass on a loaded model.
type Session interface {
	Run(input tensor.Tensor) (tensor.Tensor, error)
	Close() error
}

// Loader turns a Spec into a Session.
type Loader interface {
	Load(spec Spec) (Session, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(spec Spec) (Session, error)

func (f LoaderFunc) Load(spec Spec) (Session, error) { return f(spec) }

// DefaultSpecs returns the fixed model locations under dir.
func DefaultSpecs(dir string) []Spec {
	specs := make([]Spec, 0, len(prediction.Services()))
	for _, name := range prediction.Services() {
		specs = append(specs, Spec{
			Name:         name,
			Path:         filepath.Join(dir, name+".onnx"),
			MetadataPath: filepath.Join(dir, name+".json"),
			Classes:      len(prediction.MappingFor(name)),
		})
	}
	return specs
}

// ReadMetadata loads spec's metadata file, filling defaults for anything the
// file leaves out. A missing file is not an error.
func ReadMetadata(spec Spec) (Metadata, error) {
	var meta Metadata
	if spec.MetadataPath != "" {
		raw, err := os.ReadFile(spec.MetadataPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, &meta); err != nil {
				return Metadata{}, fmt.Errorf("failed to parse metadata %s: %w", spec.MetadataPath, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return Metadata{}, fmt.Errorf("failed to read metadata %s: %w", spec.MetadataPath, err)
		}
	}

	if meta.InputName == "" {
		meta.InputName = "input"
	}
	if meta.OutputName == "" {
		meta.OutputName = "output"
	}
	if len(meta.OutputShape) == 0 {
		classes := int64(spec.Classes)
		if classes < 1 {
			classes = 1
		}
		meta.OutputShape = []int64{1, classes}
	}
	return meta, nil
}

var (
	// ErrUnavailable is matched by every error that means a model cannot serve.
	ErrUnavailable = errors.New("model unavailable")
	// ErrNoModelFiles means none of the configured model files exist.
	ErrNoModelFiles = fmt.Errorf("%w: no model files found", ErrUnavailable)
)

// Failure records why one model did not load.
type Failure struct {
	Spec Spec
	Err  error
}

// LoadError is returned when model files exist but none could be loaded.
type LoadError struct {
	Failures []Failure
}

func (e *LoadError) Error() string {
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Spec.Path
	}

	var b strings.Builder
	fmt.Fprintf(&b, "failed to load model file(s): %s.\n", strings.Join(paths, ", "))
	b.WriteString("This commonly happens when the model was exported with an opset or IR version " +
		"that the installed onnxruntime library does not support.\n")
	if len(e.Failures) > 0 {
		fmt.Fprintf(&b, "Original error: %v\n\n", e.Failures[0].Err)
	}
	b.WriteString("Suggested fixes:\n")
	b.WriteString(" - Install the onnxruntime shared library version the model was exported against and point ONNXRUNTIME_LIB at it.\n")
	b.WriteString(" - Re-export the model with a lower opset (for example tf2onnx --opset 13).\n")
	b.WriteString(" - Check the metadata JSON next to the model: input_name and output_name must match the graph.\n")
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	errs := []error{ErrUnavailable}
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
