// Package model owns the classifier sessions. Models are loaded lazily on
// first use and then shared read-only by every request.
package model

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Brownie44l1/medscan-api/internal/metrics"
	"github.com/Brownie44l1/medscan-api/internal/tensor"
)

type Registry struct {
	specs  []Spec
	loader Loader
	logger *zap.Logger

	mu       sync.Mutex
	loaded   bool
	sessions map[string]Session
	failures map[string]error
}

func NewRegistry(specs []Spec, loader Loader, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		specs:    specs,
		loader:   loader,
		logger:   logger,
		failures: make(map[string]error),
	}
}

// EnsureLoaded loads every configured model the first time it is called.
// Models whose file is missing or broken are skipped as long as at least one
// loads. If none load, the error wraps ErrNoModelFiles when no file was
// present, or is a *LoadError otherwise; the registry then stays unloaded so a
// later call can try again. After a successful load it is a no-op.
func (r *Registry) EnsureLoaded() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}

	sessions := make(map[string]Session)
	failures := make(map[string]error)
	var broken []Failure
	var expected []string

	for _, spec := range r.specs {
		expected = append(expected, spec.Path)

		if _, err := os.Stat(spec.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("model file not found", zap.String("model", spec.Name), zap.String("path", spec.Path))
				failures[spec.Name] = fmt.Errorf("model file %s not found", spec.Path)
				continue
			}
			broken = append(broken, Failure{Spec: spec, Err: err})
			failures[spec.Name] = err
			continue
		}

		session, err := r.loader.Load(spec)
		metrics.RecordModelLoad(spec.Name, err)
		if err != nil {
			r.logger.Error("failed to load model", zap.String("model", spec.Name), zap.String("path", spec.Path), zap.Error(err))
			broken = append(broken, Failure{Spec: spec, Err: err})
			failures[spec.Name] = err
			continue
		}

		r.logger.Info("model loaded", zap.String("model", spec.Name), zap.String("path", spec.Path))
		sessions[spec.Name] = session
	}

	r.failures = failures
	if len(sessions) == 0 {
		if len(broken) > 0 {
			return &LoadError{Failures: broken}
		}
		return fmt.Errorf("%w; expected %s", ErrNoModelFiles, strings.Join(expected, " or "))
	}

	r.sessions = sessions
	r.loaded = true
	return nil
}

// Predict runs the named model on input, loading models first if needed.
func (r *Registry) Predict(service string, input tensor.Tensor) (tensor.Tensor, error) {
	if err := r.EnsureLoaded(); err != nil {
		return tensor.Tensor{}, err
	}

	r.mu.Lock()
	session, ok := r.sessions[service]
	r.mu.Unlock()
	if !ok {
		return tensor.Tensor{}, fmt.Errorf("%w: the %s model failed to load; check the model file and onnxruntime compatibility",
			ErrUnavailable, strings.ToUpper(service))
	}

	out, err := session.Run(input)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("%s prediction: %w", service, err)
	}
	return out, nil
}

// ModelStatus describes one configured model.
type ModelStatus struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Status reports what has been loaded so far. It never triggers a load.
type Status struct {
	Loaded bool          `json:"loaded"`
	Models []ModelStatus `json:"models"`
}

func (r *Registry) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := Status{Loaded: r.loaded, Models: make([]ModelStatus, 0, len(r.specs))}
	for _, spec := range r.specs {
		ms := ModelStatus{Name: spec.Name, Path: spec.Path}
		if _, ok := r.sessions[spec.Name]; ok {
			ms.Available = true
		}
		if err, ok := r.failures[spec.Name]; ok {
			ms.Error = err.Error()
		}
		status.Models = append(status.Models, ms)
	}
	return status
}

// Close destroys every loaded session and, if the loader holds resources of
// its own, the loader. Models are not reloaded afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, s := range r.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	r.sessions = nil

	if c, ok := r.loader.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
