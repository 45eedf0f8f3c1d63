package model

import (
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/medscan-api/internal/tensor"
)

// ONNXLoader loads models with ONNX Runtime. The runtime environment is
// initialized on the first Load and torn down by Close.
type ONNXLoader struct {
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string

	once    sync.Once
	initErr error
}

func (l *ONNXLoader) init() error {
	l.once.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if l.LibraryPath != "" {
			ort.SetSharedLibraryPath(l.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			l.initErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	})
	return l.initErr
}

func (l *ONNXLoader) Load(spec Spec) (Session, error) {
	if err := l.init(); err != nil {
		return nil, err
	}

	meta, err := ReadMetadata(spec)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(spec.Path,
		[]string{meta.InputName}, []string{meta.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", spec.Path, err)
	}

	return &onnxSession{session: session, meta: meta}, nil
}

// Close releases the ONNX Runtime environment.
func (l *ONNXLoader) Close() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// onnxSession allocates fresh tensors per call; DynamicAdvancedSession.Run
// is safe for concurrent use.
type onnxSession struct {
	session *ort.DynamicAdvancedSession
	meta    Metadata
}

func (s *onnxSession) Run(in tensor.Tensor) (tensor.Tensor, error) {
	if len(s.meta.InputShape) > 0 && !slices.Equal(s.meta.InputShape, in.Shape) {
		return tensor.Tensor{}, fmt.Errorf("input shape %v does not match model input %v", in.Shape, s.meta.InputShape)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(s.meta.OutputShape...))
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return tensor.Tensor{}, fmt.Errorf("inference failed: %w", err)
	}

	return tensor.New(slices.Clone(s.meta.OutputShape), slices.Clone(outputTensor.GetData()))
}

func (s *onnxSession) Close() error {
	return s.session.Destroy()
}
