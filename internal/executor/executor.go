// Package executor adapts github.com/yalue/onnxruntime_go into the opaque
// async tensor-in/tensor-out Executor capability spec.md §4.2 assumes:
// load a model from bytes, query its input/output names and 4-D float
// shapes, create host-visible tensors the runtime may mutate directly,
// and run asynchronously with a completion callback.
//
// onnxruntime_go's session types are synchronous (Run blocks until
// inference completes); every pack repo that imports this library calls
// Run() directly. RunAsync here launches that synchronous call on its own
// goroutine and invokes the completion callback when it returns, which is
// the idiomatic Go equivalent of the original C runtime's
// OrtApi::RunAsync + completion thunk.
package executor

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Tensor is a host-visible float32 tensor buffer the caller may read or
// write directly; Data returns the backing slice.
type Tensor interface {
	Data() []float32
	Destroy() error
}

// Session is one loaded model. It may be bound into more than one
// ZoneContext (the shared eye model); tensors are never shared, only the
// session handle and its input/output names.
type Session interface {
	InputName() string
	OutputName() string
	// InputShape and OutputShape are the 4-D tensor shapes reported by
	// the model, in [N, C, H, W] order.
	InputShape() [4]int64
	OutputShape() [4]int64
	NewInputTensor() (Tensor, error)
	NewOutputTensor() (Tensor, error)
	// RunAsync dispatches inference using in as the bound input tensor
	// and out as the bound output tensor, invoking done with the
	// resulting error (nil on success) once inference completes. done
	// may be called from a goroutine other than the caller's.
	RunAsync(in, out Tensor, done func(error))
	// Close releases the underlying ONNX Runtime session. Callers must
	// ensure no RunAsync call against this session is in flight.
	Close() error
}

// Executor loads models into runnable Sessions.
type Executor interface {
	Load(model []byte) (Session, error)
}

// ONNXRuntime is the production Executor backed by onnxruntime_go.
type ONNXRuntime struct{}

// New returns an Executor backed by the process-wide ONNX Runtime
// environment. InitializeEnvironment must have been called once already
// (see Init).
func New() *ONNXRuntime {
	return &ONNXRuntime{}
}

// Init initializes the process-wide ONNX Runtime environment. Call once
// at process startup before any Load.
func Init() error {
	if ort.IsInitialized() {
		return nil
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// Shutdown tears down the process-wide ONNX Runtime environment. Call
// once at process exit, after every Session has been closed.
func Shutdown() error {
	return ort.DestroyEnvironment()
}

func (*ONNXRuntime) Load(model []byte) (Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return nil, fmt.Errorf("failed to read model IO info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected exactly one input tensor, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected exactly one output tensor, got %d", len(outputs))
	}
	in, out := inputs[0], outputs[0]
	if len(in.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(in.Dimensions))
	}
	if len(out.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D output tensor, got %dD", len(out.Dimensions))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("failed to set intra-op thread count: %w", err)
	}

	sess, err := ort.NewDynamicAdvancedSessionWithONNXData(model,
		[]string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	s := &ortSession{
		session:    sess,
		inputName:  in.Name,
		outputName: out.Name,
	}
	copy(s.inputShape[:], in.Dimensions)
	copy(s.outputShape[:], out.Dimensions)
	return s, nil
}

type ortSession struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputShape  [4]int64
	outputShape [4]int64
}

func (s *ortSession) InputName() string     { return s.inputName }
func (s *ortSession) OutputName() string    { return s.outputName }
func (s *ortSession) InputShape() [4]int64  { return s.inputShape }
func (s *ortSession) OutputShape() [4]int64 { return s.outputShape }

func (s *ortSession) NewInputTensor() (Tensor, error) {
	t, err := ort.NewEmptyTensor[float32](ort.NewShape(s.inputShape[:]...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	return &ortTensor{t}, nil
}

func (s *ortSession) NewOutputTensor() (Tensor, error) {
	t, err := ort.NewEmptyTensor[float32](ort.NewShape(s.outputShape[:]...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	return &ortTensor{t}, nil
}

func (s *ortSession) RunAsync(in, out Tensor, done func(error)) {
	inTensor := in.(*ortTensor).t
	outTensor := out.(*ortTensor).t
	go func() {
		inputs := []ort.ArbitraryTensor{inTensor}
		outputs := []ort.ArbitraryTensor{outTensor}
		err := s.session.Run(inputs, outputs)
		if err != nil {
			err = fmt.Errorf("inference failed: %w", err)
		}
		done(err)
	}()
}

func (s *ortSession) Close() error {
	return s.session.Destroy()
}

type ortTensor struct {
	t *ort.Tensor[float32]
}

func (t *ortTensor) Data() []float32 { return t.t.GetData() }
func (t *ortTensor) Destroy() error  { return t.t.Destroy() }
