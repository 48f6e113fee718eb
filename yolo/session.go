package yolo

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Session is one ONNX session with its bound input and output tensors.
// A session must not be run concurrently; the pool hands out one per caller.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

func (s *Session) Destroy() {
	if s.Session != nil {
		s.Session.Destroy()
	}
	if s.Input != nil {
		s.Input.Destroy()
	}
	if s.Output != nil {
		s.Output.Destroy()
	}
}

type sessionSpec struct {
	modelPath   string
	inputName   string
	outputName  string
	inputShape  ort.Shape
	outputShape ort.Shape
	threads     int
}

func newSession(spec sessionSpec) (*Session, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if spec.threads > 0 {
		if err := options.SetIntraOpNumThreads(spec.threads); err != nil {
			return nil, fmt.Errorf("error setting intra-op threads: %w", err)
		}
		if err := options.SetInterOpNumThreads(spec.threads); err != nil {
			return nil, fmt.Errorf("error setting inter-op threads: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](spec.inputShape)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](spec.outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		spec.modelPath,
		[]string{spec.inputName},
		[]string{spec.outputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &Session{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
	}, nil
}
