package embedding

import "errors"

// ErrONNXUnavailable is returned by NewONNXEmbedder in builds without cgo.
var ErrONNXUnavailable = errors.New("onnx runtime unavailable: built without cgo")

// ErrEmbedderClosed is returned by Embed after Close.
var ErrEmbedderClosed = errors.New("embedder is closed")

// ONNXOptions configures an ONNX image feature extractor.
type ONNXOptions struct {
	ModelPath  string
	InputName  string
	OutputName string
	// InputSize is the square side length the model expects; frames of any
	// other size are rejected.
	InputSize  int
	Dimensions int
	CacheSize  int
}

func (o *ONNXOptions) applyDefaults() {
	if o.InputName == "" {
		o.InputName = "input"
	}
	if o.OutputName == "" {
		o.OutputName = "output"
	}
	if o.InputSize == 0 {
		o.InputSize = 224
	}
}
