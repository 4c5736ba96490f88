package nn

import "fmt"

// LayerType represents the type of neural network layer
type LayerType int

const (
	Dense LayerType = iota
	Conv2D
	ReLU
	Softmax
	MaxPool2D
	UpSample2D
	Concat
	Flatten
	Dropout
	BatchNorm
)

func (lt LayerType) String() string {
	switch lt {
	case Dense:
		return "Dense"
	case Conv2D:
		return "Conv2D"
	case ReLU:
		return "ReLU"
	case Softmax:
		return "Softmax"
	case MaxPool2D:
		return "MaxPool2D"
	case UpSample2D:
		return "UpSample2D"
	case Concat:
		return "Concat"
	case Flatten:
		return "Flatten"
	case Dropout:
		return "Dropout"
	case BatchNorm:
		return "BatchNorm"
	default:
		return "Unknown"
	}
}

// Activation identifies the non-linearity attached to a parameterized layer.
type Activation string

const (
	ActivationNone    Activation = ""
	ActivationReLU    Activation = "relu"
	ActivationSigmoid Activation = "sigmoid"
	ActivationSoftmax Activation = "softmax"
)

// LayerSpec defines layer configuration for the compute engine.
// This is pure configuration - no execution logic.
type LayerSpec struct {
	Type       LayerType      `json:"type"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// Shape describes sample dimensions as (height, width, channels).
type Shape struct {
	Height   int `json:"height"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// Elements returns the number of scalar values in one sample.
func (s Shape) Elements() int {
	return s.Height * s.Width * s.Channels
}

// NetworkSpec defines a complete network as configuration handed to the
// compute engine. Backbone networks are identified by the constructor
// Symbol (e.g. "EfficientNetB2") that the engine binds pretrained weights
// to; Layers holds additional layers appended on top of the backbone, or
// the whole stack for networks built from scratch.
type NetworkSpec struct {
	// Family is the backbone family name from the catalog, empty for
	// networks assembled purely from Layers.
	Family string `json:"family,omitempty"`

	// Symbol is the backbone constructor symbol, empty for pure stacks.
	Symbol string `json:"symbol,omitempty"`

	InputShape Shape `json:"input_shape"`

	// IncludeTop keeps the backbone's pretrained output head. Transfer
	// learning strips it and appends task layers instead.
	IncludeTop bool `json:"include_top"`

	// Trainable unlocks every backbone layer; pretrained weights are then
	// only starting guesses.
	Trainable bool `json:"trainable"`

	Layers []LayerSpec `json:"layers,omitempty"`
}

// NewBackbone creates a NetworkSpec for a catalog backbone constructor.
func NewBackbone(family, symbol string, inputShape Shape, includeTop bool) *NetworkSpec {
	return &NetworkSpec{
		Family:     family,
		Symbol:     symbol,
		InputShape: inputShape,
		IncludeTop: includeTop,
		Trainable:  true,
	}
}

// LayerCount returns the number of appended layer specs.
func (ns *NetworkSpec) LayerCount() int {
	return len(ns.Layers)
}

// Builder helps construct network layer stacks
type Builder struct {
	spec *NetworkSpec
}

// NewBuilder creates a builder for a network assembled from scratch.
func NewBuilder(inputShape Shape) *Builder {
	return &Builder{
		spec: &NetworkSpec{
			InputShape: inputShape,
			Trainable:  true,
		},
	}
}

// Extend creates a builder that appends layers on top of an existing
// network specification.
func Extend(base *NetworkSpec) *Builder {
	return &Builder{spec: base}
}

// AddLayer adds a layer to the stack
func (b *Builder) AddLayer(layer LayerSpec) *Builder {
	b.spec.Layers = append(b.spec.Layers, layer)
	return b
}

// AddDense adds a fully connected layer
func (b *Builder) AddDense(units int, activation Activation, name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: Dense,
		Name: name,
		Parameters: map[string]any{
			"units":      units,
			"activation": string(activation),
			"use_bias":   true,
		},
	})
}

// AddConv2D adds a 2D convolution layer
func (b *Builder) AddConv2D(filters, kernelSize int, activation Activation, name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: Conv2D,
		Name: name,
		Parameters: map[string]any{
			"filters":     filters,
			"kernel_size": kernelSize,
			"padding":     "same",
			"activation":  string(activation),
			"use_bias":    true,
		},
	})
}

// AddMaxPool2D adds a 2D max pooling layer
func (b *Builder) AddMaxPool2D(poolSize int, name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: MaxPool2D,
		Name: name,
		Parameters: map[string]any{
			"pool_size": poolSize,
		},
	})
}

// AddUpSample2D adds a 2D upsampling layer
func (b *Builder) AddUpSample2D(factor int, name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: UpSample2D,
		Name: name,
		Parameters: map[string]any{
			"factor": factor,
		},
	})
}

// AddConcat adds a skip-connection merge with a named earlier layer
func (b *Builder) AddConcat(with string, name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: Concat,
		Name: name,
		Parameters: map[string]any{
			"with": with,
		},
	})
}

// AddFlatten adds a flatten layer
func (b *Builder) AddFlatten(name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type:       Flatten,
		Name:       name,
		Parameters: map[string]any{},
	})
}

// AddDropout adds a dropout layer
func (b *Builder) AddDropout(rate float32, name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: Dropout,
		Name: name,
		Parameters: map[string]any{
			"rate": rate,
		},
	})
}

// AddBatchNorm adds a batch normalization layer
func (b *Builder) AddBatchNorm(name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: BatchNorm,
		Name: name,
		Parameters: map[string]any{
			"eps":      float32(1e-5),
			"momentum": float32(0.1),
		},
	})
}

// AddSoftmax adds a softmax activation layer
func (b *Builder) AddSoftmax(name string) *Builder {
	return b.AddLayer(LayerSpec{
		Type: Softmax,
		Name: name,
		Parameters: map[string]any{
			"axis": -1,
		},
	})
}

// Build returns the assembled network specification
func (b *Builder) Build() *NetworkSpec {
	return b.spec
}
