// Package engine defines the boundary to the compute framework that
// executes networks. The orchestration core never computes a forward pass
// itself; it drives a Model compiled by an Engine implementation.
package engine

import (
	"github.com/openimaging/go-trainer/checkpoints"
	"github.com/openimaging/go-trainer/dataset"
	"github.com/openimaging/go-trainer/nn"
)

// LossFunction names the training loss.
type LossFunction string

// BinaryCrossEntropy is appropriate for mutually exclusive classes;
// categorical cross-entropy would be used for non-exclusive ones.
const BinaryCrossEntropy LossFunction = "binary_crossentropy"

// OptimizerType names the optimization algorithm.
type OptimizerType string

const Adam OptimizerType = "adam"

// CompileConfig fixes the loss, optimizer and metric set for one compiled
// model.
type CompileConfig struct {
	Loss         LossFunction
	Optimizer    OptimizerType
	LearningRate float64
}

// BatchStats summarizes one processed batch. Dice is the
// segmentation-overlap coefficient; Accuracy is classification accuracy.
// Only the metric relevant to the task type is meaningful.
type BatchStats struct {
	Loss     float64
	Accuracy float64
	Dice     float64
	Size     int
}

// Model is a compiled, trainable network.
type Model interface {
	// TrainBatch runs one optimization step on a batch.
	TrainBatch(batch *dataset.Batch) (BatchStats, error)

	// EvaluateBatch computes loss and metrics without updating weights.
	EvaluateBatch(batch *dataset.Batch) (BatchStats, error)

	// SetLearningRate overrides the optimizer's current learning rate.
	SetLearningRate(lr float64)

	// ResetOptimizerState restores the initial learning rate and clears
	// accumulated per-parameter adaptive state.
	ResetOptimizerState()

	// ExportWeights snapshots all parameter tensors.
	ExportWeights() ([]checkpoints.WeightTensor, error)

	// ImportWeights replaces all parameter tensors. The tensor set must
	// exactly match the compiled architecture; a mismatch is an error.
	ImportWeights(weights []checkpoints.WeightTensor) error
}

// Engine compiles network specifications into trainable models.
type Engine interface {
	Compile(spec *nn.NetworkSpec, cfg CompileConfig) (Model, error)

	// AcceleratorMemory reports available accelerator memory in bytes when
	// an accelerator is present.
	AcceleratorMemory() (bytes uint64, ok bool)
}
