// Package checkpoints serializes model state and manages the checkpoint and
// history file pair of a training run.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/openimaging/go-trainer/nn"
)

// Checkpoint represents a complete model state including weights and
// training metadata.
type Checkpoint struct {
	Network *nn.NetworkSpec `json:"network"`
	Weights []WeightTensor  `json:"weights"`

	TrainingState TrainingState `json:"training_state"`

	Metadata Metadata `json:"metadata"`
}

// WeightTensor represents a model parameter tensor with its data.
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
	Layer string    `json:"layer"`
	Type  string    `json:"type"` // "weight", "bias", "gamma", "beta", etc.
}

// TrainingState captures the training progress at save time.
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	LearningRate float64 `json:"learning_rate"`
	BestValLoss  float64 `json:"best_val_loss"`
}

// Metadata contains checkpoint metadata.
type Metadata struct {
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

// Save writes the checkpoint as JSON to path.
func (c *Checkpoint) Save(path string) error {
	if c.Metadata.Framework == "" {
		c.Metadata.Framework = "go-trainer"
		c.Metadata.Version = "1.0.0"
		c.Metadata.CreatedAt = time.Now()
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}
	return nil
}

// Load reads a checkpoint from path.
func Load(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %v", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}
	return &checkpoint, nil
}
