package checkpoints

import (
	"path/filepath"
	"testing"

	"github.com/openimaging/go-trainer/nn"
)

func TestCheckpointRoundTrip(t *testing.T) {
	network := nn.NewBuilder(nn.Shape{Height: 4, Width: 4, Channels: 3}).
		AddFlatten("flatten").
		AddDense(2, nn.ActivationSoftmax, "out").
		Build()

	ckpt := &Checkpoint{
		Network: network,
		Weights: []WeightTensor{
			{Name: "out.weight", Shape: []int{48, 2}, Data: []float32{0.1, -0.2}, Layer: "out", Type: "weight"},
			{Name: "out.bias", Shape: []int{2}, Data: []float32{0, 0.5}, Layer: "out", Type: "bias"},
		},
		TrainingState: TrainingState{Epoch: 7, LearningRate: 2e-4, BestValLoss: 0.31},
	}

	path := filepath.Join(t.TempDir(), "trained_model_test.h5")
	if err := ckpt.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TrainingState != ckpt.TrainingState {
		t.Errorf("TrainingState = %+v, want %+v", loaded.TrainingState, ckpt.TrainingState)
	}
	if len(loaded.Weights) != 2 {
		t.Fatalf("got %d weight tensors, want 2", len(loaded.Weights))
	}
	if loaded.Weights[0].Name != "out.weight" || loaded.Weights[0].Data[1] != -0.2 {
		t.Errorf("weights corrupted: %+v", loaded.Weights[0])
	}
	if loaded.Network.LayerCount() != 2 {
		t.Errorf("LayerCount = %d, want 2", loaded.Network.LayerCount())
	}
	if loaded.Metadata.Framework == "" {
		t.Error("metadata not filled on save")
	}
}

func TestLoadMissingCheckpoint(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.h5")); err == nil {
		t.Fatal("expected error for missing checkpoint")
	}
}
