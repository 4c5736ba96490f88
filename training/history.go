// Package training runs the training loop: orchestration, callbacks, epoch
// history, and local-minima escape.
package training

import (
	"fmt"
	"math"
	"os"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// EpochRecord is one row of the training history CSV.
type EpochRecord struct {
	Epoch        int     `csv:"epoch"`
	Loss         float64 `csv:"loss"`
	Accuracy     float64 `csv:"accuracy"`
	Dice         float64 `csv:"dice"`
	ValLoss      float64 `csv:"val_loss"`
	ValAccuracy  float64 `csv:"val_accuracy"`
	ValDice      float64 `csv:"val_dice"`
	LearningRate float64 `csv:"learning_rate"`
	EpochTime    float64 `csv:"epoch_time"`
}

// History accumulates per-epoch metrics over a run and persists them as CSV.
type History struct {
	Records []EpochRecord
}

// Append adds a record to the history.
func (h *History) Append(rec EpochRecord) {
	h.Records = append(h.Records, rec)
}

// Len returns the number of recorded epochs.
func (h *History) Len() int {
	return len(h.Records)
}

// FinalMetric returns the named metric of the last epoch, rounded to three
// decimal places. It returns an error for an empty history or an unknown
// metric name.
func (h *History) FinalMetric(name string) (float64, error) {
	if len(h.Records) == 0 {
		return 0, fmt.Errorf("history is empty")
	}
	last := h.Records[len(h.Records)-1]
	var v float64
	switch name {
	case "loss":
		v = last.Loss
	case "accuracy":
		v = last.Accuracy
	case "dice":
		v = last.Dice
	case "val_loss":
		v = last.ValLoss
	case "val_accuracy":
		v = last.ValAccuracy
	case "val_dice":
		v = last.ValDice
	default:
		return 0, fmt.Errorf("unknown metric: %s", name)
	}
	return math.Round(v*1000) / 1000, nil
}

// MeanEpochTime returns the average wall-clock seconds per epoch.
func (h *History) MeanEpochTime() float64 {
	if len(h.Records) == 0 {
		return 0
	}
	times := make([]float64, len(h.Records))
	for i, rec := range h.Records {
		times[i] = rec.EpochTime
	}
	return stat.Mean(times, nil)
}

// Save writes the full history to path, replacing any previous file.
func (h *History) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create history file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&h.Records, file); err != nil {
		return fmt.Errorf("failed to write history: %v", err)
	}
	return nil
}

// LoadHistory reads a history CSV previously written by Save.
func LoadHistory(path string) (*History, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %v", err)
	}
	defer file.Close()

	var records []EpochRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history: %v", err)
	}
	return &History{Records: records}, nil
}
