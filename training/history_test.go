package training

import (
	"math"
	"path/filepath"
	"testing"
)

func TestHistoryFinalMetric(t *testing.T) {
	h := &History{}
	if _, err := h.FinalMetric("val_loss"); err == nil {
		t.Fatal("expected error on empty history")
	}

	h.Append(EpochRecord{Epoch: 1, ValDice: 0.111111, ValLoss: 0.9})
	h.Append(EpochRecord{Epoch: 2, ValDice: 0.876543, ValLoss: 0.4, Accuracy: 0.75})

	tests := []struct {
		metric string
		want   float64
	}{
		{"val_dice", 0.877}, // last epoch, rounded to 3 decimals
		{"val_loss", 0.4},
		{"accuracy", 0.75},
	}
	for _, tt := range tests {
		got, err := h.FinalMetric(tt.metric)
		if err != nil {
			t.Errorf("FinalMetric(%q): %v", tt.metric, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FinalMetric(%q) = %v, want %v", tt.metric, got, tt.want)
		}
	}

	if _, err := h.FinalMetric("f1"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestHistoryMeanEpochTime(t *testing.T) {
	h := &History{}
	if got := h.MeanEpochTime(); got != 0 {
		t.Errorf("MeanEpochTime on empty history = %v", got)
	}
	h.Append(EpochRecord{EpochTime: 10})
	h.Append(EpochRecord{EpochTime: 20})
	if got := h.MeanEpochTime(); got != 15 {
		t.Errorf("MeanEpochTime = %v, want 15", got)
	}
}

func TestHistorySaveLoad(t *testing.T) {
	h := &History{}
	h.Append(EpochRecord{Epoch: 1, Loss: 0.8, ValLoss: 0.7, LearningRate: 1e-3, EpochTime: 12.5})
	h.Append(EpochRecord{Epoch: 2, Loss: 0.6, ValLoss: 0.55, LearningRate: 1e-3, EpochTime: 11.9})

	path := filepath.Join(t.TempDir(), "training_history_test.csv")
	if err := h.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", loaded.Len())
	}
	if loaded.Records[1] != h.Records[1] {
		t.Errorf("record = %+v, want %+v", loaded.Records[1], h.Records[1])
	}
}

func TestLoadHistoryMissing(t *testing.T) {
	if _, err := LoadHistory(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for missing history")
	}
}
