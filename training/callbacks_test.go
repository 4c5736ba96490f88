package training

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openimaging/go-trainer/checkpoints"
	"github.com/openimaging/go-trainer/dataset"
	"github.com/openimaging/go-trainer/engine"
	"github.com/openimaging/go-trainer/logger"
	"github.com/openimaging/go-trainer/nn"
)

// fakeModel is a scriptable engine.Model for exercising the training loop
// without a compute backend. Validation loss and dice follow the per-epoch
// scripts; the epoch counter advances on the first evaluation after a
// training step.
type fakeModel struct {
	lr       float64
	resets   int
	imported []checkpoints.WeightTensor

	epoch    int
	sawTrain bool

	valLoss []float64
	valDice []float64
}

func (f *fakeModel) TrainBatch(b *dataset.Batch) (engine.BatchStats, error) {
	f.sawTrain = true
	return engine.BatchStats{Loss: 0.5, Accuracy: 0.8, Dice: 0.7, Size: b.Size}, nil
}

func (f *fakeModel) EvaluateBatch(b *dataset.Batch) (engine.BatchStats, error) {
	if f.sawTrain {
		f.epoch++
		f.sawTrain = false
	}
	stats := engine.BatchStats{Loss: 0.4, Accuracy: 0.8, Dice: 0.5, Size: b.Size}
	if i := f.epoch - 1; i >= 0 {
		if i < len(f.valLoss) {
			stats.Loss = f.valLoss[i]
		}
		if i < len(f.valDice) {
			stats.Dice = f.valDice[i]
		}
	}
	return stats, nil
}

func (f *fakeModel) SetLearningRate(lr float64) { f.lr = lr }

func (f *fakeModel) ResetOptimizerState() { f.resets++ }

func (f *fakeModel) ExportWeights() ([]checkpoints.WeightTensor, error) {
	return []checkpoints.WeightTensor{{
		Name:  "w",
		Shape: []int{1},
		Data:  []float32{float32(f.epoch)},
		Layer: "dense",
		Type:  "weight",
	}}, nil
}

func (f *fakeModel) ImportWeights(w []checkpoints.WeightTensor) error {
	f.imported = w
	return nil
}

type fakeEngine struct {
	model *fakeModel

	// accelBytes, when nonzero, is reported as accelerator memory.
	accelBytes uint64
}

func (e *fakeEngine) Compile(spec *nn.NetworkSpec, cfg engine.CompileConfig) (engine.Model, error) {
	e.model.lr = cfg.LearningRate
	return e.model, nil
}

func (e *fakeEngine) AcceleratorMemory() (uint64, bool) {
	return e.accelBytes, e.accelBytes > 0
}

func epochContext(model *fakeModel, record *EpochRecord) *EpochContext {
	return &EpochContext{
		Epoch:        record.Epoch,
		Record:       record,
		Model:        model,
		LearningRate: model.lr,
		Logger:       logger.WithModel("test"),
	}
}

func TestReduceLROnPlateau(t *testing.T) {
	model := &fakeModel{lr: 1e-3}
	cb := &ReduceLROnPlateau{Factor: 0.2, Patience: 2, MinLR: 1e-7}

	valLosses := []float64{1.0, 0.9, 0.95, 0.92} // stalls after epoch 2
	var lr float64 = 1e-3
	for i, loss := range valLosses {
		ctx := epochContext(model, &EpochRecord{Epoch: i + 1, ValLoss: loss})
		ctx.LearningRate = lr
		if err := cb.OnEpochEnd(ctx); err != nil {
			t.Fatal(err)
		}
		lr = ctx.LearningRate
	}

	want := 1e-3 * 0.2
	if lr != want {
		t.Errorf("learning rate = %v, want %v", lr, want)
	}
	if model.lr != want {
		t.Errorf("model learning rate = %v, want %v", model.lr, want)
	}
}

func TestReduceLROnPlateauRespectsFloor(t *testing.T) {
	model := &fakeModel{lr: 1e-7}
	cb := &ReduceLROnPlateau{Factor: 0.2, Patience: 1, MinLR: 1e-7}

	for epoch := 1; epoch <= 3; epoch++ {
		ctx := epochContext(model, &EpochRecord{Epoch: epoch, ValLoss: 1.0})
		ctx.LearningRate = model.lr
		if err := cb.OnEpochEnd(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if model.lr < 1e-7 {
		t.Errorf("learning rate %v dropped below the floor", model.lr)
	}
}

func TestEarlyStopping(t *testing.T) {
	model := &fakeModel{}
	cb := &EarlyStopping{Patience: 2, RestoreBest: true}

	// Best at epoch 1, then two stalls.
	scripts := []struct {
		epoch   int
		valLoss float64
		stop    bool
	}{
		{1, 0.5, false},
		{2, 0.6, false},
		{3, 0.7, true},
	}
	for _, s := range scripts {
		model.epoch = s.epoch
		ctx := epochContext(model, &EpochRecord{Epoch: s.epoch, ValLoss: s.valLoss})
		if err := cb.OnEpochEnd(ctx); err != nil {
			t.Fatal(err)
		}
		if ctx.StopRequested() != s.stop {
			t.Errorf("epoch %d: StopRequested = %v, want %v", s.epoch, ctx.StopRequested(), s.stop)
		}
	}

	// Weights from the best epoch (1) must be restored.
	if model.imported == nil {
		t.Fatal("best weights not restored")
	}
	if got := model.imported[0].Data[0]; got != 1 {
		t.Errorf("restored weights from epoch %v, want 1", got)
	}
}

func TestModelCheckpointSavesOnlyOnImprovement(t *testing.T) {
	saves := 0
	cb := &ModelCheckpoint{Save: func(ctx *EpochContext) error {
		saves++
		return nil
	}}
	model := &fakeModel{}

	for i, loss := range []float64{0.5, 0.6, 0.4} {
		ctx := epochContext(model, &EpochRecord{Epoch: i + 1, ValLoss: loss})
		if err := cb.OnEpochEnd(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if saves != 2 { // epochs 1 and 3
		t.Errorf("saves = %d, want 2", saves)
	}
}

// A validation loss of exactly zero is a legitimate best and must not
// re-arm the improvement trackers on later epochs.
func TestCallbacksTreatZeroValLossAsBest(t *testing.T) {
	losses := []float64{0.0, 0.5, 0.6}

	saves := 0
	ckpt := &ModelCheckpoint{Save: func(ctx *EpochContext) error {
		saves++
		return nil
	}}
	stop := &EarlyStopping{Patience: 2, RestoreBest: true}
	model := &fakeModel{}

	var stopped int
	for i, loss := range losses {
		model.epoch = i + 1
		ctx := epochContext(model, &EpochRecord{Epoch: i + 1, ValLoss: loss})
		if err := ckpt.OnEpochEnd(ctx); err != nil {
			t.Fatal(err)
		}
		if err := stop.OnEpochEnd(ctx); err != nil {
			t.Fatal(err)
		}
		if ctx.StopRequested() && stopped == 0 {
			stopped = i + 1
		}
	}

	if saves != 1 {
		t.Errorf("saves = %d, want 1 (only the zero-loss epoch improves)", saves)
	}
	if stopped != 3 {
		t.Errorf("stop requested at epoch %d, want 3 (two stalls after the zero)", stopped)
	}
	if model.imported == nil || model.imported[0].Data[0] != 1 {
		t.Errorf("restored weights = %v, want the zero-loss epoch's", model.imported)
	}
}

func TestCSVLoggerAppendsWithSingleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training_history_test.csv")
	cb := &CSVLogger{Path: path}
	model := &fakeModel{}

	for epoch := 1; epoch <= 3; epoch++ {
		ctx := epochContext(model, &EpochRecord{Epoch: epoch, Loss: 0.5, EpochTime: 1})
		if err := cb.OnEpochEnd(ctx); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "epoch_time") {
		t.Errorf("header missing epoch_time column: %q", lines[0])
	}

	loaded, err := LoadHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 3 {
		t.Errorf("parsed %d rows, want 3", loaded.Len())
	}
}

func TestEpochTimerFillsRecord(t *testing.T) {
	cb := &EpochTimer{}
	model := &fakeModel{}
	ctx := epochContext(model, &EpochRecord{Epoch: 1})

	if err := cb.OnEpochBegin(ctx); err != nil {
		t.Fatal(err)
	}
	if err := cb.OnEpochEnd(ctx); err != nil {
		t.Fatal(err)
	}
	if ctx.Record.EpochTime < 0 {
		t.Errorf("EpochTime = %v", ctx.Record.EpochTime)
	}
}
