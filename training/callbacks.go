package training

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/openimaging/go-trainer/checkpoints"
	"github.com/openimaging/go-trainer/engine"
)

// EpochContext carries the state callbacks observe and mutate at the epoch
// boundaries. The orchestrator fills Record with metrics before calling
// OnEpochEnd.
type EpochContext struct {
	Epoch        int
	Record       *EpochRecord
	Model        engine.Model
	LearningRate float64
	Logger       *zap.SugaredLogger

	stop bool
}

// RequestStop asks the orchestrator to end training after this epoch.
func (c *EpochContext) RequestStop() {
	c.stop = true
}

// StopRequested reports whether any callback asked for an early stop.
func (c *EpochContext) StopRequested() bool {
	return c.stop
}

// Callback observes and reacts to epoch boundaries.
type Callback interface {
	OnEpochBegin(ctx *EpochContext) error
	OnEpochEnd(ctx *EpochContext) error
}

// ModelCheckpoint saves the model whenever the monitored validation loss
// improves on the best value seen so far.
type ModelCheckpoint struct {
	// Save persists the current model state to the run's checkpoint file.
	Save func(ctx *EpochContext) error

	best float64
	seen bool
}

func (m *ModelCheckpoint) OnEpochBegin(ctx *EpochContext) error { return nil }

func (m *ModelCheckpoint) OnEpochEnd(ctx *EpochContext) error {
	if m.seen && ctx.Record.ValLoss >= m.best {
		return nil
	}
	m.best = ctx.Record.ValLoss
	m.seen = true
	if err := m.Save(ctx); err != nil {
		return fmt.Errorf("checkpoint save failed: %v", err)
	}
	ctx.Logger.Debugf("epoch %d: checkpoint saved, val_loss improved to %.6f", ctx.Epoch, m.best)
	return nil
}

// ReduceLROnPlateau multiplies the learning rate by Factor after Patience
// epochs without validation-loss improvement.
type ReduceLROnPlateau struct {
	Factor   float64
	Patience int
	MinLR    float64

	best float64
	wait int
	seen bool
}

func (r *ReduceLROnPlateau) OnEpochBegin(ctx *EpochContext) error { return nil }

func (r *ReduceLROnPlateau) OnEpochEnd(ctx *EpochContext) error {
	if !r.seen || ctx.Record.ValLoss < r.best {
		r.best = ctx.Record.ValLoss
		r.seen = true
		r.wait = 0
		return nil
	}
	r.wait++
	if r.wait < r.Patience {
		return nil
	}
	r.wait = 0
	newLR := math.Max(ctx.LearningRate*r.Factor, r.MinLR)
	if newLR < ctx.LearningRate {
		ctx.Model.SetLearningRate(newLR)
		ctx.LearningRate = newLR
		ctx.Logger.Infof("epoch %d: val_loss plateaued, learning rate reduced to %.2e", ctx.Epoch, newLR)
	}
	return nil
}

// EpochTimer records wall-clock seconds per epoch into the history row.
type EpochTimer struct {
	start time.Time
}

func (t *EpochTimer) OnEpochBegin(ctx *EpochContext) error {
	t.start = time.Now()
	return nil
}

func (t *EpochTimer) OnEpochEnd(ctx *EpochContext) error {
	ctx.Record.EpochTime = time.Since(t.start).Seconds()
	return nil
}

// CSVLogger appends each completed epoch row to the history file so the log
// survives a crash mid-run.
type CSVLogger struct {
	Path string
}

func (l *CSVLogger) OnEpochBegin(ctx *EpochContext) error { return nil }

func (l *CSVLogger) OnEpochEnd(ctx *EpochContext) error {
	file, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat history file: %v", err)
	}

	rows := []EpochRecord{*ctx.Record}
	if info.Size() == 0 {
		err = gocsv.MarshalFile(&rows, file)
	} else {
		err = gocsv.MarshalWithoutHeaders(&rows, file)
	}
	if err != nil {
		return fmt.Errorf("failed to append history row: %v", err)
	}
	return nil
}

// EarlyStopping halts training after Patience epochs without
// validation-loss improvement and restores the best weights seen.
type EarlyStopping struct {
	Patience    int
	RestoreBest bool

	best  float64
	wait  int
	seen  bool
	stash []checkpoints.WeightTensor
}

func (e *EarlyStopping) OnEpochBegin(ctx *EpochContext) error { return nil }

func (e *EarlyStopping) OnEpochEnd(ctx *EpochContext) error {
	if !e.seen || ctx.Record.ValLoss < e.best {
		e.best = ctx.Record.ValLoss
		e.seen = true
		e.wait = 0
		if e.RestoreBest {
			weights, err := ctx.Model.ExportWeights()
			if err != nil {
				return fmt.Errorf("failed to stash best weights: %v", err)
			}
			e.stash = weights
		}
		return nil
	}
	e.wait++
	if e.wait < e.Patience {
		return nil
	}
	ctx.Logger.Infof("epoch %d: val_loss stalled for %d epochs, stopping early", ctx.Epoch, e.wait)
	if e.RestoreBest && e.stash != nil {
		if err := ctx.Model.ImportWeights(e.stash); err != nil {
			return fmt.Errorf("failed to restore best weights: %v", err)
		}
	}
	ctx.RequestStop()
	return nil
}
