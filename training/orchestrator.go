package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/openimaging/go-trainer/checkpoints"
	"github.com/openimaging/go-trainer/dataset"
	"github.com/openimaging/go-trainer/engine"
	"github.com/openimaging/go-trainer/logger"
	"github.com/openimaging/go-trainer/models"
	"github.com/openimaging/go-trainer/nn"
)

const (
	defaultEpochs       = 40
	defaultLearningRate = 1e-3

	// Debug mode trades fidelity for turnaround: a handful of batches over
	// a single epoch is enough to validate the whole pipeline end to end.
	debugBatches = 16
	debugEpochs  = 1
)

// Run states.
const (
	StateUninitialized = "uninitialized"
	StateResolved      = "resolved"
	StateFresh         = "fresh"
	StateResumed       = "resumed"
	StateCompiled      = "compiled"
	StateTraining      = "training"
	StateCompleted     = "completed"
)

// OptimizationParams are the tunable knobs of one run.
type OptimizationParams struct {
	LearningRate float64
	Epochs       int
}

// Config describes a training run.
type Config struct {
	// ModelName is the requested model identifier, e.g. "efficientnetb2"
	// or "resnet50_v2".
	ModelName string

	// ModelPathTop is the directory under which each model gets its own
	// artifact directory.
	ModelPathTop string

	Optimization OptimizationParams
	Loss         engine.LossFunction
	Optimizer    engine.OptimizerType

	// Resume continues from an existing checkpoint/history pair when both
	// files are present. When either is missing the run starts fresh and
	// removes any lone survivor.
	Resume bool

	// Debug truncates each epoch to a few batches and runs a single epoch.
	Debug bool
}

// DefaultConfig returns a run configuration with the standard defaults.
func DefaultConfig(modelName, modelPathTop string) Config {
	return Config{
		ModelName:    modelName,
		ModelPathTop: modelPathTop,
		Optimization: OptimizationParams{
			LearningRate: defaultLearningRate,
			Epochs:       defaultEpochs,
		},
		Loss:      engine.BinaryCrossEntropy,
		Optimizer: engine.Adam,
		Resume:    true,
	}
}

// Orchestrator drives a full training run: model resolution, fresh/resume
// decision, compilation, and the epoch loop with its callback set.
type Orchestrator struct {
	eng     engine.Engine
	data    *dataset.Manager
	cfg     Config
	machine *fsm.FSM
	log     *zap.SugaredLogger

	spec    *models.ModelSpec
	network *nn.NetworkSpec
	model   engine.Model
	files   checkpoints.RunFiles
	history *History
	isFresh bool
	lr      float64
}

// New returns an orchestrator for one training run.
func New(eng engine.Engine, data *dataset.Manager, cfg Config) *Orchestrator {
	o := &Orchestrator{
		eng:  eng,
		data: data,
		cfg:  cfg,
		lr:   cfg.Optimization.LearningRate,
		log:  logger.WithModel(cfg.ModelName),
	}
	// Batch sizing budgets against accelerator memory when the engine has
	// one; otherwise the manager keeps probing host RAM.
	if bytes, ok := eng.AcceleratorMemory(); ok {
		data.SetMemoryProber(dataset.FixedMemory(bytes))
		o.log.Debugf("batch sizing against %d bytes of accelerator memory", bytes)
	}
	o.machine = fsm.NewFSM(
		StateUninitialized,
		fsm.Events{
			{Name: "resolve", Src: []string{StateUninitialized}, Dst: StateResolved},
			{Name: "fresh", Src: []string{StateResolved}, Dst: StateFresh},
			{Name: "resume", Src: []string{StateResolved}, Dst: StateResumed},
			{Name: "compile", Src: []string{StateFresh, StateResumed}, Dst: StateCompiled},
			{Name: "train", Src: []string{StateCompiled}, Dst: StateTraining},
			{Name: "retrain", Src: []string{StateCompleted}, Dst: StateTraining},
			{Name: "complete", Src: []string{StateTraining}, Dst: StateCompleted},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				o.log.Debugf("run state: %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return o
}

// State returns the current run state.
func (o *Orchestrator) State() string { return o.machine.Current() }

// IsFresh reports whether the run started without a usable checkpoint pair.
func (o *Orchestrator) IsFresh() bool { return o.isFresh }

// History returns the metrics recorded so far in the current attempt.
func (o *Orchestrator) History() *History { return o.history }

// Files returns the checkpoint/history pair of this run.
func (o *Orchestrator) Files() checkpoints.RunFiles { return o.files }

// Spec returns the resolved model specification.
func (o *Orchestrator) Spec() *models.ModelSpec { return o.spec }

// Run executes the full training flow.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.resolve(); err != nil {
		return err
	}
	if err := o.prepare(); err != nil {
		return err
	}
	if err := o.compile(); err != nil {
		return err
	}
	return o.trainOnce(ctx)
}

func (o *Orchestrator) resolve() error {
	spec, network, err := models.ResolveAndBuild(o.cfg.ModelName, o.data.TargetDims())
	if err != nil {
		return err
	}
	o.spec = spec
	o.network = network

	dir := filepath.Join(o.cfg.ModelPathTop, spec.RequestedName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %v", err)
	}
	o.files = checkpoints.RunFilesFor(dir, spec.RequestedName)

	o.log.Infof("resolved %q: base=%s complexity=%q version=%s task=%s",
		spec.RequestedName, spec.BaseName, spec.Complexity, spec.Version, spec.Task)
	return o.machine.Event("resolve")
}

// prepare decides fresh versus resume. Resuming requires both run files;
// with either one missing, leftovers are deleted so a partial previous run
// cannot contaminate this one.
func (o *Orchestrator) prepare() error {
	if o.cfg.Resume && o.files.BothExist() {
		history, err := LoadHistory(o.files.History)
		if err != nil {
			return err
		}
		o.history = history
		o.isFresh = false
		o.log.Infof("resuming from checkpoint, %d prior epochs", history.Len())
		return o.machine.Event("resume")
	}

	if err := o.files.Remove(); err != nil {
		return err
	}
	o.history = &History{}
	o.isFresh = true
	o.log.Infof("starting fresh run")
	return o.machine.Event("fresh")
}

func (o *Orchestrator) compile() error {
	model, err := o.eng.Compile(o.network, engine.CompileConfig{
		Loss:         o.cfg.Loss,
		Optimizer:    o.cfg.Optimizer,
		LearningRate: o.lr,
	})
	if err != nil {
		return fmt.Errorf("failed to compile model: %v", err)
	}
	o.model = model

	if !o.isFresh {
		ckpt, err := checkpoints.Load(o.files.Checkpoint)
		if err != nil {
			return err
		}
		if err := model.ImportWeights(ckpt.Weights); err != nil {
			return fmt.Errorf("failed to import checkpoint weights: %v", err)
		}
		if ckpt.TrainingState.LearningRate > 0 {
			o.lr = ckpt.TrainingState.LearningRate
			model.SetLearningRate(o.lr)
		}
	}
	return o.machine.Event("compile")
}

func (o *Orchestrator) trainOnce(ctx context.Context) error {
	if err := o.machine.Event("train"); err != nil {
		return err
	}
	if err := o.runEpochs(ctx); err != nil {
		return err
	}
	return o.machine.Event("complete")
}

// Retrain runs another full set of epochs on the already compiled model,
// after clearing optimizer state and the live history. The caller is
// expected to have backed up the previous attempt's files first.
func (o *Orchestrator) Retrain(ctx context.Context) error {
	if err := o.machine.Event("retrain"); err != nil {
		return err
	}
	o.model.ResetOptimizerState()
	o.lr = o.cfg.Optimization.LearningRate
	o.history = &History{}
	if err := os.Remove(o.files.History); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to reset history file: %v", err)
	}
	if err := o.runEpochs(ctx); err != nil {
		return err
	}
	return o.machine.Event("complete")
}

func (o *Orchestrator) runEpochs(ctx context.Context) error {
	epochs := o.cfg.Optimization.Epochs
	trainPipe := o.data.TrainPipeline()
	validPipe := o.data.ValidPipeline()
	if o.cfg.Debug {
		epochs = debugEpochs
		trainPipe.Truncate(debugBatches)
		validPipe.Truncate(debugBatches)
		o.log.Warnf("debug mode: %d epochs of at most %d batches", epochs, debugBatches)
	}

	trainSteps, validSteps := o.data.StepCounts()
	o.log.Infof("training %d epochs, %d train / %d validation steps, batch size %d",
		epochs, trainSteps, validSteps, o.data.BatchSize())

	callbacks := o.defaultCallbacks()
	for epoch := 1; epoch <= epochs; epoch++ {
		record := &EpochRecord{Epoch: epoch, LearningRate: o.lr}
		ectx := &EpochContext{
			Epoch:        epoch,
			Record:       record,
			Model:        o.model,
			LearningRate: o.lr,
			Logger:       o.log,
		}

		for _, cb := range callbacks {
			if err := cb.OnEpochBegin(ectx); err != nil {
				return err
			}
		}

		if err := o.runPass(ctx, trainPipe, record, true); err != nil {
			return err
		}
		if err := o.runPass(ctx, validPipe, record, false); err != nil {
			return err
		}

		for _, cb := range callbacks {
			if err := cb.OnEpochEnd(ectx); err != nil {
				return err
			}
		}
		o.lr = ectx.LearningRate
		o.history.Append(*record)

		o.log.Infof("epoch %d/%d: loss=%.4f val_loss=%.4f dice=%.4f val_dice=%.4f acc=%.4f val_acc=%.4f (%.1fs)",
			epoch, epochs, record.Loss, record.ValLoss, record.Dice, record.ValDice,
			record.Accuracy, record.ValAccuracy, record.EpochTime)

		if ectx.StopRequested() {
			break
		}
	}
	return nil
}

// runPass drives one full pipeline pass, training or evaluating, and fills
// the corresponding fields of the epoch record.
func (o *Orchestrator) runPass(ctx context.Context, pipe *dataset.Pipeline, record *EpochRecord, train bool) error {
	it := pipe.Iterate(ctx)
	defer it.Close()

	var acc metricAccumulator
	for {
		batch, err := it.Next()
		if err != nil {
			return err
		}
		if batch == nil {
			break
		}

		var stats engine.BatchStats
		if train {
			stats, err = o.model.TrainBatch(batch)
		} else {
			stats, err = o.model.EvaluateBatch(batch)
		}
		if err != nil {
			return err
		}
		acc.add(stats)
	}

	loss, accuracy, dice := acc.means()
	if train {
		record.Loss, record.Accuracy, record.Dice = loss, accuracy, dice
	} else {
		record.ValLoss, record.ValAccuracy, record.ValDice = loss, accuracy, dice
	}
	return nil
}

// defaultCallbacks is the fixed callback set of every run: best-checkpoint
// saving, plateau learning-rate reduction, epoch timing, crash-safe CSV
// logging, and early stopping. Order matters: the timer must finish before
// the CSV row is written.
func (o *Orchestrator) defaultCallbacks() []Callback {
	return []Callback{
		&ModelCheckpoint{Save: o.saveCheckpoint},
		&ReduceLROnPlateau{Factor: 0.2, Patience: 2, MinLR: 1e-7},
		&EpochTimer{},
		&CSVLogger{Path: o.files.History},
		&EarlyStopping{Patience: 5, RestoreBest: true},
	}
}

func (o *Orchestrator) saveCheckpoint(ctx *EpochContext) error {
	weights, err := ctx.Model.ExportWeights()
	if err != nil {
		return fmt.Errorf("failed to export weights: %v", err)
	}
	ckpt := &checkpoints.Checkpoint{
		Network: o.network,
		Weights: weights,
		TrainingState: checkpoints.TrainingState{
			Epoch:        ctx.Epoch,
			LearningRate: ctx.LearningRate,
			BestValLoss:  ctx.Record.ValLoss,
		},
	}
	return ckpt.Save(o.files.Checkpoint)
}

// metricAccumulator aggregates batch statistics into sample-weighted epoch
// means, so a short final batch does not skew the result.
type metricAccumulator struct {
	loss, accuracy, dice float64
	n                    int
}

func (a *metricAccumulator) add(s engine.BatchStats) {
	w := float64(s.Size)
	a.loss += s.Loss * w
	a.accuracy += s.Accuracy * w
	a.dice += s.Dice * w
	a.n += s.Size
}

func (a *metricAccumulator) means() (loss, accuracy, dice float64) {
	if a.n == 0 {
		return 0, 0, 0
	}
	w := float64(a.n)
	return a.loss / w, a.accuracy / w, a.dice / w
}
