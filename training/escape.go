package training

import (
	"context"
	"fmt"

	"github.com/openimaging/go-trainer/checkpoints"
	"github.com/openimaging/go-trainer/logger"
	"github.com/openimaging/go-trainer/models"
)

// BackupRecord is one completed training attempt: its numbered file pair
// and the final value of the selection metric.
type BackupRecord struct {
	Attempt int
	Files   checkpoints.RunFiles
	Metric  float64
}

// LocalMinimaEscape reruns training with reset optimizer state to shake a
// model out of a poor local minimum. Every attempt's artifacts are kept as
// numbered backups; after the last attempt the globally best one becomes
// the live checkpoint/history pair, even when a later attempt regressed.
type LocalMinimaEscape struct {
	// Attempts is the number of retraining rounds after the initial run.
	Attempts int

	// Metric selects the winner; higher is better. Empty means val_dice
	// for segmentation and val_accuracy for classification.
	Metric string
}

// Run performs the initial training run plus the configured retraining
// attempts and returns one record per attempt, in order.
func (l *LocalMinimaEscape) Run(ctx context.Context, o *Orchestrator) ([]BackupRecord, error) {
	log := logger.WithModel(o.cfg.ModelName)

	if err := o.Run(ctx); err != nil {
		return nil, err
	}
	metric := l.metricName(o.Spec())

	records := make([]BackupRecord, 0, l.Attempts+1)
	rec, err := l.backup(o, 0, metric)
	if err != nil {
		return nil, err
	}
	records = append(records, rec)

	for attempt := 1; attempt <= l.Attempts; attempt++ {
		log.Infof("escape attempt %d/%d: retraining with reset optimizer", attempt, l.Attempts)
		if err := o.Retrain(ctx); err != nil {
			return records, err
		}
		rec, err := l.backup(o, attempt, metric)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}

	best := records[0]
	for _, rec := range records[1:] {
		if rec.Metric > best.Metric {
			best = rec
		}
	}
	log.Infof("escape finished: attempt %d wins with %s=%.3f", best.Attempt, metric, best.Metric)

	if err := best.Files.Restore(o.files); err != nil {
		return records, fmt.Errorf("failed to restore best attempt: %v", err)
	}
	return records, nil
}

func (l *LocalMinimaEscape) backup(o *Orchestrator, attempt int, metric string) (BackupRecord, error) {
	files, err := o.files.Backup(attempt)
	if err != nil {
		return BackupRecord{}, fmt.Errorf("failed to back up attempt %d: %v", attempt, err)
	}
	value, err := o.history.FinalMetric(metric)
	if err != nil {
		return BackupRecord{}, err
	}
	return BackupRecord{Attempt: attempt, Files: files, Metric: value}, nil
}

func (l *LocalMinimaEscape) metricName(spec *models.ModelSpec) string {
	if l.Metric != "" {
		return l.Metric
	}
	if spec.Task == models.Segmentation {
		return "val_dice"
	}
	return "val_accuracy"
}
