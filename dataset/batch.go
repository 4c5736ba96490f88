package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v3/mem"
)

// ErrBatchSizeExceedsLimit indicates that even the lowest candidate power
// of two exceeds the memory-derived maximum.
var ErrBatchSizeExceedsLimit = errors.New("batch size exceeds memory limit")

const (
	// defaultMemoryFactor is the fraction of available system memory the
	// batch estimate may claim.
	defaultMemoryFactor = 0.8

	// minMemoryBudget floors the budget on shared systems where transient
	// load would otherwise starve the estimate.
	minMemoryBudget = 50_000_000_000
)

// MemoryProber reports the memory budget available for holding batches.
type MemoryProber interface {
	AvailableBytes() (uint64, error)
}

// SystemMemory probes host RAM. A zero Factor uses the default fraction.
type SystemMemory struct {
	Factor float64
}

// AvailableBytes returns a fraction of the currently available system
// memory, floored at the safety minimum.
func (s SystemMemory) AvailableBytes() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}

	factor := s.Factor
	if factor <= 0 {
		factor = defaultMemoryFactor
	}
	budget := uint64(factor * float64(vm.Available))
	if budget < minMemoryBudget {
		budget = minMemoryBudget
	}
	return budget, nil
}

// FixedMemory reports a constant budget. Used when an accelerator's memory
// statistics have already been read, and in tests.
type FixedMemory uint64

func (f FixedMemory) AvailableBytes() (uint64, error) {
	return uint64(f), nil
}

// SetBatchSize rounds the requested batch size up to the nearest power of
// two, bounded by the memory-derived maximum and by the dataset size. The
// chosen size differing from the request is advisory, not an error.
func (m *Manager) SetBatchSize(requested int) error {
	if requested < 1 {
		return fmt.Errorf("invalid batch size %d", requested)
	}

	if requested > roundedTenth(len(m.samples)) {
		m.log.Warnf("batch size %d exceeds 10 percent of the dataset; "+
			"minibatch optimization is typically suggested for stability wrt local minima", requested)
	}

	limit, err := m.maxBatchSize()
	if err != nil {
		return err
	}

	size, err := nearestPowerOfTwo(requested, limit)
	if err != nil {
		return err
	}
	if size > len(m.samples) {
		size = len(m.samples)
	}
	if size != requested {
		m.log.Infof("setting batch to %d (requested %d) for computational efficiency", size, requested)
	}

	m.batchSize = size
	m.calcSteps()
	return nil
}

// SetMaxBatchSize sets the batch size to the maximum the dataset and the
// memory budget allow. Fastest training, but prone to local minima.
func (m *Manager) SetMaxBatchSize() error {
	return m.SetBatchSize(len(m.samples))
}

// maxBatchSize estimates the largest feasible batch from the memory budget
// and the mean sample file size.
func (m *Manager) maxBatchSize() (float64, error) {
	budget, err := m.prober.AvailableBytes()
	if err != nil {
		return 0, fmt.Errorf("probe memory: %w", err)
	}
	if m.meanFileSize <= 0 {
		return math.Inf(1), nil
	}
	return float64(budget) / m.meanFileSize, nil
}

// roundedTenth is 10 percent of the dataset rounded to the nearest integer,
// the advisory ceiling for minibatch sizes.
func roundedTenth(n int) int {
	return int(math.Round(float64(n) / 10))
}

// nearestPowerOfTwo rounds up to the nearest power of two, falling back to
// the next lower power when the limit would be exceeded.
func nearestPowerOfTwo(requested int, limit float64) (int, error) {
	p := 1 << int(math.Ceil(math.Log2(float64(requested))))
	if float64(p) > limit {
		p = 1 << int(math.Floor(math.Log2(float64(requested))))
	}
	if float64(p) > limit {
		return 0, fmt.Errorf("%w: %d exceeds limit %.0f", ErrBatchSizeExceedsLimit, requested, limit)
	}
	return p, nil
}

// StepCounts returns the per-epoch step counts for the train and validation
// subsets under the current batch size.
func (m *Manager) StepCounts() (trainSteps, validSteps int) {
	return m.trainSteps, m.validSteps
}

func (m *Manager) calcSteps() {
	m.trainSteps = ceilSteps(len(m.train), m.batchSize)
	m.validSteps = ceilSteps(len(m.valid), m.batchSize)
}

// ceilSteps is ceiling division: an exact multiple adds no extra step.
func ceilSteps(count, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return (count + batchSize - 1) / batchSize
}
