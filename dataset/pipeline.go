package dataset

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/openimaging/go-trainer/nn"
	"github.com/openimaging/go-trainer/vision/preprocessing"
)

// prefetchDepth is how many decoded batches may sit ahead of the consumer,
// overlapping I/O with computation.
const prefetchDepth = 2

// Batch is one decoded batch in HWC layout. Targets hold either
// single-channel masks or one-hot class vectors.
type Batch struct {
	Inputs  []float32
	Targets []float32

	Size        int
	InputShape  nn.Shape
	TargetShape nn.Shape
}

// Pipeline lazily loads one subset of the dataset in batches. It is finite
// and restartable: each Iterate call starts over from the first sample.
type Pipeline struct {
	samples    []Sample
	batchSize  int
	mode       Mode
	processor  *preprocessing.Processor
	cache      *Cache
	classes    []string
	maxBatches int
}

// TrainPipeline returns the loading pipeline over the train subset.
func (m *Manager) TrainPipeline() *Pipeline { return m.pipeline(m.train) }

// ValidPipeline returns the loading pipeline over the validation subset.
func (m *Manager) ValidPipeline() *Pipeline { return m.pipeline(m.valid) }

// TestPipeline returns the loading pipeline over the test subset, which is
// empty in labeled mode.
func (m *Manager) TestPipeline() *Pipeline { return m.pipeline(m.test) }

func (m *Manager) pipeline(samples []Sample) *Pipeline {
	return &Pipeline{
		samples:   samples,
		batchSize: m.batchSize,
		mode:      m.mode,
		processor: newProcessor(m),
		cache:     m.cache,
		classes:   m.classes,
	}
}

// Len returns the number of batches one pass yields.
func (p *Pipeline) Len() int {
	n := ceilSteps(len(p.samples), p.batchSize)
	if p.maxBatches > 0 && p.maxBatches < n {
		return p.maxBatches
	}
	return n
}

// Truncate limits each pass to at most n batches. Used by debug mode for
// fast pipeline validation without full-scale compute cost.
func (p *Pipeline) Truncate(n int) {
	p.maxBatches = n
}

// Iterator yields decoded batches with read-ahead prefetching.
type Iterator struct {
	ch     chan *Batch
	cancel context.CancelFunc
	eg     *errgroup.Group
}

// Iterate starts a fresh pass over the pipeline's samples.
func (p *Pipeline) Iterate(ctx context.Context) *Iterator {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	it := &Iterator{
		ch:     make(chan *Batch, prefetchDepth),
		cancel: cancel,
		eg:     eg,
	}

	eg.Go(func() error {
		defer close(it.ch)
		batches := p.Len()
		for i := 0; i < batches; i++ {
			start := i * p.batchSize
			end := start + p.batchSize
			if end > len(p.samples) {
				end = len(p.samples)
			}
			batch, err := p.loadBatch(ctx, p.samples[start:end])
			if err != nil {
				return err
			}
			select {
			case it.ch <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return it
}

// Next returns the next batch, or (nil, nil) once the pass is complete.
func (it *Iterator) Next() (*Batch, error) {
	batch, ok := <-it.ch
	if !ok {
		if err := it.eg.Wait(); err != nil && err != context.Canceled {
			return nil, err
		}
		return nil, nil
	}
	return batch, nil
}

// Close abandons the pass and releases the producer.
func (it *Iterator) Close() {
	it.cancel()
	for range it.ch {
	}
	_ = it.eg.Wait()
}

// loadBatch decodes every sample of one batch concurrently.
func (p *Pipeline) loadBatch(ctx context.Context, samples []Sample) (*Batch, error) {
	inputShape := p.inputShape()
	targetShape := p.targetShape()

	batch := &Batch{
		Inputs:      make([]float32, len(samples)*inputShape.Elements()),
		Targets:     make([]float32, len(samples)*targetShape.Elements()),
		Size:        len(samples),
		InputShape:  inputShape,
		TargetShape: targetShape,
	}

	eg, _ := errgroup.WithContext(ctx)
	for i, sample := range samples {
		i, sample := i, sample
		eg.Go(func() error {
			input, err := p.loadInput(sample.InputPath)
			if err != nil {
				return err
			}
			copy(batch.Inputs[i*inputShape.Elements():(i+1)*inputShape.Elements()], input)

			target, err := p.loadTarget(sample, targetShape)
			if err != nil {
				return err
			}
			copy(batch.Targets[i*targetShape.Elements():(i+1)*targetShape.Elements()], target)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (p *Pipeline) loadInput(path string) ([]float32, error) {
	if p.cache != nil {
		if data, ok := p.cache.Get(path); ok {
			return data, nil
		}
	}
	sample, err := p.processor.DecodeImageFile(path)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.Put(path, sample.Data)
	}
	return sample.Data, nil
}

func (p *Pipeline) loadTarget(sample Sample, targetShape nn.Shape) ([]float32, error) {
	if p.mode == MaskPaired {
		mask, err := p.processor.DecodeMaskFile(sample.MaskPath)
		if err != nil {
			return nil, err
		}
		return mask.Data, nil
	}

	// One-hot class vector.
	target := make([]float32, targetShape.Elements())
	for idx, class := range p.classes {
		if class == sample.Label {
			target[idx] = 1
			return target, nil
		}
	}
	return nil, fmt.Errorf("unknown label %q for %s", sample.Label, sample.InputPath)
}

// inputShape is the target shape with the RGB channel count every decoded
// input carries, matching what inferDims reported at discovery.
func (p *Pipeline) inputShape() nn.Shape {
	shape := p.processor.TargetShape()
	shape.Channels = 3
	return shape
}

func (p *Pipeline) targetShape() nn.Shape {
	if p.mode == MaskPaired {
		shape := p.processor.TargetShape()
		shape.Channels = 1
		return shape
	}
	return nn.Shape{Height: 1, Width: 1, Channels: len(p.classes)}
}
