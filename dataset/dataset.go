// Package dataset discovers image/label pairs, computes adaptive batch
// sizes under a memory budget, performs reproducible splits, and exposes a
// lazy per-sample loading pipeline.
package dataset

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/openimaging/go-trainer/logger"
	"github.com/openimaging/go-trainer/nn"
	"github.com/openimaging/go-trainer/vision/preprocessing"
)

var (
	// ErrCountMismatch indicates the number of inputs and targets differ.
	ErrCountMismatch = errors.New("number of images and targets mismatched, curate datapoints")

	// ErrUnsupportedShape indicates a sample image with unexpected
	// dimensionality.
	ErrUnsupportedShape = errors.New("unsupported image shape")

	// ErrMissingRequiredPath indicates the caller omitted a dataset path
	// required by the chosen mode.
	ErrMissingRequiredPath = errors.New("required path missing")
)

const (
	defaultBatchSize  = 16
	defaultSeed       = 42
	defaultSplitRatio = 0.2

	// labelExt is appended to ids from a label file to match image
	// filenames.
	labelExt = ".tif"
)

// Mode distinguishes the two supported dataset layouts.
type Mode int

const (
	// MaskPaired pairs an images directory with a masks directory of
	// identically named and ordered files.
	MaskPaired Mode = iota

	// Labeled pairs an images directory with a tabular file of (id, label)
	// rows.
	Labeled
)

func (m Mode) String() string {
	if m == Labeled {
		return "labeled"
	}
	return "mask-paired"
}

// Paths names the dataset locations. Images is always required; Masks or
// Labels selects the mode.
type Paths struct {
	Images string
	Masks  string
	Labels string
}

// Sample is one (input, target) pair. MaskPath is set in mask-paired mode,
// Label in labeled mode.
type Sample struct {
	InputPath string
	MaskPath  string
	Label     string
}

// Manager owns sample discovery, splitting, batch sizing and the loading
// pipeline for one dataset.
type Manager struct {
	mode    Mode
	paths   Paths
	samples []Sample

	originalDims nn.Shape
	targetDims   nn.Shape

	seed         int64
	batchSize    int
	meanFileSize float64

	train []Sample
	valid []Sample
	test  []Sample

	trainSteps int
	validSteps int

	classes []string

	prober    MemoryProber
	cache     *Cache
	log       *zap.SugaredLogger
}

// NewImgMaskDataset builds a Manager for an images directory paired with a
// masks directory. Requires Paths.Images and Paths.Masks.
func NewImgMaskDataset(paths Paths) (*Manager, error) {
	if paths.Images == "" {
		return nil, fmt.Errorf("%w: Images", ErrMissingRequiredPath)
	}
	if paths.Masks == "" {
		return nil, fmt.Errorf("%w: Masks", ErrMissingRequiredPath)
	}

	m := newManager(MaskPaired, paths)
	images, err := listFiles(paths.Images)
	if err != nil {
		return nil, err
	}
	masks, err := listFiles(paths.Masks)
	if err != nil {
		return nil, err
	}
	if len(images) != len(masks) {
		return nil, fmt.Errorf("%w: %d images, %d masks", ErrCountMismatch, len(images), len(masks))
	}

	m.samples = make([]Sample, len(images))
	for i := range images {
		m.samples[i] = Sample{InputPath: images[i], MaskPath: masks[i]}
	}

	if err := m.finishInit(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewImgLabelDataset builds a Manager for an images directory paired with a
// tabular label file. Requires Paths.Images and Paths.Labels.
func NewImgLabelDataset(paths Paths) (*Manager, error) {
	if paths.Images == "" {
		return nil, fmt.Errorf("%w: Images", ErrMissingRequiredPath)
	}
	if paths.Labels == "" {
		return nil, fmt.Errorf("%w: Labels", ErrMissingRequiredPath)
	}

	m := newManager(Labeled, paths)
	images, err := listFiles(paths.Images)
	if err != nil {
		return nil, err
	}
	rows, err := readLabelFile(paths.Labels)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(images) {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrCountMismatch, len(images), len(rows))
	}

	m.samples = make([]Sample, len(rows))
	classSet := map[string]struct{}{}
	for i, row := range rows {
		m.samples[i] = Sample{
			InputPath: filepath.Join(paths.Images, row.ID+labelExt),
			Label:     row.Label,
		}
		classSet[row.Label] = struct{}{}
	}
	for class := range classSet {
		m.classes = append(m.classes, class)
	}
	sort.Strings(m.classes)

	if err := m.finishInit(); err != nil {
		return nil, err
	}
	return m, nil
}

func newManager(mode Mode, paths Paths) *Manager {
	return &Manager{
		mode:      mode,
		paths:     paths,
		seed:      defaultSeed,
		batchSize: defaultBatchSize,
		prober:    SystemMemory{},
		log:       logger.WithDataset(paths.Images),
	}
}

func (m *Manager) finishInit() error {
	dims, err := m.inferDims()
	if err != nil {
		return err
	}
	m.originalDims = dims
	m.targetDims = dims
	m.meanFileSize = m.computeMeanFileSize()

	if err := m.Split(defaultSplitRatio); err != nil {
		return err
	}
	m.calcSteps()
	return nil
}

// inferDims reads exactly one sample image and uses its shape as the
// assumed uniform shape for the whole set. Inputs are always decoded as
// 3-channel RGB, grayscale sources included, so the channel count the model
// is compiled against matches what the pipeline emits.
func (m *Manager) inferDims() (nn.Shape, error) {
	path := m.samples[0].InputPath
	file, err := os.Open(path)
	if err != nil {
		return nn.Shape{}, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return nn.Shape{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedShape, path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nn.Shape{}, fmt.Errorf("%w: %dx%d in %s", ErrUnsupportedShape, cfg.Height, cfg.Width, path)
	}
	if cfg.ColorModel == color.CMYKModel {
		return nn.Shape{}, fmt.Errorf("%w: CMYK sample %s", ErrUnsupportedShape, path)
	}

	return nn.Shape{Height: cfg.Height, Width: cfg.Width, Channels: 3}, nil
}

// computeMeanFileSize averages the on-disk size of all input files, used as
// the per-sample memory estimate for batch sizing.
func (m *Manager) computeMeanFileSize() float64 {
	sizes := make([]float64, 0, len(m.samples))
	for _, s := range m.samples {
		info, err := os.Stat(s.InputPath)
		if err != nil {
			continue
		}
		sizes = append(sizes, float64(info.Size()))
	}
	if len(sizes) == 0 {
		return 0
	}
	return stat.Mean(sizes, nil)
}

// SetSeed fixes the pseudo-random seed and re-partitions the dataset with
// it, making validation results reproducible.
func (m *Manager) SetSeed(seed int64) {
	m.seed = seed
	_ = m.Split(defaultSplitRatio)
}

// SetTargetDims overrides the dimensions samples are rescaled to during
// loading.
func (m *Manager) SetTargetDims(dims nn.Shape) {
	if min(dims.Height, dims.Width) < 100 || max(dims.Height, dims.Width) > 10000 {
		m.log.Warnf("unexpected image size: %dx%d", dims.Height, dims.Width)
	}
	m.targetDims = dims
}

// SetMemoryProber replaces the memory budget source. The orchestrator wires
// accelerator memory introspection in here when an accelerator is present.
func (m *Manager) SetMemoryProber(p MemoryProber) {
	m.prober = p
}

// EnableCache keeps up to maxItems decoded inputs in memory across epochs.
func (m *Manager) EnableCache(maxItems int) {
	m.cache = NewCache(maxItems)
}

// Mode returns the dataset layout mode.
func (m *Manager) Mode() Mode { return m.mode }

// Len returns the total number of discovered samples.
func (m *Manager) Len() int { return len(m.samples) }

// OriginalDims returns the inferred sample dimensions.
func (m *Manager) OriginalDims() nn.Shape { return m.originalDims }

// TargetDims returns the dimensions samples are rescaled to.
func (m *Manager) TargetDims() nn.Shape { return m.targetDims }

// BatchSize returns the current batch size.
func (m *Manager) BatchSize() int { return m.batchSize }

// Classes returns the sorted distinct labels of a labeled dataset.
func (m *Manager) Classes() []string { return m.classes }

// Counts returns the sizes of the train, validation and test subsets.
func (m *Manager) Counts() (train, valid, test int) {
	return len(m.train), len(m.valid), len(m.test)
}

// MeanFileSize returns the average input file size in bytes.
func (m *Manager) MeanFileSize() float64 { return m.meanFileSize }

// listFiles returns the sorted full paths of all regular files in dir.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("cannot find image files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func newProcessor(m *Manager) *preprocessing.Processor {
	return preprocessing.NewProcessor(m.originalDims, m.targetDims)
}
