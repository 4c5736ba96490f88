// Package preprocessing decodes training images and masks into normalized
// float32 tensors ready for the compute engine.
package preprocessing

import (
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	// Formats the dataset conventions use. TIFF is the default extension
	// for labeled datasets.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"github.com/openimaging/go-trainer/nn"
)

// Sample is a decoded image or mask in HWC layout with values in [0, 1].
type Sample struct {
	Data  []float32
	Shape nn.Shape
}

// Processor decodes and preprocesses samples with buffer reuse. One
// Processor is safe for concurrent use.
type Processor struct {
	mu     sync.Mutex
	buffer []float32

	original nn.Shape
	target   nn.Shape
}

// NewProcessor creates a processor that resizes decoded samples from the
// dataset's original dimensions to the target dimensions. Resizing only
// happens when the two differ.
func NewProcessor(original, target nn.Shape) *Processor {
	return &Processor{original: original, target: target}
}

// TargetShape returns the dimensions decoded samples come out at.
func (p *Processor) TargetShape() nn.Shape {
	if p.target != (nn.Shape{}) && p.target != p.original {
		return p.target
	}
	return p.original
}

// DecodeImageFile decodes an input image from disk as 3-channel RGB.
func (p *Processor) DecodeImageFile(path string) (*Sample, error) {
	return p.decodeFile(path, 3)
}

// DecodeMaskFile decodes a mask from disk as a single grayscale channel,
// keeping the trailing channel dimension.
func (p *Processor) DecodeMaskFile(path string) (*Sample, error) {
	return p.decodeFile(path, 1)
}

func (p *Processor) decodeFile(path string, channels int) (*Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sample, err := p.decode(file, channels)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return sample, nil
}

func (p *Processor) decode(reader io.Reader, channels int) (*Sample, error) {
	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, err
	}

	height, width := p.original.Height, p.original.Width
	if p.target != (nn.Shape{}) && p.target != p.original {
		height, width = p.target.Height, p.target.Width
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	scaleX := float64(srcW) / float64(width)
	scaleY := float64(srcH) / float64(height)

	p.mu.Lock()
	required := height * width * channels
	if len(p.buffer) < required {
		p.buffer = make([]float32, required)
	}
	data := p.buffer[:required]

	for y := 0; y < height; y++ {
		srcY := bounds.Min.Y + clampIndex(int(float64(y)*scaleY), srcH)
		for x := 0; x < width; x++ {
			srcX := bounds.Min.X + clampIndex(int(float64(x)*scaleX), srcW)
			r, g, b, _ := img.At(srcX, srcY).RGBA()

			idx := (y*width + x) * channels
			if channels == 1 {
				// Grayscale via the standard luma weights.
				luma := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
				data[idx] = clampUnit(float32(luma / 65535.0))
			} else {
				data[idx] = clampUnit(float32(r) / 65535.0)
				data[idx+1] = clampUnit(float32(g) / 65535.0)
				data[idx+2] = clampUnit(float32(b) / 65535.0)
			}
		}
	}

	// Copy out since the working buffer is reused across calls.
	result := make([]float32, required)
	copy(result, data)
	p.mu.Unlock()

	return &Sample{
		Data:  result,
		Shape: nn.Shape{Height: height, Width: width, Channels: channels},
	}, nil
}

func clampIndex(v, max int) int {
	if v >= max {
		return max - 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func clampUnit(v float32) float32 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
