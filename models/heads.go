package models

import (
	"errors"
	"fmt"

	"github.com/openimaging/go-trainer/nn"
)

// ErrUnsupportedTaskType indicates a task type the adapter has no head for.
var ErrUnsupportedTaskType = errors.New("unsupported task type")

// NumClasses is the output width of the classification head. Arbitrary
// class counts are a known extension point; changing this silently would
// alter checkpoint compatibility.
const NumClasses = 2

// AttachHead appends a task-appropriate output head to a base network.
//
// Classification gets the transfer-learning stack replacing the stripped
// pretrained top. Segmentation returns the base unmodified: output
// resolution must already match input resolution, which the choice of base
// architecture has to satisfy; no shape validation happens here and a
// mismatch surfaces at training time.
func AttachHead(base *nn.NetworkSpec, task TaskType) (*nn.NetworkSpec, error) {
	switch task {
	case Segmentation:
		return base, nil
	case Classification:
		return nn.Extend(base).
			AddFlatten("flatten").
			AddDense(64, nn.ActivationReLU, "dense_1").
			AddDropout(0.5, "dropout_1").
			AddDense(32, nn.ActivationReLU, "dense_2").
			AddDropout(0.5, "dropout_2").
			AddBatchNorm("batch_norm").
			AddDense(NumClasses, nn.ActivationSoftmax, "predictions").
			Build(), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTaskType, task)
	}
}
