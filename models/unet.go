package models

import (
	"fmt"

	"github.com/openimaging/go-trainer/nn"
)

func init() {
	RegisterCustom("unet", Segmentation, buildUNet)
}

// buildUNet constructs the encoder-decoder dense-prediction network. The
// output keeps the input's height and width, with a single sigmoid channel
// for binary masks.
func buildUNet(inputShape nn.Shape) (*nn.NetworkSpec, error) {
	b := nn.NewBuilder(inputShape)

	encoderFilters := []int{64, 128, 256, 512}
	for i, filters := range encoderFilters {
		convBlock(b, filters, fmt.Sprintf("enc%d", i+1))
		b.AddMaxPool2D(2, fmt.Sprintf("pool%d", i+1))
	}

	convBlock(b, 1024, "bridge")

	for i := len(encoderFilters) - 1; i >= 0; i-- {
		filters := encoderFilters[i]
		b.AddUpSample2D(2, fmt.Sprintf("up%d", i+1))
		b.AddConcat(fmt.Sprintf("enc%d_conv2", i+1), fmt.Sprintf("skip%d", i+1))
		convBlock(b, filters, fmt.Sprintf("dec%d", i+1))
	}

	b.AddConv2D(1, 1, nn.ActivationSigmoid, "mask")
	return b.Build(), nil
}

// convBlock appends the two 3x3 convolutions used by every stage.
func convBlock(b *nn.Builder, filters int, name string) {
	b.AddConv2D(filters, 3, nn.ActivationReLU, name+"_conv1")
	b.AddConv2D(filters, 3, nn.ActivationReLU, name+"_conv2")
}
