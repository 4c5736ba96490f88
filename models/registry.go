package models

import "github.com/openimaging/go-trainer/nn"

// BackboneConstructor produces an unconfigured backbone network for the
// given input shape. For classification backbones includeTop=false strips
// the pretrained output head for transfer learning.
type BackboneConstructor func(inputShape nn.Shape, includeTop bool) *nn.NetworkSpec

// constructors is the static catalog of backbone constructors keyed by
// symbol name. Populated once at init, read-only afterwards.
var constructors = map[string]BackboneConstructor{}

func registerFamily(family string, symbols ...string) {
	for _, symbol := range symbols {
		sym := symbol
		constructors[sym] = func(inputShape nn.Shape, includeTop bool) *nn.NetworkSpec {
			return nn.NewBackbone(family, sym, inputShape, includeTop)
		}
	}
}

func init() {
	registerFamily("efficientnet",
		"EfficientNetB0", "EfficientNetB1", "EfficientNetB2", "EfficientNetB3",
		"EfficientNetB4", "EfficientNetB5", "EfficientNetB6", "EfficientNetB7")
	registerFamily("efficientnet_v2",
		"EfficientNetV2B0", "EfficientNetV2B1", "EfficientNetV2B2", "EfficientNetV2B3",
		"EfficientNetV2S", "EfficientNetV2M", "EfficientNetV2L")
	registerFamily("densenet",
		"DenseNet121", "DenseNet169", "DenseNet201")
	registerFamily("vgg",
		"VGG16", "VGG19")
	registerFamily("inception",
		"InceptionV3")
	registerFamily("inception_resnet",
		"InceptionResNetV2")
	registerFamily("resnet",
		"ResNet50", "ResNet101", "ResNet152")
	registerFamily("resnet_v2",
		"ResNet50V2", "ResNet101V2", "ResNet152V2")
	registerFamily("resnet_rs",
		"ResNetRS50", "ResNetRS101", "ResNetRS152", "ResNetRS200",
		"ResNetRS270", "ResNetRS350", "ResNetRS420")
	registerFamily("regnet",
		"RegNetX002", "RegNetX004", "RegNetX006", "RegNetX008",
		"RegNetX016", "RegNetX032", "RegNetX040", "RegNetX064",
		"RegNetX080", "RegNetX120", "RegNetX160", "RegNetX320",
		"RegNetY002", "RegNetY004", "RegNetY006", "RegNetY008",
		"RegNetY016", "RegNetY032", "RegNetY040", "RegNetY064",
		"RegNetY080", "RegNetY120", "RegNetY160", "RegNetY320")
	registerFamily("mobilenet",
		"MobileNet", "MobileNetV2", "MobileNetV3Small", "MobileNetV3Large")
	registerFamily("xception",
		"Xception")
}
