package models

import (
	"fmt"
	"strings"
)

// versionSuffix renders the constructor-symbol fragment for a detected
// version.
func versionSuffix(v Version) string {
	switch v {
	case VersionV2:
		return "V2"
	case VersionV3:
		return "V3"
	default:
		return ""
	}
}

// composeSymbol builds the backbone constructor symbol for a resolved spec
// following the per-family naming convention. Each builtin family has an
// explicit rule; an unmatched base name is a construction failure.
func composeSymbol(spec *ModelSpec) (string, error) {
	base := spec.BaseName

	switch {
	case strings.HasPrefix(base, "efficientnet"):
		return "EfficientNet" + versionSuffix(spec.Version) + strings.ToUpper(spec.Complexity), nil

	case base == "densenet":
		if err := requireComplexity(spec, "DenseNet"); err != nil {
			return "", err
		}
		return "DenseNet" + spec.Complexity, nil

	case base == "vgg":
		if err := requireComplexity(spec, "VGG"); err != nil {
			return "", err
		}
		return "VGG" + spec.Complexity, nil

	case base == "inception":
		return "InceptionV3" + spec.Complexity, nil

	case base == "inception_resnet":
		return "InceptionResNetV2" + spec.Complexity, nil

	case strings.HasPrefix(base, "resnet"):
		if err := requireComplexity(spec, "ResNet"); err != nil {
			return "", err
		}
		symbol := "ResNet"
		if strings.Contains(base, "_rs") {
			symbol += "RS"
		}
		return symbol + spec.Complexity + versionSuffix(spec.Version), nil

	case strings.HasPrefix(base, "regnet"):
		if err := requireComplexity(spec, "RegNet"); err != nil {
			return "", err
		}
		return "RegNet" + strings.ToUpper(spec.Complexity), nil

	case strings.HasPrefix(base, "mobilenet"):
		return "MobileNet" + versionSuffix(spec.Version) + spec.Complexity, nil

	case strings.HasPrefix(base, "xception"):
		return "Xception" + versionSuffix(spec.Version) + spec.Complexity, nil

	default:
		return "", fmt.Errorf("%w: no family rule for base %q", ErrModelConstructionFailed, base)
	}
}

func requireComplexity(spec *ModelSpec, familyPrefix string) error {
	if spec.Complexity == "" {
		return fmt.Errorf("%w: %s must be followed by a valid architecture size", ErrModelConstructionFailed, familyPrefix)
	}
	return nil
}
