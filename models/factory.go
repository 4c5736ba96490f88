package models

import (
	"errors"
	"fmt"

	"github.com/openimaging/go-trainer/nn"
)

// ErrModelConstructionFailed indicates the composed constructor symbol does
// not exist or the base name matches no family rule.
var ErrModelConstructionFailed = errors.New("model construction failed")

// Build produces an unconfigured base network for a resolved spec. Builtin
// entries resolve a constructor symbol through the static backbone catalog;
// custom entries invoke their registered builder. Classification backbones
// are built without their pretrained top layer, since the goal is transfer
// learning; segmentation networks train the full stack.
func Build(spec *ModelSpec, inputShape nn.Shape) (*nn.NetworkSpec, error) {
	entry, ok := lookup(spec.BaseName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBaseModel, spec.BaseName)
	}

	switch entry.Kind {
	case Builtin:
		symbol, err := composeSymbol(spec)
		if err != nil {
			return nil, err
		}
		construct, ok := constructors[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no constructor for symbol %q (from %q)",
				ErrModelConstructionFailed, symbol, spec.RequestedName)
		}
		includeTop := spec.Task != Classification
		return construct(inputShape, includeTop), nil

	case Custom:
		network, err := entry.Build(inputShape)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrModelConstructionFailed, spec.RequestedName, err)
		}
		return network, nil

	default:
		return nil, fmt.Errorf("%w: unknown catalog entry kind for %q",
			ErrModelConstructionFailed, spec.BaseName)
	}
}

// ResolveAndBuild is the one-call path from a requested name to a trainable
// network with its task head attached.
func ResolveAndBuild(name string, inputShape nn.Shape) (*ModelSpec, *nn.NetworkSpec, error) {
	spec, err := Resolve(name)
	if err != nil {
		return nil, nil, err
	}
	base, err := Build(spec, inputShape)
	if err != nil {
		return nil, nil, err
	}
	network, err := AttachHead(base, spec.Task)
	if err != nil {
		return nil, nil, err
	}
	return spec, network, nil
}
