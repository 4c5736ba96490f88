package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownBaseModel indicates that no catalog entry prefixes the
	// requested model name.
	ErrUnknownBaseModel = errors.New("requested base model not supported")

	// ErrComplexitySpecTooLong indicates a complexity token longer than
	// maxComplexityLen characters. Limiter on arbitrary inputs.
	ErrComplexitySpecTooLong = errors.New("model complexity spec too long")
)

const maxComplexityLen = 12

// Version identifies a family version suffix embedded in the base name.
type Version int

const (
	VersionNone Version = iota
	VersionV2
	VersionV3
)

func (v Version) String() string {
	switch v {
	case VersionV2:
		return "v2"
	case VersionV3:
		return "v3"
	default:
		return "none"
	}
}

// ModelSpec is the parsed form of a requested model name.
type ModelSpec struct {
	// RequestedName is the normalized (lowercased) requested name.
	RequestedName string

	// BaseName is the longest catalog key that prefixes RequestedName.
	BaseName string

	// Complexity is the family-specific size tag left after stripping
	// BaseName, with small/large normalized to the architecture-name
	// convention.
	Complexity string

	Version Version
	Task    TaskType
}

// Resolve parses a model-name string into a ModelSpec. Matching is
// case-insensitive; when several catalog keys prefix the name, the longest
// one wins, which disambiguates keys that prefix longer keys (resnet vs
// resnet_rs).
func Resolve(name string) (*ModelSpec, error) {
	requested := strings.ToLower(name)

	base := ""
	for key := range catalog {
		if strings.HasPrefix(requested, key) && len(key) > len(base) {
			base = key
		}
	}
	if base == "" {
		return nil, fmt.Errorf("%w: %q (valid names: %v)", ErrUnknownBaseModel, name, Names())
	}

	entry, _ := lookup(base)

	// The version suffix may sit in the base name (efficientnet_v2) or
	// after the complexity token (resnet50_v2); either way it is detected
	// independently of the complexity itself.
	version := detectVersion(base)
	complexity := requested[len(base):]
	if v := detectVersion(complexity); v != VersionNone {
		version = v
		complexity = strings.Replace(complexity, "_"+v.String(), "", 1)
	}

	complexity = strings.ReplaceAll(complexity, "small", "Small")
	complexity = strings.ReplaceAll(complexity, "large", "Large")
	if len(complexity) > maxComplexityLen {
		return nil, fmt.Errorf("%w: %q", ErrComplexitySpecTooLong, complexity)
	}

	return &ModelSpec{
		RequestedName: requested,
		BaseName:      base,
		Complexity:    complexity,
		Version:       version,
		Task:          entry.Task,
	}, nil
}

// detectVersion finds a version suffix by substring match.
func detectVersion(s string) Version {
	switch {
	case strings.Contains(s, "_v2"):
		return VersionV2
	case strings.Contains(s, "_v3"):
		return VersionV3
	default:
		return VersionNone
	}
}
