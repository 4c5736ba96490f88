// Package models maps free-form model-name strings to concrete network
// constructors and attaches task-appropriate output heads.
package models

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/openimaging/go-trainer/nn"
)

// TaskType classifies what a network predicts.
type TaskType int

const (
	Classification TaskType = iota
	Segmentation
)

func (t TaskType) String() string {
	switch t {
	case Classification:
		return "classification"
	case Segmentation:
		return "segmentation"
	default:
		return "unknown"
	}
}

// EntryKind distinguishes builtin backbone families from custom networks
// registered by the embedding application.
type EntryKind int

const (
	Builtin EntryKind = iota
	Custom
)

// CustomBuilder constructs a custom network for the given input shape.
// Custom networks are always trained from scratch, so there is no
// include-top option.
type CustomBuilder func(inputShape nn.Shape) (*nn.NetworkSpec, error)

// CatalogEntry carries everything the factory needs, resolved once at
// catalog lookup: builtin entries name a family rule, custom entries carry
// their builder directly.
type CatalogEntry struct {
	Kind  EntryKind
	Task  TaskType
	Build CustomBuilder // set only for Custom entries
}

// catalog is populated at process start and read-only afterwards. Tested on
// backbones available in mainstream pretrained-weight catalogs; earlier
// framework releases do not ship all of these families.
var catalog = map[string]CatalogEntry{
	"efficientnet":     {Kind: Builtin, Task: Classification},
	"efficientnet_v2":  {Kind: Builtin, Task: Classification},
	"densenet":         {Kind: Builtin, Task: Classification},
	"vgg":              {Kind: Builtin, Task: Classification},
	"inception":        {Kind: Builtin, Task: Classification},
	"inception_resnet": {Kind: Builtin, Task: Classification},
	"resnet":           {Kind: Builtin, Task: Classification},
	"resnet_v2":        {Kind: Builtin, Task: Classification},
	"resnet_rs":        {Kind: Builtin, Task: Classification},
	"regnet":           {Kind: Builtin, Task: Classification},
	"mobilenet":        {Kind: Builtin, Task: Classification},
	"mobilenet_v2":     {Kind: Builtin, Task: Classification},
	"mobilenet_v3":     {Kind: Builtin, Task: Classification},
	"xception":         {Kind: Builtin, Task: Classification},
}

// sealed flips once the catalog has been read; registration afterwards is a
// programming error, there is no runtime mutation path.
var sealed atomic.Bool

// RegisterCustom adds a custom network builder to the catalog. It must be
// called during process initialization, before any name is resolved.
func RegisterCustom(name string, task TaskType, build CustomBuilder) {
	if sealed.Load() {
		panic(fmt.Sprintf("models: catalog is sealed, cannot register %q", name))
	}
	if _, ok := catalog[name]; ok {
		panic(fmt.Sprintf("models: %q already registered", name))
	}
	catalog[name] = CatalogEntry{Kind: Custom, Task: task, Build: build}
}

func lookup(baseName string) (CatalogEntry, bool) {
	sealed.Store(true)
	entry, ok := catalog[baseName]
	return entry, ok
}

// Names returns all registered base architecture names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
