// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import (
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/textkit-ml/textkit/internal/serialization"
)

// DefaultConfigFile is the file name model configurations are saved
// under.
const DefaultConfigFile = "model_config.json"

// defaultStateResource is the logical id and file name of the primary
// weight resource every arch starts with.
const defaultStateResource = "model_state"

// Arch holds the metadata shared by all model classes of one
// architecture family: resource file names, the pretrained registry,
// the state-dict prefix of the base encoder, and the registered base
// model class.
//
// Archs are populated at program startup (package init of the model
// packages) and read-only afterwards.
type Arch struct {
	// Name identifies the architecture (e.g. "mini").
	Name string

	// ConfigFile is the model configuration file name, normally
	// DefaultConfigFile.
	ConfigFile string

	// ResourceFiles maps logical resource ids to file names, in
	// registration order. The first entry is the primary weight
	// resource used by Save and FromPretrained.
	ResourceFiles *orderedmap.OrderedMap[string, string]

	// PretrainedConfigs maps canonical pretrained model names to their
	// init configurations.
	PretrainedConfigs map[string]Config

	// PretrainedResources maps resource ids to per-model download URLs.
	PretrainedResources map[string]map[string]string

	// BasePrefix is the state-dict key prefix under which derived
	// models nest the base encoder's parameters (e.g. "mini" for keys
	// like "mini.embed.weight").
	BasePrefix string

	baseClass *Class
}

// NewArch creates an architecture family with the default config file
// name and a single "model_state" weight resource.
func NewArch(name, basePrefix string) *Arch {
	files := orderedmap.New[string, string]()
	files.Set(defaultStateResource, defaultStateResource+serialization.FileSuffix)

	return &Arch{
		Name:                name,
		ConfigFile:          DefaultConfigFile,
		ResourceFiles:       files,
		PretrainedConfigs:   make(map[string]Config),
		PretrainedResources: make(map[string]map[string]string),
		BasePrefix:          basePrefix,
	}
}

// BaseClass returns the registered base model class, or nil if none has
// been registered yet.
func (a *Arch) BaseClass() *Class {
	return a.baseClass
}

// ModelNames returns the sorted canonical names of the arch's
// registered pretrained models.
func (a *Arch) ModelNames() []string {
	names := make([]string, 0, len(a.PretrainedConfigs))
	for name := range a.PretrainedConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Class describes one concrete model class: its name, the architecture
// it belongs to, its declared constructor signature, and the build
// function that assembles an instance from a bound configuration.
type Class struct {
	Name   string
	Arch   *Arch
	Params Signature

	// Build assembles the model from a configuration whose keys follow
	// Params. Values may carry JSON types (use the Config accessors) or
	// live values such as an already-constructed base Model.
	Build func(cfg Config) (Model, error)
}

// RegisterBaseModel declares cls as the base model class of its
// architecture: the class every other class of the arch wraps as its
// encoder.
//
// Misuse is a programming error, so it panics if cls has no Arch. Like
// any registration, the last call for a given arch wins.
func RegisterBaseModel(cls *Class) *Class {
	if cls.Arch == nil {
		panic("pretrained: RegisterBaseModel requires a class with an Arch")
	}
	cls.Arch.baseClass = cls
	return cls
}

// New constructs a model instance of the given class.
//
// This is the single construction funnel for all pretrained models: it
// binds args and kwargs against the class signature, invokes the build
// function, and captures the bound configuration on the instance. Typed
// constructors in model packages delegate here.
func New(cls *Class, args []any, kwargs map[string]any) (Model, error) {
	cfg, err := cls.Params.Bind(cls.Name, args, kwargs)
	if err != nil {
		return nil, err
	}

	m, err := cls.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cls.Name, err)
	}

	mb := m.modelBase()
	mb.class = cls
	mb.config = cfg
	mb.self = m
	return m, nil
}
