// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/textkit-ml/textkit/internal/downloader"
)

// configFileResource is the pseudo resource id the resolver uses for
// the model configuration file of a local directory.
const configFileResource = "model_config_file"

// ModelHomeEnv overrides the local model cache root when set.
const ModelHomeEnv = "TEXTKIT_HOME"

// UnknownModelError reports a model identifier that is neither a
// registered pretrained name nor an existing directory.
type UnknownModelError struct {
	ClassName string
	Name      string
	Known     []string
}

// Error implements the error interface.
func (e *UnknownModelError) Error() string {
	return fmt.Sprintf(
		"call %s.FromPretrained with a registered model identifier or the path to a directory; supported identifiers are %v, but got %q",
		e.ClassName, e.Known, e.Name)
}

// ModelHome returns the root directory for cached model artifacts:
// $TEXTKIT_HOME if set, else <user cache dir>/textkit/models.
func ModelHome() string {
	if home := os.Getenv(ModelHomeEnv); home != "" {
		return home
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "textkit", "models")
}

// resolveResources maps a model identifier to local artifact paths.
//
// Registered names resolve through the arch's URL registry, local
// directories through the arch's fixed resource file names. Each
// resource is then taken from (in order) an existing local file, the
// cache under ModelHome()/<identifier>, or a fresh download into that
// cache. The returned map preserves resource registration order; the
// accompanying Config is the registry init configuration (deep-copied)
// or nil when the identifier is a directory.
func (cls *Class) resolveResources(nameOrPath string) (*orderedmap.OrderedMap[string, string], Config, error) {
	arch := cls.Arch
	resources := orderedmap.New[string, string]()
	var initCfg Config

	if registered, ok := arch.PretrainedConfigs[nameOrPath]; ok {
		for pair := arch.ResourceFiles.Oldest(); pair != nil; pair = pair.Next() {
			urls := arch.PretrainedResources[pair.Key]
			u, ok := urls[nameOrPath]
			if !ok {
				return nil, nil, fmt.Errorf("no pretrained resource %q registered for model %q", pair.Key, nameOrPath)
			}
			resources.Set(pair.Key, u)
		}
		initCfg = registered.Clone()
	} else if isDir(nameOrPath) {
		for pair := arch.ResourceFiles.Oldest(); pair != nil; pair = pair.Next() {
			resources.Set(pair.Key, filepath.Join(nameOrPath, pair.Value))
		}
		// The config file is optional in a saved directory; when it is
		// absent the registry configuration (if any) stays in effect.
		cfgPath := filepath.Join(nameOrPath, arch.ConfigFile)
		if isFile(cfgPath) {
			resources.Set(configFileResource, cfgPath)
		}
	} else {
		return nil, nil, &UnknownModelError{
			ClassName: cls.Name,
			Name:      nameOrPath,
			Known:     arch.ModelNames(),
		}
	}

	cacheRoot := filepath.Join(ModelHome(), nameOrPath)
	resolved := orderedmap.New[string, string]()
	for pair := resources.Oldest(); pair != nil; pair = pair.Next() {
		location := pair.Value
		cached := filepath.Join(cacheRoot, filepath.Base(location))
		switch {
		case isFile(location):
			resolved.Set(pair.Key, location)
		case isFile(cached):
			logrus.WithField("path", cached).Debug("model artifact already cached")
			resolved.Set(pair.Key, cached)
		default:
			local, err := downloader.Fetch(location, cacheRoot)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to resolve resource %q for %q: %w", pair.Key, nameOrPath, err)
			}
			resolved.Set(pair.Key, local)
		}
	}

	return resolved, initCfg, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
