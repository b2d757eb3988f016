// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import "fmt"

// Param describes one declared constructor parameter.
type Param struct {
	Name     string
	Default  any  // used when the parameter is not supplied
	Required bool // no default; omitting it is a constructor error
}

// Signature is the ordered list of a class's declared constructor
// parameters. It stands in for constructor introspection: binding a
// signature against supplied arguments yields the init configuration
// captured on the instance.
type Signature []Param

// Has reports whether the signature declares a parameter with the given
// name.
func (s Signature) Has(name string) bool {
	for _, p := range s {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Bind reconciles positional and keyword arguments against the declared
// parameters and returns the resulting configuration.
//
// Positional values fill declared parameters in order; surplus
// positionals are stored under KeyInitArgs. Keyword arguments must name
// declared parameters and may not repeat a positionally supplied one.
// Unsupplied parameters take their defaults; an unsupplied required
// parameter is an error. The class name is recorded under KeyInitClass.
func (s Signature) Bind(className string, args []any, kwargs map[string]any) (Config, error) {
	cfg := make(Config, len(s)+2)

	n := len(args)
	if n > len(s) {
		n = len(s)
	}
	for i := 0; i < n; i++ {
		cfg[s[i].Name] = args[i]
	}
	if len(args) > len(s) {
		extra := make([]any, len(args)-len(s))
		copy(extra, args[len(s):])
		cfg[KeyInitArgs] = extra
	}

	for name, value := range kwargs {
		if !s.Has(name) {
			return nil, fmt.Errorf("%s: unexpected keyword argument %q", className, name)
		}
		if _, ok := cfg[name]; ok {
			return nil, fmt.Errorf("%s: multiple values for argument %q", className, name)
		}
		cfg[name] = value
	}

	for _, p := range s {
		if _, ok := cfg[p.Name]; ok {
			continue
		}
		if p.Required {
			return nil, fmt.Errorf("%s: missing required argument %q", className, p.Name)
		}
		cfg[p.Name] = p.Default
	}

	cfg[KeyInitClass] = className
	return cfg, nil
}
