// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pretrained implements the loading and saving protocol shared
// by all pretrained model classes in TextKit.
//
// A model architecture ("arch") groups one base encoder class with any
// number of derived head classes wrapping it. Every class declares its
// constructor signature and a build function; all construction funnels
// through New, which captures the effective constructor arguments as the
// instance's init configuration. That configuration, together with the
// arch's resource file names, is sufficient to reconstruct an
// architecturally equivalent model later.
//
// FromPretrained resolves a model identifier (a registered pretrained
// name or a local directory), downloads and caches the associated config
// and weight artifacts, reconciles the saved configuration against the
// requested class (splitting arguments between base and derived
// constructors), and loads weights with prefix-aware partial matching:
// a base-only checkpoint loads cleanly into either the bare base model
// or a derived model with extra head parameters, with the difference
// reported, never fatal.
//
// Example:
//
//	model, err := mini.ClassForSequenceClassification.FromPretrained(
//	    "mini-en", nil, map[string]any{"num_labels": 4})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = pretrained.Save(model, "./my-model")
package pretrained
