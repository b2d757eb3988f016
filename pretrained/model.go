// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import (
	"fmt"

	"github.com/textkit-ml/textkit/nn"
)

// Model is the interface satisfied by every pretrained model class.
//
// Concrete models embed ModelBase and implement nn.Module; the pretrained
// machinery supplies class identity, the captured init configuration,
// and base-model navigation.
type Model interface {
	nn.Module

	// Class returns the model's class descriptor.
	Class() *Class

	// Config returns the init configuration captured at construction.
	// It is set once by New and never mutated afterward.
	Config() Config

	// BaseModel returns the nested base encoder of a derived model, or
	// the receiver itself when the model IS the base.
	BaseModel() Model

	modelBase() *ModelBase
}

// ModelBase is embedded by every concrete model type. It stores the
// identity New stamps onto each instance and the optional nested base
// model reference a head class records with SetBase.
type ModelBase struct {
	class  *Class
	config Config
	self   Model
	base   Model
}

// Class returns the model's class descriptor.
func (b *ModelBase) Class() *Class {
	return b.class
}

// Config returns the captured init configuration.
func (b *ModelBase) Config() Config {
	return b.config
}

// BaseModel returns the nested base model if one was recorded, else the
// model itself.
func (b *ModelBase) BaseModel() Model {
	if b.base != nil {
		return b.base
	}
	return b.self
}

// SetBase records the nested base model of a derived (head) class.
// Head build functions must call it with the encoder they wrap.
func (b *ModelBase) SetBase(m Model) {
	b.base = m
}

func (b *ModelBase) modelBase() *ModelBase {
	return b
}

// InputEmbedder is implemented by base models that expose their token
// embedding layer.
type InputEmbedder interface {
	InputEmbeddings() *nn.Embedding
}

// InputEmbeddings returns the token embedding layer of a model,
// delegating to the nested base model for derived classes.
func InputEmbeddings(m Model) (*nn.Embedding, error) {
	base := m.BaseModel()
	if e, ok := base.(InputEmbedder); ok {
		return e.InputEmbeddings(), nil
	}
	return nil, fmt.Errorf("%s does not expose input embeddings", base.Class().Name)
}
