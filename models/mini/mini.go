// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mini implements the Mini architecture family: a small text
// encoder and task heads built on it.
//
// Mini is deliberately tiny (embedding lookup plus layer norm) so the
// family can serve as both a usable baseline and the reference for how
// model packages plug into the pretrained machinery: declare an Arch,
// declare a Class per model type, register the base class, and expose
// typed constructors that delegate to pretrained.New.
package mini

import (
	"fmt"

	"github.com/textkit-ml/textkit/nn"
	"github.com/textkit-ml/textkit/pretrained"
	"github.com/textkit-ml/textkit/tensor"
)

// ModelArch describes the Mini architecture family. Derived models nest
// the encoder's parameters under the "mini" prefix.
var ModelArch = pretrained.NewArch("mini", "mini")

func init() {
	ModelArch.PretrainedConfigs["mini-en"] = pretrained.Config{
		"init_class":  "Mini",
		"vocab_size":  30522,
		"hidden_size": 64,
	}
	ModelArch.PretrainedConfigs["mini-en-cased"] = pretrained.Config{
		"init_class":  "Mini",
		"vocab_size":  28996,
		"hidden_size": 64,
	}
	ModelArch.PretrainedResources["model_state"] = map[string]string{
		"mini-en":       "https://models.textkit.dev/mini/mini-en/model_state.tkws",
		"mini-en-cased": "https://models.textkit.dev/mini/mini-en-cased/model_state.tkws",
	}
}

// Mini is the base encoder of the family: token embedding, a hidden
// projection, and layer normalization.
type Mini struct {
	pretrained.ModelBase

	embed *nn.Embedding
	proj  *nn.Linear
	norm  *nn.LayerNorm
}

// ClassMini is the class descriptor of the base encoder.
var ClassMini = pretrained.RegisterBaseModel(&pretrained.Class{
	Name: "Mini",
	Arch: ModelArch,
	Params: pretrained.Signature{
		{Name: "vocab_size", Required: true},
		{Name: "hidden_size", Default: 64},
	},
	Build: func(cfg pretrained.Config) (pretrained.Model, error) {
		vocabSize, err := cfg.Int("vocab_size")
		if err != nil {
			return nil, err
		}
		hiddenSize, err := cfg.Int("hidden_size")
		if err != nil {
			return nil, err
		}
		if vocabSize <= 0 || hiddenSize <= 0 {
			return nil, fmt.Errorf("vocab_size and hidden_size must be positive, got %d and %d", vocabSize, hiddenSize)
		}
		return &Mini{
			embed: nn.NewEmbedding(vocabSize, hiddenSize),
			proj:  nn.NewLinear(hiddenSize, hiddenSize),
			norm:  nn.NewLayerNorm(hiddenSize),
		}, nil
	},
})

// NewMini constructs a randomly initialized Mini encoder.
func NewMini(vocabSize, hiddenSize int) (*Mini, error) {
	m, err := pretrained.New(ClassMini, []any{vocabSize, hiddenSize}, nil)
	if err != nil {
		return nil, err
	}
	return m.(*Mini), nil
}

// HiddenSize returns the encoder's embedding dimension.
func (m *Mini) HiddenSize() int {
	return m.embed.EmbeddingDim()
}

// InputEmbeddings returns the token embedding layer.
func (m *Mini) InputEmbeddings() *nn.Embedding {
	return m.embed
}

// Encode maps a sequence of token IDs to a [len(ids), hidden] tensor.
func (m *Mini) Encode(ids []int) *tensor.RawTensor {
	return m.norm.Forward(m.proj.Forward(m.embed.Forward(ids)))
}

// Parameters returns all trainable parameters.
func (m *Mini) Parameters() []*nn.Parameter {
	params := append(m.embed.Parameters(), m.proj.Parameters()...)
	return append(params, m.norm.Parameters()...)
}

// StateDict returns the encoder's parameters keyed "embed.*", "proj.*"
// and "norm.*".
func (m *Mini) StateDict() map[string]*tensor.RawTensor {
	out := nn.Prefixed("embed", m.embed.StateDict())
	for name, raw := range nn.Prefixed("proj", m.proj.StateDict()) {
		out[name] = raw
	}
	for name, raw := range nn.Prefixed("norm", m.norm.StateDict()) {
		out[name] = raw
	}
	return out
}

// LoadStateDict loads the encoder's parameters. All keys are required.
func (m *Mini) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := m.embed.LoadStateDict(nn.Unprefixed("embed", stateDict)); err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if err := m.proj.LoadStateDict(nn.Unprefixed("proj", stateDict)); err != nil {
		return fmt.Errorf("proj: %w", err)
	}
	if err := m.norm.LoadStateDict(nn.Unprefixed("norm", stateDict)); err != nil {
		return fmt.Errorf("norm: %w", err)
	}
	return nil
}

// MiniForSequenceClassification attaches a sequence-level classifier to
// the Mini encoder: mean pooling over tokens followed by a linear
// projection to label logits.
type MiniForSequenceClassification struct {
	pretrained.ModelBase

	mini       *Mini
	classifier *nn.Linear
	numLabels  int
}

// ClassForSequenceClassification is the class descriptor of the
// sequence classification head.
var ClassForSequenceClassification = &pretrained.Class{
	Name: "MiniForSequenceClassification",
	Arch: ModelArch,
	Params: pretrained.Signature{
		{Name: "mini", Required: true},
		{Name: "num_labels", Default: 2},
	},
	Build: func(cfg pretrained.Config) (pretrained.Model, error) {
		encoder, ok := cfg["mini"].(*Mini)
		if !ok {
			return nil, fmt.Errorf("argument \"mini\" must be a *Mini encoder, got %T", cfg["mini"])
		}
		numLabels, err := cfg.Int("num_labels")
		if err != nil {
			return nil, err
		}
		if numLabels < 2 {
			return nil, fmt.Errorf("num_labels must be at least 2, got %d", numLabels)
		}
		m := &MiniForSequenceClassification{
			mini:       encoder,
			classifier: nn.NewLinear(encoder.HiddenSize(), numLabels),
			numLabels:  numLabels,
		}
		m.SetBase(encoder)
		return m, nil
	},
}

// NewMiniForSequenceClassification constructs a sequence classification
// head over an existing encoder.
func NewMiniForSequenceClassification(encoder *Mini, numLabels int) (*MiniForSequenceClassification, error) {
	m, err := pretrained.New(ClassForSequenceClassification,
		[]any{encoder}, map[string]any{"num_labels": numLabels})
	if err != nil {
		return nil, err
	}
	return m.(*MiniForSequenceClassification), nil
}

// NumLabels returns the number of output labels.
func (m *MiniForSequenceClassification) NumLabels() int {
	return m.numLabels
}

// Forward returns the [1, num_labels] logits for one token sequence.
func (m *MiniForSequenceClassification) Forward(ids []int) *tensor.RawTensor {
	hidden := m.mini.Encode(ids)
	return m.classifier.Forward(meanPool(hidden))
}

// Parameters returns all trainable parameters, encoder included.
func (m *MiniForSequenceClassification) Parameters() []*nn.Parameter {
	return append(m.mini.Parameters(), m.classifier.Parameters()...)
}

// StateDict returns the full parameter map with the encoder nested
// under "mini.*" and the head under "classifier.*".
func (m *MiniForSequenceClassification) StateDict() map[string]*tensor.RawTensor {
	out := nn.Prefixed("mini", m.mini.StateDict())
	for name, raw := range nn.Prefixed("classifier", m.classifier.StateDict()) {
		out[name] = raw
	}
	return out
}

// LoadStateDict loads all parameters. All keys are required.
func (m *MiniForSequenceClassification) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := m.mini.LoadStateDict(nn.Unprefixed("mini", stateDict)); err != nil {
		return fmt.Errorf("mini: %w", err)
	}
	if err := m.classifier.LoadStateDict(nn.Unprefixed("classifier", stateDict)); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

// MiniForTokenClassification attaches a per-token classifier to the
// Mini encoder, projecting every token's hidden state to label logits.
type MiniForTokenClassification struct {
	pretrained.ModelBase

	mini       *Mini
	classifier *nn.Linear
	numLabels  int
}

// ClassForTokenClassification is the class descriptor of the token
// classification head.
var ClassForTokenClassification = &pretrained.Class{
	Name: "MiniForTokenClassification",
	Arch: ModelArch,
	Params: pretrained.Signature{
		{Name: "mini", Required: true},
		{Name: "num_labels", Default: 2},
	},
	Build: func(cfg pretrained.Config) (pretrained.Model, error) {
		encoder, ok := cfg["mini"].(*Mini)
		if !ok {
			return nil, fmt.Errorf("argument \"mini\" must be a *Mini encoder, got %T", cfg["mini"])
		}
		numLabels, err := cfg.Int("num_labels")
		if err != nil {
			return nil, err
		}
		if numLabels < 2 {
			return nil, fmt.Errorf("num_labels must be at least 2, got %d", numLabels)
		}
		m := &MiniForTokenClassification{
			mini:       encoder,
			classifier: nn.NewLinear(encoder.HiddenSize(), numLabels),
			numLabels:  numLabels,
		}
		m.SetBase(encoder)
		return m, nil
	},
}

// NewMiniForTokenClassification constructs a token classification head
// over an existing encoder.
func NewMiniForTokenClassification(encoder *Mini, numLabels int) (*MiniForTokenClassification, error) {
	m, err := pretrained.New(ClassForTokenClassification,
		[]any{encoder}, map[string]any{"num_labels": numLabels})
	if err != nil {
		return nil, err
	}
	return m.(*MiniForTokenClassification), nil
}

// NumLabels returns the number of output labels.
func (m *MiniForTokenClassification) NumLabels() int {
	return m.numLabels
}

// Forward returns the [len(ids), num_labels] per-token logits.
func (m *MiniForTokenClassification) Forward(ids []int) *tensor.RawTensor {
	return m.classifier.Forward(m.mini.Encode(ids))
}

// Parameters returns all trainable parameters, encoder included.
func (m *MiniForTokenClassification) Parameters() []*nn.Parameter {
	return append(m.mini.Parameters(), m.classifier.Parameters()...)
}

// StateDict returns the full parameter map with the encoder nested
// under "mini.*" and the head under "classifier.*".
func (m *MiniForTokenClassification) StateDict() map[string]*tensor.RawTensor {
	out := nn.Prefixed("mini", m.mini.StateDict())
	for name, raw := range nn.Prefixed("classifier", m.classifier.StateDict()) {
		out[name] = raw
	}
	return out
}

// LoadStateDict loads all parameters. All keys are required.
func (m *MiniForTokenClassification) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := m.mini.LoadStateDict(nn.Unprefixed("mini", stateDict)); err != nil {
		return fmt.Errorf("mini: %w", err)
	}
	if err := m.classifier.LoadStateDict(nn.Unprefixed("classifier", stateDict)); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

// meanPool averages a [n, dim] tensor over its rows into [1, dim].
func meanPool(hidden *tensor.RawTensor) *tensor.RawTensor {
	shape := hidden.Shape()
	n, dim := shape[0], shape[1]

	out, err := tensor.NewRaw(tensor.Shape{1, dim}, tensor.Float32)
	if err != nil {
		panic(err)
	}
	if n == 0 {
		return out
	}
	for j := 0; j < dim; j++ {
		var sum float32
		for i := 0; i < n; i++ {
			sum += hidden.At(i*dim + j)
		}
		out.Set(j, sum/float32(n))
	}
	return out
}
