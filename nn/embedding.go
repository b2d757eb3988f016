// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"

	"github.com/textkit-ml/textkit/tensor"
)

// Embedding is a lookup table that maps discrete indices to dense vectors.
//
// This is the fundamental NLP input layer, converting token IDs to
// continuous embeddings.
//
// Architecture:
//   - Weight: [NumEmbed, EmbedDim] learnable parameter
//   - Forward: indices [n] -> embeddings [n, EmbedDim]
type Embedding struct {
	weight   *Parameter // [NumEmbed, EmbedDim]
	numEmbed int
	embedDim int
}

// NewEmbedding creates a new Embedding layer.
//
// The embedding weights are initialized from a standard normal
// distribution N(0, 1).
func NewEmbedding(numEmbeddings, embeddingDim int) *Embedding {
	return &Embedding{
		weight:   NewParameter("weight", Randn(tensor.Shape{numEmbeddings, embeddingDim})),
		numEmbed: numEmbeddings,
		embedDim: embeddingDim,
	}
}

// Forward performs embedding lookup for a sequence of token IDs.
//
// Returns a [len(ids), EmbedDim] tensor.
// Panics if any index is out of bounds [0, NumEmbed).
func (e *Embedding) Forward(ids []int) *tensor.RawTensor {
	out, err := tensor.NewRaw(tensor.Shape{len(ids), e.embedDim}, tensor.Float32)
	if err != nil {
		panic(err)
	}

	w := e.weight.Tensor()
	for i, id := range ids {
		if id < 0 || id >= e.numEmbed {
			panic(fmt.Sprintf("Embedding.Forward: index %d out of range [0, %d)", id, e.numEmbed))
		}
		for j := 0; j < e.embedDim; j++ {
			out.Set(i*e.embedDim+j, w.At(id*e.embedDim+j))
		}
	}
	return out
}

// Weight returns the embedding weight parameter.
func (e *Embedding) Weight() *Parameter {
	return e.weight
}

// NumEmbeddings returns the vocabulary size.
func (e *Embedding) NumEmbeddings() int {
	return e.numEmbed
}

// EmbeddingDim returns the embedding dimension.
func (e *Embedding) EmbeddingDim() int {
	return e.embedDim
}

// Parameters returns the list of trainable parameters.
func (e *Embedding) Parameters() []*Parameter {
	return []*Parameter{e.weight}
}

// StateDict returns a map of parameter names to raw tensors.
func (e *Embedding) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": e.weight.Tensor(),
	}
}

// LoadStateDict loads parameters from a state dictionary.
func (e *Embedding) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	weight, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("missing weight in state dict")
	}
	if err := e.weight.Tensor().CopyFrom(weight); err != nil {
		return fmt.Errorf("weight: %w", err)
	}
	return nil
}
