// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer converts text to the token ID sequences model
// encoders consume.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// encodingCL100kBase is the encoding used by GPT-4 era models.
	encodingCL100kBase = "cl100k_base"
	// encodingP50kBase is the encoding used by GPT-3 era models.
	encodingP50kBase = "p50k_base"
	// encodingR50kBase is the encoding used by older GPT-3 models.
	encodingR50kBase = "r50k_base"
)

// Tokenizer maps text to token IDs and back.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	VocabSize() int
	Name() string
}

// TikToken wraps the pkoukk/tiktoken-go library for BPE tokenization.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo, text-embedding-ada-002
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci-002, babbage-002
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken creates a tokenizer for the named encoding, e.g.
// "cl100k_base".
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikToken{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// NewTikTokenForModel creates a tokenizer matching a specific model
// name, e.g. "gpt-4".
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	encoding, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken for model %q: %w", modelName, err)
	}

	return &TikToken{
		encoding: encoding,
		name:     modelName,
	}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int, error) {
	return t.encoding.Encode(text, nil, nil), nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(ids []int) (string, error) {
	return t.encoding.Decode(ids), nil
}

// VocabSize returns the vocabulary size of the encoding.
//
// tiktoken-go does not expose it directly, so the known sizes of the
// supported encodings are hardcoded.
func (t *TikToken) VocabSize() int {
	switch t.name {
	case encodingCL100kBase:
		return 100256
	case encodingP50kBase, encodingR50kBase:
		return 50257
	default:
		return 100000
	}
}

// Name returns the encoding or model name the tokenizer was created
// with.
func (t *TikToken) Name() string {
	return t.name
}
