// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTikToken(t *testing.T) {
	tests := []struct {
		name              string
		encoding          string
		wantErr           bool
		expectedVocabSize int
	}{
		{
			name:              "cl100k_base",
			encoding:          "cl100k_base",
			wantErr:           false,
			expectedVocabSize: 100256,
		},
		{
			name:              "p50k_base",
			encoding:          "p50k_base",
			wantErr:           false,
			expectedVocabSize: 50257,
		},
		{
			name:     "invalid encoding",
			encoding: "invalid_encoding_xyz",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewTikToken(tt.encoding)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, tok)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, tok)
			assert.Equal(t, tt.expectedVocabSize, tok.VocabSize())
			assert.Equal(t, tt.encoding, tok.Name())
		})
	}
}

func TestTikTokenRoundtrip(t *testing.T) {
	tok, err := NewTikToken("cl100k_base")
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{name: "simple text", text: "Hello, world!"},
		{name: "with newlines", text: "Hello\nWorld\n"},
		{name: "unicode", text: "Hello 世界! 🌍"},
		{name: "empty string", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := tok.Encode(tt.text)
			require.NoError(t, err)

			got, err := tok.Decode(ids)
			require.NoError(t, err)
			assert.Equal(t, tt.text, got)
		})
	}
}

func TestNewTikTokenForModel(t *testing.T) {
	tok, err := NewTikTokenForModel("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", tok.Name())

	ids, err := tok.Encode("tokenize me")
	require.NoError(t, err)
	assert.NotEmpty(t, ids)
}
