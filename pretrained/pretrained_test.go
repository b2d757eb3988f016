// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pretrained

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textkit-ml/textkit/internal/serialization"
	"github.com/textkit-ml/textkit/nn"
	"github.com/textkit-ml/textkit/tensor"
)

// stubEncoder is a minimal base model: a single [dim] parameter.
type stubEncoder struct {
	ModelBase

	dim int
	w   *nn.Parameter
}

func (s *stubEncoder) Parameters() []*nn.Parameter {
	return []*nn.Parameter{s.w}
}

func (s *stubEncoder) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{"w": s.w.Tensor()}
}

func (s *stubEncoder) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	w, ok := stateDict["w"]
	if !ok {
		return fmt.Errorf("missing w in state dict")
	}
	return s.w.Tensor().CopyFrom(w)
}

// stubClassifier wraps a stubEncoder and adds a head parameter.
type stubClassifier struct {
	ModelBase

	enc  *stubEncoder
	head *nn.Parameter
}

func (s *stubClassifier) Parameters() []*nn.Parameter {
	return append(s.enc.Parameters(), s.head)
}

func (s *stubClassifier) StateDict() map[string]*tensor.RawTensor {
	out := nn.Prefixed("enc", s.enc.StateDict())
	out["head.w"] = s.head.Tensor()
	return out
}

func (s *stubClassifier) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := s.enc.LoadStateDict(nn.Unprefixed("enc", stateDict)); err != nil {
		return err
	}
	head, ok := stateDict["head.w"]
	if !ok {
		return fmt.Errorf("missing head.w in state dict")
	}
	return s.head.Tensor().CopyFrom(head)
}

// newStubClasses builds a fresh architecture per test so registry state
// never leaks between tests.
func newStubClasses(t *testing.T) (*Arch, *Class, *Class) {
	t.Helper()

	arch := NewArch("stub", "enc")

	baseClass := &Class{
		Name: "StubEncoder",
		Arch: arch,
		Params: Signature{
			{Name: "dim", Required: true},
		},
		Build: func(cfg Config) (Model, error) {
			dim, err := cfg.Int("dim")
			if err != nil {
				return nil, err
			}
			return &stubEncoder{
				dim: dim,
				w:   nn.NewParameter("w", nn.Randn(tensor.Shape{dim})),
			}, nil
		},
	}
	RegisterBaseModel(baseClass)

	headClass := &Class{
		Name: "StubClassifier",
		Arch: arch,
		Params: Signature{
			{Name: "enc", Required: true},
			{Name: "labels", Default: 2},
		},
		Build: func(cfg Config) (Model, error) {
			enc, ok := cfg["enc"].(*stubEncoder)
			if !ok {
				return nil, fmt.Errorf("argument \"enc\" must be a *stubEncoder, got %T", cfg["enc"])
			}
			labels, err := cfg.Int("labels")
			if err != nil {
				return nil, err
			}
			m := &stubClassifier{
				enc:  enc,
				head: nn.NewParameter("w", nn.Randn(tensor.Shape{labels, enc.dim})),
			}
			m.SetBase(enc)
			return m, nil
		},
	}

	return arch, baseClass, headClass
}

func TestSignatureBind(t *testing.T) {
	sig := Signature{
		{Name: "dim", Required: true},
		{Name: "labels", Default: 2},
	}

	tests := []struct {
		name    string
		args    []any
		kwargs  map[string]any
		want    Config
		wantErr string
	}{
		{
			name: "positional fill",
			args: []any{8, 3},
			want: Config{"dim": 8, "labels": 3, KeyInitClass: "Stub"},
		},
		{
			name:   "defaults and kwargs",
			kwargs: map[string]any{"dim": 8},
			want:   Config{"dim": 8, "labels": 2, KeyInitClass: "Stub"},
		},
		{
			name: "surplus positionals go to init_args",
			args: []any{8, 3, "extra", true},
			want: Config{
				"dim": 8, "labels": 3,
				KeyInitArgs:  []any{"extra", true},
				KeyInitClass: "Stub",
			},
		},
		{
			name:    "missing required",
			kwargs:  map[string]any{"labels": 5},
			wantErr: `missing required argument "dim"`,
		},
		{
			name:    "unknown kwarg",
			args:    []any{8},
			kwargs:  map[string]any{"depth": 12},
			wantErr: `unexpected keyword argument "depth"`,
		},
		{
			name:    "positional and keyword collision",
			args:    []any{8},
			kwargs:  map[string]any{"dim": 16},
			wantErr: `multiple values for argument "dim"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := sig.Bind("Stub", tt.args, tt.kwargs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestNewCapturesConfig(t *testing.T) {
	_, baseClass, _ := newStubClasses(t)

	m, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)

	cfg := m.Config()
	assert.Equal(t, "StubEncoder", cfg.InitClass())
	dim, err := cfg.Int("dim")
	require.NoError(t, err)
	assert.Equal(t, 4, dim)

	// Rebuilding from the captured config must reproduce it exactly.
	kwargs := make(map[string]any)
	for key, value := range cfg {
		if key != KeyInitClass && key != KeyInitArgs {
			kwargs[key] = value
		}
	}
	rebuilt, err := New(baseClass, cfg.InitArgs(), kwargs)
	require.NoError(t, err)
	assert.Equal(t, cfg, rebuilt.Config())
}

func TestRegisterBaseModel(t *testing.T) {
	arch, baseClass, headClass := newStubClasses(t)
	assert.Same(t, baseClass, arch.BaseClass())

	// The last registration wins.
	RegisterBaseModel(headClass)
	assert.Same(t, headClass, arch.BaseClass())

	assert.Panics(t, func() {
		RegisterBaseModel(&Class{Name: "Orphan"})
	})
}

func TestBaseModelNavigation(t *testing.T) {
	_, baseClass, headClass := newStubClasses(t)

	base, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)
	assert.Same(t, base, base.BaseModel())

	head, err := New(headClass, []any{base}, map[string]any{"labels": 3})
	require.NoError(t, err)
	assert.Same(t, base, head.BaseModel())
}

func TestConfigClone(t *testing.T) {
	cfg := Config{
		"dim":       4,
		"nested":    map[string]any{"labels": 2},
		KeyInitArgs: []any{"extra"},
	}

	clone := cfg.Clone()
	clone["dim"] = 8
	clone["nested"].(map[string]any)["labels"] = 5
	clone[KeyInitArgs].([]any)[0] = "changed"

	assert.Equal(t, 4, cfg["dim"])
	assert.Equal(t, 2, cfg["nested"].(map[string]any)["labels"])
	assert.Equal(t, "extra", cfg[KeyInitArgs].([]any)[0])
}

func TestSerializableConfigSubstitutesModels(t *testing.T) {
	_, baseClass, headClass := newStubClasses(t)

	base, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)
	head, err := New(headClass, []any{base}, nil)
	require.NoError(t, err)

	out := serializableConfig(head.Config())
	nested, ok := asConfig(out["enc"])
	require.True(t, ok, "live model should serialize as its config")
	assert.Equal(t, "StubEncoder", nested.InitClass())

	// A model hiding inside extra positional arguments is substituted too.
	cfg := Config{KeyInitArgs: []any{base, "plain"}}
	out = serializableConfig(cfg)
	nested, ok = asConfig(out[KeyInitArgs].([]any)[0])
	require.True(t, ok)
	assert.Equal(t, "StubEncoder", nested.InitClass())
	assert.Equal(t, "plain", out[KeyInitArgs].([]any)[1])
}

func TestSaveRequiresExistingDir(t *testing.T) {
	_, baseClass, _ := newStubClasses(t)
	m, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)

	err = Save(m, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not available")
}

func TestSaveAndReloadBaseModel(t *testing.T) {
	_, baseClass, _ := newStubClasses(t)

	m, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Save(m, dir))
	assert.FileExists(t, filepath.Join(dir, DefaultConfigFile))
	assert.FileExists(t, filepath.Join(dir, "model_state"+serialization.FileSuffix))

	reloaded, err := baseClass.FromPretrained(dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "StubEncoder", reloaded.Config().InitClass())

	want := m.StateDict()
	got := reloaded.StateDict()
	require.Len(t, got, len(want))
	for name, raw := range want {
		assert.True(t, raw.Equal(got[name]), "parameter %q differs after reload", name)
	}
}

func TestSaveAndReloadDerivedModel(t *testing.T) {
	_, baseClass, headClass := newStubClasses(t)

	base, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)
	head, err := New(headClass, []any{base}, map[string]any{"labels": 3})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Save(head, dir))

	reloaded, err := headClass.FromPretrained(dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "StubClassifier", reloaded.Config().InitClass())
	assert.NotSame(t, reloaded, reloaded.BaseModel())

	want := head.StateDict()
	got := reloaded.StateDict()
	require.Len(t, got, len(want))
	for name, raw := range want {
		assert.True(t, raw.Equal(got[name]), "parameter %q differs after reload", name)
	}
}

func TestLoadWeightsStripsBasePrefix(t *testing.T) {
	_, baseClass, headClass := newStubClasses(t)

	base, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)
	head, err := New(headClass, []any{base}, nil)
	require.NoError(t, err)

	// Derived checkpoint loaded into a bare encoder: the base prefix is
	// stripped and head keys are skipped.
	dir := t.TempDir()
	require.NoError(t, Save(head, dir))

	fresh, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)
	report, err := LoadWeights(fresh, filepath.Join(dir, "model_state"+serialization.FileSuffix))
	require.NoError(t, err)

	assert.Empty(t, report.Missing)
	assert.Equal(t, []string{"head.w"}, report.Unexpected)
	assert.True(t, fresh.StateDict()["w"].Equal(base.StateDict()["w"]))
}

func TestLoadWeightsIntoNestedBase(t *testing.T) {
	_, baseClass, headClass := newStubClasses(t)

	base, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)

	// Base checkpoint loaded into a derived model: only the nested
	// encoder is updated and head parameters are reported missing.
	dir := t.TempDir()
	require.NoError(t, Save(base, dir))

	freshBase, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)
	head, err := New(headClass, []any{freshBase}, nil)
	require.NoError(t, err)

	report, err := LoadWeights(head, filepath.Join(dir, "model_state"+serialization.FileSuffix))
	require.NoError(t, err)

	assert.Equal(t, []string{"head.w"}, report.Missing)
	assert.Empty(t, report.Unexpected)
	assert.True(t, head.StateDict()["enc.w"].Equal(base.StateDict()["w"]))
}

func TestLoadWeightsRejectsWrongSuffix(t *testing.T) {
	_, baseClass, _ := newStubClasses(t)
	m, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)

	_, err = LoadWeights(m, "weights.bin")
	require.ErrorIs(t, err, serialization.ErrWrongSuffix)
}

func TestBuildFromConfigMarkerValidation(t *testing.T) {
	_, _, headClass := newStubClasses(t)

	var mismatch *ConfigMismatchError

	// A derived config without an embedded base config is unusable.
	_, err := headClass.buildFromConfig(Config{
		KeyInitClass: "StubClassifier",
		"labels":     3,
	}, nil, nil)
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Reason, "no nested")

	// As is one with several candidate base configs.
	_, err = headClass.buildFromConfig(Config{
		KeyInitClass: "StubClassifier",
		"enc":        map[string]any{KeyInitClass: "StubEncoder", "dim": 4},
		"labels":     map[string]any{KeyInitClass: "StubEncoder", "dim": 8},
	}, nil, nil)
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Reason, "multiple nested")

	// The embedded config must name the registered base class.
	_, err = headClass.buildFromConfig(Config{
		KeyInitClass: "StubClassifier",
		"enc":        map[string]any{KeyInitClass: "OtherEncoder", "dim": 4},
	}, nil, nil)
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Reason, "should be StubEncoder")
}

func TestBuildFromConfigKwargOverrides(t *testing.T) {
	_, _, headClass := newStubClasses(t)

	cfg := Config{
		KeyInitClass: "StubClassifier",
		"enc":        map[string]any{KeyInitClass: "StubEncoder", "dim": 4},
		"labels":     2,
	}

	// Keyword overrides route by signature: "labels" belongs to the head.
	m, err := headClass.buildFromConfig(cfg, nil, map[string]any{"labels": 5})
	require.NoError(t, err)
	labels, err := m.Config().Int("labels")
	require.NoError(t, err)
	assert.Equal(t, 5, labels)

	// The base keeps its loaded configuration.
	dim, err := m.BaseModel().Config().Int("dim")
	require.NoError(t, err)
	assert.Equal(t, 4, dim)
}

func TestFromPretrainedUnknownModel(t *testing.T) {
	arch, baseClass, _ := newStubClasses(t)
	arch.PretrainedConfigs["stub-en"] = Config{KeyInitClass: "StubEncoder", "dim": 4}

	_, err := baseClass.FromPretrained("no-such-model", nil, nil)

	var unknown *UnknownModelError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no-such-model", unknown.Name)
	assert.Equal(t, []string{"stub-en"}, unknown.Known)
}

func TestFromPretrainedDownloadsAndCaches(t *testing.T) {
	arch, baseClass, _ := newStubClasses(t)

	// Serve a real weight file for a registered model name.
	src, err := New(baseClass, []any{4}, nil)
	require.NoError(t, err)
	srcDir := t.TempDir()
	require.NoError(t, Save(src, srcDir))
	payload, err := os.ReadFile(filepath.Join(srcDir, "model_state"+serialization.FileSuffix))
	require.NoError(t, err)

	downloads := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads++
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	arch.PretrainedConfigs["stub-en"] = Config{KeyInitClass: "StubEncoder", "dim": 4}
	arch.PretrainedResources["model_state"] = map[string]string{
		"stub-en": server.URL + "/model_state" + serialization.FileSuffix,
	}

	t.Setenv(ModelHomeEnv, t.TempDir())

	m, err := baseClass.FromPretrained("stub-en", nil, nil)
	require.NoError(t, err)
	assert.True(t, m.StateDict()["w"].Equal(src.StateDict()["w"]))
	assert.Equal(t, 1, downloads)

	// The second load hits the cache, not the network.
	_, err = baseClass.FromPretrained("stub-en", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, downloads)
}

func TestFromPretrainedHeadFromRegistryName(t *testing.T) {
	arch, baseClass, headClass := newStubClasses(t)

	src, err := New(baseClass, []any{8}, nil)
	require.NoError(t, err)
	srcDir := t.TempDir()
	require.NoError(t, Save(src, srcDir))
	payload, err := os.ReadFile(filepath.Join(srcDir, "model_state"+serialization.FileSuffix))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	arch.PretrainedConfigs["tiny-model"] = Config{KeyInitClass: "StubEncoder", "dim": 8}
	arch.PretrainedResources["model_state"] = map[string]string{
		"tiny-model": server.URL + "/model_state" + serialization.FileSuffix,
	}

	t.Setenv(ModelHomeEnv, t.TempDir())

	// Loading a base-only registry entry through the head class builds
	// the encoder from the registered config and defaults the head's own
	// arguments.
	m, err := headClass.FromPretrained("tiny-model", nil, nil)
	require.NoError(t, err)

	dim, err := m.BaseModel().Config().Int("dim")
	require.NoError(t, err)
	assert.Equal(t, 8, dim)

	labels, err := m.Config().Int("labels")
	require.NoError(t, err)
	assert.Equal(t, 2, labels)

	// Encoder weights come from the checkpoint, the head keeps its own.
	assert.True(t, m.StateDict()["enc.w"].Equal(src.StateDict()["w"]))
}
