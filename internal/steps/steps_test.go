package steps

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certiflow/internal/dossier"
	"certiflow/internal/exec"
	"certiflow/internal/telemetry"
	"certiflow/internal/validation"
)

func testDossier(t *testing.T) *dossier.Dossier {
	t.Helper()
	return dossier.New("PRJ-TEST", t.TempDir(), nil)
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindScript, "script"},
		{KindCheckExigences, "check_exigences"},
		{KindCheckMOP, "check_mop"},
		{KindCheckPreuves, "check_preuves"},
		{KindGererRetours, "gerer_retours"},
		{KindAnalyseRetours, "analyse_retours"},
		{KindSoumettreDossier, "soumettre_dossier"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{
		"analyse_retours", "check_exigences", "check_mop",
		"check_preuves", "gerer_retours", "soumettre_dossier",
	}, r.IDs())
	assert.True(t, r.Has("check_mop"))
	assert.False(t, r.Has("custom"))
}

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry()
	deps := Deps{Runner: &exec.MockRunner{}}

	t.Run("known identifier", func(t *testing.T) {
		s, ok := r.Resolve(Descriptor{ID: "check_mop"}, deps)

		assert.True(t, ok)
		assert.Equal(t, "check_mop", s.ID())
		assert.Equal(t, KindCheckMOP, s.Kind())
		assert.IsType(t, &ValidationStep{}, s)
	})

	t.Run("unknown identifier falls back to script", func(t *testing.T) {
		params := map[string]any{"seuil": 3}
		s, ok := r.Resolve(Descriptor{ID: "custom", Script: "x.py", Params: params}, deps)

		assert.False(t, ok)
		assert.Equal(t, KindScript, s.Kind())
		assert.Equal(t, params, s.Config())
	})

	t.Run("register overrides", func(t *testing.T) {
		r := NewRegistry()
		called := false
		r.Register("custom", KindScript, func(desc Descriptor, deps Deps) Step {
			called = true
			return NewScriptStep(desc, deps)
		})

		_, ok := r.Resolve(Descriptor{ID: "custom"}, deps)

		assert.True(t, ok)
		assert.True(t, called)
	})
}

func TestScriptStep_NoScriptSucceeds(t *testing.T) {
	runner := &exec.MockRunner{}
	s := NewScriptStep(Descriptor{ID: "noop"}, Deps{Runner: runner})

	require.NoError(t, s.Execute(context.Background(), testDossier(t)))
	assert.Empty(t, runner.Calls)
	assert.NotNil(t, s.Config())
}

func TestScriptStep_Command(t *testing.T) {
	tests := []struct {
		name        string
		desc        Descriptor
		interpreter string
		wantName    string
		wantArgs    []string
	}{
		{
			name:     "python script uses default interpreter",
			desc:     Descriptor{ID: "a", Script: "scripts/a.py"},
			wantName: "python3",
			wantArgs: []string{"scripts/a.py"},
		},
		{
			name:        "configured interpreter and args",
			desc:        Descriptor{ID: "a", Script: "a.py", Params: map[string]any{"args": []any{"--strict", 2}}},
			interpreter: "python3.12",
			wantName:    "python3.12",
			wantArgs:    []string{"a.py", "--strict", "2"},
		},
		{
			name:        "step interpreter overrides workflow interpreter",
			desc:        Descriptor{ID: "a", Script: "a.py", Params: map[string]any{"interpreter": "/venv/bin/python"}},
			interpreter: "python3.12",
			wantName:    "/venv/bin/python",
			wantArgs:    []string{"a.py"},
		},
		{
			name:     "executable runs directly",
			desc:     Descriptor{ID: "b", Script: "/opt/check.sh", Params: map[string]any{"args": "-v"}},
			wantName: "/opt/check.sh",
			wantArgs: []string{"-v"},
		},
		{
			name:     "relative script resolved against base dir",
			desc:     Descriptor{ID: "c", Script: "c.py", BaseDir: "/etc/certiflow"},
			wantName: "python3",
			wantArgs: []string{filepath.Join("/etc/certiflow", "c.py")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &exec.MockRunner{}
			d := testDossier(t)
			s := NewScriptStep(tt.desc, Deps{Runner: runner, Interpreter: tt.interpreter})

			require.NoError(t, s.Execute(context.Background(), d))

			require.Len(t, runner.Calls, 1)
			assert.Equal(t, d.Root, runner.Calls[0].Dir)
			assert.Equal(t, tt.wantName, runner.Calls[0].Name)
			assert.Equal(t, tt.wantArgs, runner.Calls[0].Args)
		})
	}
}

func TestScriptStep_Failure(t *testing.T) {
	runner := &exec.MockRunner{
		Fail:   map[string]bool{"python3 fail.py": true},
		Stderr: "Traceback",
	}
	s := NewScriptStep(Descriptor{ID: "fail", Script: "fail.py"}, Deps{Runner: runner})

	err := s.Execute(context.Background(), testDossier(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "script fail.py failed")
}

func TestScriptStep_LogsStderrToDepsLogger(t *testing.T) {
	var logs bytes.Buffer
	runner := &exec.MockRunner{
		Fail:   map[string]bool{"python3 fail.py": true},
		Stderr: "Traceback",
	}
	deps := Deps{Runner: runner, Logger: telemetry.NewLogger(&logs, "debug", "text")}
	s := NewScriptStep(Descriptor{ID: "fail", Script: "fail.py"}, deps)

	require.Error(t, s.Execute(context.Background(), testDossier(t)))

	assert.Contains(t, logs.String(), "script failed")
	assert.Contains(t, logs.String(), "stderr=Traceback")
	assert.Contains(t, logs.String(), "step_id=fail")
	assert.Contains(t, logs.String(), "dossier_id=PRJ-TEST")
}

func TestSteps_RequireDossier(t *testing.T) {
	runner := &exec.MockRunner{}
	script := NewScriptStep(Descriptor{ID: "extract", Script: "extract.py"}, Deps{Runner: runner})
	builtin, _ := DefaultRegistry().Resolve(Descriptor{ID: "check_mop"}, Deps{Runner: runner})

	for _, s := range []Step{script, builtin} {
		err := Invoke(context.Background(), s, nil)
		assert.ErrorIs(t, err, ErrNoDossier)
		assert.NotContains(t, err.Error(), "panicked")
	}
	assert.Empty(t, runner.Calls)
}

func TestValidationStep_RunsValidator(t *testing.T) {
	d := testDossier(t)
	require.NoError(t, os.MkdirAll(d.DataDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(d.DataDir(), validation.MOPFile),
		[]byte("Exigence,Applicability,MOP\nEX-01,Oui,\n"), 0644))

	s, _ := DefaultRegistry().Resolve(Descriptor{ID: "check_mop"}, Deps{Runner: &exec.MockRunner{}})
	err := s.Execute(context.Background(), d)

	assert.ErrorIs(t, err, validation.ErrNonCompliant)
}

func TestValidationStep_ScriptOverridesValidator(t *testing.T) {
	runner := &exec.MockRunner{}
	s, _ := DefaultRegistry().Resolve(Descriptor{ID: "check_mop", Script: "mop.py"}, Deps{Runner: runner})

	// No data directory: the validator would fail, the script succeeds.
	require.NoError(t, s.Execute(context.Background(), testDossier(t)))
	require.Len(t, runner.Calls, 1)
	assert.Equal(t, "python3 mop.py", runner.Calls[0].Command())
}

type panicStep struct{}

func (panicStep) ID() string             { return "boom" }
func (panicStep) Kind() Kind             { return KindScript }
func (panicStep) Config() map[string]any { return nil }
func (panicStep) Execute(context.Context, *dossier.Dossier) error {
	panic("unexpected")
}

func TestInvoke_RecoversPanic(t *testing.T) {
	err := Invoke(context.Background(), panicStep{}, testDossier(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step boom panicked: unexpected")
}

func TestInvoke_PassesError(t *testing.T) {
	want := errors.New("bad")
	s := &ValidationStep{
		ScriptStep: NewScriptStep(Descriptor{ID: "v"}, Deps{}),
		validate:   func(context.Context, *dossier.Dossier) error { return want },
	}

	assert.ErrorIs(t, Invoke(context.Background(), s, testDossier(t)), want)
}

func TestGetConfigHelpers(t *testing.T) {
	cfg := map[string]any{
		"name":  "x",
		"list":  []any{"a", 1},
		"one":   "solo",
		"count": 3,
	}

	assert.Equal(t, "x", GetConfigString(cfg, "name"))
	assert.Equal(t, "", GetConfigString(cfg, "count"))
	assert.Equal(t, []string{"a", "1"}, GetConfigStringSlice(cfg, "list"))
	assert.Equal(t, []string{"solo"}, GetConfigStringSlice(cfg, "one"))
	assert.Equal(t, []string{"3"}, GetConfigStringSlice(cfg, "count"))
	assert.Nil(t, GetConfigStringSlice(cfg, "missing"))
}
