package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certiflow/internal/config"
	"certiflow/internal/validation"
)

func TestRun_AllStepsPass(t *testing.T) {
	f := newFixture(t)

	result := f.run("run")

	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "termine", f.marker(t))
	assert.FileExists(t, filepath.Join(f.root, "audit", validation.SubmissionArchiveFile))

	out := f.out.String()
	assert.Contains(t, out, "Projet : Radar | Version STI : 2.1")
	assert.Contains(t, out, "Dossier : PRJ-42")
	assert.Contains(t, out, "[1/7] extraire")
	assert.Contains(t, out, "✓ soumettre_dossier")
	assert.Contains(t, out, "✓ TERMINE")

	require.Len(t, f.runner.Calls, 1)
	call := f.runner.Calls[0]
	assert.Equal(t, f.root, call.Dir)
	assert.Equal(t, "python3", call.Name)
	assert.Equal(t, []string{filepath.Join(f.dir, "extraire.py"), "--strict"}, call.Args)
}

func TestRun_ScriptFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Fail = map[string]bool{
		"python3 " + filepath.Join(f.dir, "extraire.py") + " --strict": true,
	}

	result := f.run("run")

	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "echec", f.marker(t))
	out := f.out.String()
	assert.Contains(t, out, "script extraire.py failed")
	assert.Contains(t, out, "✗ ECHEC")
	assert.NotContains(t, out, "check_exigences")
}

func TestRun_NonCompliantData(t *testing.T) {
	f := newFixture(t)
	f.setData(t, validation.MOPFile, "Exigence,Applicability,MOP\nEX-01,Oui,\n")

	result := f.run("run")

	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "echec", f.marker(t))
	assert.FileExists(t, filepath.Join(f.root, "audit", validation.MOPManquantsFile))
	assert.NoFileExists(t, filepath.Join(f.root, "audit", validation.SubmissionArchiveFile))
}

func TestRun_Phase(t *testing.T) {
	f := newFixture(t)

	result := f.run("run", "--phase", "check_mop")

	require.NoError(t, result.Err)
	assert.Contains(t, f.out.String(), "[1/1] check_mop")
	assert.NoFileExists(t, filepath.Join(f.root, "statut.txt"))
	assert.Empty(t, f.runner.Calls)
}

func TestRun_PhaseFailure(t *testing.T) {
	f := newFixture(t)
	f.setData(t, validation.MOPFile, "Exigence,Applicability,MOP\nEX-01,Oui,\n")

	result := f.run("run", "--phase", "check_mop")

	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "echec", f.marker(t))
}

func TestRun_UnknownPhase(t *testing.T) {
	f := newFixture(t)

	result := f.run("run", "--phase", "nope")

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, f.out.String(), "unknown step")
	assert.NoFileExists(t, filepath.Join(f.root, "statut.txt"))
}

func TestRun_MissingDossier(t *testing.T) {
	f := newFixture(t)

	result := f.run("run", "--dossier", filepath.Join(f.dir, "absent"))

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, f.out.String(), "dossier not found")
}

func TestRun_InvalidWorkflow(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.app.Config.WorkflowFile, "steps:\n  - script: x.py\n")

	result := f.run("run")

	assert.Equal(t, 1, result.ExitCode)
	assert.NoFileExists(t, filepath.Join(f.root, "statut.txt"))
}

func TestObjective_Incomplete(t *testing.T) {
	f := newFixture(t)

	result := f.run("objective", "OBJ1")

	require.NoError(t, result.Err)
	assert.Equal(t, "incomplet", f.marker(t))
	assert.Contains(t, f.out.String(), "○ INCOMPLET")
}

func TestObjective_Done(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 0, f.run("run", "--phase", "soumettre_dossier").ExitCode)

	result := f.run("objective", "OBJ1")

	require.NoError(t, result.Err)
	assert.Equal(t, "termine", f.marker(t))
}

func TestObjective_StepFailure(t *testing.T) {
	f := newFixture(t)
	f.setData(t, validation.ExigencesFile, "Exigence,Applicability,Justification non-applicabilité\nEX-01,Oui,\n")

	result := f.run("objective", "OBJ1")

	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "echec", f.marker(t))
}

func TestObjective_Unknown(t *testing.T) {
	f := newFixture(t)

	result := f.run("objective", "OBJ9")

	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, f.out.String(), "OBJ9")
	assert.NoFileExists(t, filepath.Join(f.root, "statut.txt"))
}

func TestObjective_RequiresID(t *testing.T) {
	f := newFixture(t)

	result := f.run("objective")

	assert.Equal(t, 1, result.ExitCode)
	assert.Error(t, result.Err)
	_, isExit := IsExitError(result.Err)
	assert.False(t, isExit)
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)

	result := f.run("evaluate")

	assert.Equal(t, 1, result.ExitCode)
	out := f.out.String()
	assert.Contains(t, out, "✓ OBJ1: atteint")
	assert.Contains(t, out, "✗ OBJ2: bloque")
	assert.FileExists(t, filepath.Join(f.root, "audit", validation.SubmissionArchiveFile))
	assert.NoFileExists(t, filepath.Join(f.root, "statut.txt"))
}

func TestEvaluate_AllReached(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.app.Config.ObjectivesFile, `objectifs:
  OBJ1:
    preconditions: [check_exigences]
    actions: [check_exigences]
`)

	result := f.run("evaluate")

	require.NoError(t, result.Err)
	assert.Contains(t, f.out.String(), "OBJ1: atteint")
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		absent   []string
	}{
		{
			name:     "all objectives",
			args:     []string{"progress"},
			contains: []string{"OBJ1", "100%", "OBJ2", " 50%"},
		},
		{
			name:     "selected objective",
			args:     []string{"progress", "OBJ2"},
			contains: []string{"OBJ2", " 50%"},
			absent:   []string{"OBJ1"},
		},
		{
			name:     "unknown objective",
			args:     []string{"progress", "OBJ9"},
			contains: []string{"objectif inconnu: OBJ9", "  0%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			result := f.run(tt.args...)

			require.NoError(t, result.Err)
			for _, s := range tt.contains {
				assert.Contains(t, f.out.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, f.out.String(), s)
			}
			assert.Empty(t, f.runner.Calls)
		})
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run("status").Err)
	assert.Contains(t, f.out.String(), "PRJ-42: aucun statut enregistré")

	require.NoError(t, f.run("run").Err)
	f.out.Reset()

	require.NoError(t, f.run("status").Err)
	assert.Equal(t, "PRJ-42: termine\n", f.out.String())
}

func TestStatus_DossierIDFlag(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.root, "statut.txt"), "echec")

	require.NoError(t, f.run("status", "--dossier-id", "CERT-7").Err)
	assert.Equal(t, "CERT-7: echec\n", f.out.String())
}

func TestStatus_CorruptMarker(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.root, "statut.txt"), "garbage")

	result := f.run("status")

	assert.Equal(t, 1, result.ExitCode)
}

func TestSteps(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run("steps").Err)

	out := f.out.String()
	assert.Contains(t, out, " 1. extraire")
	assert.Contains(t, out, filepath.Join(f.dir, "extraire.py"))
	assert.Contains(t, out, " 7. soumettre_dossier")
	assert.Contains(t, out, "check_preuves")
	assert.Empty(t, f.runner.Calls)
}

func TestRunWithApp_WritesMetrics(t *testing.T) {
	f := newFixture(t)
	f.app.Config.Metrics.Textfile = filepath.Join(f.dir, "certiflow.prom")

	require.NoError(t, f.run("run").Err)

	data, err := os.ReadFile(f.app.Config.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `certiflow_step_executions_total{result="success",step="check_mop"} 1`)
	assert.Contains(t, string(data), `certiflow_dossier_status{status="termine"} 1`)
}

func TestRunWithApp_ConfigFile(t *testing.T) {
	f := newFixture(t)
	cfgPath := filepath.Join(f.dir, "certiflow.yaml")
	writeFile(t, cfgPath, "dossier:\n  id: FROM-FILE\n  root: "+f.root+"\n")
	f.app.Config = nil

	result := f.run("status", "--config", cfgPath)

	require.NoError(t, result.Err)
	assert.Contains(t, f.out.String(), "FROM-FILE: aucun statut enregistré")
}

func TestRunWithApp_BadConfigFile(t *testing.T) {
	f := newFixture(t)
	f.app.Config = nil

	result := f.run("status", "--config", filepath.Join(f.dir, "missing.yaml"))

	assert.Equal(t, 1, result.ExitCode)
	assert.Error(t, result.Err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	f := newFixture(t)
	f.app.Config = config.DefaultConfig()

	result := f.run("steps", "--workflow", filepath.Join(f.dir, "workflow_certif.yaml"))

	require.NoError(t, result.Err)
	assert.Contains(t, f.out.String(), "extraire")
}

func TestExitError(t *testing.T) {
	err := NewExitError(3)
	assert.Equal(t, "exit status 3", err.Error())

	code, ok := IsExitError(err)
	assert.True(t, ok)
	assert.Equal(t, 3, code)

	code, ok = IsExitError(errors.Join(errors.New("context"), err))
	assert.True(t, ok)
	assert.Equal(t, 3, code)

	_, ok = IsExitError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = IsExitError(nil)
	assert.False(t, ok)
}
