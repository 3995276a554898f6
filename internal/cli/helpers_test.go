package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"certiflow/internal/config"
	"certiflow/internal/exec"
	"certiflow/internal/output"
	"certiflow/internal/status"
	"certiflow/internal/telemetry"
	"certiflow/internal/validation"
)

const fixtureWorkflow = `metadata:
  projet: Radar
  version_sti: "2.1"
steps:
  - id: extraire
    script: extraire.py
    args: [--strict]
  - id: check_exigences
  - id: check_mop
  - id: check_preuves
  - id: gerer_retours
  - id: analyse_retours
  - id: soumettre_dossier
`

const fixtureObjectives = `objectifs:
  OBJ1:
    description: Dossier soumis
    preconditions: [check_exigences, check_mop]
    actions: [check_exigences, check_mop, soumettre_dossier]
    resultats_attendus:
      - {fichier: audit/dossier_soumission.zip, existe: true}
  OBJ2:
    description: Retours traités
    preconditions: [etape_inconnue, gerer_retours]
    actions: [gerer_retours]
`

var fixtureData = map[string]string{
	validation.ExigencesFile: "Exigence,Applicability,Justification non-applicabilité\nEX-01,Oui,couverte\n",
	validation.MOPFile:       "Exigence,Applicability,MOP\nEX-01,Oui,Essai\n",
	validation.PreuvesFile:   "Exigence,Applicability,Preuve_conception,Preuve_test\nEX-01,Oui,DOC-1,TST-1\n",
	validation.RetoursFile:   "Exigence,Commentaire,Criticité\nEX-01,corrigé,basse\n",
}

// fixture is a temporary certification project: a dossier named PRJ-42, a
// workflow file and an objectives file, wired into an App that prints to a
// buffer and records script calls.
type fixture struct {
	dir    string
	root   string
	out    *bytes.Buffer
	runner *exec.MockRunner
	app    *App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "PRJ-42")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0755))
	for name, content := range fixtureData {
		require.NoError(t, os.WriteFile(filepath.Join(root, "data", name), []byte(content), 0644))
	}
	writeFile(t, filepath.Join(dir, "workflow_certif.yaml"), fixtureWorkflow)
	writeFile(t, filepath.Join(dir, "objectifs.yaml"), fixtureObjectives)

	cfg := config.DefaultConfig()
	cfg.Dossier.Root = root
	cfg.WorkflowFile = filepath.Join(dir, "workflow_certif.yaml")
	cfg.ObjectivesFile = filepath.Join(dir, "objectifs.yaml")

	out := &bytes.Buffer{}
	printer := output.NewPrinterWithWriter(out)
	printer.SetColor(false)
	runner := &exec.MockRunner{}

	return &fixture{
		dir:    dir,
		root:   root,
		out:    out,
		runner: runner,
		app: &App{
			Config:  cfg,
			Printer: printer,
			Logger:  telemetry.Discard(),
			Runner:  runner,
		},
	}
}

func (f *fixture) run(args ...string) ExecuteResult {
	return RunWithApp(context.Background(), f.app, args)
}

func (f *fixture) marker(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, status.MarkerFile))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) setData(t *testing.T, name, content string) {
	t.Helper()
	writeFile(t, filepath.Join(f.root, "data", name), content)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
