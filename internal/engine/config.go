package engine

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"certiflow/internal/steps"
)

// Metadata is the optional header of a workflow file.
type Metadata struct {
	Project    string `yaml:"projet"`
	STIVersion string `yaml:"version_sti"`
}

// workflowFile is the YAML layout of a workflow file. "workflow" is accepted
// as an alias of "steps".
type workflowFile struct {
	Metadata Metadata         `yaml:"metadata"`
	Steps    []map[string]any `yaml:"steps"`
	Workflow []map[string]any `yaml:"workflow"`
}

// parseWorkflow decodes the step descriptors of a workflow file.
func parseWorkflow(r io.Reader, baseDir string) (Metadata, []steps.Descriptor, error) {
	var wf workflowFile
	if err := yaml.NewDecoder(r).Decode(&wf); err != nil {
		if err == io.EOF {
			return Metadata{}, nil, fmt.Errorf("%w: workflow is empty", ErrInvalidConfiguration)
		}
		return Metadata{}, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	entries := wf.Steps
	if entries == nil {
		entries = wf.Workflow
	}
	if entries == nil {
		return Metadata{}, nil, fmt.Errorf("%w: no steps section", ErrInvalidConfiguration)
	}

	descs := make([]steps.Descriptor, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		id, ok := entry["id"].(string)
		if !ok || id == "" {
			return Metadata{}, nil, fmt.Errorf("%w: step %d has no id", ErrInvalidConfiguration, i+1)
		}
		if seen[id] {
			return Metadata{}, nil, fmt.Errorf("%w: duplicate step %q", ErrInvalidConfiguration, id)
		}
		seen[id] = true

		script := ""
		if raw, ok := entry["script"]; ok && raw != nil {
			s, ok := raw.(string)
			if !ok {
				return Metadata{}, nil, fmt.Errorf("%w: step %q: script must be a string", ErrInvalidConfiguration, id)
			}
			script = s
		}

		params := make(map[string]any, len(entry))
		for k, v := range entry {
			if k == "id" || k == "script" {
				continue
			}
			params[k] = v
		}
		descs = append(descs, steps.Descriptor{
			ID:      id,
			Script:  script,
			Params:  params,
			BaseDir: baseDir,
		})
	}
	return wf.Metadata, descs, nil
}
