// Package testutil provides shared test helpers for slox Go tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ScenariosDir is the path from the module root to the golden scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.yaml file.
type Scenario struct {
	Cmd    []string        `yaml:"cmd"`
	Stdin  string          `yaml:"stdin,omitempty"`
	Config *ScenarioConfig `yaml:"config,omitempty"`
	Meta   *ScenarioMeta   `yaml:"meta,omitempty"`
	Expect ExpectedResult  `yaml:"expect"`
}

// ScenarioConfig overrides runtime settings for one scenario.
type ScenarioConfig struct {
	HaltOnSyntaxError bool `yaml:"haltOnSyntaxError,omitempty"`
	NoStdlib          bool `yaml:"noStdlib,omitempty"`
	MaxCallDepth      int  `yaml:"maxCallDepth,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `yaml:"tags,omitempty"`
}

// ExpectedDiag is matched field by field; zero fields are ignored.
type ExpectedDiag struct {
	Code    string `yaml:"code,omitempty"`
	Line    int    `yaml:"line,omitempty"`
	Message string `yaml:"message,omitempty"`
	Where   string `yaml:"where,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode       int            `yaml:"exitCode"`
	StdoutText     *string        `yaml:"stdoutText,omitempty"`
	StdoutContains string         `yaml:"stdoutContains,omitempty"`
	StderrText     *string        `yaml:"stderrText,omitempty"`
	StderrContains string         `yaml:"stderrContains,omitempty"`
	Diagnostics    []ExpectedDiag `yaml:"diagnostics,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
func LoadScenario(dir string) (*Scenario, error) {
	path := filepath.Join(dir, "scenario.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if len(s.Cmd) == 0 {
		return nil, errors.Errorf("%s: cmd is empty", path)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root,
// sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, "list scenarios")
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.yaml")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the program file referenced by the scenario cmd.
// It returns an empty source when the cmd names no file.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	if len(cmd) < 2 {
		return "", "", nil
	}
	filename := cmd[1]
	source, err := os.ReadFile(filepath.Join(scenarioDir, filename))
	if err != nil {
		return "", "", errors.Wrap(err, "read program")
	}
	return string(source), filename, nil
}
