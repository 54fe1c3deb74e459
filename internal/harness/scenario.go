package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists the CUE declaration files of the initial pass.
	Specs []string `yaml:"specs"`

	// Assertions are checked after the initial pass.
	Assertions []Assertion `yaml:"assertions"`

	// Steps each run one more pass after editing or removing files.
	Steps []Step `yaml:"steps,omitempty"`

	// PassToken is the fixed pass token. Empty means "test-pass-default".
	PassToken string `yaml:"pass_token,omitempty"`

	// Base is the directory spec paths are resolved against.
	Base string `yaml:"-"`
}

// Step edits the loaded files and runs another pass.
type Step struct {
	Name       string       `yaml:"name"`
	Update     []FileUpdate `yaml:"update,omitempty"`
	Remove     []string     `yaml:"remove,omitempty"`
	Assertions []Assertion  `yaml:"assertions"`
}

// FileUpdate replaces (or adds) File with the content of From.
type FileUpdate struct {
	File string `yaml:"file"`
	From string `yaml:"from"`
}

// Assertion checks the emitted units or the pass report.
type Assertion struct {
	Type string `yaml:"type"`

	// Unit is the unit identity (unit_exists, unit_absent, unit_contains,
	// unit_failed).
	Unit string `yaml:"unit,omitempty"`

	// Text lists substrings that must all occur (unit_contains).
	Text []string `yaml:"text,omitempty"`

	// Declaration is the full declaration name (malformed).
	Declaration string `yaml:"declaration,omitempty"`

	// Field is the pass report counter (pass_count).
	Field string `yaml:"field,omitempty"`

	// Count is the expected count (unit_count, pass_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertUnitExists   = "unit_exists"
	AssertUnitAbsent   = "unit_absent"
	AssertUnitContains = "unit_contains"
	AssertUnitFailed   = "unit_failed"
	AssertUnitCount    = "unit_count"
	AssertMalformed    = "malformed"
	AssertPassCount    = "pass_count"
)

// LoadScenario reads a scenario file. Paths resolve against the scenario
// file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario file, resolving spec and step
// paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.Base = basePath

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Resolve joins a scenario path to Base unless it is absolute.
func (s *Scenario) Resolve(p string) string {
	if filepath.IsAbs(p) || s.Base == "" {
		return p
	}
	return filepath.Join(s.Base, p)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range s.Specs {
		if err := s.exists(p); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(fmt.Sprintf("assertions[%d]", i), &a); err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		label := fmt.Sprintf("steps[%d]", i)
		if len(step.Update) == 0 && len(step.Remove) == 0 {
			return fmt.Errorf("%s: update or remove is required", label)
		}
		for j, u := range step.Update {
			if u.File == "" || u.From == "" {
				return fmt.Errorf("%s.update[%d]: file and from are required", label, j)
			}
			if err := s.exists(u.From); err != nil {
				return fmt.Errorf("%s.update[%d]: %w", label, j, err)
			}
		}
		if len(step.Assertions) == 0 {
			return fmt.Errorf("%s: assertions list is required and must be non-empty", label)
		}
		for j, a := range step.Assertions {
			if err := validateAssertion(fmt.Sprintf("%s.assertions[%d]", label, j), &a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scenario) exists(p string) error {
	if _, err := os.Stat(s.Resolve(p)); os.IsNotExist(err) {
		return fmt.Errorf("spec file not found: %s", p)
	}
	return nil
}

func validateAssertion(label string, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("%s: type is required", label)
	case AssertUnitExists, AssertUnitAbsent, AssertUnitFailed:
		if a.Unit == "" {
			return fmt.Errorf("%s: unit is required for %s", label, a.Type)
		}
	case AssertUnitContains:
		if a.Unit == "" || len(a.Text) == 0 {
			return fmt.Errorf("%s: unit and text are required for unit_contains", label)
		}
	case AssertUnitCount:
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for unit_count", label)
		}
	case AssertMalformed:
		if a.Declaration == "" {
			return fmt.Errorf("%s: declaration is required for malformed", label)
		}
	case AssertPassCount:
		if _, ok := passCounters[a.Field]; !ok {
			return fmt.Errorf("%s: unknown pass_count field %q", label, a.Field)
		}
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for pass_count", label)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", label, a.Type)
	}
	return nil
}
