package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/simtree/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario builds one record instance from a CUE schema, applies a
// sequence of steps to it and checks the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to the CUE file declaring the record types.
	// Relative paths are resolved against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Record names the root record type of Instance.
	Record string `yaml:"record"`

	// Instance holds the root record's field values. Each value is converted
	// using the declared type of its field.
	Instance map[string]any `yaml:"instance"`

	// Steps run in order against the current record.
	Steps []Step `yaml:"steps,omitempty"`

	// Expect describes the required outcome.
	Expect Expect `yaml:"expect"`
}

// Step is one transformation. Exactly one of its members is set.
type Step struct {
	Replace *ReplaceStep `yaml:"replace,omitempty"`
	FilterK *FilterKStep `yaml:"filter_k,omitempty"`
	Fill    *FillStep    `yaml:"fill,omitempty"`
}

// Kind returns the step's YAML key.
func (s Step) Kind() string {
	switch {
	case s.Replace != nil:
		return StepReplace
	case s.FilterK != nil:
		return StepFilterK
	case s.Fill != nil:
		return StepFill
	default:
		return ""
	}
}

// ReplaceStep overrides the field at Path.
type ReplaceStep struct {
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`

	// Each distributes a list Value across the first list the path crosses.
	Each bool `yaml:"each,omitempty"`
}

// FilterKStep compacts the current record to K entity slots. A nil K takes
// the run's default capacity.
type FilterKStep struct {
	Mask []bool `yaml:"mask"`
	K    *int   `yaml:"k,omitempty"`
}

// FillStep overwrites the padding slots left by the last filter_k with the
// matching entities of Default, an instance of the root record.
type FillStep struct {
	Default map[string]any `yaml:"default"`
}

// Expect lists the checks made after the steps run. Unset members are not
// checked.
type Expect struct {
	// Error is an ir error code some step must fail with.
	Error string `yaml:"error,omitempty"`

	FillMask []bool `yaml:"fill_mask,omitempty"`
	Selected *int   `yaml:"selected,omitempty"`
	Dropped  *int   `yaml:"dropped,omitempty"`

	// Fields maps dotted paths to expected values. A path that crosses a
	// list expects one value per element.
	Fields map[string]any `yaml:"fields,omitempty"`
}

// Step kinds.
const (
	StepReplace = "replace"
	StepFilterK = "filter_k"
	StepFill    = "fill"
)

var errorCodes = map[ir.ErrorCode]bool{
	ir.ErrCodeRegistrationConflict: true,
	ir.ErrCodeUnsupportedFieldType: true,
	ir.ErrCodeUnknownField:         true,
	ir.ErrCodeLengthMismatch:       true,
	ir.ErrCodeMissingField:         true,
	ir.ErrCodeTypeMismatch:         true,
	ir.ErrCodeStructureMismatch:    true,
	ir.ErrCodeShapeMismatch:        true,
	ir.ErrCodeNotRegistered:        true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the schema relative to the scenario BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if _, err := os.Stat(scenario.Schema); err != nil {
		return nil, fmt.Errorf("invalid scenario: schema file not found: %s", scenario.Schema)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without resolving or checking the
// schema path.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file under dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(path); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain spaces or path separators", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.Record == "" {
		return fmt.Errorf("record is required")
	}
	if s.Instance == nil {
		return fmt.Errorf("instance is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	if s.Expect.Error != "" && !errorCodes[ir.ErrorCode(s.Expect.Error)] {
		return fmt.Errorf("expect.error: unknown error code %q", s.Expect.Error)
	}
	return nil
}

func validateStep(i int, step Step) error {
	set := 0
	for _, present := range []bool{step.Replace != nil, step.FilterK != nil, step.Fill != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of replace, filter_k, fill is required", i)
	}

	switch {
	case step.Replace != nil:
		if step.Replace.Each {
			if _, ok := step.Replace.Value.([]any); !ok {
				return fmt.Errorf("steps[%d].replace: each requires a list value", i)
			}
		}
	case step.FilterK != nil:
		if step.FilterK.Mask == nil {
			return fmt.Errorf("steps[%d].filter_k: mask is required", i)
		}
	case step.Fill != nil:
		if step.Fill.Default == nil {
			return fmt.Errorf("steps[%d].fill: default is required", i)
		}
	}
	return nil
}
