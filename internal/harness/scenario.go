package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sidefx/internal/ir"
)

// Scenario is a self-contained analysis test: a dialect, some op trees,
// and the verdicts each tree must receive.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect lists the op definitions the roots may use. Ops not listed
	// here are opaque.
	Dialect []OpSpec `yaml:"dialect"`

	// Roots maps a root name to its op tree.
	Roots map[string]Node `yaml:"roots"`

	// Expect maps a root name to the verdicts it must receive.
	Expect map[string]Expectation `yaml:"expect"`
}

// OpSpec declares one op in a scenario dialect.
//
// A nil Effects means the op has no effect interface; an empty list
// declares it effect-free. An empty Speculatability means no speculation
// interface.
type OpSpec struct {
	Name            string    `yaml:"name"`
	Traits          []string  `yaml:"traits,omitempty"`
	Effects         *[]string `yaml:"effects,omitempty"`
	Speculatability string    `yaml:"speculatability,omitempty"`
}

// Node is one op in a root tree.
type Node struct {
	Op      string   `yaml:"op"`
	Regions [][]Node `yaml:"regions,omitempty"`
}

// Expectation lists the verdicts a root must receive.
// Blockers are optional; when set they must match the op that decided the
// negative verdict.
type Expectation struct {
	MemoryEffectFree   *bool  `yaml:"memory_effect_free"`
	Speculatable       *bool  `yaml:"speculatable"`
	MemoryBlocker      string `yaml:"memory_blocker,omitempty"`
	SpeculationBlocker string `yaml:"speculation_blocker,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every .yaml and .yml file directly under dir, in file name
// order. It stops at the first invalid file.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := FindScenarioFiles(dir)
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// FindScenarioFiles returns the scenario files directly under dir, sorted.
func FindScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Roots) == 0 {
		return fmt.Errorf("roots map is required and must be non-empty")
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect map is required and must be non-empty")
	}

	for i, spec := range s.Dialect {
		if spec.Name == "" {
			return fmt.Errorf("dialect[%d]: name is required", i)
		}
		for _, trait := range spec.Traits {
			if _, err := ir.ParseTrait(trait); err != nil {
				return fmt.Errorf("dialect[%d] %s: %w", i, spec.Name, err)
			}
		}
		if spec.Speculatability != "" {
			if _, err := ir.ParseSpeculatability(spec.Speculatability); err != nil {
				return fmt.Errorf("dialect[%d] %s: %w", i, spec.Name, err)
			}
		}
	}

	for _, name := range sortedKeys(s.Roots) {
		if err := validateNode(s.Roots[name], "roots."+name); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(s.Expect) {
		if _, ok := s.Roots[name]; !ok {
			return fmt.Errorf("expect.%s: no root with that name", name)
		}
		exp := s.Expect[name]
		if exp.MemoryEffectFree == nil {
			return fmt.Errorf("expect.%s: memory_effect_free is required", name)
		}
		if exp.Speculatable == nil {
			return fmt.Errorf("expect.%s: speculatable is required", name)
		}
		if exp.MemoryBlocker != "" && *exp.MemoryEffectFree {
			return fmt.Errorf("expect.%s: memory_blocker set on a memory effect free root", name)
		}
		if exp.SpeculationBlocker != "" && *exp.Speculatable {
			return fmt.Errorf("expect.%s: speculation_blocker set on a speculatable root", name)
		}
	}

	return nil
}

func validateNode(n Node, field string) error {
	if n.Op == "" {
		return fmt.Errorf("%s: op is required", field)
	}
	for ri, region := range n.Regions {
		for oi, nested := range region {
			if err := validateNode(nested, fmt.Sprintf("%s.regions[%d][%d]", field, ri, oi)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Registry builds an op registry from the scenario dialect.
func (s *Scenario) Registry() (*ir.Registry, error) {
	reg := ir.NewRegistry()
	for _, spec := range s.Dialect {
		def, err := spec.Definition()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Definition converts o into an ir.OpDefinition.
func (o OpSpec) Definition() (*ir.OpDefinition, error) {
	def := &ir.OpDefinition{Name: o.Name}

	for _, name := range o.Traits {
		t, err := ir.ParseTrait(name)
		if err != nil {
			return nil, fmt.Errorf("op %s: %w", o.Name, err)
		}
		def.Traits = def.Traits.With(t)
	}

	if o.Effects != nil {
		def.MemoryEffects = &ir.MemoryEffects{Effects: append([]string{}, (*o.Effects)...)}
	}

	if o.Speculatability != "" {
		spec, err := ir.ParseSpeculatability(o.Speculatability)
		if err != nil {
			return nil, fmt.Errorf("op %s: %w", o.Name, err)
		}
		def.Speculation = &spec
	}

	return def, nil
}

// Build creates the op tree for n against reg.
func (n Node) Build(reg *ir.Registry) *ir.GenericOp {
	op := reg.Create(n.Op)
	for _, ops := range n.Regions {
		region := op.AddRegion()
		for _, nested := range ops {
			region.Append(nested.Build(reg))
		}
	}
	return op
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
