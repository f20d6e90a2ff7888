// Package config reads scenario files: a YAML rendering of every
// simulation knob, so sweeps are reproducible without long flag
// strings. CLI flags override file values; the CLI layer does the
// overriding, this package only loads and translates.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wetware/lab"
)

// Scenario mirrors lab.Config with the on-disk spellings: policy names
// as strings and the partition schedule as "tick:size" pairs.
type Scenario struct {
	Ticks       int `yaml:"ticks"`
	Repetitions int `yaml:"repetitions"`
	MinNodes    int `yaml:"min_nodes"`
	MaxNodes    int `yaml:"max_nodes"`
	Step        int `yaml:"step"`

	Fanout int `yaml:"fanout"`
	C      int `yaml:"c"`

	Topology    string `yaml:"topology"`
	Selection   string `yaml:"selection"`
	Propagation string `yaml:"propagation"`
	Merge       string `yaml:"merge"`

	H int     `yaml:"H"`
	S int     `yaml:"S"`
	R int     `yaml:"R"`
	D float64 `yaml:"D"`
	E bool    `yaml:"E"`

	Partition     []string `yaml:"partition"`
	PartitionType string   `yaml:"partition_type"`

	Seed int64 `yaml:"seed"`
}

// Default returns the reference defaults: a 3-node ring gossiped with
// fanout 1 into 32-entry views, plain head merge, no partition.
func Default() Scenario {
	return Scenario{
		Ticks:         50,
		Repetitions:   1,
		MinNodes:      3,
		MaxNodes:      3,
		Step:          1,
		Fanout:        1,
		C:             32,
		Topology:      "ring",
		Selection:     "rand",
		Propagation:   "pushpull",
		Merge:         "head",
		PartitionType: "rand",
		Seed:          1,
	}
}

// Load reads a scenario file on top of the defaults.
func Load(path string) (Scenario, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("%w: parse scenario %s: %v", lab.ErrConfig, path, err)
	}
	return s, nil
}

// Config translates the scenario into a validated lab.Config.
func (s Scenario) Config() (lab.Config, error) {
	topology, err := lab.ParseTopology(s.Topology)
	if err != nil {
		return lab.Config{}, err
	}
	selection, err := lab.ParseSelection(s.Selection)
	if err != nil {
		return lab.Config{}, err
	}
	propagation, err := lab.ParsePropagation(s.Propagation)
	if err != nil {
		return lab.Config{}, err
	}
	merge, err := lab.ParseMerge(s.Merge)
	if err != nil {
		return lab.Config{}, err
	}
	ptype, err := lab.ParsePartitionType(s.PartitionType)
	if err != nil {
		return lab.Config{}, err
	}
	schedule, err := lab.ParsePartitionSchedule(s.Partition)
	if err != nil {
		return lab.Config{}, err
	}
	cfg := lab.Config{
		Ticks:         s.Ticks,
		Repetitions:   s.Repetitions,
		MinNodes:      s.MinNodes,
		MaxNodes:      s.MaxNodes,
		Step:          s.Step,
		Fanout:        s.Fanout,
		C:             s.C,
		Topology:      topology,
		Selection:     selection,
		Propagation:   propagation,
		Merge:         merge,
		H:             s.H,
		S:             s.S,
		R:             s.R,
		D:             s.D,
		E:             s.E,
		Partitions:    schedule,
		PartitionType: ptype,
		Seed:          s.Seed,
	}
	if err := cfg.Validate(); err != nil {
		return lab.Config{}, err
	}
	return cfg, nil
}
