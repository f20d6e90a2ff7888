// Package lab holds the domain model of the PEX convergence simulator:
// view records, nodes, the policy enums, and the scenario configuration.
//
// The simulation engine lives in sim, the sweep driver in scenario, and
// the snapshot consumers in sink. Everything here is plain data plus
// parsing and validation; nothing in this package performs I/O.
package lab

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PartitionEvent schedules one network split: at the start of Tick,
// Size nodes are carved out of cluster 0 into a fresh sibling cluster.
type PartitionEvent struct {
	Tick int
	Size int
}

func (e PartitionEvent) String() string {
	return strconv.Itoa(e.Tick) + ":" + strconv.Itoa(e.Size)
}

// ParsePartitionEvent parses a "tick:size" pair.
func ParsePartitionEvent(s string) (PartitionEvent, error) {
	tick, size, ok := strings.Cut(s, ":")
	if !ok {
		return PartitionEvent{}, fmt.Errorf("%w: partition %q (want tick:size)", ErrConfig, s)
	}
	t, err := strconv.Atoi(strings.TrimSpace(tick))
	if err != nil {
		return PartitionEvent{}, fmt.Errorf("%w: partition tick %q", ErrConfig, tick)
	}
	n, err := strconv.Atoi(strings.TrimSpace(size))
	if err != nil {
		return PartitionEvent{}, fmt.Errorf("%w: partition size %q", ErrConfig, size)
	}
	return PartitionEvent{Tick: t, Size: n}, nil
}

// ParsePartitionSchedule parses a list of "tick:size" pairs and returns
// them sorted by tick.
func ParsePartitionSchedule(pairs []string) ([]PartitionEvent, error) {
	events := make([]PartitionEvent, 0, len(pairs))
	for _, s := range pairs {
		ev, err := ParsePartitionEvent(s)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Tick < events[j].Tick })
	return events, nil
}

// Config captures every knob of a simulation scenario.
type Config struct {
	Ticks       int
	Repetitions int
	MinNodes    int
	MaxNodes    int
	Step        int

	Fanout int
	C      int // view capacity

	Topology    Topology
	Selection   Selection
	Propagation Propagation
	Merge       Merge

	H int     // healer: oldest entries protected in the push head-shuffle
	S int     // swapper: freshest entries dropped on overflow
	R int     // retained-old: oldest entries carried through retain+decay
	D float64 // decay probability per reduction step
	E bool    // evict unreachable neighbours on selection

	Partitions    []PartitionEvent
	PartitionType PartitionType

	Seed int64
}

// Validate fails fast on any configuration the simulator cannot run.
// Partition sizes are checked against MinNodes, the smallest population
// cluster 0 will ever start with; the scenario runner re-checks against
// the live cluster before applying each event.
func (c Config) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"ticks", c.Ticks},
		{"repetitions", c.Repetitions},
		{"min_nodes", c.MinNodes},
		{"max_nodes", c.MaxNodes},
		{"fanout", c.Fanout},
		{"c", c.C},
		{"H", c.H},
		{"S", c.S},
		{"R", c.R},
	} {
		if f.value < 0 {
			return fmt.Errorf("%w: %s is negative (%d)", ErrConfig, f.name, f.value)
		}
	}
	if c.Repetitions == 0 {
		return fmt.Errorf("%w: repetitions is zero", ErrConfig)
	}
	if c.Step <= 0 {
		return fmt.Errorf("%w: step must be positive (%d)", ErrConfig, c.Step)
	}
	if c.MaxNodes < c.MinNodes {
		return fmt.Errorf("%w: max_nodes %d < min_nodes %d", ErrConfig, c.MaxNodes, c.MinNodes)
	}
	if c.D < 0 || c.D > 1 {
		return fmt.Errorf("%w: D %v outside [0,1]", ErrConfig, c.D)
	}
	if !c.Topology.valid() {
		return fmt.Errorf("%w: topology %d", ErrConfig, c.Topology)
	}
	if !c.Selection.valid() {
		return fmt.Errorf("%w: selection %d", ErrConfig, c.Selection)
	}
	if !c.Propagation.valid() {
		return fmt.Errorf("%w: propagation %d", ErrConfig, c.Propagation)
	}
	if !c.Merge.valid() {
		return fmt.Errorf("%w: merge %d", ErrConfig, c.Merge)
	}
	if !c.PartitionType.valid() {
		return fmt.Errorf("%w: partition_type %d", ErrConfig, c.PartitionType)
	}
	remaining := c.MinNodes
	for _, ev := range c.Partitions {
		if ev.Size < 0 {
			return fmt.Errorf("%w: partition size is negative (%d)", ErrConfig, ev.Size)
		}
		if ev.Tick < 1 || ev.Tick > c.Ticks {
			return fmt.Errorf("%w: partition tick %d outside [1,%d]", ErrConfig, ev.Tick, c.Ticks)
		}
		if ev.Size > remaining {
			return fmt.Errorf("%w: partition size %d larger than cluster (%d nodes left)",
				ErrConfig, ev.Size, remaining)
		}
		remaining -= ev.Size
	}
	return nil
}

// Param is one configuration item for the info.sim key=value dump.
type Param struct {
	Key   string
	Value string
}

// Params returns the configuration as an ordered key/value list, the
// order the reference info.sim files use.
func (c Config) Params() []Param {
	schedule := make([]string, len(c.Partitions))
	for i, ev := range c.Partitions {
		schedule[i] = ev.String()
	}
	return []Param{
		{"ticks", strconv.Itoa(c.Ticks)},
		{"repetitions", strconv.Itoa(c.Repetitions)},
		{"min_nodes", strconv.Itoa(c.MinNodes)},
		{"max_nodes", strconv.Itoa(c.MaxNodes)},
		{"step", strconv.Itoa(c.Step)},
		{"fanout", strconv.Itoa(c.Fanout)},
		{"c", strconv.Itoa(c.C)},
		{"topology", c.Topology.String()},
		{"selection", c.Selection.String()},
		{"propagation", c.Propagation.String()},
		{"merge", c.Merge.String()},
		{"H", strconv.Itoa(c.H)},
		{"S", strconv.Itoa(c.S)},
		{"R", strconv.Itoa(c.R)},
		{"D", strconv.FormatFloat(c.D, 'g', -1, 64)},
		{"E", strconv.FormatBool(c.E)},
		{"partition", strings.Join(schedule, ",")},
		{"partition_type", c.PartitionType.String()},
		{"seed", strconv.FormatInt(c.Seed, 10)},
	}
}
