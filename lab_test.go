package lab

import (
	"errors"
	"testing"
)

func validConfig() Config {
	return Config{
		Ticks:       10,
		Repetitions: 1,
		MinNodes:    5,
		MaxNodes:    5,
		Step:        1,
		Fanout:      1,
		C:           8,
		Seed:        1,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"negative c", func(c *Config) { c.C = -1 }, false},
		{"negative fanout", func(c *Config) { c.Fanout = -2 }, false},
		{"zero repetitions", func(c *Config) { c.Repetitions = 0 }, false},
		{"zero step", func(c *Config) { c.Step = 0 }, false},
		{"max below min", func(c *Config) { c.MaxNodes = 2 }, false},
		{"D below range", func(c *Config) { c.D = -0.1 }, false},
		{"D above range", func(c *Config) { c.D = 1.5 }, false},
		{"D at bounds", func(c *Config) { c.D = 1 }, true},
		{"bad selection", func(c *Config) { c.Selection = Selection(9) }, false},
		{"bad topology", func(c *Config) { c.Topology = Topology(9) }, false},
		{"partition fits", func(c *Config) {
			c.Partitions = []PartitionEvent{{Tick: 2, Size: 3}}
		}, true},
		{"partition larger than cluster", func(c *Config) {
			c.Partitions = []PartitionEvent{{Tick: 2, Size: 6}}
		}, false},
		{"partitions exhaust cluster", func(c *Config) {
			c.Partitions = []PartitionEvent{{Tick: 2, Size: 3}, {Tick: 4, Size: 3}}
		}, false},
		{"partition tick out of range", func(c *Config) {
			c.Partitions = []PartitionEvent{{Tick: 11, Size: 1}}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !errors.Is(err, ErrConfig) {
					t.Fatalf("Validate() = %v, want ErrConfig", err)
				}
			}
		})
	}
}

func TestParsePartitionSchedule(t *testing.T) {
	events, err := ParsePartitionSchedule([]string{"20:5", "10:3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Tick != 10 || events[1].Tick != 20 {
		t.Fatalf("schedule not sorted by tick: %v", events)
	}

	for _, bad := range []string{"10", "x:1", "1:y", ""} {
		if _, err := ParsePartitionEvent(bad); err == nil {
			t.Errorf("ParsePartitionEvent(%q) = nil, want error", bad)
		}
	}
}

func TestPolicyParsing(t *testing.T) {
	if s, err := ParseSelection("tail"); err != nil || s != SelectionTail {
		t.Fatalf("ParseSelection(tail) = %v, %v", s, err)
	}
	if _, err := ParseSelection("bogus"); !errors.Is(err, ErrConfig) {
		t.Fatalf("ParseSelection(bogus) = %v, want ErrConfig", err)
	}
	if tp, err := ParseTopology("rand"); err != nil || tp != TopologyRand {
		t.Fatalf("ParseTopology(rand) = %v, %v", tp, err)
	}
	if p, err := ParsePartitionType("lineal"); err != nil || p != PartitionLineal {
		t.Fatalf("ParsePartitionType(lineal) = %v, %v", p, err)
	}
	if _, err := ParseMerge("tail"); err == nil {
		t.Fatal("ParseMerge(tail) = nil, want error")
	}
	if _, err := ParsePropagation("push"); err == nil {
		t.Fatal("ParsePropagation(push) = nil, want error")
	}
}

func TestConfigParamsRoundTrip(t *testing.T) {
	cfg := validConfig()
	cfg.Partitions = []PartitionEvent{{Tick: 3, Size: 2}}
	cfg.D = 0.25

	params := make(map[string]string)
	for _, p := range cfg.Params() {
		params[p.Key] = p.Value
	}
	for key, want := range map[string]string{
		"ticks":     "10",
		"c":         "8",
		"topology":  "ring",
		"selection": "rand",
		"D":         "0.25",
		"E":         "false",
		"partition": "3:2",
	} {
		if params[key] != want {
			t.Errorf("params[%q] = %q, want %q", key, params[key], want)
		}
	}
}
