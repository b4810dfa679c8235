package utils

import (
	"errors"
	"testing"
)

func TestParseModelName(t *testing.T) {
	cases := []struct {
		name     string
		random   bool
		layers   int
		hidden   int
		wantFail bool
	}{
		{"T-600", false, 1, 600, false},
		{"R-600", true, 1, 600, false},
		{"T2-1200", false, 2, 1200, false},
		{"R3-600", true, 3, 600, false},
		{"X-600", false, 0, 0, true},
		{"T-", false, 0, 0, true},
		{"T2600", false, 0, 0, true},
	}
	for _, c := range cases {
		random, layers, hidden, err := ParseModelName(c.name)
		if c.wantFail {
			if err == nil {
				t.Errorf("%s: expected error", c.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
			continue
		}
		if random != c.random || layers != c.layers || hidden != c.hidden {
			t.Errorf("%s: got (%v,%d,%d), want (%v,%d,%d)", c.name, random, layers, hidden, c.random, c.layers, c.hidden)
		}
	}
}

func TestDefaultConfigRegimes(t *testing.T) {
	tc, err := DefaultConfig("T2-300")
	if err != nil {
		t.Fatal(err)
	}
	if tc.Epochs != 4 || tc.LearningRate != 0.001 || tc.LRDropEpoch != 4 {
		t.Errorf("true-label regime: got epochs=%d lr=%g drop=%d", tc.Epochs, tc.LearningRate, tc.LRDropEpoch)
	}
	want := []int{784, 300, 300, 2}
	if len(tc.Architecture) != len(want) {
		t.Fatalf("architecture = %v, want %v", tc.Architecture, want)
	}
	for i := range want {
		if tc.Architecture[i] != want[i] {
			t.Fatalf("architecture = %v, want %v", tc.Architecture, want)
		}
	}
	if err := ValidateConfig(tc); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	rc, err := DefaultConfig("R-600")
	if err != nil {
		t.Fatal(err)
	}
	if !rc.RandomLabels || rc.Epochs != 8 || rc.LearningRate != 0.0001 || rc.LRDropEpoch != 0 {
		t.Errorf("random-label regime: got %+v", rc)
	}
}

func TestValidateConfigRanges(t *testing.T) {
	base, _ := DefaultConfig("T-600")
	mutate := map[string]func(c *Config){
		"conf_param":  func(c *Config) { c.ConfParam = 1 },
		"data_size":   func(c *Config) { c.DataSize = 1 },
		"bound":       func(c *Config) { c.Bound = 0 },
		"delta_prime": func(c *Config) { c.DeltaPrime = 0 },
		"batch_size":  func(c *Config) { c.BatchSize = 0 },
		"workers":     func(c *Config) { c.Workers = 0 },
	}
	for field, fn := range mutate {
		c := *base
		fn(&c)
		err := ValidateConfig(&c)
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("%s: expected ConfigurationError, got %v", field, err)
			continue
		}
		if ce.Field != field {
			t.Errorf("%s: error names field %q", field, ce.Field)
		}
	}
}

func TestParseArchitecture(t *testing.T) {
	arch, err := ParseArchitecture("784 600 2")
	if err != nil {
		t.Fatal(err)
	}
	if len(arch) != 3 || arch[1] != 600 {
		t.Fatalf("got %v", arch)
	}
	if _, err := ParseArchitecture("784 x 2"); err == nil {
		t.Fatal("expected error")
	}
}
