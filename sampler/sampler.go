// Package sampler describes the samplers whose chains can be analysed:
// where the samples live in a chain file, which keys are bookkeeping,
// which are interesting and what acceptance is expected.
package sampler

import (
	"fmt"
	"math"
	"strings"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// Transform names.
const (
	Identity = "identity"
	Abs      = "abs"
)

// TransformRule applies a transform to keys matching Pattern.
type TransformRule struct {
	Pattern   string `yaml:"pattern" json:"pattern"`
	Transform string `yaml:"transform" json:"transform"`
}

// Config is a sampler definition.
type Config struct {
	Name     string `yaml:"name" json:"name"`
	Location string `yaml:"location" json:"location"`
	// Ignored keys are bookkeeping and never analysed.
	Ignored []string `yaml:"ignored" json:"ignored"`
	// Interesting holds patterns of physically interesting keys.
	Interesting []string `yaml:"interesting" json:"interesting"`
	// PerfectAcceptance is the target step acceptance in percent.
	PerfectAcceptance float64         `yaml:"perfect_acceptance" json:"perfectAcceptance"`
	MaxLag            int             `yaml:"max_lag" json:"maxLag"`
	Transforms        []TransformRule `yaml:"transforms" json:"transforms,omitempty"`
}

// Stan is the Stan sampler (NUTS) output layout.
var Stan = Config{
	Name:     "stan",
	Location: "samples/samples",
	Ignored: []string{"accept_stat__", "stepsize__", "treedepth__",
		"n_leapfrog__", "divergent__", "energy__", "stepnum"},
	Interesting:       []string{"logprob", "Th13", "Th23", "dCP", "DmSq32"},
	PerfectAcceptance: 80,
	MaxLag:            200,
	Transforms:        []TransformRule{{Pattern: "32", Transform: Abs}},
}

// Aria is the ARIA Metropolis-Hastings output layout.
var Aria = Config{
	Name:              "aria",
	Location:          "run/samples",
	Ignored:           []string{"MH", "stepnum"},
	Interesting:       []string{"logprob", "th13", "th23", "delta(pi)", "dmsq32"},
	PerfectAcceptance: 23.4,
	MaxLag:            20000,
	Transforms:        []TransformRule{{Pattern: "32", Transform: Abs}},
}

// Builtin returns the built-in definitions in probing order.
func Builtin() []Config {
	return []Config{Stan, Aria}
}

// Validate checks a definition.
func (c *Config) Validate() error {
	if c.Name == "" {
		return &diag.ConfigError{Msg: "sampler without a name"}
	}
	if c.Location == "" {
		return &diag.ConfigError{Msg: fmt.Sprintf("sampler %s: empty location", c.Name)}
	}
	if c.PerfectAcceptance <= 0 || c.PerfectAcceptance > 100 {
		return &diag.ConfigError{Msg: fmt.Sprintf("sampler %s: perfect acceptance %v%% out of (0, 100]",
			c.Name, c.PerfectAcceptance)}
	}
	if c.MaxLag < 1 {
		return &diag.ConfigError{Msg: fmt.Sprintf("sampler %s: max lag %d < 1", c.Name, c.MaxLag)}
	}
	for _, r := range c.Transforms {
		if _, err := transformFunc(r.Transform); err != nil {
			return &diag.ConfigError{Msg: fmt.Sprintf("sampler %s: %v", c.Name, err)}
		}
	}
	return nil
}

// IsIgnored reports whether key is a bookkeeping key.
func (c *Config) IsIgnored(key string) bool {
	for _, k := range c.Ignored {
		if k == key {
			return true
		}
	}
	return false
}

// Keys removes ignored keys, keeping the order.
func (c *Config) Keys(all []string) (keys []string) {
	for _, k := range all {
		if !c.IsIgnored(k) {
			keys = append(keys, k)
		}
	}
	return
}

// InterestingKeys returns the keys matching the interesting patterns.
func (c *Config) InterestingKeys(keys []string) []string {
	return Classifier{Patterns: c.Interesting}.Filter(keys)
}

// Pair is an unordered pair of keys, stored in key order.
type Pair struct {
	X, Y string
}

func (p Pair) String() string {
	return p.X + " vs " + p.Y
}

// Pairs returns every pair of interesting keys, in the order of keys.
func (c *Config) Pairs(keys []string) (pairs []Pair) {
	ik := c.InterestingKeys(keys)
	for i := range ik {
		for j := i + 1; j < len(ik); j++ {
			pairs = append(pairs, Pair{ik[i], ik[j]})
		}
	}
	return
}

// TransformFor returns the pre-binning transform of key. The first
// matching rule wins.
func (c *Config) TransformFor(key string) func(float64) float64 {
	for _, r := range c.Transforms {
		if strings.Contains(key, r.Pattern) {
			if f, err := transformFunc(r.Transform); err == nil {
				return f
			}
		}
	}
	return nil
}

func transformFunc(name string) (func(float64) float64, error) {
	switch name {
	case Abs:
		return math.Abs, nil
	case Identity, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown transform %q", name)
}

// Classifier matches keys against declared substring patterns.
type Classifier struct {
	Patterns []string
}

// Match reports whether any pattern occurs in key.
func (cl Classifier) Match(key string) bool {
	for _, p := range cl.Patterns {
		if p != "" && strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// Filter returns the matching keys, keeping the order.
func (cl Classifier) Filter(keys []string) (matched []string) {
	for _, k := range keys {
		if cl.Match(k) {
			matched = append(matched, k)
		}
	}
	return
}

// DisplayName strips the leading marker character used by some
// samplers for parameter names. It is for presentation only.
func DisplayName(key string) string {
	return strings.TrimPrefix(key, "_")
}
