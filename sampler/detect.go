package sampler

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// Prober is the part of a chain file needed for detection.
type Prober interface {
	Has(location string) bool
}

// Detection is the result of probing a chain file. Found is false when
// no known location matched.
type Detection struct {
	Config Config
	Found  bool
}

// Detect probes the locations of configs in order and returns the
// first match.
func Detect(p Prober, configs []Config) Detection {
	for _, c := range configs {
		if p.Has(c.Location) {
			return Detection{Config: c, Found: true}
		}
	}
	return Detection{}
}

// Lookup returns the definition named name.
func Lookup(configs []Config, name string) (Config, error) {
	for _, c := range configs {
		if c.Name == name {
			return c, nil
		}
	}
	return Config{}, &diag.ConfigError{Msg: fmt.Sprintf("unknown sampler %q", name)}
}

// file is the layout of a sampler definition file.
type file struct {
	Samplers []Config `yaml:"samplers"`
}

// Load reads sampler definitions from YAML.
func Load(r io.Reader) ([]Config, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("sampler definitions: %v", err)}
	}
	for i := range f.Samplers {
		if err := f.Samplers[i].Validate(); err != nil {
			return nil, err
		}
	}
	return f.Samplers, nil
}

// LoadFile reads sampler definitions from a YAML file.
func LoadFile(path string) ([]Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Merge overrides definitions in base by name; new names are probed
// before the built-in ones.
func Merge(base, extra []Config) []Config {
	merged := append([]Config(nil), extra...)
	for _, b := range base {
		overridden := false
		for _, e := range extra {
			if e.Name == b.Name {
				overridden = true
				break
			}
		}
		if !overridden {
			merged = append(merged, b)
		}
	}
	return merged
}
