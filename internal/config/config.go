// Package config loads clover's optional startup configuration, per
// SPEC_FULL §10.3. Grounded on the teacher's internal/ext/config.go
// LoadConfig/ParseConfig split (read file, then parse bytes so tests can
// exercise the parser without touching disk), using the same
// gopkg.in/yaml.v3 dependency.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the config file cmd/clover looks for in the working
// directory at startup.
const FileName = ".clover.yaml"

// Config seeds the predefined dynamic vars that are environment-ish
// (print-length, print-level, print-namespace-maps), a search path that
// cmd/clover uses to locate its file argument and that seeds
// *source-path* (`require` itself does not read files), and the
// tag->handler table backing *data-readers*.
type Config struct {
	PrintLength        *int              `yaml:"print-length,omitempty"`
	PrintLevel         *int              `yaml:"print-level,omitempty"`
	PrintNamespaceMaps bool              `yaml:"print-namespace-maps,omitempty"`
	RequirePath        []string          `yaml:"require-path,omitempty"`
	DataReaders        map[string]string `yaml:"data-readers,omitempty"`
}

// Default returns the configuration clover runs with when no
// .clover.yaml is present: current directory on the require path,
// everything else left at its Clojure-standard zero value.
func Default() *Config {
	return &Config{RequirePath: []string{"."}}
}

// Load reads and parses path, returning Default() unchanged if the file
// does not exist (a missing .clover.yaml is not an error).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses .clover.yaml content from bytes over Default(), so
// fields the file omits keep their default. The path argument is used
// only for error messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(cfg.RequirePath) == 0 {
		cfg.RequirePath = []string{"."}
	}
	return cfg, nil
}
