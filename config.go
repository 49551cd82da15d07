package chaintrace

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/chaintrace/chaintrace/model"
)

// SinkSpec configures one sink function to analyze, with the parameter
// positions treated as the tainted destination.
type SinkSpec struct {
	Name         string `yaml:"name"`
	ParamIndices []int  `yaml:"param_indices"`
}

// Config holds the per-run analysis configuration.
type Config struct {
	// Entries names the attacker-reachable entry functions.
	Entries []string `yaml:"entries"`
	// Sinks lists the sink functions to search for.
	Sinks []SinkSpec `yaml:"sinks"`
	// MaxChainDepth bounds reverse call-graph exploration. Zero selects
	// the default bound.
	MaxChainDepth int `yaml:"max_chain_depth"`
	// Concurrency caps parallel sink tracing and slicing. Zero selects
	// GOMAXPROCS.
	Concurrency int `yaml:"concurrency"`
}

// NewConfig returns a config with default bounds and no entries or
// sinks.
func NewConfig() *Config {
	return &Config{
		Concurrency: runtime.GOMAXPROCS(0),
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := NewConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
	return c, nil
}

// ParseEntryList splits a comma-separated entry function list.
func ParseEntryList(csv string) []string {
	var entries []string
	for _, e := range strings.Split(csv, ",") {
		if e = strings.TrimSpace(e); e != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// SinkCatalog converts the configured sink specs into catalog entries.
func (c *Config) SinkCatalog() []model.SinkFunction {
	var catalog []model.SinkFunction
	for _, spec := range c.Sinks {
		indices := spec.ParamIndices
		if len(indices) == 0 {
			indices = []int{0}
		}
		for _, idx := range indices {
			catalog = append(catalog, model.SinkFunction{Name: spec.Name, ParamIndex: idx, By: "config"})
		}
	}
	return catalog
}
