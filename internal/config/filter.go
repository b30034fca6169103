package config

import (
	"fmt"

	"github.com/banshee-data/pfcluster/internal/fsutil"
	"github.com/banshee-data/pfcluster/internal/overclean"
	"go.trai.ch/zerr"
)

// DefaultFilterPath is the canonical over-cleaning filter configuration.
const DefaultFilterPath = "config/overclean.defaults.json"

// FilterConfig holds the over-cleaning filter parameters.
type FilterConfig struct {
	EnergyCut *float64 `json:"EnergyCut,omitempty" yaml:"EnergyCut,omitempty" toml:"EnergyCut,omitempty"`
	TimingCut *float64 `json:"TimingCut,omitempty" yaml:"TimingCut,omitempty" toml:"TimingCut,omitempty"`
	Verbose   *bool    `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose,omitempty"`
}

// DefaultFilterConfig returns the default filter parameters.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		EnergyCut: ptrFloat64(overclean.DefaultEnergyCut),
		TimingCut: ptrFloat64(overclean.DefaultTimingCut),
		Verbose:   ptrBool(true),
	}
}

// LoadFilterConfig loads and validates a FilterConfig from a JSON, YAML or
// TOML file.
func LoadFilterConfig(path string) (*FilterConfig, error) {
	return LoadFilterConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadFilterConfigFS is LoadFilterConfig reading from fsys.
func LoadFilterConfigFS(fsys fsutil.FileSystem, path string) (*FilterConfig, error) {
	cfg := &FilterConfig{}
	if err := decodeFile(fsys, path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that both cuts are present and valid.
func (c *FilterConfig) Validate() error {
	if c.EnergyCut == nil {
		return zerr.With(ErrMissingParameter, "parameter", "EnergyCut")
	}
	if c.TimingCut == nil {
		return zerr.With(ErrMissingParameter, "parameter", "TimingCut")
	}
	return c.Filter().Validate()
}

// Filter converts c to an overclean.Filter.
func (c *FilterConfig) Filter() overclean.Filter {
	return overclean.Filter{
		EnergyCut: c.GetEnergyCut(),
		TimingCut: c.GetTimingCut(),
		Verbose:   c.GetVerbose(),
	}
}

// GetEnergyCut returns the EnergyCut value or the default.
func (c *FilterConfig) GetEnergyCut() float64 {
	return getFloat64(c.EnergyCut, overclean.DefaultEnergyCut)
}

// GetTimingCut returns the TimingCut value or the default.
func (c *FilterConfig) GetTimingCut() float64 {
	return getFloat64(c.TimingCut, overclean.DefaultTimingCut)
}

// GetVerbose returns the verbose value or true.
func (c *FilterConfig) GetVerbose() bool {
	if c.Verbose == nil {
		return true
	}
	return *c.Verbose
}
