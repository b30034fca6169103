package config

import (
	"fmt"

	"github.com/banshee-data/pfcluster/internal/calo/l2seeds"
	"github.com/banshee-data/pfcluster/internal/calo/l3topo"
	"github.com/banshee-data/pfcluster/internal/calo/l4fit"
	"github.com/banshee-data/pfcluster/internal/calo/l5depth"
	"github.com/banshee-data/pfcluster/internal/calo/pipeline"
	"github.com/banshee-data/pfcluster/internal/fsutil"
	"go.trai.ch/zerr"
)

// DefaultClusteringPath is the canonical HCAL clustering configuration.
const DefaultClusteringPath = "config/pfcluster.defaults.json"

// ErrMissingParameter is returned when a required key is absent.
var ErrMissingParameter = zerr.New("missing required parameter")

// ClusteringConfig holds the clustering parameters. Keys match the
// producer configuration names so existing parameter sets load unchanged.
type ClusteringConfig struct {
	// Seeding
	ThreshSeedBarrel  *float64 `json:"thresh_Seed_Barrel,omitempty" yaml:"thresh_Seed_Barrel,omitempty" toml:"thresh_Seed_Barrel,omitempty"`
	ThreshSeedEndcap  *float64 `json:"thresh_Seed_Endcap,omitempty" yaml:"thresh_Seed_Endcap,omitempty" toml:"thresh_Seed_Endcap,omitempty"`
	ThreshCleanBarrel *float64 `json:"thresh_Clean_Barrel,omitempty" yaml:"thresh_Clean_Barrel,omitempty" toml:"thresh_Clean_Barrel,omitempty"`
	ThreshCleanEndcap *float64 `json:"thresh_Clean_Endcap,omitempty" yaml:"thresh_Clean_Endcap,omitempty" toml:"thresh_Clean_Endcap,omitempty"`
	MinS4S1Barrel     *float64 `json:"minS4S1_Barrel,omitempty" yaml:"minS4S1_Barrel,omitempty" toml:"minS4S1_Barrel,omitempty"`
	MinS4S1Endcap     *float64 `json:"minS4S1_Endcap,omitempty" yaml:"minS4S1_Endcap,omitempty" toml:"minS4S1_Endcap,omitempty"`

	// Topo-clusters
	ThreshBarrel *float64 `json:"thresh_Barrel,omitempty" yaml:"thresh_Barrel,omitempty" toml:"thresh_Barrel,omitempty"`
	ThreshEndcap *float64 `json:"thresh_Endcap,omitempty" yaml:"thresh_Endcap,omitempty" toml:"thresh_Endcap,omitempty"`
	NNeighbours  *int     `json:"nNeighbours,omitempty" yaml:"nNeighbours,omitempty" toml:"nNeighbours,omitempty"`

	// Fit
	ShowerSigma     *float64 `json:"showerSigma,omitempty" yaml:"showerSigma,omitempty" toml:"showerSigma,omitempty"`
	PosCalcNCrystal *int     `json:"posCalcNCrystal,omitempty" yaml:"posCalcNCrystal,omitempty" toml:"posCalcNCrystal,omitempty"`
	PosCalcP1       *float64 `json:"posCalcP1,omitempty" yaml:"posCalcP1,omitempty" toml:"posCalcP1,omitempty"`

	// Depth correction
	DepthCorMode       *int     `json:"depthCor_Mode,omitempty" yaml:"depthCor_Mode,omitempty" toml:"depthCor_Mode,omitempty"`
	DepthCorA          *float64 `json:"depthCor_A,omitempty" yaml:"depthCor_A,omitempty" toml:"depthCor_A,omitempty"`
	DepthCorB          *float64 `json:"depthCor_B,omitempty" yaml:"depthCor_B,omitempty" toml:"depthCor_B,omitempty"`
	DepthCorAPreshower *float64 `json:"depthCor_A_preshower,omitempty" yaml:"depthCor_A_preshower,omitempty" toml:"depthCor_A_preshower,omitempty"`
	DepthCorBPreshower *float64 `json:"depthCor_B_preshower,omitempty" yaml:"depthCor_B_preshower,omitempty" toml:"depthCor_B_preshower,omitempty"`

	Workers *int  `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty"`
	Verbose *bool `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose,omitempty"`
}

// EmptyClusteringConfig returns a ClusteringConfig with all fields nil.
func EmptyClusteringConfig() *ClusteringConfig {
	return &ClusteringConfig{}
}

// DefaultClusteringConfig returns the HCAL parameter set with every field set.
func DefaultClusteringConfig() *ClusteringConfig {
	return &ClusteringConfig{
		ThreshSeedBarrel:   ptrFloat64(l2seeds.DefaultSeedThreshold),
		ThreshSeedEndcap:   ptrFloat64(l2seeds.DefaultSeedThreshold),
		ThreshCleanBarrel:  ptrFloat64(l2seeds.DefaultCleanThreshold),
		ThreshCleanEndcap:  ptrFloat64(l2seeds.DefaultCleanThreshold),
		MinS4S1Barrel:      ptrFloat64(l2seeds.DefaultMinS4S1),
		MinS4S1Endcap:      ptrFloat64(l2seeds.DefaultMinS4S1),
		ThreshBarrel:       ptrFloat64(l3topo.DefaultCellThreshold),
		ThreshEndcap:       ptrFloat64(l3topo.DefaultCellThreshold),
		NNeighbours:        ptrInt(l3topo.DefaultMaxHops),
		ShowerSigma:        ptrFloat64(l4fit.DefaultShowerSigma),
		PosCalcNCrystal:    ptrInt(l4fit.DefaultPosCalcNCrystal),
		PosCalcP1:          ptrFloat64(l4fit.DefaultPosCalcP1),
		DepthCorMode:       ptrInt(int(l5depth.ModeNone)),
		DepthCorA:          ptrFloat64(l5depth.DefaultA),
		DepthCorB:          ptrFloat64(l5depth.DefaultB),
		DepthCorAPreshower: ptrFloat64(l5depth.DefaultAPreshower),
		DepthCorBPreshower: ptrFloat64(l5depth.DefaultBPreshower),
		Workers:            ptrInt(0),
		Verbose:            ptrBool(false),
	}
}

// LoadClusteringConfig loads and validates a ClusteringConfig from a JSON,
// YAML or TOML file. Optional keys omitted from the file fall back to their
// defaults through the Get* methods.
func LoadClusteringConfig(path string) (*ClusteringConfig, error) {
	return LoadClusteringConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadClusteringConfigFS is LoadClusteringConfig reading from fsys.
func LoadClusteringConfigFS(fsys fsutil.FileSystem, path string) (*ClusteringConfig, error) {
	cfg := EmptyClusteringConfig()
	if err := decodeFile(fsys, path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultClusteringConfig loads DefaultClusteringPath, searching the
// current directory and its parents. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultClusteringConfig() *ClusteringConfig {
	candidates := []string{
		DefaultClusteringPath,
		"../../" + DefaultClusteringPath,       // from internal/config/
		"../../../" + DefaultClusteringPath,    // from internal/calo/pipeline/
		"../../../../" + DefaultClusteringPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadClusteringConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultClusteringPath + " - run tests from repository root")
}

// Validate checks that required keys are present and that every value is
// accepted by the layer that consumes it.
func (c *ClusteringConfig) Validate() error {
	required := []struct {
		name string
		set  bool
	}{
		{"thresh_Seed_Barrel", c.ThreshSeedBarrel != nil},
		{"thresh_Seed_Endcap", c.ThreshSeedEndcap != nil},
		{"thresh_Barrel", c.ThreshBarrel != nil},
		{"thresh_Endcap", c.ThreshEndcap != nil},
		{"nNeighbours", c.NNeighbours != nil},
		{"showerSigma", c.ShowerSigma != nil},
		{"posCalcNCrystal", c.PosCalcNCrystal != nil},
		{"posCalcP1", c.PosCalcP1 != nil},
	}
	for _, r := range required {
		if !r.set {
			return zerr.With(ErrMissingParameter, "parameter", r.name)
		}
	}

	ec := c.EngineConfig()
	if err := ec.Seeds.Validate(); err != nil {
		return err
	}
	if err := ec.Topo.Validate(); err != nil {
		return err
	}
	if err := ec.Fit.Validate(); err != nil {
		return err
	}
	if err := ec.Depth.Validate(); err != nil {
		return err
	}
	if ec.Workers < 0 {
		return zerr.With(pipeline.ErrInvalidWorkers, "parameter", "workers")
	}
	return nil
}

// EngineConfig converts c to the engine's typed configuration.
func (c *ClusteringConfig) EngineConfig() pipeline.Config {
	return pipeline.Config{
		Seeds: l2seeds.Params{
			SeedBarrel:    c.GetThreshSeedBarrel(),
			SeedEndcap:    c.GetThreshSeedEndcap(),
			CleanBarrel:   c.GetThreshCleanBarrel(),
			CleanEndcap:   c.GetThreshCleanEndcap(),
			MinS4S1Barrel: c.GetMinS4S1Barrel(),
			MinS4S1Endcap: c.GetMinS4S1Endcap(),
		},
		Topo: l3topo.Params{
			CellBarrel: c.GetThreshBarrel(),
			CellEndcap: c.GetThreshEndcap(),
			MaxHops:    c.GetNNeighbours(),
		},
		Fit: l4fit.Params{
			ShowerSigma:     c.GetShowerSigma(),
			PosCalcNCrystal: c.GetPosCalcNCrystal(),
			PosCalcP1:       c.GetPosCalcP1(),
		},
		Depth: l5depth.Corrector{
			Mode:       l5depth.Mode(c.GetDepthCorMode()),
			A:          c.GetDepthCorA(),
			B:          c.GetDepthCorB(),
			APreshower: c.GetDepthCorAPreshower(),
			BPreshower: c.GetDepthCorBPreshower(),
		},
		Workers: c.GetWorkers(),
	}
}

func getFloat64(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// GetThreshSeedBarrel returns the thresh_Seed_Barrel value or the default.
func (c *ClusteringConfig) GetThreshSeedBarrel() float64 {
	return getFloat64(c.ThreshSeedBarrel, l2seeds.DefaultSeedThreshold)
}

// GetThreshSeedEndcap returns the thresh_Seed_Endcap value or the default.
func (c *ClusteringConfig) GetThreshSeedEndcap() float64 {
	return getFloat64(c.ThreshSeedEndcap, l2seeds.DefaultSeedThreshold)
}

// GetThreshCleanBarrel returns the thresh_Clean_Barrel value or the default.
func (c *ClusteringConfig) GetThreshCleanBarrel() float64 {
	return getFloat64(c.ThreshCleanBarrel, l2seeds.DefaultCleanThreshold)
}

// GetThreshCleanEndcap returns the thresh_Clean_Endcap value or the default.
func (c *ClusteringConfig) GetThreshCleanEndcap() float64 {
	return getFloat64(c.ThreshCleanEndcap, l2seeds.DefaultCleanThreshold)
}

// GetMinS4S1Barrel returns the minS4S1_Barrel value or the default.
func (c *ClusteringConfig) GetMinS4S1Barrel() float64 {
	return getFloat64(c.MinS4S1Barrel, l2seeds.DefaultMinS4S1)
}

// GetMinS4S1Endcap returns the minS4S1_Endcap value or the default.
func (c *ClusteringConfig) GetMinS4S1Endcap() float64 {
	return getFloat64(c.MinS4S1Endcap, l2seeds.DefaultMinS4S1)
}

// GetThreshBarrel returns the thresh_Barrel value or the default.
func (c *ClusteringConfig) GetThreshBarrel() float64 {
	return getFloat64(c.ThreshBarrel, l3topo.DefaultCellThreshold)
}

// GetThreshEndcap returns the thresh_Endcap value or the default.
func (c *ClusteringConfig) GetThreshEndcap() float64 {
	return getFloat64(c.ThreshEndcap, l3topo.DefaultCellThreshold)
}

// GetNNeighbours returns the nNeighbours value or the default.
func (c *ClusteringConfig) GetNNeighbours() int {
	return getInt(c.NNeighbours, l3topo.DefaultMaxHops)
}

// GetShowerSigma returns the showerSigma value or the default.
func (c *ClusteringConfig) GetShowerSigma() float64 {
	return getFloat64(c.ShowerSigma, l4fit.DefaultShowerSigma)
}

// GetPosCalcNCrystal returns the posCalcNCrystal value or the default.
func (c *ClusteringConfig) GetPosCalcNCrystal() int {
	return getInt(c.PosCalcNCrystal, l4fit.DefaultPosCalcNCrystal)
}

// GetPosCalcP1 returns the posCalcP1 value or the default.
func (c *ClusteringConfig) GetPosCalcP1() float64 {
	return getFloat64(c.PosCalcP1, l4fit.DefaultPosCalcP1)
}

// GetDepthCorMode returns the depthCor_Mode value or the default.
func (c *ClusteringConfig) GetDepthCorMode() int {
	return getInt(c.DepthCorMode, int(l5depth.ModeNone))
}

// GetDepthCorA returns the depthCor_A value or the default.
func (c *ClusteringConfig) GetDepthCorA() float64 {
	return getFloat64(c.DepthCorA, l5depth.DefaultA)
}

// GetDepthCorB returns the depthCor_B value or the default.
func (c *ClusteringConfig) GetDepthCorB() float64 {
	return getFloat64(c.DepthCorB, l5depth.DefaultB)
}

// GetDepthCorAPreshower returns the depthCor_A_preshower value or the default.
func (c *ClusteringConfig) GetDepthCorAPreshower() float64 {
	return getFloat64(c.DepthCorAPreshower, l5depth.DefaultAPreshower)
}

// GetDepthCorBPreshower returns the depthCor_B_preshower value or the default.
func (c *ClusteringConfig) GetDepthCorBPreshower() float64 {
	return getFloat64(c.DepthCorBPreshower, l5depth.DefaultBPreshower)
}

// GetWorkers returns the workers value or 0 (one per CPU).
func (c *ClusteringConfig) GetWorkers() int {
	return getInt(c.Workers, 0)
}

// GetVerbose returns the verbose value or false.
func (c *ClusteringConfig) GetVerbose() bool {
	return c.Verbose != nil && *c.Verbose
}
