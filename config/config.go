package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tidegfx/bindless/errors"
)

// Hard upper bounds per kind. These match common bindless descriptor-array
// sizing on desktop drivers; a registry never grows past them.
const (
	MaxTextures = 1024
	MaxBuffers  = 1024
	MaxSamplers = 256
)

// TableConfig sizes one kind table.
type TableConfig struct {
	// Capacity is the fixed slot count, set once at registry construction.
	Capacity uint32 `yaml:"capacity"`

	// DescriptorCapacity sizes the bindless descriptor pool for this kind.
	// 0 disables bindless publication: occupancies are created without a
	// descriptor slot and DescriptorSlot reports none.
	DescriptorCapacity uint32 `yaml:"descriptor_capacity"`
}

// Config holds the per-kind table sizes for a registry.
type Config struct {
	Textures TableConfig `yaml:"textures"`
	Buffers  TableConfig `yaml:"buffers"`
	Samplers TableConfig `yaml:"samplers"`
}

// Default returns the stock configuration: every kind sized to its hard
// bound with full bindless coverage.
func Default() Config {
	return Config{
		Textures: TableConfig{Capacity: MaxTextures, DescriptorCapacity: MaxTextures},
		Buffers:  TableConfig{Capacity: MaxBuffers, DescriptorCapacity: MaxBuffers},
		Samplers: TableConfig{Capacity: MaxSamplers, DescriptorCapacity: MaxSamplers},
	}
}

// Load reads a YAML configuration file. Omitted kinds fall back to
// Default; the result is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.InvalidConfig("read %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, fills omitted kinds from
// Default, and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.InvalidConfig("parse config: %v", err)
	}

	def := Default()
	if cfg.Textures == (TableConfig{}) {
		cfg.Textures = def.Textures
	}
	if cfg.Buffers == (TableConfig{}) {
		cfg.Buffers = def.Buffers
	}
	if cfg.Samplers == (TableConfig{}) {
		cfg.Samplers = def.Samplers
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every table size against its hard bound.
func (c Config) Validate() error {
	if err := c.Textures.validate("textures", MaxTextures); err != nil {
		return err
	}
	if err := c.Buffers.validate("buffers", MaxBuffers); err != nil {
		return err
	}
	return c.Samplers.validate("samplers", MaxSamplers)
}

func (t TableConfig) validate(name string, max uint32) error {
	if t.Capacity == 0 {
		return errors.InvalidConfig("%s: capacity must be at least 1", name)
	}
	if t.Capacity > max {
		return errors.InvalidConfig("%s: capacity %d exceeds bound %d", name, t.Capacity, max)
	}
	if t.DescriptorCapacity > max {
		return errors.InvalidConfig("%s: descriptor capacity %d exceeds bound %d", name, t.DescriptorCapacity, max)
	}
	return nil
}
