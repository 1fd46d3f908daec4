package registry

import (
	"github.com/tidegfx/bindless/config"
	"github.com/tidegfx/bindless/descriptor"
	"github.com/tidegfx/bindless/gpu"
	"github.com/tidegfx/bindless/handle"
)

// TextureTable is the texture-kind slot table.
type TextureTable = Table[gpu.TextureDesc, gpu.Texture]

// BufferTable is the buffer-kind slot table.
type BufferTable = Table[gpu.BufferDesc, gpu.Buffer]

// SamplerTable is the sampler-kind slot table.
type SamplerTable = Table[gpu.SamplerDesc, gpu.Sampler]

// Hooks for all three kinds, supplied by the owning engine. Each pair
// materializes/destroys the driver objects for one kind; the registry
// never calls a graphics API itself.
type RegistryHooks struct {
	Textures Hooks[gpu.TextureDesc, gpu.Texture]
	Buffers  Hooks[gpu.BufferDesc, gpu.Buffer]
	Samplers Hooks[gpu.SamplerDesc, gpu.Sampler]
}

// Registry owns the three kind tables of an engine's resource-lifetime
// layer. Tables are homogeneous (a texture handle means nothing to the
// buffer table) and independently sized by config.
type Registry struct {
	textures *TextureTable
	buffers  *BufferTable
	samplers *SamplerTable
}

// New builds a registry from a validated configuration. Per-kind bindless
// descriptor pools are created from each table's DescriptorCapacity; a
// zero capacity disables publication for that kind. Options apply to all
// three tables.
func New(cfg config.Config, hooks RegistryHooks, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	textures, err := NewTable(handle.Texture, cfg.Textures.Capacity, hooks.Textures,
		withPool(cfg.Textures.DescriptorCapacity, opts)...)
	if err != nil {
		return nil, err
	}
	buffers, err := NewTable(handle.Buffer, cfg.Buffers.Capacity, hooks.Buffers,
		withPool(cfg.Buffers.DescriptorCapacity, opts)...)
	if err != nil {
		return nil, err
	}
	samplers, err := NewTable(handle.Sampler, cfg.Samplers.Capacity, hooks.Samplers,
		withPool(cfg.Samplers.DescriptorCapacity, opts)...)
	if err != nil {
		return nil, err
	}

	return &Registry{
		textures: textures,
		buffers:  buffers,
		samplers: samplers,
	}, nil
}

func withPool(descriptorCapacity uint32, opts []Option) []Option {
	if descriptorCapacity == 0 {
		return opts
	}
	out := make([]Option, 0, len(opts)+1)
	out = append(out, WithDescriptorPool(descriptor.NewPool(descriptorCapacity)))
	return append(out, opts...)
}

// Textures returns the texture table.
func (r *Registry) Textures() *TextureTable {
	return r.textures
}

// Buffers returns the buffer table.
func (r *Registry) Buffers() *BufferTable {
	return r.buffers
}

// Samplers returns the sampler table.
func (r *Registry) Samplers() *SamplerTable {
	return r.samplers
}

// Close closes all three tables, destroying every live occupancy.
func (r *Registry) Close() error {
	if err := r.textures.Close(); err != nil {
		return err
	}
	if err := r.buffers.Close(); err != nil {
		return err
	}
	return r.samplers.Close()
}
