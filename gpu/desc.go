package gpu

import (
	"fmt"

	"github.com/tidegfx/bindless/errors"
)

// Format is a texel format for texture creation.
type Format uint32

const (
	FormatUndefined Format = iota
	FormatR8
	FormatRG8
	FormatRGBA8
	FormatRGBA8SRGB
	FormatRGBA16F
	FormatRGBA32F
	FormatBC7
	FormatDepth32F
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatR8:
		return "r8"
	case FormatRG8:
		return "rg8"
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA8SRGB:
		return "rgba8-srgb"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatRGBA32F:
		return "rgba32f"
	case FormatBC7:
		return "bc7"
	case FormatDepth32F:
		return "depth32f"
	default:
		return fmt.Sprintf("format(%d)", uint32(f))
	}
}

// TextureUsage is a bitmask of how a texture will be used.
type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageRenderTarget
	TextureUsageDepthStencil
	TextureUsageTransferSrc
	TextureUsageTransferDst
)

// BufferUsage is a bitmask of how a buffer will be used.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

// Filter selects a sampler's minification/magnification filtering.
type Filter uint32

const (
	FilterNearest Filter = iota
	FilterLinear
)

// AddressMode selects how a sampler resolves out-of-range coordinates.
type AddressMode uint32

const (
	AddressRepeat AddressMode = iota
	AddressMirroredRepeat
	AddressClampToEdge
	AddressClampToBorder
)

// TextureDesc describes a texture to create. The zero value is empty and
// fails validation.
type TextureDesc struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    Format
	Usage     TextureUsage
}

// Validate reports whether the descriptor describes a creatable texture.
func (d TextureDesc) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return errors.InvalidArgument(errors.OpAlloc, "texture",
			fmt.Sprintf("empty extent %dx%d", d.Width, d.Height))
	}
	if d.Format == FormatUndefined {
		return errors.InvalidArgument(errors.OpAlloc, "texture", "undefined format")
	}
	if d.Usage == 0 {
		return errors.InvalidArgument(errors.OpAlloc, "texture", "no usage flags")
	}
	return nil
}

// BufferDesc describes a buffer to create. The zero value is empty and
// fails validation.
type BufferDesc struct {
	Size  uint64
	Usage BufferUsage
}

// Validate reports whether the descriptor describes a creatable buffer.
func (d BufferDesc) Validate() error {
	if d.Size == 0 {
		return errors.InvalidArgument(errors.OpAlloc, "buffer", "zero size")
	}
	if d.Usage == 0 {
		return errors.InvalidArgument(errors.OpAlloc, "buffer", "no usage flags")
	}
	return nil
}

// SamplerDesc describes a sampler to create. All-default filtering with
// repeat addressing is legitimate, so unlike textures and buffers the zero
// value is valid except for a nonsensical anisotropy setting.
type SamplerDesc struct {
	MinFilter     Filter
	MagFilter     Filter
	AddressMode   AddressMode
	MaxAnisotropy uint32 // 0 disables anisotropic filtering
}

// Validate reports whether the descriptor describes a creatable sampler.
func (d SamplerDesc) Validate() error {
	if d.MaxAnisotropy > 16 {
		return errors.InvalidArgument(errors.OpAlloc, "sampler",
			fmt.Sprintf("max anisotropy %d exceeds 16", d.MaxAnisotropy))
	}
	return nil
}
