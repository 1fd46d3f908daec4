package gpu

// Opaque driver-object identifiers. These are whatever the graphics
// backend hands back for a created object (a Vulkan dispatchable handle,
// a Metal object id, a test fixture's counter). Zero is the null object.
type (
	Image        uint64
	ImageView    uint64
	DeviceMemory uint64
	BufferObject uint64
	SamplerState uint64
)

// Texture is the backing tuple for one texture occupancy: the image, its
// memory allocation, the shader-visible view, and an optional dedicated
// sampler for combined image samplers.
type Texture struct {
	Image   Image
	Memory  DeviceMemory
	View    ImageView
	Sampler SamplerState
}

// Buffer is the backing pair for one buffer occupancy.
type Buffer struct {
	Buffer BufferObject
	Memory DeviceMemory
}

// Sampler is the backing object for one sampler occupancy.
type Sampler struct {
	State SamplerState
}
