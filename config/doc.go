// Package config sizes a registry's kind tables.
//
// Capacities are fixed at registry construction; there is no runtime
// resizing because the descriptor arrays the sizes mirror are themselves
// fixed on the GPU. Configuration comes from YAML:
//
//	textures:
//	  capacity: 512
//	  descriptor_capacity: 512
//	buffers:
//	  capacity: 256
//	  descriptor_capacity: 256
//	samplers:
//	  capacity: 64
//	  descriptor_capacity: 64
//
// Kinds omitted from the file take their Default sizing.
package config
