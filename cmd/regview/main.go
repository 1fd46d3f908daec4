// Command regview drives a bindless registry with a simulated graphics
// backend, either as a scripted stress run or as an interactive TUI
// showing live slot-table state.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tidegfx/bindless/config"
	"github.com/tidegfx/bindless/errors"
	"github.com/tidegfx/bindless/gpu"
	"github.com/tidegfx/bindless/handle"
	"github.com/tidegfx/bindless/registry"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Registry config YAML (defaults when empty)")
		allocRate   = flag.Float64("rate", 50, "Target allocations per second in stress mode")
		seed        = flag.Int64("seed", 0, "Random seed (0 means current time)")
		iterations  = flag.Int("n", 500, "Stress-mode operation count")
		failEvery   = flag.Int("fail-every", 0, "Make every Nth texture construction fail (0 disables)")
		verbose     = flag.Bool("v", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		registry.SetLogger(log)
	}

	if *interactive {
		if err := runInteractive(cfg, *failEvery); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runStress(cfg, *allocRate, *seed, *iterations, *failEvery); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// simBackend is a stand-in graphics driver: it hands out monotonically
// increasing object ids and counts lifecycle traffic. An optional failure
// cadence exercises the registry's construction rollback path.
type simBackend struct {
	nextID    atomic.Uint64
	creates   atomic.Uint64
	destroys  atomic.Uint64
	failEvery int
}

func (s *simBackend) id() uint64 {
	return s.nextID.Add(1)
}

func (s *simBackend) shouldFail() bool {
	if s.failEvery <= 0 {
		return false
	}
	return s.creates.Add(1)%uint64(s.failEvery) == 0
}

func (s *simBackend) hooks() registry.RegistryHooks {
	return registry.RegistryHooks{
		Textures: registry.Hooks[gpu.TextureDesc, gpu.Texture]{
			Construct: func(slot uint32, desc gpu.TextureDesc) (gpu.Texture, error) {
				if s.shouldFail() {
					return gpu.Texture{}, fmt.Errorf("simulated device-memory failure")
				}
				return gpu.Texture{
					Image:  gpu.Image(s.id()),
					Memory: gpu.DeviceMemory(s.id()),
					View:   gpu.ImageView(s.id()),
				}, nil
			},
			Destruct: func(slot uint32, obj gpu.Texture) { s.destroys.Add(1) },
		},
		Buffers: registry.Hooks[gpu.BufferDesc, gpu.Buffer]{
			Construct: func(slot uint32, desc gpu.BufferDesc) (gpu.Buffer, error) {
				return gpu.Buffer{
					Buffer: gpu.BufferObject(s.id()),
					Memory: gpu.DeviceMemory(s.id()),
				}, nil
			},
			Destruct: func(slot uint32, obj gpu.Buffer) { s.destroys.Add(1) },
		},
		Samplers: registry.Hooks[gpu.SamplerDesc, gpu.Sampler]{
			Construct: func(slot uint32, desc gpu.SamplerDesc) (gpu.Sampler, error) {
				return gpu.Sampler{State: gpu.SamplerState(s.id())}, nil
			},
			Destruct: func(slot uint32, obj gpu.Sampler) { s.destroys.Add(1) },
		},
	}
}

func randomTextureDesc(rng *rand.Rand) gpu.TextureDesc {
	sizes := []uint32{64, 128, 256, 512, 1024}
	return gpu.TextureDesc{
		Width:  sizes[rng.Intn(len(sizes))],
		Height: sizes[rng.Intn(len(sizes))],
		Format: gpu.FormatRGBA8,
		Usage:  gpu.TextureUsageSampled | gpu.TextureUsageTransferDst,
	}
}

func randomBufferDesc(rng *rand.Rand) gpu.BufferDesc {
	return gpu.BufferDesc{
		Size:  uint64(1) << (8 + rng.Intn(12)),
		Usage: gpu.BufferUsageStorage,
	}
}

type stressStats struct {
	allocs       int
	frees        int
	retains      int
	exhausted    int
	failedBuilds int
}

// runStress churns a registry with a random alloc/retain/release mix,
// paced by a rate limiter, then prints traffic and occupancy summaries.
func runStress(cfg config.Config, allocRate float64, seed int64, iterations, failEvery int) error {
	backend := &simBackend{failEvery: failEvery}

	var statsMu sync.Mutex
	stats := stressStats{}
	reg, err := registry.New(cfg, backend.hooks(), registry.WithObserver(func(e registry.Event) {
		statsMu.Lock()
		defer statsMu.Unlock()
		switch e.Type {
		case registry.EventAlloc:
			stats.allocs++
		case registry.EventRetain:
			stats.retains++
		case registry.EventFree:
			stats.frees++
		}
	}))
	if err != nil {
		return err
	}

	fmt.Printf("Stress run: %d ops, %.0f allocs/sec, seed %d\n\n", iterations, allocRate, seed)

	rng := rand.New(rand.NewSource(seed))
	limiter := rate.NewLimiter(rate.Limit(allocRate), 1)
	ctx := context.Background()

	var liveTextures []handle.Handle
	var liveBuffers []handle.Handle

	for i := 0; i < iterations; i++ {
		switch op := rng.Intn(10); {
		case op < 4: // texture alloc
			if waitErr := limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
			h, allocErr := reg.Textures().Alloc(randomTextureDesc(rng))
			switch {
			case allocErr == nil:
				liveTextures = append(liveTextures, h)
			case stderrors.Is(allocErr, errors.ErrExhausted):
				statsMu.Lock()
				stats.exhausted++
				statsMu.Unlock()
			case stderrors.Is(allocErr, errors.ErrConstructionFailed):
				statsMu.Lock()
				stats.failedBuilds++
				statsMu.Unlock()
			default:
				return allocErr
			}

		case op < 6: // buffer alloc
			if waitErr := limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
			h, allocErr := reg.Buffers().Alloc(randomBufferDesc(rng))
			switch {
			case allocErr == nil:
				liveBuffers = append(liveBuffers, h)
			case stderrors.Is(allocErr, errors.ErrExhausted):
				statsMu.Lock()
				stats.exhausted++
				statsMu.Unlock()
			default:
				return allocErr
			}

		case op < 8: // release a random texture
			if len(liveTextures) > 0 {
				j := rng.Intn(len(liveTextures))
				reg.Textures().Release(liveTextures[j])
				liveTextures = append(liveTextures[:j], liveTextures[j+1:]...)
			}

		case op < 9: // retain+release round trip on a random texture
			if len(liveTextures) > 0 {
				h := liveTextures[rng.Intn(len(liveTextures))]
				reg.Textures().Retain(h)
				reg.Textures().Release(h)
			}

		default: // release a random buffer
			if len(liveBuffers) > 0 {
				j := rng.Intn(len(liveBuffers))
				reg.Buffers().Release(liveBuffers[j])
				liveBuffers = append(liveBuffers[:j], liveBuffers[j+1:]...)
			}
		}
	}

	fmt.Printf("Occupancy before close:\n")
	printOccupancy(reg)

	if err := reg.Close(); err != nil {
		return err
	}

	statsMu.Lock()
	defer statsMu.Unlock()
	fmt.Printf("\nTraffic:\n")
	fmt.Printf("  allocs:              %d\n", stats.allocs)
	fmt.Printf("  retains:             %d\n", stats.retains)
	fmt.Printf("  frees:               %d\n", stats.frees)
	fmt.Printf("  exhausted:           %d\n", stats.exhausted)
	fmt.Printf("  failed constructs:   %d\n", stats.failedBuilds)
	fmt.Printf("  driver objects torn: %d\n", backend.destroys.Load())

	if stats.allocs != stats.frees {
		return fmt.Errorf("leak: %d allocs vs %d frees after Close", stats.allocs, stats.frees)
	}
	fmt.Printf("\nBalanced: every occupancy freed exactly once.\n")
	return nil
}

func printOccupancy(reg *registry.Registry) {
	fmt.Printf("  textures: %d/%d\n", reg.Textures().Len(), reg.Textures().Cap())
	fmt.Printf("  buffers:  %d/%d\n", reg.Buffers().Len(), reg.Buffers().Cap())
	fmt.Printf("  samplers: %d/%d\n", reg.Samplers().Len(), reg.Samplers().Cap())
}
