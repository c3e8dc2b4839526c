// Command quadbatch-demo records random textured-quad draws, flushes them
// through a backend and reports how they were batched.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"sort"

	"golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch"
	"github.com/gogpu/quadbatch/backend"
	"github.com/gogpu/quadbatch/backend/wgpu"
	"github.com/gogpu/quadbatch/geom"
	"github.com/gogpu/quadbatch/oplist"
)

func main() {
	var (
		backendName = flag.String("backend", backend.BackendMemory, "backend: memory or wgpu (noop device)")
		textures    = flag.Int("textures", 6, "number of distinct textures")
		draws       = flag.Int("draws", 200, "number of quads to draw")
		aa          = flag.String("aa", "none", "anti-aliasing: none, coverage or msaa")
		perspective = flag.Bool("perspective", false, "draw some quads with a perspective matrix")
		seed        = flag.Uint64("seed", 1, "random seed")
		maxTextures = flag.Int("max-textures", quadbatch.DefaultMaxTextures, "textures per batch")
		threshold   = flag.Int("threshold", quadbatch.DefaultMultitextureAreaThreshold, "largest quad area eligible for multitexturing")
		validate    = flag.Bool("validate", false, "compile every variant used to SPIR-V")
		verbose     = flag.Bool("v", false, "log merge decisions")
	)
	flag.Parse()

	if *verbose {
		quadbatch.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	aaType, err := parseAA(*aa)
	if err != nil {
		log.Fatal(err)
	}

	caps := quadbatch.NewCaps(
		quadbatch.WithMaxTextures(*maxTextures),
		quadbatch.WithMultitextureAreaThreshold(*threshold),
	)
	b, stats, err := openBackend(*backendName, caps)
	if err != nil {
		log.Fatalf("open backend: %v", err)
	}
	defer b.Close()

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	pp := quadbatch.NewProxyProvider(0)
	defer pp.Purge()
	proxies := make([]*quadbatch.TextureProxy, max(*textures, 1))
	for i := range proxies {
		size := 16 << rng.IntN(4)
		proxies[i] = pp.FindOrCreate(fmt.Sprintf("checker_%d", i), quadbatch.ProxyDesc{
			Width: size, Height: size,
			Format: gputypes.TextureFormatRGBA8Unorm,
			Origin: quadbatch.Origin(rng.IntN(2)),
		})
		if u, ok := b.(uploader); ok {
			if err := u.Upload(proxies[i], checkerboard(size, rng)); err != nil {
				log.Fatalf("upload texture %d: %v", i, err)
			}
		}
	}

	list := oplist.New(oplist.Config{MaxLookback: oplist.DefaultMaxLookback, Caps: caps})
	for range *draws {
		key := fmt.Sprintf("checker_%d", rng.IntN(len(proxies)))
		p, ok := pp.Find(key)
		if !ok {
			log.Fatalf("texture %s evicted", key)
		}
		d := quadbatch.TextureDraw{
			Proxy:   p,
			Filter:  quadbatch.Filter(rng.IntN(2)),
			Color:   quadbatch.PackRGBA(255, 255, 255, uint8(128+rng.IntN(128))),
			SrcRect: geom.LTRB(0, 0, float32(p.Width()), float32(p.Height())),
			DstRect: geom.XYWH(rng.Float32()*760, rng.Float32()*560, 8+rng.Float32()*64, 8+rng.Float32()*64),
			AA:      aaType,
		}
		if *perspective && rng.IntN(4) == 0 {
			d.ViewMatrix = geom.Identity()
			d.ViewMatrix[6] = 0.0005
		}
		list.Record(quadbatch.NewOp(d))
		p.Unref()
	}
	for _, p := range proxies {
		p.Unref()
	}

	cmds := list.Flush(b)
	variants := make(map[quadbatch.VariantKey]int)
	for _, c := range cmds {
		variants[c.Variant.Key]++
	}
	if err := b.Execute(cmds); err != nil {
		list.Done()
		log.Fatalf("execute: %v", err)
	}
	list.Done()

	s := list.Stats()
	fmt.Printf("backend:   %s\n", b.Name())
	fmt.Printf("recorded:  %d ops (%d merged)\n", s.Recorded, s.Merged)
	fmt.Printf("commands:  %d (%d skipped)\n", s.Flushed, s.Skipped)
	fmt.Printf("draw calls: %d\n", stats())

	keys := make([]quadbatch.VariantKey, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		fmt.Printf("  %-48v %d\n", k, variants[k])
		if *validate {
			if _, err := wgpu.CompileVariant(k); err != nil {
				log.Fatalf("validate %v: %v", k, err)
			}
		}
	}
}

type uploader interface {
	Upload(p *quadbatch.TextureProxy, texels []byte) error
}

// openBackend returns an initialized backend and a function reporting the
// draw calls it issued.
func openBackend(name string, caps quadbatch.Caps) (backend.Backend, func() int, error) {
	switch name {
	case backend.BackendMemory:
		b := backend.NewMemoryBackend(func(c *quadbatch.Caps) { *c = caps })
		if err := b.Init(); err != nil {
			return nil, nil, err
		}
		return b, func() int { return b.Stats().DrawCalls }, nil
	case backend.BackendWGPU:
		cfg := wgpu.DefaultConfig()
		cfg.Caps = caps
		b, err := wgpu.NewNoop(cfg)
		if err != nil {
			return nil, nil, err
		}
		return b, func() int { return b.Stats().DrawCalls }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", backend.ErrBackendNotAvailable, name)
	}
}

func parseAA(s string) (quadbatch.AAType, error) {
	for _, a := range []quadbatch.AAType{quadbatch.AANone, quadbatch.AACoverage, quadbatch.AAMSAA} {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown anti-aliasing mode %q", s)
}

// checkerboard returns size x size RGBA texels: an 8x8 checker scaled up
// with bilinear filtering.
func checkerboard(size int, rng *rand.Rand) []byte {
	fg := color.RGBA{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 255}
	small := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			if (x+y)%2 == 0 {
				small.SetRGBA(x, y, fg)
			} else {
				small.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)
	return dst.Pix
}
