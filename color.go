package quadbatch

import (
	"fmt"
	"image/color"
	"strconv"
)

// Color is a premultiplied RGBA color packed as four unorm8 bytes in
// memory order R, G, B, A. It is written to vertices unchanged.
type Color uint32

// Common colors.
const (
	Transparent Color = 0
	White       Color = 0xffffffff
	Black       Color = 0xff000000
)

// PackRGBA packs premultiplied 8-bit components.
func PackRGBA(r, g, b, a uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

// FromColor converts any color.Color to a packed premultiplied Color.
func FromColor(c color.Color) Color {
	r, g, b, a := c.RGBA()
	return PackRGBA(uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
}

// Hex parses an unpremultiplied "RGB", "RGBA", "RRGGBB" or "RRGGBBAA"
// string, with an optional leading '#', and premultiplies it.
func Hex(hex string) (Color, error) {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}
	var digits, scale int
	switch len(hex) {
	case 3, 4:
		digits, scale = 1, 17
	case 6, 8:
		digits, scale = 2, 1
	default:
		return Transparent, fmt.Errorf("quadbatch: invalid hex color %q", hex)
	}
	c := color.NRGBA{A: 255}
	dst := []*uint8{&c.R, &c.G, &c.B, &c.A}
	for i := 0; i*digits < len(hex); i++ {
		v, err := strconv.ParseUint(hex[i*digits:(i+1)*digits], 16, 8)
		if err != nil {
			return Transparent, fmt.Errorf("quadbatch: invalid hex color %q: %w", hex, err)
		}
		*dst[i] = uint8(int(v) * scale)
	}
	return FromColor(c), nil
}

// R returns the red component.
func (c Color) R() uint8 { return uint8(c) }

// G returns the green component.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue component.
func (c Color) B() uint8 { return uint8(c >> 16) }

// A returns the alpha component.
func (c Color) A() uint8 { return uint8(c >> 24) }

// RGBA implements color.Color. Components are already premultiplied.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}.RGBA()
}

func (c Color) String() string {
	return fmt.Sprintf("0x%08x", uint32(c))
}
