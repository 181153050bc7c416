package chart

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseColor converts a CSS "#rrggbb" or "rgba(r, g, b, a)" string.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) != 6 {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil

	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[len("rgba("):len(s)-1], ",")
		if len(parts) != 4 {
			return color.NRGBA{}, fmt.Errorf("invalid rgba color %q", s)
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			c, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, 8)
			if err != nil {
				return color.NRGBA{}, fmt.Errorf("invalid rgba component in %q: %w", s, err)
			}
			rgb[i] = uint8(c)
		}
		alpha, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || alpha < 0 || alpha > 1 {
			return color.NRGBA{}, fmt.Errorf("invalid rgba alpha in %q", s)
		}
		return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: uint8(alpha*255 + 0.5)}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unsupported color format %q", s)
}
