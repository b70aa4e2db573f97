// Package led turns LED requests into firmware wire commands.
package led

import (
	"fmt"
	"strconv"
	"strings"

	"led-service/internal/model"
)

// palette holds the named colors accepted in place of an r,g,b triple
var palette = map[string]model.RgbColor{
	"red":    {R: 255, G: 0, B: 0},
	"green":  {R: 0, G: 255, B: 0},
	"blue":   {R: 0, G: 0, B: 255},
	"yellow": {R: 255, G: 255, B: 0},
	"purple": {R: 128, G: 0, B: 128},
	"cyan":   {R: 0, G: 255, B: 255},
	"white":  {R: 255, G: 255, B: 255},
}

// PaletteNames returns the accepted color names
func PaletteNames() []string {
	return []string{"red", "green", "blue", "yellow", "purple", "cyan", "white"}
}

// ParseColor resolves a palette name (case-insensitive) or a literal
// "r,g,b" triple. Whitespace, signs and decimals are rejected.
func ParseColor(spec string) (model.RgbColor, error) {
	if c, ok := palette[strings.ToLower(spec)]; ok {
		return c, nil
	}

	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return model.RgbColor{}, invalidColor(spec)
	}

	var channels [3]uint8
	for i, part := range parts {
		v, ok := parseChannel(part)
		if !ok {
			return model.RgbColor{}, invalidColor(spec)
		}
		channels[i] = v
	}

	return model.RgbColor{R: channels[0], G: channels[1], B: channels[2]}, nil
}

func parseChannel(s string) (uint8, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > 255 {
		return 0, false
	}
	return uint8(n), true
}

func invalidColor(spec string) error {
	return fmt.Errorf("%w: '%s' (use a color name like %s or r,g,b with values 0-255)",
		model.ErrInvalidColor, spec, strings.Join(PaletteNames(), ", "))
}
