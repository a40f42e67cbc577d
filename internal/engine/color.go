package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tartampluch/go-huddle/internal/config"
)

// RGB is an opaque display color.
type RGB struct {
	R, G, B uint8
}

// String renders the CSS functional notation, e.g. "rgb(165, 220, 165)".
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseHex parses "#rrggbb" (the leading '#' is optional).
func ParseHex(s string) (RGB, error) {
	var c RGB
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return c, fmt.Errorf("invalid hex color %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, nil
}

func rgbOf(v [3]uint8) RGB {
	return RGB{R: v[0], G: v[1], B: v[2]}
}

// Palette assigns a color to each countable status.
type Palette struct {
	Available    RGB
	NotAvailable RGB
	Tentative    RGB
}

// DefaultPalette is green / red / yellow.
var DefaultPalette = Palette{
	Available:    rgbOf(config.ColorAvailable),
	NotAvailable: rgbOf(config.ColorNotAvailable),
	Tentative:    rgbOf(config.ColorTentative),
}

// PaletteFromSettings overlays the configured hex colors on DefaultPalette.
// Invalid entries keep the default and are reported in the returned error.
func PaletteFromSettings(s config.PaletteSettings) (Palette, error) {
	p := DefaultPalette
	var errs []string
	apply := func(dst *RGB, hex string) {
		if hex == "" {
			return
		}
		c, err := ParseHex(hex)
		if err != nil {
			errs = append(errs, err.Error())
			return
		}
		*dst = c
	}
	apply(&p.Available, s.Available)
	apply(&p.NotAvailable, s.NotAvailable)
	apply(&p.Tentative, s.Tentative)
	if len(errs) > 0 {
		return p, fmt.Errorf("palette: %s", strings.Join(errs, "; "))
	}
	return p, nil
}

// Color returns the palette color of s. StatusUnknown has no color.
func (p Palette) Color(s Status) (RGB, bool) {
	switch s {
	case Available:
		return p.Available, true
	case NotAvailable:
		return p.NotAvailable, true
	case Tentative:
		return p.Tentative, true
	default:
		return RGB{}, false
	}
}

// StyleKind discriminates Style.
type StyleKind uint8

const (
	StyleNone StyleKind = iota
	StyleSolid
	StyleGradient
)

func (k StyleKind) String() string {
	switch k {
	case StyleSolid:
		return "solid"
	case StyleGradient:
		return "gradient"
	default:
		return "none"
	}
}

// GradientStop is one contiguous colored band of a left-to-right gradient.
// Start and End are percentages.
type GradientStop struct {
	Status Status  `json:"status"`
	Color  RGB     `json:"color"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// Style is the background of one calendar day.
type Style struct {
	Kind  StyleKind
	Solid RGB
	Stops []GradientStop
}

// gradientOrder puts conflict first so adjacent cells compare at a glance.
var gradientOrder = [...]Status{NotAvailable, Tentative, Available}

// ColorFor composites t with DefaultPalette.
func ColorFor(t DateTally) Style {
	return DefaultPalette.ColorFor(t)
}

// ColorFor maps a tally to a Style:
// no votes -> none, a unanimous status -> solid, otherwise a gradient in the
// order not available, tentative, available where each status spans its share.
func (p Palette) ColorFor(t DateTally) Style {
	total := t.Total()
	if total == 0 {
		return Style{Kind: StyleNone}
	}

	for _, s := range gradientOrder {
		if t.Count(s) == total {
			c, _ := p.Color(s)
			return Style{Kind: StyleSolid, Solid: c}
		}
	}

	stops := make([]GradientStop, 0, len(gradientOrder))
	offset := 0.0
	for _, s := range gradientOrder {
		n := t.Count(s)
		if n == 0 {
			continue
		}
		pct := float64(n) / float64(total) * 100
		c, _ := p.Color(s)
		stops = append(stops, GradientStop{Status: s, Color: c, Start: offset, End: offset + pct})
		offset += pct
	}
	return Style{Kind: StyleGradient, Stops: stops}
}

// CSS renders the style as a CSS background value ("" for StyleNone).
func (s Style) CSS() string {
	switch s.Kind {
	case StyleSolid:
		return s.Solid.String()
	case StyleGradient:
		parts := make([]string, 0, len(s.Stops))
		for _, st := range s.Stops {
			parts = append(parts, fmt.Sprintf("%s %s%% %s%%", st.Color, trimFloat(st.Start), trimFloat(st.End)))
		}
		return "linear-gradient(to right, " + strings.Join(parts, ", ") + ")"
	default:
		return ""
	}
}

type styleJSON struct {
	Kind  string         `json:"kind"`
	Color *RGB           `json:"color,omitempty"`
	Stops []GradientStop `json:"stops,omitempty"`
	CSS   string         `json:"css,omitempty"`
}

func (s Style) MarshalJSON() ([]byte, error) {
	out := styleJSON{Kind: s.Kind.String(), Stops: s.Stops, CSS: s.CSS()}
	if s.Kind == StyleSolid {
		c := s.Solid
		out.Color = &c
	}
	return json.Marshal(out)
}

func trimFloat(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
