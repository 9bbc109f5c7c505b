package quicklook

import (
	"image/color"
	"math"
	"sort"
)

// Palette maps values to colours through discrete levels: a value between
// Levels[i] and Levels[i+1] gets Colors[i]. Values outside the levels take
// the first or last colour.
type Palette struct {
	Levels []float64
	Colors []color.NRGBA
}

// Color returns the colour of v.
func (p Palette) Color(v float64) color.NRGBA {
	if len(p.Colors) == 0 {
		return color.NRGBA{}
	}
	i := sort.Search(len(p.Levels), func(j int) bool { return p.Levels[j] > v }) - 1
	return p.Colors[max(0, min(i, len(p.Colors)-1))]
}

// Steps returns the levels from lo to hi every step, hi included when it
// falls on a step.
func Steps(lo, hi, step float64) []float64 {
	var levels []float64
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	for i := 0; i < n; i++ {
		levels = append(levels, lo+float64(i)*step)
	}
	return levels
}

// GreyReversed returns a palette going from white at the lowest level to
// black at the highest. Cold cloud tops, the lowest brightness temperatures,
// come out white.
func GreyReversed(levels []float64) Palette {
	return sample(levels, func(x float64) color.NRGBA {
		g := uint8(math.Round(255 * (1 - x)))
		return color.NRGBA{g, g, g, 255}
	})
}

// Rainbow returns a palette running from purple through blue, green and
// yellow to red.
func Rainbow(levels []float64) Palette {
	return sample(levels, func(x float64) color.NRGBA {
		r := math.Abs(2*x - 1)
		g := math.Sin(math.Pi * x)
		b := math.Cos(math.Pi * x / 2)
		return color.NRGBA{channel(r), channel(g), channel(b), 255}
	})
}

// BrightnessTemperature is the palette of infrared window brightness
// temperature, 5 K levels over [lo, hi].
func BrightnessTemperature(lo, hi float64) Palette {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		lo, hi = 180, 320
	}
	lo, hi = math.Floor(lo/5)*5, math.Ceil(hi/5)*5
	if hi <= lo {
		hi = lo + 5
	}
	return GreyReversed(Steps(lo, hi, 5))
}

// Precipitation is the palette of precipitation rates, 0.05 mm/hr levels
// over [0, 3].
func Precipitation() Palette {
	return Rainbow(Steps(0, 3, 0.05))
}

func sample(levels []float64, cmap func(float64) color.NRGBA) Palette {
	p := Palette{Levels: levels}
	n := len(levels) - 1
	for i := 0; i < n; i++ {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1)
		}
		p.Colors = append(p.Colors, cmap(x))
	}
	return p
}

func channel(x float64) uint8 {
	return uint8(math.Round(255 * math.Max(0, math.Min(1, x))))
}
