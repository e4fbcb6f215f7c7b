package light

// Color is an 8-bit RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Pixel is one LED: a colour and a brightness in [0, 1].
type Pixel struct {
	Color
	Brightness float64 `json:"brightness"`
}

// Lit reports whether the pixel emits any light.
func (p Pixel) Lit() bool {
	return p.Brightness > 0 && (p.R > 0 || p.G > 0 || p.B > 0)
}

// Frame holds one Pixel per LED, index 0 first.
type Frame []Pixel

// WarmWhite is the colour used for manual light and the alarm ramp.
var WarmWhite = Color{R: 255, G: 200, B: 15}

// RainbowColors are shown one pixel at a time by the connect greeting.
var RainbowColors = [...]Color{
	{R: 255, G: 0, B: 0},
	{R: 255, G: 127, B: 0},
	{R: 255, G: 255, B: 0},
	{R: 0, G: 255, B: 0},
	{R: 0, G: 0, B: 255},
	{R: 39, G: 0, B: 51},
	{R: 139, G: 0, B: 255},
	{R: 255, G: 255, B: 255},
}

// Solid returns an n-pixel frame with every pixel set to c at brightness.
func Solid(n int, c Color, brightness float64) Frame {
	f := make(Frame, n)
	for i := range f {
		f[i] = Pixel{Color: c, Brightness: clamp(brightness)}
	}
	return f
}

// Blank returns an n-pixel frame with every pixel off.
func Blank(n int) Frame {
	return make(Frame, n)
}

// Single returns an n-pixel frame with only pixel i lit. An out of range
// index yields a blank frame.
func Single(n, i int, c Color, brightness float64) Frame {
	f := Blank(n)
	if i >= 0 && i < n {
		f[i] = Pixel{Color: c, Brightness: clamp(brightness)}
	}
	return f
}

// Lit reports whether any pixel in the frame emits light.
func (f Frame) Lit() bool {
	for _, p := range f {
		if p.Lit() {
			return true
		}
	}
	return false
}

// Equal reports whether f and other describe the same output.
func (f Frame) Equal(other Frame) bool {
	if len(f) != len(other) {
		return false
	}
	for i := range f {
		if f[i] != other[i] {
			return false
		}
	}
	return true
}

func clamp(b float64) float64 {
	switch {
	case b < 0:
		return 0
	case b > 1:
		return 1
	default:
		return b
	}
}
