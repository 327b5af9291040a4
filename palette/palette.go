/*
Package palette implements the fixed color palette of the r/place canvas and
the quantization of arbitrary images onto it.

The canvas accepts exactly 16 colors, each identified by its index. A source
pixel is mapped to the entry with the smallest squared Euclidean distance in
8-bit RGB space, with no weighting and no color space conversion. When two or
more entries are equally close the lowest index wins. Pixels that are not
fully opaque can be marked Transparent so that they are never placed.
*/
package palette

import "image/color"

const (
	// Size is the number of colors available on the canvas
	Size = 16

	// Transparent marks a cell that must not be placed
	Transparent = -1
)

// Palette is an ordered set of canvas colors. The position of a color is the
// index exchanged with the remote API. Palette implements color.Model.
type Palette [Size]color.RGBA

var place = Palette{
	{0xff, 0xff, 0xff, 0xff},
	{0xe4, 0xe4, 0xe4, 0xff},
	{0x88, 0x88, 0x88, 0xff},
	{0x22, 0x22, 0x22, 0xff},
	{0xff, 0xa7, 0xd1, 0xff},
	{0xe5, 0x00, 0x00, 0xff},
	{0xe5, 0x95, 0x00, 0xff},
	{0xa0, 0x6a, 0x42, 0xff},
	{0xe5, 0xd9, 0x00, 0xff},
	{0x94, 0xe0, 0x44, 0xff},
	{0x02, 0xbe, 0x01, 0xff},
	{0x00, 0xd3, 0xd3, 0xff},
	{0x00, 0x83, 0xc7, 0xff},
	{0x00, 0x00, 0xea, 0xff},
	{0xcf, 0x6e, 0xe4, 0xff},
	{0x82, 0x00, 0x80, 0xff},
}

// Place returns the r/place palette. Each call returns a copy.
func Place() Palette {
	return place
}

// Copied from color.sqDiff but working on 8-bit components
func sqDiff(x, y uint8) uint32 {
	d := int32(x) - int32(y)
	return uint32(d * d)
}

func (p Palette) index(r, g, b uint8) int {
	ret, bestSum := 0, uint32(1<<32-1)
	for i, v := range p {
		sum := sqDiff(r, v.R) + sqDiff(g, v.G) + sqDiff(b, v.B)
		if sum < bestSum {
			if sum == 0 {
				return i
			}
			ret, bestSum = i, sum
		}
	}
	return ret
}

// Index returns the index of the palette color closest to c. The alpha
// channel of c is ignored.
func (p Palette) Index(c color.Color) int {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return p.index(n.R, n.G, n.B)
}

// Convert returns the palette color closest to c.
func (p Palette) Convert(c color.Color) color.Color {
	return p[p.Index(c)]
}

// Colors returns the palette as a color.Palette, suitable for building an
// image.Paletted.
func (p Palette) Colors() color.Palette {
	cp := make(color.Palette, 0, Size)
	for _, c := range p {
		cp = append(cp, c)
	}
	return cp
}

var _ color.Model = Palette{}
