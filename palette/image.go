package palette

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
)

// Image is a grid of palette indices built from a source image. Cells are
// stored row by row from the top-left corner and hold either an index into
// the palette used to build the image or Transparent. An Image never changes
// once built.
type Image struct {
	width  int
	height int
	pix    []int
}

// Quantize maps every pixel of m to its closest color in p. If alpha is true
// any pixel that is not fully opaque becomes Transparent instead. The result
// always starts at (0, 0) regardless of the bounds of m.
func Quantize(m image.Image, p Palette, alpha bool) *Image {
	b := m.Bounds()
	q := &Image{
		width:  b.Dx(),
		height: b.Dy(),
		pix:    make([]int, b.Dx()*b.Dy()),
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			i := (y-b.Min.Y)*q.width + (x - b.Min.X)
			if alpha && c.A != 0xff {
				q.pix[i] = Transparent
				continue
			}
			q.pix[i] = p.index(c.R, c.G, c.B)
		}
	}
	return q
}

// Width returns the number of columns
func (q *Image) Width() int {
	return q.width
}

// Height returns the number of rows
func (q *Image) Height() int {
	return q.height
}

// Bounds returns the rectangle covered by the image, always anchored at the
// origin.
func (q *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, q.width, q.height)
}

// At returns the palette index at (x, y). Coordinates outside the image are
// reported as Transparent.
func (q *Image) At(x, y int) int {
	if x < 0 || y < 0 || x >= q.width || y >= q.height {
		return Transparent
	}
	return q.pix[y*q.width+x]
}

// Rows returns a copy of the cells, one slice per row.
func (q *Image) Rows() [][]int {
	rows := make([][]int, q.height)
	for y := range rows {
		rows[y] = append([]int(nil), q.pix[y*q.width:(y+1)*q.width]...)
	}
	return rows
}

// Opaque returns the number of cells that are not Transparent.
func (q *Image) Opaque() int {
	var n int
	for _, i := range q.pix {
		if i != Transparent {
			n++
		}
	}
	return n
}

// Histogram counts how many cells use each palette index.
func (q *Image) Histogram() [Size]int {
	var h [Size]int
	for _, i := range q.pix {
		if i != Transparent {
			h[i]++
		}
	}
	return h
}

// Paletted renders the image using the colors of p. Transparent cells use an
// extra, fully transparent, palette entry.
func (q *Image) Paletted(p Palette) *image.Paletted {
	cp := append(p.Colors(), color.Transparent)
	m := image.NewPaletted(q.Bounds(), cp)
	for y := 0; y < q.height; y++ {
		for x := 0; x < q.width; x++ {
			i := q.pix[y*q.width+x]
			if i == Transparent {
				i = Size
			}
			m.SetColorIndex(x, y, uint8(i))
		}
	}
	return m
}

// Dominant returns up to n colors that best represent m, computed with a
// median cut quantizer. It is used to explain how an image will look once
// reduced to the canvas palette.
func Dominant(m image.Image, n int) color.Palette {
	if n <= 0 {
		n = Size
	}
	q := quantize.MedianCutQuantizer{}
	return q.Quantize(make(color.Palette, 0, n), m)
}
