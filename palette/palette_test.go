package palette

import (
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// referenceIndex is a direct transcription of the distance rule: scan every
// entry and keep the first one with the smallest distance.
func referenceIndex(p Palette, r, g, b uint8) int {
	best, bestDist := -1, -1
	for i, c := range p {
		dr := int(r) - int(c.R)
		dg := int(g) - int(c.G)
		db := int(b) - int(c.B)
		d := dr*dr + dg*dg + db*db
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func TestPlaceIndex(t *testing.T) {
	p := Place()

	tests := []struct {
		name  string
		color color.Color
		want  int
	}{
		{"white", color.RGBA{255, 255, 255, 255}, 0},
		{"black is closest to dark grey", color.RGBA{0, 0, 0, 255}, 3},
		{"exact red", color.RGBA{229, 0, 0, 255}, 5},
		{"almost blue", color.RGBA{10, 10, 220, 255}, 13},
		{"light grey", color.RGBA{225, 225, 225, 255}, 1},
		{"gray16 white", color.Gray16{0xffff}, 0},
		{"purple", color.NRGBA{128, 2, 130, 255}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Index(tt.color))
		})
	}
}

func TestIndexMatchesReference(t *testing.T) {
	p := Place()
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		c := color.RGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 0xff}
		want := referenceIndex(p, c.R, c.G, c.B)
		if !assert.Equal(t, want, p.Index(c), "color %v", c) {
			return
		}
	}
}

func TestIndexTieBreaksOnLowestIndex(t *testing.T) {
	var p Palette
	for i := range p {
		p[i] = color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	p[4] = color.RGBA{0, 0, 0, 0xff}
	p[7] = color.RGBA{10, 0, 0, 0xff}
	p[9] = color.RGBA{0, 0, 0, 0xff}

	// Equidistant from entries 4 and 7
	assert.Equal(t, 4, p.Index(color.RGBA{5, 0, 0, 0xff}))
	// Duplicate entries
	assert.Equal(t, 4, p.Index(color.RGBA{0, 0, 0, 0xff}))
	// Every entry but three is white
	assert.Equal(t, 0, p.Index(color.RGBA{0xff, 0xff, 0xff, 0xff}))
}

func TestIndexIgnoresAlpha(t *testing.T) {
	p := Place()

	assert.Equal(t, 5, p.Index(color.NRGBA{229, 0, 0, 0x80}))
	assert.Equal(t, p.Index(color.NRGBA{0, 211, 211, 0xff}), p.Index(color.NRGBA{0, 211, 211, 0x01}))
}

func TestIndexIsDeterministic(t *testing.T) {
	p := Place()
	c := color.RGBA{120, 60, 200, 0xff}

	first := p.Index(c)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, p.Index(c))
	}
}

func TestConvert(t *testing.T) {
	p := Place()

	assert.Equal(t, color.RGBA{0x22, 0x22, 0x22, 0xff}, p.Convert(color.Black))
	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, p.Convert(color.White))
}

func TestPlaceReturnsCopy(t *testing.T) {
	p := Place()
	p[0] = color.RGBA{1, 2, 3, 0xff}

	assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, Place()[0])
}

func TestColors(t *testing.T) {
	cp := Place().Colors()

	assert.Len(t, cp, Size)
	assert.Equal(t, 3, cp.Index(color.Black))
}
