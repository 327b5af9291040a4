package rplace

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(x, y, color.NRGBA{uint8(x * 16), uint8(y * 16), 0x80, 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, m))
	return buf.Bytes()
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, ioutil.WriteFile(file, encodePNG(t, 5, 3), 0644))

	m, err := Open(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 3), m.Bounds())
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, ioutil.WriteFile(garbage, []byte("not an image"), 0644))

	tables := []struct {
		name string
		path string
		kind SourceErrorKind
	}{
		{"missing", filepath.Join(dir, "missing.png"), IOError},
		{"garbage", garbage, FormatError},
	}

	for _, table := range tables {
		table := table
		t.Run(table.name, func(t *testing.T) {
			t.Parallel()

			_, err := Open(context.Background(), table.path)
			require.Error(t, err)

			var se *SourceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, table.kind, se.Kind)
			assert.Equal(t, table.path, se.Path)
			assert.Equal(t, table.kind == FormatError, IsFormatError(err))
		})
	}
}

func TestOpenURL(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, 2, 7)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/image.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer ts.Close()

	m, err := Open(context.Background(), ts.URL+"/image.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 7), m.Bounds())

	_, err = Open(context.Background(), ts.URL+"/missing.png")
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, IOError, se.Kind)
}

func TestPreprocess(t *testing.T) {
	t.Parallel()

	m, err := png.Decode(bytes.NewReader(encodePNG(t, 16, 8)))
	require.NoError(t, err)

	t.Run("zero value", func(t *testing.T) {
		assert.Equal(t, m, Preprocess(m, Adjustments{}))
	})

	t.Run("no upscaling", func(t *testing.T) {
		out := Preprocess(m, Adjustments{Width: 100, Height: 100})
		assert.Equal(t, m.Bounds(), out.Bounds())
	})

	t.Run("fit keeps aspect ratio", func(t *testing.T) {
		out := Preprocess(m, Adjustments{Width: 8, Height: 8})
		assert.Equal(t, 8, out.Bounds().Dx())
		assert.Equal(t, 4, out.Bounds().Dy())
	})

	t.Run("fit width only", func(t *testing.T) {
		out := Preprocess(m, Adjustments{Width: 4})
		assert.Equal(t, 4, out.Bounds().Dx())
		assert.Equal(t, 2, out.Bounds().Dy())
	})

	t.Run("brightness", func(t *testing.T) {
		out := Preprocess(m, Adjustments{Brightness: 100})
		assert.Equal(t, m.Bounds().Size(), out.Bounds().Size())
		r, g, b, _ := out.At(out.Bounds().Min.X, out.Bounds().Min.Y).RGBA()
		assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
	})
}
