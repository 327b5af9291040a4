package rplace

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SourceErrorKind classifies why an image could not be loaded.
type SourceErrorKind int

const (
	// IOError means the file or URL could not be read
	IOError SourceErrorKind = iota
	// FormatError means the data is not an image in a supported format
	FormatError
)

func (k SourceErrorKind) String() string {
	switch k {
	case FormatError:
		return "format error"
	default:
		return "I/O error"
	}
}

// SourceError is returned by Open.
type SourceError struct {
	Kind SourceErrorKind
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsFormatError returns true if err is a *SourceError of kind FormatError.
func IsFormatError(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Kind == FormatError
}

var errNotFound = errors.New("no such file and not an http(s) URL")

func openURL(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return resp.Body, nil
}

func openSource(ctx context.Context, path string) (io.ReadCloser, error) {
	// Is it a file?
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}

	// Is it a url?
	if u, uerr := url.Parse(path); uerr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return openURL(ctx, u)
	}

	if os.IsNotExist(err) {
		return nil, errNotFound
	}
	return nil, err
}

// Open decodes the image found at path, which is either a local file or an
// http(s) URL. GIF, JPEG, PNG, BMP and WebP are supported; for an animated
// GIF the first frame is used.
func Open(ctx context.Context, path string) (image.Image, error) {
	r, err := openSource(ctx, path)
	if err != nil {
		return nil, &SourceError{Kind: IOError, Path: path, Err: err}
	}
	defer r.Close()

	m, _, err := image.Decode(r)
	if err != nil {
		return nil, &SourceError{Kind: FormatError, Path: path, Err: err}
	}
	return m, nil
}

// Adjustments are applied to a source image before it is quantized. The
// zero value leaves the image untouched.
type Adjustments struct {
	// Width and Height bound the image; it is scaled down, keeping its
	// aspect ratio, to fit. Zero means no bound.
	Width  int
	Height int
	// Gamma of 1.0 (or 0) gives the original image, less darkens it and
	// more lightens it.
	Gamma float64
	// Brightness and Contrast are percentages in the range -100 to 100.
	Brightness float64
	Contrast   float64
}

// Preprocess applies a to m. Scaling uses nearest neighbor sampling so that
// pixel art already using canvas colors keeps exact colors.
func Preprocess(m image.Image, a Adjustments) image.Image {
	b := m.Bounds()
	if (a.Width > 0 && a.Width < b.Dx()) || (a.Height > 0 && a.Height < b.Dy()) {
		w, h := a.Width, a.Height
		if w <= 0 {
			w = b.Dx()
		}
		if h <= 0 {
			h = b.Dy()
		}
		m = resize.Thumbnail(uint(w), uint(h), m, resize.NearestNeighbor)
	}
	if a.Gamma > 0 && a.Gamma != 1.0 {
		m = imaging.AdjustGamma(m, a.Gamma)
	}
	if a.Brightness != 0 {
		m = imaging.AdjustBrightness(m, a.Brightness)
	}
	if a.Contrast != 0 {
		m = imaging.AdjustContrast(m, a.Contrast)
	}
	return m
}
