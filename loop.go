package rplace

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/bodgit/rplace/palette"
)

// Run keeps the canvas in line with the image. It only returns once ctx is
// done, with ctx.Err(); failed reads and writes are retried.
func (b *Bot) Run(ctx context.Context) error {
	offset := b.Offset()
	b.debug.Printf("Drawing %dx%d image at %dx%d, %d of %d pixels opaque\n",
		b.img.Width(), b.img.Height(), offset.X, offset.Y,
		b.img.Opaque(), b.img.Width()*b.img.Height())

	for {
		if err := b.step(ctx); err != nil {
			return err
		}
	}
}

// step runs a single select, verify, compare, write cycle. It only returns
// an error when ctx is done.
func (b *Bot) step(ctx context.Context) error {
	p, err := b.pick(ctx)
	if err != nil {
		return err
	}

	want := b.img.At(p.X, p.Y)
	x, y := p.X+b.offset.X, p.Y+b.offset.Y

	got, err := b.verify(ctx, x, y)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.debug.Println(err)
		return nil
	}

	if got == want {
		b.debug.Printf("Pixel %dx%d already has color %d\n", x, y, want)
		return b.sleep(ctx, MatchDelay)
	}

	wait, err := b.canvas.Draw(ctx, x, y, want)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.debug.Printf("Failed to write pixel %dx%d: %s\n", x, y, err)
		return nil
	}
	b.record(x, y, want, wait)

	if wait > 0 {
		b.logger.Printf("Sleep for %v seconds\n", wait.Seconds())
		return b.sleep(ctx, wait+SafetyMargin)
	}

	b.logger.Printf("Wrote pixel %dx%d\n", x, y)
	return nil
}

// pick draws random coordinates until one is not transparent. An image with
// no opaque pixel never yields one; only ctx ends the search.
func (b *Bot) pick(ctx context.Context) (image.Point, error) {
	for {
		if p, ok := b.try(); ok {
			return p, nil
		}
		if err := ctx.Err(); err != nil {
			return image.Point{}, err
		}
	}
}

// try draws one random coordinate and reports whether it can be placed.
func (b *Bot) try() (image.Point, bool) {
	w, h := b.img.Width(), b.img.Height()
	if w == 0 || h == 0 {
		return image.Point{}, false
	}
	p := image.Pt(b.rand.Intn(w), b.rand.Intn(h))
	return p, b.img.At(p.X, p.Y) != palette.Transparent
}

// verify reads the canvas color at (x, y), retrying immediately on any
// failure, up to maxAttempts if set.
func (b *Bot) verify(ctx context.Context, x, y int) (int, error) {
	for attempt := 1; ; attempt++ {
		c, err := b.canvas.Pixel(ctx, x, y)
		if err == nil {
			return c, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		b.debug.Printf("Failed to read pixel %dx%d: %s\n", x, y, err)
		if b.maxAttempts > 0 && attempt >= b.maxAttempts {
			return 0, fmt.Errorf("rplace: giving up on pixel %dx%d after %d attempts: %w", x, y, attempt, err)
		}
	}
}

func (b *Bot) record(x, y, color int, wait time.Duration) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.Record(x, y, color, wait); err != nil {
		b.logger.Printf("Unable to record write of pixel %dx%d: %s\n", x, y, err)
	}
}
