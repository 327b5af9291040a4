/*
Package rplace reproduces an image on the Reddit r/place canvas.

A Bot holds an image already quantized to the canvas palette and repeatedly
picks one of its pixels at random. If the canvas already shows the right color
the Bot waits a little and picks another one, otherwise it draws the pixel and
honors whatever cooldown the server answers with. Random sampling spreads the
writes over the pixels that still differ instead of racing other
collaborators over the same region.
*/
package rplace

import (
	"context"
	"image"
	"io/ioutil"
	"log"
	"math/rand"
	"time"

	"github.com/bodgit/rplace/palette"
)

const (
	// MatchDelay is how long the Bot waits after finding a pixel that
	// already has the right color
	MatchDelay = 5 * time.Second

	// SafetyMargin is added to every cooldown requested by the server
	SafetyMargin = 2 * time.Second
)

// Canvas is the remote canvas. Coordinates are absolute canvas coordinates
// and colors are palette indices. *place.Session implements it.
type Canvas interface {
	Pixel(ctx context.Context, x, y int) (int, error)
	Draw(ctx context.Context, x, y, color int) (time.Duration, error)
}

// Recorder receives the outcome of every write. A zero wait means the pixel
// was written.
type Recorder interface {
	Record(x, y, color int, wait time.Duration) error
}

// Bot drives the canvas towards an image.
type Bot struct {
	canvas   Canvas
	img      *palette.Image
	offset   image.Point
	logger   *log.Logger
	debug    *log.Logger
	rand     *rand.Rand
	sleep    func(context.Context, time.Duration) error
	recorder Recorder

	maxAttempts int
}

// Option configures a Bot.
type Option func(*Bot)

// WithDebugLogger sets a logger for per-pixel details and retried failures.
// They are discarded by default.
func WithDebugLogger(logger *log.Logger) Option {
	return func(b *Bot) { b.debug = logger }
}

// WithRand sets the source used to pick pixels.
func WithRand(r *rand.Rand) Option {
	return func(b *Bot) { b.rand = r }
}

// WithSleep replaces the function used to wait. It must return ctx.Err()
// if the context ends first.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(b *Bot) { b.sleep = fn }
}

// WithRecorder records every write attempt that got an answer.
func WithRecorder(r Recorder) Option {
	return func(b *Bot) { b.recorder = r }
}

// WithMaxAttempts bounds how many times a pixel read is retried before the
// pixel is abandoned and another one is picked. Zero, the default, retries
// forever.
func WithMaxAttempts(n int) Option {
	return func(b *Bot) {
		if n >= 0 {
			b.maxAttempts = n
		}
	}
}

// New returns a Bot that draws img with its top-left corner at offset on
// canvas. Progress is written to logger, which may be nil.
func New(canvas Canvas, img *palette.Image, offset image.Point, logger *log.Logger, opts ...Option) *Bot {
	b := &Bot{
		canvas: canvas,
		img:    img,
		offset: offset,
		logger: logger,
		sleep:  sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.logger == nil {
		b.logger = log.New(ioutil.Discard, "", 0)
	}
	if b.debug == nil {
		b.debug = log.New(ioutil.Discard, "", 0)
	}
	if b.rand == nil {
		b.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if b.sleep == nil {
		b.sleep = sleep
	}
	return b
}

// Offset returns the canvas position of the top-left corner of the image.
func (b *Bot) Offset() image.Point {
	return b.offset
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
