package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/bodgit/rplace"
	"github.com/bodgit/rplace/config"
	"github.com/bodgit/rplace/palette"
	"github.com/bodgit/rplace/place"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func adjustmentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "fit",
			Usage: "scale the image down to fit within `W,H` pixels",
		},
		&cli.Float64Flag{
			Name:  "gamma",
			Value: 1.0,
			Usage: "gamma correction, less than 1.0 darkens",
		},
		&cli.Float64Flag{
			Name:  "brightness",
			Usage: "brightness adjustment, -100 to 100",
		},
		&cli.Float64Flag{
			Name:  "contrast",
			Usage: "contrast adjustment, -100 to 100",
		},
		&cli.BoolFlag{
			Name:  "opaque",
			Usage: "ignore the alpha channel and draw every pixel",
		},
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(c.App.ErrWriter)
	}
	return logger
}

// usageError prints the help of the running command and exits 1.
func usageError(c *cli.Context) error {
	_ = cli.ShowCommandHelp(c, c.Command.Name)
	return cli.NewExitError("", 1)
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("user") {
		cfg.User = c.String("user")
	}
	if c.IsSet("password") {
		cfg.Password = c.String("password")
	}
	if c.IsSet("xoffset") {
		cfg.X = c.Int("xoffset")
	}
	if c.IsSet("yoffset") {
		cfg.Y = c.Int("yoffset")
	}
	if c.IsSet("opaque") {
		cfg.Opaque = c.Bool("opaque")
	}
	if c.IsSet("journal") {
		cfg.Journal = c.String("journal")
	}
	if c.IsSet("max-attempts") {
		cfg.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFit(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid fit %q, expected W,H", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w < 0 {
		return 0, 0, fmt.Errorf("invalid fit width %q", parts[0])
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h < 0 {
		return 0, 0, fmt.Errorf("invalid fit height %q", parts[1])
	}
	return w, h, nil
}

func adjustments(c *cli.Context) (rplace.Adjustments, error) {
	w, h, err := parseFit(c.String("fit"))
	if err != nil {
		return rplace.Adjustments{}, err
	}
	return rplace.Adjustments{
		Width:      w,
		Height:     h,
		Gamma:      c.Float64("gamma"),
		Brightness: c.Float64("brightness"),
		Contrast:   c.Float64("contrast"),
	}, nil
}

// loadImage opens, adjusts and quantizes the image at path.
func loadImage(ctx context.Context, path string, a rplace.Adjustments, opaque bool) (*palette.Image, error) {
	m, err := rplace.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	return palette.Quantize(rplace.Preprocess(m, a), palette.Place(), !opaque), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func promptPassword(w io.Writer, user string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	fmt.Fprintf(w, "Password for %s: ", user)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func draw(c *cli.Context) error {
	if c.NArg() < 1 {
		return usageError(c)
	}

	debug := newLogger(c)

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	a, err := adjustments(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	if cfg.Password == "" && cfg.User != "" {
		if cfg.Password, err = promptPassword(c.App.ErrWriter, cfg.User); err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	img, err := loadImage(ctx, c.Args().First(), a, cfg.Opaque)
	if err != nil {
		fmt.Fprintln(c.App.ErrWriter, err)
		return nil
	}

	client, err := place.NewClient(place.WithBaseURL(cfg.BaseURL), place.WithUserAgent(cfg.UserAgent))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	session, err := client.Login(ctx, cfg.User, cfg.Password)
	if err != nil {
		fmt.Fprintln(c.App.Writer, err)
		return nil
	}
	debug.Printf("Logged in as %s\n", session.User())

	opts := []rplace.Option{
		rplace.WithDebugLogger(debug),
		rplace.WithMaxAttempts(cfg.MaxAttempts),
	}

	if cfg.Journal != "" {
		j, err := rplace.OpenJournal(cfg.Journal)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer j.Close()
		opts = append(opts, rplace.WithRecorder(j))
	}

	bot := rplace.New(session, img, image.Pt(cfg.X, cfg.Y), log.New(c.App.Writer, "", 0), opts...)

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func preview(c *cli.Context) error {
	if c.NArg() < 2 {
		return usageError(c)
	}

	a, err := adjustments(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	img, err := loadImage(context.Background(), c.Args().First(), a, c.Bool("opaque"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	f, err := os.Create(c.Args().Get(1))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer f.Close()

	if err := png.Encode(f, img.Paletted(palette.Place())); err != nil {
		return cli.NewExitError(err, 1)
	}

	newLogger(c).Printf("Wrote %dx%d preview with %d opaque pixels\n", img.Width(), img.Height(), img.Opaque())

	return nil
}

func inspect(c *cli.Context) error {
	if c.NArg() < 1 {
		return usageError(c)
	}

	m, err := rplace.Open(context.Background(), c.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	w := c.App.Writer
	p := palette.Place()

	fmt.Fprintf(w, "%s: %dx%d\n\nDominant colors:\n", c.Args().First(), m.Bounds().Dx(), m.Bounds().Dy())
	for _, dc := range palette.Dominant(m, c.Int("colors")) {
		r, g, b, _ := dc.RGBA()
		i := p.Index(dc)
		fmt.Fprintf(w, "  #%02x%02x%02x -> %2d #%02x%02x%02x\n", r>>8, g>>8, b>>8, i, p[i].R, p[i].G, p[i].B)
	}

	img := palette.Quantize(m, p, !c.Bool("opaque"))
	fmt.Fprintf(w, "\nCanvas colors:\n")
	for i, n := range img.Histogram() {
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "  %2d #%02x%02x%02x %d\n", i, p[i].R, p[i].G, p[i].B, n)
	}
	fmt.Fprintf(w, "  transparent %d\n", img.Width()*img.Height()-img.Opaque())

	return nil
}

func stats(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if c.IsSet("journal") {
		cfg.Journal = c.String("journal")
	}
	if cfg.Journal == "" {
		return usageError(c)
	}

	j, err := rplace.OpenJournal(cfg.Journal)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer j.Close()

	s, err := j.Summary()
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Attempts:  %d\n", s.Attempts)
	fmt.Fprintf(w, "Written:   %d (%d distinct pixels)\n", s.Written, s.Pixels)
	fmt.Fprintf(w, "Throttled: %d\n", s.Throttled)
	fmt.Fprintf(w, "Waited:    %v\n", s.Waited)
	if !s.Last.IsZero() {
		fmt.Fprintf(w, "Last:      %s\n", s.Last.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()

	app.Name = "rplace"
	app.Usage = "Reddit r/place drawing bot"
	app.Version = "1.0.0"
	app.Writer = stdout
	app.ErrWriter = stderr

	// Exit codes are handled by run
	app.ExitErrHandler = func(*cli.Context, error) {}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"RPLACE_CONFIG"},
			Usage:   "path to YAML configuration `FILE`",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "draw",
			Usage:       "Draw an image on the canvas",
			Description: "IMAGE is a local file or an http(s) URL. Runs until interrupted.",
			ArgsUsage:   "IMAGE",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "user",
					Aliases: []string{"u"},
					EnvVars: []string{"RPLACE_USER"},
					Usage:   "reddit username",
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					EnvVars: []string{"RPLACE_PASSWORD"},
					Usage:   "reddit password, prompted for if not set",
				},
				&cli.IntFlag{
					Name:    "xoffset",
					Aliases: []string{"x"},
					Usage:   "canvas column of the left edge of the image",
				},
				&cli.IntFlag{
					Name:    "yoffset",
					Aliases: []string{"y"},
					Usage:   "canvas row of the top edge of the image",
				},
				&cli.StringFlag{
					Name:  "journal",
					Usage: "record every write in the SQLite journal `FILE`",
				},
				&cli.IntFlag{
					Name:  "max-attempts",
					Usage: "give up on a pixel after `N` failed reads, 0 retries forever",
				},
				&cli.StringFlag{
					Name:  "base-url",
					Usage: "API host",
				},
			}, adjustmentFlags()...),
			Action: draw,
		},
		{
			Name:        "preview",
			Usage:       "Write the image as it would appear on the canvas",
			Description: "OUTPUT is written as PNG, transparent pixels stay transparent.",
			ArgsUsage:   "IMAGE OUTPUT",
			Flags:       adjustmentFlags(),
			Action:      preview,
		},
		{
			Name:        "inspect",
			Usage:       "Show the dominant colors of an image and their canvas colors",
			Description: "",
			ArgsUsage:   "IMAGE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "colors",
					Value: 8,
					Usage: "number of dominant colors",
				},
				&cli.BoolFlag{
					Name:  "opaque",
					Usage: "ignore the alpha channel",
				},
			},
			Action: inspect,
		},
		{
			Name:        "stats",
			Usage:       "Summarize a journal",
			Description: "",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "journal",
					Usage: "SQLite journal `FILE`",
				},
			},
			Action: stats,
		},
	}

	return app
}

// run executes the command line in args and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(args)
	if err == nil {
		return 0
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return exitErr.ExitCode()
	}

	fmt.Fprintln(stderr, err)
	return 1
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
