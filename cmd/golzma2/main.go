package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/gkrost/lzma"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
	With().Timestamp().Logger()

func main() {
	app := &cli.App{
		Name:  "golzma2",
		Usage: "compress and decompress LZMA/LZMA2 streams",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Before: func(c *cli.Context) error {
			level := zerolog.InfoLevel
			if c.Bool("verbose") {
				level = zerolog.DebugLevel
			}
			log = log.Level(level)

			return nil
		},
		Commands: []*cli.Command{
			compressCommand(),
			decompressCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed")
	}
}

func compressCommand() *cli.Command {
	return &cli.Command{
		Name:      "compress",
		Aliases:   []string{"c"},
		Usage:     "compress a file (or stdin) to an LZMA2 stream",
		ArgsUsage: "[input]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
			&cli.IntFlag{Name: "level", Aliases: []string{"l"}, Value: 5, Usage: "compression level 0..9"},
			&cli.IntFlag{Name: "dict-size", Usage: "dictionary size in bytes (0: from level, or 8 MiB when --mf is set)"},
			&cli.StringFlag{Name: "mf", Value: "", Usage: "match finder: bt4 or hc4 (default from level)"},
			&cli.IntFlag{Name: "mt", Usage: "match-finder pipeline threads (0, 1 or 2)"},
			&cli.BoolFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "encode independent blocks in parallel"},
			&cli.Int64Flag{Name: "block-size", Usage: "parallel block size in bytes"},
			&cli.IntFlag{Name: "workers", Usage: "parallel worker count"},
			&cli.BoolFlag{Name: "lzma1", Usage: "emit a classic .lzma stream instead of LZMA2"},
			&cli.BoolFlag{Name: "progress", Usage: "show a progress bar"},
		},
		Action: runCompress,
	}
}

func decompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "decompress",
		Aliases:   []string{"d"},
		Usage:     "decompress an LZMA or LZMA2 stream",
		ArgsUsage: "[input]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
			&cli.IntFlag{Name: "dict-size", Usage: "LZMA2 dictionary size in bytes"},
			&cli.BoolFlag{Name: "lzma1", Usage: "input is a classic .lzma stream"},
		},
		Action: runDecompress,
	}
}

func openInput(c *cli.Context) (io.ReadCloser, int64, error) {
	name := c.Args().First()
	if name == "" || name == "-" {
		return os.Stdin, -1, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open input")
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, errors.Wrap(err, "stat input")
	}

	return f, st.Size(), nil
}

func openOutput(c *cli.Context) (io.WriteCloser, error) {
	name := c.String("output")
	if name == "" || name == "-" {
		return os.Stdout, nil
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create output")
	}

	return f, nil
}

func buildConfig(c *cli.Context, inSize int64) (*lzma.WriterConfig, *pb.ProgressBar, error) {
	conf := &lzma.WriterConfig{
		Level:     c.Int("level"),
		DictSize:  uint32(c.Int("dict-size")),
		MTThreads: c.Int("mt"),
		BlockSize: c.Int64("block-size"),
		Workers:   c.Int("workers"),
	}

	switch c.String("mf") {
	case "":
	case "bt4":
		conf.Level = -1
		conf.MatchFinder = lzma.MatchFinderBT4
	case "hc4":
		conf.Level = -1
		conf.MatchFinder = lzma.MatchFinderHC4
	default:
		return nil, nil, errors.Errorf("unknown match finder %q", c.String("mf"))
	}

	var bar *pb.ProgressBar
	if c.Bool("progress") && inSize >= 0 {
		bar = pb.New64(inSize).SetUnits(pb.U_BYTES)
		bar.Output = os.Stderr
		bar.Start()

		conf.Progress = func(in, out int64) error {
			bar.Set64(in)
			return nil
		}
	}

	return conf, bar, nil
}

func runCompress(c *cli.Context) error {
	in, inSize, err := openInput(c)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openOutput(c)
	if err != nil {
		return err
	}
	defer out.Close()

	conf, bar, err := buildConfig(c, inSize)
	if err != nil {
		return err
	}
	if bar != nil {
		defer bar.Finish()
	}

	start := time.Now()

	var w io.WriteCloser
	switch {
	case c.Bool("lzma1"):
		w, err = lzma.NewWriter(out, conf)
	case c.Bool("parallel"):
		w, err = lzma.NewParallelWriter2(context.Background(), out, conf)
	default:
		w, err = lzma.NewWriter2(out, conf)
	}
	if err != nil {
		return errors.Wrap(err, "create encoder")
	}

	n, err := io.Copy(w, in)
	if err != nil {
		w.Close()
		return errors.Wrap(err, "compress")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "finish stream")
	}

	log.Info().
		Int64("in", n).
		Dur("took", time.Since(start)).
		Msg("compressed")

	return nil
}

func runDecompress(c *cli.Context) error {
	in, _, err := openInput(c)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openOutput(c)
	if err != nil {
		return err
	}
	defer out.Close()

	start := time.Now()

	var r io.Reader
	if c.Bool("lzma1") {
		r, err = lzma.NewReader(in)
	} else {
		r, err = lzma.NewReader2(in, c.Int("dict-size"))
	}
	if err != nil {
		return errors.Wrap(err, "open stream")
	}

	n, err := io.Copy(out, r)
	if err != nil {
		return errors.Wrap(err, "decompress")
	}

	log.Info().
		Int64("out", n).
		Dur("took", time.Since(start)).
		Msg("decompressed")

	return nil
}
