// Package main is a command line tool for inspecting COPC files, local or
// remote.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/geolidar/gocopc/codec"
	"github.com/geolidar/gocopc/copc"
	"github.com/geolidar/gocopc/source"
)

func main() {
	logger := golog.NewLogger("copc")
	app := &cli.App{
		Name:  "copc",
		Usage: "inspect cloud optimized point cloud files",
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "print header and octree metadata",
				ArgsUsage: "<file or url>",
				Action: func(c *cli.Context) error {
					return infoAction(c, logger)
				},
			},
			{
				Name:      "points",
				Usage:     "stream points as x y z lines",
				ArgsUsage: "<file or url>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "level", Value: -1, Usage: "max octree level to read (-1 for all)"},
					&cli.Float64Flag{Name: "resolution", Usage: "coarsest point spacing to read"},
					&cli.StringFlag{Name: "bounds", Usage: "minx,miny,minz,maxx,maxy,maxz filter box"},
					&cli.Uint64Flag{Name: "limit", Usage: "stop after this many points"},
				},
				Action: func(c *cli.Context) error {
					return pointsAction(c, logger)
				},
			},
			{
				Name:      "convert",
				Usage:     "rewrite a copc file with a different codec or node capacity",
				ArgsUsage: "<file or url> <output file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "codec", Value: "lzf", Usage: "chunk codec: raw, lzf or snappy"},
					&cli.IntFlag{Name: "max-node-points", Value: copc.DefaultMaxPointsPerNode, Usage: "octree node capacity"},
				},
				Action: func(c *cli.Context) error {
					return convertAction(c, logger)
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

type rangeSource interface {
	io.ReaderAt
	io.Closer
}

type httpSource struct{ *source.HTTP }

func (httpSource) Close() error { return nil }

func openSource(path string) (rangeSource, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return httpSource{source.NewHTTP(nil, path)}, nil
	}
	return source.Open(path)
}

func openReader(c *cli.Context, logger golog.Logger) (*copc.Reader, rangeSource, error) {
	if c.NArg() != 1 {
		return nil, nil, errors.New("expected exactly one file or url argument")
	}
	src, err := openSource(c.Args().First())
	if err != nil {
		return nil, nil, err
	}
	r, err := copc.Open(src, logger)
	if err != nil {
		utils.UncheckedErrorFunc(src.Close)
		return nil, nil, err
	}
	return r, src, nil
}

func infoAction(c *cli.Context, logger golog.Logger) error {
	r, src, err := openReader(c, logger)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(src.Close)

	h := r.Header()
	info := r.Info()
	fmt.Printf("point format:     %d (%d byte records)\n", h.PointFormat, h.PointRecordLength)
	fmt.Printf("points:           %d\n", h.PointCount)
	fmt.Printf("bounds min:       %g %g %g\n", h.Min.X, h.Min.Y, h.Min.Z)
	fmt.Printf("bounds max:       %g %g %g\n", h.Max.X, h.Max.Y, h.Max.Z)
	fmt.Printf("octree center:    %g %g %g\n", info.Center.X, info.Center.Y, info.Center.Z)
	fmt.Printf("octree halfsize:  %g\n", info.Halfsize)
	fmt.Printf("root spacing:     %g\n", info.Spacing)
	fmt.Printf("root page:        %d bytes at offset %d\n", info.RootHierSize, info.RootHierOffset)
	if r.Projection() != nil {
		fmt.Printf("projection:       %d byte %s record\n", len(r.Projection().Data), r.Projection().UserID)
	}
	return nil
}

func pointsAction(c *cli.Context, logger golog.Logger) error {
	r, src, err := openReader(c, logger)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(src.Close)

	lod := copc.LodAll()
	if level := c.Int("level"); level >= 0 {
		lod = copc.LodLevel(int32(level))
	} else if res := c.Float64("resolution"); res > 0 {
		lod = copc.LodResolution(res)
	}

	bounds := copc.BoundsAll()
	if spec := c.String("bounds"); spec != "" {
		box, err := parseBounds(spec)
		if err != nil {
			return err
		}
		bounds = copc.BoundsWithin(box)
	}

	it, err := r.Points(lod, bounds)
	if err != nil {
		return err
	}
	limit := c.Uint64("limit")
	var n uint64
	out := os.Stdout
	for {
		for it.Next() {
			p := it.Point()
			fmt.Fprintf(out, "%g %g %g\n", p.X, p.Y, p.Z)
			n++
			if limit > 0 && n >= limit {
				return nil
			}
		}
		if it.Err() == nil {
			return nil
		}
		logger.Warnw("skipping unreadable node", "error", it.Err())
		if !it.SkipNode() {
			return it.Err()
		}
	}
}

func convertAction(c *cli.Context, logger golog.Logger) (err error) {
	if c.NArg() != 2 {
		return errors.New("expected input and output arguments")
	}
	chunkCodec, ok := codec.Lookup(c.String("codec"))
	if !ok {
		return errors.Errorf("unknown codec %q", c.String("codec"))
	}

	src, err := openSource(c.Args().First())
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(src.Close)
	r, err := copc.Open(src, logger)
	if err != nil {
		return err
	}

	out, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()

	h := r.Header()
	wr, err := copc.NewWriter(out, copc.WriterOptions{
		PointFormat:      h.PointFormat,
		Transforms:       h.Transforms,
		Bounds:           copc.NewBounds(h.Min, h.Max),
		MaxPointsPerNode: int32(c.Int("max-node-points")),
		Codec:            chunkCodec,
		Projection:       r.Projection(),
	}, logger)
	if err != nil {
		return err
	}

	it, err := r.Points(copc.LodAll(), copc.BoundsAll())
	if err != nil {
		return err
	}
	var n uint64
	for {
		for it.Next() {
			if err := wr.Write(it.Point()); err != nil {
				if errors.Is(err, copc.ErrPointOutOfBounds) {
					logger.Warnw("dropping point outside the header bounds")
					continue
				}
				return err
			}
			n++
		}
		if it.Err() == nil {
			break
		}
		logger.Warnw("skipping unreadable node", "error", it.Err())
		if !it.SkipNode() {
			return it.Err()
		}
	}
	if err := wr.Close(); err != nil {
		return err
	}
	logger.Infow("converted", "points", n, "codec", chunkCodec.Name())
	return nil
}

func parseBounds(spec string) (copc.Bounds, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 6 {
		return copc.Bounds{}, errors.Errorf("bounds need 6 comma separated values, got %d", len(parts))
	}
	vals := make([]float64, 6)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return copc.Bounds{}, errors.Wrapf(err, "bounds value %q", part)
		}
		vals[i] = v
	}
	return copc.NewBounds(
		r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]},
		r3.Vector{X: vals[3], Y: vals[4], Z: vals[5]},
	), nil
}
