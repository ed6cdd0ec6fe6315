package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/oda/hoard/pile"
)

func pathArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", errors.New("missing pile path")
	}
	return c.Args().First(), nil
}

func (a *app) createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "create an empty pile",
		ArgsUsage: "PILE",
		Action: func(c *cli.Context) error {
			path, err := pathArg(c)
			if err != nil {
				return err
			}
			f, err := pile.Create(path, a.options()...)
			if err != nil {
				return err
			}
			return f.Close()
		},
	}
}

func (a *app) putCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "append bytes as a blob and print its offset",
		ArgsUsage: "PILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "blob contents",
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "read blob contents from a file, - for stdin",
			},
			&cli.BoolFlag{
				Name:  "commit",
				Usage: "commit the blob as the newest root",
			},
		},
		Action: func(c *cli.Context) error {
			path, err := pathArg(c)
			if err != nil {
				return err
			}
			data, err := readInput(c)
			if err != nil {
				return err
			}

			f, err := pile.Open(path, a.options()...)
			if err != nil {
				return err
			}
			err = f.Enter(func(h *pile.Hoard) error {
				o, err := h.WriteBlob(data)
				if err != nil {
					return err
				}
				if !c.Bool("commit") {
					fmt.Fprintln(a.out, o.Get())
					return nil
				}
				r, err := h.Commit(o, uint64(len(data)))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%d mark=%d\n", o.Get(), r.Mark)
				return nil
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			return err
		},
	}
}

func readInput(c *cli.Context) ([]byte, error) {
	switch {
	case c.IsSet("data") && c.IsSet("input"):
		return nil, errors.New("--data and --input are mutually exclusive")
	case c.IsSet("data"):
		return []byte(c.String("data")), nil
	case c.String("input") == "-":
		return io.ReadAll(c.App.Reader)
	case c.IsSet("input"):
		data, err := os.ReadFile(c.String("input"))
		return data, errors.Wrap(err, "read input")
	default:
		return nil, errors.New("one of --data or --input is required")
	}
}

func (a *app) rootsCommand() *cli.Command {
	return &cli.Command{
		Name:      "roots",
		Usage:     "list committed roots, newest first",
		ArgsUsage: "PILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "list at most this many roots, 0 for all",
			},
		},
		Action: func(c *cli.Context) error {
			path, err := pathArg(c)
			if err != nil {
				return err
			}
			s, err := pile.ReadSnapshot(path, a.options()...)
			if err != nil {
				return err
			}
			defer s.Release()

			limit := c.Int("limit")
			tw := tabwriter.NewWriter(a.out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "MARK\tVALUE\tMETA")
			var n int
			err = s.Roots(func(r pile.Root) bool {
				fmt.Fprintf(tw, "%d\t%d\t%d\n", r.Mark, r.Value.Get(), r.Meta)
				n++
				return limit <= 0 || n < limit
			})
			if ferr := tw.Flush(); err == nil {
				err = ferr
			}
			return err
		},
	}
}

func (a *app) framesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "list every frame in write order",
		ArgsUsage: "PILE",
		Action: func(c *cli.Context) error {
			path, err := pathArg(c)
			if err != nil {
				return err
			}
			s, err := pile.ReadSnapshot(path, a.options()...)
			if err != nil {
				return err
			}
			defer s.Release()

			tw := tabwriter.NewWriter(a.out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "OFFSET\tKIND\tLENGTH\tPADDING")
			err = s.Frames(func(fi pile.FrameInfo) bool {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", fi.Offset.Get(), fi.Kind, fi.Length, fi.Padding)
				return true
			})
			if ferr := tw.Flush(); err == nil {
				err = ferr
			}
			return err
		},
	}
}

func (a *app) catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "write a blob to stdout; the newest root's value when no offset is given",
		ArgsUsage: "PILE [OFFSET]",
		Action: func(c *cli.Context) error {
			path, err := pathArg(c)
			if err != nil {
				return err
			}
			s, err := pile.ReadSnapshot(path, a.options()...)
			if err != nil {
				return err
			}
			defer s.Release()

			var o pile.Offset
			if c.NArg() > 1 {
				w, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
				if err != nil {
					return errors.Wrap(err, "invalid offset")
				}
				if o, err = s.Offset(w); err != nil {
					return err
				}
			} else {
				tip, err := s.Tip()
				if err != nil {
					return err
				}
				o = tip.Value
			}

			data, err := s.ReadBlob(o)
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}
}

func (a *app) verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check the checksum of every frame and the value of every root",
		ArgsUsage: "PILE",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "jobs",
				Value: runtime.NumCPU(),
				Usage: "number of frames verified concurrently",
			},
		},
		Action: func(c *cli.Context) error {
			path, err := pathArg(c)
			if err != nil {
				return err
			}
			s, err := pile.ReadSnapshot(path, a.options()...)
			if err != nil {
				return err
			}
			defer s.Release()

			frames, roots, err := verify(c, s, c.Int("jobs"))
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"frames": frames,
				"roots":  roots,
			}).Info("pile verified")
			fmt.Fprintf(a.out, "ok: %d frames, %d roots\n", frames, roots)
			return nil
		},
	}
}

// verify checks every frame's checksum and that every root points at a
// readable blob, using up to jobs goroutines over the one snapshot.
func verify(c *cli.Context, s *pile.Snapshot, jobs int) (int, int, error) {
	var frames []pile.FrameInfo
	if err := s.Frames(func(fi pile.FrameInfo) bool {
		frames = append(frames, fi)
		return true
	}); err != nil {
		return 0, 0, err
	}
	var roots []pile.Root
	if err := s.Roots(func(r pile.Root) bool {
		roots = append(roots, r)
		return true
	}); err != nil {
		return 0, 0, err
	}

	eg, ctx := errgroup.WithContext(c.Context)
	if jobs > 0 {
		eg.SetLimit(jobs)
	}
	for _, fi := range frames {
		fi := fi
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, _, err := s.ReadFrame(fi.Offset)
			return err
		})
	}
	for _, r := range roots {
		r := r
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := s.ReadBlob(r.Value); err != nil {
				return errors.Wrapf(err, "root at mark %d", r.Mark)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, 0, err
	}
	return len(frames), len(roots), nil
}
