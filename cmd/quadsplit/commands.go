package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/quadsplit/pkg/clean"
	"github.com/chazu/quadsplit/pkg/topology"
	"github.com/spf13/cobra"
)

func addOutputFlags(cmd *cobra.Command, out *string) {
	cmd.Flags().StringVarP(out, "output", "o", "", "output mesh file (required)")
	cmd.Flags().String("format", "", "output format: off, obj or stl (default: from extension)")
	_ = cmd.MarkFlagRequired("output")
}

func (c *cli) refineCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "refine IN -o OUT",
		Short: "Replace every face with one quad per corner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Refine(args[0], out)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "input:  %s\n", summaryLine(res.Input))
				fmt.Fprintf(w, "output: %s\n", summaryLine(res.Output))
				if res.Weld.Changed() {
					fmt.Fprintf(w, "welded: %s\n", reportLine(res.Weld))
				}
			})
		},
	}
	addOutputFlags(cmd, &out)
	cmd.Flags().Float64("tolerance", 0, "weld tolerance for the input mesh")
	cmd.Flags().Bool("no-weld", false, "do not weld the input mesh")
	cmd.Flags().Bool("no-require-normals", false, "skip the per-vertex normal check")
	return cmd
}

func (c *cli) cleanCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "clean IN -o OUT",
		Short: "Merge duplicate vertices and drop degenerate faces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := c.app.Clean(args[0], out)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), rep, func(w io.Writer) {
				fmt.Fprintln(w, reportLine(rep))
			})
		},
	}
	addOutputFlags(cmd, &out)
	cmd.Flags().Float64("tolerance", 0, "distance under which vertices are merged")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats IN",
		Short: "Print vertex, face, edge and boundary counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.app.Stats(args[0])
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), s, func(w io.Writer) {
				fmt.Fprintln(w, summaryLine(s))
				if len(s.Loops) > 0 {
					fmt.Fprintf(w, "boundary loops: %v\n", s.Loops)
				}
				if s.NonManifoldEdges > 0 {
					fmt.Fprintf(w, "non-manifold edges: %d\n", s.NonManifoldEdges)
				}
			})
		},
	}
}

func (c *cli) runCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Evaluate a mesh pipeline script and write the meshes it emits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Run(args[0], dir)
			if err != nil {
				return err
			}
			if err := c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				for _, p := range res.Written {
					fmt.Fprintln(w, p)
				}
				for _, e := range res.Errors {
					fmt.Fprintf(w, "%s: %s\n", args[0], e.Error())
				}
			}); err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%s: %d script errors", args[0], len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory for emitted meshes")
	cmd.Flags().String("format", "", "output format: off, obj or stl (default: off)")
	cmd.Flags().String("kernel", "", "solid kernel: sdfx or manifold")
	cmd.Flags().Int("cells", 0, "marching cubes resolution for solids")
	cmd.Flags().Duration("timeout", 0, "evaluation time limit")
	return cmd
}

func summaryLine(s topology.Summary) string {
	closed := "open"
	if s.Closed() {
		closed = "closed"
	}
	return fmt.Sprintf("V=%d F=%d E=%d euler=%d %s", s.Vertices, s.Faces, s.Edges, s.Euler, closed)
}

func reportLine(r clean.Report) string {
	parts := []string{
		fmt.Sprintf("%d duplicate vertices", r.Duplicates),
		fmt.Sprintf("%d degenerate faces", r.Degenerate),
		fmt.Sprintf("%d unreferenced vertices", r.Unreferenced),
	}
	return strings.Join(parts, ", ")
}
