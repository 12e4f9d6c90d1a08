package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func (a *app) infoCmd() *cobra.Command {
	var asJSON bool
	var modeName string
	cmd := &cobra.Command{
		Use:   "info FILE...",
		Short: "Display information about STL, 3MF or archived meshes",
		Long:  "Show the triangle count, bounding box, surface area, volume, center of gravity and closedness of every solid.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := stl.ParseMode(modeName)
			if err != nil {
				return err
			}
			opts, err := a.settings.MeshOptions()
			if err != nil {
				return err
			}
			files := make(map[string][]mesh.Summary, len(args))
			for _, path := range args {
				meshes, err := readInput(path, mode, opts)
				if err != nil {
					return err
				}
				files[path] = lo.Map(meshes, func(m *mesh.Mesh, _ int) mesh.Summary { return m.Summarize() })
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			}
			for _, path := range args {
				printInfo(cmd.OutOrStdout(), path, files[path])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&modeName, "mode", "auto", "input mode: auto, ascii or binary")
	return cmd
}

func printInfo(w io.Writer, path string, summaries []mesh.Summary) {
	fmt.Fprintf(w, "File: %s\n", path)
	for _, s := range summaries {
		fmt.Fprintf(w, "\nSolid: %s\n", s.Name)
		fmt.Fprintf(w, "  Triangles: %d\n", s.Triangles)
		fmt.Fprintf(w, "  Min: %s\n", formatVec(s.Min[0], s.Min[1], s.Min[2]))
		fmt.Fprintf(w, "  Max: %s\n", formatVec(s.Max[0], s.Max[1], s.Max[2]))
		fmt.Fprintf(w, "  Surface Area: %.6f\n", s.Area)
		fmt.Fprintf(w, "  Volume: %.6f\n", s.Volume)
		cog := s.CenterOfGravity
		fmt.Fprintf(w, "  Center of Gravity: %s\n", formatVec(cog[0], cog[1], cog[2]))
		fmt.Fprintf(w, "  Closed: %t\n", s.Closed)
	}
}

func formatVec[T float32 | float64](x, y, z T) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", x, y, z)
}
