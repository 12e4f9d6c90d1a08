package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (a *app) runCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Evaluate a mesh script",
		Long: `Evaluate a Lisp mesh script. Paths given to load and save resolve
against --dir, which defaults to the script's directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			r, err := openIn(path)
			if err != nil {
				return err
			}
			source, err := io.ReadAll(r)
			r.Close()
			if err != nil {
				return err
			}

			if dir == "" {
				dir = "."
				if path != stdio {
					dir = filepath.Dir(path)
				}
			}
			if dir, err = filepath.Abs(dir); err != nil {
				return err
			}

			eng, err := a.settings.Engine(dir)
			if err != nil {
				return err
			}
			res, evalErrs, err := eng.Evaluate(string(source))
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, e)
				}
				return errors.New("script failed")
			}

			out := cmd.OutOrStdout()
			for _, m := range res.Meshes {
				fmt.Fprintf(out, "mesh %s: %d triangles\n", m.Name, m.Len())
			}
			for _, f := range res.Written {
				fmt.Fprintf(out, "wrote %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory for load and save")
	return cmd
}
