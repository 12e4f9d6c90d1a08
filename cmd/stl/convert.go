package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/chazu/stlkit/pkg/stl"
	"github.com/spf13/cobra"
)

type convertFlags struct {
	ascii       bool
	binary      bool
	removeEmpty bool
	name        string
	all         bool
}

// convertCmd builds convert, ascii and binary. forced is Automatic for
// convert, which takes its mode from -a/-b or the settings file.
func (a *app) convertCmd(use string, forced stl.Mode) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   use + " IN OUT",
		Short: convertShort(forced),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(args[0], args[1], forced, f)
		},
	}
	if forced == stl.Automatic {
		cmd.Flags().BoolVarP(&f.ascii, "ascii", "a", false, "write ASCII")
		cmd.Flags().BoolVarP(&f.binary, "binary", "b", false, "write binary")
		cmd.MarkFlagsMutuallyExclusive("ascii", "binary")
	}
	cmd.Flags().BoolVarP(&f.removeEmpty, "remove-empty-areas", "r", false, "drop facets with zero area")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "solid name to write")
	cmd.Flags().BoolVar(&f.all, "all", false, "write every solid of the input instead of the first")
	return cmd
}

func convertShort(forced stl.Mode) string {
	switch forced {
	case stl.ASCII:
		return "Convert an STL file to ASCII"
	case stl.Binary:
		return "Convert an STL file to binary"
	}
	return "Convert between ASCII and binary STL"
}

func (a *app) outputMode(forced stl.Mode, f convertFlags) (stl.Mode, error) {
	switch {
	case forced != stl.Automatic:
		return forced, nil
	case f.ascii:
		return stl.ASCII, nil
	case f.binary:
		return stl.Binary, nil
	}
	return a.settings.OutputMode()
}

func (a *app) convert(in, out string, forced stl.Mode, f convertFlags) (err error) {
	mode, err := a.outputMode(forced, f)
	if err != nil {
		return err
	}
	opts, err := a.settings.MeshOptions()
	if err != nil {
		return err
	}
	opts.RemoveEmptyAreas = opts.RemoveEmptyAreas || f.removeEmpty

	meshes, err := readInput(in, stl.Automatic, opts)
	if err != nil {
		return err
	}
	if !f.all && len(meshes) > 1 {
		log.Printf("%s holds %d solids, writing the first", in, len(meshes))
		meshes = meshes[:1]
	}

	w, err := openOut(out)
	if err != nil {
		return err
	}
	defer func() {
		if out != stdio {
			err = errors.Join(err, w.Close())
		}
	}()

	for _, m := range meshes {
		name := f.name
		if name == "" && m.Name == "" {
			name = fallbackName(in, out)
		}
		if err := stl.Write(w, m, stl.SaveOptions{Mode: mode, Name: name}); err != nil {
			return fmt.Errorf("%s: %w", out, err)
		}
	}
	return nil
}

