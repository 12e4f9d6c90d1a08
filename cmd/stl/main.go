// Command stl converts, inspects and generates STL files.
//
//	stl convert [-a|-b] [-r] [-n name] IN OUT
//	stl ascii IN OUT
//	stl binary IN OUT
//	stl info FILE...
//	stl run SCRIPT
//	stl serve
//
// IN and OUT may be "-" for stdin and stdout.
package main

import (
	"log"
	"os"

	"github.com/chazu/stlkit/pkg/config"
	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/spf13/cobra"
)

// app carries what every subcommand shares.
type app struct {
	configPath string
	settings   *config.Settings
}

// load reads the settings file once flags have been parsed.
func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	a.settings = cfg
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "stl",
		Short:             "Read, write and generate STL meshes",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.Path(), "settings file")

	root.AddCommand(
		a.convertCmd("convert", stl.Automatic),
		a.convertCmd("ascii", stl.ASCII),
		a.convertCmd("binary", stl.Binary),
		a.infoCmd(),
		a.runCmd(),
		a.serveCmd(),
	)
	return root
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("stl: ")
	logger := log.New(os.Stderr, "stl: ", 0)
	mesh.SetLogger(logger)
	stl.SetLogger(logger)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
