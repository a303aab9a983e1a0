package cmd

import (
	"github.com/spf13/cobra"
)

var (
	chdir      string
	configFile string
)

func Root() *cobra.Command {
	cmd := cobra.Command{
		Use:           "mathedit",
		Short:         "Render and edit documents with live-editable math",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVar(&chdir, "chdir", ".", "Switch to a different working directory before executing the command.")
	pflags.StringVar(&configFile, "config", "", "Path to a configuration file. By default mathedit.yaml files are looked up from the working directory down to the document.")

	cmd.AddCommand(renderCmd())
	cmd.AddCommand(replayCmd())

	return &cmd
}
