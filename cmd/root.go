package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "canvas",
	Short: "content canvas tool",
	Example: `canvas serve
canvas context set -a <actor-id> -n <name> -w <workspace-id>
canvas workspace create -n <name>
canvas block add -t pain-point --title <title>
canvas block list -s draft
canvas block status -b <block-id> -s in-review
canvas review request -b <block-id> -r <reviewer-id>
canvas review complete -i <review-id> --approve
canvas block publish -b <block-id>
canvas snapshot create -l <label>
canvas undo`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(contextCommand)
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
