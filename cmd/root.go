package cmd

import (
	"os"

	"github.com/encodeous/moss/state"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moss",
	Short: "moss link-state routing node",
	Long: `moss is a link-state routing core for multi-hop sensor networks.
Each node discovers its neighbours, floods sequence-numbered link-state advertisements and computes shortest paths to every reachable node.`,
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
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Initialize moss",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ny",
		Title: "moss Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&state.NodeConfigPath, "node-config", "n", state.NodeConfigPath, "node-specific config")
}
