package cmd

import (
	"github.com/encodeous/moss/core"
	"github.com/encodeous/moss/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run moss",
	Long:  `This will run a moss node on the current host, using the UDP radio emulation described by the node config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logPath, _ := cmd.Flags().GetString("log")
		debugAddr, _ := cmd.Flags().GetString("debug-addr")
		return core.Bootstrap(state.NodeConfigPath, logPath, debugAddr, verbose)
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	runCmd.Flags().String("debug-addr", "", "Serve /debug/metrics and /debug/vars on this address")
	runCmd.Flags().BoolVarP(&state.DBG_log_flood, "lflood", "f", false, "Write flooding decisions to console")
	runCmd.Flags().BoolVarP(&state.DBG_log_hello, "lhello", "p", false, "Write discovery beacons to console")
	runCmd.Flags().BoolVarP(&state.DBG_log_data, "ldata", "d", false, "Write dropped data packets to console")
	runCmd.Flags().BoolVarP(&state.DBG_log_route_table, "ltable", "t", false, "Outputs route table to the console")
	runCmd.Flags().BoolVarP(&state.DBG_log_route_changes, "lrchange", "g", false, "Outputs route changes to the console")
}
