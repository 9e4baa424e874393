package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/encodeous/moss/core"
	"github.com/encodeous/moss/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// ipcPath resolves the socket from --socket, falling back to the node config.
func ipcPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("socket"); p != "" {
		return p, nil
	}
	file, err := os.ReadFile(state.NodeConfigPath)
	if err != nil {
		return "", err
	}
	var cfg state.NodeCfg
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return "", err
	}
	if cfg.IPCPath == "" {
		return "", fmt.Errorf("%s has no ipc_path", state.NodeConfigPath)
	}
	return cfg.IPCPath, nil
}

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Inspects the current state of a running node",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := ipcPath(cmd)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		result, err := core.IPCGet(path, "inspect")
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Print(result)
	},
	GroupID: "ny",
}

var sendCmd = &cobra.Command{
	Use:   "send <dest> <payload...>",
	Short: "Sends a payload from a running node",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path, err := ipcPath(cmd)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		result, err := core.IPCGet(path, "send "+strings.Join(args, " "))
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Print(result)
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(sendCmd)
	inspectCmd.Flags().StringP("socket", "s", "", "ipc socket of the node")
	sendCmd.Flags().StringP("socket", "s", "", "ipc socket of the node")
}
