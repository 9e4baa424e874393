package cmd

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/encodeous/moss/state"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// parsePeer parses id=addr[:cost], e.g. 2=127.0.0.1:57200 or 2=127.0.0.1:57200/4
func parsePeer(s string) (state.PeerCfg, error) {
	id, rest, ok := strings.Cut(s, "=")
	if !ok {
		return state.PeerCfg{}, fmt.Errorf("peer %q must look like id=addr:port[/cost]", s)
	}
	pid, err := strconv.ParseUint(id, 10, 16)
	if err != nil {
		return state.PeerCfg{}, fmt.Errorf("peer id %q: %w", id, err)
	}
	addr, costStr, hasCost := strings.Cut(rest, "/")
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return state.PeerCfg{}, err
	}
	peer := state.PeerCfg{Id: state.NodeId(pid), Addr: ap, Cost: state.DefaultLinkCost}
	if hasCost {
		cost, err := strconv.ParseUint(costStr, 10, 16)
		if err != nil || cost == 0 {
			return state.PeerCfg{}, fmt.Errorf("peer cost %q must be between 1 and 65535", costStr)
		}
		peer.Cost = uint16(cost)
	}
	return peer, nil
}

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Create a node configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		id, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid node id %q: %w", args[0], err)
		}
		port, _ := cmd.Flags().GetUint16("port")
		peers, _ := cmd.Flags().GetStringSlice("peer")

		nodeCfg := state.DefaultNodeCfg(state.NodeId(id))
		nodeCfg.Bind = netip.AddrPortFrom(netip.IPv4Unspecified(), port)
		nodeCfg.IPCPath, _ = cmd.Flags().GetString("socket")
		for _, p := range peers {
			peer, err := parsePeer(p)
			if err != nil {
				return err
			}
			nodeCfg.Peers = append(nodeCfg.Peers, peer)
		}
		err = state.NodeConfigValidator(&nodeCfg)
		if err != nil {
			return err
		}

		ncfg, err := yaml.Marshal(&nodeCfg)
		if err != nil {
			return err
		}

		outPath := cmd.Flag("output").Value.String()
		return os.WriteFile(outPath, ncfg, 0600)
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("output", "o", "node.yaml", "output path")
	newCmd.Flags().Uint16P("port", "p", uint16(state.DefaultPort), "udp port to bind")
	newCmd.Flags().StringSlice("peer", nil, "peer as id=addr:port[/cost], may be repeated")
	newCmd.Flags().String("socket", "", "ipc socket used by moss inspect")
}
