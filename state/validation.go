package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NodeConfigValidator(node *NodeCfg) error {
	err := validate.Struct(node)
	if err != nil {
		return fmt.Errorf("invalid node config: %w", err)
	}
	if node.StalenessWindow <= 2*node.AdvertiseInterval {
		return fmt.Errorf("staleness_window_ms (%d) must exceed twice advertise_interval_ms (%d)", node.StalenessWindow, node.AdvertiseInterval)
	}
	seen := make(map[NodeId]struct{})
	for _, p := range node.Peers {
		if p.Id == node.Id {
			return fmt.Errorf("peer %s is the local node", p.Id)
		}
		if _, ok := seen[p.Id]; ok {
			return fmt.Errorf("duplicate peer %s", p.Id)
		}
		seen[p.Id] = struct{}{}
	}
	if len(node.Peers) > node.MaxNeighbours {
		return fmt.Errorf("%d peers configured but max_neighbours is %d", len(node.Peers), node.MaxNeighbours)
	}
	if node.LogPath != "" {
		if err := PathValidator(node.LogPath); err != nil {
			return fmt.Errorf("log_path: %w", err)
		}
	}
	return nil
}
