package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/encodeous/moss/state"
)

func IPCGet(path string, command string) (string, error) {
	conn, err := net.DialTimeout("unix", path, time.Second*5)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	_, err = rw.WriteString(command + "\n")
	if err != nil {
		return "", err
	}
	err = rw.Flush()
	if err != nil {
		return "", err
	}

	res, err := rw.ReadString(0)
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSuffix(res, "\x00"), nil
}

// ServeIPC answers inspection requests on a unix socket until ctx is cancelled.
func ServeIPC(ctx context.Context, s *state.State, path string) error {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer os.Remove(path)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(time.Second * 10))
			rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
			err := HandleIPC(s, rw)
			if err != nil {
				s.Log.Debug("ipc request failed", "err", err)
			}
		}()
	}
}

func HandleIPC(s *state.State, rw *bufio.ReadWriter) error {
	line, err := rw.ReadString('\n')
	if err != nil {
		return err
	}
	var res string
	line = strings.TrimRight(line, "\r\n")
	command, args, _ := strings.Cut(strings.TrimLeft(line, " "), " ")
	if command == "" {
		return errors.New("empty command")
	}
	switch command {
	case "inspect":
		out, err := s.DispatchWait(func(s *state.State) (any, error) {
			return Inspect(s), nil
		})
		if err != nil {
			return err
		}
		res = out.(string)
	case "send":
		// the payload is everything after the single space that follows the destination
		destStr, payload, ok := strings.Cut(strings.TrimLeft(args, " "), " ")
		if !ok || payload == "" {
			res = "usage: send <dest> <payload>\n"
			break
		}
		dest, err := strconv.ParseUint(destStr, 10, 16)
		if err != nil {
			res = fmt.Sprintf("invalid destination %q\n", destStr)
			break
		}
		r := Get[*MossRouter](s)
		err = r.Send([]byte(payload), state.NodeId(dest))
		if err != nil {
			res = fmt.Sprintf("error: %s\n", err)
		} else {
			res = "ok\n"
		}
	default:
		return fmt.Errorf("unknown command %s", command)
	}
	_, err = rw.WriteString(res)
	if err != nil {
		return err
	}
	err = rw.WriteByte(0)
	if err != nil {
		return err
	}
	return rw.Flush()
}

// Inspect renders the link table, topology database and routing table. It must run on the main loop.
func Inspect(s *state.State) string {
	r := Get[*MossRouter](s)
	now := time.Now()
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Node %s (seqno: %d)\n", s.NodeCfg.Id, s.Links.Seqno()))

	sb.WriteString("\nNeighbours:\n")
	neighs := s.Links.Neighbours()
	if len(neighs) == 0 {
		sb.WriteString(" (none)\n")
	}
	for _, n := range neighs {
		sb.WriteString(fmt.Sprintf(" - %s cost %d, heard %.2fs ago\n", n.Id, n.Cost, now.Sub(n.LastHeard).Seconds()))
	}

	sb.WriteString("\nTopology:\n")
	entries := s.Topology.Entries()
	if len(entries) == 0 {
		sb.WriteString(" (none)\n")
	}
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf(" - %s age %.2fs\n", e.Adv, now.Sub(e.ArrivedAt).Seconds()))
	}

	tbl := r.Table()
	sb.WriteString(fmt.Sprintf("\nRoute Table (generation %d):\n", tbl.Generation))
	for _, line := range strings.Split(tbl.String(), "\n") {
		sb.WriteString(" - " + line + "\n")
	}

	sb.WriteString("\nCounters:\n")
	for _, c := range s.Stats.Snapshot() {
		sb.WriteString(fmt.Sprintf(" - %s: %d\n", c.V1, c.V2))
	}
	return sb.String()
}
