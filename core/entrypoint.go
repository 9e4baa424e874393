package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"github.com/encodeous/moss/link"
	"github.com/encodeous/moss/perf"
	"github.com/encodeous/moss/state"
	"github.com/encodeous/tint"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/sync/errgroup"
)

func readNodeConfig(nodePath string) (*state.NodeCfg, error) {
	var nodeCfg state.NodeCfg
	file, err := os.ReadFile(nodePath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &nodeCfg)
	if err != nil {
		return nil, err
	}
	return &nodeCfg, nil
}

// logApplication is the application used by the daemon: it logs every payload addressed to this node.
type logApplication struct {
	log *slog.Logger
}

func (a *logApplication) Deliver(src state.NodeId, payload []byte) {
	a.log.Info("received payload", "from", src, "len", len(payload), "payload", string(payload))
}

// Bootstrap runs a node from its configuration file until it receives SIGINT or SIGTERM.
func Bootstrap(nodePath, logPath, debugAddr string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	cfg, err := readNodeConfig(nodePath)
	if err != nil {
		return err
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	state.ExpandNodeConfig(cfg)
	err = state.NodeConfigValidator(cfg)
	if err != nil {
		return err
	}

	if !cfg.Bind.IsValid() {
		return fmt.Errorf("node %s has no bind address", cfg.Id)
	}
	transport, err := link.ListenUDP(cfg.Bind, cfg.Id, cfg.PeerAddrs())
	if err != nil {
		return err
	}

	s, err := New(*cfg, transport, nil, level)
	if err != nil {
		return err
	}
	s.App = &logApplication{log: s.Log}
	transport.OnMalformed = func(err error) {
		Get[*MossRouter](s).CountMalformed(state.BroadcastId, err)
	}
	transport.OnUnknownSource = func(addr netip.AddrPort) {
		s.Stats.UnknownSource.Add(1)
		s.Log.Debug("dropped frame from unknown address", "addr", addr)
	}

	if debugAddr != "" {
		go func() {
			s.Log.Info("serving metrics", "addr", debugAddr, "path", "/debug/metrics")
			err := http.ListenAndServe(debugAddr, nil)
			if err != nil {
				s.Log.Error("metrics server stopped", "err", err)
			}
		}()
	}

	s.Log.Info("moss has been initialized. To gracefully exit, send SIGINT or Ctrl+C.")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			s.Cancel(errors.New("received shutdown signal"))
		case <-s.Context.Done():
			return
		}
	}()

	return Run(s)
}

// New builds a node and initializes its modules. The node does nothing until Run is called.
func New(cfg state.NodeCfg, transport state.Transport, app state.Application, logLevel slog.Level) (*state.State, error) {
	ctx, cancel := context.WithCancelCause(context.Background())

	dispatch := make(chan func(env *state.State) error, state.DispatchBacklog)

	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: cfg.Id.String(),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if cfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(cfg.LogPath), 0700)
		if err != nil {
			cancel(err)
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			cancel(err)
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	logger := slog.New(
		slogmulti.Fanout(handlers...))

	s := &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			NodeCfg:         cfg,
			Log:             logger,
			Transport:       transport,
			App:             app,
			Stats:           &state.Stats{},
		},
	}

	s.Log.Info("init modules")
	err := initModules(s)
	if err != nil {
		cancel(err)
		return nil, err
	}
	s.Log.Info("init modules complete")
	return s, nil
}

// Run drives the main loop, the transport and the optional IPC listener until the node is cancelled.
func Run(s *state.State) error {
	r := Get[*MossRouter](s)
	g, ctx := errgroup.WithContext(s.Context)
	g.Go(func() error {
		err := s.Transport.Run(ctx, r.Receive)
		if err != nil {
			s.Cancel(fmt.Errorf("transport stopped: %w", err))
		}
		return err
	})
	if s.IPCPath != "" {
		g.Go(func() error {
			err := ServeIPC(ctx, s, s.IPCPath)
			if err != nil {
				s.Cancel(fmt.Errorf("ipc stopped: %w", err))
			}
			return err
		})
	}
	g.Go(func() error {
		return MainLoop(s, s.DispatchChannel)
	})
	return g.Wait()
}

func initModules(s *state.State) error {
	var modules []state.NyModule
	modules = append(modules, &MossRouter{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*4 {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
			Stop(s)
			return nil
		}
	}
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Info("stopped")
}
