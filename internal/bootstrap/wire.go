package bootstrap

import (
	"io"

	"github.com/rs/zerolog"

	"meetnote/internal/config"
	"meetnote/internal/devices"
	"meetnote/internal/engine"
	"meetnote/internal/logging"
	"meetnote/internal/ports"
	"meetnote/internal/settings"
	"meetnote/internal/sqlite"
	"meetnote/internal/store"
	"meetnote/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config      config.Config
	Log         zerolog.Logger
	Engine      ports.Engine
	Proxy       *store.Proxy
	Pager       *store.Pager
	Registry    *devices.Registry
	Feed        *usecase.Feed
	Coordinator *usecase.Coordinator

	closers []io.Closer
}

// Build wires all backend dependencies for the current runtime.
func Build(events ports.EventSink) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logging.New(cfg.Log.Dir)
	if err != nil {
		return nil, err
	}

	svc := &Services{Config: cfg, Log: log}
	svc.closers = append(svc.closers, logCloser)

	engineClient, err := engine.Connect(cfg.Engine.SocketPath, cfg.Engine.DialTimeout, log)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Engine = engineClient
	svc.closers = append(svc.closers, engineClient)

	conversationStore, err := sqlite.Open(cfg.Store.DatabasePath)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.closers = append(svc.closers, conversationStore)

	settingsStore, err := settings.Open(cfg.Settings.Path, log)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.closers = append(svc.closers, settingsStore)

	svc.Proxy = store.NewProxy(conversationStore, engineClient, log)
	svc.Pager = store.NewPager(svc.Proxy)
	svc.Registry = devices.NewRegistry(engineClient, settingsStore, log)
	svc.Feed = usecase.NewFeed(engineClient, events, cfg.Feed.PollInterval, log)
	svc.Coordinator = usecase.NewCoordinator(svc.Proxy, engineClient, svc.Registry, svc.Feed, events, log)

	return svc, nil
}

// Close releases everything Build opened, newest first.
func (s *Services) Close() {
	if s.Feed != nil {
		s.Feed.Stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}
