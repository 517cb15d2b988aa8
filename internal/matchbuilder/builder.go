// Package matchbuilder wires configuration into a running match.
package matchbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/internal/chess/eco"
	"github.com/park285/cheese-chess/internal/chess/uci"
	"github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/httpapi"
	"github.com/park285/cheese-chess/internal/msgcat"
	"github.com/park285/cheese-chess/internal/publish"
	"github.com/park285/cheese-chess/internal/service/match"
)

type Deps struct {
	Controller *match.Controller
	Engine     *chess.Engine
	Catalog    *msgcat.Catalog
	Redis      *redis.Client
	Publisher  *publish.Publisher
	HTTP       *httpapi.Server

	cfg           *config.AppConfig
	logger        *zap.Logger
	publisherDone chan struct{}
}

// New builds every component the configuration asks for. Redis and HTTP are
// optional; the engine is created whenever a binary path is configured.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{cfg: cfg, logger: logger}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = cat

	var searcher match.Searcher
	if path := strings.TrimSpace(cfg.StockfishPath); path != "" {
		d.Engine = chess.NewEngine(chess.ProcessFactory{
			BinaryPath: path,
			Options:    uci.Options{Threads: cfg.EngineThreads, HashMB: cfg.EngineHashMB},
			Logger:     logger.Named("uci"),
		}, chess.WithLogger(logger.Named("engine")))
		searcher = d.Engine
	}

	settings := match.SettingsFromView(cfg.Match.View())
	if settings.Mode == match.HumanVsComputer && searcher == nil {
		return nil, errors.New("STOCKFISH_PATH is required to play against the computer")
	}
	ctrl, err := match.NewController(settings, searcher,
		match.WithLogger(logger.Named("match")),
		match.WithComputerDelay(cfg.ComputerDelay),
		match.WithOpeningBook(eco.NewBook()),
	)
	if err != nil {
		d.closeEngine()
		return nil, err
	}
	d.Controller = ctrl

	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := publish.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			d.closeEngine()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.Redis = rdb
		d.Publisher = publish.New(rdb, publish.WithTTL(cfg.SnapshotTTL), publish.WithLogger(logger.Named("publish")))
	}
	if strings.TrimSpace(cfg.HTTPAddr) != "" {
		d.HTTP = httpapi.New(ctrl, httpapi.WithLogger(logger.Named("http")))
	}
	return d, nil
}

// Start launches the engine handshake, the match and the optional
// transports. It returns once everything is running.
func (d *Deps) Start(ctx context.Context) error {
	if d.Engine != nil {
		d.Engine.Start(ctx)
	}
	if err := d.Controller.Start(ctx); err != nil {
		return err
	}
	if d.Publisher != nil {
		updates, _ := d.Controller.Subscribe(16)
		d.publisherDone = make(chan struct{})
		go func() {
			defer close(d.publisherDone)
			d.Publisher.Run(ctx, updates)
		}()
	}
	if d.HTTP != nil {
		go func() {
			if err := d.HTTP.ListenAndServe(d.cfg.HTTPAddr); err != nil {
				d.logger.Error("http server stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

// Close shuts everything down in reverse order and removes the cached
// snapshot from Redis.
func (d *Deps) Close() {
	if d.HTTP != nil {
		if err := d.HTTP.Shutdown(); err != nil {
			d.logger.Warn("http shutdown", zap.Error(err))
		}
	}
	d.Controller.Close()
	if d.publisherDone != nil {
		select {
		case <-d.publisherDone:
		case <-time.After(2 * time.Second):
			d.logger.Warn("publisher did not stop")
		}
	}
	if d.Publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := d.Publisher.Clear(ctx, d.Controller.ID()); err != nil {
			d.logger.Warn("clear cached snapshot", zap.Error(err))
		}
		cancel()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	d.closeEngine()
}

func (d *Deps) closeEngine() {
	if d.Engine != nil {
		_ = d.Engine.Close()
	}
}
