package chessbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-LocalChess/internal/archive"
	"github.com/park285/Cheese-LocalChess/internal/boardserver"
	"github.com/park285/Cheese-LocalChess/internal/boardview"
	"github.com/park285/Cheese-LocalChess/internal/chess"
	"github.com/park285/Cheese-LocalChess/internal/config"
	"github.com/park285/Cheese-LocalChess/internal/msgcat"
	"github.com/park285/Cheese-LocalChess/internal/session"
)

type Deps struct {
	Service   *session.Service
	Canvas    *boardview.Canvas
	Presenter *chesspresenter.Presenter
	Archive   archive.Archive
	Recorder  *archive.Recorder
	Feed      *boardserver.Feed
	Server    *boardserver.Server
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	presenter := chesspresenter.NewPresenter(chesspresenter.NewFormatter(catalog), nil)
	canvas := boardview.NewCanvas(cfg.SquareSize)

	store, err := openArchive(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rec := archive.NewRecorder(store, time.Duration(cfg.ArchiveTimeout)*time.Second, logger)

	feed := boardserver.NewFeed(logger)
	publish := func(s session.Snapshot) {
		var notice *chesspresenter.Notice
		if n, ok := presenter.Current(); ok {
			notice = &n
		}
		feed.Publish(chesspresenter.ToDTOSnapshot(s, notice))
	}

	svc, err := session.NewService(ctx, session.ServiceOptions{
		Session: session.Options{
			Config:   cfg.Session(),
			NewRules: func() session.Rules { return chess.NewEngine() },
			Army:     chess.NewArmyGenerator(),
			View:     canvas,
			Notifier: presenter,
			Logger:   logger,
			OnFinish: rec.Record,
		},
		Hit:      canvas,
		OnChange: publish,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}

	server := boardserver.New(boardserver.Options{
		Service:   svc,
		Canvas:    canvas,
		Presenter: presenter,
		Archive:   store,
		FeedURL:   FeedURL(cfg.WSAddr),
		Logger:    logger,
	})

	return &Deps{
		Service:   svc,
		Canvas:    canvas,
		Presenter: presenter,
		Archive:   store,
		Recorder:  rec,
		Feed:      feed,
		Server:    server,
	}, nil
}

// openArchive picks Redis and/or Postgres when configured, else an in-process archive.
func openArchive(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (archive.Archive, error) {
	var stores archive.Multi
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := archive.OpenRedis(ctx, cfg.RedisURL, cfg.ResultsLimit)
		if err != nil {
			return nil, fmt.Errorf("init redis archive: %w", err)
		}
		stores = append(stores, rs)
		logger.Info("archive_backend", zap.String("kind", "redis"))
	}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := archive.OpenRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("init postgres archive: %w", err)
		}
		stores = append(stores, repo)
		logger.Info("archive_backend", zap.String("kind", "postgres"))
	}
	switch len(stores) {
	case 0:
		logger.Info("archive_backend", zap.String("kind", "memory"))
		return archive.NewMemory(cfg.ResultsLimit), nil
	case 1:
		return stores[0], nil
	default:
		return stores, nil
	}
}

// FeedURL turns a listen address into the websocket URL the page connects to.
func FeedURL(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "ws://" + addr + "/feed"
}

// Close stops the session, waits for pending archive writes and closes backends.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	if d.Service != nil {
		d.Service.Close()
	}
	d.Recorder.Wait()
	if d.Archive != nil {
		return d.Archive.Close()
	}
	return nil
}
