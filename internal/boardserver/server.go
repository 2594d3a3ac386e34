package boardserver

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-LocalChess/internal/archive"
	"github.com/park285/Cheese-LocalChess/internal/boardview"
	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/session"
	"github.com/park285/Cheese-LocalChess/pkg/chessdto"
)

//go:embed web/index.html
var indexHTML []byte

const requestTimeout = 5 * time.Second

type Options struct {
	Service   *session.Service
	Canvas    *boardview.Canvas
	Presenter *chesspresenter.Presenter
	Archive   archive.Archive
	// FeedURL is advertised to the page, e.g. ws://127.0.0.1:8081/feed.
	FeedURL string
	Logger  *zap.Logger
}

// Server hosts the board page and turns HTTP requests into session events.
type Server struct {
	svc       *session.Service
	canvas    *boardview.Canvas
	presenter *chesspresenter.Presenter
	archive   archive.Archive
	feedURL   string
	log       *zap.Logger
	srv       *fasthttp.Server
}

func New(opts Options) *Server {
	s := &Server{
		svc:       opts.Service,
		canvas:    opts.Canvas,
		presenter: opts.Presenter,
		archive:   opts.Archive,
		feedURL:   opts.FeedURL,
		log:       opts.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "local-chess",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("board_http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler routes requests. Commands answer with the post-event snapshot JSON.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		switch {
		case ctx.IsGet() && path == "/":
			ctx.SetContentType("text/html; charset=utf-8")
			ctx.SetBody(indexHTML)
		case ctx.IsGet() && path == "/board.png":
			s.handleBoard(ctx)
		case ctx.IsGet() && path == "/state":
			s.respond(ctx, func(c context.Context) (session.Snapshot, error) { return s.svc.Snapshot(c) })
		case ctx.IsGet() && path == "/config":
			writeJSON(ctx, fasthttp.StatusOK, map[string]string{"feed": s.feedURL})
		case ctx.IsGet() && path == "/results":
			s.handleResults(ctx)
		case ctx.IsGet() && path == "/results/tally":
			s.handleTally(ctx)
		case ctx.IsPost() && path == "/tap":
			s.handleTap(ctx)
		case ctx.IsPost() && path == "/square":
			s.handleSquare(ctx)
		case ctx.IsPost() && path == "/promote":
			s.handlePromote(ctx)
		case ctx.IsPost() && path == "/promote/cancel":
			s.respond(ctx, s.svc.CancelPromotion)
		case ctx.IsPost() && path == "/undo":
			s.respond(ctx, s.svc.Undo)
		case ctx.IsPost() && path == "/flip":
			s.respond(ctx, s.svc.Flip)
		case ctx.IsPost() && path == "/reset":
			s.respond(ctx, s.svc.Reset)
		case ctx.IsPost() && path == "/new":
			s.handleNewGame(ctx)
		default:
			writeError(ctx, fasthttp.StatusNotFound, "not_found", "unknown route "+path)
		}
	}
}

func (s *Server) respond(ctx *fasthttp.RequestCtx, fn func(context.Context) (session.Snapshot, error)) {
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	snap, err := fn(c)
	if err != nil {
		if errors.Is(err, session.ErrLoopClosed) || errors.Is(err, context.DeadlineExceeded) {
			writeError(ctx, fasthttp.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
		writeError(ctx, fasthttp.StatusBadRequest, "rejected", err.Error())
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, s.dto(snap))
}

func (s *Server) dto(snap session.Snapshot) *chessdto.Snapshot {
	var notice *chesspresenter.Notice
	if s.presenter != nil {
		if n, ok := s.presenter.Current(); ok {
			notice = &n
		}
	}
	return chesspresenter.ToDTOSnapshot(snap, notice)
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx) {
	if s.canvas == nil {
		writeError(ctx, fasthttp.StatusNotFound, "no_canvas", "board rendering disabled")
		return
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	data, err := s.canvas.PNG(c)
	if err != nil {
		s.log.Warn("board_render_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(data)
}

func (s *Server) handleTap(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	x, errX := args.GetUint("x")
	y, errY := args.GetUint("y")
	if errX != nil || errY != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_point", "x and y must be non-negative integers")
		return
	}
	s.respond(ctx, func(c context.Context) (session.Snapshot, error) { return s.svc.Tap(c, x, y) })
}

func (s *Server) handleSquare(ctx *fasthttp.RequestCtx) {
	sq, err := domain.ParseSquare(string(ctx.QueryArgs().Peek("sq")))
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_square", err.Error())
		return
	}
	s.respond(ctx, func(c context.Context) (session.Snapshot, error) { return s.svc.Activate(c, sq) })
}

func (s *Server) handlePromote(ctx *fasthttp.RequestCtx) {
	kind, ok := domain.ParsePieceKind(string(ctx.QueryArgs().Peek("piece")))
	if !ok || !kind.Promotable() {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_piece", "piece must be queen, rook, bishop or knight")
		return
	}
	s.respond(ctx, func(c context.Context) (session.Snapshot, error) { return s.svc.Promote(c, kind) })
}

func (s *Server) handleNewGame(ctx *fasthttp.RequestCtx) {
	cfg, err := ParseSessionConfig(ctx.QueryArgs())
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_config", err.Error())
		return
	}
	if s.presenter != nil {
		s.presenter.Clear()
	}
	s.respond(ctx, func(c context.Context) (session.Snapshot, error) { return s.svc.NewGame(c, cfg) })
}

func (s *Server) handleResults(ctx *fasthttp.RequestCtx) {
	if s.archive == nil {
		writeError(ctx, fasthttp.StatusNotFound, "no_archive", "result archive not configured")
		return
	}
	limit, err := ctx.QueryArgs().GetUint("limit")
	if err != nil {
		limit = 0
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	games, err := s.archive.Recent(c, limit)
	if err != nil {
		s.log.Warn("archive_read_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "archive_failed", err.Error())
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, games)
}

// handleTally serves per-score counters when the archive keeps them.
func (s *Server) handleTally(ctx *fasthttp.RequestCtx) {
	t, ok := s.archive.(archive.Tallier)
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, "no_tally", "result archive does not keep a tally")
		return
	}
	c, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	tally, err := t.Tally(c)
	if err != nil {
		s.log.Warn("archive_tally_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "archive_failed", err.Error())
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, tally)
}

// ParseSessionConfig reads mode, minutes, seconds and increment (seconds) query args.
// Missing values default to a standard five minute game without increment.
func ParseSessionConfig(args *fasthttp.Args) (domain.SessionConfig, error) {
	num := func(key string, def int) (int, error) {
		raw := strings.TrimSpace(string(args.Peek(key)))
		if raw == "" {
			return def, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, errors.New(key + " must be an integer")
		}
		return n, nil
	}
	modeN, err := num("mode", int(domain.Standard))
	if err != nil {
		return domain.SessionConfig{}, err
	}
	mode, err := domain.ParseGameMode(modeN)
	if err != nil {
		return domain.SessionConfig{}, err
	}
	minutes, err := num("minutes", 5)
	if err != nil {
		return domain.SessionConfig{}, err
	}
	seconds, err := num("seconds", 0)
	if err != nil {
		return domain.SessionConfig{}, err
	}
	inc, err := num("increment", 0)
	if err != nil {
		return domain.SessionConfig{}, err
	}
	if minutes < 0 || seconds < 0 || inc < 0 {
		return domain.SessionConfig{}, domain.ErrNegativeTime
	}
	cfg := domain.SessionConfig{
		Mode:        mode,
		BaseTimeMs:  int64(minutes)*60_000 + int64(seconds)*1000,
		IncrementMs: int64(inc) * 1000,
	}
	return cfg, cfg.Validate()
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error("encode response", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, message string) {
	writeJSON(ctx, status, chessdto.DomainError{Code: code, Message: message})
}
