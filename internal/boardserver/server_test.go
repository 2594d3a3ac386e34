package boardserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/Cheese-LocalChess/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-LocalChess/internal/archive"
	"github.com/park285/Cheese-LocalChess/internal/boardview"
	"github.com/park285/Cheese-LocalChess/internal/chess"
	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/session"
	"github.com/park285/Cheese-LocalChess/pkg/chessdto"
)

type testHost struct {
	server  *Server
	client  *fasthttp.Client
	canvas  *boardview.Canvas
	archive *archive.Memory
	feed    *Feed
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	canvas := boardview.NewCanvas(32)
	presenter := chesspresenter.NewPresenter(nil, nil)
	mem := archive.NewMemory(10)
	rec := archive.NewRecorder(mem, time.Second, nil)
	feed := NewFeed(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc, err := session.NewService(ctx, session.ServiceOptions{
		Session: session.Options{
			Config:   domain.SessionConfig{Mode: domain.Standard, BaseTimeMs: 300000},
			NewRules: func() session.Rules { return chess.NewEngine() },
			Army:     chess.NewArmyGenerator(),
			View:     canvas,
			Notifier: presenter,
			OnFinish: rec.Record,
		},
		Hit: canvas,
		OnChange: func(s session.Snapshot) {
			feed.Publish(chesspresenter.ToDTOSnapshot(s, nil))
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)
	t.Cleanup(rec.Wait)

	srv := New(Options{
		Service:   svc,
		Canvas:    canvas,
		Presenter: presenter,
		Archive:   mem,
		FeedURL:   "ws://example/feed",
	})
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return &testHost{server: srv, client: client, canvas: canvas, archive: mem, feed: feed}
}

func (h *testHost) do(t *testing.T, method, uri string) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(method)
	req.SetRequestURI("http://board" + uri)
	if err := h.client.DoTimeout(req, resp, 5*time.Second); err != nil {
		t.Fatalf("%s %s: %v", method, uri, err)
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func (h *testHost) snapshot(t *testing.T, method, uri string) chessdto.Snapshot {
	t.Helper()
	status, body := h.do(t, method, uri)
	if status != fasthttp.StatusOK {
		t.Fatalf("%s %s: status %d body %s", method, uri, status, body)
	}
	var snap chessdto.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode %s: %v", uri, err)
	}
	return snap
}

func TestIndexAndConfig(t *testing.T) {
	h := newTestHost(t)
	status, body := h.do(t, fasthttp.MethodGet, "/")
	if status != fasthttp.StatusOK || !strings.Contains(string(body), "board.png") {
		t.Fatalf("index: %d", status)
	}
	_, body = h.do(t, fasthttp.MethodGet, "/config")
	if !strings.Contains(string(body), "ws://example/feed") {
		t.Fatalf("config = %s", body)
	}
}

func TestBoardPNG(t *testing.T) {
	h := newTestHost(t)
	status, body := h.do(t, fasthttp.MethodGet, "/board.png")
	if status != fasthttp.StatusOK {
		t.Fatalf("status %d", status)
	}
	if _, err := png.Decode(bytes.NewReader(body)); err != nil {
		t.Fatalf("decode png: %v", err)
	}
}

func TestSquareCommandsPlayMoves(t *testing.T) {
	h := newTestHost(t)
	snap := h.snapshot(t, fasthttp.MethodPost, "/square?sq=e2")
	if snap.Selection.State != "selected" || len(snap.Selection.Destinations) != 2 {
		t.Fatalf("selection = %+v", snap.Selection)
	}
	snap = h.snapshot(t, fasthttp.MethodPost, "/square?sq=e4")
	if snap.LastMove != "e2e4" || snap.SideToMove != "Black" || snap.Board["e4"] != "P" {
		t.Fatalf("move not applied: %+v", snap)
	}
	snap = h.snapshot(t, fasthttp.MethodPost, "/undo")
	if snap.Ply != 0 || snap.Board["e2"] != "P" {
		t.Fatalf("undo failed: %+v", snap)
	}
}

func TestTapUsesCanvasGeometry(t *testing.T) {
	h := newTestHost(t)
	c := h.canvas.Geometry().Center(domain.MustSquare("g1"))
	snap := h.snapshot(t, fasthttp.MethodPost, "/tap?x="+strconv.Itoa(c.X)+"&y="+strconv.Itoa(c.Y))
	if snap.Selection.State != "selected" || snap.Selection.Square != "g1" {
		t.Fatalf("tap did not select g1: %+v", snap.Selection)
	}

	h.snapshot(t, fasthttp.MethodPost, "/flip")
	c = h.canvas.Geometry().Center(domain.MustSquare("f3"))
	snap = h.snapshot(t, fasthttp.MethodPost, "/tap?x="+strconv.Itoa(c.X)+"&y="+strconv.Itoa(c.Y))
	if snap.LastMove != "g1f3" || !snap.Flipped {
		t.Fatalf("flipped tap did not move: %+v", snap)
	}
}

func TestFoolsMateArchivesResult(t *testing.T) {
	h := newTestHost(t)
	for _, sq := range []string{"f2", "f3", "e7", "e5", "g2", "g4", "d8", "h4"} {
		h.snapshot(t, fasthttp.MethodPost, "/square?sq="+sq)
	}
	snap := h.snapshot(t, fasthttp.MethodGet, "/state")
	if snap.Result.Status != "checkmate" || snap.Result.Winner != "Black" {
		t.Fatalf("result = %+v", snap.Result)
	}
	if snap.Notice == nil || snap.Notice.Message != "Black wins! Checkmate!" || snap.Notice.Title != "Victory!" {
		t.Fatalf("notice = %+v", snap.Notice)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, body := h.do(t, fasthttp.MethodGet, "/results")
		var games []domain.FinishedGame
		if err := json.Unmarshal(body, &games); err != nil {
			t.Fatalf("decode results: %v", err)
		}
		if len(games) == 1 {
			if games[0].Result != "0-1" || games[0].Plies != 4 {
				t.Fatalf("archived = %+v", games[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("result was not archived")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_, body := h.do(t, fasthttp.MethodGet, "/results/tally")
	var tally map[string]int64
	if err := json.Unmarshal(body, &tally); err != nil {
		t.Fatalf("decode tally: %v", err)
	}
	if tally["0-1"] != 1 || len(tally) != 1 {
		t.Fatalf("tally = %v", tally)
	}

	snap = h.snapshot(t, fasthttp.MethodPost, "/reset")
	if snap.Result.Status != "ongoing" || snap.Notice != nil {
		t.Fatalf("reset should clear result and notice: %+v", snap)
	}
}

func TestPromotionFlow(t *testing.T) {
	h := newTestHost(t)
	snap := h.snapshot(t, fasthttp.MethodPost, "/promote?piece=queen")
	if snap.Selection.State != "idle" {
		t.Fatalf("promote outside a promotion must be ignored: %+v", snap.Selection)
	}
	status, _ := h.do(t, fasthttp.MethodPost, "/promote?piece=king")
	if status != fasthttp.StatusBadRequest {
		t.Fatalf("king promotion status = %d", status)
	}
}

func TestNewGameValidation(t *testing.T) {
	h := newTestHost(t)
	snap := h.snapshot(t, fasthttp.MethodPost, "/new?mode=2&minutes=1&seconds=30&increment=2")
	if snap.Mode != "random-army" || snap.BaseTimeMs != 90000 || snap.IncrementMs != 2000 {
		t.Fatalf("new game = %+v", snap)
	}
	if snap.ArmyBudget < chess.MinArmyBudget || snap.ArmyBudget > chess.MaxArmyBudget {
		t.Fatalf("army budget %d out of range", snap.ArmyBudget)
	}
	for _, uri := range []string{"/new?mode=9", "/new?minutes=-1", "/new?seconds=x"} {
		if status, _ := h.do(t, fasthttp.MethodPost, uri); status != fasthttp.StatusBadRequest {
			t.Fatalf("%s status = %d", uri, status)
		}
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestHost(t)
	cases := []struct {
		method, uri string
		status      int
	}{
		{fasthttp.MethodPost, "/tap?x=a&y=1", fasthttp.StatusBadRequest},
		{fasthttp.MethodPost, "/square?sq=z9", fasthttp.StatusBadRequest},
		{fasthttp.MethodGet, "/nope", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/undo", fasthttp.StatusNotFound},
	}
	for _, tc := range cases {
		if status, _ := h.do(t, tc.method, tc.uri); status != tc.status {
			t.Fatalf("%s %s = %d, want %d", tc.method, tc.uri, status, tc.status)
		}
	}
}

func TestParseSessionConfigDefaults(t *testing.T) {
	var args fasthttp.Args
	cfg, err := ParseSessionConfig(&args)
	if err != nil {
		t.Fatalf("ParseSessionConfig: %v", err)
	}
	if cfg.Mode != domain.Standard || cfg.BaseTimeMs != 300000 || cfg.IncrementMs != 0 {
		t.Fatalf("defaults = %+v", cfg)
	}
	args.Parse("minutes=0&seconds=0")
	cfg, err = ParseSessionConfig(&args)
	if err != nil || cfg.Timed() {
		t.Fatalf("zero time should be untimed: %+v, %v", cfg, err)
	}
}
