package boardserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-LocalChess/pkg/chessdto"
)

func dialFeed(t *testing.T, f *Feed) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(f.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/feed", nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) chessdto.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var snap chessdto.Snapshot
	if err := wsjson.Read(ctx, conn, &snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	return snap
}

func TestFeedSendsLatestThenUpdates(t *testing.T) {
	f := NewFeed(nil)
	f.Publish(&chessdto.Snapshot{SessionID: "s1", Ply: 0})

	conn := dialFeed(t, f)
	if got := readSnapshot(t, conn); got.SessionID != "s1" {
		t.Fatalf("first frame = %+v", got)
	}

	f.Publish(&chessdto.Snapshot{SessionID: "s1", Ply: 1, LastMove: "e2e4"})
	if got := readSnapshot(t, conn); got.Ply != 1 || got.LastMove != "e2e4" {
		t.Fatalf("update frame = %+v", got)
	}
}

func TestFeedDropsClientOnShutdown(t *testing.T) {
	f := NewFeed(nil)
	f.Publish(&chessdto.Snapshot{SessionID: "s1"})
	conn := dialFeed(t, f)
	readSnapshot(t, conn)

	if f.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", f.Subscribers())
	}
	if err := f.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Fatalf("read after shutdown err = %v", err)
	}
}

func TestFeedPublishNeverBlocks(t *testing.T) {
	f := NewFeed(nil)
	ch, _ := f.subscribe()
	defer f.unsubscribe(ch)
	for i := 0; i < feedBuffer*4; i++ {
		f.Publish(&chessdto.Snapshot{Ply: i})
	}
	var last *chessdto.Snapshot
	for len(ch) > 0 {
		last = <-ch
	}
	if last == nil || last.Ply != feedBuffer*4-1 {
		t.Fatalf("newest frame must survive, got %+v", last)
	}
}
