package boardserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-LocalChess/pkg/chessdto"
)

const (
	feedBuffer       = 8
	feedWriteTimeout = 5 * time.Second
)

// Feed pushes every published snapshot to connected websocket clients.
// A new client first receives the latest snapshot.
type Feed struct {
	mu   sync.Mutex
	subs map[chan *chessdto.Snapshot]struct{}
	last *chessdto.Snapshot
	log  *zap.Logger

	srv       *http.Server
	done      chan struct{}
	closeOnce sync.Once
}

func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		subs: make(map[chan *chessdto.Snapshot]struct{}),
		log:  logger,
		done: make(chan struct{}),
	}
}

// Publish never blocks; a client that falls behind loses its oldest pending frame.
func (f *Feed) Publish(snap *chessdto.Snapshot) {
	if snap == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = snap
	for ch := range f.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) subscribe() (chan *chessdto.Snapshot, *chessdto.Snapshot) {
	ch := make(chan *chessdto.Snapshot, feedBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	last := f.last
	f.mu.Unlock()
	return ch, last
}

func (f *Feed) unsubscribe(ch chan *chessdto.Snapshot) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		f.log.Debug("feed_accept_error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed closed")

	// Clients only listen; CloseRead handles control frames and cancels on close.
	ctx := conn.CloseRead(r.Context())
	ch, last := f.subscribe()
	defer f.unsubscribe(ch)
	f.log.Debug("feed_client_connected", zap.String("remote", r.RemoteAddr))

	if last != nil {
		if err := f.write(ctx, conn, last); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-f.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case snap := <-ch:
			if err := f.write(ctx, conn, snap); err != nil {
				f.log.Debug("feed_write_error", zap.Error(err))
				return
			}
		}
	}
}

func (f *Feed) write(ctx context.Context, conn *websocket.Conn, snap *chessdto.Snapshot) error {
	wctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, snap)
}

// Handler serves the feed at /feed.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/feed", f)
	return mux
}

func (f *Feed) ListenAndServe(addr string) error {
	f.mu.Lock()
	f.srv = &http.Server{Addr: addr, Handler: f.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := f.srv
	f.mu.Unlock()
	f.log.Info("board_feed_listen", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown disconnects feed clients and stops the listener, if one was started.
func (f *Feed) Shutdown(ctx context.Context) error {
	f.closeOnce.Do(func() { close(f.done) })
	f.mu.Lock()
	srv := f.srv
	f.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
