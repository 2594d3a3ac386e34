package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

func finished(id string, result domain.GameResult, ended time.Time) domain.FinishedGame {
	cfg := domain.SessionConfig{Mode: domain.Standard, BaseTimeMs: 300000, IncrementMs: 2000}
	return domain.NewFinishedGame(id, cfg, result, 40, ended.Add(-10*time.Minute), ended)
}

func newTestRedisStore(t *testing.T, limit int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	store, err := OpenRedis(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), limit)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreSaveAndRecent(t *testing.T) {
	store, _ := newTestRedisStore(t, 3)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	results := []domain.GameResult{
		domain.CheckmateResult(domain.White),
		domain.TimeoutResult(domain.Black),
		domain.DrawResult(domain.Repetition),
		domain.CheckmateResult(domain.White),
	}
	for i, r := range results {
		if err := store.Save(ctx, finished(fmt.Sprintf("g%d", i), r, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save #%d: %v", i, err)
		}
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("list should be capped at 3, got %d", len(recent))
	}
	if recent[0].ID != "g3" || recent[2].ID != "g1" {
		t.Fatalf("unexpected order: %s..%s", recent[0].ID, recent[2].ID)
	}
	if recent[1].Method != "repetition" || recent[1].Winner != "" || recent[1].Result != "1/2-1/2" {
		t.Fatalf("round trip lost fields: %+v", recent[1])
	}
	if recent[2].Method != "timeout" || recent[2].Winner != "Black" || recent[2].Result != "0-1" {
		t.Fatalf("round trip lost fields: %+v", recent[2])
	}

	tally, err := store.Tally(ctx)
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if tally["1-0"] != 2 || tally["0-1"] != 1 || tally["1/2-1/2"] != 1 {
		t.Fatalf("tally = %v", tally)
	}
}

func TestRedisStoreRejectsDuplicate(t *testing.T) {
	store, _ := newTestRedisStore(t, 10)
	ctx := context.Background()
	g := finished("same", domain.DrawResult(domain.Stalemate), time.Now())
	if err := store.Save(ctx, g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, g); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("second save err = %v, want ErrDuplicateGame", err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
	for _, bad := range []string{"http://localhost", "redis://", "redis://localhost/x"} {
		if _, err := ParseRedisURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestMemoryArchive(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := m.Save(ctx, finished(fmt.Sprintf("m%d", i), domain.CheckmateResult(domain.White), now)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	recent, _ := m.Recent(ctx, 0)
	if len(recent) != 2 || recent[0].ID != "m2" || recent[1].ID != "m1" {
		t.Fatalf("recent = %+v", recent)
	}
	if err := m.Save(ctx, finished("m2", domain.CheckmateResult(domain.White), now)); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestMultiTallyReadsFirstCounter(t *testing.T) {
	store, _ := newTestRedisStore(t, 10)
	mem := NewMemory(10)
	ctx := context.Background()
	m := Multi{&failingArchive{}, store, mem}
	_ = m.Save(ctx, finished("t1", domain.CheckmateResult(domain.Black), time.Now()))
	_ = m.Save(ctx, finished("t2", domain.DrawResult(domain.Stalemate), time.Now()))

	tally, err := m.Tally(ctx)
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if tally["0-1"] != 1 || tally["1/2-1/2"] != 1 || len(tally) != 2 {
		t.Fatalf("tally = %v", tally)
	}
	memTally, _ := mem.Tally(ctx)
	if memTally["0-1"] != 1 || memTally["1/2-1/2"] != 1 {
		t.Fatalf("memory tally = %v", memTally)
	}
	empty, err := Multi{&failingArchive{}}.Tally(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("no counters: %v, %v", empty, err)
	}
}

type failingArchive struct {
	mu    sync.Mutex
	calls int
}

func (f *failingArchive) Save(context.Context, domain.FinishedGame) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("backend down")
}
func (f *failingArchive) Recent(context.Context, int) ([]domain.FinishedGame, error) { return nil, nil }
func (f *failingArchive) Close() error { return nil }

func TestRecorderSwallowsErrors(t *testing.T) {
	fa := &failingArchive{}
	mem := NewMemory(10)
	rec := NewRecorder(Multi{mem, fa}, time.Second, nil)
	rec.Record(finished("r1", domain.TimeoutResult(domain.White), time.Now()))
	rec.Wait()

	if fa.calls != 1 {
		t.Fatalf("failing archive called %d times", fa.calls)
	}
	recent, _ := rec.Archive().Recent(context.Background(), 5)
	if len(recent) != 1 || recent[0].ID != "r1" {
		t.Fatalf("memory archive should still hold the game: %+v", recent)
	}
}

func TestRedisStoreUsesClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	defer store.Close()
	if err := store.Save(context.Background(), finished("x", domain.CheckmateResult(domain.Black), time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n, _ := mr.List(keyResults); len(n) != 1 {
		t.Fatalf("expected one list entry, got %d", len(n))
	}
}

func TestOpenRepositoryRequiresURL(t *testing.T) {
	if _, err := OpenRepository(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty DATABASE_URL")
	}
}
