package archive

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

const defaultRecentLimit = 20

var ErrDuplicateGame = errors.New("finished game already archived")

// Archive stores finished game summaries. Only terminal results are kept.
type Archive interface {
	Save(ctx context.Context, game domain.FinishedGame) error
	Recent(ctx context.Context, limit int) ([]domain.FinishedGame, error)
	Close() error
}

// Recorder saves finished games off the caller's goroutine. Errors are logged,
// never returned, so a slow or broken backend cannot stall the session loop.
type Recorder struct {
	archive Archive
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewRecorder(a Archive, timeout time.Duration, logger *zap.Logger) *Recorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{archive: a, timeout: timeout, log: logger}
}

// Record matches session.Options.OnFinish.
func (r *Recorder) Record(game domain.FinishedGame) {
	if r == nil || r.archive == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.archive.Save(ctx, game); err != nil {
			if errors.Is(err, ErrDuplicateGame) {
				r.log.Debug("archive_duplicate", zap.String("game_id", game.ID))
				return
			}
			r.log.Warn("archive_save_error", zap.String("game_id", game.ID), zap.Error(err))
			return
		}
		r.log.Info("archive_saved",
			zap.String("game_id", game.ID),
			zap.String("result", game.Result),
			zap.String("method", game.Method),
		)
	}()
}

// Wait blocks until every pending save has finished.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

func (r *Recorder) Archive() Archive {
	if r == nil {
		return nil
	}
	return r.archive
}

// Tallier is implemented by archives that count results per score.
type Tallier interface {
	Tally(ctx context.Context) (map[string]int64, error)
}

// Multi fans Save out to every archive and reads Recent from the first.
type Multi []Archive

func (m Multi) Save(ctx context.Context, game domain.FinishedGame) error {
	var errs []error
	for _, a := range m {
		if err := a.Save(ctx, game); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Recent(ctx context.Context, limit int) ([]domain.FinishedGame, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].Recent(ctx, limit)
}

// Tally reads from the first archive that keeps counters.
func (m Multi) Tally(ctx context.Context) (map[string]int64, error) {
	for _, a := range m {
		if t, ok := a.(Tallier); ok {
			return t.Tally(ctx)
		}
	}
	return map[string]int64{}, nil
}

func (m Multi) Close() error {
	var errs []error
	for _, a := range m {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	return limit
}
