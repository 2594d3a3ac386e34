package archive

import (
	"context"
	"sync"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

// Memory keeps results in process. Used when no backend is configured.
type Memory struct {
	mu    sync.RWMutex
	games []domain.FinishedGame // oldest first
	seen  map[string]struct{}
	max   int
}

func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 100
	}
	return &Memory{seen: make(map[string]struct{}), max: max}
}

func (m *Memory) Save(_ context.Context, game domain.FinishedGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[game.ID]; ok {
		return ErrDuplicateGame
	}
	m.seen[game.ID] = struct{}{}
	m.games = append(m.games, game)
	if over := len(m.games) - m.max; over > 0 {
		for _, g := range m.games[:over] {
			delete(m.seen, g.ID)
		}
		m.games = append([]domain.FinishedGame(nil), m.games[over:]...)
	}
	return nil
}

// Recent returns newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]domain.FinishedGame, error) {
	limit = normalizeLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.FinishedGame, 0, limit)
	for i := len(m.games) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.games[i])
	}
	return out, nil
}

// Tally counts the kept games by score.
func (m *Memory) Tally(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64)
	for _, g := range m.games {
		out[g.Result]++
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
