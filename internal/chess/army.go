package chess

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

const (
	MinArmyBudget = 21
	MaxArmyBudget = 61

	budgetFloor      = 3
	defaultMaxSweeps = 1000
)

// ArmyGenerator replaces each side's non-king home-rank pieces with a random
// army worth at most the drawn budget. Pawns are left untouched.
type ArmyGenerator struct {
	randMu    sync.Mutex
	rand      *rand.Rand
	maxSweeps int
}

func NewArmyGenerator() *ArmyGenerator {
	return &ArmyGenerator{
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		maxSweeps: defaultMaxSweeps,
	}
}

func (g *ArmyGenerator) SetRandomSeed(seed int64) {
	g.randMu.Lock()
	g.rand = rand.New(rand.NewSource(seed))
	g.randMu.Unlock()
}

// SetMaxSweeps bounds the budget retry loop for one side.
func (g *ArmyGenerator) SetMaxSweeps(n int) {
	if n <= 0 {
		n = defaultMaxSweeps
	}
	g.maxSweeps = n
}

// Populate draws a shared budget in [MinArmyBudget, MaxArmyBudget] and arms both sides with it.
func (g *ArmyGenerator) Populate(p Placer) (int, error) {
	g.randMu.Lock()
	budget := MinArmyBudget + g.rand.Intn(MaxArmyBudget-MinArmyBudget+1)
	g.randMu.Unlock()
	return budget, g.GenerateWithBudget(p, budget)
}

func (g *ArmyGenerator) GenerateWithBudget(p Placer, budget int) error {
	for _, side := range []domain.Side{domain.White, domain.Black} {
		rank := side.HomeRank()
		king := domain.NewPiece(side, domain.King)
		var kingFiles [8]bool
		for file := 0; file < 8; file++ {
			kingFiles[file] = p.PieceAt(domain.NewSquare(file, rank)) == king
		}
		plan := g.plan(kingFiles, budget)
		for file := 0; file < 8; file++ {
			if kingFiles[file] {
				continue
			}
			sq := domain.NewSquare(file, rank)
			var err error
			if plan[file] == domain.NoKind {
				err = p.RemovePiece(sq)
			} else {
				err = p.SetPiece(sq, domain.NewPiece(side, plan[file]))
			}
			if err != nil {
				return fmt.Errorf("place %s on %s: %w", plan[file], sq, err)
			}
		}
	}
	return nil
}

// plan sweeps the home rank until the remaining budget drops to budgetFloor or below,
// restarting from the full budget after each undershooting sweep. When the sweep cap
// is hit, the sweep that got closest to the budget is kept.
func (g *ArmyGenerator) plan(kingFiles [8]bool, budget int) [8]domain.PieceKind {
	g.randMu.Lock()
	defer g.randMu.Unlock()

	var best [8]domain.PieceKind
	bestRemaining := -1
	for sweep := 0; sweep < g.maxSweeps; sweep++ {
		var kinds [8]domain.PieceKind
		remaining := budget
		for file := 0; file < 8; file++ {
			if kingFiles[file] || remaining <= budgetFloor {
				continue
			}
			k := g.draw(remaining)
			kinds[file] = k
			remaining -= k.Value()
		}
		if bestRemaining < 0 || remaining < bestRemaining {
			best, bestRemaining = kinds, remaining
		}
		if remaining <= budgetFloor {
			break
		}
	}
	return best
}

// draw picks a kind worth no more than remaining. The roll range narrows with the
// budget, so small budgets lean toward the cheaper tiers.
func (g *ArmyGenerator) draw(remaining int) domain.PieceKind {
	top := remaining
	if top > 10 {
		top = 10
	}
	roll := g.rand.Intn(top + 1)
	var k domain.PieceKind
	switch {
	case roll >= 9:
		k = domain.Queen
	case roll >= 6:
		k = domain.Rook
	case roll >= 3:
		k = domain.Knight
	default:
		k = domain.Bishop
	}
	for k.Value() > remaining && k != domain.Bishop {
		k = cheaper(k)
	}
	return k
}

func cheaper(k domain.PieceKind) domain.PieceKind {
	switch k {
	case domain.Queen:
		return domain.Rook
	case domain.Rook:
		return domain.Knight
	default:
		return domain.Bishop
	}
}
