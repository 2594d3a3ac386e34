package boardview

import (
	"image"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

const boardSquares = 8

// Geometry maps between pixels and squares for an 8x8 grid at Origin.
// When Flipped, rank 8 is at the bottom and file h on the left.
type Geometry struct {
	SquareSize int
	Origin     image.Point
	Flipped    bool
}

func (g Geometry) BoardRect() image.Rectangle {
	size := g.SquareSize * boardSquares
	return image.Rect(g.Origin.X, g.Origin.Y, g.Origin.X+size, g.Origin.Y+size)
}

// SquareAt returns the square under (x, y). Points outside the grid report false.
func (g Geometry) SquareAt(x, y int) (domain.Square, bool) {
	if g.SquareSize <= 0 {
		return domain.Square{}, false
	}
	if !(image.Point{X: x, Y: y}).In(g.BoardRect()) {
		return domain.Square{}, false
	}
	col := (x - g.Origin.X) / g.SquareSize
	row := (y - g.Origin.Y) / g.SquareSize
	if g.Flipped {
		return domain.NewSquare(boardSquares-1-col, row), true
	}
	return domain.NewSquare(col, boardSquares-1-row), true
}

func (g Geometry) cell(sq domain.Square) (col, row int) {
	if g.Flipped {
		return boardSquares - 1 - sq.File, sq.Rank
	}
	return sq.File, boardSquares - 1 - sq.Rank
}

// Rect is the pixel rectangle of sq.
func (g Geometry) Rect(sq domain.Square) image.Rectangle {
	col, row := g.cell(sq)
	x := g.Origin.X + col*g.SquareSize
	y := g.Origin.Y + row*g.SquareSize
	return image.Rect(x, y, x+g.SquareSize, y+g.SquareSize)
}

// Center is the pixel centre of sq.
func (g Geometry) Center(sq domain.Square) image.Point {
	r := g.Rect(sq)
	return image.Pt(r.Min.X+g.SquareSize/2, r.Min.Y+g.SquareSize/2)
}
