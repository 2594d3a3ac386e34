package boardview

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

var (
	backgroundColor     = color.RGBA{R: 34, G: 37, B: 52, A: 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	selectionColor      = color.NRGBA{R: 182, G: 184, B: 190, A: 150}
	lastMoveColor       = color.NRGBA{R: 255, G: 228, B: 120, A: 120}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudActivePanelColor = color.NRGBA{R: 58, G: 94, B: 70, A: 255}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func fillBackground(img *image.RGBA) {
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)
}

func drawSquares(dst imagedraw.Image, geo Geometry) {
	for rank := 0; rank < boardSquares; rank++ {
		for file := 0; file < boardSquares; file++ {
			sq := domain.NewSquare(file, rank)
			imagedraw.Draw(dst, geo.Rect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func squareColor(sq domain.Square) color.Color {
	if (sq.File+sq.Rank)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawLastMove(img *image.RGBA, f frame) {
	if f.pos.LastMove == nil {
		return
	}
	drawSquareOverlay(img, f.geo.Rect(f.pos.LastMove.From), lastMoveColor)
	drawSquareOverlay(img, f.geo.Rect(f.pos.LastMove.To), lastMoveColor)
}

func drawPieces(dst *image.RGBA, f frame) {
	size := f.geo.SquareSize
	for sq, piece := range f.pos.Pieces {
		if piece.IsNone() || !sq.Valid() {
			continue
		}
		img := renderPieceImage(piece, size)
		imagedraw.Draw(dst, f.geo.Rect(sq), img, image.Point{}, imagedraw.Over)
	}
}

func drawMarker(dst *image.RGBA, geo Geometry, sq domain.Square, name marker) error {
	img, err := markerImage(name, geo.SquareSize)
	if err != nil {
		return err
	}
	imagedraw.Draw(dst, geo.Rect(sq), img, image.Point{}, imagedraw.Over)
	return nil
}

// drawDestinations paints a dot on quiet targets and a ring on captures.
func drawDestinations(dst *image.RGBA, f frame) error {
	capture := make(map[domain.Square]bool, len(f.captures))
	for _, sq := range f.captures {
		capture[sq] = true
	}
	for _, sq := range f.dests {
		name := markerDot
		if capture[sq] {
			name = markerRing
		}
		if err := drawMarker(dst, f.geo, sq, name); err != nil {
			return err
		}
	}
	return nil
}

// 시계 패널: 위쪽은 화면 위에 놓인 측, 아래쪽은 아래 측.
func drawClockPanels(img *image.RGBA, f frame) {
	board := f.geo.BoardRect()
	top, bottom := domain.Black, domain.White
	if f.geo.Flipped {
		top, bottom = domain.White, domain.Black
	}
	gap := f.margin / 3
	topRect := image.Rect(board.Min.X, board.Min.Y-gap-f.panel, board.Max.X, board.Min.Y-gap)
	bottomRect := image.Rect(board.Min.X, board.Max.Y+gap, board.Max.X, board.Max.Y+gap+f.panel)

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	for _, p := range []struct {
		side domain.Side
		rect image.Rectangle
	}{{top, topRect}, {bottom, bottomRect}} {
		clr := hudPanelColor
		if f.pos.SideToMove == p.side && f.pos.Pieces != nil {
			clr = hudActivePanelColor
		}
		drawRoundedPanel(img, p.rect, f.panel/4, clr)
		drawCenteredString(drawer, p.rect, p.side.String()+"  "+f.clocks[p.side], hudTextPrimary)
	}
}

func drawCoordinates(dst imagedraw.Image, geo Geometry, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	board := geo.BoardRect()
	for i := 0; i < boardSquares; i++ {
		rankCenter := geo.Center(domain.NewSquare(0, i)).Y
		drawCenteredText(drawer, string(rune('1'+i)), board.Min.X-margin/2, rankCenter+ascent/2)
		// 파일 표기는 맨 아래 칸 오른쪽 아래 구석에 겹쳐 그린다.
		cell := geo.Rect(domain.NewSquare(i, 0))
		drawCenteredText(drawer, string(rune('a'+i)), cell.Max.X-6, board.Max.Y-3)
	}
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, center := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterDisc(img, center, radius, rect, clr)
	}
}

// drawQuarterDisc fills the part of a disc that lies in a panel corner outside the core strips.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	fill := image.NewUniform(clr)
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > r2 {
				continue
			}
			px, py := center.X+x, center.Y+y
			inCore := (px >= rect.Min.X+radius && px < rect.Max.X-radius) ||
				(py >= rect.Min.Y+radius && py < rect.Max.Y-radius)
			if inCore || !(image.Point{X: px, Y: py}).In(rect) {
				continue
			}
			imagedraw.Draw(img, image.Rect(px, py, px+1, py+1), fill, image.Point{}, imagedraw.Over)
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
