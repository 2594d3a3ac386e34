package boardview

import (
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

// 말 색상은 측(side)별 고정 테이블.
var pieceStyles = map[domain.Side]struct {
	fill, rim, letter color.Color
}{
	domain.White: {
		fill:   color.NRGBA{R: 250, G: 248, B: 240, A: 255},
		rim:    color.NRGBA{R: 60, G: 52, B: 46, A: 255},
		letter: color.NRGBA{R: 40, G: 36, B: 32, A: 255},
	},
	domain.Black: {
		fill:   color.NRGBA{R: 44, G: 40, B: 38, A: 255},
		rim:    color.NRGBA{R: 230, G: 222, B: 206, A: 255},
		letter: color.NRGBA{R: 244, G: 238, B: 226, A: 255},
	},
}

type pieceCacheKey struct {
	piece domain.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// renderPieceImage draws a rimmed disc with the piece letter.
func renderPieceImage(piece domain.Piece, size int) image.Image {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img
	}
	pieceCacheMu.RUnlock()

	style := pieceStyles[piece.Side]
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	fillCircle(img, c, c, float64(size)*0.40, style.rim)
	fillCircle(img, c, c, float64(size)*0.36, style.fill)
	drawGlyph(img, strings.ToUpper(piece.Kind.Letter()), style.letter, size)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img
}

func fillCircle(img *image.RGBA, cx, cy, r float64, clr color.Color) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	filler := rasterx.NewFiller(w, h, scanner)
	filler.SetColor(clr)
	rasterx.AddCircle(cx, cy, r, filler)
	filler.Draw()
}

// drawGlyph scales a basicfont letter up to roughly half the square.
func drawGlyph(dst *image.RGBA, text string, clr color.Color, size int) {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	w := d.MeasureString(text).Ceil()
	h := face.Height
	if w <= 0 {
		return
	}
	glyph := image.NewRGBA(image.Rect(0, 0, w, h))
	d.Dst = glyph
	d.Src = image.NewUniform(clr)
	d.Dot = fixed.P(0, face.Ascent)
	d.DrawString(text)

	th := size * 46 / 100
	tw := th * w / h
	x := (size - tw) / 2
	y := (size - th) / 2
	xdraw.ApproxBiLinear.Scale(dst, image.Rect(x, y, x+tw, y+th), glyph, glyph.Bounds(), xdraw.Over, nil)
}
