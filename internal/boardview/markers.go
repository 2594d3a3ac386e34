package boardview

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/markers/*.svg
var markerFiles embed.FS

type marker string

const (
	markerDot   marker = "dot"
	markerRing  marker = "ring"
	markerCheck marker = "check"
)

type markerCacheKey struct {
	name marker
	size int
}

var (
	markerCache   = map[markerCacheKey]image.Image{}
	markerCacheMu sync.RWMutex
)

// markerImage rasterises an embedded marker SVG at size x size and caches it.
func markerImage(name marker, size int) (image.Image, error) {
	key := markerCacheKey{name: name, size: size}

	markerCacheMu.RLock()
	if img, ok := markerCache[key]; ok {
		markerCacheMu.RUnlock()
		return img, nil
	}
	markerCacheMu.RUnlock()

	path := fmt.Sprintf("assets/markers/%s.svg", name)
	data, err := markerFiles.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read marker asset %s: %w", path, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse marker svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	markerCacheMu.Lock()
	markerCache[key] = img
	markerCacheMu.Unlock()
	return img, nil
}
