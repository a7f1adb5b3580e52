package timeline

import (
	"image"
	"io"

	"missiontl/internal/band"
	"missiontl/internal/canvas"
)

// layout stacks root bands in declaration order, each followed by its
// visible descendants. Composite members share their composite's surface
// and take no room of their own.
func (t *Timeline) layout() {
	t.placements = t.placements[:0]
	y := 0.0
	var place func(h band.Handle, level int)
	place = func(h band.Handle, level int) {
		b := t.arena.Get(h)
		if b == nil || b.Member() {
			return
		}
		p := Placement{Handle: h, ID: b.ID, Y: y, Height: b.SurfaceHeight(), Level: level}
		t.placements = append(t.placements, p)
		y += p.Height
		for _, ch := range b.Children() {
			if c := t.arena.Get(ch); c != nil && c.Visible() {
				place(ch, level+1)
			}
		}
	}
	for _, h := range t.order {
		place(h, 0)
	}
	t.height = y
}

// Layout returns the current band placements, top to bottom.
func (t *Timeline) Layout() []Placement {
	t.mu.Lock()
	defer t.unlock()
	return append([]Placement(nil), t.placements...)
}

func (t *Timeline) offsetOf(h band.Handle) float64 {
	for _, p := range t.placements {
		if p.Handle == h {
			return p.Y
		}
	}
	return 0
}

// bandAt returns the placement holding page y.
func (t *Timeline) bandAt(y float64) (Placement, bool) {
	for _, p := range t.placements {
		if y >= p.Y && y < p.Y+p.Height {
			return p, true
		}
	}
	return Placement{}, false
}

// Render replays every placed band onto dst.
func (t *Timeline) Render(dst canvas.Surface) {
	t.mu.Lock()
	defer t.unlock()
	t.render(dst)
}

func (t *Timeline) render(dst canvas.Surface) {
	dst.Clear(t.width, t.height)
	for _, p := range t.placements {
		if b := t.arena.Get(p.Handle); b != nil {
			b.Surface().Replay(dst, 0, p.Y)
		}
	}
}

func (t *Timeline) pageSize() (int, int) {
	h := int(t.height + 0.5)
	if h < 1 {
		h = 1
	}
	return int(t.width + 0.5), min(h, canvas.MaxHeight)
}

// RenderSVG writes the page as an SVG document.
func (t *Timeline) RenderSVG(w io.Writer) error {
	t.mu.Lock()
	defer t.unlock()
	pw, ph := t.pageSize()
	s := canvas.NewSVG(w, pw, ph)
	t.render(s)
	s.Close()
	return nil
}

// RenderImage rasterises the page.
func (t *Timeline) RenderImage() image.Image {
	t.mu.Lock()
	defer t.unlock()
	return t.raster().Image()
}

// RenderPNG writes the page as a PNG.
func (t *Timeline) RenderPNG(w io.Writer) error {
	t.mu.Lock()
	r := t.raster()
	t.mu.Unlock()
	return r.EncodePNG(w)
}

func (t *Timeline) raster() *canvas.Raster {
	pw, ph := t.pageSize()
	r := canvas.NewRaster(pw, ph)
	t.render(r)
	return r
}
