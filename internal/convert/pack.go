// Package convert packs rendered timelines into 1bpp black/red planes for
// tri-colour e-paper wallboards.
package convert

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/draw"
)

// Planes is a packed tri-colour frame.
//
// 각 plane은 y-major, MSB-first 1bpp:
//
//	byteIndex = y*Stride + (x >> 3)
//	mask      = 0x80 >> (x & 7)
//
// A set bit is white; ink clears it.
type Planes struct {
	Width, Height int
	Stride        int
	Black, Red    []byte
}

// PackPlanes classifies every pixel of img as black, red or white. Any width
// is accepted; rows are padded to whole bytes.
func PackPlanes(img image.Image) (Planes, error) {
	b := img.Bounds()
	if b.Empty() {
		return Planes{}, errors.New("convert: empty image")
	}
	src, ok := img.(*image.NRGBA)
	if !ok {
		src = image.NewNRGBA(b)
		draw.Draw(src, b, img, b.Min, draw.Src)
	}

	p := Planes{Width: b.Dx(), Height: b.Dy(), Stride: (b.Dx() + 7) / 8}
	p.Black = make([]byte, p.Stride*p.Height)
	p.Red = make([]byte, p.Stride*p.Height)
	for i := range p.Black {
		p.Black[i] = 0xFF
		p.Red[i] = 0xFF
	}

	// stride를 직접 사용해 At() 호출을 피한다.
	for py := 0; py < p.Height; py++ {
		row := src.Pix[(py+b.Min.Y-src.Rect.Min.Y)*src.Stride:]
		for px := 0; px < p.Width; px++ {
			i := (px + b.Min.X - src.Rect.Min.X) * 4
			c := color.NRGBA{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]}
			// 투명/반투명은 white 취급.
			if c.A < 128 {
				continue
			}
			idx := py*p.Stride + px>>3
			mask := byte(0x80 >> (px & 7))
			switch classifyPixel(c) {
			case inkBlack:
				p.Black[idx] &^= mask
			case inkRed:
				p.Red[idx] &^= mask
			}
		}
	}
	return p, nil
}

// WriteTo writes a 4-byte big-endian width and height, then the black plane
// and the red plane.
func (p Planes) WriteTo(w io.Writer) (int64, error) {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:], uint16(p.Width))
	binary.BigEndian.PutUint16(hdr[2:], uint16(p.Height))
	var total int64
	for _, chunk := range [][]byte{hdr[:], p.Black, p.Red} {
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type inkColor int

const (
	inkWhite inkColor = iota
	inkBlack
	inkRed
)

// classifyPixel:
//
//   - 밝기 Y = 0.299R + 0.587G + 0.114B, Y < 64 → black
//   - redness = R - max(G, B), R > 128 && redness > 32 → red
//   - 나머지 → white
func classifyPixel(c color.NRGBA) inkColor {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	y := 0.299*r + 0.587*g + 0.114*b
	redness := r - max(g, b)

	if y < 64 {
		return inkBlack
	}
	if r > 128 && redness > 32 {
		return inkRed
	}
	return inkWhite
}
