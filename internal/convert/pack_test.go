package convert

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestPackPlanes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 2))
	for x := 0; x < 10; x++ {
		img.Set(x, 0, color.White)
		img.Set(x, 1, color.White)
	}
	img.Set(0, 0, color.Black)
	img.Set(9, 0, color.RGBA{R: 220, G: 20, B: 20, A: 255})
	img.Set(3, 1, color.RGBA{R: 0, G: 0, B: 0, A: 10}) // transparent

	p, err := PackPlanes(img)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stride != 2 || len(p.Black) != 4 || len(p.Red) != 4 {
		t.Fatalf("geometry = %+v", p)
	}
	if p.Black[0] != 0x7F || p.Black[1] != 0xFF {
		t.Fatalf("black row 0 = %08b %08b", p.Black[0], p.Black[1])
	}
	if p.Red[1] != 0xBF || p.Red[0] != 0xFF {
		t.Fatalf("red row 0 = %08b %08b", p.Red[0], p.Red[1])
	}
	if p.Black[2] != 0xFF || p.Black[3] != 0xFF {
		t.Fatal("transparent pixel inked")
	}

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	if err != nil || n != 12 || !bytes.Equal(buf.Bytes()[:4], []byte{0, 10, 0, 2}) {
		t.Fatalf("WriteTo n=%d err=%v header=%v", n, err, buf.Bytes()[:4])
	}
}

func TestClassifyPixel(t *testing.T) {
	tests := []struct {
		c    color.NRGBA
		want inkColor
	}{
		{color.NRGBA{0, 0, 0, 255}, inkBlack},
		{color.NRGBA{255, 255, 255, 255}, inkWhite},
		{color.NRGBA{200, 30, 30, 255}, inkRed},
		{color.NRGBA{150, 140, 140, 255}, inkWhite},
	}
	for _, tt := range tests {
		if got := classifyPixel(tt.c); got != tt.want {
			t.Errorf("classifyPixel(%v) = %d, want %d", tt.c, got, tt.want)
		}
	}
}
