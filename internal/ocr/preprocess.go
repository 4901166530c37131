package ocr

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// preprocessFile decodes a page image, applies the enabled preprocessing
// steps, and writes the result as a PNG next to nothing in particular
// (a temp file the caller removes). Binarization always runs when
// preprocessing is enabled; denoise and deskew are separate flags.
func (e *Extractor) preprocessFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return "", err
	}

	gray := toGray(img)
	if e.cfg.PreprocessDenoise {
		gray = boxDenoise(gray)
	}
	gray = otsuBinarize(gray)
	if e.cfg.PreprocessDeskew {
		gray = deskew(gray)
	}

	out, err := os.CreateTemp("", "triage-pre-*.png")
	if err != nil {
		return "", err
	}
	if err := png.Encode(out, gray); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// boxDenoise applies a 3x3 mean filter. Edge pixels are left untouched.
func boxDenoise(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	copy(out.Pix, g.Pix)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var sum int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sum += int(g.GrayAt(x+dx, y+dy).Y)
				}
			}
			out.SetGray(x, y, color.Gray{Y: uint8(sum / 9)})
		}
	}
	return out
}

// otsuBinarize thresholds the image with Otsu's method.
func otsuBinarize(g *image.Gray) *image.Gray {
	var hist [256]int
	for _, p := range g.Pix {
		hist[p]++
	}
	total := len(g.Pix)
	if total == 0 {
		return g
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVar float64
	threshold := 127
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = t
		}
	}

	b := g.Bounds()
	out := image.NewGray(b)
	for i, p := range g.Pix {
		if int(p) > threshold {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// deskew estimates the dominant text angle from the distribution of dark
// pixels (principal axis of their second central moments) and rotates to
// compensate. Angles outside ±45° are treated as axis ambiguity and skipped.
func deskew(g *image.Gray) *image.Gray {
	angle := skewAngle(g)
	if angle == 0 {
		return g
	}
	return rotate(g, -angle)
}

func skewAngle(g *image.Gray) float64 {
	b := g.Bounds()
	var n, sx, sy float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.GrayAt(x, y).Y < 128 {
				n++
				sx += float64(x)
				sy += float64(y)
			}
		}
	}
	if n < 64 {
		return 0
	}
	cx, cy := sx/n, sy/n

	var mxx, myy, mxy float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.GrayAt(x, y).Y < 128 {
				dx, dy := float64(x)-cx, float64(y)-cy
				mxx += dx * dx
				myy += dy * dy
				mxy += dx * dy
			}
		}
	}
	angle := 0.5 * math.Atan2(2*mxy, mxx-myy)
	deg := angle * 180 / math.Pi
	if deg > 45 || deg < -45 {
		return 0
	}
	return deg
}

func rotate(g *image.Gray, deg float64) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	// white background so rotated-in corners don't read as text
	for i := range out.Pix {
		out.Pix[i] = 255
	}

	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2

	// rotate about the image center
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(out, m, g, b, draw.Src, nil)
	return out
}
