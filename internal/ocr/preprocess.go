package ocr

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Strategy is a named, deterministic image transform applied before recognition.
type Strategy struct {
	Name      string
	Transform func(image.Image) image.Image
}

// DefaultStrategies returns the preprocessing strategies in evaluation order.
// The order decides ties: an earlier strategy wins over a later one with the
// same word count.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyOriginal, Transform: func(img image.Image) image.Image { return img }},
		{Name: StrategyGrayscale, Transform: func(img image.Image) image.Image { return toGray(img) }},
		{Name: StrategyThreshold, Transform: func(img image.Image) image.Image { return otsuThreshold(toGray(img)) }},
		{Name: StrategyNoiseRemoval, Transform: removeNoise},
		{Name: StrategyEnhanced, Transform: enhance},
	}
}

const (
	claheClipLimit = 2.0
	claheTiles     = 8
	morphKernel    = 1
)

// 5x5 binomial kernel, the fixed-size Gaussian used when sigma is derived
// from a 5 pixel aperture.
var gaussian5x5 = [25]float64{
	1, 4, 6, 4, 1,
	4, 16, 24, 16, 4,
	6, 24, 36, 24, 6,
	4, 16, 24, 16, 4,
	1, 4, 6, 4, 1,
}

var sharpen3x3 = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

// toGray reduces an image to a single luminance channel.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	lum := imaging.Grayscale(img)
	b := lum.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := lum.Pix[y*lum.Stride : y*lum.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// otsuLevel returns the global threshold that maximizes between-class variance.
func otsuLevel(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := g.PixOffset(b.Min.X, y)
		for _, v := range g.Pix[off : off+b.Dx()] {
			hist[v]++
		}
	}

	total := float64(b.Dx() * b.Dy())
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var sumB, wB, best float64
	level := 0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = t
		}
	}
	return uint8(level)
}

// otsuThreshold binarizes a grayscale image: pixels above the Otsu level
// become white, everything else black.
func otsuThreshold(g *image.Gray) *image.Gray {
	level := otsuLevel(g)
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if src[x] > level {
				dst[x] = 255
			}
		}
	}
	return out
}

// removeNoise runs one dilation and one erosion pass with a 1x1 structuring
// element on the colour image, then a 5x5 Gaussian blur.
func removeNoise(img image.Image) image.Image {
	out := morph(img, morphKernel, true)
	out = morph(out, morphKernel, false)
	return imaging.Convolve5x5(out, gaussian5x5, &imaging.ConvolveOptions{Normalize: true})
}

// morph applies a square dilation (keepMax) or erosion over a size x size
// window to the colour channels. Alpha is left untouched.
func morph(img image.Image, size int, keepMax bool) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	r := size / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*dst.Stride + x*4
			for c := 0; c < 3; c++ {
				v := src.Pix[i+c]
				for wy := max(y-r, 0); wy <= min(y+r, h-1); wy++ {
					for wx := max(x-r, 0); wx <= min(x+r, w-1); wx++ {
						n := src.Pix[wy*src.Stride+wx*4+c]
						if (keepMax && n > v) || (!keepMax && n < v) {
							v = n
						}
					}
				}
				dst.Pix[i+c] = v
			}
			dst.Pix[i+3] = src.Pix[i+3]
		}
	}
	return dst
}

// enhance equalizes local contrast and sharpens the grayscale image.
func enhance(img image.Image) image.Image {
	return sharpen(clahe(toGray(img), claheClipLimit, claheTiles, claheTiles))
}

// sharpen applies sharpen3x3 with edge pixels replicated past the border.
func sharpen(g *image.Gray) *image.Gray {
	return toGray(imaging.Convolve3x3(g, sharpen3x3, nil))
}

// clahe performs contrast limited adaptive histogram equalization over a
// tilesX x tilesY grid, interpolating bilinearly between tile mappings.
func clahe(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tilesX = min(tilesX, w)
	tilesY = min(tilesY, h)
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	tilesX = (w + tileW - 1) / tileW
	tilesY = (h + tileH - 1) / tileH

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			var hist [256]int
			for y := y0; y < y1; y++ {
				off := src.PixOffset(b.Min.X+x0, b.Min.Y+y)
				for _, v := range src.Pix[off : off+(x1-x0)] {
					hist[v]++
				}
			}
			luts[ty*tilesX+tx] = clippedLUT(hist, (x1-x0)*(y1-y0), clipLimit)
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		ty1, ty2, ya := tileNeighbours(y, tileH, tilesY)
		for x := 0; x < w; x++ {
			tx1, tx2, xa := tileNeighbours(x, tileW, tilesX)
			v := src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)]

			top := float64(luts[ty1*tilesX+tx1][v])*(1-xa) + float64(luts[ty1*tilesX+tx2][v])*xa
			bottom := float64(luts[ty2*tilesX+tx1][v])*(1-xa) + float64(luts[ty2*tilesX+tx2][v])*xa
			dst.Pix[y*dst.Stride+x] = clampUint8(math.Round(top*(1-ya) + bottom*ya))
		}
	}
	return dst
}

// tileNeighbours returns the two tiles whose centres surround pos and the
// interpolation weight of the second one.
func tileNeighbours(pos, tileSize, tiles int) (int, int, float64) {
	f := float64(pos)/float64(tileSize) - 0.5
	t1 := int(math.Floor(f))
	weight := f - float64(t1)
	t2 := t1 + 1
	if t1 < 0 {
		t1 = 0
	}
	if t2 > tiles-1 {
		t2 = tiles - 1
	}
	return t1, t2, weight
}

// clippedLUT clips the histogram at clipLimit times the mean bin height,
// spreads the excess evenly, and returns the cumulative mapping.
func clippedLUT(hist [256]int, area int, clipLimit float64) [256]uint8 {
	limit := max(int(clipLimit*float64(area)/256), 1)

	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}

	batch := excess / 256
	residual := excess - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [256]uint8
	scale := 255.0 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = clampUint8(math.Round(float64(sum) * scale))
	}
	return lut
}

func clampUint8(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
