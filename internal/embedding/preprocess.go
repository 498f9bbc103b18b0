package embedding

import (
	"image"

	"golang.org/x/image/draw"
)

// InputSize is the side length of the square image the CLIP image encoder expects.
const InputSize = 224

// Per-channel normalization constants from CLIP's published preprocessing.
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// PreprocessImage converts an image to the encoder's input layout: resize so
// the shorter side is InputSize, center-crop to InputSize square, and emit
// normalized float32 values in CHW order.
func PreprocessImage(img image.Image) []float32 {
	resized := resizeShorterSide(img, InputSize)
	cropped := centerCrop(resized, InputSize)

	out := make([]float32, 3*InputSize*InputSize)
	bounds := cropped.Bounds()
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			r, g, b, _ := cropped.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns 16-bit channels.
			rf := float32(r) / 65535.0
			gf := float32(g) / 65535.0
			bf := float32(b) / 65535.0
			i := y*InputSize + x
			out[0*InputSize*InputSize+i] = (rf - clipMean[0]) / clipStd[0]
			out[1*InputSize*InputSize+i] = (gf - clipMean[1]) / clipStd[1]
			out[2*InputSize*InputSize+i] = (bf - clipMean[2]) / clipStd[2]
		}
	}
	return out
}

// resizeShorterSide scales img so its shorter side equals target, preserving
// aspect ratio. Upscales small images as well, matching the reference pipeline.
func resizeShorterSide(img image.Image, target int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, target, target))
	}
	var nw, nh int
	if w < h {
		nw = target
		nh = (h*target + w/2) / w
	} else {
		nh = target
		nw = (w*target + h/2) / h
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// centerCrop returns the centered size x size region of img.
func centerCrop(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return dst
}
