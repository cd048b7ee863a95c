package fingerprint

import (
	"image"

	"golang.org/x/image/draw"
)

// VectorSize is the fixed length of a grayscale fingerprint vector: a
// row-major 16x16 grid of luminance bytes.
const VectorSize = 256

const gridDim = 16

// TooDarkThreshold is the fixed low-luminance cutoff: a vector whose mean
// byte value falls below this is flagged TOO_DARK.
const TooDarkThreshold = 8

// GrayscaleVector downscales img to a 16x16 grid and returns its row-major
// luminance bytes. It backs the image path (decoded via the stdlib); video
// thumbnails come from the decoder already scaled to 16x16, and the builder's
// rescaleFallback resizes other sizes with nfnt/resize, not with this function.
func GrayscaleVector(img image.Image) []byte {
	dst := image.NewGray(image.Rect(0, 0, gridDim, gridDim))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := make([]byte, VectorSize)
	copy(out, dst.Pix)
	return out
}

// GrayFromRaw wraps a raw row-major single-channel 16x16 byte buffer (as
// returned directly by the decoder's extract-thumbnails call) as a
// fingerprint vector, with no further resize.
func GrayFromRaw(raw []byte) []byte {
	out := make([]byte, VectorSize)
	copy(out, raw)
	return out
}

// Mean returns the arithmetic mean of a vector's bytes.
func Mean(vec []byte) float64 {
	if len(vec) == 0 {
		return 0
	}
	var sum int
	for _, b := range vec {
		sum += int(b)
	}
	return float64(sum) / float64(len(vec))
}

// TooDark reports whether vec's mean brightness falls below the fixed
// low-luminance threshold.
func TooDark(vec []byte) bool {
	return Mean(vec) < TooDarkThreshold
}

// Flip mirrors a 16x16 vector left-to-right, row by row. Flipping twice
// yields the original vector.
func Flip(vec []byte) []byte {
	out := make([]byte, len(vec))
	for row := 0; row < gridDim; row++ {
		base := row * gridDim
		for col := 0; col < gridDim; col++ {
			out[base+col] = vec[base+gridDim-1-col]
		}
	}
	return out
}
