package keyframe

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

const histogramBuckets = 64

// luminanceHistogram returns a normalized 64-bucket grayscale histogram of
// the image at path, used as the per-frame fingerprint for cut detection
// and change-significance pruning.
func luminanceHistogram(path string) ([histogramBuckets]float64, error) {
	var hist [histogramBuckets]float64

	f, err := os.Open(path)
	if err != nil {
		return hist, fmt.Errorf("keyframe: open frame %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return hist, fmt.Errorf("keyframe: decode frame %q: %w", path, err)
	}

	bounds := img.Bounds()
	total := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := (0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8))
			bucket := int(lum) * histogramBuckets / 256
			if bucket >= histogramBuckets {
				bucket = histogramBuckets - 1
			}
			if bucket < 0 {
				bucket = 0
			}
			hist[bucket]++
			total++
		}
	}
	if total == 0 {
		return hist, fmt.Errorf("keyframe: frame %q has no pixels", path)
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist, nil
}

// histogramDiff is the L1 distance between two normalized histograms,
// in [0, 2].
func histogramDiff(a, b [histogramBuckets]float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}
