package imagequality

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

type FaceBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// FaceDetector returns the most prominent face, or nil when none is found.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) (*FaceBox, error)
}

// ApproximateDetector is implemented by detectors whose misses are too
// unreliable to reject a photo on. The analyzer reports their misses as
// warnings.
type ApproximateDetector interface {
	Approximate() bool
}

// DetectorLoader builds a detector. It is called at most once per Analyzer.
type DetectorLoader func() (FaceDetector, error)

func DefaultDetectorLoader() (FaceDetector, error) {
	return NewSkinToneDetector(), nil
}

// SkinToneDetector finds the largest connected region of skin-coloured pixels
// on a downscaled copy of the image.
type SkinToneDetector struct {
	// WorkSize is the longest edge of the working copy.
	WorkSize int
	// MinCoverage is the share of the working image the region must cover.
	MinCoverage float64
}

func NewSkinToneDetector() *SkinToneDetector {
	return &SkinToneDetector{WorkSize: 160, MinCoverage: 0.03}
}

func (d *SkinToneDetector) Approximate() bool { return true }

func (d *SkinToneDetector) Detect(ctx context.Context, img image.Image) (*FaceBox, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, nil
	}

	small := imaging.Fit(img, d.WorkSize, d.WorkSize, imaging.Box)
	sw, sh := small.Bounds().Dx(), small.Bounds().Dy()

	mask := make([]bool, sw*sh)
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			c := small.NRGBAAt(x, y)
			mask[y*sw+x] = isSkin(c.R, c.G, c.B)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	region, ok := largestRegion(mask, sw, sh)
	if !ok || float64(region.count) < d.MinCoverage*float64(sw*sh) {
		return nil, nil
	}

	rw := region.maxX - region.minX + 1
	rh := region.maxY - region.minY + 1
	if ratio := float64(rw) / float64(rh); ratio < 0.4 || ratio > 2.0 {
		return nil, nil
	}

	scaleX := float64(b.Dx()) / float64(sw)
	scaleY := float64(b.Dy()) / float64(sh)
	return &FaceBox{
		X:          int(float64(region.minX) * scaleX),
		Y:          int(float64(region.minY) * scaleY),
		Width:      int(float64(rw) * scaleX),
		Height:     int(float64(rh) * scaleY),
		Confidence: round2(float64(region.count) / float64(rw*rh)),
	}, nil
}

// isSkin accepts the classic RGB daylight rule or the chroma box in YCbCr.
// The RGB rule alone misses darker skin tones.
func isSkin(r, g, b uint8) bool {
	hi := max(r, g, b)
	lo := min(r, g, b)
	if r > 95 && g > 40 && b > 20 &&
		hi-lo > 15 &&
		absDiff(r, g) > 15 &&
		r > g && r > b {
		return true
	}
	y, cb, cr := color.RGBToYCbCr(r, g, b)
	return y > 40 && cb >= 77 && cb <= 127 && cr >= 133 && cr <= 173
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

type region struct {
	count                  int
	minX, minY, maxX, maxY int
}

func largestRegion(mask []bool, w, h int) (region, bool) {
	seen := make([]bool, len(mask))
	var best region
	found := false
	stack := make([]int, 0, 256)

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		cur := region{minX: w, minY: h, maxX: -1, maxY: -1}
		stack = append(stack[:0], start)
		seen[start] = true

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			cur.count++
			cur.minX = min(cur.minX, x)
			cur.minY = min(cur.minY, y)
			cur.maxX = max(cur.maxX, x)
			cur.maxY = max(cur.maxY, y)

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if n < 0 || n >= len(mask) || seen[n] || !mask[n] {
					continue
				}
				// no wrap-around between rows
				if (n == i-1 && x == 0) || (n == i+1 && x == w-1) {
					continue
				}
				seen[n] = true
				stack = append(stack, n)
			}
		}

		if cur.count > best.count {
			best = cur
			found = true
		}
	}
	return best, found
}
