// Package imagequality scores passport-style photos.
//
// The analyzer runs a fixed weighted checklist over a sparse pixel sample:
//
//	resolution >= 600x600         20 points (error below)
//	aspect ratio in [0.8, 1.2]    15 points
//	mean brightness in [100, 200] 15 points
//	contrast (max-min) >= 40      15 points
//	Laplacian variance >= 100     15 points
//	face found, centred, sized    20 points (only when requested and not in quick mode)
//
// Only an undersized image or a face missed by an exact detector is an error;
// every other failed check is a warning.
package imagequality

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
)

const (
	MinWidth  = 600
	MinHeight = 600

	minAspect = 0.8
	maxAspect = 1.2

	minBrightness = 100.0
	maxBrightness = 200.0
	minContrast   = 40.0

	SharpnessThreshold = 100.0

	minStride = 10
	maxStride = 40

	pointsResolution = 20
	pointsAspect     = 15
	pointsBrightness = 15
	pointsContrast   = 15
	pointsSharpness  = 15
	pointsFaceFound  = 10
	pointsFaceCentre = 5
	pointsFaceSize   = 5

	maxScore = 100

	// face centre must sit within this fraction of the width from the image centre
	faceCentreTolerance = 0.15
	minFaceHeightRatio  = 0.20
	maxFaceHeightRatio  = 0.80

	MsgFaceUnavailable = "Face detection unavailable"
	MsgNoFace          = "No face detected"
	MsgFaceUnconfirmed = "No face found automatically; the photo will be checked by a reviewer"
)

type Options struct {
	RequireFaceDetection bool `json:"require_face_detection"`
	QuickMode            bool `json:"quick_mode"`
}

type Metadata struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	AspectRatio float64  `json:"aspect_ratio"`
	Brightness  float64  `json:"brightness"`
	Contrast    float64  `json:"contrast"`
	Sharpness   float64  `json:"sharpness"`
	Stride      int      `json:"stride"`
	Samples     int      `json:"samples"`
	Face        *FaceBox `json:"face,omitempty"`
}

type Result struct {
	Score    int      `json:"score"`
	Passes   []string `json:"passes"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	Metadata Metadata `json:"metadata"`
}

// Acceptable reports whether the photo has no blocking problems.
func (r Result) Acceptable() bool {
	return len(r.Errors) == 0
}

func (r *Result) pass(points int, format string, args ...any) {
	r.Score += points
	r.Passes = append(r.Passes, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Analyzer is safe for concurrent use. The face detector is loaded on first use.
type Analyzer struct {
	loader   DetectorLoader
	once     sync.Once
	detector FaceDetector
	loadErr  error
	logger   *slog.Logger
}

type Option func(*Analyzer)

// WithDetectorLoader replaces the default skin-tone detector.
func WithDetectorLoader(l DetectorLoader) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.loader = l
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		loader: DefaultDetectorLoader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stride returns the sampling step used for an image of the given size.
func Stride(width, height int) int {
	s := max(width, height) / 60
	return min(max(s, minStride), maxStride)
}

func (a *Analyzer) Analyze(ctx context.Context, img image.Image, opts Options) Result {
	res := Result{
		Passes:   []string{},
		Warnings: []string{},
		Errors:   []string{},
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	res.Metadata.Width = w
	res.Metadata.Height = h
	if w == 0 || h == 0 {
		res.fail("Image is empty")
		return res
	}

	if w >= MinWidth && h >= MinHeight {
		res.pass(pointsResolution, "Resolution %dx%d meets the minimum", w, h)
	} else {
		res.fail("Image resolution %dx%d is below the minimum resolution of %dx%d pixels", w, h, MinWidth, MinHeight)
	}

	aspect := float64(w) / float64(h)
	res.Metadata.AspectRatio = round2(aspect)
	if aspect >= minAspect && aspect <= maxAspect {
		res.pass(pointsAspect, "Aspect ratio is close to square")
	} else {
		res.warn("Aspect ratio %.2f is outside %.1f-%.1f; a square photo is recommended", aspect, minAspect, maxAspect)
	}

	stride := Stride(w, h)
	res.Metadata.Stride = stride
	lum := newLuminance(img)

	brightness, contrast, samples := sampleBrightness(lum, stride)
	res.Metadata.Brightness = round2(brightness)
	res.Metadata.Contrast = round2(contrast)
	res.Metadata.Samples = samples

	switch {
	case brightness < minBrightness:
		res.warn("Photo is too dark")
	case brightness > maxBrightness:
		res.warn("Photo is too bright")
	default:
		res.pass(pointsBrightness, "Brightness is good")
	}

	if contrast >= minContrast {
		res.pass(pointsContrast, "Contrast is good")
	} else {
		res.warn("Photo has low contrast")
	}

	sharpness := laplacianVariance(lum, stride)
	res.Metadata.Sharpness = round2(sharpness)
	if sharpness >= SharpnessThreshold {
		res.pass(pointsSharpness, "Photo is sharp")
	} else {
		res.warn("Photo may be blurry")
	}

	if opts.RequireFaceDetection && !opts.QuickMode {
		a.checkFace(ctx, img, &res)
	}

	res.Score = min(res.Score, maxScore)
	return res
}

func (a *Analyzer) loadDetector() (FaceDetector, error) {
	a.once.Do(func() {
		a.detector, a.loadErr = a.loader()
		if a.loadErr != nil {
			a.logger.Warn("face detector failed to load", "error", a.loadErr)
		}
	})
	return a.detector, a.loadErr
}

func (a *Analyzer) checkFace(ctx context.Context, img image.Image, res *Result) {
	detector, err := a.loadDetector()
	if err != nil || detector == nil {
		res.warn(MsgFaceUnavailable)
		return
	}

	face, err := detector.Detect(ctx, img)
	if err != nil {
		a.logger.WarnContext(ctx, "face detection failed", "error", err)
		res.warn(MsgFaceUnavailable)
		return
	}
	if face == nil {
		if approx, ok := detector.(ApproximateDetector); ok && approx.Approximate() {
			res.warn(MsgFaceUnconfirmed)
			return
		}
		res.fail(MsgNoFace)
		return
	}

	res.Metadata.Face = face
	res.pass(pointsFaceFound, "Face detected")

	w := float64(res.Metadata.Width)
	h := float64(res.Metadata.Height)

	centreX := float64(face.X) + float64(face.Width)/2
	if math.Abs(centreX-w/2) <= faceCentreTolerance*w {
		res.pass(pointsFaceCentre, "Face is centred")
	} else {
		res.warn("Face is not centred in the photo")
	}

	ratio := float64(face.Height) / h
	switch {
	case ratio < minFaceHeightRatio:
		res.warn("Face is too small in the photo")
	case ratio > maxFaceHeightRatio:
		res.warn("Face is too close to the camera")
	default:
		res.pass(pointsFaceSize, "Face size is appropriate")
	}
}

// luminance caches per-pixel lookups through the image's colour model.
type luminance struct {
	img  image.Image
	minX int
	minY int
	w    int
	h    int
}

func newLuminance(img image.Image) luminance {
	b := img.Bounds()
	return luminance{img: img, minX: b.Min.X, minY: b.Min.Y, w: b.Dx(), h: b.Dy()}
}

func (l luminance) at(x, y int) float64 {
	r, g, b, _ := l.img.At(l.minX+x, l.minY+y).RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

func sampleBrightness(l luminance, stride int) (mean, contrast float64, samples int) {
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	var sum float64
	for y := 0; y < l.h; y += stride {
		for x := 0; x < l.w; x += stride {
			v := l.at(x, y)
			sum += v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			samples++
		}
	}
	if samples == 0 {
		return 0, 0, 0
	}
	return sum / float64(samples), hi - lo, samples
}

// laplacianVariance applies the 4-neighbour Laplacian at sampled interior pixels.
func laplacianVariance(l luminance, stride int) float64 {
	if l.w < 3 || l.h < 3 {
		return 0
	}
	var sum, sumSq float64
	n := 0
	for y := 1; y < l.h-1; y += stride {
		for x := 1; x < l.w-1; x += stride {
			v := 4*l.at(x, y) - l.at(x-1, y) - l.at(x+1, y) - l.at(x, y-1) - l.at(x, y+1)
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
