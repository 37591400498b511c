// Package snapshot draws detections on a frame and writes a compressed
// still image with gocv's rectangle drawing and JPEG encoding.
package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"sentrycore/internal/model"

	"gocv.io/x/gocv"
)

// palette assigns a colour per class_id mod len(palette), matching the
// spec's "colour chosen from a small palette" rule.
var palette = []color.RGBA{
	{R: 255, G: 0, B: 0, A: 0},
	{R: 0, G: 255, B: 0, A: 0},
	{R: 0, G: 128, B: 255, A: 0},
	{R: 255, G: 255, B: 0, A: 0},
	{R: 255, G: 0, B: 255, A: 0},
	{R: 0, G: 255, B: 255, A: 0},
}

const (
	rectThickness = 2
	jpegQmin      = 2
	jpegQmax      = 5
)

// Write draws detections on a deep copy of frame's pixels and writes
// dir/{cameraID}_{YYYYMMDD_HHMMSS}.jpg. Returns the full path on success.
func Write(frame *model.Frame, detections []model.Detection, cameraID, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("snapshot: create dir: %w", err)
	}

	clone := frame.Clone() // never mutate the caller's frame
	mat, err := gocv.NewMatFromBytes(clone.Height, clone.Width, gocv.MatTypeCV8UC3, clone.Pixels)
	if err != nil {
		return "", fmt.Errorf("snapshot: build mat: %w", err)
	}
	defer mat.Close()

	for _, d := range detections {
		c := palette[d.ClassID%len(palette)]
		rect := image.Rect(int(d.X1), int(d.Y1), int(d.X2), int(d.Y2))
		gocv.Rectangle(&mat, rect, c, rectThickness)

		label := fmt.Sprintf("%s (%.2f)", d.ClassName, d.Confidence)
		pt := image.Pt(int(d.X1), int(d.Y1)-5)
		gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, c, 1)
	}

	params := []int{gocv.IMWriteJpegQuality, jpegQualityFor(jpegQmin, jpegQmax)}
	buf, err := gocv.IMEncodeWithParams(".jpg", mat, params)
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	defer buf.Close()

	filename := fmt.Sprintf("%s_%s.jpg", cameraID, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, buf.GetBytes(), 0644); err != nil {
		return "", fmt.Errorf("snapshot: write file: %w", err)
	}
	return path, nil
}

// jpegQualityFor maps the spec's encoder-quantizer quality band (qmin=2,
// qmax=5, lower is better in FFmpeg's mjpeg quantizer scale) onto libjpeg's
// 0-100 "higher is better" quality percentage used by OpenCV's JPEG writer.
func jpegQualityFor(qmin, qmax int) int {
	// Midpoint of the qmin/qmax band, inverted onto a 0-100 scale where a
	// smaller FFmpeg quantizer (better quality) maps to a higher percentage.
	mid := (qmin + qmax) / 2
	quality := 100 - mid*10
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return quality
}
