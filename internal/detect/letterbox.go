package detect

import (
	"image"

	"gocv.io/x/gocv"
)

// letterboxPadValue is the neutral gray (114/255) the spec pads with.
const letterboxPadValue = 114.0

// LetterboxInfo carries the geometry needed to map detections in the padded
// target square back into the original frame's coordinate space.
type LetterboxInfo struct {
	Scale  float32
	PadX   float32
	PadY   float32
	OrigW  int
	OrigH  int
	Target int
}

// computeLetterboxGeometry is the pure-math core of preprocessing: given a
// source width/height and a target square side, it returns the scale factor
// and symmetric padding per §4.4.
func computeLetterboxGeometry(imgW, imgH, target int) (scale float32, padX, padY float32, newW, newH int) {
	sw := float32(target) / float32(imgW)
	sh := float32(target) / float32(imgH)
	if sw < sh {
		scale = sw
	} else {
		scale = sh
	}
	newW = int(roundHalfAwayFromZero(float64(float32(imgW) * scale)))
	newH = int(roundHalfAwayFromZero(float64(float32(imgH) * scale)))
	padX = float32(target-newW) / 2
	padY = float32(target-newH) / 2
	return scale, padX, padY, newW, newH
}

func roundHalfAwayFromZero(v float64) float64 {
	if v < 0 {
		return -roundHalfAwayFromZero(-v)
	}
	return float64(int64(v + 0.5))
}

// Letterbox resizes src (a BGR gocv.Mat) into a target x target square,
// preserving aspect ratio and padding the short side with 114-gray, and
// returns the padded Mat alongside the geometry postprocess needs to map
// detections back to the original frame. Caller owns the returned Mat.
func Letterbox(src gocv.Mat, target int) (gocv.Mat, LetterboxInfo) {
	origW, origH := src.Cols(), src.Rows()
	scale, padX, padY, newW, newH := computeLetterboxGeometry(origW, origH, target)

	resized := gocv.NewMat()
	gocv.Resize(src, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationNearestNeighbor)
	defer resized.Close()

	top := int(padY)
	bottom := target - newH - top
	left := int(padX)
	right := target - newW - left

	padded := gocv.NewMat()
	gocv.CopyMakeBorder(resized, &padded, top, bottom, left, right, gocv.BorderConstant,
		gocv.NewScalar(letterboxPadValue, letterboxPadValue, letterboxPadValue, 0))

	return padded, LetterboxInfo{
		Scale: scale, PadX: padX, PadY: padY,
		OrigW: origW, OrigH: origH, Target: target,
	}
}

// ReverseLetterbox maps a bounding box from the padded target square's
// coordinate space back to the original frame, clamped to frame bounds.
func ReverseLetterbox(x1, y1, x2, y2 float32, info LetterboxInfo) (rx1, ry1, rx2, ry2 float32) {
	rx1 = (x1 - info.PadX) / info.Scale
	ry1 = (y1 - info.PadY) / info.Scale
	rx2 = (x2 - info.PadX) / info.Scale
	ry2 = (y2 - info.PadY) / info.Scale

	rx1 = clamp(rx1, 0, float32(info.OrigW))
	ry1 = clamp(ry1, 0, float32(info.OrigH))
	rx2 = clamp(rx2, 0, float32(info.OrigW))
	ry2 = clamp(ry2, 0, float32(info.OrigH))
	return
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
