package detect

import "testing"

func almostEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestLetterboxGeometryIdentity(t *testing.T) {
	scale, padX, padY, newW, newH := computeLetterboxGeometry(640, 640, 640)
	if scale != 1.0 {
		t.Fatalf("scale = %v, want 1.0", scale)
	}
	if padX != 0 || padY != 0 {
		t.Fatalf("pad = (%v, %v), want (0, 0)", padX, padY)
	}
	if newW != 640 || newH != 640 {
		t.Fatalf("new size = (%d, %d), want (640, 640)", newW, newH)
	}
}

func TestLetterboxGeometryAsymmetric(t *testing.T) {
	// 1920x1080 -> 640x640: scale = min(640/1920, 640/1080) ~= 0.3333
	scale, padX, padY, _, _ := computeLetterboxGeometry(1920, 1080, 640)
	if !almostEqual(scale, 0.3333, 0.001) {
		t.Fatalf("scale = %v, want ~0.3333", scale)
	}
	if padX != 0 {
		t.Fatalf("padX = %v, want 0", padX)
	}
	if !almostEqual(padY, 140, 1) {
		t.Fatalf("padY = %v, want ~140", padY)
	}
}

func TestReverseLetterboxAsymmetricScenario(t *testing.T) {
	info := LetterboxInfo{Scale: 0.3333, PadX: 0, PadY: 140, OrigW: 1920, OrigH: 1080, Target: 640}

	// centre (320,320) size (100,100) -> corners (270,270)-(370,370) in target space
	x1, y1 := float32(270), float32(270)
	x2, y2 := float32(370), float32(370)

	rx1, ry1, rx2, ry2 := ReverseLetterbox(x1, y1, x2, y2, info)

	if !almostEqual(rx1, 810, 5) || !almostEqual(ry1, 390, 5) {
		t.Fatalf("top-left = (%v, %v), want ~(810, 390)", rx1, ry1)
	}
	if !almostEqual(rx2, 1110, 5) || !almostEqual(ry2, 690, 5) {
		t.Fatalf("bottom-right = (%v, %v), want ~(1110, 690)", rx2, ry2)
	}
}

func TestReverseLetterboxClampsToFrame(t *testing.T) {
	info := LetterboxInfo{Scale: 1, PadX: 0, PadY: 0, OrigW: 100, OrigH: 100, Target: 640}
	rx1, ry1, rx2, ry2 := ReverseLetterbox(-50, -50, 5000, 5000, info)
	if rx1 != 0 || ry1 != 0 || rx2 != 100 || ry2 != 100 {
		t.Fatalf("bounds not clamped: (%v,%v)-(%v,%v)", rx1, ry1, rx2, ry2)
	}
}
